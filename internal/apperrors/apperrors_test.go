package apperrors

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeInvalidField:       400,
		ErrCodeInsufficientFunds:  400,
		ErrCodeMissingToken:       401,
		ErrCodeForbidden:          403,
		ErrCodeTransactionNotFound: 404,
		ErrCodeDuplicateKey:       409,
		ErrCodeProviderError:      502,
		ErrCodeProviderUnavailable: 503,
		ErrCodeInternalError:      500,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: expected status %d, got %d", code, want, got)
		}
	}
}

func TestIsRetryableOnlyForTransientCodes(t *testing.T) {
	if !ErrCodeProviderUnavailable.IsRetryable() {
		t.Error("expected provider_unavailable to be retryable")
	}
	if !ErrCodeNetworkError.IsRetryable() {
		t.Error("expected network_error to be retryable")
	}
	if ErrCodeInvalidField.IsRetryable() {
		t.Error("expected invalid_field to not be retryable")
	}
}

func TestAsUnwrapsAppError(t *testing.T) {
	wrapped := Wrap(ErrCodeDatabaseError, "write failed", errors.New("disk full"))
	ae := As(wrapped)
	if ae.Code != ErrCodeDatabaseError {
		t.Errorf("expected the original code preserved, got %s", ae.Code)
	}
	if ae.Error() != "write failed: disk full" {
		t.Errorf("expected cause appended to the message, got %q", ae.Error())
	}
}

func TestAsFallsBackToInternalErrorForPlainErrors(t *testing.T) {
	ae := As(errors.New("something broke"))
	if ae.Code != ErrCodeInternalError {
		t.Errorf("expected a generic internal_error fallback, got %s", ae.Code)
	}
}

func TestWriteErrorRendersStatusAndEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, New(ErrCodeInvalidOTP, "otp mismatch"))

	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success {
		t.Error("expected success=false on an error envelope")
	}
	if env.Error == nil || env.Error.Code != ErrCodeInvalidOTP {
		t.Errorf("expected error code invalid_otp in the envelope, got %+v", env.Error)
	}
}

func TestWriteJSONRendersPagination(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, 200, "", []int{1, 2, 3}, &Pagination{Page: 1, Limit: 20, Total: 3, TotalPages: 1})

	var env Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Pagination == nil || env.Pagination.Total != 3 {
		t.Errorf("expected pagination total 3, got %+v", env.Pagination)
	}
}
