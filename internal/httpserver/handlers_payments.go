package httpserver

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/paymentintent"
)

type createIntentRequest struct {
	PaymentType        string            `json:"paymentType"`
	Amount             int64             `json:"amount"`
	Currency           string            `json:"currency"`
	Gateway            string            `json:"gateway"`
	OriginatingService string            `json:"originatingService"`
	CallbackPath       string            `json:"callbackPath"`
	InternalRefs       map[string]string `json:"internalRefs"`
}

// createPaymentIntent handles POST /api/payments/intent (§4.4 CreateIntent).
func (h *handlers) createPaymentIntent(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeMissingToken, "missing bearer token"))
		return
	}

	var req createIntentRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "malformed request body"))
		return
	}
	if req.Amount <= 0 {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidAmount, "amount must be positive"))
		return
	}

	intent, result, err := h.deps.PaymentIntents.CreateIntent(r.Context(), paymentintent.CreateRequest{
		UserID: claims.UserID, PaymentType: req.PaymentType, RequestedAmount: req.Amount,
		RequestedCurrency: req.Currency, Gateway: req.Gateway, OriginatingService: req.OriginatingService,
		CallbackPath: req.CallbackPath, InternalRefs: req.InternalRefs,
	})
	if err != nil {
		writeErr(w, domainError(err))
		return
	}

	writeOK(w, http.StatusCreated, "payment intent created", map[string]interface{}{
		"sessionId": intent.SessionID,
		"status":    intent.Status,
		"gateway":   result,
	})
}

// ingestWebhook handles POST /api/payments/webhooks/{gateway} (§4.4 IngestWebhook).
func (h *handlers) ingestWebhook(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, apperrors.New(apperrors.ErrCodeInvalidField, "unreadable body"))
		return
	}

	headers := map[string]string{}
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}

	if err := h.deps.PaymentIntents.IngestWebhook(r.Context(), gatewayName, body, headers); err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "webhook processed", nil)
}

// paymentStatus handles GET /api/payments/status/{sessionId}.
func (h *handlers) paymentStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	intent, err := h.deps.PaymentIntents.PollStatus(r.Context(), sessionID)
	if err != nil {
		writeErr(w, domainError(err))
		return
	}
	writeOK(w, http.StatusOK, "", intent)
}
