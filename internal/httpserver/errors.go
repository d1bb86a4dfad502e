package httpserver

import (
	"errors"
	"strings"

	"github.com/TambongStercy/SBC-MS-sub012/internal/activation"
	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/paymentintent"
	"github.com/TambongStercy/SBC-MS-sub012/internal/withdrawal"
)

// domainError maps the sentinel errors returned by C1-C8 components to the
// §7 error taxonomy. Anything unrecognized falls back to an internal error
// rather than leaking the underlying message verbatim.
func domainError(err error) error {
	if err == nil {
		return nil
	}
	if ae := apperrors.As(err); ae != nil {
		return ae
	}

	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, paymentintent.ErrNotFound):
		return apperrors.New(apperrors.ErrCodeTransactionNotFound, "not found")
	case errors.Is(err, ledger.ErrAlreadyExists):
		return apperrors.New(apperrors.ErrCodeDuplicateKey, "already exists")
	case errors.Is(err, ledger.ErrInvalidTransition):
		return apperrors.New(apperrors.ErrCodeIllegalTransition, "transaction cannot move to that state")
	case errors.Is(err, balance.ErrInsufficientFunds):
		return apperrors.New(apperrors.ErrCodeInsufficientFunds, "insufficient funds")
	case errors.Is(err, gateway.ErrFeatureDisabled):
		return apperrors.New(apperrors.ErrCodeProviderUnavailable, "payout rail temporarily disabled")
	case errors.Is(err, paymentintent.ErrValidation):
		return apperrors.New(apperrors.ErrCodeInvalidField, "invalid request")
	case errors.Is(err, paymentintent.ErrUnauthorizedWebhook):
		return apperrors.New(apperrors.ErrCodeInvalidWebhookSignature, "webhook signature verification failed")
	case errors.Is(err, withdrawal.ErrValidation):
		return apperrors.New(apperrors.ErrCodeInvalidField, "invalid request")
	case errors.Is(err, withdrawal.ErrBelowMinimum):
		return apperrors.New(apperrors.ErrCodeAmountBelowMinimum, "amount below the rail's minimum")
	case errors.Is(err, withdrawal.ErrNotMultiple):
		return apperrors.New(apperrors.ErrCodeAmountNotMultiple, "amount is not a multiple of the required step")
	case errors.Is(err, withdrawal.ErrDailyLimitExceeded):
		return apperrors.New(apperrors.ErrCodeDailyLimitExceeded, "daily withdrawal limit exceeded")
	case errors.Is(err, withdrawal.ErrPendingExists):
		return apperrors.New(apperrors.ErrCodePendingBlockingTransaction, "a pending withdrawal already exists")
	case errors.Is(err, withdrawal.ErrNoPayoutDestination):
		return apperrors.New(apperrors.ErrCodeMissingPayoutDestination, "no payout destination on file")
	case errors.Is(err, withdrawal.ErrOTPMismatch):
		return apperrors.New(apperrors.ErrCodeInvalidOTP, "OTP mismatch or expired")
	case errors.Is(err, withdrawal.ErrInvalidState):
		return apperrors.New(apperrors.ErrCodeIllegalTransition, "operation not valid from the current state")
	case errors.Is(err, withdrawal.ErrFeatureDisabled):
		return apperrors.New(apperrors.ErrCodeProviderUnavailable, "payout rail temporarily disabled")
	case errors.Is(err, activation.ErrValidation):
		return apperrors.New(apperrors.ErrCodeInvalidField, "invalid request")
	case errors.Is(err, activation.ErrSelfTransfer):
		return apperrors.New(apperrors.ErrCodeInvalidField, "cannot transfer to yourself")
	case errors.Is(err, activation.ErrNoSuchSKU):
		return apperrors.New(apperrors.ErrCodePlanNotFound, "unknown activation plan")
	case strings.Contains(err.Error(), "unknown provider"):
		return apperrors.New(apperrors.ErrCodeUnknownGateway, "unknown payment gateway")
	default:
		return apperrors.Wrap(apperrors.ErrCodeInternalError, "internal error", err)
	}
}
