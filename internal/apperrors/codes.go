package apperrors

// ErrorCode is a machine-readable error identifier returned to API clients
// alongside a human-readable message.
type ErrorCode string

// Validation errors — caller input is malformed.
const (
	ErrCodeMissingField  ErrorCode = "missing_field"
	ErrCodeInvalidField  ErrorCode = "invalid_field"
	ErrCodeInvalidAmount ErrorCode = "invalid_amount"
	ErrCodeUnknownGateway ErrorCode = "unknown_gateway"
	ErrCodeUnsupportedCurrency ErrorCode = "unsupported_currency"
	ErrCodeAmountBelowMinimum  ErrorCode = "amount_below_minimum"
	ErrCodeAmountNotMultiple   ErrorCode = "amount_not_multiple"
)

// Authentication/authorization.
const (
	ErrCodeMissingToken     ErrorCode = "missing_token"
	ErrCodeInvalidToken     ErrorCode = "invalid_token"
	ErrCodeExpiredToken     ErrorCode = "expired_token"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeNotOwner         ErrorCode = "not_owner"
	ErrCodeInvalidWebhookSignature ErrorCode = "invalid_webhook_signature"
)

// NotFound.
const (
	ErrCodeTransactionNotFound   ErrorCode = "transaction_not_found"
	ErrCodeIntentNotFound        ErrorCode = "intent_not_found"
	ErrCodeUserNotFound          ErrorCode = "user_not_found"
	ErrCodePlanNotFound          ErrorCode = "plan_not_found"
)

// Conflict / IllegalTransition / DuplicateKey.
const (
	ErrCodeDuplicateKey      ErrorCode = "duplicate_key"
	ErrCodeIllegalTransition ErrorCode = "illegal_transition"
	ErrCodeAlreadyConsumed   ErrorCode = "already_consumed"
)

// Business-rule 400s with a specific code per §7.
const (
	ErrCodeInsufficientFunds          ErrorCode = "insufficient_funds"
	ErrCodeDailyLimitExceeded         ErrorCode = "daily_limit_exceeded"
	ErrCodePendingBlockingTransaction ErrorCode = "pending_blocking_transaction"
	ErrCodeMissingPayoutDestination   ErrorCode = "missing_payout_destination"
	ErrCodeInvalidOTP                 ErrorCode = "invalid_otp"
	ErrCodeOTPExpired                 ErrorCode = "otp_expired"
)

// External / provider.
const (
	ErrCodeProviderError       ErrorCode = "provider_error"
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	ErrCodeNetworkError        ErrorCode = "network_error"
)

// Internal/system.
const (
	ErrCodeInternalError ErrorCode = "internal_error"
	ErrCodeDatabaseError ErrorCode = "database_error"
	ErrCodeConfigError   ErrorCode = "config_error"
)

// IsRetryable reports whether an error code represents a transient condition
// worth an internal retry. Validation and business-rule failures never are.
func (e ErrorCode) IsRetryable() bool {
	switch e {
	case ErrCodeProviderUnavailable, ErrCodeNetworkError:
		return true
	default:
		return false
	}
}

// HTTPStatus maps an ErrorCode to the status the §7 taxonomy assigns it.
func (e ErrorCode) HTTPStatus() int {
	switch e {
	case ErrCodeMissingField, ErrCodeInvalidField, ErrCodeInvalidAmount,
		ErrCodeUnknownGateway, ErrCodeUnsupportedCurrency, ErrCodeAmountBelowMinimum,
		ErrCodeAmountNotMultiple, ErrCodeInsufficientFunds, ErrCodeDailyLimitExceeded,
		ErrCodePendingBlockingTransaction, ErrCodeMissingPayoutDestination,
		ErrCodeInvalidOTP, ErrCodeOTPExpired:
		return 400

	case ErrCodeMissingToken, ErrCodeInvalidToken, ErrCodeExpiredToken,
		ErrCodeInvalidWebhookSignature:
		return 401

	case ErrCodeForbidden, ErrCodeNotOwner:
		return 403

	case ErrCodeTransactionNotFound, ErrCodeIntentNotFound, ErrCodeUserNotFound,
		ErrCodePlanNotFound:
		return 404

	case ErrCodeDuplicateKey, ErrCodeIllegalTransition, ErrCodeAlreadyConsumed:
		return 409

	case ErrCodeProviderError:
		return 502
	case ErrCodeProviderUnavailable:
		return 503

	default:
		return 500
	}
}
