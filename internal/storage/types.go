package storage

import "time"

// TransactionType enumerates the kinds of C1 ledger entries (§3).
type TransactionType string

const (
	TransactionDeposit               TransactionType = "deposit"
	TransactionWithdrawal            TransactionType = "withdrawal"
	TransactionPayment               TransactionType = "payment"
	TransactionRefund                TransactionType = "refund"
	TransactionFee                   TransactionType = "fee"
	TransactionTransfer              TransactionType = "transfer"
	TransactionConversion            TransactionType = "conversion"
	TransactionActivationTransferIn  TransactionType = "activation_transfer_in"
	TransactionActivationTransferOut TransactionType = "activation_transfer_out"
	TransactionSponsorActivation     TransactionType = "sponsor_activation"
)

// TransactionStatus enumerates the C1 lifecycle states (§3, §4.1).
type TransactionStatus string

const (
	StatusPending                  TransactionStatus = "pending"
	StatusPendingOTPVerification   TransactionStatus = "pending_otp_verification"
	StatusPendingAdminApproval     TransactionStatus = "pending_admin_approval"
	StatusProcessing               TransactionStatus = "processing"
	StatusCompleted                TransactionStatus = "completed"
	StatusFailed                   TransactionStatus = "failed"
	StatusRefunded                 TransactionStatus = "refunded"
	StatusRejectedByAdmin          TransactionStatus = "rejected_by_admin"
	StatusCancelled                TransactionStatus = "cancelled"
)

// terminalStatuses are sticky: once reached a record never transitions again (§3 invariant b).
var terminalStatuses = map[TransactionStatus]bool{
	StatusCompleted:       true,
	StatusFailed:          true,
	StatusRefunded:        true,
	StatusRejectedByAdmin: true,
	StatusCancelled:       true,
}

// IsTerminal reports whether status is a sticky terminal state.
func (s TransactionStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// allowedTransitions encodes the guarded compare-and-set rules of §4.1.
var allowedTransitions = map[TransactionStatus]map[TransactionStatus]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusFailed:      true,
		StatusCancelled:   true,
	},
	StatusPendingOTPVerification: {
		StatusPendingAdminApproval: true,
		StatusCancelled:            true,
		StatusFailed:               true,
	},
	StatusPendingAdminApproval: {
		StatusProcessing:      true,
		StatusRejectedByAdmin: true,
	},
	StatusProcessing: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusRefunded:  true,
	},
}

// CanTransition reports whether from -> to is an allowed status transition.
func CanTransition(from, to TransactionStatus) bool {
	if from.IsTerminal() {
		return false
	}
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// PaymentProviderInfo mirrors a transaction's nested paymentProvider attribute (§3).
type PaymentProviderInfo struct {
	Provider             string            `json:"provider" bson:"provider"`
	ExternalTransactionID string           `json:"externalTransactionId" bson:"externalTransactionId"`
	Status                string            `json:"status" bson:"status"`
	Metadata              map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Transaction is the canonical C1 ledger entry (§3).
type Transaction struct {
	TransactionID   string              `json:"transactionId" bson:"transactionId"`
	UserID          string              `json:"userId" bson:"userId"`
	Type            TransactionType     `json:"type" bson:"type"`
	Amount          int64               `json:"amount" bson:"amount"` // minor units, non-negative
	Currency        string              `json:"currency" bson:"currency"`
	Fee             int64               `json:"fee" bson:"fee"`
	Status          TransactionStatus   `json:"status" bson:"status"`
	Description     string              `json:"description,omitempty" bson:"description,omitempty"`
	PaymentProvider PaymentProviderInfo `json:"paymentProvider,omitempty" bson:"paymentProvider,omitempty"`
	Metadata        map[string]string   `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt       time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time           `json:"updatedAt" bson:"updatedAt"`
	Deleted         bool                `json:"deleted" bson:"deleted"`
}

// IntentStatus enumerates C4 PaymentIntent lifecycle states (§3).
type IntentStatus string

const (
	IntentPendingUserInput     IntentStatus = "pending_user_input"
	IntentPendingProvider      IntentStatus = "pending_provider"
	IntentWaitingCryptoDeposit IntentStatus = "waiting_for_crypto_deposit"
	IntentProcessing           IntentStatus = "processing"
	IntentConfirmed            IntentStatus = "confirmed"
	IntentSucceeded            IntentStatus = "succeeded"
	IntentPartiallyPaid        IntentStatus = "partially_paid"
	IntentFailed               IntentStatus = "failed"
	IntentExpired              IntentStatus = "expired"
)

var terminalIntentStatuses = map[IntentStatus]bool{
	IntentSucceeded: true,
	IntentFailed:    true,
	IntentExpired:   true,
}

// IsTerminal reports whether the intent status is sticky.
func (s IntentStatus) IsTerminal() bool {
	return terminalIntentStatuses[s]
}

// PaymentIntent binds an internal session to a gateway call, created before
// the external provider is invoked (§3, §4.4).
type PaymentIntent struct {
	SessionID         string            `json:"sessionId" bson:"sessionId"`
	UserID            string            `json:"userId" bson:"userId"`
	PaymentType       string            `json:"paymentType" bson:"paymentType"`
	RequestedAmount   int64             `json:"requestedAmount" bson:"requestedAmount"`
	RequestedCurrency string            `json:"requestedCurrency" bson:"requestedCurrency"`
	PaidAmount        int64             `json:"paidAmount" bson:"paidAmount"`
	PaidCurrency      string            `json:"paidCurrency" bson:"paidCurrency"`
	Gateway           string            `json:"gateway" bson:"gateway"`
	Status            IntentStatus      `json:"status" bson:"status"`
	ProviderRef       string            `json:"providerRef,omitempty" bson:"providerRef,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt" bson:"updatedAt"`
}

// UserBalanceView is the per-user projection maintained by C2 (§3).
type UserBalanceView struct {
	UserID               string    `json:"userId" bson:"userId"`
	Balance              int64     `json:"balance" bson:"balance"`                             // XAF spendable, minor units
	USDBalance           int64     `json:"usdBalance" bson:"usdBalance"`                         // crypto-side USD spendable, minor units
	ActivationBalance    int64     `json:"activationBalance" bson:"activationBalance"`           // segregated, C8-only
	DailyWithdrawalTotal int64     `json:"dailyWithdrawalTotal" bson:"dailyWithdrawalTotal"`
	DailyWithdrawalCount int       `json:"dailyWithdrawalCount" bson:"dailyWithdrawalCount"`
	DailyWindowStart     time.Time `json:"dailyWindowStart" bson:"dailyWindowStart"`
}

// TransactionFilter narrows Find/Count queries over the ledger.
type TransactionFilter struct {
	UserID          string
	Type            TransactionType
	Status          TransactionStatus
	MetadataEquals  map[string]string
	IncludeDeleted  bool
}

// Pagination describes an offset-limited page request, mirrored in responses (§6 envelope).
type Pagination struct {
	Page  int
	Limit int
}
