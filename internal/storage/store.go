package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Store implementations; handlers map these onto
// apperrors codes rather than inspecting backend-specific error types.
var (
	ErrNotFound             = errors.New("storage: record not found")
	ErrAlreadyExists        = errors.New("storage: record already exists")
	ErrInvalidTransition    = errors.New("storage: invalid status transition")
	ErrInsufficientFunds    = errors.New("storage: insufficient funds")
	ErrConcurrentModification = errors.New("storage: concurrent modification detected")
)

// Store is the persistence boundary consumed by every domain package
// (ledger C1, balance C2, payment intents C4). Backends: memory (tests/dev),
// Postgres, MongoDB, file (single-node/offline).
type Store interface {
	// Ledger (C1)

	AppendTransaction(ctx context.Context, tx *Transaction) error
	FindTransactionByID(ctx context.Context, transactionID string) (*Transaction, error)
	FindTransactions(ctx context.Context, filter TransactionFilter, page Pagination) ([]*Transaction, error)
	CountTransactions(ctx context.Context, filter TransactionFilter) (int, error)
	// UpdateTransactionStatus performs a guarded compare-and-set: it fails
	// with ErrInvalidTransition unless CanTransition(current, newStatus).
	UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo, metadataPatch map[string]string) (*Transaction, error)
	FindProcessingWithdrawals(ctx context.Context, olderThan time.Duration) ([]*Transaction, error)
	AggregateTransactionSums(ctx context.Context, filter TransactionFilter) (totalAmount int64, count int, err error)

	// Balance (C2)

	GetBalance(ctx context.Context, userID string) (*UserBalanceView, error)
	GetBalances(ctx context.Context, userIDs []string) (map[string]*UserBalanceView, error)
	// Adjust atomically applies deltaBalance/deltaUSD/deltaActivation to a
	// user's balance view, rejecting with ErrInsufficientFunds if any
	// resulting field would go negative. Safe for concurrent use per user.
	Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*UserBalanceView, error)
	HasPendingBlockingTransactions(ctx context.Context, userID string, types []TransactionType) (bool, error)
	// RecordWithdrawal advances the daily withdrawal counters, rolling the
	// window over if the last reset was more than 24h ago, and reports
	// whether the resulting totals are within the supplied per-day limits.
	RecordWithdrawal(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (withinLimits bool, view *UserBalanceView, err error)
	// ReverseWithdrawal undoes the daily-limit slot a cancelled or
	// admin-rejected withdrawal reserved via RecordWithdrawal, identified by
	// recordedAt (the withdrawal's original RecordWithdrawal time) so a
	// withdrawal from an already-rolled-over window is not reversed into a
	// fresh one.
	ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (view *UserBalanceView, err error)

	// Payment intents (C4)

	CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error
	GetPaymentIntent(ctx context.Context, sessionID string) (*PaymentIntent, error)
	GetPaymentIntentByProviderRef(ctx context.Context, gateway, providerRef string) (*PaymentIntent, error)
	UpdatePaymentIntentStatus(ctx context.Context, sessionID string, status IntentStatus, paidAmount int64, paidCurrency string) (*PaymentIntent, error)
	ListStalePaymentIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error)

	// Idempotency-key bookkeeping for webhook ingress (sessionId, event_kind)
	// and commission distribution (sourcePaymentSessionId, beneficiaryUserId, level),
	// per §3. Returns ErrAlreadyExists on a duplicate key within the TTL window.
	ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error

	Close(ctx context.Context) error
}

// idempotencyRecord is the shared representation used by every backend's
// idempotency table/collection/file.
type idempotencyRecord struct {
	Key       string    `bson:"key"`
	ExpiresAt time.Time `bson:"expiresAt"`
}
