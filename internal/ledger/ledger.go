// Package ledger implements C1: the append-only transaction ledger that is
// the system of record for every balance-affecting event.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
)

// Re-exported so callers only need to import this package for C1 concerns.
type (
	Transaction         = storage.Transaction
	TransactionType     = storage.TransactionType
	TransactionStatus   = storage.TransactionStatus
	PaymentProviderInfo = storage.PaymentProviderInfo
	Filter              = storage.TransactionFilter
	Pagination          = storage.Pagination
)

const (
	TypeDeposit               = storage.TransactionDeposit
	TypeWithdrawal            = storage.TransactionWithdrawal
	TypePayment               = storage.TransactionPayment
	TypeRefund                = storage.TransactionRefund
	TypeFee                   = storage.TransactionFee
	TypeTransfer              = storage.TransactionTransfer
	TypeConversion            = storage.TransactionConversion
	TypeActivationTransferIn  = storage.TransactionActivationTransferIn
	TypeActivationTransferOut = storage.TransactionActivationTransferOut
	TypeSponsorActivation     = storage.TransactionSponsorActivation

	StatusPending                = storage.StatusPending
	StatusPendingOTPVerification = storage.StatusPendingOTPVerification
	StatusPendingAdminApproval   = storage.StatusPendingAdminApproval
	StatusProcessing             = storage.StatusProcessing
	StatusCompleted              = storage.StatusCompleted
	StatusFailed                 = storage.StatusFailed
	StatusRefunded               = storage.StatusRefunded
	StatusRejectedByAdmin        = storage.StatusRejectedByAdmin
	StatusCancelled              = storage.StatusCancelled
)

var (
	ErrNotFound          = storage.ErrNotFound
	ErrAlreadyExists     = storage.ErrAlreadyExists
	ErrInvalidTransition = storage.ErrInvalidTransition
)

// Store is the C1 ledger API consumed by every other component. It is a thin
// façade over storage.Store: the backend selection (memory/postgres/mongodb)
// lives once in internal/storage rather than being re-implemented per
// domain package, mirroring the teacher's single unified storage.Store.
type Store struct {
	backend storage.Store
}

// NewStore wraps an already-constructed storage.Store (see storage.NewStore).
func NewStore(backend storage.Store) *Store {
	return &Store{backend: backend}
}

// Append allocates a transactionId if the caller left it blank, stamps
// createdAt/updatedAt, and appends the entry (§4.1 "Append").
func (s *Store) Append(ctx context.Context, tx *Transaction) (*Transaction, error) {
	if tx.TransactionID == "" {
		tx.TransactionID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	if err := s.backend.AppendTransaction(ctx, tx); err != nil {
		return nil, err
	}
	clone := *tx
	return &clone, nil
}

func (s *Store) FindByID(ctx context.Context, transactionID string) (*Transaction, error) {
	return s.backend.FindTransactionByID(ctx, transactionID)
}

// FindByTransactionID is an alias of FindByID: the ledger's primary key IS
// the transactionId used by clients for idempotent manual-record creation (§3).
func (s *Store) FindByTransactionID(ctx context.Context, transactionID string) (*Transaction, error) {
	return s.backend.FindTransactionByID(ctx, transactionID)
}

func (s *Store) Find(ctx context.Context, filter Filter, page Pagination) ([]*Transaction, error) {
	return s.backend.FindTransactions(ctx, filter, page)
}

func (s *Store) Count(ctx context.Context, filter Filter) (int, error) {
	return s.backend.CountTransactions(ctx, filter)
}

// UpdateStatus performs the guarded compare-and-set described in §4.1:
// transitions not present in the allowed-transition table fail with
// ErrInvalidTransition, and terminal statuses never move again.
func (s *Store) UpdateStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo) (*Transaction, error) {
	return s.backend.UpdateTransactionStatus(ctx, transactionID, newStatus, providerUpdate, nil)
}

// UpdateStatusWithMetadata is UpdateStatus plus a metadata patch merged into
// the existing entry (e.g. adminApprove stamping approvedByAdminId, C7
// stamping statusCheckedAt) — the two are split so most callers can ignore
// metadata entirely.
func (s *Store) UpdateStatusWithMetadata(ctx context.Context, transactionID string, newStatus TransactionStatus, metadataPatch map[string]string) (*Transaction, error) {
	return s.backend.UpdateTransactionStatus(ctx, transactionID, newStatus, nil, metadataPatch)
}

func (s *Store) FindProcessingWithdrawals(ctx context.Context, olderThan time.Duration) ([]*Transaction, error) {
	return s.backend.FindProcessingWithdrawals(ctx, olderThan)
}

func (s *Store) Aggregate(ctx context.Context, filter Filter) (totalAmount int64, count int, err error) {
	return s.backend.AggregateTransactionSums(ctx, filter)
}

// NewCurrencyCorrectionEntry builds the corrective ledger entry described in
// §9's cross-currency-bug design note: a zero-fee adjustment tagged with
// metadata.isCurrencyBugCorrection=true so the correction is auditable and
// never mistaken for an ordinary transaction of the same type. Constructible
// but unused in normal operation — invoked only by an operator-triggered
// repair, never by the regular transaction flow.
func NewCurrencyCorrectionEntry(userID string, txType TransactionType, amount int64, currency string, reason string) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Type:          txType,
		Amount:        amount,
		Currency:      currency,
		Status:        StatusCompleted,
		Description:   reason,
		Metadata: map[string]string{
			"isCurrencyBugCorrection": "true",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
