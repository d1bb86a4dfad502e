package storage

import (
	"context"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/metrics"
)

// instrumentedStore decorates a Store with timing instrumentation on the
// operations that dominate request latency (ledger append/read and balance
// adjustment), so the "storage backend latency" panel reports real numbers
// no matter which of the four backends is configured. Every other method
// passes straight through.
type instrumentedStore struct {
	Store
	backend string
	metrics *metrics.Metrics
}

// WithMetrics wraps a Store so its hottest operations report duration via m.
// Passing a nil m is safe — the wrapped calls become no-ops per
// metrics.MeasureDBQuery's own nil check.
func WithMetrics(store Store, backend string, m *metrics.Metrics) Store {
	return &instrumentedStore{Store: store, backend: backend, metrics: m}
}

func (s *instrumentedStore) AppendTransaction(ctx context.Context, tx *Transaction) error {
	defer metrics.MeasureDBQuery(s.metrics, "append_transaction", s.backend)()
	return s.Store.AppendTransaction(ctx, tx)
}

func (s *instrumentedStore) FindTransactions(ctx context.Context, filter TransactionFilter, page Pagination) ([]*Transaction, error) {
	start := time.Now()
	result, err := s.Store.FindTransactions(ctx, filter, page)
	metrics.RecordDBQuery(s.metrics, "find_transactions", s.backend, time.Since(start))
	return result, err
}

func (s *instrumentedStore) UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo, metadataPatch map[string]string) (*Transaction, error) {
	defer metrics.MeasureDBQuery(s.metrics, "update_transaction_status", s.backend)()
	return s.Store.UpdateTransactionStatus(ctx, transactionID, newStatus, providerUpdate, metadataPatch)
}

func (s *instrumentedStore) Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*UserBalanceView, error) {
	defer metrics.MeasureDBQuery(s.metrics, "adjust_balance", s.backend)()
	return s.Store.Adjust(ctx, userID, deltaBalance, deltaUSD, deltaActivation)
}

func (s *instrumentedStore) RecordWithdrawal(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (bool, *UserBalanceView, error) {
	defer metrics.MeasureDBQuery(s.metrics, "record_withdrawal", s.backend)()
	return s.Store.RecordWithdrawal(ctx, userID, amount, maxDailyAmount, maxDailyCount)
}

func (s *instrumentedStore) ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*UserBalanceView, error) {
	defer metrics.MeasureDBQuery(s.metrics, "reverse_withdrawal", s.backend)()
	return s.Store.ReverseWithdrawal(ctx, userID, amount, recordedAt)
}
