package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore implements Store using a single JSON file, periodically flushed.
//
// Not safe for multi-instance deployments: use PostgresStore or MongoDBStore
// in production. FileStore exists for single-node local development and
// offline demos (§4.1/§4.2/§4.4 backend selection).
type FileStore struct {
	filePath string
	mu       sync.RWMutex
	mem      *MemoryStore
	dirty    bool

	flushTicker *time.Ticker
	stopFlush   chan struct{}
	flushDone   chan struct{}
}

type fileData struct {
	Transactions map[string]*Transaction    `json:"transactions"`
	Intents      map[string]*PaymentIntent  `json:"payment_intents"`
	Balances     map[string]*UserBalanceView `json:"user_balances"`
}

// NewFileStore loads filePath if present and starts a background flush loop.
func NewFileStore(filePath string) (*FileStore, error) {
	if env := os.Getenv("ENVIRONMENT"); env == "production" || env == "prod" {
		fmt.Fprintln(os.Stderr, "WARNING: FileStore is not safe for production; use postgres or mongodb backend")
	}

	store := &FileStore{
		filePath:    filePath,
		mem:         NewMemoryStore(),
		flushTicker: time.NewTicker(5 * time.Second),
		stopFlush:   make(chan struct{}),
		flushDone:   make(chan struct{}),
	}

	if err := store.load(); err != nil {
		return nil, err
	}
	go store.flushLoop()
	return store, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read storage file: %w", err)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return fmt.Errorf("parse storage file: %w", err)
	}

	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()
	if fd.Transactions != nil {
		s.mem.transactions = fd.Transactions
	}
	if fd.Intents != nil {
		s.mem.intents = fd.Intents
	}
	if fd.Balances != nil {
		s.mem.balances = fd.Balances
	}
	return nil
}

func (s *FileStore) flushLoop() {
	defer close(s.flushDone)
	for {
		select {
		case <-s.flushTicker.C:
			if err := s.flush(); err != nil {
				fmt.Fprintf(os.Stderr, "file store flush error: %v\n", err)
			}
		case <-s.stopFlush:
			_ = s.flush()
			return
		}
	}
}

func (s *FileStore) flush() error {
	s.mu.Lock()
	dirty := s.dirty
	s.dirty = false
	s.mu.Unlock()
	if !dirty {
		return nil
	}

	s.mem.mu.RLock()
	fd := fileData{
		Transactions: s.mem.transactions,
		Intents:      s.mem.intents,
		Balances:     s.mem.balances,
	}
	s.mem.mu.RUnlock()

	data, err := json.MarshalIndent(fd, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.filePath)
	tmp, err := os.CreateTemp(dir, "storage-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.filePath)
}

func (s *FileStore) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

func (s *FileStore) AppendTransaction(ctx context.Context, tx *Transaction) error {
	err := s.mem.AppendTransaction(ctx, tx)
	if err == nil {
		s.markDirty()
	}
	return err
}

func (s *FileStore) FindTransactionByID(ctx context.Context, transactionID string) (*Transaction, error) {
	return s.mem.FindTransactionByID(ctx, transactionID)
}

func (s *FileStore) FindTransactions(ctx context.Context, filter TransactionFilter, page Pagination) ([]*Transaction, error) {
	return s.mem.FindTransactions(ctx, filter, page)
}

func (s *FileStore) CountTransactions(ctx context.Context, filter TransactionFilter) (int, error) {
	return s.mem.CountTransactions(ctx, filter)
}

func (s *FileStore) UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo, metadataPatch map[string]string) (*Transaction, error) {
	tx, err := s.mem.UpdateTransactionStatus(ctx, transactionID, newStatus, providerUpdate, metadataPatch)
	if err == nil {
		s.markDirty()
	}
	return tx, err
}

func (s *FileStore) FindProcessingWithdrawals(ctx context.Context, olderThan time.Duration) ([]*Transaction, error) {
	return s.mem.FindProcessingWithdrawals(ctx, olderThan)
}

func (s *FileStore) AggregateTransactionSums(ctx context.Context, filter TransactionFilter) (int64, int, error) {
	return s.mem.AggregateTransactionSums(ctx, filter)
}

func (s *FileStore) GetBalance(ctx context.Context, userID string) (*UserBalanceView, error) {
	return s.mem.GetBalance(ctx, userID)
}

func (s *FileStore) GetBalances(ctx context.Context, userIDs []string) (map[string]*UserBalanceView, error) {
	return s.mem.GetBalances(ctx, userIDs)
}

func (s *FileStore) Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*UserBalanceView, error) {
	view, err := s.mem.Adjust(ctx, userID, deltaBalance, deltaUSD, deltaActivation)
	if err == nil {
		s.markDirty()
	}
	return view, err
}

func (s *FileStore) HasPendingBlockingTransactions(ctx context.Context, userID string, types []TransactionType) (bool, error) {
	return s.mem.HasPendingBlockingTransactions(ctx, userID, types)
}

func (s *FileStore) RecordWithdrawal(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (bool, *UserBalanceView, error) {
	within, view, err := s.mem.RecordWithdrawal(ctx, userID, amount, maxDailyAmount, maxDailyCount)
	if err == nil {
		s.markDirty()
	}
	return within, view, err
}

func (s *FileStore) ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*UserBalanceView, error) {
	view, err := s.mem.ReverseWithdrawal(ctx, userID, amount, recordedAt)
	if err == nil {
		s.markDirty()
	}
	return view, err
}

func (s *FileStore) CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error {
	err := s.mem.CreatePaymentIntent(ctx, intent)
	if err == nil {
		s.markDirty()
	}
	return err
}

func (s *FileStore) GetPaymentIntent(ctx context.Context, sessionID string) (*PaymentIntent, error) {
	return s.mem.GetPaymentIntent(ctx, sessionID)
}

func (s *FileStore) GetPaymentIntentByProviderRef(ctx context.Context, gateway, providerRef string) (*PaymentIntent, error) {
	return s.mem.GetPaymentIntentByProviderRef(ctx, gateway, providerRef)
}

func (s *FileStore) UpdatePaymentIntentStatus(ctx context.Context, sessionID string, status IntentStatus, paidAmount int64, paidCurrency string) (*PaymentIntent, error) {
	intent, err := s.mem.UpdatePaymentIntentStatus(ctx, sessionID, status, paidAmount, paidCurrency)
	if err == nil {
		s.markDirty()
	}
	return intent, err
}

func (s *FileStore) ListStalePaymentIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error) {
	return s.mem.ListStalePaymentIntents(ctx, olderThan)
}

func (s *FileStore) ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error {
	return s.mem.ReserveIdempotencyKey(ctx, key, ttl)
}

func (s *FileStore) Close(ctx context.Context) error {
	close(s.stopFlush)
	<-s.flushDone
	s.flushTicker.Stop()
	return nil
}
