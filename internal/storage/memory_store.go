package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store backed by protected maps. It is the
// default backend for tests and local development; production deployments
// select Postgres or MongoDB via StorageConfig.Backend (§4.1, §4.2, §4.4).
type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[string]*Transaction
	intents      map[string]*PaymentIntent
	balances     map[string]*UserBalanceView
	idempotency  map[string]idempotencyRecord

	// userLocks stripes balance mutation so concurrent Adjust calls on
	// different users never block each other, while same-user calls
	// serialize (§4.2 atomicity requirement).
	userLocks sync.Map // userID -> *sync.Mutex

	stopCleanup chan struct{}
}

// NewMemoryStore constructs an empty MemoryStore. ReserveIdempotencyKey only
// overwrites an entry's slot when the same key is reserved again, so a
// background sweep is needed to bound the idempotency map's size for keys
// that are never retried — it runs every CleanupInterval until Close.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		transactions: make(map[string]*Transaction),
		intents:      make(map[string]*PaymentIntent),
		balances:     make(map[string]*UserBalanceView),
		idempotency:  make(map[string]idempotencyRecord),
		stopCleanup:  make(chan struct{}),
	}
	go s.cleanupExpiredIdempotencyKeys()
	return s
}

func (s *MemoryStore) cleanupExpiredIdempotencyKeys() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCleanup:
			return
		case <-ticker.C:
			now := time.Now().UTC()
			s.mu.Lock()
			for key, rec := range s.idempotency {
				if rec.ExpiresAt.Before(now) {
					delete(s.idempotency, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *MemoryStore) userLock(userID string) *sync.Mutex {
	actual, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// --- Ledger (C1) ---

func (s *MemoryStore) AppendTransaction(ctx context.Context, tx *Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.TransactionID]; exists {
		return ErrAlreadyExists
	}
	clone := *tx
	s.transactions[tx.TransactionID] = &clone
	return nil
}

func (s *MemoryStore) FindTransactionByID(ctx context.Context, transactionID string) (*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *tx
	return &clone, nil
}

func matchesFilter(tx *Transaction, filter TransactionFilter) bool {
	if !filter.IncludeDeleted && tx.Deleted {
		return false
	}
	if filter.UserID != "" && tx.UserID != filter.UserID {
		return false
	}
	if filter.Type != "" && tx.Type != filter.Type {
		return false
	}
	if filter.Status != "" && tx.Status != filter.Status {
		return false
	}
	for k, v := range filter.MetadataEquals {
		if tx.Metadata == nil || tx.Metadata[k] != v {
			return false
		}
	}
	return true
}

func (s *MemoryStore) FindTransactions(ctx context.Context, filter TransactionFilter, page Pagination) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Transaction, 0)
	for _, tx := range s.transactions {
		if matchesFilter(tx, filter) {
			clone := *tx
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := page.Limit
	if limit <= 0 {
		limit = 20
	}
	pageNum := page.Page
	if pageNum <= 0 {
		pageNum = 1
	}
	start := (pageNum - 1) * limit
	if start >= len(matched) {
		return []*Transaction{}, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *MemoryStore) CountTransactions(ctx context.Context, filter TransactionFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, tx := range s.transactions {
		if matchesFilter(tx, filter) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) UpdateTransactionStatus(ctx context.Context, transactionID string, newStatus TransactionStatus, providerUpdate *PaymentProviderInfo, metadataPatch map[string]string) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[transactionID]
	if !ok {
		return nil, ErrNotFound
	}
	if !CanTransition(tx.Status, newStatus) {
		return nil, ErrInvalidTransition
	}
	tx.Status = newStatus
	if providerUpdate != nil {
		tx.PaymentProvider = *providerUpdate
	}
	if len(metadataPatch) > 0 {
		if tx.Metadata == nil {
			tx.Metadata = make(map[string]string, len(metadataPatch))
		}
		for k, v := range metadataPatch {
			tx.Metadata[k] = v
		}
	}
	tx.UpdatedAt = time.Now().UTC()
	clone := *tx
	return &clone, nil
}

func (s *MemoryStore) FindProcessingWithdrawals(ctx context.Context, olderThan time.Duration) ([]*Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	out := make([]*Transaction, 0)
	for _, tx := range s.transactions {
		if tx.Type == TransactionWithdrawal && tx.Status == StatusProcessing && tx.UpdatedAt.Before(cutoff) {
			clone := *tx
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *MemoryStore) AggregateTransactionSums(ctx context.Context, filter TransactionFilter) (int64, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	count := 0
	for _, tx := range s.transactions {
		if matchesFilter(tx, filter) {
			total += tx.Amount
			count++
		}
	}
	return total, count, nil
}

// --- Balance (C2) ---

func (s *MemoryStore) getOrCreateBalanceLocked(userID string) *UserBalanceView {
	view, ok := s.balances[userID]
	if !ok {
		view = &UserBalanceView{UserID: userID, DailyWindowStart: time.Now().UTC()}
		s.balances[userID] = view
	}
	return view
}

func (s *MemoryStore) GetBalance(ctx context.Context, userID string) (*UserBalanceView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.getOrCreateBalanceLocked(userID)
	clone := *view
	return &clone, nil
}

func (s *MemoryStore) GetBalances(ctx context.Context, userIDs []string) (map[string]*UserBalanceView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*UserBalanceView, len(userIDs))
	for _, id := range userIDs {
		view := s.getOrCreateBalanceLocked(id)
		clone := *view
		out[id] = &clone
	}
	return out, nil
}

func (s *MemoryStore) Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*UserBalanceView, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.getOrCreateBalanceLocked(userID)
	newBalance := view.Balance + deltaBalance
	newUSD := view.USDBalance + deltaUSD
	newActivation := view.ActivationBalance + deltaActivation
	if newBalance < 0 || newUSD < 0 || newActivation < 0 {
		return nil, ErrInsufficientFunds
	}
	view.Balance = newBalance
	view.USDBalance = newUSD
	view.ActivationBalance = newActivation
	clone := *view
	return &clone, nil
}

func (s *MemoryStore) HasPendingBlockingTransactions(ctx context.Context, userID string, types []TransactionType) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[TransactionType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Deleted {
			continue
		}
		if len(wanted) > 0 && !wanted[tx.Type] {
			continue
		}
		if !tx.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) RecordWithdrawal(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (bool, *UserBalanceView, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.getOrCreateBalanceLocked(userID)
	now := time.Now().UTC()
	if now.Sub(view.DailyWindowStart) >= 24*time.Hour {
		view.DailyWithdrawalTotal = 0
		view.DailyWithdrawalCount = 0
		view.DailyWindowStart = now
	}

	projectedTotal := view.DailyWithdrawalTotal + amount
	projectedCount := view.DailyWithdrawalCount + 1
	within := projectedTotal <= maxDailyAmount && projectedCount <= maxDailyCount
	if within {
		view.DailyWithdrawalTotal = projectedTotal
		view.DailyWithdrawalCount = projectedCount
	}
	clone := *view
	return within, &clone, nil
}

// ReverseWithdrawal undoes the daily-limit slot RecordWithdrawal reserved for
// a withdrawal that was subsequently cancelled or rejected (§4.2: "cancelled/
// rejected withdrawals decrement on transition"). A withdrawal whose daily
// window has already rolled over since it was recorded is left alone — its
// counters were already reset to zero by the next RecordWithdrawal call, and
// decrementing a fresh window would just net it negative.
func (s *MemoryStore) ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*UserBalanceView, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	view := s.getOrCreateBalanceLocked(userID)
	if view.DailyWindowStart.After(recordedAt) {
		clone := *view
		return &clone, nil
	}

	view.DailyWithdrawalTotal -= amount
	if view.DailyWithdrawalTotal < 0 {
		view.DailyWithdrawalTotal = 0
	}
	view.DailyWithdrawalCount--
	if view.DailyWithdrawalCount < 0 {
		view.DailyWithdrawalCount = 0
	}
	clone := *view
	return &clone, nil
}

// --- Payment intents (C4) ---

func (s *MemoryStore) CreatePaymentIntent(ctx context.Context, intent *PaymentIntent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.intents[intent.SessionID]; exists {
		return ErrAlreadyExists
	}
	clone := *intent
	s.intents[intent.SessionID] = &clone
	return nil
}

func (s *MemoryStore) GetPaymentIntent(ctx context.Context, sessionID string) (*PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intent, ok := s.intents[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *intent
	return &clone, nil
}

func (s *MemoryStore) GetPaymentIntentByProviderRef(ctx context.Context, gateway, providerRef string) (*PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, intent := range s.intents {
		if intent.Gateway == gateway && intent.ProviderRef == providerRef {
			clone := *intent
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdatePaymentIntentStatus(ctx context.Context, sessionID string, status IntentStatus, paidAmount int64, paidCurrency string) (*PaymentIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	if intent.Status.IsTerminal() {
		return nil, ErrInvalidTransition
	}
	intent.Status = status
	if paidAmount > 0 {
		intent.PaidAmount = paidAmount
		intent.PaidCurrency = paidCurrency
	}
	intent.UpdatedAt = time.Now().UTC()
	clone := *intent
	return &clone, nil
}

func (s *MemoryStore) ListStalePaymentIntents(ctx context.Context, olderThan time.Duration) ([]*PaymentIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	out := make([]*PaymentIntent, 0)
	for _, intent := range s.intents {
		if !intent.Status.IsTerminal() && intent.CreatedAt.Before(cutoff) {
			clone := *intent
			out = append(out, &clone)
		}
	}
	return out, nil
}

// --- Idempotency ---

func (s *MemoryStore) ReserveIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if rec, ok := s.idempotency[key]; ok && rec.ExpiresAt.After(now) {
		return ErrAlreadyExists
	}
	s.idempotency[key] = idempotencyRecord{Key: key, ExpiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error {
	close(s.stopCleanup)
	return nil
}
