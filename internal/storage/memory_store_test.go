package storage

import (
	"context"
	"testing"
	"time"
)

func newTestTransaction(id, userID string, status TransactionStatus) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		TransactionID: id,
		UserID:        userID,
		Type:          TransactionWithdrawal,
		Amount:        1000,
		Currency:      "XAF",
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestAppendAndFindTransaction(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tx := newTestTransaction("tx-1", "user-1", StatusPending)

	if err := store.AppendTransaction(ctx, tx); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendTransaction(ctx, tx); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.FindTransactionByID(ctx, "tx-1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserID != "user-1" {
		t.Errorf("expected user-1, got %s", got.UserID)
	}

	if _, err := store.FindTransactionByID(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTransactionStatusGuardsTransitions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	tx := newTestTransaction("tx-2", "user-1", StatusPending)
	_ = store.AppendTransaction(ctx, tx)

	if _, err := store.UpdateTransactionStatus(ctx, "tx-2", StatusCompleted, nil, nil); err != ErrInvalidTransition {
		t.Fatalf("expected ErrInvalidTransition pending->completed, got %v", err)
	}

	updated, err := store.UpdateTransactionStatus(ctx, "tx-2", StatusProcessing, nil, nil)
	if err != nil {
		t.Fatalf("pending->processing: %v", err)
	}
	if updated.Status != StatusProcessing {
		t.Errorf("expected processing, got %s", updated.Status)
	}

	updated, err = store.UpdateTransactionStatus(ctx, "tx-2", StatusCompleted, nil, nil)
	if err != nil {
		t.Fatalf("processing->completed: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", updated.Status)
	}

	if _, err := store.UpdateTransactionStatus(ctx, "tx-2", StatusFailed, nil, nil); err != ErrInvalidTransition {
		t.Fatalf("expected terminal state to reject further transitions, got %v", err)
	}
}

func TestFindTransactionsPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		tx := newTestTransaction(string(rune('a'+i)), "user-1", StatusPending)
		tx.CreatedAt = tx.CreatedAt.Add(time.Duration(i) * time.Minute)
		_ = store.AppendTransaction(ctx, tx)
	}

	page1, err := store.FindTransactions(ctx, TransactionFilter{UserID: "user-1"}, Pagination{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 results, got %d", len(page1))
	}

	count, err := store.CountTransactions(ctx, TransactionFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("expected count 5, got %d", count)
	}
}

func TestAdjustRejectsNegativeBalance(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	view, err := store.Adjust(ctx, "user-1", 1000, 0, 0)
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if view.Balance != 1000 {
		t.Errorf("expected balance 1000, got %d", view.Balance)
	}

	if _, err := store.Adjust(ctx, "user-1", -2000, 0, 0); err != ErrInsufficientFunds {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	view, err = store.Adjust(ctx, "user-1", -1000, 0, 0)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if view.Balance != 0 {
		t.Errorf("expected balance 0, got %d", view.Balance)
	}
}

func TestAdjustConcurrentSameUser(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, _ = store.Adjust(ctx, "user-1", 100000, 0, 0)

	const n = 100
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := store.Adjust(ctx, "user-1", -100, 0, 0)
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Errorf("unexpected adjust error: %v", err)
		}
	}

	view, _ := store.GetBalance(ctx, "user-1")
	if view.Balance != 100000-n*100 {
		t.Errorf("expected balance %d, got %d", 100000-n*100, view.Balance)
	}
}

func TestHasPendingBlockingTransactions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	has, err := store.HasPendingBlockingTransactions(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if has {
		t.Error("expected no pending transactions")
	}

	tx := newTestTransaction("tx-3", "user-1", StatusPending)
	_ = store.AppendTransaction(ctx, tx)

	has, err = store.HasPendingBlockingTransactions(ctx, "user-1", nil)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !has {
		t.Error("expected a pending transaction to block")
	}
}

func TestRecordWithdrawalEnforcesDailyLimits(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	within, view, err := store.RecordWithdrawal(ctx, "user-1", 5000, 10000, 3)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !within {
		t.Fatal("expected first withdrawal within limits")
	}
	if view.DailyWithdrawalCount != 1 {
		t.Errorf("expected count 1, got %d", view.DailyWithdrawalCount)
	}

	within, _, err = store.RecordWithdrawal(ctx, "user-1", 6000, 10000, 3)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if within {
		t.Error("expected second withdrawal to breach daily amount limit")
	}
}

func TestPaymentIntentLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	intent := &PaymentIntent{
		SessionID:         "sess-1",
		UserID:            "user-1",
		PaymentType:       "subscription",
		RequestedAmount:   5000,
		RequestedCurrency: "XAF",
		Gateway:           "cinetpay",
		Status:            IntentPendingProvider,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.CreatePaymentIntent(ctx, intent); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreatePaymentIntent(ctx, intent); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	got, err := store.GetPaymentIntent(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != IntentPendingProvider {
		t.Errorf("expected pending_provider, got %s", got.Status)
	}

	updated, err := store.UpdatePaymentIntentStatus(ctx, "sess-1", IntentSucceeded, 5000, "XAF")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != IntentSucceeded || updated.PaidAmount != 5000 {
		t.Errorf("unexpected updated intent: %+v", updated)
	}

	if _, err := store.UpdatePaymentIntentStatus(ctx, "sess-1", IntentFailed, 0, ""); err != ErrInvalidTransition {
		t.Fatalf("expected terminal intent to reject further updates, got %v", err)
	}
}

func TestReserveIdempotencyKey(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.ReserveIdempotencyKey(ctx, "key-1", time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.ReserveIdempotencyKey(ctx, "key-1", time.Minute); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}
