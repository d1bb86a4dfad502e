package notifyqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
)

type fakeNotificationClient struct {
	mu       sync.Mutex
	failN    int
	sent     []collaborators.InternalEvent
	attempts int
}

func (f *fakeNotificationClient) SendInternal(ctx context.Context, evt collaborators.InternalEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failN {
		return errors.New("notification service unavailable")
	}
	f.sent = append(f.sent, evt)
	return nil
}

func (f *fakeNotificationClient) Broadcast(ctx context.Context, evt collaborators.BroadcastEvent) error {
	return nil
}

type memDLQ struct {
	mu    sync.Mutex
	saved []FailedNotification
}

func (m *memDLQ) Save(ctx context.Context, n FailedNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, n)
	return nil
}
func (m *memDLQ) List(ctx context.Context, limit int) ([]FailedNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved, nil
}
func (m *memDLQ) Delete(ctx context.Context, id string) error { return nil }

func fastRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond, Multiplier: 2}
}

func TestSendInternalDeliversOnFirstSuccess(t *testing.T) {
	inner := &fakeNotificationClient{}
	dlq := &memDLQ{}
	client := New(inner, fastRetryConfig(), dlq, zerolog.Nop())

	if err := client.SendInternal(context.Background(), collaborators.InternalEvent{Type: "commission_received", UserID: "user-1"}); err != nil {
		t.Fatalf("send internal: %v", err)
	}
	client.Wait()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.sent) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(inner.sent))
	}
	if len(dlq.saved) != 0 {
		t.Errorf("expected nothing parked in the DLQ, got %d", len(dlq.saved))
	}
}

func TestSendInternalRetriesThenSucceeds(t *testing.T) {
	inner := &fakeNotificationClient{failN: 2}
	dlq := &memDLQ{}
	client := New(inner, fastRetryConfig(), dlq, zerolog.Nop())

	if err := client.SendInternal(context.Background(), collaborators.InternalEvent{Type: "withdrawal_otp", UserID: "user-1"}); err != nil {
		t.Fatalf("send internal: %v", err)
	}
	client.Wait()

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if len(inner.sent) != 1 {
		t.Fatalf("expected eventual delivery after retries, got %d sent", len(inner.sent))
	}
	if inner.attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.attempts)
	}
}

func TestSendInternalParksInDLQAfterExhaustingRetries(t *testing.T) {
	inner := &fakeNotificationClient{failN: 100}
	dlq := &memDLQ{}
	client := New(inner, fastRetryConfig(), dlq, zerolog.Nop())

	if err := client.SendInternal(context.Background(), collaborators.InternalEvent{Type: "activation_sponsored", UserID: "user-1"}); err != nil {
		t.Fatalf("send internal: %v", err)
	}
	client.Wait()

	dlq.mu.Lock()
	defer dlq.mu.Unlock()
	if len(dlq.saved) != 1 {
		t.Fatalf("expected 1 notification parked in the DLQ, got %d", len(dlq.saved))
	}
	if dlq.saved[0].Kind != "internal" {
		t.Errorf("expected kind internal, got %s", dlq.saved[0].Kind)
	}
	if dlq.saved[0].Attempts != 3 {
		t.Errorf("expected 3 recorded attempts, got %d", dlq.saved[0].Attempts)
	}
}

func TestDefaultRetryConfigAppliedWhenZeroValue(t *testing.T) {
	client := New(&fakeNotificationClient{}, RetryConfig{}, nil, zerolog.Nop())
	if client.cfg.MaxAttempts != DefaultRetryConfig().MaxAttempts {
		t.Errorf("expected default retry config to be applied for a zero-value input")
	}
}
