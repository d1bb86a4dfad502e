// Package notifyqueue wraps a collaborators.NotificationClient with
// retry-with-backoff and dead-letter-queue delivery, reusing
// internal/callbacks' RetryConfig and FileDLQStore, applied here to outbound SBC notification events
// (commission_received, withdrawal_otp, activation_sponsored, settlement)
// instead of payment-success callbacks.
package notifyqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TambongStercy/SBC-MS-sub012/internal/callbacks"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
)

// RetryConfig controls the backoff schedule for a failed notification send.
type RetryConfig = callbacks.RetryConfig

func DefaultRetryConfig() RetryConfig { return callbacks.DefaultRetryConfig() }

// FailedNotification is a notification that exhausted every retry attempt
// and was parked in the DLQ for manual replay.
type FailedNotification struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"` // "internal" or "broadcast"
	Payload   json.RawMessage   `json:"payload"`
	Attempts  int               `json:"attempts"`
	LastError string            `json:"lastError"`
	CreatedAt time.Time         `json:"createdAt"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// DLQStore persists notifications that failed delivery after every retry,
// mirroring callbacks.DLQStore's shape for the notification domain.
type DLQStore interface {
	Save(ctx context.Context, n FailedNotification) error
	List(ctx context.Context, limit int) ([]FailedNotification, error)
	Delete(ctx context.Context, id string) error
}

// fileDLQAdapter lets notifyqueue reuse callbacks.FileDLQStore's on-disk
// format and atomic-write logic instead of re-implementing file persistence.
type fileDLQAdapter struct {
	inner *callbacks.FileDLQStore
}

func NewFileDLQStore(path string) (DLQStore, error) {
	inner, err := callbacks.NewFileDLQStore(path)
	if err != nil {
		return nil, err
	}
	return &fileDLQAdapter{inner: inner}, nil
}

func (f *fileDLQAdapter) Save(ctx context.Context, n FailedNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return f.inner.SaveFailedWebhook(ctx, callbacks.FailedWebhook{
		ID: n.ID, Payload: payload, EventType: n.Kind,
		Attempts: n.Attempts, LastError: n.LastError, LastAttempt: time.Now().UTC(), CreatedAt: n.CreatedAt,
	})
}

func (f *fileDLQAdapter) List(ctx context.Context, limit int) ([]FailedNotification, error) {
	raw, err := f.inner.ListFailedWebhooks(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]FailedNotification, 0, len(raw))
	for _, w := range raw {
		var n FailedNotification
		if err := json.Unmarshal(w.Payload, &n); err != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fileDLQAdapter) Delete(ctx context.Context, id string) error {
	return f.inner.DeleteFailedWebhook(ctx, id)
}

// Client decorates a collaborators.NotificationClient with async
// exponential-backoff retry and DLQ fallback, so a transient outage of the
// Notification service never blocks the caller (commission crediting,
// withdrawal OTP issuance) on a synchronous HTTP round trip.
type Client struct {
	inner  collaborators.NotificationClient
	cfg    RetryConfig
	dlq    DLQStore
	logger zerolog.Logger
	wg     sync.WaitGroup
}

func New(inner collaborators.NotificationClient, cfg RetryConfig, dlq DLQStore, logger zerolog.Logger) *Client {
	if cfg.MaxAttempts == 0 {
		cfg = DefaultRetryConfig()
	}
	return &Client{inner: inner, cfg: cfg, dlq: dlq, logger: logger}
}

// SendInternal enqueues an internal event for async delivery with retry.
func (c *Client) SendInternal(ctx context.Context, evt collaborators.InternalEvent) error {
	c.deliverAsync("internal", evt.Type, func() error { return c.inner.SendInternal(context.Background(), evt) }, evt)
	return nil
}

// Broadcast enqueues a broadcast event for async delivery with retry.
func (c *Client) Broadcast(ctx context.Context, evt collaborators.BroadcastEvent) error {
	c.deliverAsync("broadcast", evt.Type, func() error { return c.inner.Broadcast(context.Background(), evt) }, evt)
	return nil
}

func (c *Client) deliverAsync(kind, eventType string, send func() error, payload interface{}) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		interval := c.cfg.InitialInterval
		var lastErr error
		for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
			lastErr = send()
			if lastErr == nil {
				return
			}
			c.logger.Warn().Err(lastErr).Str("kind", kind).Str("eventType", eventType).Int("attempt", attempt).Msg("notification delivery failed, retrying")
			if attempt == c.cfg.MaxAttempts {
				break
			}
			time.Sleep(interval)
			interval = time.Duration(float64(interval) * c.cfg.Multiplier)
			if interval > c.cfg.MaxInterval {
				interval = c.cfg.MaxInterval
			}
		}

		if c.dlq == nil {
			return
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = c.dlq.Save(context.Background(), FailedNotification{
			ID: uuid.NewString(), Kind: kind, Payload: body,
			Attempts: c.cfg.MaxAttempts, LastError: fmt.Sprintf("%v", lastErr), CreatedAt: time.Now().UTC(),
			Tags: map[string]string{"eventType": eventType},
		})
	}()
}

// Wait blocks until every in-flight async delivery has finished or hit the DLQ.
func (c *Client) Wait() { c.wg.Wait() }
