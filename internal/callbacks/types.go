// Package callbacks implements the dead-letter-queue persistence and retry
// backoff schedule shared by every outbound, at-least-once delivery path in
// this service (notifyqueue wraps it for the Notification collaborator).
package callbacks

import (
	"context"
	"encoding/json"
	"time"
)

// RetryConfig controls the backoff schedule for an at-least-once delivery.
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Timeout         time.Duration
}

// DefaultRetryConfig returns sensible defaults for outbound retries.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     5 * time.Minute,
		Multiplier:      2.0,
		Timeout:         10 * time.Second,
	}
}

// DLQStore persists deliveries that exhausted every retry attempt.
type DLQStore interface {
	SaveFailedWebhook(ctx context.Context, webhook FailedWebhook) error
	ListFailedWebhooks(ctx context.Context, limit int) ([]FailedWebhook, error)
	DeleteFailedWebhook(ctx context.Context, id string) error
}

// FailedWebhook is a delivery that exhausted every retry attempt.
type FailedWebhook struct {
	ID          string            `json:"id"`
	URL         string            `json:"url,omitempty"`
	Payload     json.RawMessage   `json:"payload"`
	Headers     map[string]string `json:"headers,omitempty"`
	EventType   string            `json:"eventType"`
	Attempts    int               `json:"attempts"`
	LastError   string            `json:"lastError"`
	LastAttempt time.Time         `json:"lastAttempt"`
	CreatedAt   time.Time         `json:"createdAt"`
}
