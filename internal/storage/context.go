package storage

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds PostgresStore's transaction-history reads
	// (FindTransactions/CountTransactions) so a slow query can't hold an
	// httpserver request open past its own deadline.
	DefaultQueryTimeout = 5 * time.Second
)

// withQueryTimeout wraps the context with DefaultQueryTimeout if the caller
// hasn't already set a tighter deadline (e.g. requestTimeout/paymentTimeout
// from httpserver's middleware chain).
func withQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	// Check if context already has a deadline
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		// Context already has timeout, don't override it
		return ctx, func() {}
	}
	// Add default query timeout
	return context.WithTimeout(ctx, DefaultQueryTimeout)
}
