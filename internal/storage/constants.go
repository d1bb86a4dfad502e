package storage

import "time"

const (
	// CleanupInterval is how often MemoryStore's background sweep removes
	// expired idempotency-key records (see memory_store.go).
	CleanupInterval = 1 * time.Hour
)
