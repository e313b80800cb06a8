// Package cache stores evaluation results and rendered artifacts.
//
// # Backends
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance, for servers and CI runners
//   - [NullCache]: stores nothing (--no-cache)
//
// # Keys
//
// A [Keyer] derives keys from the hash of a graph's canonical interchange
// encoding, so two files describing the same graph share entries. Input
// vectors are hashed bit for bit; NaN inputs and signed zeros get their own
// entries.
//
// # Errors
//
// A miss is not an error: Get reports it through its bool result. Backend
// failures that may go away on their own are wrapped with [Retryable] and
// retried by [RetryWithBackoff].
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key-value store with optional expiry.
type Cache interface {
	// Get returns the value stored under key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Default time-to-live per entry kind. Entries are content-addressed, so
// they never go stale; the TTLs only bound disk and memory use.
const (
	TTLEval   = 7 * 24 * time.Hour
	TTLRender = 30 * 24 * time.Hour
)
