// Package kv provides the ephemeral key-value contract used for alert
// cooldown bookkeeping and recent-event rings, backed by Redis in
// production and an in-process map for tests and single-node deployments.
package kv

import (
	"context"
	"time"
)

// KV is the ephemeral store contract. Keys written with a TTL expire on
// their own; the ring operations back a capped recent-events list.
type KV interface {
	// Get returns the value for key, and false if it doesn't exist or has expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set writes key with an optional TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes key if present.
	Delete(ctx context.Context, key string) error

	// RingPush prepends value to the list at key and trims it to maxLen.
	RingPush(ctx context.Context, key, value string, maxLen int64) error
	// RingRange returns up to count entries from the list at key, newest first.
	RingRange(ctx context.Context, key string, count int64) ([]string, error)

	Close() error
}
