// Package storage defines the expiring key-value store contract that the
// login-flow and token services persist through. Every entry carries a
// time-to-live; expiry is equivalent to deletion. Backends include an
// in-memory store for development and testing and a Valkey-backed store
// for shared deployments.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or set is absent or has expired.
// Callers use it to distinguish a miss from an infrastructure failure.
var ErrNotFound = errors.New("storage: key not found")

// ExpiringStore is the shared expiring key-value contract.
// All methods accept context.Context; callers are expected to bound every
// call with a timeout so no store interaction can hang indefinitely.
type ExpiringStore interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// GetDel atomically returns and deletes the value for key, or ErrNotFound.
	// This is the primitive behind single-use tokens: only one concurrent
	// caller can observe a given value.
	GetDel(ctx context.Context, key string) (string, error)

	// Set writes key=value with the given TTL, replacing any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// SetAdd adds member to the set stored at key, creating it if needed.
	SetAdd(ctx context.Context, key, member string) error

	// SetMembers returns all members of the set at key. An absent or
	// expired set yields an empty slice, not an error.
	SetMembers(ctx context.Context, key string) ([]string, error)

	// SetRemove removes member from the set at key. Removing an absent
	// member is not an error.
	SetRemove(ctx context.Context, key, member string) error

	// Expire resets the TTL of key (plain value or set). Expiring an
	// absent key is not an error.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
