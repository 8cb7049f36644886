// Package memory provides an in-memory implementation of storage.ExpiringStore.
// It is suitable for development, testing, and single-instance deployments.
package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yeotaeho/oauth-core/storage"
)

// entry is a value with its expiry deadline.
type entry struct {
	value     string
	expiresAt time.Time
}

// setEntry is a string set with a shared expiry deadline.
type setEntry struct {
	members   map[string]struct{}
	expiresAt time.Time
}

// Store is an in-memory implementation of storage.ExpiringStore.
// All operations are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	values map[string]entry
	sets   map[string]*setEntry

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// Compile-time interface check
var _ storage.ExpiringStore = (*Store)(nil)

// New creates a new in-memory store with the default cleanup interval (1 minute).
func New() *Store {
	return NewWithInterval(time.Minute)
}

// NewWithInterval creates a new in-memory store that sweeps expired entries
// every interval. An interval <= 0 disables the background sweep; expired
// entries are then only dropped lazily on access.
func NewWithInterval(interval time.Duration) *Store {
	s := &Store{
		values:          make(map[string]entry),
		sets:            make(map[string]*setEntry),
		cleanupInterval: interval,
		stopCleanup:     make(chan struct{}),
		logger:          slog.Default(),
	}

	if interval > 0 {
		go s.cleanupLoop()
	}

	return s
}

// SetLogger sets a custom logger for the store.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Stop terminates the background cleanup goroutine. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

// Get returns the value for key, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.RLock()
	e, ok := s.values[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return "", storage.ErrNotFound
	}
	return e.value, nil
}

// GetDel atomically returns and deletes the value for key.
func (s *Store) GetDel(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.values[key]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.values, key)
		return "", storage.ErrNotFound
	}

	delete(s.values, key)
	return e.value, nil
}

// Set writes key=value with the given TTL.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.values[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.values, key)
	delete(s.sets, key)
	s.mu.Unlock()
	return nil
}

// SetAdd adds member to the set at key, creating the set if needed.
// A freshly created set starts without a deadline; callers follow up with
// Expire to bound it, matching the write pattern of the token services.
func (s *Store) SetAdd(ctx context.Context, key, member string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	se, ok := s.sets[key]
	if !ok || (!se.expiresAt.IsZero() && time.Now().After(se.expiresAt)) {
		se = &setEntry{members: make(map[string]struct{})}
		s.sets[key] = se
	}
	se.members[member] = struct{}{}
	return nil
}

// SetMembers returns all members of the set at key.
func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	se, ok := s.sets[key]
	if !ok || (!se.expiresAt.IsZero() && time.Now().After(se.expiresAt)) {
		return nil, nil
	}

	members := make([]string, 0, len(se.members))
	for m := range se.members {
		members = append(members, m)
	}
	return members, nil
}

// SetRemove removes member from the set at key.
func (s *Store) SetRemove(ctx context.Context, key, member string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if se, ok := s.sets[key]; ok {
		delete(se.members, member)
		if len(se.members) == 0 {
			delete(s.sets, key)
		}
	}
	return nil
}

// Expire resets the TTL of key, whether it holds a value or a set.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	deadline := time.Now().Add(ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.values[key]; ok {
		e.expiresAt = deadline
		s.values[key] = e
	}
	if se, ok := s.sets[key]; ok {
		se.expiresAt = deadline
	}
	return nil
}

// cleanupLoop periodically removes expired entries to prevent unbounded growth.
func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup drops every expired value and set.
func (s *Store) cleanup() {
	now := time.Now()
	removed := 0

	s.mu.Lock()
	for k, e := range s.values {
		if now.After(e.expiresAt) {
			delete(s.values, k)
			removed++
		}
	}
	for k, se := range s.sets {
		if !se.expiresAt.IsZero() && now.After(se.expiresAt) {
			delete(s.sets, k)
			removed++
		}
	}
	remaining := len(s.values) + len(s.sets)
	s.mu.Unlock()

	if removed > 0 {
		s.logger.Debug("Expired entries removed",
			"removed", removed,
			"remaining", remaining)
	}
}
