// Package flow implements the short-lived artifacts of an OAuth login
// attempt: the anti-CSRF state parameter and the PKCE verifier/challenge
// pair. Both live in the shared expiring store for ten minutes and are
// consumed at most once.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yeotaeho/oauth-core/storage"
)

const (
	// stateKeyPrefix namespaces state entries in the shared store
	stateKeyPrefix = "oauth:state:"

	// StateTTL is how long an issued state remains consumable.
	// It bounds the window between building the authorization URL and the
	// provider redirecting back to the callback.
	StateTTL = 10 * time.Minute
)

// StateService issues and single-use-validates anti-CSRF state tokens.
// A state exists in the store iff it is valid; consumption deletes it, so a
// replayed authorization response is rejected.
type StateService struct {
	store  storage.ExpiringStore
	logger *slog.Logger
}

// NewStateService creates a StateService over the given store.
func NewStateService(store storage.ExpiringStore, logger *slog.Logger) *StateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateService{store: store, logger: logger}
}

// Issue generates a random state, stores it with StateTTL, and returns it.
// Each call produces an independent state; there is no per-caller coupling.
func (s *StateService) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()

	if err := s.store.Set(ctx, stateKeyPrefix+state, "valid", StateTTL); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	s.logger.Debug("Issued login state", "state", state)
	return state, nil
}

// Consume validates and deletes state in one step. It returns false for an
// empty, unknown, expired, or already-consumed state and true exactly once
// per issued state. Infrastructure failures are returned as errors so the
// caller can distinguish them from a replay.
func (s *StateService) Consume(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}

	_, err := s.store.GetDel(ctx, stateKeyPrefix+state)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("State validation failed: unknown or expired", "state", state)
			return false, nil
		}
		return false, fmt.Errorf("failed to consume state: %w", err)
	}

	s.logger.Debug("Consumed login state", "state", state)
	return true, nil
}
