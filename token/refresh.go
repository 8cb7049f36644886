package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/yeotaeho/oauth-core/storage"
)

// ErrRevoked is returned by Validate when a refresh token is absent from the
// server-side store. A token that verifies as a JWT but is not tracked here
// is treated as revoked, not valid; that is what makes single-token and
// mass revocation work without an unbounded blocklist.
var ErrRevoked = errors.New("token: refresh token revoked or unknown")

const (
	// refreshTokenKeyPrefix maps an individual refresh token to its user id
	refreshTokenKeyPrefix = "refreshToken:"

	// userTokensKeyPrefix holds the set of live refresh tokens per user
	userTokensKeyPrefix = "user:tokens:"
)

// RefreshService tracks live refresh tokens in the shared expiring store.
// Each token is stored twice: token -> userID for validation, and as a
// member of the owner's live-token set for mass invalidation. The store is
// the authority on liveness; the JWT itself is the authority on identity
// and expiry, and callers must check both agree.
type RefreshService struct {
	store  storage.ExpiringStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewRefreshService creates a RefreshService. ttl should match the codec's
// refresh token lifetime so store entries die with the tokens they track.
func NewRefreshService(store storage.ExpiringStore, ttl time.Duration, logger *slog.Logger) *RefreshService {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RefreshService{store: store, ttl: ttl, logger: logger}
}

// Save registers refreshToken as live for userID: the token -> userID
// mapping gets the full refresh TTL, and the token joins the user's live
// set, whose TTL is pushed out to the same horizon. The two writes are not
// transactional; a crash between them leaves a token that Validate simply
// reports as not found.
func (s *RefreshService) Save(ctx context.Context, userID int64, refreshToken string) error {
	uid := strconv.FormatInt(userID, 10)

	if err := s.store.Set(ctx, refreshTokenKeyPrefix+refreshToken, uid, s.ttl); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	userKey := userTokensKeyPrefix + uid
	if err := s.store.SetAdd(ctx, userKey, refreshToken); err != nil {
		return fmt.Errorf("failed to track refresh token for user: %w", err)
	}
	if err := s.store.Expire(ctx, userKey, s.ttl); err != nil {
		return fmt.Errorf("failed to refresh user token set TTL: %w", err)
	}

	s.logger.Debug("Saved refresh token", "user_id", userID)
	return nil
}

// Validate returns the user id a live refresh token maps to, or ErrRevoked.
// It is a pure lookup: it neither consumes the token nor inspects its JWT
// claims.
func (s *RefreshService) Validate(ctx context.Context, refreshToken string) (int64, error) {
	val, err := s.store.Get(ctx, refreshTokenKeyPrefix+refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, ErrRevoked
		}
		return 0, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt refresh token entry: %w", err)
	}
	return userID, nil
}

// IsValid reports whether refreshToken is still live in the store.
func (s *RefreshService) IsValid(ctx context.Context, refreshToken string) bool {
	_, err := s.Validate(ctx, refreshToken)
	return err == nil
}

// Delete invalidates a single refresh token: the token -> userID mapping is
// removed and the token leaves its owner's live set. Idempotent; deleting
// an unknown or already-deleted token is not an error.
func (s *RefreshService) Delete(ctx context.Context, refreshToken string) error {
	val, err := s.store.Get(ctx, refreshTokenKeyPrefix+refreshToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up refresh token: %w", err)
	}

	if err := s.store.Delete(ctx, refreshTokenKeyPrefix+refreshToken); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	if err := s.store.SetRemove(ctx, userTokensKeyPrefix+val, refreshToken); err != nil {
		return fmt.Errorf("failed to untrack refresh token: %w", err)
	}

	s.logger.Debug("Deleted refresh token", "user_id", val)
	return nil
}

// Rotate replaces oldToken with newToken for userID. The old mapping is
// consumed with a fetch-and-delete, so concurrent rotations of the same
// token have exactly one winner; losers get ErrRevoked. Consume-then-save
// is still not atomic across a crash, but the worst case is bounded: a new
// token that never got registered reads as revoked on first use.
func (s *RefreshService) Rotate(ctx context.Context, userID int64, oldToken, newToken string) error {
	uid, err := s.store.GetDel(ctx, refreshTokenKeyPrefix+oldToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrRevoked
		}
		return fmt.Errorf("failed to consume rotated token: %w", err)
	}
	if err := s.store.SetRemove(ctx, userTokensKeyPrefix+uid, oldToken); err != nil {
		return fmt.Errorf("failed to untrack rotated token: %w", err)
	}

	if err := s.Save(ctx, userID, newToken); err != nil {
		return fmt.Errorf("failed to save rotated token: %w", err)
	}

	s.logger.Info("Rotated refresh token", "user_id", userID)
	return nil
}

// InvalidateAll revokes every live refresh token of userID: each member of
// the user's live set loses its token -> userID mapping, then the set
// itself is deleted. A stale set member whose mapping already expired is
// skipped harmlessly. Used by logout-everywhere, forced admin logout, and
// the security threat response.
func (s *RefreshService) InvalidateAll(ctx context.Context, userID int64) error {
	uid := strconv.FormatInt(userID, 10)
	userKey := userTokensKeyPrefix + uid

	tokens, err := s.store.SetMembers(ctx, userKey)
	if err != nil {
		return fmt.Errorf("failed to read user token set: %w", err)
	}

	for _, t := range tokens {
		if err := s.store.Delete(ctx, refreshTokenKeyPrefix+t); err != nil {
			return fmt.Errorf("failed to delete refresh token: %w", err)
		}
	}

	if err := s.store.Delete(ctx, userKey); err != nil {
		return fmt.Errorf("failed to delete user token set: %w", err)
	}

	if len(tokens) > 0 {
		s.logger.Info("Invalidated all refresh tokens for user",
			"user_id", userID,
			"count", len(tokens))
	}
	return nil
}
