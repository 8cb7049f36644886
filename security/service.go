// Package security tracks failed refresh attempts per user, detects
// suspicious bursts, enforces temporary lockout, and triggers mass refresh
// token invalidation when a threat is detected. It also provides audit
// logging and per-identifier rate limiting for the HTTP layer.
package security

import (
	"context"
	"log/slog"
	"time"
)

// Defaults for the lockout state machine.
const (
	// DefaultMaxFailedAttempts locks the account and invalidates all
	// refresh tokens once reached.
	DefaultMaxFailedAttempts = 5

	// DefaultLockoutWindow is how long a lock holds after the last failure.
	DefaultLockoutWindow = 15 * time.Minute

	// DefaultSuspiciousThreshold triggers proactive invalidation before
	// the hard lockout threshold.
	DefaultSuspiciousThreshold = 3

	// DefaultSuspiciousWindow is the burst window for suspicion detection.
	DefaultSuspiciousWindow = 5 * time.Minute
)

// TokenRevoker is the slice of the refresh token service the security gate
// needs: liveness checks and mass invalidation.
type TokenRevoker interface {
	IsValid(ctx context.Context, refreshToken string) bool
	InvalidateAll(ctx context.Context, userID int64) error
}

// Config holds security service configuration. Zero values take the
// defaults above.
type Config struct {
	// MaxFailedAttempts is the hard lockout threshold
	MaxFailedAttempts int

	// LockoutWindow is how long the lock holds after the last failure
	LockoutWindow time.Duration

	// SuspiciousThreshold is the early-warning failure count
	SuspiciousThreshold int

	// SuspiciousWindow is the burst window for the early warning
	SuspiciousWindow time.Duration

	// Tracker is the per-user failure counter (default: in-process)
	Tracker AttemptTracker

	// Auditor records security events (default: disabled)
	Auditor *Auditor

	// OnLockout is invoked once each time a user crosses the lockout
	// threshold, after mass invalidation. Used for metrics.
	OnLockout func(ctx context.Context, userID int64)

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Service is the per-user threat state machine: CLEAN on success, WARNED
// while failures accumulate, LOCKED once the threshold is reached within
// the window. Locks clear lazily when the window elapses.
type Service struct {
	revoker             TokenRevoker
	tracker             AttemptTracker
	auditor             *Auditor
	maxFailedAttempts   int
	lockoutWindow       time.Duration
	suspiciousThreshold int
	suspiciousWindow    time.Duration
	onLockout           func(ctx context.Context, userID int64)
	logger              *slog.Logger
}

// NewService creates a security Service that revokes through revoker.
func NewService(revoker TokenRevoker, cfg Config) *Service {
	if cfg.MaxFailedAttempts <= 0 {
		cfg.MaxFailedAttempts = DefaultMaxFailedAttempts
	}
	if cfg.LockoutWindow <= 0 {
		cfg.LockoutWindow = DefaultLockoutWindow
	}
	if cfg.SuspiciousThreshold <= 0 {
		cfg.SuspiciousThreshold = DefaultSuspiciousThreshold
	}
	if cfg.SuspiciousWindow <= 0 {
		cfg.SuspiciousWindow = DefaultSuspiciousWindow
	}
	if cfg.Tracker == nil {
		cfg.Tracker = NewMemoryTracker()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auditor == nil {
		cfg.Auditor = NewAuditor(cfg.Logger, false)
	}

	return &Service{
		revoker:             revoker,
		tracker:             cfg.Tracker,
		auditor:             cfg.Auditor,
		maxFailedAttempts:   cfg.MaxFailedAttempts,
		lockoutWindow:       cfg.LockoutWindow,
		suspiciousThreshold: cfg.SuspiciousThreshold,
		suspiciousWindow:    cfg.SuspiciousWindow,
		onLockout:           cfg.OnLockout,
		logger:              cfg.Logger,
	}
}

// RecordFailure notes a failed attempt for the user. Crossing the lockout
// threshold invalidates every refresh token the user has; the lock itself
// is represented by the threshold-many failures inside the lockout window
// and clears lazily once the window elapses.
func (s *Service) RecordFailure(ctx context.Context, userID int64) {
	if userID == 0 {
		return
	}

	a := s.tracker.Record(userID)
	s.logger.Warn("Recorded failed attempt", "user_id", userID, "count", a.Count)

	if a.Count == s.maxFailedAttempts {
		s.logger.Error("Failed attempt threshold reached, invalidating all tokens",
			"user_id", userID)
		s.auditor.LogLockout(userID, a.Count)
		if err := s.revoker.InvalidateAll(ctx, userID); err != nil {
			s.logger.Error("Failed to invalidate tokens on lockout",
				"user_id", userID,
				"error", err)
		}
		if s.onLockout != nil {
			s.onLockout(ctx, userID)
		}
	}
}

// RecordSuccess resets the user's failure state.
func (s *Service) RecordSuccess(userID int64) {
	if userID == 0 {
		return
	}
	s.tracker.Clear(userID)
}

// IsLocked reports whether the user is locked out: threshold-many failures
// with the most recent one inside the lockout window. Past the window the
// record is cleared and the lock lifts.
func (s *Service) IsLocked(userID int64) bool {
	if userID == 0 {
		return false
	}

	a, ok := s.tracker.Get(userID)
	if !ok || a.Count < s.maxFailedAttempts {
		return false
	}

	if time.Since(a.LastFailure) < s.lockoutWindow {
		return true
	}

	// Lockout window elapsed; clear lazily.
	s.tracker.Clear(userID)
	return false
}

// IsSuspicious reports an early-warning burst: suspiciousThreshold-many
// failures with the most recent inside the (tighter) suspicious window.
func (s *Service) IsSuspicious(userID int64) bool {
	if userID == 0 {
		return false
	}

	a, ok := s.tracker.Get(userID)
	if !ok {
		return false
	}

	return a.Count >= s.suspiciousThreshold && time.Since(a.LastFailure) < s.suspiciousWindow
}

// HandleThreat invalidates all of the user's refresh tokens and resets the
// failure state. Called on suspicion escalation and available to admin
// tooling for forced revocation.
func (s *Service) HandleThreat(ctx context.Context, userID int64, reason string) {
	if userID == 0 {
		return
	}

	s.logger.Error("Security threat, invalidating all tokens",
		"user_id", userID,
		"reason", reason)
	s.auditor.LogThreatResponse(userID, reason)

	if err := s.revoker.InvalidateAll(ctx, userID); err != nil {
		s.logger.Error("Failed to invalidate tokens on threat",
			"user_id", userID,
			"error", err)
	}
	s.tracker.Clear(userID)
}

// CheckThreat is the gate in front of token refresh. It returns true (deny)
// when the user is locked, when a suspicious burst escalates to full
// invalidation, or when the presented token is no longer live in the store
// (which itself counts as a failed attempt). It returns false (allow) only
// when none of these trigger.
func (s *Service) CheckThreat(ctx context.Context, refreshToken string, userID int64) bool {
	if s.IsLocked(userID) {
		s.logger.Warn("Refresh attempt on locked account", "user_id", userID)
		s.auditor.LogAuthFailure(userID, "account locked")
		return true
	}

	if s.IsSuspicious(userID) {
		s.HandleThreat(ctx, userID, "suspicious activity burst")
		return true
	}

	if !s.revoker.IsValid(ctx, refreshToken) {
		s.logger.Warn("Refresh attempt with revoked token", "user_id", userID)
		s.auditor.LogAuthFailure(userID, "revoked refresh token")
		s.RecordFailure(ctx, userID)
		return true
	}

	return false
}
