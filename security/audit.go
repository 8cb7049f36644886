package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Auditor handles security event logging with PII protection. Email
// addresses and tokens are hashed before they reach the log stream.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor.
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{logger: logger, enabled: enabled}
}

// Event represents a security audit event.
type Event struct {
	Type      string
	UserID    int64
	Provider  string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event.
func (a *Auditor) LogEvent(event Event) {
	if !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"user_id", event.UserID,
		"provider", event.Provider,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogTokenIssued logs issuance of an access/refresh token pair.
func (a *Auditor) LogTokenIssued(userID int64, provider, email string) {
	a.LogEvent(Event{
		Type:     EventTokenIssued,
		UserID:   userID,
		Provider: provider,
		Details: map[string]any{
			"email_hash": hashForLogging(email),
		},
	})
}

// LogTokenRefreshed logs a successful refresh with rotation.
func (a *Auditor) LogTokenRefreshed(userID int64, provider string) {
	a.LogEvent(Event{
		Type:     EventTokenRefreshed,
		UserID:   userID,
		Provider: provider,
		Details:  map[string]any{"rotated": true},
	})
}

// LogTokenRevoked logs revocation of a single refresh token.
func (a *Auditor) LogTokenRevoked(userID int64) {
	a.LogEvent(Event{Type: EventTokenRevoked, UserID: userID})
}

// LogAuthFailure logs a denied refresh or login attempt.
func (a *Auditor) LogAuthFailure(userID int64, reason string) {
	a.LogEvent(Event{
		Type:    EventAuthFailure,
		UserID:  userID,
		Details: map[string]any{"reason": reason},
	})
}

// LogLockout logs a user crossing the lockout threshold.
func (a *Auditor) LogLockout(userID int64, failureCount int) {
	a.LogEvent(Event{
		Type:    EventLockout,
		UserID:  userID,
		Details: map[string]any{"failure_count": failureCount},
	})
}

// LogThreatResponse logs a mass token invalidation triggered by a threat.
func (a *Auditor) LogThreatResponse(userID int64, reason string) {
	a.LogEvent(Event{
		Type:    EventAllTokensRevoked,
		UserID:  userID,
		Details: map[string]any{"reason": reason},
	})
}

// LogStateRejected logs a failed anti-CSRF state validation.
func (a *Auditor) LogStateRejected(provider string) {
	a.LogEvent(Event{Type: EventStateRejected, Provider: provider})
}

// LogRateLimitExceeded logs a rate limit violation.
func (a *Auditor) LogRateLimitExceeded(identifier string) {
	a.LogEvent(Event{
		Type:    EventRateLimitExceeded,
		Details: map[string]any{"identifier_hash": hashForLogging(identifier)},
	})
}

// hashForLogging creates a truncated SHA-256 hash of sensitive data so log
// lines can be correlated without exposing the value itself.
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
