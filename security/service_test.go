package security

import (
	"context"
	"testing"
	"time"
)

// fakeRevoker is a scripted TokenRevoker.
type fakeRevoker struct {
	valid       map[string]bool
	invalidated []int64
}

func (f *fakeRevoker) IsValid(_ context.Context, token string) bool {
	return f.valid[token]
}

func (f *fakeRevoker) InvalidateAll(_ context.Context, userID int64) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

// stubTracker returns preset attempts, for window tests that cannot wait
// out real clocks.
type stubTracker struct {
	attempts map[int64]Attempt
	cleared  []int64
}

func (t *stubTracker) Record(userID int64) Attempt {
	a := t.attempts[userID]
	a.Count++
	a.LastFailure = time.Now()
	t.attempts[userID] = a
	return a
}

func (t *stubTracker) Get(userID int64) (Attempt, bool) {
	a, ok := t.attempts[userID]
	return a, ok
}

func (t *stubTracker) Clear(userID int64) {
	delete(t.attempts, userID)
	t.cleared = append(t.cleared, userID)
}

func newTestService(revoker TokenRevoker) *Service {
	return NewService(revoker, Config{})
}

func TestService_RecordFailure_LockoutThreshold(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		svc.RecordFailure(ctx, 42)
	}

	if !svc.IsLocked(42) {
		t.Error("IsLocked() after threshold failures = false, want true")
	}
	if len(revoker.invalidated) != 1 || revoker.invalidated[0] != 42 {
		t.Errorf("InvalidateAll calls = %v, want exactly one for user 42", revoker.invalidated)
	}
}

func TestService_RecordFailure_OnLockoutHook(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	var lockedOut []int64
	svc := NewService(revoker, Config{
		OnLockout: func(_ context.Context, userID int64) {
			lockedOut = append(lockedOut, userID)
		},
	})
	ctx := context.Background()

	// One extra failure past the threshold: the hook fires on the
	// crossing only, not on every failure while locked.
	for i := 0; i < DefaultMaxFailedAttempts+1; i++ {
		svc.RecordFailure(ctx, 42)
	}

	if len(lockedOut) != 1 || lockedOut[0] != 42 {
		t.Errorf("OnLockout calls = %v, want exactly one for user 42", lockedOut)
	}
}

func TestService_RecordFailure_BelowThreshold(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts-1; i++ {
		svc.RecordFailure(ctx, 42)
	}

	if svc.IsLocked(42) {
		t.Error("IsLocked() below threshold = true, want false")
	}
	if len(revoker.invalidated) != 0 {
		t.Errorf("InvalidateAll calls = %v, want none", revoker.invalidated)
	}
}

func TestService_RecordSuccess_ClearsFailures(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	for i := 0; i < DefaultMaxFailedAttempts; i++ {
		svc.RecordFailure(ctx, 42)
	}
	svc.RecordSuccess(42)

	if svc.IsLocked(42) {
		t.Error("IsLocked() after RecordSuccess = true, want false")
	}
}

func TestService_IsLocked_WindowExpired(t *testing.T) {
	tracker := &stubTracker{attempts: map[int64]Attempt{
		42: {Count: DefaultMaxFailedAttempts, LastFailure: time.Now().Add(-16 * time.Minute)},
	}}
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := NewService(revoker, Config{Tracker: tracker})

	if svc.IsLocked(42) {
		t.Error("IsLocked() past the lockout window = true, want false")
	}
	if len(tracker.cleared) != 1 {
		t.Error("expired lockout record was not cleared")
	}
}

func TestService_IsSuspicious(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	for i := 0; i < DefaultSuspiciousThreshold; i++ {
		svc.RecordFailure(ctx, 42)
	}

	if !svc.IsSuspicious(42) {
		t.Error("IsSuspicious() after burst = false, want true")
	}
	if svc.IsSuspicious(99) {
		t.Error("IsSuspicious() for clean user = true, want false")
	}
}

func TestService_IsSuspicious_OldFailures(t *testing.T) {
	tracker := &stubTracker{attempts: map[int64]Attempt{
		42: {Count: DefaultSuspiciousThreshold, LastFailure: time.Now().Add(-6 * time.Minute)},
	}}
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := NewService(revoker, Config{Tracker: tracker})

	if svc.IsSuspicious(42) {
		t.Error("IsSuspicious() outside the burst window = true, want false")
	}
}

func TestService_HandleThreat(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	svc.RecordFailure(ctx, 42)
	svc.HandleThreat(ctx, 42, "test threat")

	if len(revoker.invalidated) != 1 || revoker.invalidated[0] != 42 {
		t.Errorf("InvalidateAll calls = %v, want one for user 42", revoker.invalidated)
	}
	if svc.IsLocked(42) {
		t.Error("IsLocked() after HandleThreat = true, want false (state reset)")
	}
}

func TestService_CheckThreat_ValidToken(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{"live-token": true}}
	svc := newTestService(revoker)

	if svc.CheckThreat(context.Background(), "live-token", 42) {
		t.Error("CheckThreat() with live token = true (deny), want false (allow)")
	}
}

func TestService_CheckThreat_RevokedToken(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	if !svc.CheckThreat(ctx, "dead-token", 42) {
		t.Error("CheckThreat() with revoked token = false, want true (deny)")
	}

	// The rejected attempt must count toward the failure tally.
	if got, found := svc.tracker.Get(42); !found || got.Count != 1 {
		t.Errorf("failure count after revoked-token attempt = %+v (found=%v), want count 1", got, found)
	}
}

func TestService_CheckThreat_Locked(t *testing.T) {
	tracker := &stubTracker{attempts: map[int64]Attempt{
		42: {Count: DefaultMaxFailedAttempts, LastFailure: time.Now()},
	}}
	revoker := &fakeRevoker{valid: map[string]bool{"live-token": true}}
	svc := NewService(revoker, Config{Tracker: tracker})

	if !svc.CheckThreat(context.Background(), "live-token", 42) {
		t.Error("CheckThreat() while locked = false, want true (deny)")
	}
}

func TestService_CheckThreat_SuspiciousEscalates(t *testing.T) {
	tracker := &stubTracker{attempts: map[int64]Attempt{
		42: {Count: DefaultSuspiciousThreshold, LastFailure: time.Now()},
	}}
	revoker := &fakeRevoker{valid: map[string]bool{"live-token": true}}
	svc := NewService(revoker, Config{Tracker: tracker})

	if !svc.CheckThreat(context.Background(), "live-token", 42) {
		t.Error("CheckThreat() during suspicious burst = false, want true (deny)")
	}
	if len(revoker.invalidated) != 1 {
		t.Errorf("InvalidateAll calls = %v, want one (threat response)", revoker.invalidated)
	}
}

func TestService_ZeroUserID_Guards(t *testing.T) {
	revoker := &fakeRevoker{valid: map[string]bool{}}
	svc := newTestService(revoker)
	ctx := context.Background()

	svc.RecordFailure(ctx, 0)
	svc.RecordSuccess(0)
	svc.HandleThreat(ctx, 0, "noop")

	if svc.IsLocked(0) {
		t.Error("IsLocked(0) = true, want false")
	}
	if svc.IsSuspicious(0) {
		t.Error("IsSuspicious(0) = true, want false")
	}
	if len(revoker.invalidated) != 0 {
		t.Errorf("InvalidateAll calls for user 0 = %v, want none", revoker.invalidated)
	}
}

func TestMemoryTracker(t *testing.T) {
	tracker := NewMemoryTracker()

	a := tracker.Record(42)
	if a.Count != 1 {
		t.Errorf("first Record() count = %d, want 1", a.Count)
	}
	a = tracker.Record(42)
	if a.Count != 2 {
		t.Errorf("second Record() count = %d, want 2", a.Count)
	}

	got, ok := tracker.Get(42)
	if !ok || got.Count != 2 {
		t.Errorf("Get() = %+v (ok=%v), want count 2", got, ok)
	}

	tracker.Clear(42)
	if _, ok := tracker.Get(42); ok {
		t.Error("Get() after Clear = found, want not found")
	}
}
