package security

import (
	"sync"
	"time"
)

// Attempt is the failure record kept per user.
type Attempt struct {
	// Count is the number of consecutive failed attempts
	Count int

	// LastFailure is when the most recent failure was recorded
	LastFailure time.Time
}

// AttemptTracker is a per-user failure counter with timestamp. The default
// MemoryTracker is process-local, best-effort telemetry; a store-backed
// implementation can replace it without changing the Service contract when
// lockout decisions need to be shared across instances.
type AttemptTracker interface {
	// Record increments the user's failure count, stamps the current time,
	// and returns the updated attempt.
	Record(userID int64) Attempt

	// Get returns the user's current attempt record, if any.
	Get(userID int64) (Attempt, bool)

	// Clear removes the user's record entirely.
	Clear(userID int64)
}

// MemoryTracker is the in-process AttemptTracker. Records die on success,
// lazily after the lockout window, or with the process.
type MemoryTracker struct {
	mu       sync.Mutex
	attempts map[int64]Attempt
}

// Compile-time interface check
var _ AttemptTracker = (*MemoryTracker)(nil)

// NewMemoryTracker creates an empty in-process tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{attempts: make(map[int64]Attempt)}
}

// Record increments and timestamps the user's failure count.
func (t *MemoryTracker) Record(userID int64) Attempt {
	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.attempts[userID]
	a.Count++
	a.LastFailure = time.Now()
	t.attempts[userID] = a
	return a
}

// Get returns the user's attempt record.
func (t *MemoryTracker) Get(userID int64) (Attempt, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.attempts[userID]
	return a, ok
}

// Clear removes the user's record.
func (t *MemoryTracker) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.attempts, userID)
}
