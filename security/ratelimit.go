package security

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterEntry tracks a limiter and its last access time for cleanup.
type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter provides per-identifier (typically per client IP) rate
// limiting using a token bucket per identifier. Idle limiters are swept
// periodically so the map cannot grow without bound.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry

	rate  int
	burst int

	cleanupInterval time.Duration
	maxIdle         time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
	logger          *slog.Logger
}

// NewRateLimiter creates a rate limiter allowing requestsPerSecond with the
// given burst per identifier, with a background sweep of idle entries.
func NewRateLimiter(requestsPerSecond, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}

	rl := &RateLimiter{
		limiters:        make(map[string]*limiterEntry),
		rate:            requestsPerSecond,
		burst:           burst,
		cleanupInterval: 5 * time.Minute,
		maxIdle:         30 * time.Minute,
		stopCleanup:     make(chan struct{}),
		logger:          logger,
	}

	go rl.cleanupLoop()
	return rl
}

// Allow reports whether a request from identifier may proceed now.
func (rl *RateLimiter) Allow(identifier string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[identifier]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(rl.rate), rl.burst)}
		rl.limiters[identifier] = e
	}
	e.lastAccess = time.Now()

	return e.limiter.Allow()
}

// cleanupLoop periodically removes idle limiters.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup(rl.maxIdle)
		case <-rl.stopCleanup:
			return
		}
	}
}

// Cleanup removes limiters that have not been used for maxIdle.
func (rl *RateLimiter) Cleanup(maxIdle time.Duration) {
	now := time.Now()
	removed := 0

	rl.mu.Lock()
	for id, e := range rl.limiters {
		if now.Sub(e.lastAccess) > maxIdle {
			delete(rl.limiters, id)
			removed++
		}
	}
	remaining := len(rl.limiters)
	rl.mu.Unlock()

	if removed > 0 {
		rl.logger.Debug("Rate limiter cleanup completed",
			"removed", removed,
			"remaining", remaining)
	}
}

// Stop terminates the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}
