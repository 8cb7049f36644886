package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrumented wraps an ExpiringStore and records one count and one latency
// sample per operation, tagged with the operation name and whether it
// failed. A not-found result is an answer, not a failure. Instruments can
// be swapped after construction so wiring can start with no-ops and upgrade
// once real providers exist.
type Instrumented struct {
	next ExpiringStore

	mu       sync.RWMutex
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

// Compile-time interface check
var _ ExpiringStore = (*Instrumented)(nil)

// NewInstrumented wraps next with operation metrics.
func NewInstrumented(next ExpiringStore, total metric.Int64Counter, duration metric.Float64Histogram) *Instrumented {
	return &Instrumented{
		next:     next,
		total:    total,
		duration: duration,
	}
}

// SetInstruments replaces the recording instruments. Safe to call while the
// store is in use.
func (s *Instrumented) SetInstruments(total metric.Int64Counter, duration metric.Float64Histogram) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total = total
	s.duration = duration
}

// record emits the per-operation count and duration.
func (s *Instrumented) record(ctx context.Context, op string, start time.Time, err error) {
	failed := err != nil && !errors.Is(err, ErrNotFound)
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.Bool("error", failed),
	)

	s.mu.RLock()
	total, duration := s.total, s.duration
	s.mu.RUnlock()

	total.Add(ctx, 1, attrs)
	duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), attrs)
}

func (s *Instrumented) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := s.next.Get(ctx, key)
	s.record(ctx, "get", start, err)
	return val, err
}

func (s *Instrumented) GetDel(ctx context.Context, key string) (string, error) {
	start := time.Now()
	val, err := s.next.GetDel(ctx, key)
	s.record(ctx, "getdel", start, err)
	return val, err
}

func (s *Instrumented) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value, ttl)
	s.record(ctx, "set", start, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Delete(ctx, key)
	s.record(ctx, "delete", start, err)
	return err
}

func (s *Instrumented) SetAdd(ctx context.Context, key, member string) error {
	start := time.Now()
	err := s.next.SetAdd(ctx, key, member)
	s.record(ctx, "sadd", start, err)
	return err
}

func (s *Instrumented) SetMembers(ctx context.Context, key string) ([]string, error) {
	start := time.Now()
	members, err := s.next.SetMembers(ctx, key)
	s.record(ctx, "smembers", start, err)
	return members, err
}

func (s *Instrumented) SetRemove(ctx context.Context, key, member string) error {
	start := time.Now()
	err := s.next.SetRemove(ctx, key, member)
	s.record(ctx, "srem", start, err)
	return err
}

func (s *Instrumented) Expire(ctx context.Context, key string, ttl time.Duration) error {
	start := time.Now()
	err := s.next.Expire(ctx, key, ttl)
	s.record(ctx, "expire", start, err)
	return err
}
