package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/embedded"
)

// fakeStore is a minimal in-package ExpiringStore so the decorator can be
// tested without importing a backend.
type fakeStore struct {
	values map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) GetDel(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	delete(f.values, key)
	return v, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeStore) SetAdd(_ context.Context, key, member string) error {
	f.values[key+"/"+member] = member
	return nil
}

func (f *fakeStore) SetMembers(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}

func (f *fakeStore) SetRemove(_ context.Context, key, member string) error {
	delete(f.values, key+"/"+member)
	return nil
}

func (f *fakeStore) Expire(_ context.Context, _ string, _ time.Duration) error {
	return nil
}

// countingCounter records Add calls.
type countingCounter struct {
	embedded.Int64Counter
	mu sync.Mutex
	n  int64
}

func (c *countingCounter) Add(_ context.Context, incr int64, _ ...metric.AddOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n += incr
}

func (c *countingCounter) count() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// recordingHistogram records Record calls.
type recordingHistogram struct {
	embedded.Float64Histogram
	mu      sync.Mutex
	samples []float64
}

func (h *recordingHistogram) Record(_ context.Context, value float64, _ ...metric.RecordOption) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, value)
}

func (h *recordingHistogram) sampleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

func TestInstrumented_RecordsEveryOperation(t *testing.T) {
	total := &countingCounter{}
	duration := &recordingHistogram{}
	store := NewInstrumented(newFakeStore(), total, duration)
	ctx := context.Background()

	if err := store.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	val, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if val != "v1" {
		t.Errorf("Get() = %q, want %q", val, "v1")
	}
	if _, err := store.GetDel(ctx, "k1"); err != nil {
		t.Fatalf("GetDel() error = %v", err)
	}

	if got := total.count(); got != 3 {
		t.Errorf("operation count = %d, want 3", got)
	}
	if got := duration.sampleCount(); got != 3 {
		t.Errorf("duration samples = %d, want 3", got)
	}
}

func TestInstrumented_NotFoundPassesThrough(t *testing.T) {
	total := &countingCounter{}
	duration := &recordingHistogram{}
	store := NewInstrumented(newFakeStore(), total, duration)

	// A miss is still an ErrNotFound to callers, and still one recorded op.
	if _, err := store.Get(context.Background(), "absent"); err != ErrNotFound {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if got := total.count(); got != 1 {
		t.Errorf("operation count = %d, want 1", got)
	}
}

func TestInstrumented_SetInstruments(t *testing.T) {
	first := &countingCounter{}
	store := NewInstrumented(newFakeStore(), first, &recordingHistogram{})
	ctx := context.Background()

	if err := store.Set(ctx, "k1", "v1", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second := &countingCounter{}
	store.SetInstruments(second, &recordingHistogram{})
	if _, err := store.Get(ctx, "k1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got := first.count(); got != 1 {
		t.Errorf("first counter = %d, want 1", got)
	}
	if got := second.count(); got != 1 {
		t.Errorf("second counter = %d, want 1", got)
	}
}
