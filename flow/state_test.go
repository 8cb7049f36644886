package flow

import (
	"context"
	"sync"
	"testing"

	"github.com/yeotaeho/oauth-core/storage/memory"
)

func TestStateService_IssueConsume(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	svc := NewStateService(store, nil)
	ctx := context.Background()

	state, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if state == "" {
		t.Fatal("Issue() returned empty state")
	}

	ok, err := svc.Consume(ctx, state)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !ok {
		t.Error("Consume() of freshly issued state = false, want true")
	}
}

func TestStateService_Consume_SingleUse(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	svc := NewStateService(store, nil)
	ctx := context.Background()

	state, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if ok, _ := svc.Consume(ctx, state); !ok {
		t.Fatal("first Consume() = false, want true")
	}
	if ok, _ := svc.Consume(ctx, state); ok {
		t.Error("second Consume() = true, want false")
	}
}

func TestStateService_Consume_Unknown(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	svc := NewStateService(store, nil)

	ok, err := svc.Consume(context.Background(), "never-issued")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if ok {
		t.Error("Consume() of unknown state = true, want false")
	}
}

func TestStateService_Consume_Empty(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	svc := NewStateService(store, nil)

	ok, err := svc.Consume(context.Background(), "")
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if ok {
		t.Error("Consume() of empty state = true, want false")
	}
}

func TestStateService_Consume_Concurrent(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	svc := NewStateService(store, nil)
	ctx := context.Background()

	state, err := svc.Issue(ctx)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	const goroutines = 16
	var successes int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := svc.Consume(ctx, state); err == nil && ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("concurrent Consume() successes = %d, want exactly 1", successes)
	}
}

func TestStateService_Issue_Unique(t *testing.T) {
	store := memory.New()
	defer store.Stop()
	svc := NewStateService(store, nil)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		state, err := svc.Issue(ctx)
		if err != nil {
			t.Fatalf("Issue() error = %v", err)
		}
		if seen[state] {
			t.Fatalf("Issue() produced duplicate state %q", state)
		}
		seen[state] = true
	}
}
