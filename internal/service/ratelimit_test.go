package service

import (
	"sync"
	"testing"
)

func TestKeyLimiterBudget(t *testing.T) {
	l := NewKeyLimiter()

	for i := 0; i < 3; i++ {
		if !l.Allow(1, 3) {
			t.Fatalf("request %d should fit the budget", i+1)
		}
	}
	if l.Allow(1, 3) {
		t.Fatal("4th request should exceed a budget of 3")
	}

	// Budgets are tracked per key.
	if !l.Allow(2, 3) {
		t.Fatal("a different key has its own window")
	}

	if l.Retry(1) <= 0 {
		t.Error("expected a positive retry hint for a throttled key")
	}
}

func TestKeyLimiterUnlimited(t *testing.T) {
	l := NewKeyLimiter()
	for i := 0; i < 100; i++ {
		if !l.Allow(1, 0) {
			t.Fatal("non-positive limit must disable limiting")
		}
	}
}

func TestKeyLimiterConcurrent(t *testing.T) {
	l := NewKeyLimiter()

	const workers = 8
	const perWorker = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if l.Allow(42, 100) {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if allowed != 100 {
		t.Errorf("allowed = %d, want exactly the budget of 100", allowed)
	}
}
