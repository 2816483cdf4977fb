package ratelimit

import (
	"errors"
	"testing"
	"time"
)

func TestAllow_BudgetPerUser(t *testing.T) {
	p := New(3, time.Hour)

	for i := 0; i < 3; i++ {
		if err := p.Allow("user-1"); err != nil {
			t.Fatalf("request %d should pass, got %v", i+1, err)
		}
	}
	if err := p.Allow("user-1"); !errors.Is(err, ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	// Other users keep their own bucket.
	if err := p.Allow("user-2"); err != nil {
		t.Errorf("user-2 should not share user-1's budget, got %v", err)
	}
}

func TestAllow_RefillsOverWindow(t *testing.T) {
	p := New(1000, time.Second)

	if err := p.Allow("user-1"); err != nil {
		t.Fatalf("first request should pass, got %v", err)
	}

	// At 1000/s the bucket refills fast enough that a short wait restores a
	// token even after draining it.
	for i := 0; i < 1000; i++ {
		_ = p.Allow("user-1")
	}
	time.Sleep(10 * time.Millisecond)
	if err := p.Allow("user-1"); err != nil {
		t.Errorf("expected a refilled token, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	p := New(0, 0)
	if err := p.Allow("user-1"); err != nil {
		t.Errorf("degenerate configuration should still allow one request, got %v", err)
	}
}
