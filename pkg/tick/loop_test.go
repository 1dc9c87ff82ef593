package tick

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestLoopRunsUntilCancel tests ticks stop once the context ends.
func TestLoopRunsUntilCancel(t *testing.T) {
	var ticks int
	var first time.Duration = -1
	l, err := NewLoop(200, func(dt time.Duration) error {
		if first < 0 {
			first = dt
		}
		ticks++
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := l.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if ticks == 0 {
		t.Fatal("expected at least one tick")
	}
	if first != 0 {
		t.Errorf("first tick dt %v, want 0", first)
	}
	if l.Running() {
		t.Error("loop still marked running")
	}
}

// TestLoopStopsOnError tests a failing tick ends Run with its error.
func TestLoopStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	l, _ := NewLoop(500, func(time.Duration) error { return boom })
	if err := l.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

// TestLoopStop tests Stop from another goroutine and the running guards.
func TestLoopStop(t *testing.T) {
	l, _ := NewLoop(100, func(time.Duration) error { return nil })
	if err := l.Stop(); !errors.Is(err, ErrLoopNotRunning) {
		t.Fatalf("expected ErrLoopNotRunning, got %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	deadline := time.Now().Add(time.Second)
	for !l.Running() {
		if time.Now().After(deadline) {
			t.Fatal("loop did not start")
		}
		time.Sleep(time.Millisecond)
	}
	if err := l.Run(context.Background()); !errors.Is(err, ErrLoopRunning) {
		t.Fatalf("expected ErrLoopRunning, got %v", err)
	}

	// Run stores its cancel func just after flipping running.
	for l.cancel.Load() == nil {
		time.Sleep(time.Millisecond)
	}
	if err := l.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

// TestNewLoopRate tests the rate is validated.
func TestNewLoopRate(t *testing.T) {
	if _, err := NewLoop(0, nil); !errors.Is(err, ErrTickRate) {
		t.Fatalf("expected ErrTickRate, got %v", err)
	}
}
