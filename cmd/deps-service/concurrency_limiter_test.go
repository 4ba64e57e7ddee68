package main

import (
	"context"
	"testing"
)

func TestConcurrencyLimiter(t *testing.T) {
	l := NewConcurrencyLimiter(testConfig(t, "/data"))
	ctx := context.Background()

	if err := l.Acquire(ctx, "sleep"); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l.Acquire(ctx, "sleep"); err == nil {
		t.Fatalf("second acquire should time out with max_concurrent=1")
	}
	l.Release("sleep")
	if err := l.Acquire(ctx, "sleep"); err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	l.Release("sleep")

	// echo allows two at once
	for i := 0; i < 2; i++ {
		if err := l.Acquire(ctx, "echo"); err != nil {
			t.Fatalf("echo acquire %d: %v", i, err)
		}
	}
	l.Release("echo")
	l.Release("echo")

	if err := l.Acquire(ctx, "unknown"); err == nil {
		t.Errorf("expected error for unknown command")
	}
	l.Release("unknown")
}

func TestConcurrencyLimiterHonoursContext(t *testing.T) {
	l := NewConcurrencyLimiter(testConfig(t, "/data"))
	if err := l.Acquire(context.Background(), "sleep"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer l.Release("sleep")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx, "sleep"); err == nil {
		t.Errorf("expected error for cancelled context")
	}
}
