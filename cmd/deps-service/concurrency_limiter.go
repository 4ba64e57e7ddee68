package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyLimiter bounds concurrent executions per command. The map is
// built once and never mutated, so lookups need no lock.
type ConcurrencyLimiter struct {
	semaphores map[string]*semaphore.Weighted
	wait       time.Duration
}

// NewConcurrencyLimiter creates one semaphore per command sized by
// max_concurrent.
func NewConcurrencyLimiter(config *Config) *ConcurrencyLimiter {
	l := &ConcurrencyLimiter{
		semaphores: make(map[string]*semaphore.Weighted, len(config.Commands)),
		wait:       config.Limits.acquireTimeout,
	}
	if l.wait <= 0 {
		l.wait = defaultAcquireTimeout
	}
	for _, cmd := range config.Commands {
		l.semaphores[cmd.Name] = semaphore.NewWeighted(int64(cmd.MaxConcurrent))
	}
	return l
}

// Acquire waits for a slot for command, giving up after the configured
// acquire timeout or when ctx ends.
func (l *ConcurrencyLimiter) Acquire(ctx context.Context, command string) error {
	sem, ok := l.semaphores[command]
	if !ok {
		return fmt.Errorf("no semaphore configured for command: %s", command)
	}
	ctx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire slot for %s: %w", command, err)
	}
	return nil
}

// Release frees a slot taken by Acquire.
func (l *ConcurrencyLimiter) Release(command string) {
	if sem, ok := l.semaphores[command]; ok {
		sem.Release(1)
	}
}
