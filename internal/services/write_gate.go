package services

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"

	"sports_club_backend/internal/metrics"
)

// DefaultLockTimeout bounds how long a mutation waits for the write gate.
const DefaultLockTimeout = 10 * time.Second

// WriteGate serializes every mutation of every club store in the process.
// Reads do not take it.
type WriteGate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewWriteGate creates a gate with the given bounded wait.
func NewWriteGate(timeout time.Duration) *WriteGate {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &WriteGate{sem: semaphore.NewWeighted(1), timeout: timeout}
}

// Do runs fn while holding the gate. It returns ErrWriteGateTimeout without
// running fn when the gate cannot be acquired in time. The gate is released
// when fn returns or panics.
func (g *WriteGate) Do(ctx context.Context, fn func() error) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		metrics.WriteGateWait.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		return ErrWriteGateTimeout
	}
	defer g.sem.Release(1)
	metrics.WriteGateWait.WithLabelValues("acquired").Observe(time.Since(start).Seconds())

	return fn()
}
