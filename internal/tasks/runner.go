// Package tasks runs named units of work on background goroutines. Issue
// deposit batches are scheduled here so the submitting request returns
// immediately while the batch runs out-of-band.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Runner executes scheduled functions on their own goroutines. Each task
// gets a fresh context detached from the scheduling request, so an aborted
// request does not cancel a running batch.
type Runner struct {
	log     *slog.Logger
	wg      sync.WaitGroup
	timeout time.Duration
}

// NewRunner creates a Runner. timeout bounds each task's context; zero
// means no bound.
func NewRunner(logger *slog.Logger, timeout time.Duration) *Runner {
	return &Runner{
		log:     logger.With("component", "tasks"),
		timeout: timeout,
	}
}

// Schedule starts fn on its own goroutine. Panics are recovered and logged;
// a panicking task never takes the process down.
func (r *Runner) Schedule(name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				r.log.Error("task panicked", slog.String("task", name), slog.Any("panic", rec))
			}
		}()

		ctx := context.Background()
		if r.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.timeout)
			defer cancel()
		}

		start := time.Now()
		r.log.Info("task started", slog.String("task", name))
		fn(ctx)
		r.log.Info("task finished", slog.String("task", name), slog.Duration("elapsed", time.Since(start)))
	}()
}

// Shutdown waits for running tasks to finish or the context to expire.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
