package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/aiagentsaz/mediaflow/cmd/server/internal/metrics"
	"github.com/aiagentsaz/mediaflow/cmd/server/internal/orchestrator"
	"github.com/aiagentsaz/mediaflow/pkg/logger"
)

// ErrRunnerClosed is returned by Submit after Shutdown has started.
var ErrRunnerClosed = errors.New("job runner is shut down")

// RenderFunc produces a render and returns its output path.
type RenderFunc func(ctx context.Context) (string, error)

// Runner executes renders and keeps the ledger in step.
type Runner struct {
	store  *Store
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner creates a Runner writing to store.
func NewRunner(store *Store) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		store:  store,
		logger: logger.OrDefault().With("component", "jobs"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Store returns the ledger.
func (r *Runner) Store() *Store {
	return r.store
}

// Run records a job and executes fn synchronously. The returned job is
// the final ledger entry; err is fn's error.
func (r *Runner) Run(ctx context.Context, kind Kind, request any, fn RenderFunc) (*Job, error) {
	job, err := r.store.Create(ctx, kind, request)
	if err != nil {
		return nil, err
	}
	runErr := r.execute(ctx, job.ID, kind, fn)
	final, err := r.store.Get(context.WithoutCancel(ctx), job.ID)
	if err != nil {
		return nil, err
	}
	return final, runErr
}

// Submit records a job and executes fn in the background. fn gets a
// context that is cancelled by Shutdown, not by the caller's request.
func (r *Runner) Submit(ctx context.Context, kind Kind, request any, fn RenderFunc) (*Job, error) {
	// Add happens under mu so it never races with Shutdown's Wait
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRunnerClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	job, err := r.store.Create(ctx, kind, request)
	if err != nil {
		r.wg.Done()
		return nil, err
	}
	go func() {
		defer r.wg.Done()
		_ = r.execute(r.ctx, job.ID, kind, fn)
	}()
	return job, nil
}

func (r *Runner) execute(ctx context.Context, id string, kind Kind, fn RenderFunc) error {
	// ledger writes must land even when the render was cancelled
	bg := context.WithoutCancel(ctx)
	if err := r.store.MarkRunning(bg, id); err != nil {
		r.logger.Error("failed to mark job running", "job_id", id, "error", err)
	}

	start := time.Now()
	output, runErr := fn(ctx)
	elapsed := time.Since(start)
	metrics.RecordDuration(string(kind), elapsed.Seconds())

	if runErr != nil {
		code := errorCode(runErr)
		metrics.RecordJob(string(kind), false)
		metrics.RecordError(string(kind), code)
		logger.LogMediaStage(ctx, r.logger, string(kind), "error", id, elapsed.Milliseconds(), code)
		if err := r.store.MarkFailed(bg, id, runErr); err != nil {
			r.logger.Error("failed to mark job failed", "job_id", id, "error", err)
		}
		return runErr
	}

	metrics.RecordJob(string(kind), true)
	logger.LogMediaStage(ctx, r.logger, string(kind), "success", id, elapsed.Milliseconds(), "")
	if err := r.store.MarkDone(bg, id, output); err != nil {
		r.logger.Error("failed to mark job done", "job_id", id, "error", err)
	}
	return nil
}

// Shutdown cancels background renders and waits for them until ctx ends.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
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

func errorCode(err error) string {
	if code := orchestrator.CodeOf(err); code != "" {
		return string(code)
	}
	return "INTERNAL"
}
