// Package dispatcher starts pipeline jobs in the background and tracks their
// lifecycle.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/JakeFAU/autoblog/internal/blog"
)

// ErrShuttingDown is returned by Submit after Shutdown has begun.
var ErrShuttingDown = errors.New("dispatcher is shutting down")

// JobRunner executes one job to completion.
type JobRunner interface {
	Run(ctx context.Context, jobID, seed string, count int) blog.Report
}

// Dispatcher runs each submitted job on its own goroutine. Jobs run
// concurrently without deduplication.
type Dispatcher struct {
	runner JobRunner
	store  blog.JobStore
	ids    blog.IDGenerator
	logger *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	closed  bool
	wg      sync.WaitGroup
	running atomic.Int64
}

// New creates a Dispatcher. Jobs run under a context that is canceled only
// by Shutdown, never by the submitting request.
func New(runner JobRunner, store blog.JobStore, ids blog.IDGenerator, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		runner:  runner,
		store:   store,
		ids:     ids,
		logger:  logger,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Submit registers a job for (seed, count) and starts it. It returns as soon
// as the job goroutine is launched.
func (d *Dispatcher) Submit(ctx context.Context, seed string, count int) (*Handle, error) {
	jobID, err := d.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrShuttingDown
	}
	if err := d.store.CreateJob(ctx, blog.Job{ID: jobID, Seed: seed, Count: count}); err != nil {
		return nil, fmt.Errorf("register job: %w", err)
	}

	h := &Handle{ID: jobID, done: make(chan struct{})}
	d.wg.Add(1)
	d.running.Add(1)
	go d.run(h, seed, count)

	d.logger.Info("job submitted",
		zap.String("job_id", jobID),
		zap.String("seed", seed),
		zap.Int("count", count))
	return h, nil
}

func (d *Dispatcher) run(h *Handle, seed string, count int) {
	defer d.wg.Done()
	defer d.running.Add(-1)
	defer close(h.done)

	log := d.logger.With(zap.String("job_id", h.ID))
	d.setStatus(h.ID, blog.JobStatusRunning, nil)

	defer func() {
		if r := recover(); r != nil {
			log.Error("job panicked", zap.Any("panic", r), zap.Stack("stack"))
			d.setStatus(h.ID, blog.JobStatusFailed, nil)
		}
	}()

	report := d.runner.Run(d.baseCtx, h.ID, seed, count)
	h.report = report

	status := blog.JobStatusSucceeded
	if report.Canceled {
		status = blog.JobStatusCanceled
	}
	d.setStatus(h.ID, status, &report)
}

func (d *Dispatcher) setStatus(jobID string, status blog.JobStatus, report *blog.Report) {
	// The registry is in-process; the base context may already be canceled.
	if err := d.store.UpdateJobStatus(context.WithoutCancel(d.baseCtx), jobID, status, report); err != nil {
		d.logger.Warn("job status update failed",
			zap.String("job_id", jobID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

// Running reports the number of jobs currently executing.
func (d *Dispatcher) Running() int {
	return int(d.running.Load())
}

// Shutdown rejects new jobs, cancels running ones and waits for them to
// return or for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown wait: %w", ctx.Err())
	}
}

// Handle observes one submitted job.
type Handle struct {
	ID     string
	done   chan struct{}
	report blog.Report
}

// Done is closed when the job has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the job finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) (blog.Report, error) {
	select {
	case <-h.done:
		return h.report, nil
	case <-ctx.Done():
		return blog.Report{}, fmt.Errorf("wait for job %s: %w", h.ID, ctx.Err())
	}
}

// Report returns the final report once the job has finished.
func (h *Handle) Report() (blog.Report, bool) {
	select {
	case <-h.done:
		return h.report, true
	default:
		return blog.Report{}, false
	}
}
