package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JakeFAU/autoblog/internal/blog"
	"github.com/JakeFAU/autoblog/internal/storage/memory"
)

// TestSubmitRunsJobAndRecordsLifecycle ensures a job runs in the background and its report is kept.
func TestSubmitRunsJobAndRecordsLifecycle(t *testing.T) {
	t.Parallel()

	store := memory.NewJobStore()
	runner := &fakeRunner{}
	d := New(runner, store, &seqIDs{}, zaptest.NewLogger(t))
	t.Cleanup(func() { require.NoError(t, d.Shutdown(context.Background())) })

	h, err := d.Submit(context.Background(), "coffee", 2)
	require.NoError(t, err)
	require.Equal(t, "job-1", h.ID)

	report, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "coffee", report.Seed)
	require.Equal(t, []call{{jobID: "job-1", seed: "coffee", count: 2}}, runner.Calls())

	got, ok := h.Report()
	require.True(t, ok)
	require.Equal(t, report, got)

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, blog.JobStatusSucceeded, job.Status)
	require.NotNil(t, job.Started)
	require.NotNil(t, job.Finished)
	require.NotNil(t, job.Report)
	require.Equal(t, "coffee", job.Report.Seed)
}

// TestSubmitDoesNotWaitForJob verifies Submit returns while the job is still running.
func TestSubmitDoesNotWaitForJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	runner := &fakeRunner{block: release}
	store := memory.NewJobStore()
	d := New(runner, store, &seqIDs{}, nil)

	h, err := d.Submit(context.Background(), "tea", 1)
	require.NoError(t, err)

	_, finished := h.Report()
	require.False(t, finished)
	require.Eventually(t, func() bool {
		job, err := store.GetJob(context.Background(), h.ID)
		return err == nil && job.Status == blog.JobStatusRunning
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, d.Running())

	close(release)
	select {
	case <-h.Done():
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	require.NoError(t, d.Shutdown(context.Background()))
	require.Equal(t, 0, d.Running())
}

// TestConcurrentJobsRunIndependently ensures identical submissions are not deduplicated.
func TestConcurrentJobsRunIndependently(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	d := New(runner, memory.NewJobStore(), &seqIDs{}, nil)

	var handles []*Handle
	for range 3 {
		h, err := d.Submit(context.Background(), "coffee", 1)
		require.NoError(t, err)
		handles = append(handles, h)
	}
	for _, h := range handles {
		_, err := h.Wait(context.Background())
		require.NoError(t, err)
	}
	require.Len(t, runner.Calls(), 3)
	require.NoError(t, d.Shutdown(context.Background()))
}

// TestShutdownCancelsRunningJobs verifies Shutdown cancels the job context and rejects new work.
func TestShutdownCancelsRunningJobs(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{waitForCancel: true}
	store := memory.NewJobStore()
	d := New(runner, store, &seqIDs{}, nil)

	h, err := d.Submit(context.Background(), "coffee", 5)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Shutdown(ctx))

	report, ok := h.Report()
	require.True(t, ok)
	require.True(t, report.Canceled)
	job, err := store.GetJob(context.Background(), h.ID)
	require.NoError(t, err)
	require.Equal(t, blog.JobStatusCanceled, job.Status)

	_, err = d.Submit(context.Background(), "late", 1)
	require.ErrorIs(t, err, ErrShuttingDown)
}

// TestSubmitRequestContextDoesNotCancelJob ensures the job outlives the submitting request.
func TestSubmitRequestContextDoesNotCancelJob(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	runner := &fakeRunner{block: release}
	d := New(runner, memory.NewJobStore(), &seqIDs{}, nil)

	reqCtx, cancel := context.WithCancel(context.Background())
	h, err := d.Submit(reqCtx, "coffee", 1)
	require.NoError(t, err)
	cancel()
	close(release)

	report, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.False(t, report.Canceled)
	require.NoError(t, d.Shutdown(context.Background()))
}

func TestSubmitPropagatesIDError(t *testing.T) {
	t.Parallel()

	d := New(&fakeRunner{}, memory.NewJobStore(), failingIDs{}, nil)
	_, err := d.Submit(context.Background(), "coffee", 1)
	require.ErrorContains(t, err, "generate job id")
}

func TestPanickingJobIsMarkedFailed(t *testing.T) {
	t.Parallel()

	store := memory.NewJobStore()
	d := New(panicRunner{}, store, &seqIDs{}, nil)

	h, err := d.Submit(context.Background(), "coffee", 1)
	require.NoError(t, err)
	<-h.Done()
	require.NoError(t, d.Shutdown(context.Background()))

	job, err := store.GetJob(context.Background(), h.ID)
	require.NoError(t, err)
	require.Equal(t, blog.JobStatusFailed, job.Status)
}

func TestHandleWaitHonorsContext(t *testing.T) {
	t.Parallel()

	h := &Handle{ID: "x", done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

type call struct {
	jobID string
	seed  string
	count int
}

type fakeRunner struct {
	mu            sync.Mutex
	calls         []call
	block         chan struct{}
	waitForCancel bool
}

func (f *fakeRunner) Run(ctx context.Context, jobID, seed string, count int) blog.Report {
	f.mu.Lock()
	f.calls = append(f.calls, call{jobID: jobID, seed: seed, count: count})
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	report := blog.Report{JobID: jobID, Seed: seed}
	if f.waitForCancel {
		<-ctx.Done()
		report.Canceled = true
	}
	return report
}

func (f *fakeRunner) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type panicRunner struct{}

func (panicRunner) Run(context.Context, string, string, int) blog.Report {
	panic("boom")
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("job-%d", s.n), nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}
