// Package memory provides the in-process job registry.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/autoblog/internal/blog"
)

// ErrJobNotFound is returned for unknown job ids.
var ErrJobNotFound = errors.New("job not found")

var errJobExists = errors.New("job already exists")

// DefaultMaxFinished is the number of finished jobs kept when no limit is set.
const DefaultMaxFinished = 100

// JobStore keeps job records in memory. Records are lost on restart. Only
// the newest finished jobs are kept; queued and running jobs are never
// evicted.
type JobStore struct {
	mu          sync.RWMutex
	jobs        map[string]blog.Job
	now         func() time.Time
	maxFinished int
}

// Option configures a JobStore.
type Option func(*JobStore)

// WithMaxFinished bounds how many finished jobs are retained. Values below
// one select DefaultMaxFinished.
func WithMaxFinished(n int) Option {
	return func(s *JobStore) {
		if n > 0 {
			s.maxFinished = n
		}
	}
}

// NewJobStore constructs a JobStore.
func NewJobStore(opts ...Option) *JobStore {
	s := &JobStore{
		jobs:        make(map[string]blog.Job),
		now:         func() time.Time { return time.Now().UTC() },
		maxFinished: DefaultMaxFinished,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job blog.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("create job %s: %w", job.ID, errJobExists)
	}
	if job.Status == "" {
		job.Status = blog.JobStatusQueued
	}
	if job.Submitted.IsZero() {
		job.Submitted = s.now()
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus moves a job to status, stamping start and finish times.
// A non-nil report replaces the stored one; content store response bodies
// are dropped from the stored copy.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status blog.JobStatus,
	report *blog.Report,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return fmt.Errorf("update job %s: %w", jobID, ErrJobNotFound)
	}
	job.Status = status
	if report != nil {
		job.Report = retainedReport(report)
	}
	now := s.now()
	if status == blog.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if isTerminal(status) {
		if job.Started == nil {
			job.Started = pointerTime(now)
		}
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	if isTerminal(status) {
		s.evictFinishedLocked()
	}
	return nil
}

// evictFinishedLocked drops the oldest finished jobs beyond maxFinished.
func (s *JobStore) evictFinishedLocked() {
	finished := make([]blog.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if isTerminal(job.Status) {
			finished = append(finished, job)
		}
	}
	excess := len(finished) - s.maxFinished
	if excess <= 0 {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		if finished[i].Finished.Equal(*finished[j].Finished) {
			return finished[i].ID < finished[j].ID
		}
		return finished[i].Finished.Before(*finished[j].Finished)
	})
	for _, job := range finished[:excess] {
		delete(s.jobs, job.ID)
	}
}

// retainedReport copies report without any content store response text.
func retainedReport(report *blog.Report) *blog.Report {
	out := *report
	out.Items = make([]blog.ItemResult, len(report.Items))
	for i, item := range report.Items {
		if item.Outcome != nil {
			outcome := *item.Outcome
			outcome.Body = ""
			item.Outcome = &outcome
		}
		out.Items[i] = item
	}
	return &out
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (blog.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return blog.Job{}, fmt.Errorf("get job %s: %w", jobID, ErrJobNotFound)
	}
	return job, nil
}

// ListJobs returns all jobs, oldest submission first.
func (s *JobStore) ListJobs(_ context.Context) ([]blog.Job, error) {
	s.mu.RLock()
	out := make([]blog.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Submitted.Equal(out[j].Submitted) {
			return out[i].ID < out[j].ID
		}
		return out[i].Submitted.Before(out[j].Submitted)
	})
	return out, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}

func isTerminal(status blog.JobStatus) bool {
	switch status {
	case blog.JobStatusSucceeded, blog.JobStatusCanceled, blog.JobStatusFailed:
		return true
	default:
		return false
	}
}
