package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JakeFAU/autoblog/internal/blog"
)

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	job := blog.Job{ID: "job-1", Seed: "coffee", Count: 2}

	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.CreateJob(ctx, job); err == nil {
		t.Fatal("expected duplicate job error")
	}
	queued, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if queued.Status != blog.JobStatusQueued || queued.Submitted.IsZero() {
		t.Fatalf("expected queued job with submission time, got %+v", queued)
	}

	if err := store.UpdateJobStatus(ctx, job.ID, blog.JobStatusRunning, nil); err != nil {
		t.Fatalf("UpdateJobStatus running error = %v", err)
	}
	running, _ := store.GetJob(ctx, job.ID)
	if running.Started == nil || running.Finished != nil {
		t.Fatalf("expected only start time, got %+v", running)
	}

	report := &blog.Report{JobID: job.ID, Seed: "coffee"}
	if err := store.UpdateJobStatus(ctx, job.ID, blog.JobStatusSucceeded, report); err != nil {
		t.Fatalf("UpdateJobStatus succeeded error = %v", err)
	}
	final, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	if final.Status != blog.JobStatusSucceeded || final.Started == nil || final.Finished == nil {
		t.Fatalf("expected timestamps set, got %+v", final)
	}
	if !final.Started.Equal(*running.Started) {
		t.Fatalf("start time changed: %v -> %v", running.Started, final.Started)
	}
	if final.Report == nil || final.Report.Seed != "coffee" {
		t.Fatalf("expected report to persist, got %+v", final.Report)
	}
}

func TestJobStoreUnknownJob(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	if _, err := store.GetJob(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("GetJob() error = %v, want ErrJobNotFound", err)
	}
	err := store.UpdateJobStatus(context.Background(), "missing", blog.JobStatusRunning, nil)
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("UpdateJobStatus() error = %v, want ErrJobNotFound", err)
	}
}

func TestJobStoreListJobsOrdersBySubmission(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	base := time.Unix(1000, 0).UTC()
	for i, id := range []string{"c", "a", "b"} {
		job := blog.Job{ID: id, Submitted: base.Add(time.Duration(2-i) * time.Second)}
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
	}

	jobs, err := store.ListJobs(ctx)
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	got := make([]string, len(jobs))
	for i, job := range jobs {
		got[i] = job.ID
	}
	if want := []string{"b", "a", "c"}; len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("ListJobs() order = %v, want %v", got, want)
	}
}

func TestJobStoreCanceledWithoutStartGetsBothTimes(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	if err := store.CreateJob(ctx, blog.Job{ID: "x"}); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	if err := store.UpdateJobStatus(ctx, "x", blog.JobStatusCanceled, nil); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}
	job, _ := store.GetJob(ctx, "x")
	if job.Started == nil || job.Finished == nil {
		t.Fatalf("expected both timestamps, got %+v", job)
	}
}

func TestJobStoreDropsResponseBodies(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	if err := store.CreateJob(ctx, blog.Job{ID: "echo"}); err != nil {
		t.Fatalf("CreateJob() error = %v", err)
	}
	outcome := &blog.PublishOutcome{
		Title:      "cold brew",
		StatusCode: 201,
		Body:       `{"content":{"raw":"Steep the grounds overnight."}}`,
		Published:  true,
	}
	report := &blog.Report{
		JobID: "echo",
		Items: []blog.ItemResult{{Keyword: "cold brew", Generated: true, BodyLen: 28, Outcome: outcome}},
	}
	if err := store.UpdateJobStatus(ctx, "echo", blog.JobStatusSucceeded, report); err != nil {
		t.Fatalf("UpdateJobStatus() error = %v", err)
	}

	job, err := store.GetJob(ctx, "echo")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	got := job.Report.Items[0].Outcome
	if got.Body != "" {
		t.Fatalf("expected response body to be dropped, got %q", got.Body)
	}
	if !got.Published || got.StatusCode != 201 || job.Report.Items[0].BodyLen != 28 {
		t.Fatalf("expected outcome metadata to survive, got %+v", job.Report.Items[0])
	}
	if outcome.Body == "" {
		t.Fatal("caller's report must not be modified")
	}
}

func TestJobStoreEvictsOldestFinishedJobs(t *testing.T) {
	t.Parallel()

	store := NewJobStore(WithMaxFinished(2))
	ctx := context.Background()
	clock := time.Unix(1000, 0).UTC()
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	if err := store.CreateJob(ctx, blog.Job{ID: "active"}); err != nil {
		t.Fatalf("CreateJob(active) error = %v", err)
	}
	for _, id := range []string{"j1", "j2", "j3"} {
		if err := store.CreateJob(ctx, blog.Job{ID: id}); err != nil {
			t.Fatalf("CreateJob(%s) error = %v", id, err)
		}
		if err := store.UpdateJobStatus(ctx, id, blog.JobStatusSucceeded, nil); err != nil {
			t.Fatalf("UpdateJobStatus(%s) error = %v", id, err)
		}
	}

	if _, err := store.GetJob(ctx, "j1"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected oldest finished job to be evicted, got %v", err)
	}
	for _, id := range []string{"active", "j2", "j3"} {
		if _, err := store.GetJob(ctx, id); err != nil {
			t.Fatalf("GetJob(%s) error = %v", id, err)
		}
	}
	jobs, _ := store.ListJobs(ctx)
	if len(jobs) != 3 {
		t.Fatalf("expected 3 retained jobs, got %d", len(jobs))
	}
}
