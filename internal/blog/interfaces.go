package blog

import (
	"context"
	"time"
)

// Feed is the shared, bounded log of human-readable status lines.
type Feed interface {
	Append(line string)
	Appendf(format string, args ...any)
	Snapshot() []string
}

// TrendSource returns the top related queries for a keyword, best first.
type TrendSource interface {
	RelatedQueries(ctx context.Context, keyword string) ([]string, error)
}

// Completer runs a single-turn completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// StoreResponse is the raw answer of a content store to a create request.
type StoreResponse struct {
	StatusCode int
	Body       string
}

// ContentStore creates posts on a remote content-management backend.
type ContentStore interface {
	CreatePost(ctx context.Context, article Article) (StoreResponse, error)
}

// Expander expands a seed keyword into related keywords.
type Expander interface {
	Expand(ctx context.Context, seed string, limit int) Expansion
}

// Generator produces article text for a keyword.
type Generator interface {
	Generate(ctx context.Context, keyword string) Draft
}

// Publisher submits an article and reports the outcome.
type Publisher interface {
	Publish(ctx context.Context, title, body string) PublishOutcome
}

// JobStore records job lifecycle for internal observability.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, report *Report) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
}

// Clock returns the current time and sleeps (useful for testing).
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
