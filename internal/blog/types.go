package blog

import "time"

// JobStatus represents the lifecycle state of a pipeline job.
type JobStatus string

// Job status values recorded in the job registry.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusCanceled  JobStatus = "canceled"
	// JobStatusFailed marks a job whose runner panicked.
	JobStatusFailed JobStatus = "failed"
)

// Job is the registry entry for one submitted (seed, count) pair.
type Job struct {
	ID        string     `json:"id"`
	Seed      string     `json:"seed"`
	Count     int        `json:"count"`
	Status    JobStatus  `json:"status"`
	Submitted time.Time  `json:"submitted_at"`
	Started   *time.Time `json:"started_at,omitempty"`
	Finished  *time.Time `json:"finished_at,omitempty"`
	Report    *Report    `json:"report,omitempty"`
}

// Article is one generated post. Title is the generating keyword.
type Article struct {
	Title string `json:"title"`
	Body  string `json:"content"`
}

// Expansion is the outcome of expanding a seed keyword.
type Expansion struct {
	Seed     string
	Keywords []string
	// Fallback is set when the trend source could not be used and Keywords
	// is exactly [Seed].
	Fallback bool
	Err      error
}

// Draft is the outcome of generating text for one keyword.
type Draft struct {
	Keyword string
	Body    string
	Err     error
}

// OK reports whether the draft has publishable content.
func (d Draft) OK() bool {
	return d.Err == nil && d.Body != ""
}

// PublishOutcome is the outcome of one publish attempt.
type PublishOutcome struct {
	Title      string
	StatusCode int
	// Body is the response text returned by the content store.
	Body      string
	Published bool
	Err       error
}

// ItemResult records what happened to one keyword of a run. Article text is
// not kept; only its length survives the publish attempt.
type ItemResult struct {
	Keyword   string
	Generated bool
	BodyLen   int
	// GenerateErr is the generation failure, if any.
	GenerateErr error
	// Outcome is nil when nothing was published. Its Body is always empty.
	Outcome  *PublishOutcome
	Duration time.Duration
}

// Report summarizes a pipeline run.
type Report struct {
	JobID     string
	Seed      string
	Expansion Expansion
	Items     []ItemResult
	Canceled  bool
}

// Published counts keywords whose article reached the content store.
func (r Report) Published() int {
	n := 0
	for _, item := range r.Items {
		if item.Outcome != nil && item.Outcome.Published {
			n++
		}
	}
	return n
}
