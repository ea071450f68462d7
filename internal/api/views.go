package api

import (
	"time"

	"github.com/JakeFAU/autoblog/internal/blog"
)

type jobView struct {
	ID        string         `json:"id"`
	Seed      string         `json:"seed"`
	Count     int            `json:"count"`
	Status    blog.JobStatus `json:"status"`
	Submitted time.Time      `json:"submitted_at"`
	Started   *time.Time     `json:"started_at,omitempty"`
	Finished  *time.Time     `json:"finished_at,omitempty"`
	Result    *resultView    `json:"result,omitempty"`
}

type resultView struct {
	Keywords  []string   `json:"keywords"`
	Fallback  bool       `json:"fallback"`
	Published int        `json:"published"`
	Canceled  bool       `json:"canceled"`
	Items     []itemView `json:"items"`
}

type itemView struct {
	Keyword    string `json:"keyword"`
	Generated  bool   `json:"generated"`
	Published  bool   `json:"published"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newJobView(job blog.Job) jobView {
	v := jobView{
		ID:        job.ID,
		Seed:      job.Seed,
		Count:     job.Count,
		Status:    job.Status,
		Submitted: job.Submitted,
		Started:   job.Started,
		Finished:  job.Finished,
	}
	if job.Report == nil {
		return v
	}
	rep := job.Report
	res := &resultView{
		Keywords:  rep.Expansion.Keywords,
		Fallback:  rep.Expansion.Fallback,
		Published: rep.Published(),
		Canceled:  rep.Canceled,
		Items:     make([]itemView, len(rep.Items)),
	}
	for i, item := range rep.Items {
		iv := itemView{Keyword: item.Keyword, Generated: item.Generated}
		if item.GenerateErr != nil {
			iv.Error = item.GenerateErr.Error()
		}
		if out := item.Outcome; out != nil {
			iv.Published = out.Published
			iv.StatusCode = out.StatusCode
			if out.Err != nil {
				iv.Error = out.Err.Error()
			}
		}
		res.Items[i] = iv
	}
	v.Result = res
	return v
}
