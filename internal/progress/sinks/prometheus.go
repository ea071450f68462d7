package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/autoblog/internal/progress"
)

// PrometheusSink exports pipeline progress as Prometheus metrics.
type PrometheusSink struct {
	jobsStarted   prometheus.Counter
	jobsCompleted *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	jobRuntime    *prometheus.HistogramVec

	keywords     *prometheus.CounterVec
	expansions   *prometheus.CounterVec
	generations  *prometheus.CounterVec
	genDuration  prometheus.Histogram
	publishes    *prometheus.CounterVec
	postsCreated prometheus.Counter

	tracker *jobTracker
}

// NewPrometheusSink registers the collectors against reg, or the default
// registerer when reg is nil.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoblog_jobs_started_total",
			Help: "Total jobs that have started.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_jobs_completed_total",
			Help: "Total jobs finished partitioned by result.",
		}, []string{"result"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoblog_jobs_running",
			Help: "Current number of running jobs.",
		}),
		jobRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autoblog_job_runtime_seconds",
			Help:    "Wall time per finished job.",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}, []string{"result"}),
		keywords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_keywords_total",
			Help: "Keywords produced by expansion partitioned by outcome.",
		}, []string{"outcome"}),
		expansions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_expansions_total",
			Help: "Keyword expansions partitioned by outcome.",
		}, []string{"outcome"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_generations_total",
			Help: "Article generations partitioned by outcome.",
		}, []string{"outcome"}),
		genDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autoblog_generation_duration_seconds",
			Help:    "Language model latency per article.",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autoblog_publishes_total",
			Help: "Publish attempts partitioned by outcome and status class.",
		}, []string{"outcome", "status_class"}),
		postsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autoblog_posts_created_total",
			Help: "Posts accepted by the content store.",
		}),
		tracker: newJobTracker(),
	}
	for _, collector := range []prometheus.Collector{
		s.jobsStarted,
		s.jobsCompleted,
		s.jobsRunning,
		s.jobRuntime,
		s.keywords,
		s.expansions,
		s.generations,
		s.genDuration,
		s.publishes,
		s.postsCreated,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageJobStart:
		s.jobsStarted.Inc()
		if s.tracker.start(evt.JobID) {
			s.jobsRunning.Inc()
		}
	case progress.StageJobDone:
		s.finishJob(evt, "done")
	case progress.StageJobCanceled:
		s.finishJob(evt, "canceled")
	case progress.StageExpandDone:
		s.expansions.WithLabelValues(string(evt.Outcome)).Inc()
		if evt.Count > 0 {
			s.keywords.WithLabelValues(string(evt.Outcome)).Add(float64(evt.Count))
		}
	case progress.StageGenerateDone:
		s.generations.WithLabelValues(string(evt.Outcome)).Inc()
		if evt.Dur > 0 {
			s.genDuration.Observe(evt.Dur.Seconds())
		}
	case progress.StagePublishDone:
		class := string(evt.StatusClass)
		if class == "" {
			class = string(progress.StatusOther)
		}
		s.publishes.WithLabelValues(string(evt.Outcome), class).Inc()
		if evt.Outcome == progress.OutcomeSuccess {
			s.postsCreated.Inc()
		}
	}
}

func (s *PrometheusSink) finishJob(evt progress.Event, result string) {
	s.jobsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.jobRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
	if s.tracker.complete(evt.JobID) {
		s.jobsRunning.Dec()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

type jobTracker struct {
	mu      sync.Mutex
	running map[[16]byte]struct{}
}

func newJobTracker() *jobTracker {
	return &jobTracker{running: make(map[[16]byte]struct{})}
}

func (t *jobTracker) start(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; ok {
		return false
	}
	t.running[id] = struct{}{}
	return true
}

func (t *jobTracker) complete(id [16]byte) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[id]; !ok {
		return false
	}
	delete(t.running, id)
	return true
}
