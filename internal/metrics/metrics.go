// Package metrics exposes the Prometheus collectors for the web endpoint.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	jobSubmissionsTotal        *prometheus.CounterVec
	buildInfo                  *prometheus.GaugeVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
			},
			[]string{"method", "route"},
		)

		jobSubmissionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autoblog_job_submissions_total",
				Help: "Form submissions, labeled by result (accepted, invalid, rejected).",
			},
			[]string{"result"},
		)

		buildInfo = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "autoblog_build_info",
				Help: "Build information; value is always 1.",
			},
			[]string{"version"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetBuildInfo records the running version.
func SetBuildInfo(version string) {
	Init()
	buildInfo.WithLabelValues(version).Set(1)
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveSubmission counts a form submission by result.
func ObserveSubmission(result string) {
	Init()
	jobSubmissionsTotal.WithLabelValues(result).Inc()
}
