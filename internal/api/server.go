package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/autoblog/internal/blog"
	"github.com/JakeFAU/autoblog/internal/dispatcher"
	"github.com/JakeFAU/autoblog/internal/metrics"
	"github.com/JakeFAU/autoblog/internal/storage/memory"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const (
	msgInvalidSubmission  = "Please enter a valid keyword and number of posts."
	defaultRequestTimeout = 60 * time.Second
	// maxFlashKeyword bounds the keyword echoed in the flash cookie.
	maxFlashKeyword       = 100
)

// Submitter starts a background job.
type Submitter interface {
	Submit(ctx context.Context, seed string, count int) (*dispatcher.Handle, error)
}

// Config controls server behavior.
type Config struct {
	RequestTimeout time.Duration
}

// Server wires HTTP handlers to the feed and the dispatcher.
type Server struct {
	router    chi.Router
	feed      blog.Feed
	submitter Submitter
	jobs      blog.JobStore
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	cfg Config,
	feed blog.Feed,
	submitter Submitter,
	jobs blog.JobStore,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	s := &Server{
		feed:      feed,
		submitter: submitter,
		jobs:      jobs,
		logger:    logger,
	}
	metrics.Init()

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(cfg.RequestTimeout))

	r.Get("/", s.index)
	r.Post("/", s.submit)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/feed", s.getFeed)
		r.Get("/jobs", s.listJobs)
		r.Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type indexPage struct {
	Flashes []flashMessage
	Logs    []string
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		Flashes: popFlashes(w, r),
		Logs:    s.feed.Snapshot(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Error("render index failed", zap.Error(err))
	}
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	seed, count, ok := parseSubmission(r)
	if !ok {
		metrics.ObserveSubmission("invalid")
		addFlash(w, r, flashWarning, msgInvalidSubmission)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	h, err := s.submitter.Submit(r.Context(), seed, count)
	if err != nil {
		metrics.ObserveSubmission("rejected")
		s.logger.Error("submit job failed", zap.String("seed", seed), zap.Error(err))
		msg := "Could not start job: " + err.Error()
		if errors.Is(err, dispatcher.ErrShuttingDown) {
			msg = "The server is shutting down; no new jobs are accepted."
		}
		addFlash(w, r, flashWarning, msg)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	metrics.ObserveSubmission("accepted")
	s.logger.Info("job accepted", zap.String("job_id", h.ID), zap.String("seed", seed), zap.Int("count", count))
	addFlash(w, r, flashInfo, "Started generating "+strconv.Itoa(count)+" posts for '"+truncate(seed, maxFlashKeyword)+"'. Check logs below.")
	http.Redirect(w, r, "/", http.StatusFound)
}

// parseSubmission requires a non-blank keyword and an integer num_posts >= 1.
func parseSubmission(r *http.Request) (string, int, bool) {
	if err := r.ParseForm(); err != nil {
		return "", 0, false
	}
	seed := strings.TrimSpace(r.PostForm.Get("keyword"))
	if seed == "" {
		return "", 0, false
	}
	count, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("num_posts")))
	if err != nil || count < 1 {
		return "", 0, false
	}
	return seed, count, true
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func (s *Server) getFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"lines": s.feed.Snapshot()})
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.jobs.ListJobs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	out := make([]jobView, len(jobs))
	for i, job := range jobs {
		out[i] = newJobView(job)
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.GetJob(r.Context(), chi.URLParam(r, "job_id"))
	if err != nil {
		if errors.Is(err, memory.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job": newJobView(job)})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
