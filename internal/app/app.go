// Package app builds the service's dependency graph and runs it.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/autoblog/internal/api"
	"github.com/JakeFAU/autoblog/internal/blog"
	"github.com/JakeFAU/autoblog/internal/clock/system"
	"github.com/JakeFAU/autoblog/internal/config"
	"github.com/JakeFAU/autoblog/internal/dispatcher"
	"github.com/JakeFAU/autoblog/internal/feed"
	"github.com/JakeFAU/autoblog/internal/generator"
	"github.com/JakeFAU/autoblog/internal/id/uuid"
	"github.com/JakeFAU/autoblog/internal/keywords"
	"github.com/JakeFAU/autoblog/internal/llm"
	"github.com/JakeFAU/autoblog/internal/llm/anthropic"
	"github.com/JakeFAU/autoblog/internal/llm/openai"
	"github.com/JakeFAU/autoblog/internal/logging"
	"github.com/JakeFAU/autoblog/internal/pipeline"
	"github.com/JakeFAU/autoblog/internal/progress"
	progresssinks "github.com/JakeFAU/autoblog/internal/progress/sinks"
	"github.com/JakeFAU/autoblog/internal/publisher"
	memorypublisher "github.com/JakeFAU/autoblog/internal/publisher/memory"
	"github.com/JakeFAU/autoblog/internal/publisher/wordpress"
	"github.com/JakeFAU/autoblog/internal/storage/memory"
	"github.com/JakeFAU/autoblog/internal/trends"
)

const shutdownTimeout = 10 * time.Second

// Options tweak Build for embedding and tests.
type Options struct {
	// Logger overrides the logger built from configuration.
	Logger *zap.Logger
	// Registerer receives the progress metrics; nil means the default registry.
	Registerer prometheus.Registerer
	// TrendSource, Completer and ContentStore override the configured remotes.
	TrendSource  blog.TrendSource
	Completer    blog.Completer
	ContentStore blog.ContentStore
}

// App contains the application's dependencies.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	feed        *feed.Feed
	jobs        *memory.JobStore
	dispatch    *dispatcher.Dispatcher
	apiServer   *api.Server
	progressHub *progress.Hub
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
	}
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("publisher", cfg.Publisher.Kind),
		zap.Duration("post_delay", cfg.Pipeline.PostDelay),
	)

	app.feed = feed.New(cfg.Feed.Capacity, logger.Named("feed"))
	app.jobs = memory.NewJobStore(memory.WithMaxFinished(cfg.Jobs.MaxFinished))

	emitter, err := app.setupProgress(ctx, opts.Registerer)
	if err != nil {
		return nil, err
	}

	source := opts.TrendSource
	if source == nil {
		source = trends.NewGoogleClient(trends.Config{
			BaseURL:   cfg.Trends.BaseURL,
			HL:        cfg.Trends.HL,
			TZ:        cfg.Trends.TZ,
			Timeframe: cfg.Trends.Timeframe,
			Geo:       cfg.Trends.Geo,
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTPTimeout(),
		}, logger.Named("trends"))
	}
	completer := opts.Completer
	if completer == nil {
		completer, err = app.setupCompleter()
		if err != nil {
			return nil, err
		}
	}
	store := opts.ContentStore
	if store == nil {
		store, err = app.setupContentStore()
		if err != nil {
			return nil, err
		}
	}

	runner := pipeline.New(
		keywords.New(source, app.feed),
		generator.New(completer, app.feed),
		publisher.New(store, app.feed),
		system.New(),
		emitter,
		pipeline.Config{PostDelay: cfg.Pipeline.PostDelay},
		logger.Named("pipeline"),
	)
	app.dispatch = dispatcher.New(runner, app.jobs, uuid.New(), logger.Named("dispatcher"))
	app.apiServer = api.NewServer(
		api.Config{RequestTimeout: cfg.HTTPTimeout()},
		app.feed,
		app.dispatch,
		app.jobs,
		logger.Named("api"),
	)
	return app, nil
}

func (a *App) setupCompleter() (blog.Completer, error) {
	llmCfg := llm.Config{
		BaseURL:     a.cfg.LLM.BaseURL,
		APIKey:      a.cfg.LLM.APIKey,
		Model:       a.cfg.LLM.Model,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
		Timeout:     a.cfg.HTTPTimeout(),
		UserAgent:   a.cfg.HTTP.UserAgent,
	}
	switch a.cfg.LLM.Provider {
	case config.ProviderOpenAI:
		a.logger.Info("using openai completion provider", zap.String("model", llmCfg.Model))
		return openai.New(llmCfg), nil
	case config.ProviderAnthropic:
		a.logger.Info("using anthropic completion provider", zap.String("model", llmCfg.Model))
		return anthropic.New(llmCfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", a.cfg.LLM.Provider)
	}
}

func (a *App) setupContentStore() (blog.ContentStore, error) {
	switch a.cfg.Publisher.Kind {
	case config.PublisherWordPress:
		a.logger.Info("using wordpress content store",
			zap.String("url", a.cfg.Publisher.URL),
			zap.String("status", a.cfg.Publisher.Status))
		return wordpress.New(wordpress.Config{
			URL:         a.cfg.Publisher.URL,
			Username:    a.cfg.Publisher.Username,
			AppPassword: a.cfg.Publisher.AppPassword,
			Status:      a.cfg.Publisher.Status,
			Timeout:     a.cfg.HTTPTimeout(),
			UserAgent:   a.cfg.HTTP.UserAgent,
		}), nil
	case config.PublisherMemory:
		a.logger.Warn("using in-memory content store; posts are not published anywhere")
		return memorypublisher.New(), nil
	default:
		return nil, fmt.Errorf("unsupported publisher kind %q", a.cfg.Publisher.Kind)
	}
}

func (a *App) setupProgress(ctx context.Context, reg prometheus.Registerer) (progress.Emitter, error) {
	if !a.cfg.Progress.Enabled {
		a.logger.Info("progress tracking disabled")
		return nil, nil
	}
	promSink, err := progresssinks.NewPrometheusSink(reg)
	if err != nil {
		return nil, fmt.Errorf("progress metrics init failed: %w", err)
	}
	sinkList := []progress.Sink{promSink}
	if a.cfg.Progress.LogEnabled {
		sinkList = append(sinkList, progresssinks.NewLogSink(a.logger.Named("progress_log")))
		a.logger.Debug("added progress log sink")
	}
	hubCfg := progress.Config{
		BufferSize:  a.cfg.Progress.BufferSize,
		BaseContext: context.WithoutCancel(ctx),
		Logger:      a.logger.Named("progress_hub"),
	}
	a.progressHub = progress.NewHub(hubCfg, sinkList...)
	a.logger.Info("progress hub initialized", zap.Int("sinks", len(sinkList)))
	return a.progressHub, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Feed returns the shared log feed.
func (a *App) Feed() *feed.Feed {
	return a.feed
}

// Run serves the web endpoint until ctx is canceled or SIGINT/SIGTERM
// arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	closeErr := a.Close(shutdownCtx)

	if err := <-serveErr; err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return closeErr
}

// RunOnce executes a single job in the foreground and waits for it. The job
// is canceled when ctx is.
func (a *App) RunOnce(ctx context.Context, seed string, count int) (blog.Report, error) {
	h, err := a.dispatch.Submit(ctx, seed, count)
	if err != nil {
		return blog.Report{}, fmt.Errorf("submit job: %w", err)
	}
	report, err := h.Wait(ctx)
	if err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := a.dispatch.Shutdown(shutdownCtx); shutdownErr != nil {
			a.logger.Warn("dispatcher shutdown failed", zap.Error(shutdownErr))
		}
		if r, ok := h.Report(); ok {
			return r, nil
		}
		return blog.Report{}, err
	}
	return report, nil
}

// Close stops running jobs and flushes observers.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.dispatch.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
	_ = a.logger.Sync()
	return errors.Join(errs...)
}
