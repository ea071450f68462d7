// Package pipeline runs one job: expand a seed keyword, then generate and
// publish an article per keyword with a pause between posts.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/autoblog/internal/blog"
	"github.com/JakeFAU/autoblog/internal/progress"
)

// DefaultPostDelay is the pause after each keyword.
const DefaultPostDelay = 5 * time.Second

// Config controls Runner behavior.
type Config struct {
	// PostDelay is slept after every keyword, including the last one and
	// keywords whose generation failed. Zero disables the pause.
	PostDelay time.Duration
}

// Runner executes the expand/generate/publish loop. Step failures are
// recorded in the Report and never stop the loop; only ctx cancellation ends
// a run early.
type Runner struct {
	expander  blog.Expander
	generator blog.Generator
	publisher blog.Publisher
	clock     blog.Clock
	emitter   progress.Emitter
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. A nil emitter discards progress events.
func New(
	expander blog.Expander,
	generator blog.Generator,
	publisher blog.Publisher,
	clock blog.Clock,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if emitter == nil {
		emitter = progress.NopEmitter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		expander:  expander,
		generator: generator,
		publisher: publisher,
		clock:     clock,
		emitter:   emitter,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run processes up to count keywords derived from seed.
func (r *Runner) Run(ctx context.Context, jobID, seed string, count int) blog.Report {
	log := r.logger.With(zap.String("job_id", jobID), zap.String("seed", seed))
	ev := r.newEmitter(jobID, log)
	start := r.clock.Now()

	log.Info("job started", zap.Int("count", count))
	ev.emit(progress.Event{Stage: progress.StageJobStart, Keyword: seed, Count: count})

	report := blog.Report{JobID: jobID, Seed: seed}
	report.Expansion = r.expander.Expand(ctx, seed, count)
	r.emitExpansion(ev, log, report.Expansion)

	for _, keyword := range report.Expansion.Keywords {
		if ctx.Err() != nil {
			report.Canceled = true
			break
		}
		report.Items = append(report.Items, r.processKeyword(ctx, ev, log, keyword))

		if err := r.clock.Sleep(ctx, r.cfg.PostDelay); err != nil {
			report.Canceled = true
			break
		}
	}

	elapsed := r.clock.Now().Sub(start)
	stage := progress.StageJobDone
	if report.Canceled {
		stage = progress.StageJobCanceled
		log.Warn("job canceled", zap.Int("processed", len(report.Items)), zap.Duration("elapsed", elapsed))
	} else {
		log.Info("job finished",
			zap.Int("keywords", len(report.Items)),
			zap.Int("published", report.Published()),
			zap.Duration("elapsed", elapsed))
	}
	ev.emit(progress.Event{Stage: stage, Keyword: seed, Count: report.Published(), Dur: elapsed})
	return report
}

func (r *Runner) processKeyword(ctx context.Context, ev eventEmitter, log *zap.Logger, keyword string) blog.ItemResult {
	itemStart := r.clock.Now()
	item := blog.ItemResult{Keyword: keyword}

	draft := r.generator.Generate(ctx, keyword)
	item.Generated = draft.OK()
	item.BodyLen = len(draft.Body)
	item.GenerateErr = draft.Err
	genEvt := progress.Event{
		Stage:   progress.StageGenerateDone,
		Keyword: keyword,
		Outcome: progress.OutcomeSuccess,
		Dur:     r.clock.Now().Sub(itemStart),
	}
	if !draft.OK() {
		genEvt.Outcome = progress.OutcomeError
		if draft.Err != nil {
			genEvt.Note = draft.Err.Error()
		}
		log.Warn("generation failed", zap.String("keyword", keyword), zap.Error(draft.Err))
	}
	ev.emit(genEvt)

	if draft.OK() {
		outcome := r.publisher.Publish(ctx, keyword, draft.Body)
		ev.emit(publishEvent(keyword, outcome))
		if !outcome.Published {
			log.Warn("publish failed",
				zap.String("keyword", keyword),
				zap.Int("status", outcome.StatusCode),
				zap.Error(outcome.Err))
		}
		// Response text is not retained; a created post echoes the article.
		outcome.Body = ""
		item.Outcome = &outcome
	}

	item.Duration = r.clock.Now().Sub(itemStart)
	return item
}

func (r *Runner) emitExpansion(ev eventEmitter, log *zap.Logger, exp blog.Expansion) {
	evt := progress.Event{
		Stage:   progress.StageExpandDone,
		Keyword: exp.Seed,
		Outcome: progress.OutcomeSuccess,
		Count:   len(exp.Keywords),
	}
	if exp.Fallback {
		evt.Outcome = progress.OutcomeFallback
		if exp.Err != nil {
			evt.Note = exp.Err.Error()
		}
		log.Warn("keyword expansion fell back to seed", zap.Error(exp.Err))
	} else {
		log.Debug("keywords expanded", zap.Strings("keywords", exp.Keywords))
	}
	ev.emit(evt)
}

func publishEvent(keyword string, out blog.PublishOutcome) progress.Event {
	evt := progress.Event{
		Stage:   progress.StagePublishDone,
		Keyword: keyword,
		Outcome: progress.OutcomeSuccess,
	}
	switch {
	case out.Err != nil:
		evt.Outcome = progress.OutcomeError
		evt.Note = out.Err.Error()
	case !out.Published:
		evt.Outcome = progress.OutcomeFailed
		evt.StatusClass = progress.ClassifyStatus(out.StatusCode)
	default:
		evt.StatusClass = progress.ClassifyStatus(out.StatusCode)
	}
	return evt
}

// eventEmitter stamps job id and time onto events. Job ids that are not
// UUIDs disable emission.
type eventEmitter struct {
	emitter progress.Emitter
	clock   blog.Clock
	jobID   [16]byte
	enabled bool
}

func (r *Runner) newEmitter(jobID string, log *zap.Logger) eventEmitter {
	id, err := progress.ParseJobID(jobID)
	if err != nil {
		log.Debug("progress events disabled for job", zap.Error(err))
		return eventEmitter{}
	}
	return eventEmitter{emitter: r.emitter, clock: r.clock, jobID: id, enabled: true}
}

func (e eventEmitter) emit(evt progress.Event) {
	if !e.enabled {
		return
	}
	evt.JobID = e.jobID
	evt.TS = e.clock.Now()
	e.emitter.Emit(evt)
}
