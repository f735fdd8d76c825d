package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/extract"
	"github.com/IshaanNene/harvestgoat/internal/observability"
	"github.com/IshaanNene/harvestgoat/internal/pipeline"
	"github.com/IshaanNene/harvestgoat/internal/source"
	"github.com/IshaanNene/harvestgoat/internal/storage"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

// SourceReport summarises one source within a run.
type SourceReport struct {
	Name      string
	Listed    int
	Parsed    int
	Forwarded int
	Dropped   int
	Duration  time.Duration
	Err       error
}

// RunReport summarises a run.
type RunReport struct {
	RunID    string
	Sources  []SourceReport
	Duration time.Duration
}

// Runner harvests sources one at a time and forwards their articles.
type Runner struct {
	harvester *Harvester
	extractor *extract.Pipeline
	pipeline  *pipeline.Pipeline
	storage   storage.Storage
	opts      Options
	extract   bool
	stats     *Stats
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner creates a Runner. mw may be nil to forward every article.
func NewRunner(cfg *config.Config, st storage.Storage, mw *pipeline.Pipeline, metrics *observability.Metrics, logger *slog.Logger) *Runner {
	stats := NewStats()
	if mw == nil {
		mw = pipeline.New(logger)
	}
	return &Runner{
		harvester: NewHarvester(stats, metrics, logger),
		extractor: extract.NewPipeline(logger),
		pipeline:  mw,
		storage:   st,
		opts: Options{
			Concurrency: cfg.Harvest.Concurrency,
			MaxItems:    cfg.Harvest.MaxItems,
		},
		extract: cfg.Extract.Enabled,
		stats:   stats,
		metrics: metrics,
		logger:  logger.With("component", "runner"),
		now:     time.Now,
	}
}

// Stats returns the runner's statistics.
func (r *Runner) Stats() *Stats { return r.stats }

// Run harvests every adapter in order. After all of them were attempted it
// returns a *types.RunError naming the sources that failed: a listing
// error, no articles, or a storage failure. Cancelling ctx stops the run
// before the next source.
func (r *Runner) Run(ctx context.Context, adapters []source.Adapter) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{RunID: uuid.NewString()}
	logger := r.logger.With("run_id", report.RunID)
	logger.Info("run starting", "sources", len(adapters))

	runErr := &types.RunError{}
	for _, a := range adapters {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		sr := r.runSource(ctx, a, report.RunID, logger)
		report.Sources = append(report.Sources, sr)
		r.stats.SourcesRun.Add(1)
		r.stats.updateSource(sr.Name, func(ss *SourceStats) {
			*ss = SourceStats{
				Listed:   sr.Listed,
				Parsed:   sr.Parsed,
				Stored:   sr.Forwarded,
				Dropped:  sr.Dropped,
				Failed:   sr.Err != nil,
				LastRun:  start,
				Duration: sr.Duration,
			}
		})

		if sr.Err != nil {
			r.stats.SourcesFailed.Add(1)
			r.metrics.SourceFailed(sr.Name)
			logger.Error("source failed", "source", sr.Name, "error", sr.Err)
			runErr.Sources = append(runErr.Sources, sr.Name)
			runErr.Errs = append(runErr.Errs, sr.Err)
		}
	}

	report.Duration = time.Since(start)
	r.metrics.ObserveRun(report.Duration)
	logger.Info("run finished", "duration", report.Duration, "stats", r.stats.Snapshot())

	if len(runErr.Sources) > 0 {
		return report, runErr
	}
	return report, nil
}

func (r *Runner) runSource(ctx context.Context, a source.Adapter, runID string, logger *slog.Logger) SourceReport {
	name := a.Name()
	logger = logger.With("source", name)
	sr := SourceReport{Name: name}

	res, err := r.harvester.Harvest(ctx, a, r.opts)
	sr.Listed = res.Listed
	sr.Parsed = len(res.Articles)
	sr.Dropped = len(res.Drops)
	sr.Duration = res.Duration
	if err != nil {
		sr.Err = err
		return sr
	}
	if len(res.Articles) == 0 {
		sr.Err = &types.SourceError{Source: name, Stage: "harvest", Err: types.ErrNoArticles}
		return sr
	}

	records := res.Articles
	if r.extract && a.Descriptor().ContentType == types.ContentHTML {
		records = r.extractor.Apply(records)
		sr.Dropped += len(res.Articles) - len(records)
	}

	for _, rec := range records {
		out, stage, err := r.pipeline.Process(rec)
		if err != nil {
			logger.Warn("pipeline error, dropping article", "id", rec.ID, "error", err)
			r.drop(name, "pipeline_error", &sr)
			continue
		}
		if out == nil {
			r.drop(name, stage, &sr)
			continue
		}

		ev := storage.NewEvent(name, runID, out, r.now())
		if err := r.storage.Store(ctx, ev); err != nil {
			if errors.Is(err, types.ErrPayloadTooLarge) {
				r.drop(name, "too_large", &sr)
				continue
			}
			sr.Err = &types.SourceError{Source: name, Stage: "store", Err: err}
			return sr
		}
		sr.Forwarded++
		r.stats.ArticlesStored.Add(1)
		r.metrics.ArticleStored(r.storage.Name())
	}

	logger.Info("source forwarded", "forwarded", sr.Forwarded, "dropped", sr.Dropped)
	return sr
}

func (r *Runner) drop(source, reason string, sr *SourceReport) {
	sr.Dropped++
	r.stats.ArticlesDropped.Add(1)
	r.metrics.ArticleDropped(source, reason)
}

// RunEvery runs immediately and then once per interval until ctx is
// cancelled. Failed runs are logged and do not stop the loop.
func (r *Runner) RunEvery(ctx context.Context, adapters []source.Adapter, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.Run(ctx, adapters); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.logger.Error("run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
