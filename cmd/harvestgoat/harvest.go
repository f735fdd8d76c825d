package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/engine"
	"github.com/IshaanNene/harvestgoat/internal/observability"
	"github.com/IshaanNene/harvestgoat/internal/pipeline"
	"github.com/IshaanNene/harvestgoat/internal/source"
	"github.com/IshaanNene/harvestgoat/internal/storage"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

var (
	harvestSources     []string
	harvestEvery       time.Duration
	harvestConcurrency int
	harvestMaxItems    int
	harvestBackends    []string
	harvestAllDates    bool
)

// harvestCmd creates the "harvest" subcommand.
func harvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Harvest the configured sources and forward their articles",
		Long: `Run every enabled source once, in configured order, and hand the
resulting articles to the storage backends. Sources that fail are reported
together after all sources were attempted; the command then exits non-zero.

With --every the run repeats on the given interval until interrupted.`,
		RunE: runHarvest,
	}

	cmd.Flags().StringSliceVarP(&harvestSources, "source", "s", nil, "source names to run (default: all enabled)")
	cmd.Flags().DurationVar(&harvestEvery, "every", 0, "repeat the run on this interval")
	cmd.Flags().IntVarP(&harvestConcurrency, "concurrency", "n", 0, "detail fetches in flight per source")
	cmd.Flags().IntVarP(&harvestMaxItems, "max-items", "m", 0, "cap on listed items per source (0 = config)")
	cmd.Flags().StringSliceVar(&harvestBackends, "backend", nil, "storage backends: pipeline, jsonl, mongo")
	cmd.Flags().BoolVar(&harvestAllDates, "all-dates", false, "forward articles regardless of their date")

	return cmd
}

func applyHarvestOverrides(cfg *config.Config) {
	if len(harvestSources) > 0 {
		cfg.Harvest.Sources = harvestSources
	}
	if harvestEvery > 0 {
		cfg.Harvest.Interval = harvestEvery
	}
	if harvestConcurrency > 0 {
		cfg.Harvest.Concurrency = harvestConcurrency
	}
	if harvestMaxItems > 0 {
		cfg.Harvest.MaxItems = harvestMaxItems
	}
	if len(harvestBackends) > 0 {
		cfg.Storage.Backends = harvestBackends
	}
	if harvestAllDates {
		cfg.Harvest.TodayOnly = false
	}
}

func runHarvest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyHarvestOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg)

	ctx, cancel := signalContext(logger)
	defer cancel()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		srv := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		defer srv.Close()
	}

	f, err := buildFetcher(cfg, metrics, logger)
	if err != nil {
		return err
	}
	defer f.Close()

	registry, err := source.Load(cfg, f, logger)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	adapters, err := registry.Select(cfg.Harvest.Sources)
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, &cfg.Storage, f, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	var seen pipeline.SeenChecker
	if cfg.Dedup.Enabled {
		index, err := storage.NewSeenStore(cfg.Dedup.Path)
		if err != nil {
			return fmt.Errorf("open seen index: %w", err)
		}
		defer index.Close()
		seen = index
		store = storage.NewMarkingStorage(store, index)
	}

	mw, err := pipeline.Build(cfg, seen, logger)
	if err != nil {
		return err
	}

	runner := engine.NewRunner(cfg, store, mw, metrics, logger)
	logger.Info("starting harvest",
		"sources", len(adapters),
		"concurrency", cfg.Harvest.Concurrency,
		"backends", cfg.Storage.Backends,
		"interval", cfg.Harvest.Interval,
	)

	if cfg.Harvest.Interval > 0 {
		return runner.RunEvery(ctx, adapters, cfg.Harvest.Interval)
	}

	report, err := runner.Run(ctx, adapters)
	printRunReport(cmd, report)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func printRunReport(cmd *cobra.Command, report *engine.RunReport) {
	if report == nil {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nRun %s finished in %s\n", report.RunID, report.Duration.Round(time.Millisecond))
	for _, s := range report.Sources {
		status := "ok"
		if s.Err != nil {
			status = "FAILED"
			var se *types.SourceError
			if errors.As(s.Err, &se) {
				status = "FAILED (" + se.Stage + ")"
			}
		}
		fmt.Fprintf(out, "  %-14s listed %3d  parsed %3d  forwarded %3d  dropped %3d  %s\n",
			s.Name, s.Listed, s.Parsed, s.Forwarded, s.Dropped, status)
	}
}
