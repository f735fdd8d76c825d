package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/storage"
)

var (
	archiveDaysAgo int
	archiveDir     string
	archivePath    string
	archiveInput   string
	archiveKeep    bool
)

// archiveCmd creates the "archive" subcommand.
func archiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Compact one past day of events into an archive file",
		Long: `Select the scraping events of one past day (one per URL, non-empty
extracted text only), write them to <dir>/event_date=YYYY-MM-DD.jsonl and
remove that day's raw events from the event log or MongoDB collection.`,
		RunE: runArchive,
	}

	cmd.Flags().IntVar(&archiveDaysAgo, "days-ago", 3, "archive the day this many days before today")
	cmd.Flags().StringVar(&archiveDir, "dir", "", "archive directory (default: <output dir>/archive)")
	cmd.Flags().StringVar(&archivePath, "path", "", "JSONL event log (default: storage.output_path)")
	cmd.Flags().StringVar(&archiveInput, "input", "", "event source: jsonl or mongo (default: cluster.input)")
	cmd.Flags().BoolVar(&archiveKeep, "keep", false, "keep the raw events after archiving")

	return cmd
}

func runArchive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if archiveInput != "" {
		cfg.Cluster.Input = archiveInput
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if archiveDaysAgo < 0 {
		return fmt.Errorf("--days-ago must be >= 0")
	}
	logger := setupLogger(cfg)

	loc, err := cfg.Harvest.Location()
	if err != nil {
		return err
	}
	day := time.Now().In(loc).AddDate(0, 0, -archiveDaysAgo)
	date := day.Format("2006-01-02")

	ctx, cancel := signalContext(logger)
	defer cancel()

	logPath := archivePath
	if logPath == "" {
		logPath = cfg.Storage.OutputPath
	}
	dir := archiveDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(cfg.Storage.OutputPath), "archive")
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Archiving data for date: %s\n", date)

	var on, rest []*storage.Event
	var mongo *storage.MongoStorage
	if cfg.Cluster.Input == "mongo" {
		mongo, err = storage.NewMongoStorage(ctx, cfg.Storage.Mongo, logger)
		if err != nil {
			return err
		}
		defer mongo.Close()
		if on, err = mongo.LoadDay(ctx, day, loc); err != nil {
			return err
		}
	} else {
		events, skipped, err := storage.ReadEvents(logPath)
		if err != nil {
			return err
		}
		if skipped > 0 {
			logger.Warn("skipped malformed event lines", "path", logPath, "count", skipped)
		}
		on, rest = storage.SplitDay(events, day, loc)
	}

	if len(on) == 0 {
		fmt.Fprintf(out, "No data found for date: %s\n", date)
		return nil
	}

	selected := storage.SelectEvents(on)
	target := filepath.Join(dir, "event_date="+date+".jsonl")
	if err := storage.WriteEvents(target, selected); err != nil {
		return err
	}
	logger.Info("archive written", "path", target, "events", len(on), "archived", len(selected))

	if archiveKeep {
		return nil
	}
	if mongo != nil {
		n, err := mongo.DeleteDay(ctx, day, loc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Deleted %d raw events\n", n)
		return nil
	}
	if err := storage.WriteEvents(logPath, rest); err != nil {
		return fmt.Errorf("rewrite event log: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d raw events from %s\n", len(on), logPath)
	return nil
}
