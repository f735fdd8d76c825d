package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/harvestgoat/internal/cluster"
	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/storage"
	"github.com/IshaanNene/harvestgoat/internal/types"
)

var (
	clusterInput     string
	clusterPath      string
	clusterDay       string
	clusterThreshold float64
	clusterWidth     int
)

// clusterCmd creates the "cluster" subcommand.
func clusterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group one day's articles by textual similarity",
		Long: `Load the scraping events recorded on one day, keep one article per URL
with non-empty extracted text, and group articles whose TF-IDF cosine
similarity exceeds the threshold. Articles that match nothing are not listed.`,
		RunE: runCluster,
	}

	cmd.Flags().StringVar(&clusterInput, "input", "", "event source: jsonl or mongo (default: config)")
	cmd.Flags().StringVar(&clusterPath, "path", "", "JSONL event log (default: storage.output_path)")
	cmd.Flags().StringVar(&clusterDay, "day", "", "day to cluster as YYYY-MM-DD (default: today)")
	cmd.Flags().Float64VarP(&clusterThreshold, "threshold", "t", 0, "similarity threshold (default: config)")
	cmd.Flags().IntVar(&clusterWidth, "width", 80, "maximum display width of a title line")

	return cmd
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if clusterInput != "" {
		cfg.Cluster.Input = clusterInput
	}
	if clusterThreshold > 0 {
		cfg.Cluster.Threshold = clusterThreshold
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := setupLogger(cfg)

	loc, err := cfg.Harvest.Location()
	if err != nil {
		return err
	}
	day, err := parseDay(clusterDay, loc, time.Now())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	events, err := loadDayEvents(ctx, cfg, clusterPath, day, loc, logger)
	if err != nil {
		return err
	}
	articles := storage.SelectForClustering(events)
	logger.Info("articles selected", "events", len(events), "articles", len(articles), "day", day.Format("2006-01-02"))

	seg, err := cluster.NewGSESegmenter(cfg.Cluster.DictPath)
	if err != nil {
		return err
	}
	stopwords, err := cluster.LoadStopwords(cfg.Cluster.StopwordsPath)
	if err != nil {
		return err
	}

	start := time.Now()
	clusters := cluster.NewEngine(seg, stopwords).ClusterArticles(articles, cfg.Cluster.Threshold)
	logger.Debug("clustering complete", "duration", time.Since(start))

	printClusters(cmd.OutOrStdout(), articles, clusters, clusterWidth)
	return nil
}

// parseDay parses YYYY-MM-DD in loc; an empty value means the day of now.
func parseDay(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if s == "" {
		return now.In(loc), nil
	}
	day, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return day, nil
}

// loadDayEvents reads the events recorded on day from the configured input.
func loadDayEvents(ctx context.Context, cfg *config.Config, path string, day time.Time, loc *time.Location, logger *slog.Logger) ([]*storage.Event, error) {
	if cfg.Cluster.Input == "mongo" {
		store, err := storage.NewMongoStorage(ctx, cfg.Storage.Mongo, logger)
		if err != nil {
			return nil, err
		}
		defer store.Close()
		return store.LoadDay(ctx, day, loc)
	}

	if path == "" {
		path = cfg.Storage.OutputPath
	}
	events, skipped, err := storage.ReadEvents(path)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn("skipped malformed event lines", "path", path, "count", skipped)
	}
	on, _ := storage.SplitDay(events, day, loc)
	return on, nil
}

func printClusters(w io.Writer, articles []*types.Article, clusters [][]int, width int) {
	fmt.Fprintf(w, "Number of clusters: %d\n", len(clusters))
	for i, members := range clusters {
		fmt.Fprintf(w, "\nCluster %d (size: %d):\n", i+1, len(members))
		for _, idx := range members {
			fmt.Fprintf(w, "- %s\n", displayTitle(articles[idx].Title, width-2))
		}
	}
}

// displayTitle fits a title into width terminal cells. CJK characters
// take two cells.
func displayTitle(title string, width int) string {
	title = strings.Join(strings.Fields(title), " ")
	if width <= 0 || runewidth.StringWidth(title) <= width {
		return title
	}
	return runewidth.Truncate(title, width, "…")
}
