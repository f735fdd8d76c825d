package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/harvestgoat/internal/config"
	"github.com/IshaanNene/harvestgoat/internal/fetcher"
	"github.com/IshaanNene/harvestgoat/internal/observability"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "harvestgoat",
		Short: "HarvestGoat — scheduled news harvesting and story clustering",
		Long: `HarvestGoat polls HTML pages, JSON APIs, RSS feeds and Telegram channel
mirrors, normalizes every entry into one article record, isolates new page
text by diffing neighbouring pages, and forwards the results downstream.

The cluster command groups the day's articles by textual similarity.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(harvestCmd())
	rootCmd.AddCommand(clusterCmd())
	rootCmd.AddCommand(archiveCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Logging.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down...", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// buildFetcher wires the HTTP fetcher and a lazily started browser behind
// a router, each with retries.
func buildFetcher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (fetcher.Fetcher, error) {
	httpFetcher, err := fetcher.NewHTTPFetcher(&cfg.Fetcher, logger, fetcher.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	retrying := func(f fetcher.Fetcher) fetcher.Fetcher {
		return fetcher.NewRetrying(f, cfg.Fetcher.MaxRetries, cfg.Fetcher.RetryDelay, metrics, logger)
	}

	browser := fetcher.NewLazy("browser", func() (fetcher.Fetcher, error) {
		bf, err := fetcher.NewBrowserFetcher(&cfg.Fetcher, metrics, logger)
		if err != nil {
			return nil, err
		}
		return retrying(bf), nil
	})
	return fetcher.NewRouter(retrying(httpFetcher), browser), nil
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("HarvestGoat %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}
