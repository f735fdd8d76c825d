package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// CLI flags are applied by the caller on the returned Config.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("HARVESTGOAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The ingestion endpoint keeps its deployment-wide name.
	_ = v.BindEnv("storage.endpoint", "HARVESTGOAT_STORAGE_ENDPOINT", "PIPELINE_ENDPOINT")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("harvestgoat")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".harvestgoat"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing file is fine unless one was asked for explicitly.
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides of
// unset keys are picked up by Unmarshal.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("harvest.concurrency", cfg.Harvest.Concurrency)
	v.SetDefault("harvest.max_items", cfg.Harvest.MaxItems)
	v.SetDefault("harvest.timezone", cfg.Harvest.Timezone)
	v.SetDefault("harvest.today_only", cfg.Harvest.TodayOnly)
	v.SetDefault("harvest.sources", cfg.Harvest.Sources)
	v.SetDefault("harvest.sources_file", cfg.Harvest.SourcesFile)
	v.SetDefault("harvest.interval", cfg.Harvest.Interval)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.max_retries", cfg.Fetcher.MaxRetries)
	v.SetDefault("fetcher.retry_delay", cfg.Fetcher.RetryDelay)
	v.SetDefault("fetcher.user_agents", cfg.Fetcher.UserAgents)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.tls_insecure", cfg.Fetcher.TLSInsecure)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.rate_limit", cfg.Fetcher.RateLimit)
	v.SetDefault("fetcher.rate_burst", cfg.Fetcher.RateBurst)
	v.SetDefault("fetcher.browser.stealth", cfg.Fetcher.Browser.Stealth)
	v.SetDefault("fetcher.browser.max_pages", cfg.Fetcher.Browser.MaxPages)
	v.SetDefault("fetcher.browser.wait_stable", cfg.Fetcher.Browser.WaitStable)
	v.SetDefault("fetcher.browser.user_data_dir", cfg.Fetcher.Browser.UserDataDir)

	v.SetDefault("extract.enabled", cfg.Extract.Enabled)
	v.SetDefault("extract.require_extracted", cfg.Extract.RequireExtracted)

	v.SetDefault("cluster.threshold", cfg.Cluster.Threshold)
	v.SetDefault("cluster.stopwords_path", cfg.Cluster.StopwordsPath)
	v.SetDefault("cluster.dict_path", cfg.Cluster.DictPath)
	v.SetDefault("cluster.input", cfg.Cluster.Input)

	v.SetDefault("storage.backends", cfg.Storage.Backends)
	v.SetDefault("storage.endpoint", cfg.Storage.Endpoint)
	v.SetDefault("storage.max_payload_bytes", cfg.Storage.MaxPayloadBytes)
	v.SetDefault("storage.timeout", cfg.Storage.Timeout)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo.uri", cfg.Storage.Mongo.URI)
	v.SetDefault("storage.mongo.database", cfg.Storage.Mongo.Database)
	v.SetDefault("storage.mongo.collection", cfg.Storage.Mongo.Collection)

	v.SetDefault("dedup.enabled", cfg.Dedup.Enabled)
	v.SetDefault("dedup.path", cfg.Dedup.Path)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
