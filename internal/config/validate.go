package config

import (
	"fmt"
	"net/url"
)

var validBackends = map[string]bool{
	"pipeline": true, "jsonl": true, "mongo": true,
}

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Harvest.Concurrency < 1 {
		return fmt.Errorf("harvest.concurrency must be >= 1, got %d", cfg.Harvest.Concurrency)
	}
	if cfg.Harvest.Concurrency > 100 {
		return fmt.Errorf("harvest.concurrency must be <= 100, got %d", cfg.Harvest.Concurrency)
	}
	if cfg.Harvest.MaxItems < 0 {
		return fmt.Errorf("harvest.max_items must be >= 0, got %d", cfg.Harvest.MaxItems)
	}
	if _, err := cfg.Harvest.Location(); err != nil {
		return fmt.Errorf("harvest.timezone %q: %w", cfg.Harvest.Timezone, err)
	}
	if cfg.Harvest.Interval < 0 {
		return fmt.Errorf("harvest.interval must be >= 0")
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxRetries < 0 {
		return fmt.Errorf("fetcher.max_retries must be >= 0, got %d", cfg.Fetcher.MaxRetries)
	}
	if cfg.Fetcher.RetryDelay < 0 {
		return fmt.Errorf("fetcher.retry_delay must be >= 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.RateLimit < 0 {
		return fmt.Errorf("fetcher.rate_limit must be >= 0")
	}

	if cfg.Cluster.Threshold < 0 || cfg.Cluster.Threshold > 1 {
		return fmt.Errorf("cluster.threshold must be within [0, 1], got %g", cfg.Cluster.Threshold)
	}
	if cfg.Cluster.Input != "jsonl" && cfg.Cluster.Input != "mongo" {
		return fmt.Errorf("cluster.input must be 'jsonl' or 'mongo', got %q", cfg.Cluster.Input)
	}

	if len(cfg.Storage.Backends) == 0 {
		return fmt.Errorf("storage.backends must name at least one backend")
	}
	for _, b := range cfg.Storage.Backends {
		if !validBackends[b] {
			return fmt.Errorf("storage.backends: %q is not supported (valid: pipeline, jsonl, mongo)", b)
		}
		if b == "pipeline" {
			if err := ValidateURL(cfg.Storage.Endpoint); err != nil {
				return fmt.Errorf("storage.endpoint: %w", err)
			}
		}
	}
	if cfg.Storage.MaxPayloadBytes <= 0 {
		return fmt.Errorf("storage.max_payload_bytes must be > 0")
	}

	if cfg.Dedup.Enabled && cfg.Dedup.Path == "" {
		return fmt.Errorf("dedup.path is required when dedup is enabled")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is an absolute http(s) URL.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
