package config

import (
	"time"
	_ "time/tzdata"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for HarvestGoat.
type Config struct {
	Harvest HarvestConfig `mapstructure:"harvest" yaml:"harvest"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Extract ExtractConfig `mapstructure:"extract" yaml:"extract"`
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	Dedup   DedupConfig   `mapstructure:"dedup"   yaml:"dedup"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// HarvestConfig controls a harvest run.
type HarvestConfig struct {
	Concurrency int           `mapstructure:"concurrency"  yaml:"concurrency"`
	MaxItems    int           `mapstructure:"max_items"    yaml:"max_items"`
	Timezone    string        `mapstructure:"timezone"     yaml:"timezone"`
	TodayOnly   bool          `mapstructure:"today_only"   yaml:"today_only"`
	Sources     []string      `mapstructure:"sources"      yaml:"sources"`
	SourcesFile string        `mapstructure:"sources_file" yaml:"sources_file"`
	Interval    time.Duration `mapstructure:"interval"     yaml:"interval"`
}

// FetcherConfig controls outbound requests.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"       yaml:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"       yaml:"retry_delay"`
	UserAgents      []string      `mapstructure:"user_agents"       yaml:"user_agents"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	RateLimit       float64       `mapstructure:"rate_limit"        yaml:"rate_limit"` // requests per second per host, 0 = unlimited
	RateBurst       int           `mapstructure:"rate_burst"        yaml:"rate_burst"`
	Browser         BrowserConfig `mapstructure:"browser"           yaml:"browser"`
}

// BrowserConfig controls the headless browser used by sources that need
// client-side rendering.
type BrowserConfig struct {
	Stealth     bool          `mapstructure:"stealth"       yaml:"stealth"`
	MaxPages    int           `mapstructure:"max_pages"     yaml:"max_pages"`
	WaitStable  time.Duration `mapstructure:"wait_stable"   yaml:"wait_stable"`
	UserDataDir string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
}

// ExtractConfig controls the content-diff stage for HTML sources.
type ExtractConfig struct {
	Enabled          bool `mapstructure:"enabled"           yaml:"enabled"`
	RequireExtracted bool `mapstructure:"require_extracted" yaml:"require_extracted"`
}

// ClusterConfig controls the offline clustering command.
type ClusterConfig struct {
	Threshold     float64 `mapstructure:"threshold"      yaml:"threshold"`
	StopwordsPath string  `mapstructure:"stopwords_path" yaml:"stopwords_path"`
	DictPath      string  `mapstructure:"dict_path"      yaml:"dict_path"`
	Input         string  `mapstructure:"input"          yaml:"input"` // jsonl or mongo
}

// StorageConfig controls where harvested articles are handed off.
type StorageConfig struct {
	Backends        []string      `mapstructure:"backends"          yaml:"backends"`
	Endpoint        string        `mapstructure:"endpoint"          yaml:"endpoint"`
	MaxPayloadBytes int           `mapstructure:"max_payload_bytes" yaml:"max_payload_bytes"`
	Timeout         time.Duration `mapstructure:"timeout"           yaml:"timeout"`
	OutputPath      string        `mapstructure:"output_path"       yaml:"output_path"`
	Mongo           MongoConfig   `mapstructure:"mongo"             yaml:"mongo"`
}

// MongoConfig locates the event archive collection.
type MongoConfig struct {
	URI        string `mapstructure:"uri"        yaml:"uri"`
	Database   string `mapstructure:"database"   yaml:"database"`
	Collection string `mapstructure:"collection" yaml:"collection"`
}

// DedupConfig controls the cross-run seen-URL index.
type DedupConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Harvest: HarvestConfig{
			Concurrency: 3,
			Timezone:    "Asia/Hong_Kong",
			TodayOnly:   true,
		},
		Fetcher: FetcherConfig{
			RequestTimeout: 10 * time.Second,
			MaxRetries:     3,
			RetryDelay:     1 * time.Second,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxRedirects:    10,
			IdleConnTimeout: 90 * time.Second,
			MaxIdleConns:    100,
			RateLimit:       2,
			RateBurst:       2,
			Browser: BrowserConfig{
				Stealth:    true,
				MaxPages:   2,
				WaitStable: 300 * time.Millisecond,
			},
		},
		Extract: ExtractConfig{
			Enabled: true,
		},
		Cluster: ClusterConfig{
			Threshold: 0.8,
			Input:     "jsonl",
		},
		Storage: StorageConfig{
			Backends:        []string{"jsonl"},
			MaxPayloadBytes: 990_000,
			Timeout:         60 * time.Second,
			OutputPath:      "./output/events.jsonl",
			Mongo: MongoConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "harvestgoat",
				Collection: "events",
			},
		},
		Dedup: DedupConfig{
			Enabled: false,
			Path:    "./output/seen.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}

// Location resolves the configured timezone.
func (h HarvestConfig) Location() (*time.Location, error) {
	if h.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(h.Timezone)
}
