package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the fedsearch API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Solr    SolrConfig    `yaml:"solr"`
	Search  SearchConfig  `yaml:"search"`
	Ingest  IngestConfig  `yaml:"ingest"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the Redis-compatible store used for search page cache and metadata.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	Standalone       bool     `yaml:"standalone"`
	DialTimeoutSec   int      `yaml:"dial_timeout_sec"`
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI              string `yaml:"uri"`
	Database         string `yaml:"database"`
	TimeoutSec       int    `yaml:"timeout_sec"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// SolrConfig holds search engine client settings.
type SolrConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSec      int    `yaml:"timeout_sec"`
	MaxRetries      int    `yaml:"max_retries"`
	BreakerFailures int    `yaml:"breaker_failures"`
	BreakerOpenSec  int    `yaml:"breaker_open_sec"`
}

// SearchConfig holds federated search settings.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	MaxFanOut    int `yaml:"max_fan_out"`
	CacheTTLSec  int `yaml:"cache_ttl_sec"`
}

// IngestConfig holds bulk upload settings.
type IngestConfig struct {
	UploadDir          string `yaml:"upload_dir"`
	MaxUploadBytes     int64  `yaml:"max_upload_bytes"`
	MaxJSONBytes       int64  `yaml:"max_json_bytes"`
	ProgressIntervalMs int    `yaml:"progress_interval_ms"`
	HeartbeatSec       int    `yaml:"heartbeat_sec"`
	GraceSec           int    `yaml:"grace_sec"`
	WriteTimeoutSec    int    `yaml:"write_timeout_sec"`
	MaxInFlight        int    `yaml:"max_in_flight"`
}

// ProgressInterval returns the progress polling interval.
func (c IngestConfig) ProgressInterval() time.Duration {
	return time.Duration(c.ProgressIntervalMs) * time.Millisecond
}

// Heartbeat returns the keep-alive interval for progress streams.
func (c IngestConfig) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatSec) * time.Second
}

// Grace returns how long a finished job stays observable.
func (c IngestConfig) Grace() time.Duration {
	return time.Duration(c.GraceSec) * time.Second
}

const gib = int64(1) << 30

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	setDefault(&c.HTTP.ReadTimeoutSec, 10)
	setDefault(&c.HTTP.WriteTimeoutSec, 10)
	setDefault(&c.HTTP.ShutdownSec, 10)

	setDefault(&c.Cache.ReadinessTimeout, 10)
	setDefault(&c.Cache.DialTimeoutSec, 5)
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "fedsearch:"
	}

	setDefault(&c.Mongo.TimeoutSec, 10)
	setDefault(&c.Mongo.ReadinessTimeout, 10)

	setDefault(&c.Solr.TimeoutSec, 30)
	if c.Solr.MaxRetries < 0 {
		c.Solr.MaxRetries = 0
	}
	setDefault(&c.Solr.BreakerFailures, 5)
	setDefault(&c.Solr.BreakerOpenSec, 30)

	setDefault(&c.Search.DefaultLimit, 50)
	setDefault(&c.Search.MaxLimit, 1000)
	setDefault(&c.Search.MaxFanOut, 16)
	setDefault(&c.Search.CacheTTLSec, 600)

	if c.Ingest.UploadDir == "" {
		c.Ingest.UploadDir = os.TempDir()
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		c.Ingest.MaxUploadBytes = 10 * gib
	}
	if c.Ingest.MaxJSONBytes <= 0 {
		c.Ingest.MaxJSONBytes = gib
	}
	setDefault(&c.Ingest.ProgressIntervalMs, 1000)
	setDefault(&c.Ingest.HeartbeatSec, 15)
	setDefault(&c.Ingest.GraceSec, 10)
	setDefault(&c.Ingest.WriteTimeoutSec, 120)
	setDefault(&c.Ingest.MaxInFlight, 3)
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database is required")
	}
	if c.Solr.BaseURL == "" {
		return fmt.Errorf("solr.base_url is required")
	}
	if u, err := url.Parse(c.Solr.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("solr.base_url must be an absolute URL, got %q", c.Solr.BaseURL)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("search.default_limit (%d) exceeds search.max_limit (%d)",
			c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	if c.Ingest.MaxJSONBytes > c.Ingest.MaxUploadBytes {
		return fmt.Errorf("ingest.max_json_bytes exceeds ingest.max_upload_bytes")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to the source file: internal/config -> project root
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
