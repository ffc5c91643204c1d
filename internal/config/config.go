package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the bookdex API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Cache    CacheConfig    `yaml:"cache"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Download DownloadConfig `yaml:"download"`
	TTL      TTLConfig      `yaml:"ttl"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig holds API authentication settings. An empty key list
// disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CatalogConfig holds the relational full-text store connection settings.
type CatalogConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds cache backend connection settings.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// UpstreamConfig holds settings for the scraped upstream site and its mirrors.
type UpstreamConfig struct {
	BaseURL       string `yaml:"base_url"`
	MirrorBaseURL string `yaml:"mirror_base_url"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	UserAgent     string `yaml:"user_agent"`
}

// DownloadConfig holds temporary-download settings.
type DownloadConfig struct {
	Dir              string `yaml:"dir"`
	MirrorTimeoutSec int    `yaml:"mirror_timeout_sec"`
}

// TTLConfig holds per-namespace cache expirations, in hours.
type TTLConfig struct {
	SearchHours        int `yaml:"search_hours"`
	CoverHours         int `yaml:"cover_hours"`
	MetadataHours      int `yaml:"metadata_hours"`
	DownloadLinksHours int `yaml:"download_links_hours"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Mirror downloads can take a while to stream through.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Catalog.MaxOpenConns <= 0 {
		c.Catalog.MaxOpenConns = 16
	}
	if c.Catalog.MaxIdleConns <= 0 {
		c.Catalog.MaxIdleConns = 4
	}
	if c.Catalog.ConnMaxLifetimeSec <= 0 {
		c.Catalog.ConnMaxLifetimeSec = 300
	}
	if c.Catalog.ReadinessTimeout <= 0 {
		c.Catalog.ReadinessTimeout = 10
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = "https://libgen.is"
	}
	if c.Upstream.MirrorBaseURL == "" {
		c.Upstream.MirrorBaseURL = "http://library.lol"
	}
	if c.Upstream.TimeoutSec <= 0 {
		c.Upstream.TimeoutSec = 30
	}
	if c.Upstream.UserAgent == "" {
		c.Upstream.UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/119.0"
	}
	if c.Download.Dir == "" {
		c.Download.Dir = "temp"
	}
	if c.Download.MirrorTimeoutSec <= 0 {
		c.Download.MirrorTimeoutSec = 60
	}
	if c.TTL.SearchHours <= 0 {
		c.TTL.SearchHours = 12
	}
	if c.TTL.CoverHours <= 0 {
		c.TTL.CoverHours = 7 * 24
	}
	if c.TTL.MetadataHours <= 0 {
		c.TTL.MetadataHours = 14 * 24
	}
	if c.TTL.DownloadLinksHours <= 0 {
		c.TTL.DownloadLinksHours = 5 * 24
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Catalog.DSN == "" {
		return fmt.Errorf("catalog.dsn is required")
	}
	if len(c.Cache.Addrs) == 0 {
		return fmt.Errorf("cache.addrs is required")
	}
	return nil
}

// SearchTTL returns the search-results cache expiration.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.TTL.SearchHours) * time.Hour
}

// CoverTTL returns the cover cache expiration.
func (c *Config) CoverTTL() time.Duration {
	return time.Duration(c.TTL.CoverHours) * time.Hour
}

// MetadataTTL returns the metadata cache expiration.
func (c *Config) MetadataTTL() time.Duration {
	return time.Duration(c.TTL.MetadataHours) * time.Hour
}

// DownloadLinksTTL returns the download-links cache expiration.
func (c *Config) DownloadLinksTTL() time.Duration {
	return time.Duration(c.TTL.DownloadLinksHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
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
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
