package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. VICDASH_API_BASE_URL.
const EnvPrefix = "VICDASH"

// RepoConfigName is the per-directory config file found by walking upward.
const RepoConfigName = "vicdash.yaml"

// Config holds application configuration.
type Config struct {
	// APIBaseURL is the backend origin; /api is appended by the client
	APIBaseURL string `mapstructure:"api_base_url" json:"api_base_url"`

	// PageSize is the ideas page size
	PageSize int `mapstructure:"page_size" json:"page_size"`

	// DirectoryPageSize is the companies and users page size
	DirectoryPageSize int `mapstructure:"directory_page_size" json:"directory_page_size"`

	// RequestTimeout bounds each backend request
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`

	// RateLimitRPS paces outbound requests. 0 disables pacing.
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// CacheSize is the number of parameter sets kept per resource
	CacheSize int `mapstructure:"cache_size" json:"cache_size"`

	// CacheTTL is how long a successful read is served without refetch
	CacheTTL time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`

	// RetryDelay is the pause before the single automatic retry
	RetryDelay time.Duration `mapstructure:"retry_delay" json:"retry_delay"`

	// SessionLimit bounds the browser sessions the web UI tracks
	SessionLimit int `mapstructure:"session_limit" json:"session_limit"`

	Bind string `mapstructure:"bind" json:"bind"`
	Port int    `mapstructure:"port" json:"port"`

	// LogLevel is a logrus level name; LogFormat is "text" or "json"
	LogLevel  string `mapstructure:"log_level" json:"log_level"`
	LogFormat string `mapstructure:"log_format" json:"log_format"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `mapstructure:"disabled_tools" json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:        "http://localhost:8000",
		PageSize:          20,
		DirectoryPageSize: 50,
		RequestTimeout:    10 * time.Second,
		RateLimitRPS:      0,
		RateLimitBurst:    1,
		CacheSize:         256,
		CacheTTL:          30 * time.Second,
		RetryDelay:        250 * time.Millisecond,
		SessionLimit:      1024,
		Bind:              "127.0.0.1",
		Port:              8080,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// DefaultDir returns ~/.vicdash.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".vicdash"), nil
}

// Load reads configuration in increasing precedence: defaults,
// globalDir/config.yaml, the nearest vicdash.yaml at or above startDir,
// then VICDASH_* environment variables. A .env file in startDir is loaded
// into the environment first without overriding variables already set.
// Every file is optional. The directories are parameters so tests can use
// t.TempDir().
func Load(globalDir, startDir string) (*Config, error) {
	if startDir != "" {
		if err := godotenv.Load(filepath.Join(startDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	if globalDir != "" {
		if err := mergeFile(v, filepath.Join(globalDir, "config.yaml")); err != nil {
			return nil, err
		}
	}
	if repo := FindRepoConfig(startDir); repo != "" {
		if err := mergeFile(v, repo); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.DisabledTools = cleanList(cfg.DisabledTools)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "config",
		"api":       cfg.APIBaseURL,
		"file":      v.ConfigFileUsed(),
	}).Debug("configuration loaded")
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest vicdash.yaml.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	if startDir == "" {
		return ""
	}
	dir := startDir
	for {
		configPath := filepath.Join(dir, RepoConfigName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeFile merges path into v when it exists.
func mergeFile(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api_base_url", d.APIBaseURL)
	v.SetDefault("page_size", d.PageSize)
	v.SetDefault("directory_page_size", d.DirectoryPageSize)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("rate_limit_rps", d.RateLimitRPS)
	v.SetDefault("rate_limit_burst", d.RateLimitBurst)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("retry_delay", d.RetryDelay)
	v.SetDefault("session_limit", d.SessionLimit)
	v.SetDefault("bind", d.Bind)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("disabled_tools", []string{})
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("page_size must be between 1 and 1000, got %d", c.PageSize)
	}
	if c.DirectoryPageSize < 1 || c.DirectoryPageSize > 1000 {
		return fmt.Errorf("directory_page_size must be between 1 and 1000, got %d", c.DirectoryPageSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must not be negative")
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("cache_size must be at least 1")
	}
	if c.CacheTTL < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("cache_ttl and retry_delay must not be negative")
	}
	if c.SessionLimit < 1 {
		return fmt.Errorf("session_limit must be at least 1")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// Addr returns bind:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// cleanList trims whitespace and removes empties and duplicates.
func cleanList(in []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
