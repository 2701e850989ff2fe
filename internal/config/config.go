package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "CONFIG_FILE"

// Config defines the pipeline configuration
type Config struct {
	Dataset DatasetConfig `yaml:"dataset"`
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Output  OutputConfig  `yaml:"output"`
	Jobs    JobsConfig    `yaml:"jobs"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Cache   CacheConfig   `yaml:"cache"`
	Log     LogConfig     `yaml:"log"`
}

type DatasetConfig struct {
	Name    string `yaml:"name"`
	DataDir string `yaml:"data_dir"`
}

type HTTPConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type StoreConfig struct {
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type JobsConfig struct {
	Timeout string `yaml:"timeout"`
}

type FetchConfig struct {
	RetryAttempts uint   `yaml:"retry_attempts"`
	Timeout       string `yaml:"timeout"`
	AllowRemote   bool   `yaml:"allow_remote"` // let API jobs read http(s) tables
}

type CacheConfig struct {
	MaxTables int    `yaml:"max_tables"`
	TTL       string `yaml:"ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// Default returns the configuration that reproduces the original analysis
func Default() *Config {
	return &Config{
		Dataset: DatasetConfig{Name: "Copy of Mouse_Data_Student_Copy.xlsx", DataDir: "data"},
		HTTP:    HTTPConfig{Addr: "8080", ShutdownTimeout: "10s"},
		Store:   StoreConfig{SQLitePath: "pipeline.db"},
		Output:  OutputConfig{Dir: "outputs"},
		Jobs:    JobsConfig{Timeout: "5m"},
		Fetch:   FetchConfig{RetryAttempts: 3, Timeout: "30s"},
		Cache:   CacheConfig{MaxTables: 64, TTL: "10m"},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Load starts from Default, applies the YAML file named by CONFIG_FILE (optional)
// and overrides the result with environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(configPathEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Dataset.DataDir) == "" {
		return nil, errors.New("config: dataset data dir required")
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// applyEnv overrides settings from the environment. Unset variables keep
// the file or default value.
func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"ACTIVITY_DATASET":               &c.Dataset.Name,
		"ACTIVITY_DATA_DIR":              &c.Dataset.DataDir,
		"ACTIVITY_HTTP_ADDR":             &c.HTTP.Addr,
		"ACTIVITY_HTTP_SHUTDOWN_TIMEOUT": &c.HTTP.ShutdownTimeout,
		"ACTIVITY_SQLITE_PATH":           &c.Store.SQLitePath,
		"ACTIVITY_POSTGRES_DSN":          &c.Store.PostgresDSN,
		"ACTIVITY_OUTPUT_DIR":            &c.Output.Dir,
		"ACTIVITY_JOB_TIMEOUT":           &c.Jobs.Timeout,
		"ACTIVITY_FETCH_TIMEOUT":         &c.Fetch.Timeout,
		"ACTIVITY_CACHE_TTL":             &c.Cache.TTL,
		"LOG_LEVEL":                      &c.Log.Level,
		"LOG_FORMAT":                     &c.Log.Format,
	}
	for key, field := range overrides {
		if v, ok := os.LookupEnv(key); ok {
			*field = v
		}
	}

	if v, ok := os.LookupEnv("ACTIVITY_FETCH_RETRY_ATTEMPTS"); ok {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return fmt.Errorf("config: parse ACTIVITY_FETCH_RETRY_ATTEMPTS: %w", err)
		}
		c.Fetch.RetryAttempts = uint(n)
	}
	if v, ok := os.LookupEnv("ACTIVITY_FETCH_ALLOW_REMOTE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: parse ACTIVITY_FETCH_ALLOW_REMOTE: %w", err)
		}
		c.Fetch.AllowRemote = b
	}
	if v, ok := os.LookupEnv("ACTIVITY_CACHE_MAX_TABLES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: parse ACTIVITY_CACHE_MAX_TABLES: %w", err)
		}
		c.Cache.MaxTables = n
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	addr := strings.TrimSpace(c.HTTP.Addr)
	if addr == "" {
		addr = "8080"
	}
	if strings.Contains(addr, ":") {
		return addr
	}
	return fmt.Sprintf(":%s", addr)
}

// ShutdownTimeout parses the graceful shutdown budget, defaulting to 10s
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDurationOr(c.HTTP.ShutdownTimeout, 10*time.Second)
}

// FetchTimeout parses the remote fetch timeout, defaulting to 30s
func (c *Config) FetchTimeout() time.Duration {
	return parseDurationOr(c.Fetch.Timeout, 30*time.Second)
}

// CacheTTL parses the table cache TTL, defaulting to 10m
func (c *Config) CacheTTL() time.Duration {
	return parseDurationOr(c.Cache.TTL, 10*time.Minute)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
