package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// ErrInvalid is returned by Validate for unusable settings.
var ErrInvalid = errors.New("invalid config")

// Config holds all guildgen configuration.
type Config struct {
	Listen    string          `yaml:"listen" env:"GUILDGEN_LISTEN"`
	DBPath    string          `yaml:"db_path" env:"GUILDGEN_DB_PATH"`
	Provider  ProviderConfig  `yaml:"provider"`
	Cache     CacheConfig     `yaml:"cache"`
	Usage     UsageConfig     `yaml:"usage"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProviderConfig defines the upstream OpenAI-compatible completion provider.
// Model, MaxTokens and Temperature are the defaults merged under caller options.
type ProviderConfig struct {
	URL         string        `yaml:"url" env:"GUILDGEN_PROVIDER_URL"`
	APIKey      string        `yaml:"api_key" env:"OPENROUTER_API_KEY"`
	Model       string        `yaml:"model" env:"GUILDGEN_MODEL"`
	MaxTokens   int           `yaml:"max_tokens" env:"GUILDGEN_MAX_TOKENS"`
	Temperature float64       `yaml:"temperature" env:"GUILDGEN_TEMPERATURE"`
	Timeout     time.Duration `yaml:"timeout" env:"GUILDGEN_PROVIDER_TIMEOUT"`
	Referer     string        `yaml:"referer" env:"GUILDGEN_REFERER"`
	Title       string        `yaml:"title" env:"GUILDGEN_TITLE"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" env:"GUILDGEN_CACHE_ENABLED"`
	TTL      time.Duration `yaml:"ttl" env:"GUILDGEN_CACHE_TTL"`
	Coalesce bool          `yaml:"coalesce" env:"GUILDGEN_CACHE_COALESCE"`
}

// UsageConfig controls the SQLite usage ledger.
type UsageConfig struct {
	Enabled bool `yaml:"enabled" env:"GUILDGEN_USAGE_ENABLED"`
}

// LogConfig controls the logger. Format is "text", "json" or "logfmt".
type LogConfig struct {
	Level  string `yaml:"level" env:"GUILDGEN_LOG_LEVEL"`
	Format string `yaml:"format" env:"GUILDGEN_LOG_FORMAT"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" env:"GUILDGEN_TRACING_ENABLED"`
	Exporter   string  `yaml:"exporter" env:"GUILDGEN_TRACING_EXPORTER"`
	Endpoint   string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	SampleRate float64 `yaml:"sample_rate" env:"GUILDGEN_TRACING_SAMPLE_RATE"`
	Insecure   bool    `yaml:"insecure" env:"GUILDGEN_TRACING_INSECURE"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":5001",
		DBPath: "guildgen.db",
		Provider: ProviderConfig{
			URL:         "https://openrouter.ai/api/v1",
			Model:       "meta-llama/llama-3.3-70b-instruct:free",
			MaxTokens:   300,
			Temperature: 0.7,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     time.Hour,
		},
		Usage: UsageConfig{
			Enabled: false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			Tracing: TracingConfig{
				Enabled:    false,
				Exporter:   "otlp",
				Endpoint:   "localhost:4317",
				SampleRate: 1.0,
				Insecure:   true,
			},
		},
	}
}

// Load reads a YAML config file, expands environment variables, and applies
// environment overrides. An empty path, or a path that does not exist,
// yields the defaults plus environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			expanded := os.ExpandEnv(string(data))
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Provider.URL == "" {
		return fmt.Errorf("%w: provider.url is required", ErrInvalid)
	}
	if c.Provider.MaxTokens <= 0 {
		return fmt.Errorf("%w: provider.max_tokens must be positive", ErrInvalid)
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("%w: provider.temperature must be between 0 and 2", ErrInvalid)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalid)
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("%w: provider.timeout must not be negative", ErrInvalid)
	}
	return nil
}
