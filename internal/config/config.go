package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for canvasd
type Config struct {
	// Server configuration
	HTTPPort int    `env:"CANVASD_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"CANVASD_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage configuration
	Store StoreConfig

	// Redis configuration
	Redis RedisConfig

	// Postgres configuration
	Postgres PostgresConfig

	// LLM configuration
	LLM LLMConfig

	// Image enrichment configuration
	Enrichment EnrichmentConfig

	// Event bus configuration
	Bus BusConfig

	// Pipeline configuration
	Pipeline PipelineConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Backend string `env:"STORE_BACKEND" envDefault:"redis"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"ANTHROPIC_API_KEY"`

	Model          string        `env:"LLM_MODEL" envDefault:"claude-sonnet-4-5"`
	MaxTokens      int64         `env:"LLM_MAX_TOKENS" envDefault:"8000"`
	RequestTimeout time.Duration `env:"LLM_REQUEST_TIMEOUT" envDefault:"120s"`
}

// EnrichmentConfig holds image enrichment configuration. Enrichment is
// optional: without an API key the phase is skipped.
type EnrichmentConfig struct {
	APIKey         string        `env:"GEMINI_API_KEY"`
	Model          string        `env:"ENRICH_MODEL" envDefault:"gemini-3-pro-image-preview"`
	MaxRetries     int           `env:"ENRICH_MAX_RETRIES" envDefault:"3"`
	InitialBackoff time.Duration `env:"ENRICH_INITIAL_BACKOFF" envDefault:"2s"`
	AttemptTimeout time.Duration `env:"ENRICH_ATTEMPT_TIMEOUT" envDefault:"45s"`
}

// BusConfig holds event bus configuration
type BusConfig struct {
	ReplayTTL       time.Duration `env:"BUS_REPLAY_TTL" envDefault:"60s"`
	MonitorInterval time.Duration `env:"BUS_MONITOR_INTERVAL" envDefault:"30s"`
}

// PipelineConfig holds pipeline orchestration configuration
type PipelineConfig struct {
	UnitTimeout time.Duration `env:"PIPELINE_UNIT_TIMEOUT" envDefault:"300s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	switch c.Store.Backend {
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres DSN is required")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported store backend: %s (must be redis, postgres, or memory)", c.Store.Backend)
	}

	if c.LLM.APIKey == "" {
		return fmt.Errorf("anthropic API key is required")
	}
	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	if c.Bus.ReplayTTL <= 0 {
		return fmt.Errorf("bus replay TTL must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
