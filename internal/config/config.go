package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Global singleton for packages that cannot take injected config
var globalConfig *Config

// Config holds all environment backed configuration for chat-api.
type Config struct {
	// HTTP Server
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9091"`
	DatabaseURL string `env:"DATABASE_URL,notEmpty"`

	// Session auth
	SessionSecret   []byte        `env:"SESSION_SECRET,notEmpty"`
	SessionIssuer   string        `env:"SESSION_ISSUER" envDefault:"knowledge-assist"`
	SessionAudience string        `env:"SESSION_AUDIENCE" envDefault:"chat-api"`
	AuthClockSkew   time.Duration `env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// Answer engine
	EngineBaseURL string        `env:"ENGINE_BASE_URL,notEmpty"`
	EngineAPIKey  string        `env:"ENGINE_API_KEY"`
	EngineTimeout time.Duration `env:"ENGINE_TIMEOUT" envDefault:"120s"`

	// Provisional chunk janitor
	JanitorEnabled         bool          `env:"CHUNK_JANITOR_ENABLED" envDefault:"true"`
	JanitorIntervalMinutes int           `env:"CHUNK_JANITOR_INTERVAL_MINUTES" envDefault:"30"`
	ProvisionalMaxAge      time.Duration `env:"PROVISIONAL_CHUNK_MAX_AGE" envDefault:"24h"`

	// Observability / Logging
	HTTPTimeout      time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string        `env:"OTEL_EXPORTER_OTLP_HEADERS"`
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"chat-api"`
	ServiceNamespace string        `env:"SERVICE_NAMESPACE" envDefault:"kassist"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"console"`

	// Features
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"true"`

	// Internal
	EnvReloadedAt time.Time
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if len(cfg.SessionSecret) < 16 {
		return nil, errors.New("SESSION_SECRET must be at least 16 bytes")
	}

	if _, err := url.ParseRequestURI(cfg.EngineBaseURL); err != nil {
		return nil, fmt.Errorf("invalid ENGINE_BASE_URL: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.EnvReloadedAt = time.Now()

	globalConfig = cfg

	return cfg, nil
}

// GetGlobal returns the global config instance.
// Deprecated: Use dependency injection with Load() instead.
func GetGlobal() *Config {
	return globalConfig
}

// GetEnvReloadedAt returns when the environment was last reloaded
func GetEnvReloadedAt() time.Time {
	if globalConfig != nil {
		return globalConfig.EnvReloadedAt
	}
	return time.Time{}
}

var Version = "dev"

func IsDev() bool {
	return strings.HasPrefix(Version, "dev")
}
