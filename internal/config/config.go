package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/liamcoop/aquasens/internal/logger"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Logging is shared by every binary.
type Logging struct {
	LogLevel        string `env:"LOG_LEVEL"         envDefault:"INFO"`
	ErrorSampleRate int    `env:"ERROR_SAMPLE_RATE" envDefault:"1"`
	OTELEnabled     bool   `env:"OTEL_ENABLED"      envDefault:"false"`
}

// LoggerOptions converts the logging settings for logger.Configure.
func (l Logging) LoggerOptions(serviceName string) logger.Options {
	return logger.Options{
		Level:           l.LogLevel,
		ErrorSampleRate: l.ErrorSampleRate,
		OTELEnabled:     l.OTELEnabled,
		ServiceName:     serviceName,
	}
}

// ServerConfig configures the prediction API.
type ServerConfig struct {
	Logging

	Port            int           `env:"PORT"             envDefault:"8080"`
	ServiceName     string        `env:"OTEL_SERVICE_NAME" envDefault:"aquasens-api"`
	StoreDriver     string        `env:"STORE_DRIVER"     envDefault:"postgres"`
	DatabaseURL     string        `env:"DATABASE_URL"`
	SQLitePath      string        `env:"SQLITE_PATH"      envDefault:"aquasens.db"`
	MigrateOnStart  bool          `env:"MIGRATE_ON_START" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT"  envDefault:"60s"`
	SlowRequest     time.Duration `env:"SLOW_REQUEST_THRESHOLD" envDefault:"2s"`

	ScorerURL             string        `env:"SCORER_URL"              envDefault:"http://localhost:5001"`
	ScorerTimeout         time.Duration `env:"SCORER_TIMEOUT"          envDefault:"10s"`
	ScorerMaxRetries      int           `env:"SCORER_MAX_RETRIES"      envDefault:"0"`
	ScorerBreakerFailures uint32        `env:"SCORER_BREAKER_FAILURES" envDefault:"5"`
	ScorerBreakerOpenFor  time.Duration `env:"SCORER_BREAKER_OPEN_FOR" envDefault:"30s"`

	JWTSecret string `env:"AUTH_JWT_SECRET"`
	JWTIssuer string `env:"AUTH_JWT_ISSUER"`
}

// LoadServer reads and validates ServerConfig from the environment.
func LoadServer() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field rules.
func (c *ServerConfig) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q (use postgres, sqlite or memory)", c.StoreDriver))
	}

	if strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	}
	if strings.TrimSpace(c.ScorerURL) == "" {
		errs = append(errs, errors.New("SCORER_URL is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.ScorerMaxRetries < 0 {
		errs = append(errs, errors.New("SCORER_MAX_RETRIES must not be negative"))
	}
	errs = append(errs,
		positive("SCORER_TIMEOUT", c.ScorerTimeout),
		positive("SCORER_BREAKER_OPEN_FOR", c.ScorerBreakerOpenFor),
		positive("SHUTDOWN_TIMEOUT", c.ShutdownTimeout),
		positive("REQUEST_TIMEOUT", c.RequestTimeout),
		positive("SLOW_REQUEST_THRESHOLD", c.SlowRequest),
	)
	// Every scoring attempt must finish inside the request deadline so the
	// scoring error, not the router's timeout, answers the request.
	if budget := c.ScorerTimeout * time.Duration(max(c.ScorerMaxRetries, 0)+1); c.ScorerTimeout > 0 && c.RequestTimeout <= budget {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed SCORER_TIMEOUT x attempts (%s)", c.RequestTimeout, budget))
	}

	return errors.Join(errs...)
}

// ScorerConfig configures the development scoring service.
type ScorerConfig struct {
	Logging

	Port            int           `env:"PORT"              envDefault:"5001"`
	ServiceName     string        `env:"OTEL_SERVICE_NAME" envDefault:"aquasens-scorer"`
	TreeFile        string        `env:"TREE_FILE"`
	MaxTraceSteps   int           `env:"MAX_TRACE_STEPS"   envDefault:"5"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"10s"`
}

// LoadScorer reads and validates ScorerConfig from the environment.
func LoadScorer() (*ScorerConfig, error) {
	var cfg ScorerConfig
	if err := ParseEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *ScorerConfig) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.MaxTraceSteps < 1 {
		errs = append(errs, errors.New("MAX_TRACE_STEPS must be at least 1"))
	}
	errs = append(errs, positive("SHUTDOWN_TIMEOUT", c.ShutdownTimeout))
	return errors.Join(errs...)
}

func positive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}
