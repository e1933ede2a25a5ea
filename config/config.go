// Package config provides configuration management for ffiguard.
package config

import (
	"time"

	"github.com/victoralfred/ffiguard/internal/envutil"
	"github.com/victoralfred/ffiguard/observability"
	"github.com/victoralfred/ffiguard/resilience"
	"github.com/victoralfred/ffiguard/task"
)

// Environment variables overriding individual settings. They are applied
// after file loading, so deployment environments win over shipped files.
const (
	EnvMaxLive          = "FFIGUARD_MAX_LIVE"
	EnvSpawnRate        = "FFIGUARD_SPAWN_RATE"
	EnvSpawnBurst       = "FFIGUARD_SPAWN_BURST"
	EnvRateLimitEnabled = "FFIGUARD_RATE_LIMIT_ENABLED"
	EnvBreakerEnabled   = "FFIGUARD_BREAKER_ENABLED"
	EnvBreakerFailures  = "FFIGUARD_BREAKER_FAILURES"
	EnvBreakerTimeout   = "FFIGUARD_BREAKER_TIMEOUT"
	EnvAuditEnabled     = "FFIGUARD_AUDIT_ENABLED"
	EnvAuditBasePath    = "FFIGUARD_AUDIT_BASE_PATH"
	EnvAuditFilePath    = "FFIGUARD_AUDIT_FILE_PATH"
	EnvTracingEnabled   = "FFIGUARD_TRACING_ENABLED"
	EnvMetricsEnabled   = "FFIGUARD_METRICS_ENABLED"
)

// Config is the main configuration for ffiguard.
type Config struct {
	CircuitBreaker resilience.CircuitBreakerConfig
	RateLimiter    resilience.RateLimiterConfig
	Telemetry      observability.TelemetryConfig
	Audit          observability.AuditConfig
	Registry       RegistryConfig
}

// RegistryConfig configures task registries.
type RegistryConfig struct {
	// MaxLive caps concurrently held handles per registry.
	MaxLive int

	// EnableRateLimit gates spawns through the rate limiter.
	EnableRateLimit bool

	// EnableBreaker gates spawns through the circuit breaker.
	EnableBreaker bool

	// EnableMetrics collects in-process task statistics.
	EnableMetrics bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Registry: RegistryConfig{
			MaxLive:         task.DefaultMaxLive,
			EnableRateLimit: true,
			EnableBreaker:   true,
			EnableMetrics:   true,
		},
		RateLimiter:    resilience.DefaultRateLimiterConfig(),
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(),
		Telemetry:      observability.DefaultTelemetryConfig(),
		Audit:          observability.DefaultAuditConfig(),
	}
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	cfg := DefaultConfig()
	cfg.Registry.MaxLive = 4096
	cfg.RateLimiter.DefaultLimit = 1000
	cfg.RateLimiter.DefaultBurst = 2000
	cfg.CircuitBreaker.FailureThreshold = 10
	cfg.Telemetry.Environment = "development"
	cfg.Audit.LogLevel = observability.AuditLogAll
	return cfg
}

// ProductionConfig returns configuration suitable for production.
func ProductionConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimiter.DefaultLimit = 100
	cfg.RateLimiter.DefaultBurst = 150
	cfg.CircuitBreaker.FailureThreshold = 5
	cfg.CircuitBreaker.Timeout = 60 * time.Second
	cfg.CircuitBreaker.RecoveryBackoff = &resilience.BackoffConfig{
		InitialInterval: 60 * time.Second,
		MaxInterval:     15 * time.Minute,
		Multiplier:      2.0,
	}
	cfg.Telemetry.Environment = "production"
	cfg.Audit.LogLevel = observability.AuditLogFailures
	return cfg
}

// RestrictedConfig returns highly restrictive configuration.
func RestrictedConfig() Config {
	cfg := ProductionConfig()
	cfg.Registry.MaxLive = 64
	cfg.RateLimiter.DefaultLimit = 10
	cfg.RateLimiter.DefaultBurst = 20
	cfg.CircuitBreaker.FailureThreshold = 3
	return cfg
}

// Validate normalizes out-of-range settings.
func (c *Config) Validate() error {
	if c.Registry.MaxLive <= 0 {
		c.Registry.MaxLive = task.DefaultMaxLive
	}

	if c.RateLimiter.DefaultLimit <= 0 {
		c.RateLimiter.DefaultLimit = resilience.DefaultRateLimiterConfig().DefaultLimit
	}

	if c.RateLimiter.DefaultBurst <= 0 {
		c.RateLimiter.DefaultBurst = resilience.DefaultRateLimiterConfig().DefaultBurst
	}

	if c.CircuitBreaker.FailureThreshold <= 0 {
		c.CircuitBreaker.FailureThreshold = resilience.DefaultCircuitBreakerConfig().FailureThreshold
	}

	if c.CircuitBreaker.SuccessThreshold <= 0 {
		c.CircuitBreaker.SuccessThreshold = resilience.DefaultCircuitBreakerConfig().SuccessThreshold
	}

	if c.CircuitBreaker.Timeout <= 0 {
		c.CircuitBreaker.Timeout = resilience.DefaultCircuitBreakerConfig().Timeout
	}

	if c.Audit.MaxErrorSize <= 0 {
		c.Audit.MaxErrorSize = observability.DefaultAuditConfig().MaxErrorSize
	}

	switch c.Audit.LogLevel {
	case observability.AuditLogAll, observability.AuditLogFailures, observability.AuditLogErrors:
	default:
		c.Audit.LogLevel = observability.DefaultAuditConfig().LogLevel
	}

	return nil
}

// ApplyEnvOverrides overlays FFIGUARD_* environment variables onto the
// configuration.
func (c *Config) ApplyEnvOverrides() {
	c.Registry.MaxLive = envutil.Int(EnvMaxLive, c.Registry.MaxLive)
	c.Registry.EnableRateLimit = envutil.Bool(EnvRateLimitEnabled, c.Registry.EnableRateLimit)
	c.Registry.EnableBreaker = envutil.Bool(EnvBreakerEnabled, c.Registry.EnableBreaker)

	c.RateLimiter.DefaultLimit = envutil.Float(EnvSpawnRate, c.RateLimiter.DefaultLimit)
	c.RateLimiter.DefaultBurst = envutil.Int(EnvSpawnBurst, c.RateLimiter.DefaultBurst)

	c.CircuitBreaker.FailureThreshold = envutil.Int(EnvBreakerFailures, c.CircuitBreaker.FailureThreshold)
	c.CircuitBreaker.Timeout = envutil.Duration(EnvBreakerTimeout, c.CircuitBreaker.Timeout)

	c.Audit.Enabled = envutil.Bool(EnvAuditEnabled, c.Audit.Enabled)
	c.Audit.BasePath = envutil.String(EnvAuditBasePath, c.Audit.BasePath)
	c.Audit.FilePath = envutil.String(EnvAuditFilePath, c.Audit.FilePath)

	c.Telemetry.EnableTracing = envutil.Bool(EnvTracingEnabled, c.Telemetry.EnableTracing)
	c.Telemetry.EnableMetrics = envutil.Bool(EnvMetricsEnabled, c.Telemetry.EnableMetrics)
}
