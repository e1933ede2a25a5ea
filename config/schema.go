package config

import (
	"fmt"
	"time"

	"github.com/victoralfred/ffiguard/observability"
	"github.com/victoralfred/ffiguard/resilience"
)

// FileConfig represents the YAML configuration structure. Sections are
// pointers so an absent section leaves the built-in defaults untouched,
// while a present section is applied as written.
type FileConfig struct {
	Registry       *RegistryFileConfig  `yaml:"registry"`
	RateLimit      *RateLimitFileConfig `yaml:"rate_limit"`
	CircuitBreaker *BreakerFileConfig   `yaml:"circuit_breaker"`
	Audit          *AuditFileConfig     `yaml:"audit"`
	Telemetry      *TelemetryFileConfig `yaml:"telemetry"`
	Metadata       Metadata             `yaml:"metadata"`
	Version        string               `yaml:"version"`
}

// Metadata contains configuration metadata.
type Metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Created     string `yaml:"created"`
	Updated     string `yaml:"updated"`
}

// RegistryFileConfig defines registry settings.
type RegistryFileConfig struct {
	MaxLive       int  `yaml:"max_live"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// RateLimitFileConfig defines spawn rate limit settings.
type RateLimitFileConfig struct {
	TaskLimits   map[string]TaskLimitFileConfig `yaml:"task_limits"`
	DefaultLimit float64                        `yaml:"default_limit"`
	DefaultBurst int                            `yaml:"default_burst"`
	Enabled      bool                           `yaml:"enabled"`
	PerTask      bool                           `yaml:"per_task"`
}

// TaskLimitFileConfig defines a per-task rate limit.
type TaskLimitFileConfig struct {
	Limit float64 `yaml:"limit"`
	Burst int     `yaml:"burst"`
}

// BreakerFileConfig defines circuit breaker settings.
type BreakerFileConfig struct {
	RecoveryBackoff  *BackoffFileConfig `yaml:"recovery_backoff"`
	FailureThreshold int                `yaml:"failure_threshold"`
	SuccessThreshold int                `yaml:"success_threshold"`
	Timeout          Duration           `yaml:"timeout"`
	Enabled          bool               `yaml:"enabled"`
	PerTask          bool               `yaml:"per_task"`
}

// BackoffFileConfig defines backoff settings.
type BackoffFileConfig struct {
	InitialInterval Duration `yaml:"initial_interval"`
	MaxInterval     Duration `yaml:"max_interval"`
	Multiplier      float64  `yaml:"multiplier"`
	MaxRetries      int      `yaml:"max_retries"`
	Jitter          bool     `yaml:"jitter"`
	JitterFactor    float64  `yaml:"jitter_factor"`
}

// AuditFileConfig defines audit settings.
type AuditFileConfig struct {
	LogLevel     string   `yaml:"log_level"`
	BasePath     string   `yaml:"base_path"`
	FilePath     string   `yaml:"file_path"`
	MaxErrorSize ByteSize `yaml:"max_error_size"`
	Enabled      bool     `yaml:"enabled"`
}

// TelemetryFileConfig defines telemetry settings.
type TelemetryFileConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
	MetricsPrefix  string `yaml:"metrics_prefix"`
	EnableTracing  bool   `yaml:"enable_tracing"`
	EnableMetrics  bool   `yaml:"enable_metrics"`
}

// ToConfig converts the file representation into a runtime Config by
// overlaying present sections onto the defaults. Callers normalize the
// result with Validate.
func (f *FileConfig) ToConfig() Config {
	cfg := DefaultConfig()

	if f.Registry != nil {
		if f.Registry.MaxLive > 0 {
			cfg.Registry.MaxLive = f.Registry.MaxLive
		}
		cfg.Registry.EnableMetrics = f.Registry.EnableMetrics
	}

	if f.RateLimit != nil {
		cfg.Registry.EnableRateLimit = f.RateLimit.Enabled
		cfg.RateLimiter.DefaultLimit = f.RateLimit.DefaultLimit
		cfg.RateLimiter.DefaultBurst = f.RateLimit.DefaultBurst
		cfg.RateLimiter.PerTask = f.RateLimit.PerTask
		if len(f.RateLimit.TaskLimits) > 0 {
			cfg.RateLimiter.TaskLimits = make(map[string]resilience.TaskLimit, len(f.RateLimit.TaskLimits))
			for name, tl := range f.RateLimit.TaskLimits {
				cfg.RateLimiter.TaskLimits[name] = resilience.TaskLimit{
					Limit: tl.Limit,
					Burst: tl.Burst,
				}
			}
		}
	}

	if f.CircuitBreaker != nil {
		cfg.Registry.EnableBreaker = f.CircuitBreaker.Enabled
		cfg.CircuitBreaker.FailureThreshold = f.CircuitBreaker.FailureThreshold
		cfg.CircuitBreaker.SuccessThreshold = f.CircuitBreaker.SuccessThreshold
		cfg.CircuitBreaker.Timeout = f.CircuitBreaker.Timeout.Duration
		cfg.CircuitBreaker.PerTask = f.CircuitBreaker.PerTask
		if rb := f.CircuitBreaker.RecoveryBackoff; rb != nil {
			cfg.CircuitBreaker.RecoveryBackoff = &resilience.BackoffConfig{
				InitialInterval: rb.InitialInterval.Duration,
				MaxInterval:     rb.MaxInterval.Duration,
				Multiplier:      rb.Multiplier,
				MaxRetries:      rb.MaxRetries,
				Jitter:          rb.Jitter,
				JitterFactor:    rb.JitterFactor,
			}
		}
	}

	if f.Audit != nil {
		cfg.Audit.Enabled = f.Audit.Enabled
		if f.Audit.LogLevel != "" {
			cfg.Audit.LogLevel = observability.AuditLogLevel(f.Audit.LogLevel)
		}
		if f.Audit.BasePath != "" {
			cfg.Audit.BasePath = f.Audit.BasePath
		}
		if f.Audit.FilePath != "" {
			cfg.Audit.FilePath = f.Audit.FilePath
		}
		if f.Audit.MaxErrorSize.Bytes > 0 {
			cfg.Audit.MaxErrorSize = int(f.Audit.MaxErrorSize.Bytes)
		}
	}

	if f.Telemetry != nil {
		if f.Telemetry.ServiceName != "" {
			cfg.Telemetry.ServiceName = f.Telemetry.ServiceName
		}
		if f.Telemetry.ServiceVersion != "" {
			cfg.Telemetry.ServiceVersion = f.Telemetry.ServiceVersion
		}
		if f.Telemetry.Environment != "" {
			cfg.Telemetry.Environment = f.Telemetry.Environment
		}
		if f.Telemetry.MetricsPrefix != "" {
			cfg.Telemetry.MetricsPrefix = f.Telemetry.MetricsPrefix
		}
		cfg.Telemetry.EnableTracing = f.Telemetry.EnableTracing
		cfg.Telemetry.EnableMetrics = f.Telemetry.EnableMetrics
	}

	return cfg
}

// Duration is a time.Duration that can be unmarshaled from YAML.
type Duration struct {
	time.Duration
}

// UnmarshalYAML unmarshals a duration from YAML.
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	duration, err := time.ParseDuration(s)
	if err != nil {
		return err
	}

	d.Duration = duration
	return nil
}

// MarshalYAML marshals a duration to YAML.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// ByteSize represents a size in bytes that can be unmarshaled from YAML.
type ByteSize struct {
	Bytes int64
}

// UnmarshalYAML unmarshals a byte size from YAML.
func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		// Try as int64
		var n int64
		if err := unmarshal(&n); err != nil {
			return err
		}
		b.Bytes = n
		return nil
	}

	bytes, err := parseByteSize(s)
	if err != nil {
		return err
	}

	b.Bytes = bytes
	return nil
}

// parseByteSize parses a byte size string like "10Mi", "1Gi", etc.
func parseByteSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}

	// Find the numeric part
	var numStr string
	var suffix string
	for i, c := range s {
		if c < '0' || c > '9' {
			numStr = s[:i]
			suffix = s[i:]
			break
		}
	}
	if numStr == "" {
		numStr = s
	}

	var num int64
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return 0, err
	}

	// Parse suffix
	multiplier := int64(1)
	switch suffix {
	case "", "B":
		multiplier = 1
	case "K", "KB":
		multiplier = 1000
	case "Ki", "KiB":
		multiplier = 1024
	case "M", "MB":
		multiplier = 1000 * 1000
	case "Mi", "MiB":
		multiplier = 1024 * 1024
	case "G", "GB":
		multiplier = 1000 * 1000 * 1000
	case "Gi", "GiB":
		multiplier = 1024 * 1024 * 1024
	case "T", "TB":
		multiplier = 1000 * 1000 * 1000 * 1000
	case "Ti", "TiB":
		multiplier = 1024 * 1024 * 1024 * 1024
	}

	return num * multiplier, nil
}

// MarshalYAML marshals a byte size to YAML.
func (b ByteSize) MarshalYAML() (interface{}, error) {
	if b.Bytes == 0 {
		return "0", nil
	}

	// Use binary suffixes
	units := []struct {
		suffix string
		size   int64
	}{
		{"Ti", 1024 * 1024 * 1024 * 1024},
		{"Gi", 1024 * 1024 * 1024},
		{"Mi", 1024 * 1024},
		{"Ki", 1024},
	}

	for _, u := range units {
		if b.Bytes >= u.size && b.Bytes%u.size == 0 {
			return fmt.Sprintf("%d%s", b.Bytes/u.size, u.suffix), nil
		}
	}

	return fmt.Sprintf("%d", b.Bytes), nil
}
