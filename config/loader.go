package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/victoralfred/gowritter/safepath"
	"gopkg.in/yaml.v3"

	"github.com/victoralfred/ffiguard/resilience"
)

// Loader loads and manages configuration from YAML files.
type Loader struct {
	path       string
	safePath   *safepath.SafePath
	config     *Config
	mu         sync.RWMutex
	lastHash   []byte
	lastLoad   time.Time
	validators []Validator
	onChange   []func(*Config)
	watchStop  chan struct{}
}

// Validator validates a file configuration before it is applied.
type Validator interface {
	Validate(file *FileConfig) error
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithValidator adds a configuration validator.
func WithValidator(v Validator) LoaderOption {
	return func(l *Loader) {
		l.validators = append(l.validators, v)
	}
}

// WithOnChange adds a callback for configuration changes.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) {
		l.onChange = append(l.onChange, fn)
	}
}

// NewLoader creates a new configuration loader.
func NewLoader(basePath, configFile string, opts ...LoaderOption) (*Loader, error) {
	sp, err := safepath.New(basePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	l := &Loader{
		path:       configFile,
		safePath:   sp,
		validators: make([]Validator, 0),
		onChange:   make([]func(*Config), 0),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

// Load loads the configuration from the file. Environment overrides are
// applied after the file, so they win over file values.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Read file using gowritter
	data, err := l.safePath.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Check if file changed
	hash := sha256.Sum256(data)
	if l.config != nil && string(hash[:]) == string(l.lastHash) {
		return l.config, nil
	}

	// Parse YAML
	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	// Validate file configuration
	for _, v := range l.validators {
		if err := v.Validate(&file); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	cfg := file.ToConfig()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("normalizing config: %w", err)
	}

	l.config = &cfg
	l.lastHash = hash[:]
	l.lastLoad = time.Now()

	// Notify listeners
	for _, fn := range l.onChange {
		fn(&cfg)
	}

	return &cfg, nil
}

// Get returns the current configuration without reloading.
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Reload reloads the configuration from the file.
func (l *Loader) Reload(ctx context.Context) error {
	_, err := l.Load(ctx)
	return err
}

// Watch starts watching for configuration file changes. A failed reload
// is retried with backoff before the next tick.
func (l *Loader) Watch(ctx context.Context, interval time.Duration) {
	l.watchStop = make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-l.watchStop:
				return
			case <-ticker.C:
				if _, err := l.Load(ctx); err != nil {
					l.retryLoad(ctx, interval)
				}
			}
		}
	}()
}

func (l *Loader) retryLoad(ctx context.Context, interval time.Duration) {
	backoff := resilience.NewExponentialBackoff(resilience.BackoffConfig{
		InitialInterval: interval / 10,
		MaxInterval:     interval,
		Multiplier:      2.0,
		MaxRetries:      3,
	})

	_ = resilience.RetryWithBackoff(ctx, backoff, func() error {
		_, err := l.Load(ctx)
		return err
	})
}

// StopWatch stops watching for configuration changes.
func (l *Loader) StopWatch() {
	if l.watchStop != nil {
		close(l.watchStop)
	}
}

// ParseYAML parses a YAML file configuration.
func ParseYAML(data []byte) (*FileConfig, error) {
	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// DefaultValidator validates file configuration.
type DefaultValidator struct{}

// Validate validates the file configuration.
func (v *DefaultValidator) Validate(file *FileConfig) error {
	if file.Version == "" {
		return fmt.Errorf("config version is required")
	}

	if rl := file.RateLimit; rl != nil {
		for name, tl := range rl.TaskLimits {
			if tl.Limit < 0 {
				return fmt.Errorf("task %q: limit must not be negative", name)
			}
			if tl.Burst < 0 {
				return fmt.Errorf("task %q: burst must not be negative", name)
			}
		}
	}

	if cb := file.CircuitBreaker; cb != nil {
		if cb.FailureThreshold < 0 {
			return fmt.Errorf("circuit breaker: failure_threshold must not be negative")
		}
		if cb.SuccessThreshold < 0 {
			return fmt.Errorf("circuit breaker: success_threshold must not be negative")
		}
	}

	return nil
}

// ExampleConfig returns an example file configuration.
func ExampleConfig() *FileConfig {
	return &FileConfig{
		Version: "1.0",
		Metadata: Metadata{
			Name:        "example-config",
			Description: "Example ffiguard configuration",
		},
		Registry: &RegistryFileConfig{
			MaxLive:       1024,
			EnableMetrics: true,
		},
		RateLimit: &RateLimitFileConfig{
			Enabled:      true,
			DefaultLimit: 100,
			DefaultBurst: 150,
			PerTask:      true,
			TaskLimits: map[string]TaskLimitFileConfig{
				"resize": {Limit: 20, Burst: 40},
				"encode": {Limit: 5, Burst: 10},
			},
		},
		CircuitBreaker: &BreakerFileConfig{
			Enabled:          true,
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          Duration{30 * time.Second},
			PerTask:          true,
			RecoveryBackoff: &BackoffFileConfig{
				InitialInterval: Duration{30 * time.Second},
				MaxInterval:     Duration{5 * time.Minute},
				Multiplier:      2.0,
			},
		},
		Audit: &AuditFileConfig{
			Enabled:      true,
			LogLevel:     "all",
			BasePath:     "/var/log",
			FilePath:     "ffiguard/audit.log",
			MaxErrorSize: ByteSize{1024},
		},
		Telemetry: &TelemetryFileConfig{
			ServiceName:    "ffiguard",
			ServiceVersion: "1.0.0",
			Environment:    "production",
			MetricsPrefix:  "ffiguard_",
			EnableTracing:  true,
			EnableMetrics:  true,
		},
	}
}
