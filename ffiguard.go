// Package ffiguard guards the seam between Go and a foreign caller.
//
// FFIGuard runs user-supplied tasks on background goroutines behind opaque
// integer handles and reduces every failure, panics included, to a typed
// sentinel plus a pending error record the caller reads out of band. No
// Go error and no unwinding ever crosses the boundary.
//
// # Quick Start
//
// One registry per exported task type, one boundary context per caller:
//
//	reg, err := ffiguard.New[int]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close(context.Background())
//
//	surface := ffiguard.Export(ffiguard.NewBoundary(), reg)
//
//	id := surface.Spawn(job)
//	for surface.Poll(id) == ffiguard.CodeRunning {
//	    time.Sleep(time.Millisecond)
//	}
//
//	var out int
//	if surface.TakeResult(id, &out) == ffiguard.CodeSentinel {
//	    buf := make([]byte, surface.Boundary().LastErrorLength())
//	    surface.Boundary().LastErrorMessage(buf)
//	}
//
// # With Configuration
//
// For production use, configure limits, breakers and audit logging:
//
//	loader, err := ffiguard.LoadConfig("/etc/ffiguard", "config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := loader.Load(ctx)
//
//	reg, err := ffiguard.NewWithConfig[int](*cfg)
//
// # Failure Model
//
// Every boundary call that fails returns its declared sentinel value and
// stores an ErrorRecord in the owning context's slot. A later failure
// overwrites an unread record, so callers consult the slot immediately
// after a sentinel.
package ffiguard

import (
	"context"
	"path/filepath"

	"github.com/victoralfred/ffiguard/boundary"
	"github.com/victoralfred/ffiguard/config"
	"github.com/victoralfred/ffiguard/errslot"
	"github.com/victoralfred/ffiguard/hooks"
	"github.com/victoralfred/ffiguard/observability"
	"github.com/victoralfred/ffiguard/panicguard"
	"github.com/victoralfred/ffiguard/resilience"
	"github.com/victoralfred/ffiguard/task"
)

// =============================================================================
// Core Types
// =============================================================================

// Boundary is one logical execution context on the foreign side, owning
// the error slot its calls report through.
type Boundary = boundary.Boundary

// BoundaryOption configures a Boundary.
type BoundaryOption = boundary.Option

// ErrorRecord is a pending error as the foreign caller sees it.
type ErrorRecord = errslot.Record

// ErrorKind classifies a pending error.
type ErrorKind = errslot.Kind

// Token carries a cooperative cancellation flag into a running task.
type Token = task.Token

// Status is the lifecycle state of a spawned task.
type Status = task.Status

// TaskError is the structured error produced by registry operations.
type TaskError = task.TaskError

// PanicError is a recovered panic presented as an error.
type PanicError = panicguard.PanicError

// Info identifies one spawned task to hooks and audit events.
type Info = task.Info

// Stats is a point-in-time snapshot of registry counters.
type Stats = task.Stats

// Config is the main configuration for ffiguard.
type Config = config.Config

// FileConfig is the YAML representation of Config.
type FileConfig = config.FileConfig

// ConfigLoader loads and watches configuration files.
type ConfigLoader = config.Loader

// HookRegistry dispatches lifecycle hooks in priority order.
type HookRegistry = hooks.Registry

// AuditLogger records task lifecycle and boundary error events.
type AuditLogger = observability.AuditLogger

// AuditEvent is a single audit log entry.
type AuditEvent = observability.AuditEvent

// Telemetry provides tracing and metrics.
type Telemetry = observability.Telemetry

// Metrics collects in-process task statistics.
type Metrics = observability.Metrics

// =============================================================================
// Error Kinds
// =============================================================================

// Error record kinds surfaced to foreign callers.
const (
	KindInvalidArgument   = errslot.KindInvalidArgument
	KindInternalPanic     = errslot.KindInternalPanic
	KindTaskFailed        = errslot.KindTaskFailed
	KindTaskCancelled     = errslot.KindTaskCancelled
	KindUnknownHandle     = errslot.KindUnknownHandle
	KindAlreadyRetrieved  = errslot.KindAlreadyRetrieved
	KindResourceExhausted = errslot.KindResourceExhausted
)

// =============================================================================
// Status Constants
// =============================================================================

// Task lifecycle states.
const (
	StatusRunning   = task.StatusRunning
	StatusSucceeded = task.StatusSucceeded
	StatusFailed    = task.StatusFailed
	StatusCancelled = task.StatusCancelled
)

// =============================================================================
// Boundary Codes
// =============================================================================

// Primitive codes returned across the boundary.
const (
	HandleSentinel      = boundary.HandleSentinel
	CodeSentinel        = boundary.CodeSentinel
	CodeOK              = boundary.CodeOK
	CodeRunning         = boundary.CodeRunning
	CodeFinished        = boundary.CodeFinished
	CodeCancelRequested = boundary.CodeCancelRequested
	CodeCancelNoop      = boundary.CodeCancelNoop
)

// DefaultPanicMessage is the display text used when a panic payload
// carries no usable text of its own.
const DefaultPanicMessage = panicguard.DefaultMessage

// =============================================================================
// Error Variables
// =============================================================================

// Common errors returned by the library.
var (
	// ErrCancelled is returned by a task that stopped after observing
	// its token.
	ErrCancelled = task.ErrCancelled

	// ErrUnknownHandle indicates an identifier that was never issued.
	ErrUnknownHandle = task.ErrUnknownHandle

	// ErrAlreadyRetrieved indicates an identifier whose outcome was
	// already taken or whose handle was released.
	ErrAlreadyRetrieved = task.ErrAlreadyRetrieved

	// ErrStillRunning indicates TakeResult was called before the task
	// finished.
	ErrStillRunning = task.ErrStillRunning

	// ErrRegistryClosed indicates the registry no longer accepts tasks.
	ErrRegistryClosed = task.ErrRegistryClosed

	// ErrSpawnLimit indicates a spawn was refused by a rate or handle
	// limit.
	ErrSpawnLimit = task.ErrSpawnLimit

	// ErrSpawnSuspended indicates the circuit breaker refused a spawn.
	ErrSpawnSuspended = task.ErrSpawnSuspended

	// ErrInvalidTask indicates a nil or unusable task description.
	ErrInvalidTask = task.ErrInvalidTask
)

// =============================================================================
// Factory Functions
// =============================================================================

// New creates a registry for output type O with default settings.
// This is the simplest way to get started with ffiguard.
//
// For production use, consider NewWithConfig or task.NewBuilder to
// configure limits, breakers and audit logging.
func New[O any]() (*task.Registry[O], error) {
	return task.New[O]()
}

// NewBuilder creates a registry builder for output type O.
func NewBuilder[O any]() *task.Builder[O] {
	return task.NewBuilder[O]()
}

// NewWithConfig assembles a registry and its collaborators from cfg.
//
// Example:
//
//	cfg := ffiguard.ProductionConfig()
//	reg, err := ffiguard.NewWithConfig[int](cfg)
func NewWithConfig[O any](cfg Config) (*task.Registry[O], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := task.NewBuilder[O]().WithMaxLive(cfg.Registry.MaxLive)

	if cfg.Registry.EnableRateLimit {
		b = b.WithLimiter(resilience.NewRateLimiter(cfg.RateLimiter))
	}

	if cfg.Registry.EnableBreaker {
		b = b.WithBreaker(resilience.NewCircuitBreaker(cfg.CircuitBreaker))
	}

	if cfg.Registry.EnableMetrics {
		b = b.WithMetrics(observability.NewMetrics())
	}

	telemetry, err := observability.NewTelemetry(cfg.Telemetry)
	if err != nil {
		return nil, err
	}
	b = b.WithTelemetry(telemetry)

	if cfg.Audit.Enabled {
		audit, err := observability.NewFileAuditLogger(cfg.Audit)
		if err != nil {
			return nil, err
		}
		b = b.WithAuditLogger(audit)
	}

	return b.Build()
}

// NewBoundary creates a boundary context with an empty error slot.
func NewBoundary(opts ...BoundaryOption) *Boundary {
	return boundary.New(opts...)
}

// Export builds the primitive-typed boundary surface for a registry.
//
// Example:
//
//	surface := ffiguard.Export(ffiguard.NewBoundary(), reg)
//	id := surface.Spawn(job)
func Export[O any](b *Boundary, reg *task.Registry[O]) *boundary.Surface[O] {
	return boundary.Export(b, reg)
}

// NewHookRegistry creates an empty hook registry. Pass it to
// task.Builder.WithHooks to observe or veto task lifecycles.
func NewHookRegistry() *HookRegistry {
	return hooks.NewRegistry()
}

// =============================================================================
// Configuration
// =============================================================================

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// DevelopmentConfig returns configuration suitable for development.
func DevelopmentConfig() Config {
	return config.DevelopmentConfig()
}

// ProductionConfig returns configuration suitable for production.
func ProductionConfig() Config {
	return config.ProductionConfig()
}

// RestrictedConfig returns highly restrictive configuration.
func RestrictedConfig() Config {
	return config.RestrictedConfig()
}

// LoadConfig creates a loader for a YAML configuration file. The
// basePath is the directory containing the file; configFile is its name
// relative to basePath.
//
// Example:
//
//	loader, err := ffiguard.LoadConfig("/etc/ffiguard", "config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := loader.Load(ctx)
func LoadConfig(basePath, configFile string) (*ConfigLoader, error) {
	return config.NewLoader(basePath, configFile)
}

// LoadConfigWithValidation creates a loader with custom validators.
//
// Example:
//
//	loader, err := ffiguard.LoadConfigWithValidation(
//	    "/etc/ffiguard", "config.yaml",
//	    config.WithValidator(&config.DefaultValidator{}),
//	)
func LoadConfigWithValidation(basePath, configFile string, opts ...config.LoaderOption) (*ConfigLoader, error) {
	return config.NewLoader(basePath, configFile, opts...)
}

// LoadConfigFromPath creates a loader from a full file path.
func LoadConfigFromPath(path string) (*ConfigLoader, error) {
	dir := filepath.Dir(path)
	file := filepath.Base(path)
	return config.NewLoader(dir, file)
}

// ExampleConfig returns an example file configuration. Use it as a
// starting point for writing your own.
func ExampleConfig() *FileConfig {
	return config.ExampleConfig()
}

// =============================================================================
// Convenience Functions
// =============================================================================

// RunTask is a convenience for one-off background work: it spawns fn on
// a throwaway registry and blocks until the outcome is ready. For
// repeated work, create a registry instead.
//
// Example:
//
//	sum, err := ffiguard.RunTask(ctx, "sum", func(token *ffiguard.Token) (int, error) {
//	    return a + b, nil
//	})
func RunTask[O any](ctx context.Context, name string, fn func(*Token) (O, error)) (O, error) {
	var zero O

	reg, err := task.New[O]()
	if err != nil {
		return zero, err
	}
	defer func() {
		// Ignore close errors in defer - cleanup failure doesn't affect result
		//nolint:errcheck // Close errors are non-critical in cleanup context
		_ = reg.Close(context.Background())
	}()

	id, err := reg.Spawn(ctx, &task.Func[O]{TaskName: name, Fn: fn})
	if err != nil {
		return zero, err
	}

	return reg.Await(ctx, id)
}

// Guard runs fn with panic containment: a panic inside fn is returned
// as a *PanicError instead of unwinding.
func Guard[T any](fn func() (T, error)) (T, error) {
	return panicguard.Do(fn)
}

// =============================================================================
// Version Information
// =============================================================================

// Version returns the library version.
func Version() string {
	return "1.0.0"
}

// =============================================================================
// Package Accessors
// =============================================================================

// These declarations re-export the most used subpackage functionality.
// For advanced use cases, import the subpackages directly:
//
//   - github.com/victoralfred/ffiguard/task          - Registry, handles, lifecycle
//   - github.com/victoralfred/ffiguard/boundary      - Primitive-typed foreign surface
//   - github.com/victoralfred/ffiguard/errslot       - Per-context pending error storage
//   - github.com/victoralfred/ffiguard/panicguard    - Panic containment
//   - github.com/victoralfred/ffiguard/sentinel      - Null and sentinel value helpers
//   - github.com/victoralfred/ffiguard/resilience    - Rate limiting & circuit breaker
//   - github.com/victoralfred/ffiguard/observability - Metrics, tracing & audit logging
//   - github.com/victoralfred/ffiguard/hooks         - Extension points
//   - github.com/victoralfred/ffiguard/config        - Configuration
