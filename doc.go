// Package ffiguard guards the seam between Go and a foreign caller.
//
// FFIGuard is a production-grade Go library for exposing long-running Go
// work to callers that speak only primitive types. Tasks run on
// background goroutines behind opaque integer handles; every failure,
// panics included, is reduced to a typed sentinel plus a pending error
// record retrieved out of band.
//
// # Key Features
//
//   - Opaque integer handles with a strict one-time retrieval lifecycle
//   - Per-context error slots with a last-write-wins pending record
//   - Panic containment at the innermost frame; nothing ever unwinds out
//   - Cooperative cancellation tokens, never preemption
//   - Spawn rate limiting and per-task circuit breaking for resilience
//   - OpenTelemetry integration for metrics and tracing
//   - Immutable audit logging of task lifecycles and recorded errors
//
// # Basic Usage
//
//	reg, err := ffiguard.New[int]()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close(context.Background())
//
//	surface := ffiguard.Export(ffiguard.NewBoundary(), reg)
//	id := surface.Spawn(job)
//
// # With Configuration
//
//	loader, _ := ffiguard.LoadConfig("/etc/ffiguard", "config.yaml")
//	cfg, _ := loader.Load(ctx)
//
//	reg, _ := ffiguard.NewWithConfig[int](*cfg)
//
// # Failure Model
//
// Boundary calls never return Go errors to the foreign side. A failing
// call returns its declared sentinel (0 for handles, -1 for codes) and
// stores an ErrorRecord in the owning context's slot; the caller reads
// the record's length and message before making another call, since a
// later failure overwrites an unread record.
//
// # File I/O
//
// All file operations use github.com/victoralfred/gowritter/safepath
// for secure path handling. Direct use of os.ReadFile, os.WriteFile,
// os.Open, os.Create, or io/ioutil is prohibited within this library.
//
// # Package Structure
//
//   - ffiguard: Main entry point and convenience functions
//   - task: Registry, handles and the task lifecycle
//   - boundary: Primitive-typed surface for foreign callers
//   - errslot: Per-context pending error storage
//   - panicguard: Panic containment
//   - sentinel: Null and sentinel value helpers
//   - resilience: Rate limiting, circuit breaker and backoff
//   - observability: OpenTelemetry metrics, tracing and audit logging
//   - hooks: Extension points for custom behavior
//   - config: Configuration management
package ffiguard
