package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/victoralfred/ffiguard/observability"
	"github.com/victoralfred/ffiguard/panicguard"
)

// DefaultMaxLive caps how many handles a registry holds at once, running
// or awaiting retrieval, unless the builder overrides it.
const DefaultMaxLive = 1024

// Limiter gates spawn attempts by task name. Implementations must be safe
// for concurrent use.
type Limiter interface {
	// Allow reports whether one more task with this name may spawn now.
	Allow(name string) bool
}

// Breaker suspends spawning of task names that keep failing.
type Breaker interface {
	// Allow reports whether spawning this task name is permitted.
	Allow(name string) bool

	// RecordSuccess notes a successful outcome for the task name.
	RecordSuccess(name string)

	// RecordFailure notes a failed outcome for the task name.
	RecordFailure(name string)
}

// Info describes a spawned task to hooks.
type Info struct {
	// TraceID correlates the task across telemetry and audit records.
	TraceID string

	// Name is the task kind.
	Name string

	// ID is the registry handle identifier.
	ID int64
}

// Hook observes task lifecycle transitions.
type Hook interface {
	// BeforeSpawn runs before a task is accepted. A non-nil error vetoes
	// the spawn.
	BeforeSpawn(ctx context.Context, info Info) error

	// AfterFinish runs once the task reaches a terminal state.
	AfterFinish(ctx context.Context, info Info, status Status, err error)

	// OnCancel runs when a cancellation request is delivered.
	OnCancel(ctx context.Context, info Info)
}

// Registry tracks the tasks of one output type from spawn to retrieval.
// Bookkeeping is mutually exclusive, but no lock is ever held while user
// work runs.
type Registry[O any] struct {
	handles map[int64]*handle[O]
	mu      sync.Mutex

	limiter   Limiter
	breaker   Breaker
	hooks     []Hook
	telemetry observability.Telemetry
	audit     observability.AuditLogger
	metrics   *observability.Metrics

	stats registryStats

	wg      sync.WaitGroup
	lastID  int64
	maxLive int
	closed  bool
}

// registryStats tracks registry counters.
type registryStats struct {
	spawned        int64
	succeeded      int64
	failed         int64
	cancelled      int64
	retrieved      int64
	released       int64
	cancelRequests int64
}

// handle pairs one worker goroutine with its shared status cell. The done
// channel closes after the outcome and all worker bookkeeping are in
// place.
type handle[O any] struct {
	token   *Token
	outcome *Outcome[O]
	done    chan struct{}
	traceID string
	name    string
	id      int64
	mu      sync.Mutex
}

func (h *handle[O]) currentStatus() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.outcome == nil {
		return StatusRunning
	}
	return h.outcome.Status
}

func (h *handle[O]) currentOutcome() *Outcome[O] {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.outcome
}

func (h *handle[O]) info() Info {
	return Info{ID: h.id, TraceID: h.traceID, Name: h.name}
}

// Builder assembles a Registry.
type Builder[O any] struct {
	limiter   Limiter
	breaker   Breaker
	hooks     []Hook
	telemetry observability.Telemetry
	audit     observability.AuditLogger
	metrics   *observability.Metrics
	maxLive   int
}

// NewBuilder creates a Builder with default settings.
func NewBuilder[O any]() *Builder[O] {
	return &Builder[O]{
		maxLive: DefaultMaxLive,
	}
}

// WithLimiter sets the spawn rate limiter.
func (b *Builder[O]) WithLimiter(l Limiter) *Builder[O] {
	b.limiter = l
	return b
}

// WithBreaker sets the spawn circuit breaker.
func (b *Builder[O]) WithBreaker(cb Breaker) *Builder[O] {
	b.breaker = cb
	return b
}

// WithHooks adds lifecycle hooks, run in registration order.
func (b *Builder[O]) WithHooks(hooks ...Hook) *Builder[O] {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// WithTelemetry sets the telemetry implementation.
func (b *Builder[O]) WithTelemetry(t observability.Telemetry) *Builder[O] {
	b.telemetry = t
	return b
}

// WithAuditLogger sets the audit logger.
func (b *Builder[O]) WithAuditLogger(a observability.AuditLogger) *Builder[O] {
	b.audit = a
	return b
}

// WithMetrics sets the in-process metrics collector.
func (b *Builder[O]) WithMetrics(m *observability.Metrics) *Builder[O] {
	b.metrics = m
	return b
}

// WithMaxLive caps concurrently held handles. Values below 1 restore the
// default.
func (b *Builder[O]) WithMaxLive(n int) *Builder[O] {
	b.maxLive = n
	return b
}

// Build creates the Registry.
func (b *Builder[O]) Build() (*Registry[O], error) {
	telemetry := b.telemetry
	if telemetry == nil {
		telemetry = observability.NoopTelemetry()
	}
	audit := b.audit
	if audit == nil {
		audit = observability.NoopAuditLogger()
	}
	maxLive := b.maxLive
	if maxLive <= 0 {
		maxLive = DefaultMaxLive
	}

	return &Registry[O]{
		handles:   make(map[int64]*handle[O]),
		limiter:   b.limiter,
		breaker:   b.breaker,
		hooks:     b.hooks,
		telemetry: telemetry,
		audit:     audit,
		metrics:   b.metrics,
		maxLive:   maxLive,
	}, nil
}

// New creates a Registry with default settings.
func New[O any]() (*Registry[O], error) {
	return NewBuilder[O]().Build()
}

// Spawn launches t on its own goroutine and returns the identifier for
// its handle. It never blocks on the task itself and fails only when the
// task is refused outright.
func (r *Registry[O]) Spawn(ctx context.Context, t Task[O]) (int64, error) {
	if t == nil {
		return 0, NewInvalidTaskError()
	}
	name := t.Name()

	ctx, endSpan := r.telemetry.StartSpan(ctx, "registry.spawn",
		observability.WithAttribute("task", name),
	)
	defer endSpan()

	// Check rate limiter
	if r.limiter != nil && !r.limiter.Allow(name) {
		return 0, NewSpawnLimitError(name, fmt.Sprintf("spawn rate exceeded for %q", name))
	}

	// Check circuit breaker
	if r.breaker != nil && !r.breaker.Allow(name) {
		return 0, NewSpawnSuspendedError(name)
	}

	id := atomic.AddInt64(&r.lastID, 1)
	info := Info{ID: id, TraceID: uuid.New().String(), Name: name}

	// Run pre-spawn hooks; any veto refuses the task.
	for _, hk := range r.hooks {
		if err := hk.BeforeSpawn(ctx, info); err != nil {
			return 0, NewHookDeniedError(name, err)
		}
	}

	h := &handle[O]{
		token:   NewToken(),
		done:    make(chan struct{}),
		traceID: info.TraceID,
		name:    name,
		id:      id,
	}

	// The closed check and the insert must be atomic with respect to
	// Close's snapshot so no worker escapes the final join.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return 0, NewRegistryClosedError(name)
	}
	if len(r.handles) >= r.maxLive {
		r.mu.Unlock()
		return 0, NewSpawnLimitError(name, fmt.Sprintf("live handle cap %d reached", r.maxLive))
	}
	r.handles[id] = h
	r.wg.Add(1)
	r.mu.Unlock()

	atomic.AddInt64(&r.stats.spawned, 1)
	r.telemetry.RecordCounter("tasks_spawned_total", map[string]string{"task": name})
	r.telemetry.SetGauge("tasks_active", 1, nil)
	r.logEvent(ctx, observability.NewTaskEvent(observability.AuditEventTaskSpawned, id, name, h.traceID))

	go r.runTask(h, t)

	return id, nil
}

// runTask is the worker body, one goroutine per spawned task.
func (r *Registry[O]) runTask(h *handle[O], t Task[O]) {
	defer r.wg.Done()

	ctx, endSpan := r.telemetry.StartSpan(context.Background(), "task.run",
		observability.WithAttribute("task", h.name),
		observability.WithAttribute("trace_id", h.traceID),
	)

	// Panics must not unwind past this frame; the guard turns them into
	// ordinary failed outcomes.
	start := time.Now()
	out, err := panicguard.Do(func() (O, error) {
		return t.Run(h.token)
	})
	duration := time.Since(start)
	endSpan()

	outcome := &Outcome[O]{Duration: duration}
	switch {
	case err == nil:
		outcome.Output = out
		outcome.Status = StatusSucceeded
	case errors.Is(err, ErrCancelled):
		outcome.Err = err
		outcome.Status = StatusCancelled
	default:
		outcome.Err = err
		outcome.Status = StatusFailed
	}

	h.mu.Lock()
	h.outcome = outcome
	h.mu.Unlock()

	r.recordFinish(ctx, h, outcome)

	// Closing done publishes the outcome to joiners; everything above
	// happens-before whatever they do next.
	close(h.done)
}

func (r *Registry[O]) recordFinish(ctx context.Context, h *handle[O], outcome *Outcome[O]) {
	// Feed the breaker and the counters.
	switch outcome.Status {
	case StatusSucceeded:
		atomic.AddInt64(&r.stats.succeeded, 1)
		if r.breaker != nil {
			r.breaker.RecordSuccess(h.name)
		}
	case StatusCancelled:
		atomic.AddInt64(&r.stats.cancelled, 1)
	default:
		atomic.AddInt64(&r.stats.failed, 1)
		if r.breaker != nil {
			r.breaker.RecordFailure(h.name)
		}
	}

	labels := map[string]string{"task": h.name, "status": outcome.Status.String()}
	r.telemetry.RecordCounter("tasks_finished_total", labels)
	r.telemetry.RecordDuration("task_duration_seconds", outcome.Duration.Seconds(), labels)

	if r.metrics != nil {
		var pe *panicguard.PanicError
		panicked := errors.As(outcome.Err, &pe)
		r.metrics.RecordOutcome(h.name, outcome.Status.String(), outcome.Duration, panicked)
	}

	event := observability.NewTaskEvent(observability.AuditEventTaskFinished, h.id, h.name, h.traceID)
	event.Status = outcome.Status.String()
	event.Duration = outcome.Duration
	if outcome.Err != nil {
		event.Error = outcome.Err.Error()
	}
	r.logEvent(ctx, event)

	// Run post-finish hooks.
	for _, hk := range r.hooks {
		hk.AfterFinish(ctx, h.info(), outcome.Status, outcome.Err)
	}
}

// Poll reports the task's lifecycle state without blocking.
func (r *Registry[O]) Poll(id int64) (Status, error) {
	h, err := r.lookup("poll", id)
	if err != nil {
		return 0, err
	}
	return h.currentStatus(), nil
}

// Cancel requests cooperative cancellation of a running task. It reports
// false without error when the task had already finished and the request
// had no effect.
func (r *Registry[O]) Cancel(id int64) (bool, error) {
	h, err := r.lookup("cancel", id)
	if err != nil {
		return false, err
	}

	if h.currentStatus().Finished() {
		return false, nil
	}

	h.token.Cancel()
	atomic.AddInt64(&r.stats.cancelRequests, 1)
	r.telemetry.RecordCounter("cancel_requests_total", map[string]string{"task": h.name})
	r.logEvent(context.Background(), observability.NewTaskEvent(observability.AuditEventCancelRequested, h.id, h.name, h.traceID))

	for _, hk := range r.hooks {
		hk.OnCancel(context.Background(), h.info())
	}

	return true, nil
}

// TakeResult moves the outcome out and invalidates id. The task must have
// finished; poll for a finished state first. Ownership of the output
// transfers to the caller, the worker is joined and the identifier is
// removed from the registry.
func (r *Registry[O]) TakeResult(id int64) (O, error) {
	var zero O

	h, err := r.lookup("take_result", id)
	if err != nil {
		return zero, err
	}

	outcome := h.currentOutcome()
	if outcome == nil {
		return zero, NewStillRunningError(id)
	}

	// Claim the handle. Of two racing takers exactly one finds it still
	// registered.
	r.mu.Lock()
	if _, ok := r.handles[id]; !ok {
		r.mu.Unlock()
		return zero, NewAlreadyRetrievedError("take_result", id)
	}
	delete(r.handles, id)
	r.mu.Unlock()

	// Join the worker so its bookkeeping is complete before the outcome
	// changes hands.
	<-h.done

	atomic.AddInt64(&r.stats.retrieved, 1)
	r.telemetry.SetGauge("tasks_active", -1, nil)

	event := observability.NewTaskEvent(observability.AuditEventTaskRetrieved, h.id, h.name, h.traceID)
	event.Status = outcome.Status.String()
	r.logEvent(context.Background(), event)

	switch outcome.Status {
	case StatusSucceeded:
		return outcome.Output, nil
	case StatusCancelled:
		return zero, NewTaskCancelledError(h.name, outcome.Err)
	default:
		return zero, NewTaskFailedError(h.name, outcome.Err)
	}
}

// Release abandons id without retrieving its outcome. A still-running
// task is cancelled and the call blocks until its worker honors the
// request, so a released task never keeps running unobserved.
func (r *Registry[O]) Release(id int64) error {
	h, err := r.lookup("release", id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.handles[id]; !ok {
		r.mu.Unlock()
		return NewAlreadyRetrievedError("release", id)
	}
	delete(r.handles, id)
	r.mu.Unlock()

	h.token.Cancel()
	<-h.done

	atomic.AddInt64(&r.stats.released, 1)
	r.telemetry.SetGauge("tasks_active", -1, nil)
	r.logEvent(context.Background(), observability.NewTaskEvent(observability.AuditEventTaskReleased, h.id, h.name, h.traceID))

	return nil
}

// Await blocks until id finishes and then takes its result. It is the
// Go-side convenience over polling plus TakeResult; ctx bounds the wait.
func (r *Registry[O]) Await(ctx context.Context, id int64) (O, error) {
	var zero O

	h, err := r.lookup("await", id)
	if err != nil {
		return zero, err
	}

	select {
	case <-h.done:
		return r.TakeResult(id)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close stops accepting spawns, cancels everything still running and
// waits for all workers to stop. Finished handles stay retrievable. ctx
// bounds the wait.
func (r *Registry[O]) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	running := make([]*handle[O], 0, len(r.handles))
	for _, h := range r.handles {
		running = append(running, h)
	}
	r.mu.Unlock()

	for _, h := range running {
		h.token.Cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is a point-in-time snapshot of registry activity.
type Stats struct {
	Spawned        int64
	Succeeded      int64
	Failed         int64
	Cancelled      int64
	Retrieved      int64
	Released       int64
	CancelRequests int64
	Active         int
}

// Stats returns current registry statistics. Active counts handles still
// in the table, running or awaiting retrieval.
func (r *Registry[O]) Stats() Stats {
	r.mu.Lock()
	active := len(r.handles)
	r.mu.Unlock()

	return Stats{
		Spawned:        atomic.LoadInt64(&r.stats.spawned),
		Succeeded:      atomic.LoadInt64(&r.stats.succeeded),
		Failed:         atomic.LoadInt64(&r.stats.failed),
		Cancelled:      atomic.LoadInt64(&r.stats.cancelled),
		Retrieved:      atomic.LoadInt64(&r.stats.retrieved),
		Released:       atomic.LoadInt64(&r.stats.released),
		CancelRequests: atomic.LoadInt64(&r.stats.cancelRequests),
		Active:         active,
	}
}

// lookup finds a live handle. A missing identifier this registry once
// issued reads as already retrieved; anything else never existed.
func (r *Registry[O]) lookup(op string, id int64) (*handle[O], error) {
	r.mu.Lock()
	h, ok := r.handles[id]
	r.mu.Unlock()
	if ok {
		return h, nil
	}
	if id > 0 && id <= atomic.LoadInt64(&r.lastID) {
		return nil, NewAlreadyRetrievedError(op, id)
	}
	return nil, NewUnknownHandleError(op, id)
}

// logEvent appends to the audit trail; audit failures never disturb task
// processing.
func (r *Registry[O]) logEvent(ctx context.Context, event *observability.AuditEvent) {
	_ = r.audit.Log(ctx, event)
}
