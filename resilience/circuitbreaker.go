package resilience

import (
	"sync"
	"time"
)

// CircuitBreaker suspends spawning of task names that keep failing.
type CircuitBreaker interface {
	// Allow checks if a spawn is allowed.
	Allow(name string) bool

	// RecordSuccess records a successful task outcome.
	RecordSuccess(name string)

	// RecordFailure records a failed task outcome.
	RecordFailure(name string)

	// State returns the current state for a task name.
	State(name string) CircuitState

	// Reset resets the circuit breaker for a task name.
	Reset(name string)
}

// CircuitState represents the circuit breaker state.
type CircuitState int

const (
	// StateClosed allows spawns through.
	StateClosed CircuitState = iota
	// StateOpen blocks all spawns.
	StateOpen
	// StateHalfOpen allows limited spawns for testing recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening.
	FailureThreshold int

	// SuccessThreshold is the number of successes to close from half-open.
	SuccessThreshold int

	// Timeout is the duration to wait before transitioning to half-open.
	Timeout time.Duration

	// PerTask enables per-task-name circuit breakers.
	PerTask bool

	// RecoveryBackoff stretches the open period after repeated trips.
	// When nil every open period lasts Timeout.
	RecoveryBackoff *BackoffConfig

	// OnStateChange is called when state changes.
	OnStateChange func(name string, from, to CircuitState)
}

// DefaultCircuitBreakerConfig returns default configuration.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		PerTask:          true,
	}
}

// circuitBreaker implements CircuitBreaker.
type circuitBreaker struct {
	config   CircuitBreakerConfig
	global   *breaker
	breakers map[string]*breaker
	mu       sync.RWMutex
}

// breaker represents a single circuit breaker.
type breaker struct {
	name            string
	state           CircuitState
	failures        int
	successes       int
	lastFailureTime time.Time
	openPeriod      time.Duration
	recovery        Backoff
	config          *CircuitBreakerConfig
	mu              sync.Mutex
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreaker {
	cb := &circuitBreaker{
		config:   config,
		breakers: make(map[string]*breaker),
	}
	cb.global = newBreaker("", &cb.config)
	return cb
}

// Allow implements CircuitBreaker.Allow.
func (cb *circuitBreaker) Allow(name string) bool {
	if !cb.config.PerTask {
		return cb.global.allow()
	}

	b := cb.getBreaker(name)
	return b.allow()
}

// RecordSuccess implements CircuitBreaker.RecordSuccess.
func (cb *circuitBreaker) RecordSuccess(name string) {
	if !cb.config.PerTask {
		cb.global.recordSuccess()
		return
	}

	b := cb.getBreaker(name)
	b.recordSuccess()
}

// RecordFailure implements CircuitBreaker.RecordFailure.
func (cb *circuitBreaker) RecordFailure(name string) {
	if !cb.config.PerTask {
		cb.global.recordFailure()
		return
	}

	b := cb.getBreaker(name)
	b.recordFailure()
}

// State implements CircuitBreaker.State.
func (cb *circuitBreaker) State(name string) CircuitState {
	if !cb.config.PerTask {
		return cb.global.getState()
	}

	b := cb.getBreaker(name)
	return b.getState()
}

// Reset implements CircuitBreaker.Reset.
func (cb *circuitBreaker) Reset(name string) {
	if !cb.config.PerTask {
		cb.global.reset()
		return
	}

	b := cb.getBreaker(name)
	b.reset()
}

func (cb *circuitBreaker) getBreaker(name string) *breaker {
	cb.mu.RLock()
	b, ok := cb.breakers[name]
	cb.mu.RUnlock()

	if ok {
		return b
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	// Double-check
	if existing, ok := cb.breakers[name]; ok {
		return existing
	}

	newB := newBreaker(name, &cb.config)
	cb.breakers[name] = newB
	return newB
}

func newBreaker(name string, config *CircuitBreakerConfig) *breaker {
	b := &breaker{
		name:       name,
		state:      StateClosed,
		openPeriod: config.Timeout,
		config:     config,
	}
	if config.RecoveryBackoff != nil {
		b.recovery = NewExponentialBackoff(*config.RecoveryBackoff)
	}
	return b
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true

	case StateOpen:
		// Check if the open period has passed
		if time.Since(b.lastFailureTime) > b.openPeriod {
			b.toHalfOpen()
			return true
		}
		return false

	case StateHalfOpen:
		// Allow limited spawns
		return true
	}

	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.failures = 0

	case StateHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.toClosed()
		}
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = time.Now()

	switch b.state {
	case StateClosed:
		if b.failures >= b.config.FailureThreshold {
			b.toOpen()
		}

	case StateHalfOpen:
		b.toOpen()
	}
}

func (b *breaker) getState() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Check for automatic transition
	if b.state == StateOpen && time.Since(b.lastFailureTime) > b.openPeriod {
		b.toHalfOpen()
	}

	return b.state
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.resetOpenPeriod()
}

func (b *breaker) toClosed() {
	oldState := b.state
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
	b.resetOpenPeriod()

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, oldState, StateClosed)
	}
}

func (b *breaker) toOpen() {
	oldState := b.state
	b.state = StateOpen
	b.successes = 0
	b.stretchOpenPeriod()

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, oldState, StateOpen)
	}
}

func (b *breaker) toHalfOpen() {
	oldState := b.state
	b.state = StateHalfOpen
	b.failures = 0
	b.successes = 0

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, oldState, StateHalfOpen)
	}
}

// stretchOpenPeriod lengthens the next open period when a recovery
// backoff is configured, so a task that keeps tripping the breaker is
// probed less and less often.
func (b *breaker) stretchOpenPeriod() {
	if b.recovery == nil {
		return
	}
	if wait := b.recovery.Next(); wait > 0 {
		b.openPeriod = wait
		return
	}
	b.openPeriod = b.config.Timeout
}

func (b *breaker) resetOpenPeriod() {
	if b.recovery != nil {
		b.recovery.Reset()
	}
	b.openPeriod = b.config.Timeout
}
