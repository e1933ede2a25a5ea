package resilience

import (
	"sync"
	"testing"
	"time"
)

func TestNewCircuitBreaker(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	cb := NewCircuitBreaker(config)

	if cb == nil {
		t.Fatal("NewCircuitBreaker returned nil")
	}

	// Should start in closed state
	if !cb.Allow("test") {
		t.Error("Circuit breaker should allow spawns in closed state")
	}
}

func TestCircuitBreaker_StateTransition(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 3
	config.SuccessThreshold = 2
	config.Timeout = 100 * time.Millisecond
	cb := NewCircuitBreaker(config)

	// Start closed
	if cb.State("test") != StateClosed {
		t.Errorf("Expected StateClosed, got %v", cb.State("test"))
	}

	// Record failures until threshold
	for i := 0; i < 3; i++ {
		cb.RecordFailure("test")
	}

	// Should be open now
	if cb.State("test") != StateOpen {
		t.Errorf("Expected StateOpen, got %v", cb.State("test"))
	}

	if cb.Allow("test") {
		t.Error("Circuit breaker should not allow spawns in open state")
	}
}

func TestCircuitBreaker_HalfOpenTransition(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	config.SuccessThreshold = 2
	config.Timeout = 50 * time.Millisecond
	cb := NewCircuitBreaker(config)

	// Open the circuit
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	if cb.State("test") != StateOpen {
		t.Fatal("Circuit should be open")
	}

	// Wait for timeout
	time.Sleep(60 * time.Millisecond)

	// Should transition to half-open
	state := cb.State("test")
	if state != StateHalfOpen {
		t.Errorf("Expected StateHalfOpen, got %v", state)
	}

	// Should allow spawns in half-open
	if !cb.Allow("test") {
		t.Error("Circuit breaker should allow spawns in half-open state")
	}
}

func TestCircuitBreaker_CloseFromHalfOpen(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	config.SuccessThreshold = 2
	config.Timeout = 50 * time.Millisecond
	cb := NewCircuitBreaker(config)

	// Open circuit
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	// Wait for half-open
	time.Sleep(60 * time.Millisecond)

	// Transition to half-open by calling Allow
	cb.Allow("test")

	// Record successes
	cb.RecordSuccess("test")
	cb.RecordSuccess("test")

	// Should be closed
	if cb.State("test") != StateClosed {
		t.Errorf("Expected StateClosed, got %v", cb.State("test"))
	}
}

func TestCircuitBreaker_ReopenFromHalfOpen(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	config.SuccessThreshold = 2
	config.Timeout = 50 * time.Millisecond
	cb := NewCircuitBreaker(config)

	// Open circuit
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	// Wait for half-open
	time.Sleep(60 * time.Millisecond)

	// Record failure - should reopen immediately
	cb.RecordFailure("test")

	if cb.State("test") != StateOpen {
		t.Errorf("Expected StateOpen, got %v", cb.State("test"))
	}
}

func TestCircuitBreaker_PerTask(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.PerTask = true
	config.FailureThreshold = 2
	cb := NewCircuitBreaker(config)

	// Open circuit for resize
	cb.RecordFailure("resize")
	cb.RecordFailure("resize")

	if cb.State("resize") != StateOpen {
		t.Error("resize should be open")
	}

	// encode should still be closed
	if cb.State("encode") != StateClosed {
		t.Error("encode should still be closed")
	}

	if !cb.Allow("encode") {
		t.Error("encode should be allowed")
	}
}

func TestCircuitBreaker_Global(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.PerTask = false
	config.FailureThreshold = 2
	cb := NewCircuitBreaker(config)

	// Open global circuit
	cb.RecordFailure("any")
	cb.RecordFailure("any")

	// All task names should be blocked
	if cb.Allow("resize") {
		t.Error("resize should be blocked when global circuit is open")
	}
	if cb.Allow("encode") {
		t.Error("encode should be blocked when global circuit is open")
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	cb := NewCircuitBreaker(config)

	// Open circuit
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	if cb.State("test") != StateOpen {
		t.Fatal("Circuit should be open")
	}

	// Reset
	cb.Reset("test")

	// Should be closed
	if cb.State("test") != StateClosed {
		t.Errorf("Expected StateClosed after reset, got %v", cb.State("test"))
	}

	if !cb.Allow("test") {
		t.Error("Should allow spawns after reset")
	}
}

func TestCircuitBreaker_StateString(t *testing.T) {
	tests := []struct { //nolint:govet // fieldalignment: test struct field order optimized for readability not memory
		state CircuitState
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.state.String()
			if got != tt.want {
				t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker_ConcurrentAccess(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.PerTask = true
	cb := NewCircuitBreaker(config)

	var wg sync.WaitGroup
	concurrency := 50

	// Concurrent operations on same task name
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.Allow("test")
			cb.RecordSuccess("test")
			cb.RecordFailure("test")
			cb.State("test")
		}()
	}

	wg.Wait()

	// Should not panic and should have consistent state
	state := cb.State("test")
	if state != StateClosed && state != StateOpen && state != StateHalfOpen {
		t.Errorf("Invalid state after concurrent access: %v", state)
	}
}

func TestCircuitBreaker_ConcurrentDifferentTasks(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.PerTask = true
	cb := NewCircuitBreaker(config)

	var wg sync.WaitGroup
	taskCount := 10
	opsPerTask := 10

	for i := 0; i < taskCount; i++ {
		name := "task" + string(rune('0'+i))
		for j := 0; j < opsPerTask; j++ {
			wg.Add(1)
			go func(n string) {
				defer wg.Done()
				cb.Allow(n)
				cb.RecordSuccess(n)
				cb.State(n)
			}(name)
		}
	}

	wg.Wait()

	// All task names should have valid states
	for i := 0; i < taskCount; i++ {
		name := "task" + string(rune('0'+i))
		state := cb.State(name)
		if state != StateClosed && state != StateOpen && state != StateHalfOpen {
			t.Errorf("Invalid state for %s: %v", name, state)
		}
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var mu sync.Mutex
	var names []string
	var states []CircuitState

	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	config.OnStateChange = func(name string, from, to CircuitState) {
		mu.Lock()
		defer mu.Unlock()
		names = append(names, name)
		states = append(states, to)
	}
	cb := NewCircuitBreaker(config)

	// Open circuit
	cb.RecordFailure("resize")
	cb.RecordFailure("resize")

	mu.Lock()
	defer mu.Unlock()

	if len(states) == 0 {
		t.Fatal("OnStateChange should have been called")
	}
	if states[0] != StateOpen {
		t.Errorf("Expected transition to StateOpen, got %v", states[0])
	}
	if names[0] != "resize" {
		t.Errorf("Expected state change for %q, got %q", "resize", names[0])
	}
}

func TestCircuitBreaker_Allow_AutoHalfOpen(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	config.Timeout = 50 * time.Millisecond
	cb := NewCircuitBreaker(config)

	// Open circuit
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	// Wait for timeout
	time.Sleep(60 * time.Millisecond)

	// Allow should automatically transition to half-open
	if !cb.Allow("test") {
		t.Error("Allow should transition to half-open and return true")
	}

	if cb.State("test") != StateHalfOpen {
		t.Errorf("Expected StateHalfOpen, got %v", cb.State("test"))
	}
}

func TestCircuitBreaker_DefaultConfig(t *testing.T) {
	config := DefaultCircuitBreakerConfig()

	if config.FailureThreshold <= 0 {
		t.Error("FailureThreshold should be positive")
	}
	if config.SuccessThreshold <= 0 {
		t.Error("SuccessThreshold should be positive")
	}
	if config.Timeout <= 0 {
		t.Error("Timeout should be positive")
	}
}

func TestCircuitBreaker_SuccessClearsFailures(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 5
	cb := NewCircuitBreaker(config)

	// Record some failures
	cb.RecordFailure("test")
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	// Record success - should clear failures
	cb.RecordSuccess("test")

	// Should still be closed
	if cb.State("test") != StateClosed {
		t.Errorf("Expected StateClosed, got %v", cb.State("test"))
	}
}

func TestCircuitBreaker_RecoveryBackoff(t *testing.T) {
	config := DefaultCircuitBreakerConfig()
	config.FailureThreshold = 2
	config.SuccessThreshold = 1
	config.Timeout = 50 * time.Millisecond
	config.RecoveryBackoff = &BackoffConfig{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     400 * time.Millisecond,
		Multiplier:      4.0,
	}
	cb := NewCircuitBreaker(config)

	// First trip opens for the initial interval.
	cb.RecordFailure("test")
	cb.RecordFailure("test")

	time.Sleep(70 * time.Millisecond)
	if cb.State("test") != StateHalfOpen {
		t.Fatalf("Expected StateHalfOpen after first open period, got %v", cb.State("test"))
	}

	// A failed probe reopens with a stretched period of 200ms.
	cb.RecordFailure("test")

	time.Sleep(70 * time.Millisecond)
	if cb.State("test") != StateOpen {
		t.Errorf("Expected StateOpen inside stretched period, got %v", cb.State("test"))
	}

	time.Sleep(160 * time.Millisecond)
	if cb.State("test") != StateHalfOpen {
		t.Errorf("Expected StateHalfOpen after stretched period, got %v", cb.State("test"))
	}

	// Closing resets the stretch for the next incident.
	cb.RecordSuccess("test")
	if cb.State("test") != StateClosed {
		t.Fatalf("Expected StateClosed, got %v", cb.State("test"))
	}

	cb.RecordFailure("test")
	cb.RecordFailure("test")
	time.Sleep(70 * time.Millisecond)
	if cb.State("test") != StateHalfOpen {
		t.Errorf("Expected StateHalfOpen after reset open period, got %v", cb.State("test"))
	}
}
