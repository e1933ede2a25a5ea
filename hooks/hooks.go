// Package hooks provides extension points for the task lifecycle.
package hooks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/victoralfred/ffiguard/task"
)

// Hook identifies an extension point implementation.
type Hook interface {
	// Name returns a unique identifier for the hook.
	Name() string

	// Priority determines execution order (lower = earlier).
	Priority() int
}

// SpawnHook is called before a task is accepted. A non-nil error vetoes
// the spawn.
type SpawnHook interface {
	Hook
	BeforeSpawn(ctx context.Context, info task.Info) error
}

// FinishHook is called after a task reaches a terminal state.
type FinishHook interface {
	Hook
	AfterFinish(ctx context.Context, info task.Info, status task.Status, err error)
}

// CancelHook is called when a cancellation request is delivered.
type CancelHook interface {
	Hook
	OnCancel(ctx context.Context, info task.Info)
}

// Registry manages hook registration and dispatch. It satisfies the task
// registry's hook interface, so a single Registry fans each lifecycle
// event out to every registered hook in priority order.
type Registry struct {
	spawn  []SpawnHook
	finish []FinishHook
	cancel []CancelHook
	mu     sync.RWMutex
}

var _ task.Hook = (*Registry)(nil)

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		spawn:  make([]SpawnHook, 0),
		finish: make([]FinishHook, 0),
		cancel: make([]CancelHook, 0),
	}
}

// Register adds a hook to the registry. A hook may implement several
// lifecycle interfaces and is registered for each one it implements.
func (r *Registry) Register(hook Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered := false

	if h, ok := hook.(SpawnHook); ok {
		r.spawn = append(r.spawn, h)
		sortByPriority(r.spawn)
		registered = true
	}

	if h, ok := hook.(FinishHook); ok {
		r.finish = append(r.finish, h)
		sortByPriority(r.finish)
		registered = true
	}

	if h, ok := hook.(CancelHook); ok {
		r.cancel = append(r.cancel, h)
		sortByPriority(r.cancel)
		registered = true
	}

	if !registered {
		return fmt.Errorf("hook %s implements no lifecycle interface", hook.Name())
	}
	return nil
}

// Unregister removes a hook by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spawn = removeByName(r.spawn, name)
	r.finish = removeByName(r.finish, name)
	r.cancel = removeByName(r.cancel, name)
}

// BeforeSpawn runs all spawn hooks. The first veto stops the chain.
func (r *Registry) BeforeSpawn(ctx context.Context, info task.Info) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.spawn {
		if err := hook.BeforeSpawn(ctx, info); err != nil {
			return fmt.Errorf("hook %s: %w", hook.Name(), err)
		}
	}
	return nil
}

// AfterFinish runs all finish hooks.
func (r *Registry) AfterFinish(ctx context.Context, info task.Info, status task.Status, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.finish {
		hook.AfterFinish(ctx, info, status, err)
	}
}

// OnCancel runs all cancel hooks.
func (r *Registry) OnCancel(ctx context.Context, info task.Info) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, hook := range r.cancel {
		hook.OnCancel(ctx, info)
	}
}

func sortByPriority[H Hook](hooks []H) {
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Priority() < hooks[j].Priority()
	})
}

func removeByName[H Hook](hooks []H, name string) []H {
	result := make([]H, 0, len(hooks))
	for _, h := range hooks {
		if h.Name() != name {
			result = append(result, h)
		}
	}
	return result
}

// LoggingHook is a built-in hook that logs the task lifecycle.
type LoggingHook struct {
	logger func(format string, args ...interface{})
}

// NewLoggingHook creates a new logging hook.
func NewLoggingHook(logger func(format string, args ...interface{})) *LoggingHook {
	return &LoggingHook{logger: logger}
}

func (h *LoggingHook) Name() string  { return "logging" }
func (h *LoggingHook) Priority() int { return 1000 }

func (h *LoggingHook) BeforeSpawn(ctx context.Context, info task.Info) error {
	h.logger("Spawning task: %s handle=%d trace=%s", info.Name, info.ID, info.TraceID)
	return nil
}

func (h *LoggingHook) AfterFinish(ctx context.Context, info task.Info, status task.Status, err error) {
	if err != nil {
		h.logger("Task finished: %s handle=%d status=%s error=%v", info.Name, info.ID, status, err)
		return
	}
	h.logger("Task finished: %s handle=%d status=%s", info.Name, info.ID, status)
}

func (h *LoggingHook) OnCancel(ctx context.Context, info task.Info) {
	h.logger("Cancel requested: %s handle=%d", info.Name, info.ID)
}
