// Package resilience provides spawn rate limiting, circuit breaking and
// retry backoff.
package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter controls how fast tasks may spawn.
type RateLimiter interface {
	// Allow checks if a spawn is allowed for the given task name.
	Allow(name string) bool

	// Wait blocks until a spawn is allowed or context is canceled.
	Wait(ctx context.Context, name string) error

	// SetLimit updates the rate limit for a task name.
	SetLimit(name string, limit rate.Limit, burst int)
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// DefaultLimit is the default spawns per second.
	DefaultLimit float64

	// DefaultBurst is the default burst size.
	DefaultBurst int

	// PerTask enables per-task-name rate limiting.
	PerTask bool

	// TaskLimits contains per-task-name rate limits.
	TaskLimits map[string]TaskLimit
}

// TaskLimit defines the rate limit for a specific task name.
type TaskLimit struct {
	Limit float64
	Burst int
}

// DefaultRateLimiterConfig returns default configuration.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultLimit: 100,
		DefaultBurst: 150,
		PerTask:      true,
		TaskLimits:   make(map[string]TaskLimit),
	}
}

// rateLimiter implements RateLimiter.
type rateLimiter struct {
	config       RateLimiterConfig
	global       *rate.Limiter
	taskLimiters map[string]*rate.Limiter
	mu           sync.RWMutex
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) RateLimiter {
	rl := &rateLimiter{
		config:       config,
		global:       rate.NewLimiter(rate.Limit(config.DefaultLimit), config.DefaultBurst),
		taskLimiters: make(map[string]*rate.Limiter),
	}

	// Initialize per-task limiters
	for name, limit := range config.TaskLimits {
		rl.taskLimiters[name] = rate.NewLimiter(rate.Limit(limit.Limit), limit.Burst)
	}

	return rl
}

// Allow implements RateLimiter.Allow.
func (rl *rateLimiter) Allow(name string) bool {
	if !rl.config.PerTask {
		return rl.global.Allow()
	}

	limiter := rl.getLimiter(name)
	return limiter.Allow()
}

// Wait implements RateLimiter.Wait.
func (rl *rateLimiter) Wait(ctx context.Context, name string) error {
	if !rl.config.PerTask {
		return rl.global.Wait(ctx)
	}

	limiter := rl.getLimiter(name)
	return limiter.Wait(ctx)
}

// SetLimit implements RateLimiter.SetLimit.
func (rl *rateLimiter) SetLimit(name string, limit rate.Limit, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.taskLimiters[name]; ok {
		limiter.SetLimit(limit)
		limiter.SetBurst(burst)
	} else {
		rl.taskLimiters[name] = rate.NewLimiter(limit, burst)
	}
}

func (rl *rateLimiter) getLimiter(name string) *rate.Limiter {
	rl.mu.RLock()
	limiter, ok := rl.taskLimiters[name]
	rl.mu.RUnlock()

	if ok {
		return limiter
	}

	// Create new limiter with default settings
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if existing, ok := rl.taskLimiters[name]; ok {
		return existing
	}

	newLimiter := rate.NewLimiter(rate.Limit(rl.config.DefaultLimit), rl.config.DefaultBurst)
	rl.taskLimiters[name] = newLimiter
	return newLimiter
}
