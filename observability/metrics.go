package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates task outcomes in process memory, independent of any
// exporter.
type Metrics struct {
	taskStats     map[string]*TaskStats
	totalDuration int64
	durationCount int64
	minDuration   int64
	maxDuration   int64
	totalFinished int64
	succeeded     int64
	failed        int64
	cancelled     int64
	panicked      int64
	mu            sync.RWMutex
}

// TaskStats contains per-task-name statistics.
type TaskStats struct {
	LastFinishedAt time.Time
	TaskName       string
	LastStatus     string
	TotalRuns      int64
	Succeeded      int64
	Failed         int64
	Cancelled      int64
	TotalDuration  int64
	AvgDuration    int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		taskStats:   make(map[string]*TaskStats),
		minDuration: -1,
	}
}

// RecordOutcome records one finished task. Status is the terminal status
// string; panicked marks failures that were recovered panics.
func (m *Metrics) RecordOutcome(taskName, status string, duration time.Duration, panicked bool) {
	atomic.AddInt64(&m.totalFinished, 1)

	// Record status
	switch status {
	case "succeeded":
		atomic.AddInt64(&m.succeeded, 1)
	case "cancelled":
		atomic.AddInt64(&m.cancelled, 1)
	default:
		atomic.AddInt64(&m.failed, 1)
	}
	if panicked {
		atomic.AddInt64(&m.panicked, 1)
	}

	// Record duration
	nanos := duration.Nanoseconds()
	atomic.AddInt64(&m.totalDuration, nanos)
	atomic.AddInt64(&m.durationCount, 1)

	// Update min/max
	for {
		old := atomic.LoadInt64(&m.minDuration)
		if old >= 0 && nanos >= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.minDuration, old, nanos) {
			break
		}
	}

	for {
		old := atomic.LoadInt64(&m.maxDuration)
		if nanos <= old {
			break
		}
		if atomic.CompareAndSwapInt64(&m.maxDuration, old, nanos) {
			break
		}
	}

	// Update per-task-name stats
	m.updateTaskStats(taskName, status, nanos)
}

func (m *Metrics) updateTaskStats(taskName, status string, nanos int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.taskStats[taskName]
	if !ok {
		stats = &TaskStats{TaskName: taskName}
		m.taskStats[taskName] = stats
	}

	stats.TotalRuns++
	stats.TotalDuration += nanos
	stats.AvgDuration = stats.TotalDuration / stats.TotalRuns
	stats.LastFinishedAt = time.Now()
	stats.LastStatus = status

	switch status {
	case "succeeded":
		stats.Succeeded++
	case "cancelled":
		stats.Cancelled++
	default:
		stats.Failed++
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	minDuration := atomic.LoadInt64(&m.minDuration)
	if minDuration < 0 {
		minDuration = 0
	}

	return MetricsSnapshot{
		TotalFinished: atomic.LoadInt64(&m.totalFinished),
		Succeeded:     atomic.LoadInt64(&m.succeeded),
		Failed:        atomic.LoadInt64(&m.failed),
		Cancelled:     atomic.LoadInt64(&m.cancelled),
		Panicked:      atomic.LoadInt64(&m.panicked),
		AvgDuration:   m.avgDuration(),
		MinDuration:   time.Duration(minDuration),
		MaxDuration:   time.Duration(atomic.LoadInt64(&m.maxDuration)),
		TaskStats:     m.getTaskStats(),
	}
}

// MetricsSnapshot is a point-in-time snapshot of metrics.
type MetricsSnapshot struct {
	TaskStats     map[string]*TaskStats
	TotalFinished int64
	Succeeded     int64
	Failed        int64
	Cancelled     int64
	Panicked      int64
	AvgDuration   time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

// SuccessRate returns the success rate as a percentage.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalFinished == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.TotalFinished) * 100
}

// FailureRate returns the failure rate as a percentage.
func (s MetricsSnapshot) FailureRate() float64 {
	if s.TotalFinished == 0 {
		return 0
	}
	return float64(s.Failed) / float64(s.TotalFinished) * 100
}

func (m *Metrics) avgDuration() time.Duration {
	count := atomic.LoadInt64(&m.durationCount)
	if count == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalDuration) / count)
}

func (m *Metrics) getTaskStats() map[string]*TaskStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]*TaskStats, len(m.taskStats))
	for k, v := range m.taskStats {
		// Copy stats
		copied := *v
		result[k] = &copied
	}
	return result
}

// Reset resets all metrics.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.totalFinished, 0)
	atomic.StoreInt64(&m.succeeded, 0)
	atomic.StoreInt64(&m.failed, 0)
	atomic.StoreInt64(&m.cancelled, 0)
	atomic.StoreInt64(&m.panicked, 0)
	atomic.StoreInt64(&m.totalDuration, 0)
	atomic.StoreInt64(&m.durationCount, 0)
	atomic.StoreInt64(&m.minDuration, -1)
	atomic.StoreInt64(&m.maxDuration, 0)

	m.mu.Lock()
	m.taskStats = make(map[string]*TaskStats)
	m.mu.Unlock()
}
