package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victoralfred/gowritter/safepath"
)

// AuditLogger provides immutable audit logging.
type AuditLogger interface {
	// Log logs an audit event.
	Log(ctx context.Context, event *AuditEvent) error

	// Query queries audit events.
	Query(ctx context.Context, filter *AuditFilter) ([]*AuditEvent, error)

	// Close closes the audit logger.
	Close() error
}

// AuditEvent represents an audit log entry.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	ID        string            `json:"id"`
	ContextID string            `json:"context_id,omitempty"`
	TraceID   string            `json:"trace_id,omitempty"`
	TaskName  string            `json:"task_name,omitempty"`
	Status    string            `json:"status,omitempty"`
	ErrorKind string            `json:"error_kind,omitempty"`
	Error     string            `json:"error,omitempty"`
	Type      AuditEventType    `json:"type"`
	TaskID    int64             `json:"task_id,omitempty"`
	Duration  time.Duration     `json:"duration,omitempty"`
}

// AuditEventType represents the type of audit event.
type AuditEventType string

const (
	// AuditEventTaskSpawned records a task accepted by a registry.
	AuditEventTaskSpawned AuditEventType = "task_spawned"

	// AuditEventTaskFinished records a task reaching a terminal state.
	AuditEventTaskFinished AuditEventType = "task_finished"

	// AuditEventCancelRequested records a cancellation request delivered
	// to a running task.
	AuditEventCancelRequested AuditEventType = "cancel_requested"

	// AuditEventTaskRetrieved records an outcome handed to its caller.
	AuditEventTaskRetrieved AuditEventType = "task_retrieved"

	// AuditEventTaskReleased records a handle abandoned without retrieval.
	AuditEventTaskReleased AuditEventType = "task_released"

	// AuditEventErrorRecorded records an error written to a boundary
	// error slot.
	AuditEventErrorRecorded AuditEventType = "error_recorded"
)

// AuditFilter filters audit events.
type AuditFilter struct {
	// StartTime is the start of the time range.
	StartTime time.Time

	// EndTime is the end of the time range.
	EndTime time.Time

	// TaskName filters by task name.
	TaskName string

	// Type filters by event type.
	Type AuditEventType

	// Status filters by status.
	Status string

	// Limit is the maximum number of events to return.
	Limit int
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	LogLevel     AuditLogLevel
	BasePath     string
	FilePath     string
	MaxErrorSize int
	Enabled      bool
}

// AuditLogLevel determines what events to log.
type AuditLogLevel string

const (
	// AuditLogAll logs all events.
	AuditLogAll AuditLogLevel = "all"

	// AuditLogFailures logs failed and cancelled outcomes plus recorded
	// errors.
	AuditLogFailures AuditLogLevel = "failures"

	// AuditLogErrors logs only errors recorded at a boundary.
	AuditLogErrors AuditLogLevel = "errors"
)

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{
		Enabled:      true,
		LogLevel:     AuditLogAll,
		MaxErrorSize: 1024,
		BasePath:     "/var/log",
		FilePath:     "ffiguard/audit.log",
	}
}

// fileAuditLogger implements AuditLogger using gowritter.
type fileAuditLogger struct {
	safePath *safepath.SafePath
	config   AuditConfig
	mu       sync.Mutex
}

// NewFileAuditLogger creates a new file-based audit logger.
func NewFileAuditLogger(config AuditConfig) (AuditLogger, error) {
	sp, err := safepath.New(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("creating safe path: %w", err)
	}

	return &fileAuditLogger{
		config:   config,
		safePath: sp,
	}, nil
}

// Log implements AuditLogger.Log.
func (l *fileAuditLogger) Log(ctx context.Context, event *AuditEvent) error {
	if !l.config.Enabled {
		return nil
	}

	// Check log level
	if !l.shouldLog(event) {
		return nil
	}

	// Truncate long error text
	if l.config.MaxErrorSize > 0 && len(event.Error) > l.config.MaxErrorSize {
		event.Error = event.Error[:l.config.MaxErrorSize] + "...(truncated)"
	}

	// Marshal to JSON
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling audit event: %w", err)
	}

	// Append newline
	data = append(data, '\n')

	// Write to file using gowritter
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.safePath.AppendFile(l.config.FilePath, data, 0o644); err != nil {
		return fmt.Errorf("writing audit log: %w", err)
	}

	return nil
}

// Query implements AuditLogger.Query.
func (l *fileAuditLogger) Query(ctx context.Context, filter *AuditFilter) ([]*AuditEvent, error) {
	// Read file using gowritter
	data, err := l.safePath.ReadFile(l.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	// Parse events line by line; each line is one JSON document.
	var events []*AuditEvent
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var event AuditEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue // skip corrupt lines rather than fail the query
		}
		if !matchesFilter(&event, filter) {
			continue
		}

		events = append(events, &event)
		if filter != nil && filter.Limit > 0 && len(events) >= filter.Limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning audit log: %w", err)
	}

	return events, nil
}

// Close implements AuditLogger.Close.
func (l *fileAuditLogger) Close() error {
	return nil
}

func (l *fileAuditLogger) shouldLog(event *AuditEvent) bool {
	switch l.config.LogLevel {
	case AuditLogAll:
		return true
	case AuditLogFailures:
		return event.Status == "failed" || event.Status == "cancelled" ||
			event.Type == AuditEventErrorRecorded
	case AuditLogErrors:
		return event.Type == AuditEventErrorRecorded
	default:
		return true
	}
}

func matchesFilter(event *AuditEvent, filter *AuditFilter) bool {
	if filter == nil {
		return true
	}
	if !filter.StartTime.IsZero() && event.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && event.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.TaskName != "" && event.TaskName != filter.TaskName {
		return false
	}
	if filter.Type != "" && event.Type != filter.Type {
		return false
	}
	if filter.Status != "" && event.Status != filter.Status {
		return false
	}
	return true
}

// NewTaskEvent creates an audit event for one task lifecycle transition.
// Callers fill Status, Error and Duration as applicable.
func NewTaskEvent(eventType AuditEventType, taskID int64, taskName, traceID string) *AuditEvent {
	return &AuditEvent{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		TaskID:    taskID,
		TaskName:  taskName,
		TraceID:   traceID,
	}
}

// NoopAuditLogger returns a no-op audit logger.
func NoopAuditLogger() AuditLogger {
	return &noopAuditLogger{}
}

type noopAuditLogger struct{}

func (l *noopAuditLogger) Log(ctx context.Context, event *AuditEvent) error { return nil }
func (l *noopAuditLogger) Query(ctx context.Context, filter *AuditFilter) ([]*AuditEvent, error) {
	return nil, nil
}
func (l *noopAuditLogger) Close() error { return nil }
