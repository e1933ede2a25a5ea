package task

import (
	"errors"
	"testing"

	"github.com/victoralfred/ffiguard/errslot"
	"github.com/victoralfred/ffiguard/panicguard"
)

func TestTaskError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *TaskError
		expected string
	}{
		{
			name:     "op name and detail",
			err:      &TaskError{Op: "spawn", TaskName: "resize", Detail: "spawn rate exceeded"},
			expected: "spawn: resize: spawn rate exceeded",
		},
		{
			name:     "op name and wrapped error",
			err:      &TaskError{Op: "take_result", TaskName: "resize", Err: errors.New("boom")},
			expected: "take_result: resize: boom",
		},
		{
			name:     "op and detail without task name",
			err:      &TaskError{Op: "poll", Detail: "handle 9 does not exist"},
			expected: "poll: handle 9 does not exist",
		},
		{
			name:     "op and wrapped error without task name",
			err:      &TaskError{Op: "cancel", Err: ErrUnknownHandle},
			expected: "cancel: unknown task handle",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestTaskError_Is(t *testing.T) {
	err := NewAlreadyRetrievedError("take_result", 3)
	if !errors.Is(err, ErrAlreadyRetrieved) {
		t.Error("Expected error to match ErrAlreadyRetrieved")
	}
	if errors.Is(err, ErrUnknownHandle) {
		t.Error("Expected error not to match ErrUnknownHandle")
	}
}

func TestTaskError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewTaskFailedError("resize", cause)
	if !errors.Is(err, cause) {
		t.Error("Expected wrapped cause to be reachable")
	}

	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatal("Expected TaskError")
	}
	if taskErr.Unwrap() != cause {
		t.Errorf("Expected Unwrap to return cause, got %v", taskErr.Unwrap())
	}
}

func TestNewTaskFailedError_PanicKind(t *testing.T) {
	plain := NewTaskFailedError("resize", errors.New("boom"))
	if got := KindOf(plain); got != errslot.KindTaskFailed {
		t.Errorf("Expected kind %s, got %s", errslot.KindTaskFailed, got)
	}

	panicked := NewTaskFailedError("resize", &panicguard.PanicError{Message: "kaboom"})
	if got := KindOf(panicked); got != errslot.KindInternalPanic {
		t.Errorf("Expected kind %s, got %s", errslot.KindInternalPanic, got)
	}
}

func TestNewTaskCancelledError_NilCause(t *testing.T) {
	err := NewTaskCancelledError("resize", nil)
	if !errors.Is(err, ErrCancelled) {
		t.Error("Expected ErrCancelled as default cause")
	}
	if got := KindOf(err); got != errslot.KindTaskCancelled {
		t.Errorf("Expected kind %s, got %s", errslot.KindTaskCancelled, got)
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected errslot.Kind
	}{
		{
			name:     "task error carries its kind",
			err:      NewUnknownHandleError("poll", 9),
			expected: errslot.KindUnknownHandle,
		},
		{
			name:     "still running is invalid argument",
			err:      NewStillRunningError(4),
			expected: errslot.KindInvalidArgument,
		},
		{
			name:     "spawn limit is resource exhausted",
			err:      NewSpawnLimitError("resize", "spawn rate exceeded"),
			expected: errslot.KindResourceExhausted,
		},
		{
			name:     "bare panic error",
			err:      &panicguard.PanicError{Message: "kaboom"},
			expected: errslot.KindInternalPanic,
		},
		{
			name:     "bare cancelled sentinel",
			err:      ErrCancelled,
			expected: errslot.KindTaskCancelled,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: errslot.KindTaskFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.expected {
				t.Errorf("Expected kind %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMessageOf(t *testing.T) {
	failed := NewTaskFailedError("resize", errors.New("boom"))
	if got := MessageOf(failed); got != "boom" {
		t.Errorf("Expected %q, got %q", "boom", got)
	}

	limit := NewSpawnLimitError("resize", `spawn rate exceeded for "resize"`)
	if got := MessageOf(limit); got != `spawn rate exceeded for "resize"` {
		t.Errorf("Expected detail to win, got %q", got)
	}

	plain := errors.New("plain")
	if got := MessageOf(plain); got != "plain" {
		t.Errorf("Expected %q, got %q", "plain", got)
	}

	if got := MessageOf(nil); got != "" {
		t.Errorf("Expected empty message for nil error, got %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"spawn limit", NewSpawnLimitError("resize", "rate exceeded"), true},
		{"spawn suspended", NewSpawnSuspendedError("resize"), true},
		{"still running", NewStillRunningError(4), true},
		{"unknown handle", NewUnknownHandleError("poll", 9), false},
		{"task failed", NewTaskFailedError("resize", errors.New("boom")), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}
