package task

import (
	"errors"
	"fmt"

	"github.com/victoralfred/ffiguard/errslot"
	"github.com/victoralfred/ffiguard/panicguard"
)

// Sentinel errors for common conditions.
var (
	// ErrCancelled is returned by task code that stops early after
	// observing a cancelled token.
	ErrCancelled = errors.New("task cancelled")

	// ErrUnknownHandle indicates an identifier this registry never issued.
	ErrUnknownHandle = errors.New("unknown task handle")

	// ErrAlreadyRetrieved indicates an identifier whose outcome was
	// already taken or whose handle was released.
	ErrAlreadyRetrieved = errors.New("task result already retrieved")

	// ErrStillRunning indicates a result was requested before the task
	// finished.
	ErrStillRunning = errors.New("task still running")

	// ErrRegistryClosed indicates the registry no longer accepts tasks.
	ErrRegistryClosed = errors.New("registry closed")

	// ErrSpawnLimit indicates the spawn rate or live-handle cap was hit.
	ErrSpawnLimit = errors.New("spawn limit reached")

	// ErrSpawnSuspended indicates the breaker is open for this task name.
	ErrSpawnSuspended = errors.New("task spawning suspended")

	// ErrInvalidTask indicates a nil or unusable task description.
	ErrInvalidTask = errors.New("invalid task")
)

// TaskError provides detailed error information.
type TaskError struct {
	// Op is the operation that failed.
	Op string

	// TaskName is the task kind involved, when known.
	TaskName string

	// Err is the underlying error.
	Err error

	// Kind classifies the failure for the boundary error slot.
	Kind errslot.Kind

	// Detail is the message surfaced to foreign callers. When empty, the
	// underlying error text serves.
	Detail string

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error returns the error message.
func (e *TaskError) Error() string {
	if e.TaskName != "" {
		if e.Detail != "" {
			return fmt.Sprintf("%s: %s: %s", e.Op, e.TaskName, e.Detail)
		}
		return fmt.Sprintf("%s: %s: %v", e.Op, e.TaskName, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Detail)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *TaskError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Error constructors for consistent error creation.

// NewRegistryClosedError reports a spawn attempted after Close.
func NewRegistryClosedError(name string) error {
	return &TaskError{
		Op:       "spawn",
		TaskName: name,
		Err:      ErrRegistryClosed,
		Kind:     errslot.KindResourceExhausted,
		Detail:   "registry is closed",
	}
}

// NewSpawnLimitError reports a spawn refused by the rate limiter or the
// live-handle cap.
func NewSpawnLimitError(name, detail string) error {
	return &TaskError{
		Op:        "spawn",
		TaskName:  name,
		Err:       ErrSpawnLimit,
		Kind:      errslot.KindResourceExhausted,
		Detail:    detail,
		Retryable: true,
	}
}

// NewSpawnSuspendedError reports a spawn refused by an open breaker.
func NewSpawnSuspendedError(name string) error {
	return &TaskError{
		Op:        "spawn",
		TaskName:  name,
		Err:       ErrSpawnSuspended,
		Kind:      errslot.KindResourceExhausted,
		Detail:    fmt.Sprintf("spawning of %q is suspended after repeated failures", name),
		Retryable: true,
	}
}

// NewHookDeniedError reports a spawn vetoed by a BeforeSpawn hook.
func NewHookDeniedError(name string, err error) error {
	return &TaskError{
		Op:       "spawn",
		TaskName: name,
		Err:      err,
		Kind:     errslot.KindInvalidArgument,
	}
}

// NewInvalidTaskError reports an unusable task description.
func NewInvalidTaskError() error {
	return &TaskError{
		Op:     "spawn",
		Err:    ErrInvalidTask,
		Kind:   errslot.KindInvalidArgument,
		Detail: "task is nil",
	}
}

// NewUnknownHandleError reports an identifier this registry never issued.
func NewUnknownHandleError(op string, id int64) error {
	return &TaskError{
		Op:     op,
		Err:    ErrUnknownHandle,
		Kind:   errslot.KindUnknownHandle,
		Detail: fmt.Sprintf("handle %d does not exist", id),
	}
}

// NewAlreadyRetrievedError reports an identifier whose handle is gone.
func NewAlreadyRetrievedError(op string, id int64) error {
	return &TaskError{
		Op:     op,
		Err:    ErrAlreadyRetrieved,
		Kind:   errslot.KindAlreadyRetrieved,
		Detail: fmt.Sprintf("handle %d was already retrieved or released", id),
	}
}

// NewStillRunningError reports a retrieval attempted before completion.
func NewStillRunningError(id int64) error {
	return &TaskError{
		Op:        "take_result",
		Err:       ErrStillRunning,
		Kind:      errslot.KindInvalidArgument,
		Detail:    fmt.Sprintf("handle %d has not finished", id),
		Retryable: true,
	}
}

// NewTaskFailedError wraps the error a task run produced. A recovered
// panic keeps its own kind so foreign callers can tell the two apart.
func NewTaskFailedError(name string, err error) error {
	kind := errslot.KindTaskFailed
	var pe *panicguard.PanicError
	if errors.As(err, &pe) {
		kind = errslot.KindInternalPanic
	}
	return &TaskError{
		Op:       "take_result",
		TaskName: name,
		Err:      err,
		Kind:     kind,
	}
}

// NewTaskCancelledError reports a task that stopped after observing its
// token.
func NewTaskCancelledError(name string, err error) error {
	if err == nil {
		err = ErrCancelled
	}
	return &TaskError{
		Op:       "take_result",
		TaskName: name,
		Err:      err,
		Kind:     errslot.KindTaskCancelled,
	}
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Retryable
	}
	return false
}

// KindOf extracts the error slot kind from an error. Errors that are not
// TaskErrors are classified by inspection, defaulting to KindTaskFailed.
func KindOf(err error) errslot.Kind {
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		return taskErr.Kind
	}
	var pe *panicguard.PanicError
	if errors.As(err, &pe) {
		return errslot.KindInternalPanic
	}
	if errors.Is(err, ErrCancelled) {
		return errslot.KindTaskCancelled
	}
	return errslot.KindTaskFailed
}

// MessageOf extracts the display message shown to foreign callers. For a
// TaskError the explicit detail wins, then the underlying error text, so
// a failing task surfaces exactly the message it failed with.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var taskErr *TaskError
	if errors.As(err, &taskErr) {
		if taskErr.Detail != "" {
			return taskErr.Detail
		}
		if taskErr.Err != nil {
			return taskErr.Err.Error()
		}
	}
	return err.Error()
}
