package task

import "time"

// Status is the observable lifecycle state of a spawned task.
type Status int

const (
	// StatusRunning means the worker has not finished.
	StatusRunning Status = iota + 1

	// StatusSucceeded means the task returned a result.
	StatusSucceeded

	// StatusFailed means the task returned an error or panicked.
	StatusFailed

	// StatusCancelled means the task observed its token and stopped early.
	StatusCancelled
)

// String returns a human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Finished reports whether s is terminal.
func (s Status) Finished() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// Outcome is the single terminal result of one task execution. Exactly one
// is produced per spawn.
type Outcome[O any] struct {
	// Output is meaningful only when Status is StatusSucceeded.
	Output O

	// Err explains failed and cancelled outcomes.
	Err error

	// Status is the terminal state, never StatusRunning.
	Status Status

	// Duration is the wall time the worker spent in Run.
	Duration time.Duration
}
