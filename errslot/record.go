package errslot

// Kind classifies a pending error for foreign callers.
type Kind string

// Record kinds.
const (
	// KindInvalidArgument indicates a caller-supplied value was unusable.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"

	// KindInternalPanic indicates a panic was intercepted at the boundary.
	KindInternalPanic Kind = "INTERNAL_PANIC"

	// KindTaskFailed indicates a task run returned an error.
	KindTaskFailed Kind = "TASK_FAILED"

	// KindTaskCancelled indicates a task stopped after observing its
	// cancellation token.
	KindTaskCancelled Kind = "TASK_CANCELLED"

	// KindUnknownHandle indicates an identifier that was never issued.
	KindUnknownHandle Kind = "UNKNOWN_HANDLE"

	// KindAlreadyRetrieved indicates an identifier whose outcome was
	// already taken or whose handle was released.
	KindAlreadyRetrieved Kind = "ALREADY_RETRIEVED"

	// KindResourceExhausted indicates spawning was refused by a limit,
	// an open breaker, or a closed registry.
	KindResourceExhausted Kind = "RESOURCE_EXHAUSTED"
)

// Record is a single pending error: a machine-readable kind plus the
// human-readable message shown to the foreign caller.
type Record struct {
	// Kind classifies the failure.
	Kind Kind

	// Message is the display text, encoded as UTF-8.
	Message string
}
