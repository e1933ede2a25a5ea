// Package task runs user-supplied units of work on background goroutines
// and tracks them through opaque integer handles. A spawned task moves
// from running to exactly one terminal state, its outcome is retrievable
// once, and every failure path, panics included, ends as an ordinary
// error value instead of an unwind.
package task

// Task is a unit of long-running work executed on a background goroutine.
// The description must be immutable once spawned: the registry keeps its
// own reference while the caller may retain theirs. Run should poll the
// token at convenient intervals and return ErrCancelled when it stops
// early because of it.
type Task[O any] interface {
	// Name identifies the task kind for limits, breakers and telemetry.
	Name() string

	// Run performs the work. It is called exactly once per spawn and is
	// the only place allowed to block.
	Run(token *Token) (O, error)
}

// Func adapts a plain function to the Task interface.
type Func[O any] struct {
	// TaskName identifies the task kind; empty defaults to "func".
	TaskName string

	// Fn is the work to run.
	Fn func(token *Token) (O, error)
}

// Name implements Task.
func (f Func[O]) Name() string {
	if f.TaskName == "" {
		return "func"
	}
	return f.TaskName
}

// Run implements Task.
func (f Func[O]) Run(token *Token) (O, error) {
	return f.Fn(token)
}
