package boundary

import (
	"context"

	"github.com/victoralfred/ffiguard/errslot"
	"github.com/victoralfred/ffiguard/task"
)

// Primitive codes returned across the boundary. After any sentinel the
// caller consults the error slot before making another call, since a
// later failure overwrites the pending record.
const (
	// HandleSentinel is returned by Spawn when no handle was created.
	HandleSentinel int64 = 0

	// CodeSentinel reports a failure; the error slot holds the detail.
	CodeSentinel int32 = -1

	// CodeOK reports success for TakeResult and Release.
	CodeOK int32 = 0

	// CodeRunning and CodeFinished are the Poll statuses.
	CodeRunning  int32 = 1
	CodeFinished int32 = 2

	// CodeCancelRequested and CodeCancelNoop are the Cancel outcomes.
	CodeCancelRequested int32 = 1
	CodeCancelNoop      int32 = 0
)

// Surface exposes one registry instantiation through primitive-typed
// calls. A concrete binding wraps each method in its calling
// convention's export shim; the shims stay mechanical because every
// failure path is already reduced to a sentinel here.
type Surface[O any] struct {
	registry *task.Registry[O]
	boundary *Boundary
}

// Export builds the boundary surface for a registry.
func Export[O any](b *Boundary, reg *task.Registry[O]) *Surface[O] {
	return &Surface[O]{
		registry: reg,
		boundary: b,
	}
}

// Boundary returns the owning context.
func (s *Surface[O]) Boundary() *Boundary {
	return s.boundary
}

// Spawn submits t and returns its handle id, or HandleSentinel after
// recording the failure.
func (s *Surface[O]) Spawn(t task.Task[O]) int64 {
	id, err := s.registry.Spawn(context.Background(), t)
	if err != nil {
		s.boundary.SetLastError(err)
		return HandleSentinel
	}
	return id
}

// Poll reports whether the task behind id is still running.
func (s *Surface[O]) Poll(id int64) int32 {
	status, err := s.registry.Poll(id)
	if err != nil {
		s.boundary.SetLastError(err)
		return CodeSentinel
	}
	if status.Finished() {
		return CodeFinished
	}
	return CodeRunning
}

// Cancel requests cancellation of the task behind id. It returns
// CodeCancelNoop when the task had already finished.
func (s *Surface[O]) Cancel(id int64) int32 {
	requested, err := s.registry.Cancel(id)
	if err != nil {
		s.boundary.SetLastError(err)
		return CodeSentinel
	}
	if !requested {
		return CodeCancelNoop
	}
	return CodeCancelRequested
}

// TakeResult moves the outcome behind id into out. Callers poll until
// CodeFinished first; a failed, cancelled or unknown outcome returns
// CodeSentinel with the slot populated and leaves out untouched.
func (s *Surface[O]) TakeResult(id int64, out *O) int32 {
	if out == nil {
		s.boundary.SetLastError(&task.TaskError{
			Op:     "take_result",
			Kind:   errslot.KindInvalidArgument,
			Detail: "output pointer is nil",
		})
		return CodeSentinel
	}

	v, err := s.registry.TakeResult(id)
	if err != nil {
		s.boundary.SetLastError(err)
		return CodeSentinel
	}

	*out = v
	return CodeOK
}

// Release discards the task behind id, cancelling it if still running
// and blocking until its worker returns.
func (s *Surface[O]) Release(id int64) int32 {
	if err := s.registry.Release(id); err != nil {
		s.boundary.SetLastError(err)
		return CodeSentinel
	}
	return CodeOK
}

// Await blocks until the task behind id finishes and moves its outcome
// into out. It is a Go-side convenience; foreign callers combine Poll
// and TakeResult instead.
func (s *Surface[O]) Await(ctx context.Context, id int64, out *O) int32 {
	if out == nil {
		s.boundary.SetLastError(&task.TaskError{
			Op:     "await",
			Kind:   errslot.KindInvalidArgument,
			Detail: "output pointer is nil",
		})
		return CodeSentinel
	}

	v, err := s.registry.Await(ctx, id)
	if err != nil {
		s.boundary.SetLastError(err)
		return CodeSentinel
	}

	*out = v
	return CodeOK
}
