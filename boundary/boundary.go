// Package boundary adapts registries and error slots to the primitive
// calling convention of a foreign caller. Failures never cross the
// boundary as Go errors or panics: each call returns a typed sentinel
// and leaves a record in the owning context's error slot, which the
// caller reads out of band.
package boundary

import (
	"context"

	"github.com/google/uuid"

	"github.com/victoralfred/ffiguard/errslot"
	"github.com/victoralfred/ffiguard/observability"
	"github.com/victoralfred/ffiguard/panicguard"
	"github.com/victoralfred/ffiguard/task"
)

// Boundary is one logical execution context on the foreign side. Each
// context owns its error slot, so concurrent callers holding separate
// contexts never race each other's pending errors.
type Boundary struct {
	slot      *errslot.Slot
	telemetry observability.Telemetry
	audit     observability.AuditLogger
	id        string
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithTelemetry sets the telemetry implementation.
func WithTelemetry(t observability.Telemetry) Option {
	return func(b *Boundary) {
		b.telemetry = t
	}
}

// WithAuditLogger sets the audit logger.
func WithAuditLogger(a observability.AuditLogger) Option {
	return func(b *Boundary) {
		b.audit = a
	}
}

// New creates a boundary context with an empty error slot.
func New(opts ...Option) *Boundary {
	b := &Boundary{
		slot:      errslot.NewSlot(),
		telemetry: observability.NoopTelemetry(),
		audit:     observability.NoopAuditLogger(),
		id:        uuid.New().String(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// ID returns the context identifier.
func (b *Boundary) ID() string {
	return b.id
}

// SetLastError classifies err and stores it as the context's pending
// error, overwriting any unread record. A nil err is ignored.
func (b *Boundary) SetLastError(err error) {
	if err == nil {
		return
	}

	rec := errslot.Record{
		Kind:    task.KindOf(err),
		Message: task.MessageOf(err),
	}
	b.slot.Set(rec)

	b.telemetry.RecordCounter("errors_recorded_total", map[string]string{
		"kind": string(rec.Kind),
	})

	event := observability.NewTaskEvent(observability.AuditEventErrorRecorded, 0, "", "")
	event.ContextID = b.id
	event.ErrorKind = string(rec.Kind)
	event.Error = rec.Message
	_ = b.audit.Log(context.Background(), event)
}

// TakeLastError removes and returns the pending record. The second
// return value is false when no error is pending.
func (b *Boundary) TakeLastError() (errslot.Record, bool) {
	return b.slot.Take()
}

// PeekLastError returns the pending record without consuming it.
func (b *Boundary) PeekLastError() (errslot.Record, bool) {
	return b.slot.Peek()
}

// ClearLastError drops any pending record.
func (b *Boundary) ClearLastError() {
	b.slot.Clear()
}

// LastErrorLength reports the buffer size LastErrorMessage needs: the
// pending message's byte length plus one for the trailing zero byte, or
// 0 when no error is pending.
func (b *Boundary) LastErrorLength() int32 {
	return b.slot.MessageLength()
}

// LastErrorMessage writes the pending message into buf followed by a
// zero byte and returns the bytes written, terminator included. It
// returns 0 when no error is pending and -1 when buf is too small. The
// record stays pending either way.
func (b *Boundary) LastErrorMessage(buf []byte) int32 {
	return b.slot.CopyMessage(buf)
}

// Call runs fn under the panic guard and funnels any failure into the
// context's error slot. The second return value reports success; on
// failure the zero value is returned and the caller hands its sentinel
// to the foreign side.
func Call[T any](b *Boundary, fn func() (T, error)) (T, bool) {
	out, err := panicguard.Do(fn)
	if err != nil {
		b.SetLastError(err)
		var zero T
		return zero, false
	}
	return out, true
}
