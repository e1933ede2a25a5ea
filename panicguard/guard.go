// Package panicguard converts panics into error values so that no
// unwinding ever crosses toward a foreign caller. Containment happens at
// the innermost frame the library controls; the recovered panic travels
// onward as an ordinary error.
package panicguard

import (
	"fmt"
	"runtime/debug"
)

// DefaultMessage is the display text used when a panic payload carries no
// usable text of its own.
const DefaultMessage = "The program panicked"

// PanicError is a recovered panic presented as an error.
type PanicError struct {
	// Value is the original panic payload.
	Value any

	// Message is the human-readable text derived from Value.
	Message string

	// Stack is the goroutine stack captured at the recovery point.
	Stack []byte
}

func (e *PanicError) Error() string {
	return e.Message
}

// Unwrap exposes the payload when the panic was raised with an error, so
// errors.Is and errors.As keep working through the guard.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Do invokes fn and passes its result through unchanged. A panic inside fn
// is intercepted before it can cross the caller's frame and returned as a
// *PanicError along with the zero value of T.
func Do[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = &PanicError{
				Value:   r,
				Message: messageOf(r),
				Stack:   debug.Stack(),
			}
		}
	}()
	return fn()
}

// Run invokes fn with the same containment for work without a result.
func Run(fn func() error) error {
	_, err := Do(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// messageOf derives display text from a panic payload. It must never
// panic itself: the derivation runs under its own recover and degrades to
// DefaultMessage when the payload misbehaves.
func messageOf(v any) (msg string) {
	defer func() {
		if recover() != nil {
			msg = DefaultMessage
		}
	}()

	switch p := v.(type) {
	case string:
		return p
	case error:
		return p.Error()
	case fmt.Stringer:
		return p.String()
	default:
		return DefaultMessage
	}
}
