// Package sentinel documents the reserved-value convention used by
// boundary returns. A sentinel is an obviously invalid value of the
// return type: the null pointer, 0 or -1 for integers, the zero value in
// general. It signals only that a failure happened; the explanation lives
// in the error slot. The convention is a pure value predicate and carries
// no ownership meaning.
package sentinel

// Nullable is the capability claimed by types that reserve one of their
// values to mean invalid. IsNull reports whether the receiver equals that
// reserved value.
type Nullable interface {
	IsNull() bool
}

// Value wraps a T together with a validity flag, for types that have no
// natural reserved value of their own.
type Value[T any] struct {
	// V is the wrapped value, meaningful only when Valid is true.
	V T

	// Valid distinguishes a real value from the reserved one.
	Valid bool
}

// Some returns a valid Value holding v.
func Some[T any](v T) Value[T] {
	return Value[T]{V: v, Valid: true}
}

// None returns the reserved invalid Value.
func None[T any]() Value[T] {
	return Value[T]{}
}

// Get returns the wrapped value and whether it is valid.
func (v Value[T]) Get() (T, bool) {
	return v.V, v.Valid
}

// IsNull implements Nullable.
func (v Value[T]) IsNull() bool {
	return !v.Valid
}

// IsZero reports whether v equals the zero value of T, the default
// reserved value for comparable scalar types.
func IsZero[T comparable](v T) bool {
	var zero T
	return v == zero
}
