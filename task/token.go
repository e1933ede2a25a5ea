package task

import "sync/atomic"

// Token is a shared cancellation flag polled cooperatively by task code.
// It starts out not cancelled and transitions to cancelled at most once;
// there is no reset. Cancellation flags intent, it never preempts.
type Token struct {
	cancelled int32
}

// NewToken returns a token in the not-cancelled state.
func NewToken() *Token {
	return &Token{}
}

// Cancel marks the token cancelled. Calling it again has no further
// effect, and the new state is visible to every holder.
func (t *Token) Cancel() {
	atomic.StoreInt32(&t.cancelled, 1)
}

// Cancelled reports whether Cancel has been called. It never blocks.
func (t *Token) Cancelled() bool {
	return atomic.LoadInt32(&t.cancelled) == 1
}
