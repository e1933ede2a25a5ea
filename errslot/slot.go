// Package errslot provides per-context storage for the most recent error
// raised behind a foreign boundary. A boundary call that fails returns a
// sentinel value and leaves a Record here; the foreign caller reads the
// record out of band before making another call.
package errslot

import "sync"

// Slot holds at most one pending Record for a logical execution context.
// A later Set overwrites an unread record, and reads through Take consume
// it. All methods are safe for concurrent use.
type Slot struct {
	mu  sync.Mutex
	rec *Record
}

// NewSlot returns an empty slot.
func NewSlot() *Slot {
	return &Slot{}
}

// Set stores rec, discarding any unread record.
func (s *Slot) Set(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
}

// Take removes and returns the pending record. The second return value is
// false when the slot is empty.
func (s *Slot) Take() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Record{}, false
	}
	rec := *s.rec
	s.rec = nil
	return rec, true
}

// Peek returns the pending record without consuming it.
func (s *Slot) Peek() (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Record{}, false
	}
	return *s.rec, true
}

// Clear drops any pending record.
func (s *Slot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
}

// MessageLength reports the buffer size CopyMessage needs for the pending
// message: the message byte length plus one for the trailing zero byte.
// It returns 0 when no record is pending.
func (s *Slot) MessageLength() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return 0
	}
	return int32(len(s.rec.Message)) + 1
}

// CopyMessage writes the pending message into buf followed by a single
// zero byte and returns the number of bytes written, terminator included.
// It returns 0 when no record is pending and -1 when buf cannot hold the
// message plus terminator. The record stays pending either way, and buf is
// never partially written.
func (s *Slot) CopyMessage(buf []byte) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return 0
	}
	msg := s.rec.Message
	if len(buf) < len(msg)+1 {
		return -1
	}
	n := copy(buf, msg)
	buf[n] = 0
	return int32(n) + 1
}
