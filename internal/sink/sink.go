// Package sink implements a bounded MPSC event buffer: zero or more
// vendor-callback producer goroutines submit events, and one consumer
// goroutine drains them. Each capture adapter keeps its own correlation
// counter behind its own lock, so contention on the shared sink stays low and a
// single mutex is the idiomatic choice over a lock-free structure that
// throughput here never demands.
package sink

import (
	"sync"

	"github.com/tracesmith/tracesmith/internal/event"
)

// LiveCallback is invoked by Submit before an event is placed in the
// buffer, on the producer's goroutine. Per the capture sink contract, it
// must not block and must not itself call Drain; a single re-entrant call
// to Submit from within the callback is tolerated (see Submit), anything
// deeper is undefined behavior by contract, not something this package
// tries to detect.
type LiveCallback func(*event.Event)

// Sink is the bounded event buffer.
type Sink struct {
	mu       sync.Mutex
	buf      []event.Event
	capacity int
	captured uint64
	dropped  uint64
	live     LiveCallback
}

// New returns a Sink bounded at capacity events. A capacity of 0 means
// unbounded (useful for tests and for the simulation adapter, which never
// drops).
func New(capacity int) *Sink {
	return &Sink{capacity: capacity}
}

// SetLiveCallback installs fn as the sink's live callback. Passing nil
// removes the callback.
func (s *Sink) SetLiveCallback(fn LiveCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = fn
}

// Submit appends e to the buffer in insertion order, returning false if the
// sink is full (the event is dropped and counted, never allocated into the
// buffer). O(1) amortised. The live callback runs without the sink's lock
// held, so a Submit made from inside the callback does not deadlock.
func (s *Sink) Submit(e event.Event) bool {
	s.mu.Lock()
	if s.capacity > 0 && len(s.buf) >= s.capacity {
		s.dropped++
		s.mu.Unlock()
		return false
	}
	live := s.live
	s.mu.Unlock()

	if live != nil {
		live(&e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity > 0 && len(s.buf) >= s.capacity {
		s.dropped++
		return false
	}

	s.buf = append(s.buf, e)
	s.captured++
	return true
}

// Drain moves up to max events out of the buffer in insertion order and
// returns ownership to the caller. max <= 0 means unbounded.
func (s *Sink) Drain(max int) []event.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.buf) == 0 {
		return nil
	}
	if max <= 0 || max >= len(s.buf) {
		out := s.buf
		s.buf = nil
		return out
	}
	out := s.buf[:max]
	rest := make([]event.Event, len(s.buf)-max)
	copy(rest, s.buf[max:])
	s.buf = rest
	return out
}

// Counts returns (captured, dropped) drop accounting: captured + dropped
// equals the total number of Submit attempts.
func (s *Sink) Counts() (captured, dropped uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captured, s.dropped
}

// Len reports how many events are currently buffered, without draining
// them.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
