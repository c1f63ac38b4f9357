package engine

import (
	"sync"

	"ibflow/bus"
)

// Handle is the detached-mode result of Engine.Go.
type Handle struct {
	done    chan struct{}
	once    sync.Once
	outcome Outcome
	err     error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) complete(o Outcome, err error) {
	h.once.Do(func() {
		h.outcome = o
		h.err = err
		close(h.done)
	})
}

// Done is closed when the call has completed.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Await blocks until the call completes and returns its outcome.
func (h *Handle) Await() (Outcome, error) {
	<-h.done
	return h.outcome, h.err
}

// callState is the per-call mutable state shared between the event
// callback and the waiting worker. The mutex both protects the state
// and serializes handler invocations, which preserves delivery order
// within one correlation id.
type callState struct {
	mu        sync.Mutex
	id        int64
	events    int
	closed    bool
	handler   Handler
	finalized chan struct{}
}

// onEvent is the bus callback. Events carrying a foreign correlation
// id are ignored; late events after close are dropped.
func (s *callState) onEvent(ev bus.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ev.CorrelationID() != s.id {
		return
	}
	s.events++
	if s.handler(ev) == Finalize {
		s.closed = true
		close(s.finalized)
	}
}

// close marks the call finished without finalizing, used on timeout
// and cancellation so stragglers are dropped.
func (s *callState) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *callState) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}
