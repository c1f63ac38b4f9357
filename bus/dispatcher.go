package bus

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"ibflow/logger"
	"ibflow/protocol"
)

// SendFunc delivers an encoded outgoing message to the transport. The
// wire tokens are ready for null-terminated framing; transmission
// itself is outside this core.
type SendFunc func(message string, correlationID int64, wire []string) error

// Dispatcher is the in-memory reference implementation of Bus. It
// allocates correlation ids, runs requests through the outgoing
// message registry and fans inbound events out to subscribers by kind.
type Dispatcher struct {
	registry      *protocol.Registry
	serverVersion int
	send          SendFunc
	log           *logger.Log

	nextID int64

	mu   sync.RWMutex
	subs map[Kind]map[string]func(Event)
}

// NewDispatcher creates a dispatcher encoding against the given
// registry and negotiated server version. send may be nil, in which
// case encoded messages are dropped after encoding; tests and the
// transport layer inject their own delivery.
func NewDispatcher(registry *protocol.Registry, serverVersion int, send SendFunc) *Dispatcher {
	return &Dispatcher{
		registry:      registry,
		serverVersion: serverVersion,
		send:          send,
		log:           logger.GetLogger(),
		subs:          make(map[Kind]map[string]func(Event)),
	}
}

// Subscribe installs fn for every given kind under one handle.
func (d *Dispatcher) Subscribe(fn func(Event), kinds ...Kind) string {
	handle := uuid.NewString()
	d.mu.Lock()
	for _, kind := range kinds {
		m, ok := d.subs[kind]
		if !ok {
			m = make(map[string]func(Event))
			d.subs[kind] = m
		}
		m[handle] = fn
	}
	d.mu.Unlock()
	logger.IncrementSubscriptionAcquired()
	return handle
}

// Unsubscribe removes the given handles from every kind they cover.
// Releasing an already released handle is a no-op; events arriving for
// it afterwards are dropped.
func (d *Dispatcher) Unsubscribe(handles ...string) {
	d.mu.Lock()
	for _, handle := range handles {
		released := false
		for kind, m := range d.subs {
			if _, ok := m[handle]; ok {
				delete(m, handle)
				released = true
			}
			if len(m) == 0 {
				delete(d.subs, kind)
			}
		}
		if released {
			logger.IncrementSubscriptionReleased()
		}
	}
	d.mu.Unlock()
}

// Send encodes the named message with a freshly allocated correlation
// id injected as the "id" field and hands the tokens to the transport.
// Encoding failures are returned before anything is sent.
func (d *Dispatcher) Send(message string, fields protocol.Fields) (int64, error) {
	id := atomic.AddInt64(&d.nextID, 1)

	withID := make(protocol.Fields, len(fields)+1)
	for k, v := range fields {
		withID[k] = v
	}
	withID["id"] = id

	wire, err := d.registry.Encode(message, withID, d.serverVersion)
	if err != nil {
		return 0, err
	}

	logger.IncrementRequestSent(message)
	if d.send != nil {
		if err := d.send(message, id, wire); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// Dispatch fans an inbound event out to every subscriber of its kind.
// Callbacks run on the caller's goroutine, concurrently with the
// subscribing workflows.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.RLock()
	handlers := make([]func(Event), 0, len(d.subs[ev.Kind()]))
	for _, fn := range d.subs[ev.Kind()] {
		handlers = append(handlers, fn)
	}
	d.mu.RUnlock()

	logger.IncrementEventDispatched(string(ev.Kind()))
	for _, fn := range handlers {
		fn(ev)
	}
}
