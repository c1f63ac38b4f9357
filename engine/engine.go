// Package engine implements the correlated request/response pattern
// shared by the contract workflows: allocate a correlation id,
// subscribe to a transient set of inbound event kinds, send the
// request, race incoming events against a deadline and release the
// subscription on every exit path.
package engine

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"ibflow/bus"
	"ibflow/logger"
	"ibflow/protocol"
)

// Decision is a handler's verdict on one inbound event.
type Decision int

const (
	// Continue keeps the wait running.
	Continue Decision = iota
	// Finalize ends the wait early, e.g. on an end-of-data marker or
	// an error code addressed to this request.
	Finalize
)

// Handler consumes one inbound event matching the call's correlation
// id. Invocations are serialized by the engine; handler-owned
// accumulator state needs no further locking.
type Handler func(ev bus.Event) Decision

// Request names the outgoing message and its field set.
type Request struct {
	Message string
	Fields  protocol.Fields
}

// Outcome reports how a call ended. A timeout is not an error at this
// layer; callers decide between logging and propagation.
type Outcome struct {
	TimedOut bool
	Events   int
}

// Engine runs correlated calls against a bus. The zero rate limiter
// means unpaced sends; gateways enforce a message pace, so production
// configs set one.
type Engine struct {
	bus     bus.Bus
	limiter *rate.Limiter
	log     *logger.Log
}

// Option configures an Engine.
type Option func(*Engine)

// WithRateLimit paces outgoing sends to requestsPerSecond with the
// given burst.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(e *Engine) {
		e.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// New creates an engine sending through b.
func New(b bus.Bus, opts ...Option) *Engine {
	e := &Engine{bus: b, log: logger.GetLogger()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the call synchronously and blocks until it finalizes,
// times out or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, req Request, kinds []bus.Kind, handler Handler, timeout time.Duration) (Outcome, error) {
	return e.Go(ctx, req, kinds, handler, timeout).Await()
}

// Go executes the call detached and returns a handle to wait on.
//
// The subscription is installed before the request is sent, and the
// send happens under the same lock that gates handler entry, so no
// event can be examined before the correlation id is known. The
// subscription is released exactly once, on success, timeout,
// cancellation and send failure alike. A timeout does not cancel the
// request at the gateway; responses arriving after release are dropped
// by the bus.
func (e *Engine) Go(ctx context.Context, req Request, kinds []bus.Kind, handler Handler, timeout time.Duration) *Handle {
	h := newHandle()
	st := &callState{handler: handler, finalized: make(chan struct{})}

	sub := e.bus.Subscribe(st.onEvent, kinds...)

	st.mu.Lock()
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			st.closed = true
			st.mu.Unlock()
			e.bus.Unsubscribe(sub)
			h.complete(Outcome{}, err)
			return h
		}
	}
	id, err := e.bus.Send(req.Message, req.Fields)
	st.id = id
	if err != nil {
		st.closed = true
	}
	st.mu.Unlock()

	if err != nil {
		e.bus.Unsubscribe(sub)
		h.complete(Outcome{}, err)
		return h
	}

	go func() {
		defer e.bus.Unsubscribe(sub)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-st.finalized:
			h.complete(Outcome{Events: st.eventCount()}, nil)
		case <-timer.C:
			// The timer and a finalizing event can fire in the same
			// instant; a finalized call never reports a timeout.
			select {
			case <-st.finalized:
				h.complete(Outcome{Events: st.eventCount()}, nil)
			default:
				logger.IncrementTimeout(req.Message)
				st.close()
				h.complete(Outcome{TimedOut: true, Events: st.eventCount()}, nil)
			}
		case <-ctx.Done():
			st.close()
			h.complete(Outcome{Events: st.eventCount()}, ctx.Err())
		}
	}()

	return h
}
