package bus

import "ibflow/protocol"

// Bus is the event bus contract this core consumes. Subscribe installs
// a callback for the given event kinds and returns an opaque handle;
// Unsubscribe releases it. Send encodes and transmits the named
// outgoing message and returns the correlation id allocated for it.
//
// Callback invocation happens on the bus's own dispatch context, which
// is concurrent with the subscriber; subscribers guard their own state.
type Bus interface {
	Subscribe(fn func(Event), kinds ...Kind) string
	Unsubscribe(handles ...string)
	Send(message string, fields protocol.Fields) (int64, error)
}
