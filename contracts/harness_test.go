package contracts

import (
	"sync"

	"ibflow/bus"
	"ibflow/engine"
	"ibflow/models"
	"ibflow/protocol"
)

// fakeGateway scripts gateway behaviour: per outgoing message name a
// responder produces the inbound events, dispatched asynchronously the
// way a real reader goroutine would.
type fakeGateway struct {
	dispatcher *bus.Dispatcher
	eng        *engine.Engine

	mu      sync.Mutex
	sent    []sentMessage
	respond map[string]func(id int64, wire []string) []bus.Event
}

type sentMessage struct {
	message string
	id      int64
	wire    []string
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{respond: make(map[string]func(int64, []string) []bus.Event)}
	g.dispatcher = bus.NewDispatcher(protocol.DefaultRegistry(), protocol.DefaultServerVersion, g.send)
	g.eng = engine.New(g.dispatcher)
	return g
}

func (g *fakeGateway) send(message string, id int64, wire []string) error {
	g.mu.Lock()
	g.sent = append(g.sent, sentMessage{message: message, id: id, wire: wire})
	fn := g.respond[message]
	g.mu.Unlock()

	if fn != nil {
		events := fn(id, wire)
		go func() {
			for _, ev := range events {
				g.dispatcher.Dispatch(ev)
			}
		}()
	}
	return nil
}

func (g *fakeGateway) on(message string, fn func(id int64, wire []string) []bus.Event) {
	g.mu.Lock()
	g.respond[message] = fn
	g.mu.Unlock()
}

func (g *fakeGateway) sentCount(message string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, s := range g.sent {
		if s.message == message {
			n++
		}
	}
	return n
}

func (g *fakeGateway) lastSent(message string) (sentMessage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if g.sent[i].message == message {
			return g.sent[i], true
		}
	}
	return sentMessage{}, false
}

// testFields is a map-backed RequiredFieldsProvider mirroring the
// built-in table for the security types the tests touch.
type testFields map[models.SecType][]RequiredField

func (p testFields) RequiredFields(secType models.SecType) ([]RequiredField, bool) {
	fields, ok := p[secType]
	return fields, ok
}

func stockFields() testFields {
	return testFields{
		models.SecTypeStock: {
			{Name: "symbol"},
			{Name: "currency", Default: "USD"},
			{Name: "exchange", Default: "SMART"},
		},
		models.SecTypeForex: {
			{Name: "symbol"},
			{Name: "currency"},
			{Name: "exchange", Default: "IDEALPRO"},
		},
	}
}

func appleStock() *models.Contract {
	return &models.Contract{Symbol: "AAPL", SecType: models.SecTypeStock}
}
