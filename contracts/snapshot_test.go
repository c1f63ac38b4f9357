package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ibflow/bus"
	"ibflow/models"
	"ibflow/protocol"
)

func tick(id int64, t models.TickType, price float64) bus.TickPrice {
	return bus.TickPrice{TickerID: id, Type: t, Price: decimal.NewFromFloat(price)}
}

func TestMarketPricePrefersLast(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickLast, 10.1),
			tick(id, models.TickClose, 9.9),
			tick(id, models.TickBid, 10),
			tick(id, models.TickAsk, 10.1),
			bus.TickSnapshotEnd{TickerID: id},
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	c := appleStock()
	price, ok := s.MarketPrice(context.Background(), c, PriceRequest{})
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromFloat(10.1)) {
		t.Errorf("expected last price 10.1, got %s", price)
	}
	if cached, ok := c.MarketPrice(); !ok || !cached.Equal(price) {
		t.Error("price not cached on the contract")
	}
}

func TestMarketPriceFallsBackToMidpoint(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickLast, 0), // sentinel, unusable
			tick(id, models.TickClose, 9.9),
			tick(id, models.TickBid, 10),
			tick(id, models.TickAsk, 10.2),
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	price, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{})
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromFloat(10.1)) {
		t.Errorf("expected midpoint 10.1, got %s", price)
	}
}

func TestMarketPriceFallsBackToClose(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickLast, 0), // sentinel, unusable
			tick(id, models.TickClose, 9.9),
			bus.TickSnapshotEnd{TickerID: id},
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	price, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{})
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromFloat(9.9)) {
		t.Errorf("expected close 9.9, got %s", price)
	}
}

func TestMarketPriceAbsentWithoutUsableTicks(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickLast, -1),
			bus.TickSnapshotEnd{TickerID: id},
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	c := appleStock()
	if _, ok := s.MarketPrice(context.Background(), c, PriceRequest{}); ok {
		t.Error("sentinel values must not produce a price")
	}
	if _, ok := c.MarketPrice(); ok {
		t.Error("no price must be cached on failure")
	}
}

func TestMarketPriceNoSubscription(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{bus.Alert{ID: id, Code: bus.AlertNoMarketData, Message: "market data is not subscribed"}}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	if _, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{}); ok {
		t.Error("missing subscription must yield no price")
	}
}

func TestMarketPriceTimeout(t *testing.T) {
	g := newFakeGateway()
	s := NewSnapshot(g.eng, g.dispatcher, WithSnapshotTimeout(20*time.Millisecond))

	if _, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{}); ok {
		t.Error("timeout must yield no price")
	}
}

func TestMarketPriceMajorityLabelWins(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickDelayedLast, 10.2),
			tick(id, models.TickDelayedLast, 10.2),
			tick(id, models.TickLast, 10.3),
			bus.TickSnapshotEnd{TickerID: id},
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	price, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{})
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromFloat(10.2)) {
		t.Errorf("majority delayed label should win, got %s", price)
	}
}

func TestMarketPriceTieBreakPrefersRealTime(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickDelayedLast, 10.2),
			tick(id, models.TickLast, 10.3),
			bus.TickSnapshotEnd{TickerID: id},
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	price, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{})
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromFloat(10.3)) {
		t.Errorf("tie must prefer the real-time label, got %s", price)
	}
}

func TestMarketPriceSwitchesDataType(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{tick(id, models.TickLast, 10), bus.TickSnapshotEnd{TickerID: id}}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	s.MarketPrice(context.Background(), appleStock(), PriceRequest{})
	sent, ok := g.lastSent(protocol.RequestMarketDataType)
	if !ok {
		t.Fatal("market data type not switched before the snapshot")
	}
	if sent.wire[2] != "4" {
		t.Errorf("expected frozen_delayed (4), got %q", sent.wire)
	}

	s.MarketPrice(context.Background(), appleStock(), PriceRequest{NonDelayed: true})
	sent, _ = g.lastSent(protocol.RequestMarketDataType)
	if sent.wire[2] != "2" {
		t.Errorf("expected frozen (2), got %q", sent.wire)
	}
}

func TestMarketPriceCustomAggregator(t *testing.T) {
	g := newFakeGateway()
	g.on(protocol.RequestMarketData, func(id int64, wire []string) []bus.Event {
		return []bus.Event{
			tick(id, models.TickBid, 10),
			tick(id, models.TickAsk, 11),
		}
	})
	s := NewSnapshot(g.eng, g.dispatcher)

	price, ok := s.MarketPrice(context.Background(), appleStock(), PriceRequest{
		Aggregate: func(buckets map[models.TickBucket]decimal.Decimal) (decimal.Decimal, bool) {
			ask, ok := buckets[models.BucketAsk]
			return ask, ok
		},
	})
	if !ok {
		t.Fatal("expected a price")
	}
	if !price.Equal(decimal.NewFromInt(11)) {
		t.Errorf("custom aggregator ignored, got %s", price)
	}
}
