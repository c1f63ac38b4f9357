package contracts

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ibflow/bus"
	"ibflow/engine"
	"ibflow/logger"
	"ibflow/models"
	"ibflow/protocol"
)

const defaultSnapshotTimeout = 5 * time.Second

// Aggregator turns the resolved per-bucket prices into a single value.
// ok false means no price could be derived from the buckets.
type Aggregator func(buckets map[models.TickBucket]decimal.Decimal) (price decimal.Decimal, ok bool)

// Snapshot retrieves one-shot market prices through snapshot market
// data requests.
type Snapshot struct {
	eng     *engine.Engine
	bus     bus.Bus
	timeout time.Duration
	log     *logger.Log
}

// SnapshotOption configures a Snapshot.
type SnapshotOption func(*Snapshot)

// WithSnapshotTimeout overrides the per-request deadline.
func WithSnapshotTimeout(d time.Duration) SnapshotOption {
	return func(s *Snapshot) { s.timeout = d }
}

// NewSnapshot creates a snapshot workflow running on eng. The bus is
// needed directly for the uncorrelated market data type switch that
// precedes each snapshot.
func NewSnapshot(eng *engine.Engine, b bus.Bus, opts ...SnapshotOption) *Snapshot {
	s := &Snapshot{
		eng:     eng,
		bus:     b,
		timeout: defaultSnapshotTimeout,
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PriceRequest tunes one MarketPrice call. The zero value requests the
// delayed-capable feed and derives the price by the last, midpoint,
// close priority.
type PriceRequest struct {
	// NonDelayed restricts the feed to frozen real-time data instead of
	// accepting delayed ticks.
	NonDelayed bool
	// Aggregate replaces the default price derivation.
	Aggregate Aggregator
}

// labelStat tracks one raw tick label inside a bucket: how often it
// arrived and the most recent value.
type labelStat struct {
	count int
	value decimal.Decimal
}

// MarketPrice requests a snapshot of the current market data for the
// contract and derives a single price from it. It returns ok false
// when the wait timed out, the instrument has no market data
// subscription or no bucket yielded a usable value. A successful price
// is cached on the contract.
func (s *Snapshot) MarketPrice(ctx context.Context, c *models.Contract, req PriceRequest) (decimal.Decimal, bool) {
	log := s.log.WithComponent("snapshot").WithFields(logger.Fields{"contract": c.String()})

	dataType := "frozen_delayed"
	if req.NonDelayed {
		dataType = "frozen"
	}
	if _, err := s.bus.Send(protocol.RequestMarketDataType, protocol.Fields{"market_data_type": dataType}); err != nil {
		log.WithError(err).Error("failed to switch market data type")
		return decimal.Decimal{}, false
	}

	buckets := map[models.TickBucket]map[string]*labelStat{}
	noData := false

	record := func(t models.TickType, price decimal.Decimal) {
		bucket, label, ok := models.ClassifyTick(t)
		if !ok {
			return
		}
		stats := buckets[bucket]
		if stats == nil {
			stats = map[string]*labelStat{}
			buckets[bucket] = stats
		}
		stat := stats[label]
		if stat == nil {
			stat = &labelStat{}
			stats[label] = stat
		}
		stat.count++
		stat.value = price
	}

	handler := func(ev bus.Event) engine.Decision {
		switch msg := ev.(type) {
		case bus.TickPrice:
			record(msg.Type, msg.Price)
			if len(buckets) == 4 {
				return engine.Finalize
			}
			if buckets[models.BucketBid] != nil && buckets[models.BucketAsk] != nil {
				return engine.Finalize
			}
		case bus.TickSnapshotEnd:
			return engine.Finalize
		case bus.Alert:
			if msg.Code == bus.AlertNoMarketData {
				noData = true
				return engine.Finalize
			}
		}
		return engine.Continue
	}

	outcome, err := s.eng.Run(ctx,
		engine.Request{Message: protocol.RequestMarketData, Fields: protocol.Fields{
			"contract": c.Essential(),
			"snapshot": true,
		}},
		[]bus.Kind{bus.KindTickPrice, bus.KindTickSnapshotEnd, bus.KindAlert},
		handler, s.timeout)
	if err != nil {
		log.WithError(err).Error("market price request failed")
		return decimal.Decimal{}, false
	}
	if noData {
		log.Warn("no market data subscription for contract")
		return decimal.Decimal{}, false
	}
	if outcome.TimedOut {
		log.WithFields(logger.Fields{"ticks": outcome.Events}).Info("no market price received before timeout")
		return decimal.Decimal{}, false
	}

	resolved := resolveBuckets(buckets)

	aggregate := req.Aggregate
	if aggregate == nil {
		aggregate = defaultPrice
	}
	price, ok := aggregate(resolved)
	if !ok {
		log.WithFields(logger.Fields{"buckets": len(resolved)}).Info("no usable price in snapshot")
		return decimal.Decimal{}, false
	}

	c.SetMarketPrice(price)
	log.LogMetric("snapshot", "market_price", price.InexactFloat64(), "gauge", logger.Fields{"symbol": c.Symbol})
	return price, true
}

// resolveBuckets picks one value per bucket. When both delayed and
// real-time labels populated the same bucket the label observed more
// often wins; on a tie the real-time label does.
func resolveBuckets(buckets map[models.TickBucket]map[string]*labelStat) map[models.TickBucket]decimal.Decimal {
	out := map[models.TickBucket]decimal.Decimal{}
	for bucket, stats := range buckets {
		var (
			bestLabel string
			best      *labelStat
		)
		for label, stat := range stats {
			switch {
			case best == nil,
				stat.count > best.count,
				stat.count == best.count && models.Delayed(bestLabel) && !models.Delayed(label):
				bestLabel, best = label, stat
			}
		}
		if best != nil {
			out[bucket] = best.value
		}
	}
	return out
}

// defaultPrice derives a price by priority: the last trade when valid,
// then the bid/ask midpoint, then the close.
func defaultPrice(buckets map[models.TickBucket]decimal.Decimal) (decimal.Decimal, bool) {
	if last, ok := buckets[models.BucketLast]; ok && usablePrice(last) {
		return last, true
	}
	bid, hasBid := buckets[models.BucketBid]
	ask, hasAsk := buckets[models.BucketAsk]
	if hasBid && hasAsk && usablePrice(bid) && usablePrice(ask) {
		return bid.Add(ask).Div(decimal.NewFromInt(2)), true
	}
	if close, ok := buckets[models.BucketClose]; ok && usablePrice(close) {
		return close, true
	}
	return decimal.Decimal{}, false
}

var sentinelNoPrice = decimal.NewFromInt(-1)

// usablePrice rejects the gateway's "no value" sentinels.
func usablePrice(p decimal.Decimal) bool {
	return !p.IsZero() && !p.Equal(sentinelNoPrice)
}
