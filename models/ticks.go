package models

// TickType is the numeric tick field identifier used by the gateway's
// market data stream.
type TickType int

// The tick types this client classifies. Real-time and delayed
// variants carry distinct identifiers but describe the same logical
// field.
const (
	TickBidSize  TickType = 0
	TickBid      TickType = 1
	TickAsk      TickType = 2
	TickAskSize  TickType = 3
	TickLast     TickType = 4
	TickLastSize TickType = 5
	TickHigh     TickType = 6
	TickLow      TickType = 7
	TickVolume   TickType = 8
	TickClose    TickType = 9
	TickOpen     TickType = 14

	TickDelayedBid   TickType = 66
	TickDelayedAsk   TickType = 67
	TickDelayedLast  TickType = 68
	TickDelayedHigh  TickType = 72
	TickDelayedLow   TickType = 73
	TickDelayedClose TickType = 75
	TickDelayedOpen  TickType = 76
)

// TickBucket is one of the four logical price buckets a snapshot
// request aggregates into.
type TickBucket string

const (
	BucketLast  TickBucket = "last"
	BucketClose TickBucket = "close"
	BucketBid   TickBucket = "bid"
	BucketAsk   TickBucket = "ask"
)

// tickLabels maps tick types onto their raw wire label and logical
// bucket. The raw label keeps the delayed/real-time distinction which
// the snapshot workflow uses for its majority resolution.
var tickLabels = map[TickType]struct {
	Label  string
	Bucket TickBucket
}{
	TickBid:          {"bid_price", BucketBid},
	TickAsk:          {"ask_price", BucketAsk},
	TickLast:         {"last_price", BucketLast},
	TickClose:        {"close_price", BucketClose},
	TickDelayedBid:   {"delayed_bid", BucketBid},
	TickDelayedAsk:   {"delayed_ask", BucketAsk},
	TickDelayedLast:  {"delayed_last", BucketLast},
	TickDelayedClose: {"delayed_close", BucketClose},
}

// ClassifyTick maps a tick type to its logical bucket and raw label.
// ok is false for tick types the snapshot workflow does not track
// (sizes, highs, lows, ...).
func ClassifyTick(t TickType) (bucket TickBucket, label string, ok bool) {
	info, ok := tickLabels[t]
	if !ok {
		return "", "", false
	}
	return info.Bucket, info.Label, true
}

// Delayed reports whether the raw tick label belongs to the delayed
// market data feed.
func Delayed(label string) bool {
	return len(label) >= 7 && label[:7] == "delayed"
}

// MarketDataType is the feed mode requested through a market data type
// message.
type MarketDataType int

const (
	MarketDataRealTime      MarketDataType = 1
	MarketDataFrozen        MarketDataType = 2
	MarketDataDelayed       MarketDataType = 3
	MarketDataFrozenDelayed MarketDataType = 4
)

// MarketDataTypes maps the symbolic market data type names accepted in
// requests onto their wire codes.
var MarketDataTypes = map[string]MarketDataType{
	"real_time":      MarketDataRealTime,
	"frozen":         MarketDataFrozen,
	"delayed":        MarketDataDelayed,
	"frozen_delayed": MarketDataFrozenDelayed,
}
