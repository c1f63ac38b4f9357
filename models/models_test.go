package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestContractResolved(t *testing.T) {
	c := &Contract{Symbol: "AAPL", SecType: SecTypeStock}
	if c.Resolved() {
		t.Error("unverified contract reported resolved")
	}

	c.ConID = 265598
	if !c.Resolved() {
		t.Error("contract with conId not resolved")
	}

	c = &Contract{Symbol: "AAPL", SecType: SecTypeStock, Detail: &ContractDetail{LongName: "Apple Inc"}}
	if !c.Resolved() {
		t.Error("detailed contract not resolved")
	}
}

func TestContractReset(t *testing.T) {
	c := &Contract{
		ConID:          265598,
		Symbol:         "AAPL",
		SecType:        SecTypeOption,
		Expiry:         "20260918",
		LastTradingDay: "20260918",
		Strike:         decimal.NewFromInt(195),
		Detail:         &ContractDetail{},
	}
	c.SetMarketPrice(decimal.NewFromInt(200))
	c.SetChainDefinition(&OptionChainDefinition{Exchange: "SMART"})

	c.Reset()

	if c.ConID != 0 || c.LastTradingDay != "" || c.Detail != nil {
		t.Error("Reset left resolved identity in place")
	}
	if c.Expiry != "20260918" || !c.Strike.Equal(decimal.NewFromInt(195)) {
		t.Error("Reset cleared fields it was not asked to clear")
	}
	if _, ok := c.MarketPrice(); ok {
		t.Error("Reset kept the cached market price")
	}
	if c.ChainDefinition() != nil {
		t.Error("Reset kept the cached chain definition")
	}

	c.Reset("expiry", "strike")
	if c.Expiry != "" || !c.Strike.IsZero() {
		t.Error("Reset with extras did not clear them")
	}
}

func TestContractMerge(t *testing.T) {
	c := &Contract{Symbol: "AAPL", SecType: SecTypeStock, Exchange: "SMART", Currency: "USD"}
	c.Merge(&Contract{
		ConID:           265598,
		Symbol:          "AAPL",
		SecType:         SecTypeStock,
		Exchange:        "SMART",
		PrimaryExchange: "NASDAQ",
		Currency:        "USD",
		LocalSymbol:     "AAPL",
		TradingClass:    "NMS",
	})

	if c.ConID != 265598 || c.PrimaryExchange != "NASDAQ" || c.TradingClass != "NMS" {
		t.Errorf("merge did not adopt the gateway identity: %+v", c)
	}
}

func TestClassifyTick(t *testing.T) {
	cases := []struct {
		tick   TickType
		bucket TickBucket
		label  string
		ok     bool
	}{
		{TickBid, BucketBid, "bid_price", true},
		{TickLast, BucketLast, "last_price", true},
		{TickDelayedClose, BucketClose, "delayed_close", true},
		{TickBidSize, "", "", false},
		{TickHigh, "", "", false},
	}
	for _, tc := range cases {
		bucket, label, ok := ClassifyTick(tc.tick)
		if bucket != tc.bucket || label != tc.label || ok != tc.ok {
			t.Errorf("ClassifyTick(%d) = (%q, %q, %v), want (%q, %q, %v)",
				tc.tick, bucket, label, ok, tc.bucket, tc.label, tc.ok)
		}
	}

	if !Delayed("delayed_bid") || Delayed("bid_price") {
		t.Error("Delayed misclassified a label")
	}
}

func TestMonthlyExpirations(t *testing.T) {
	def := &OptionChainDefinition{Expirations: []time.Time{
		time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC), // third friday, kept
		time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), // weekly, dropped
		time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 10, 2, 0, 0, 0, 0, time.UTC),
	}}

	monthly := def.MonthlyExpirations()
	if len(monthly) != 2 {
		t.Fatalf("expected 2 monthly expirations, got %d", len(monthly))
	}
	if !monthly[0].Before(monthly[1]) {
		t.Error("expirations not sorted ascending")
	}
	for _, exp := range monthly {
		if exp.Day() < 15 || exp.Day() > 21 {
			t.Errorf("non-monthly expiration kept: %v", exp)
		}
	}
}

func TestSortedStrikes(t *testing.T) {
	def := &OptionChainDefinition{Strikes: []decimal.Decimal{
		decimal.NewFromInt(105),
		decimal.NewFromInt(90),
		decimal.NewFromInt(100),
	}}

	sorted := def.SortedStrikes()
	for i := 1; i < len(sorted); i++ {
		if sorted[i].LessThan(sorted[i-1]) {
			t.Fatalf("strikes not sorted: %v", sorted)
		}
	}
	if !def.Strikes[0].Equal(decimal.NewFromInt(105)) {
		t.Error("SortedStrikes mutated the definition")
	}
}
