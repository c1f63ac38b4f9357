package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OptionChainDefinition is the set of valid strikes, expirations and
// trading parameters for an underlying's options on one exchange, as
// delivered by a security-definition option-parameter response.
type OptionChainDefinition struct {
	Exchange     string
	UnderlyingID int64
	TradingClass string
	Multiplier   string
	Currency     string
	Strikes      []decimal.Decimal
	Expirations  []time.Time
}

// SortedStrikes returns the strikes in ascending order without
// modifying the definition.
func (d *OptionChainDefinition) SortedStrikes() []decimal.Decimal {
	strikes := make([]decimal.Decimal, len(d.Strikes))
	copy(strikes, d.Strikes)
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].LessThan(strikes[j]) })
	return strikes
}

// MonthlyExpirations filters the expirations down to standard monthly
// option expirations, i.e. third-friday dates (day of month 15..21).
// Weekly and other non-standard expirations are dropped.
func (d *OptionChainDefinition) MonthlyExpirations() []time.Time {
	monthly := make([]time.Time, 0, len(d.Expirations))
	for _, exp := range d.Expirations {
		if day := exp.Day(); day >= 15 && day <= 21 {
			monthly = append(monthly, exp)
		}
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Before(monthly[j]) })
	return monthly
}

// ChainSort selects the shape of a generated option chain.
type ChainSort string

const (
	// ChainByStrike keys the chain by strike; each entry holds one
	// option per monthly expiration.
	ChainByStrike ChainSort = "strike"
	// ChainByExpiry keys the chain by expiration (mmyy); each entry
	// holds one option per requested strike.
	ChainByExpiry ChainSort = "expiry"
)

// OptionChain is a generated chain of option contracts, keyed by strike
// or by expiration depending on the requested sort.
type OptionChain struct {
	Sort     ChainSort
	ByStrike map[string][]*Contract
	ByExpiry map[string][]*Contract
}
