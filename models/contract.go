package models

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// SecType identifies the security type of a contract using the
// gateway's wire codes.
type SecType string

const (
	SecTypeStock  SecType = "STK"
	SecTypeOption SecType = "OPT"
	SecTypeFuture SecType = "FUT"
	SecTypeForex  SecType = "CASH"
	SecTypeBag    SecType = "BAG"
	SecTypeIndex  SecType = "IND"
	SecTypeBond   SecType = "BOND"
	SecTypeFund   SecType = "FUND"
	SecTypeCFD    SecType = "CFD"
)

// Right is the option right. Non-option contracts carry RightNone.
type Right string

const (
	RightNone Right = ""
	RightCall Right = "C"
	RightPut  Right = "P"
)

// Contract identifies a tradable instrument. The identity attributes map
// one to one onto the gateway's contract fields. ContractDetail is owned
// by the contract and stays nil until the contract has been verified.
type Contract struct {
	ConID           int64
	Symbol          string
	SecType         SecType
	Expiry          string // contract month or last trading day, yyyymm or yyyymmdd
	LastTradingDay  string
	Strike          decimal.Decimal
	Right           Right
	Multiplier      string
	Exchange        string
	PrimaryExchange string
	Currency        string
	LocalSymbol     string
	TradingClass    string
	SecID           string
	SecIDType       string
	IncludeExpired  bool

	// Detail is populated by verification only. Nil means unverified
	// or verification pending.
	Detail *ContractDetail

	mu          sync.Mutex
	marketPrice decimal.Decimal
	hasPrice    bool
	chainDef    *OptionChainDefinition
}

// ContractDetail carries the attributes the gateway returns for a fully
// resolved contract.
type ContractDetail struct {
	MarketName     string
	TradingClass   string
	MinTick        decimal.Decimal
	OrderTypes     string
	ValidExchanges string
	PriceMagnifier int
	UnderConID     int64
	LongName       string
	ContractMonth  string
	Industry       string
	Category       string
	Subcategory    string
	TimeZone       string
	TradingHours   string
	LiquidHours    string
}

// Bag reports whether the contract is a composite (combo) instrument.
func (c *Contract) Bag() bool {
	return c.SecType == SecTypeBag
}

// Resolved reports whether the contract identity has been confirmed by
// the gateway, either through a positive contract id or an attached
// detail record.
func (c *Contract) Resolved() bool {
	return c.ConID > 0 || c.Detail != nil
}

// Essential returns a copy of the contract carrying only the identity
// attributes. The detail record and cached values are not copied.
func (c *Contract) Essential() *Contract {
	return &Contract{
		ConID:           c.ConID,
		Symbol:          c.Symbol,
		SecType:         c.SecType,
		Expiry:          c.Expiry,
		LastTradingDay:  c.LastTradingDay,
		Strike:          c.Strike,
		Right:           c.Right,
		Multiplier:      c.Multiplier,
		Exchange:        c.Exchange,
		PrimaryExchange: c.PrimaryExchange,
		Currency:        c.Currency,
		LocalSymbol:     c.LocalSymbol,
		TradingClass:    c.TradingClass,
		SecID:           c.SecID,
		SecIDType:       c.SecIDType,
		IncludeExpired:  c.IncludeExpired,
	}
}

// Merge copies the identity attributes of other onto c. Used after a
// successful verification to adopt the gateway's view of the contract.
func (c *Contract) Merge(other *Contract) {
	if other == nil {
		return
	}
	c.ConID = other.ConID
	c.Symbol = other.Symbol
	c.SecType = other.SecType
	c.Expiry = other.Expiry
	c.LastTradingDay = other.LastTradingDay
	c.Strike = other.Strike
	c.Right = other.Right
	c.Multiplier = other.Multiplier
	c.Exchange = other.Exchange
	c.PrimaryExchange = other.PrimaryExchange
	c.Currency = other.Currency
	c.LocalSymbol = other.LocalSymbol
	c.TradingClass = other.TradingClass
}

// Reset clears the attributes that tie the contract to a resolved
// gateway identity so it can be verified again, e.g. after changing the
// expiry of a derivative. Extra attribute names may be passed to clear
// additional fields ("expiry", "strike", "local_symbol",
// "trading_class", "multiplier").
func (c *Contract) Reset(extra ...string) {
	c.ConID = 0
	c.LastTradingDay = ""
	c.Detail = nil
	for _, name := range extra {
		switch strings.ToLower(name) {
		case "expiry":
			c.Expiry = ""
		case "strike":
			c.Strike = decimal.Zero
		case "local_symbol":
			c.LocalSymbol = ""
		case "trading_class":
			c.TradingClass = ""
		case "multiplier":
			c.Multiplier = ""
		}
	}
	c.mu.Lock()
	c.marketPrice = decimal.Zero
	c.hasPrice = false
	c.chainDef = nil
	c.mu.Unlock()
}

// SetMarketPrice caches a reference price on the contract.
func (c *Contract) SetMarketPrice(p decimal.Decimal) {
	c.mu.Lock()
	c.marketPrice = p
	c.hasPrice = true
	c.mu.Unlock()
}

// MarketPrice returns the cached reference price, if one has been set.
func (c *Contract) MarketPrice() (decimal.Decimal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marketPrice, c.hasPrice
}

// SetChainDefinition caches the option chain definition. The cache is
// written at most once; later writers replace it only through this
// method, which is the seam the resolver uses for preferred-profile
// overrides.
func (c *Contract) SetChainDefinition(def *OptionChainDefinition) {
	c.mu.Lock()
	c.chainDef = def
	c.mu.Unlock()
}

// ChainDefinition returns the cached option chain definition, if any.
func (c *Contract) ChainDefinition() *OptionChainDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainDef
}

// String renders a short human readable identity, used in log fields.
func (c *Contract) String() string {
	switch {
	case c.SecType == SecTypeOption:
		return fmt.Sprintf("<Option %s %s %s %s>", c.Symbol, c.Expiry, c.Right, c.Strike)
	case c.Expiry != "":
		return fmt.Sprintf("<%s %s %s>", c.SecType, c.Symbol, c.Expiry)
	default:
		return fmt.Sprintf("<%s %s %s>", c.SecType, c.Symbol, c.Currency)
	}
}
