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

const (
	defaultChainTimeout = 1 * time.Second
	defaultRefCurrency  = "USD"
)

// StrikeGroups partitions the sorted strike ladder around the
// at-the-money strike.
type StrikeGroups struct {
	Below []decimal.Decimal
	Equal []decimal.Decimal
	Above []decimal.Decimal
}

// StrikeSelector narrows the strike ladder to the strikes a chain
// should cover. The at-the-money strike is always included in the
// generated chain, whether or not the selector returns it.
type StrikeSelector func(groups StrikeGroups) []decimal.Decimal

// ChainRequest tunes one OptionChain call. The zero value builds a
// put chain over all strikes, keyed by strike.
type ChainRequest struct {
	Right models.Right     // default put
	Sort  models.ChainSort // default by strike
	// RefPrice overrides the reference price used to locate the
	// at-the-money strike. When nil a snapshot market price is
	// requested, falling back to the midpoint of the strike range.
	RefPrice *decimal.Decimal
	Select   StrikeSelector
}

// ChainResolver builds option chains from the gateway's option chain
// definitions.
type ChainResolver struct {
	eng         *engine.Engine
	verifier    *Verifier
	snapshot    *Snapshot
	timeout     time.Duration
	refCurrency string
	log         *logger.Log
}

// ChainResolverOption configures a ChainResolver.
type ChainResolverOption func(*ChainResolver)

// WithChainTimeout overrides the definition request deadline.
func WithChainTimeout(d time.Duration) ChainResolverOption {
	return func(r *ChainResolver) { r.timeout = d }
}

// WithReferenceCurrency sets the currency a definition profile must
// trade in to be preferred. Defaults to USD.
func WithReferenceCurrency(currency string) ChainResolverOption {
	return func(r *ChainResolver) { r.refCurrency = currency }
}

// NewChainResolver creates a chain resolver. The verifier resolves the
// underlying before a definition is requested; the snapshot workflow
// supplies reference prices when the caller does not.
func NewChainResolver(eng *engine.Engine, verifier *Verifier, snapshot *Snapshot, opts ...ChainResolverOption) *ChainResolver {
	r := &ChainResolver{
		eng:         eng,
		verifier:    verifier,
		snapshot:    snapshot,
		timeout:     defaultChainTimeout,
		refCurrency: defaultRefCurrency,
		log:         logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// OptionChain resolves the option chain for the underlying contract.
// The chain definition is fetched once and cached on the contract;
// later calls reuse it and only recompute the strike selection. A nil
// chain with a nil error means the gateway delivered no definition.
func (r *ChainResolver) OptionChain(ctx context.Context, c *models.Contract, req ChainRequest) (*models.OptionChain, error) {
	log := r.log.WithComponent("chain").WithFields(logger.Fields{"contract": c.String()})

	def := c.ChainDefinition()
	if def == nil {
		var err error
		def, err = r.fetchDefinition(ctx, c)
		if err != nil {
			return nil, err
		}
		if def == nil {
			return nil, nil
		}
		c.SetChainDefinition(def)
	} else {
		log.Debug("using cached option chain definition")
	}

	right := req.Right
	if right == models.RightNone {
		right = models.RightPut
	}
	sortBy := req.Sort
	if sortBy == "" {
		sortBy = models.ChainByStrike
	}

	strikes := def.SortedStrikes()
	if len(strikes) == 0 {
		log.Warn("option chain definition carries no strikes")
		return nil, nil
	}

	ref := r.referencePrice(ctx, c, req.RefPrice, strikes, log)
	atm := atmStrike(strikes, ref)
	groups := partitionStrikes(strikes, atm)

	// A selector narrows the ladder and gets the atm strike prepended
	// when it did not keep it; the full ladder already contains it.
	selected := strikes
	if req.Select != nil {
		selected = req.Select(groups)
		if len(selected) == 0 || !selected[0].Equal(atm) {
			selected = append([]decimal.Decimal{atm}, selected...)
		}
	}

	currency := def.Currency
	if currency == "" {
		currency = c.Currency
	}
	exchange := def.Exchange
	if exchange == "" {
		exchange = c.Exchange
	}

	option := func(strike decimal.Decimal, exp time.Time) *models.Contract {
		date := exp.Format("20060102")
		return &models.Contract{
			Symbol:         c.Symbol,
			SecType:        models.SecTypeOption,
			Exchange:       exchange,
			Currency:       currency,
			TradingClass:   def.TradingClass,
			Multiplier:     def.Multiplier,
			Expiry:         date,
			LastTradingDay: date,
			Strike:         strike,
			Right:          right,
		}
	}

	expirations := def.MonthlyExpirations()
	chain := &models.OptionChain{Sort: sortBy}
	switch sortBy {
	case models.ChainByExpiry:
		chain.ByExpiry = map[string][]*models.Contract{}
		for _, exp := range expirations {
			key := exp.Format("0106")
			row := make([]*models.Contract, 0, len(selected))
			for _, strike := range selected {
				row = append(row, option(strike, exp))
			}
			chain.ByExpiry[key] = row
		}
	default:
		chain.ByStrike = map[string][]*models.Contract{}
		for _, strike := range selected {
			row := make([]*models.Contract, 0, len(expirations))
			for _, exp := range expirations {
				row = append(row, option(strike, exp))
			}
			chain.ByStrike[strike.String()] = row
		}
	}
	return chain, nil
}

// fetchDefinition runs the option chain definition request. The first
// delivered profile seeds the result; a preferred profile, one trading
// on SMART in the reference currency or carrying a trading class equal
// to the underlying symbol, overrides it and ends the wait early.
func (r *ChainResolver) fetchDefinition(ctx context.Context, c *models.Contract) (*models.OptionChainDefinition, error) {
	log := r.log.WithComponent("chain").WithFields(logger.Fields{"contract": c.String()})

	if !c.Resolved() {
		verified, err := r.verifier.VerifyAndUpdate(ctx, c)
		if err != nil {
			return nil, err
		}
		if verified == nil {
			return nil, nil
		}
	}

	// Futures need their own exchange; everything else queries across
	// all exchanges.
	exchange := ""
	if c.SecType == models.SecTypeFuture {
		exchange = c.Exchange
	}

	var best *models.OptionChainDefinition

	handler := func(ev bus.Event) engine.Decision {
		switch msg := ev.(type) {
		case bus.OptionChainDef:
			def := msg.Def
			if def == nil {
				return engine.Continue
			}
			if best == nil {
				best = def
			}
			currency := def.Currency
			if currency == "" {
				currency = c.Currency
			}
			if (def.Exchange == "SMART" && currency == r.refCurrency) || def.TradingClass == c.Symbol {
				best = def
				return engine.Finalize
			}
		case bus.OptionParameterEnd:
			return engine.Finalize
		}
		return engine.Continue
	}

	outcome, err := r.eng.Run(ctx,
		engine.Request{Message: protocol.RequestOptionChainDefinition, Fields: protocol.Fields{
			"symbol":   c.Symbol,
			"exchange": exchange,
			"sec_type": c.SecType,
			"con_id":   c.ConID,
		}},
		[]bus.Kind{bus.KindOptionChainDefinition, bus.KindOptionParameterEnd},
		handler, r.timeout)
	if err != nil {
		return nil, err
	}
	if best == nil {
		if outcome.TimedOut {
			log.Error("no option chain definition received")
		} else {
			log.Error("option chain definition stream ended without a profile")
		}
		return nil, nil
	}
	return best, nil
}

// referencePrice picks the price the at-the-money strike is located
// around: the explicit override, then a snapshot market price, then
// the midpoint of the strike range.
func (r *ChainResolver) referencePrice(ctx context.Context, c *models.Contract, override *decimal.Decimal, strikes []decimal.Decimal, log *logger.Entry) decimal.Decimal {
	if override != nil {
		return *override
	}
	if price, ok := c.MarketPrice(); ok {
		return price
	}
	if price, ok := r.snapshot.MarketPrice(ctx, c, PriceRequest{}); ok {
		return price
	}
	lo, hi := strikes[0], strikes[len(strikes)-1]
	mid := lo.Add(hi.Sub(lo).Div(decimal.NewFromInt(2)))
	log.WithFields(logger.Fields{"midpoint": mid.String()}).Error("no market price available, using strike range midpoint as reference")
	return mid
}

// atmStrike returns the strike closest to the reference price. Ties go
// to the lower strike.
func atmStrike(strikes []decimal.Decimal, ref decimal.Decimal) decimal.Decimal {
	atm := strikes[0]
	dist := strikes[0].Sub(ref).Abs()
	for _, s := range strikes[1:] {
		if d := s.Sub(ref).Abs(); d.LessThan(dist) {
			atm, dist = s, d
		}
	}
	return atm
}

// partitionStrikes splits the sorted ladder around the at-the-money
// strike.
func partitionStrikes(strikes []decimal.Decimal, atm decimal.Decimal) StrikeGroups {
	var g StrikeGroups
	for _, s := range strikes {
		switch s.Cmp(atm) {
		case -1:
			g.Below = append(g.Below, s)
		case 0:
			g.Equal = append(g.Equal, s)
		default:
			g.Above = append(g.Above, s)
		}
	}
	return g
}

// SelectATM keeps only the at-the-money strike.
func SelectATM() StrikeSelector {
	return func(g StrikeGroups) []decimal.Decimal { return g.Equal }
}

// SelectITM keeps up to count in-the-money strikes nearest the money.
// For puts those lie above the at-the-money strike, for calls below.
func SelectITM(count int, right models.Right) StrikeSelector {
	return func(g StrikeGroups) []decimal.Decimal {
		if right == models.RightCall {
			return nearestBelow(g.Below, count)
		}
		return nearestAbove(g.Above, count)
	}
}

// SelectOTM keeps up to count out-of-the-money strikes nearest the
// money. The mirror image of SelectITM.
func SelectOTM(count int, right models.Right) StrikeSelector {
	return func(g StrikeGroups) []decimal.Decimal {
		if right == models.RightCall {
			return nearestAbove(g.Above, count)
		}
		return nearestBelow(g.Below, count)
	}
}

func nearestAbove(above []decimal.Decimal, count int) []decimal.Decimal {
	if count > len(above) {
		count = len(above)
	}
	out := make([]decimal.Decimal, count)
	copy(out, above[:count])
	return out
}

func nearestBelow(below []decimal.Decimal, count int) []decimal.Decimal {
	if count > len(below) {
		count = len(below)
	}
	out := make([]decimal.Decimal, 0, count)
	for i := len(below) - 1; i >= len(below)-count; i-- {
		out = append(out, below[i])
	}
	return out
}
