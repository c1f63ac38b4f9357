// Package contracts implements the contract-centric workflows of the
// client: identity verification, market price snapshots and option
// chain resolution. All of them run on the correlation engine against
// an injected bus; there is no process-wide connection.
package contracts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ibflow/bus"
	"ibflow/engine"
	"ibflow/logger"
	"ibflow/models"
	"ibflow/protocol"
)

// VerifyError reports identity fields that are mandatory for a
// security type but absent on the contract. It is raised before any
// network interaction and is never retried automatically.
type VerifyError struct {
	SecType models.SecType
	Missing []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s are needed to retrieve a %s contract", strings.Join(e.Missing, ", "), e.SecType)
}

// RequiredField names one identity field mandatory for a security
// type, with an optional fallback default applied when the contract
// leaves it empty.
type RequiredField struct {
	Name    string
	Default string
}

// RequiredFieldsProvider resolves the ordered set of identity fields
// mandatory to query a given security type.
type RequiredFieldsProvider interface {
	RequiredFields(secType models.SecType) ([]RequiredField, bool)
}

// VerifyState is the outcome state of one verification run.
type VerifyState int

const (
	StateUnverified VerifyState = iota
	StatePending
	StateVerified
	StateFailed
)

// VerifyResult reports how a verification ended and how many
// instruments the gateway matched. Zero matches is a valid, if
// unhelpful, success; callers must check Matches.
type VerifyResult struct {
	State   VerifyState
	Matches int
}

const defaultVerifyTimeout = 1 * time.Second

// Verifier resolves a possibly incomplete contract identity into a
// fully attributed, verified record.
type Verifier struct {
	eng      *engine.Engine
	provider RequiredFieldsProvider
	timeout  time.Duration
	log      *logger.Log

	mu       sync.Mutex
	inflight map[*models.Contract]*inflightVerify
}

type inflightVerify struct {
	done     chan struct{}
	contract *models.Contract
	err      error
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifyTimeout overrides the per-request deadline.
func WithVerifyTimeout(d time.Duration) VerifierOption {
	return func(v *Verifier) { v.timeout = d }
}

// NewVerifier creates a verifier running on eng. provider supplies the
// per-security-type required identity fields.
func NewVerifier(eng *engine.Engine, provider RequiredFieldsProvider, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		eng:      eng,
		provider: provider,
		timeout:  defaultVerifyTimeout,
		log:      logger.GetLogger(),
		inflight: make(map[*models.Contract]*inflightVerify),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify queries the gateway for instruments matching the contract
// without modifying it. Every match is delivered to visitor when one
// is supplied. The returned result carries the terminal state and the
// match count.
func (v *Verifier) Verify(ctx context.Context, c *models.Contract, visitor func(*models.Contract)) (VerifyResult, error) {
	return v.verify(ctx, c, false, visitor)
}

// VerifyAndUpdate verifies the contract and merges the last match's
// attributes and detail record onto it. It returns the updated
// contract on success and nil when the gateway rejected the identity
// or nothing terminated the wait; the contract is never left partially
// updated on failure. Concurrent calls for the same contract instance
// share a single in-flight request.
func (v *Verifier) VerifyAndUpdate(ctx context.Context, c *models.Contract) (*models.Contract, error) {
	v.mu.Lock()
	if call, ok := v.inflight[c]; ok {
		v.mu.Unlock()
		select {
		case <-call.done:
			return call.contract, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &inflightVerify{done: make(chan struct{})}
	v.inflight[c] = call
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		delete(v.inflight, c)
		v.mu.Unlock()
		close(call.done)
	}()

	result, err := v.verify(ctx, c, true, nil)
	if err != nil {
		call.err = err
		return nil, err
	}
	if result.State == StateVerified && (c.Bag() || c.Resolved()) {
		call.contract = c
		return c, nil
	}
	return nil, nil
}

func (v *Verifier) verify(ctx context.Context, c *models.Contract, update bool, visitor func(*models.Contract)) (VerifyResult, error) {
	log := v.log.WithComponent("verifier")

	// Bags and already-detailed contracts need no gateway round trip.
	if c.Bag() || c.Detail != nil {
		if visitor != nil {
			visitor(c)
		}
		return VerifyResult{State: StateVerified, Matches: 1}, nil
	}

	query, err := v.queryContract(c)
	if err != nil {
		return VerifyResult{State: StateUnverified}, err
	}

	var (
		matches   int
		lastMatch *bus.ContractData
		failed    bool
	)

	handler := func(ev bus.Event) engine.Decision {
		switch msg := ev.(type) {
		case bus.Alert:
			if msg.Code == bus.AlertInvalidContract {
				failed = true
				return engine.Finalize
			}
		case bus.ContractData:
			matches++
			if visitor != nil {
				visitor(msg.Contract)
			} else {
				m := msg
				lastMatch = &m
			}
		case bus.ContractDataEnd:
			return engine.Finalize
		}
		return engine.Continue
	}

	outcome, err := v.eng.Run(ctx,
		engine.Request{Message: protocol.RequestContractData, Fields: protocol.Fields{"contract": query}},
		[]bus.Kind{bus.KindAlert, bus.KindContractData, bus.KindContractDataEnd},
		handler, v.timeout)
	if err != nil {
		return VerifyResult{State: StatePending, Matches: matches}, err
	}

	if failed {
		log.WithFields(logger.Fields{"contract": c.String()}).Error("not a valid contract")
		return VerifyResult{State: StateFailed, Matches: matches}, nil
	}
	if outcome.TimedOut {
		log.WithFields(logger.Fields{"contract": c.String()}).Error("no contract data received")
		return VerifyResult{State: StatePending, Matches: matches}, nil
	}

	if update && lastMatch != nil {
		c.Merge(lastMatch.Contract)
		if lastMatch.Detail != nil {
			c.Detail = lastMatch.Detail
		}
	}
	if matches > 1 && visitor == nil {
		log.WithFields(logger.Fields{
			"contract": c.String(),
			"matches":  matches,
		}).Warn("multiple contracts matched during verify")
	}
	log.LogMetric("verifier", "contracts_verified", 1, "counter", logger.Fields{"sec_type": string(c.SecType)})

	return VerifyResult{State: StateVerified, Matches: matches}, nil
}

// queryContract derives the minimal query identity the gateway
// accepts. A complete contract occasionally fails the lookup, so only
// a defined subset of the attributes is transmitted: conId plus
// exchange when the id is known, otherwise the per-security-type
// required field set. Missing required fields fail here, before any
// subscription is created.
func (v *Verifier) queryContract(c *models.Contract) (*models.Contract, error) {
	if c.SecType == "" {
		return nil, &VerifyError{Missing: []string{"sec_type"}}
	}

	if c.ConID != 0 {
		exchange := c.Exchange
		if exchange == "" {
			exchange = "SMART"
		}
		return &models.Contract{ConID: c.ConID, Exchange: exchange}, nil
	}

	required, ok := v.provider.RequiredFields(c.SecType)
	if !ok {
		return nil, &VerifyError{SecType: c.SecType, Missing: []string{"required field set"}}
	}

	query := &models.Contract{SecType: c.SecType}
	var missing []string
	for _, rf := range required {
		value := contractField(c, rf.Name)
		if value == "" {
			value = rf.Default
		}
		if value == "" {
			missing = append(missing, rf.Name)
			continue
		}
		if err := setContractField(query, rf.Name, value); err != nil {
			return nil, err
		}
	}
	if len(missing) > 0 {
		return nil, &VerifyError{SecType: c.SecType, Missing: missing}
	}
	return query, nil
}

func contractField(c *models.Contract, name string) string {
	switch name {
	case "symbol":
		return c.Symbol
	case "currency":
		return c.Currency
	case "exchange":
		return c.Exchange
	case "primary_exchange":
		return c.PrimaryExchange
	case "expiry":
		return c.Expiry
	case "strike":
		if c.Strike.IsZero() {
			return ""
		}
		return c.Strike.String()
	case "right":
		return string(c.Right)
	case "multiplier":
		return c.Multiplier
	case "local_symbol":
		return c.LocalSymbol
	case "trading_class":
		return c.TradingClass
	default:
		return ""
	}
}

func setContractField(c *models.Contract, name, value string) error {
	switch name {
	case "symbol":
		c.Symbol = value
	case "currency":
		c.Currency = value
	case "exchange":
		c.Exchange = value
	case "primary_exchange":
		c.PrimaryExchange = value
	case "expiry":
		c.Expiry = value
	case "strike":
		strike, err := decimal.NewFromString(value)
		if err != nil {
			return fmt.Errorf("invalid strike %q: %w", value, err)
		}
		c.Strike = strike
	case "right":
		c.Right = models.Right(value)
	case "multiplier":
		c.Multiplier = value
	case "local_symbol":
		c.LocalSymbol = value
	case "trading_class":
		c.TradingClass = value
	default:
		return fmt.Errorf("unknown contract field %q", name)
	}
	return nil
}
