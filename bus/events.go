package bus

import (
	"github.com/shopspring/decimal"

	"ibflow/models"
)

// Kind names an inbound event category a subscriber can listen for.
type Kind string

const (
	KindAlert                 Kind = "Alert"
	KindContractData          Kind = "ContractData"
	KindContractDataEnd       Kind = "ContractDataEnd"
	KindTickPrice             Kind = "TickPrice"
	KindTickSnapshotEnd       Kind = "TickSnapshotEnd"
	KindOptionChainDefinition Kind = "OptionChainDefinition"
	KindOptionParameterEnd    Kind = "SecurityDefinitionOptionParameterEnd"
)

// Gateway error codes this core reacts to.
const (
	// AlertInvalidContract signals that the queried contract
	// specification matched no instrument.
	AlertInvalidContract = 200
	// AlertNoMarketData signals a missing market data subscription for
	// the requested instrument.
	AlertNoMarketData = 354
)

// Event is an inbound gateway event. CorrelationID links the event to
// the request that triggered it; workflows ignore events carrying a
// foreign id.
type Event interface {
	Kind() Kind
	CorrelationID() int64
}

// Alert is an error or notice from the gateway. ID carries the
// correlation id of the request it refers to, or -1 for connection
// level notices.
type Alert struct {
	ID      int64
	Code    int
	Message string
}

func (a Alert) Kind() Kind           { return KindAlert }
func (a Alert) CorrelationID() int64 { return a.ID }

// ContractData delivers one instrument matching a contract data
// request. Detail may be nil for partial matches.
type ContractData struct {
	ReqID    int64
	Contract *models.Contract
	Detail   *models.ContractDetail
}

func (c ContractData) Kind() Kind           { return KindContractData }
func (c ContractData) CorrelationID() int64 { return c.ReqID }

// ContractDataEnd marks the end of the match stream for a contract
// data request.
type ContractDataEnd struct {
	ReqID int64
}

func (c ContractDataEnd) Kind() Kind           { return KindContractDataEnd }
func (c ContractDataEnd) CorrelationID() int64 { return c.ReqID }

// TickPrice is a single price field of the market data stream.
type TickPrice struct {
	TickerID int64
	Type     models.TickType
	Price    decimal.Decimal
	Size     decimal.Decimal
}

func (t TickPrice) Kind() Kind           { return KindTickPrice }
func (t TickPrice) CorrelationID() int64 { return t.TickerID }

// TickSnapshotEnd marks the self-termination of a snapshot market data
// request.
type TickSnapshotEnd struct {
	TickerID int64
}

func (t TickSnapshotEnd) Kind() Kind           { return KindTickSnapshotEnd }
func (t TickSnapshotEnd) CorrelationID() int64 { return t.TickerID }

// OptionChainDef delivers one candidate option chain definition for an
// underlying on one exchange.
type OptionChainDef struct {
	ReqID int64
	Def   *models.OptionChainDefinition
}

func (o OptionChainDef) Kind() Kind           { return KindOptionChainDefinition }
func (o OptionChainDef) CorrelationID() int64 { return o.ReqID }

// OptionParameterEnd marks the end of the option chain definition
// stream.
type OptionParameterEnd struct {
	ReqID int64
}

func (o OptionParameterEnd) Kind() Kind           { return KindOptionParameterEnd }
func (o OptionParameterEnd) CorrelationID() int64 { return o.ReqID }
