package protocol

import (
	"strconv"

	"ibflow/models"
)

// ContractVariant selects the shape of the contract field tuple inside
// an outgoing message. The gateway grew the contract shape
// incrementally across protocol versions, so different message types
// carry different subsets.
type ContractVariant int

const (
	VariantNone ContractVariant = iota
	// VariantShort emits the base identity fields and only the
	// optional fields named in the allow-list.
	VariantShort
	// VariantLong always emits the larger fixed superset
	// (primary exchange, trading class, include-expired) and adds
	// allow-listed security id fields on top.
	VariantLong
)

// ContractField names an optional contract field that an allow-list can
// enable for a given message type. The allow-list is the seam where
// future fields are added without breaking older message types.
type ContractField string

const (
	FieldPrimaryExchange ContractField = "primary_exchange"
	FieldTradingClass    ContractField = "trading_class"
	FieldIncludeExpired  ContractField = "include_expired"
	FieldSecIDType       ContractField = "sec_id_type"
	FieldSecID           ContractField = "sec_id"
)

// EncodeContract renders the contract identity tuple for the wire.
// Base field order: conId, symbol, secType, expiry, strike, right,
// multiplier, exchange, [primaryExchange], currency, localSymbol,
// [tradingClass], [includeExpired], [secIdType, secId]. The bracketed
// fields depend on the variant, the allow-list and the negotiated
// server version; an omitted field produces no token at all.
func EncodeContract(variant ContractVariant, c *models.Contract, serverVersion int, extras ...ContractField) ([]string, error) {
	allow := make(map[ContractField]bool, len(extras))
	for _, f := range extras {
		allow[f] = true
	}
	long := variant == VariantLong

	conID := ""
	if c.ConID != 0 {
		conID = strconv.FormatInt(c.ConID, 10)
	}

	out := make([]string, 0, 16)
	out = append(out,
		conID,
		c.Symbol,
		string(c.SecType),
		c.Expiry,
		c.Strike.String(),
		string(c.Right),
		c.Multiplier,
		c.Exchange,
	)

	if long || allow[FieldPrimaryExchange] {
		out = append(out, c.PrimaryExchange)
	}

	out = append(out, c.Currency, c.LocalSymbol)

	if (long || allow[FieldTradingClass]) && Supports(serverVersion, MinServerVerTradingClass) {
		out = append(out, c.TradingClass)
	}

	if long || allow[FieldIncludeExpired] {
		token, err := wireValue(c.IncludeExpired)
		if err != nil {
			return nil, err
		}
		out = append(out, token)
	}

	if allow[FieldSecIDType] && Supports(serverVersion, MinServerVerSecIDType) {
		out = append(out, c.SecIDType)
	}
	if allow[FieldSecID] && Supports(serverVersion, MinServerVerSecIDType) {
		out = append(out, c.SecID)
	}

	return out, nil
}
