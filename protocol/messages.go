package protocol

import (
	"fmt"

	"ibflow/models"
)

// Outgoing message names. The registry maps each onto its wire id,
// version and field layout.
const (
	RequestMarketData                 = "RequestMarketData"
	CancelMarketData                  = "CancelMarketData"
	RequestMarketDataType             = "RequestMarketDataType"
	RequestContractData               = "RequestContractData"
	RequestMarketDepth                = "RequestMarketDepth"
	CancelMarketDepth                 = "CancelMarketDepth"
	RequestOptionChainDefinition      = "RequestOptionChainDefinition"
	RequestExecutions                 = "RequestExecutions"
	RequestCurrentTime                = "RequestCurrentTime"
	RequestIds                        = "RequestIds"
	RequestHeadTimeStamp              = "RequestHeadTimeStamp"
	CancelHeadTimeStamp               = "CancelHeadTimeStamp"
	RequestHistogramData              = "RequestHistogramData"
	CancelHistogramData               = "CancelHistogramData"
	RequestCalculateImpliedVolatility = "RequestCalculateImpliedVolatility"
	RequestCalculateOptionPrice       = "RequestCalculateOptionPrice"
	RequestGlobalCancel               = "RequestGlobalCancel"
)

// marketDataTypeCode maps a symbolic market data type name onto its
// wire code. Unmapped values pass through unchanged so callers can
// supply a raw code directly.
func marketDataTypeCode(v any) (any, error) {
	name, ok := v.(string)
	if !ok {
		return v, nil
	}
	if code, ok := models.MarketDataTypes[name]; ok {
		return code, nil
	}
	return nil, fmt.Errorf("unknown market data type %q", name)
}

// DefaultRegistry returns the statically constructed outgoing message
// table. The table is declarative data, not behaviour: adding a message
// means adding one entry. Field order inside each entry is the wire
// order and must never be rearranged.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		MessageSpec{
			Name: RequestMarketData, ID: 1, Version: 11,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantShort, Extras: []ContractField{FieldPrimaryExchange, FieldTradingClass}},
				{Key: "generic_tick_list", Default: ""},
				{Key: "snapshot", Default: false},
				{Key: "regulatory_snapshot", Default: false, MinVersion: MinServerVerOptionalCapabilities},
				{Key: "mkt_data_options", Default: ""},
			},
		},
		MessageSpec{
			Name: CancelMarketData, ID: 2, Version: 2,
			Fields: []FieldSpec{{Key: "id"}},
		},
		MessageSpec{
			Name: RequestMarketDataType, ID: 59, Version: 1,
			Fields: []FieldSpec{
				{Key: "market_data_type", Transform: marketDataTypeCode},
			},
		},
		MessageSpec{
			Name: RequestContractData, ID: 9, Version: 8,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantLong, Extras: []ContractField{FieldSecIDType, FieldSecID}},
			},
		},
		MessageSpec{
			Name: RequestMarketDepth, ID: 10, Version: 5,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantShort, Extras: []ContractField{FieldPrimaryExchange, FieldIncludeExpired}},
				{Key: "num_rows"},
				{Key: "smart_depth", Default: false, MinVersion: MinServerVerSmartDepth},
				{Key: "mkt_depth_options", Default: ""},
			},
		},
		MessageSpec{
			Name: CancelMarketDepth, ID: 11, Version: 1,
			Fields: []FieldSpec{{Key: "id"}},
		},
		MessageSpec{
			Name: RequestOptionChainDefinition, ID: 78,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "symbol"},
				{Key: "exchange", Default: ""},
				{Key: "sec_type"},
				{Key: "con_id"},
			},
		},
		MessageSpec{
			Name: RequestExecutions, ID: 7, Version: 3,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "client_id"},
				{Key: "acct_code", Default: ""},
				{Key: "time", Default: ""}, // yyyymmdd-hh:mm:ss
				{Key: "symbol", Default: ""},
				{Key: "sec_type", Default: ""},
				{Key: "exchange", Default: ""},
				{Key: "side", Default: ""},
			},
		},
		MessageSpec{
			Name: RequestCurrentTime, ID: 49, Version: 1,
		},
		MessageSpec{
			Name: RequestIds, ID: 8, Version: 1,
			Fields: []FieldSpec{{Key: "number", Default: 1}},
		},
		MessageSpec{
			Name: RequestHeadTimeStamp, ID: 87,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantShort, Extras: []ContractField{FieldPrimaryExchange, FieldIncludeExpired}},
				{Key: "use_rth", Default: 1},
				{Key: "what_to_show", Default: "Trades"},
				{Key: "format_date", Default: 2},
			},
		},
		MessageSpec{
			Name: CancelHeadTimeStamp, ID: 90,
			Fields: []FieldSpec{{Key: "id"}},
		},
		MessageSpec{
			Name: RequestHistogramData, ID: 88,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantShort, Extras: []ContractField{FieldPrimaryExchange, FieldIncludeExpired}},
				{Key: "use_rth", Default: 1},
				{Key: "time_period"},
			},
		},
		MessageSpec{
			Name: CancelHistogramData, ID: 89,
			Fields: []FieldSpec{{Key: "id"}},
		},
		MessageSpec{
			Name: RequestCalculateImpliedVolatility, ID: 54, Version: 3,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantLong},
				{Key: "option_price"},
				{Key: "under_price"},
				{Key: "implied_volatility_options_count", Default: 0},
				{Key: "implied_volatility_options_conditions", Default: ""},
			},
		},
		MessageSpec{
			Name: RequestCalculateOptionPrice, ID: 55, Version: 3,
			Fields: []FieldSpec{
				{Key: "id"},
				{Key: "contract", Variant: VariantLong},
				{Key: "volatility"},
				{Key: "under_price"},
				{Key: "implied_volatility_options_count", Default: 0},
				{Key: "implied_volatility_options_conditions", Default: ""},
			},
		},
		MessageSpec{
			Name: RequestGlobalCancel, ID: 58, Version: 1,
		},
	)
	if err != nil {
		// The table is static; a construction failure is a programming
		// error caught by the package tests.
		panic(err)
	}
	return r
}
