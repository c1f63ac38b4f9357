package protocol

// Minimum server versions gating individual fields. A field tagged with
// one of these is omitted entirely when the negotiated server version
// is below the threshold; it is never sent as an empty placeholder.
const (
	MinServerVerSecIDType            = 45
	MinServerVerTradingClass         = 68
	MinServerVerLinking              = 70
	MinServerVerPrimaryExchange      = 75
	MinServerVerModelsSupport        = 90
	MinServerVerOptionalCapabilities = 100
	MinServerVerSmartDepth           = 118
	MinServerVerMarketDepthPrimExch  = 112
)

// DefaultServerVersion is the capability version assumed when no
// version has been negotiated yet. It matches the oldest gateway build
// this client is tested against.
const DefaultServerVersion = 157

// Supports reports whether the given negotiated server version carries
// a capability introduced at min.
func Supports(serverVersion, min int) bool {
	return serverVersion >= min
}
