package domain

import "strings"

// AssetType classifies what a position holds.
type AssetType string

const (
	AssetTypeStock  AssetType = "STOCK"
	AssetTypeCrypto AssetType = "CRYPTO"
	AssetTypeOPCVM  AssetType = "OPCVM"
	AssetTypeIndex  AssetType = "INDEX"
)

// Market identifies the venue an asset is quoted on.
type Market string

const (
	MarketBVC    Market = "BVC"
	MarketCrypto Market = "CRYPTO"
	MarketOther  Market = "OTHER"
)

var validAssetTypes = map[AssetType]bool{
	AssetTypeStock:  true,
	AssetTypeCrypto: true,
	AssetTypeOPCVM:  true,
	AssetTypeIndex:  true,
}

var validMarkets = map[Market]bool{
	MarketBVC:    true,
	MarketCrypto: true,
	MarketOther:  true,
}

// ParseAssetType normalizes s to upper case and reports whether it names a
// known asset type.
func ParseAssetType(s string) (AssetType, bool) {
	a := AssetType(strings.ToUpper(strings.TrimSpace(s)))
	return a, validAssetTypes[a]
}

// ParseMarket normalizes s to upper case and reports whether it names a
// known market.
func ParseMarket(s string) (Market, bool) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	return m, validMarkets[m]
}

// DefaultMarket returns the market an asset type trades on when the caller
// does not say.
func DefaultMarket(a AssetType) Market {
	if a == AssetTypeCrypto {
		return MarketCrypto
	}
	return MarketBVC
}

// PositionKey identifies a position within a wallet. At most one open
// position exists per key.
type PositionKey struct {
	Symbol    string
	AssetType AssetType
}

func (k PositionKey) String() string {
	return string(k.AssetType) + ":" + k.Symbol
}

// Valid reports whether a is one of the known asset types.
func (a AssetType) Valid() bool {
	return validAssetTypes[a]
}

// Valid reports whether m is one of the known markets.
func (m Market) Valid() bool {
	return validMarkets[m]
}
