package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostBasisTolerance bounds the drift allowed between TotalInvested and
// AvgCost × Quantity.
var CostBasisTolerance = decimal.New(1, -6)

// Position is an open holding of one symbol within a wallet. Quantity is
// always strictly positive for a stored position; a position that reaches
// zero is deleted.
type Position struct {
	ID            string
	WalletID      string
	Symbol        string
	Name          string
	AssetType     AssetType
	Market        Market
	Quantity      decimal.Decimal
	AvgCost       decimal.Decimal
	TotalInvested decimal.Decimal
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPosition opens a position from a first purchase of quantity at price.
func NewPosition(walletID, symbol string, assetType AssetType, market Market, quantity, price decimal.Decimal, now time.Time) (*Position, error) {
	switch {
	case walletID == "":
		return nil, &ValidationError{Message: "wallet_id is required"}
	case symbol == "":
		return nil, &ValidationError{Message: "symbol is required"}
	case !validAssetTypes[assetType]:
		return nil, &ValidationError{Message: "invalid asset_type"}
	case !validMarkets[market]:
		return nil, &ValidationError{Message: "invalid market"}
	case !quantity.IsPositive():
		return nil, &ValidationError{Message: "quantity must be > 0"}
	case !price.IsPositive():
		return nil, &ValidationError{Message: "price must be > 0"}
	}
	return &Position{
		ID:            uuid.New().String(),
		WalletID:      walletID,
		Symbol:        symbol,
		Name:          symbol,
		AssetType:     assetType,
		Market:        market,
		Quantity:      quantity,
		AvgCost:       price,
		TotalInvested: quantity.Mul(price),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Key returns the position's uniqueness key within its wallet.
func (p *Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, AssetType: p.AssetType}
}

// CostBasisDrift returns |TotalInvested - AvgCost × Quantity|.
func (p *Position) CostBasisDrift() decimal.Decimal {
	return p.TotalInvested.Sub(p.AvgCost.Mul(p.Quantity)).Abs()
}

// Clone returns a copy that shares no state with p.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}
