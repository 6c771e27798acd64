// Package oracle provides current prices for held assets.
package oracle

import (
	"context"
	"sync"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Oracle returns the current price of symbol. Implementations return an
// error wrapping domain.ErrOracleUnavailable when no price is known.
type Oracle interface {
	Price(ctx context.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error)
}

// StaticOracle serves prices set in memory. It is used when no price
// service is configured and in tests.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[domain.PositionKey]decimal.Decimal
}

var _ Oracle = (*StaticOracle)(nil)

// NewStaticOracle creates an empty StaticOracle.
func NewStaticOracle() *StaticOracle {
	return &StaticOracle{prices: make(map[domain.PositionKey]decimal.Decimal)}
}

// Set records price for symbol.
func (o *StaticOracle) Set(symbol string, assetType domain.AssetType, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[domain.PositionKey{Symbol: symbol, AssetType: assetType}] = price
}

// Remove forgets the price of symbol.
func (o *StaticOracle) Remove(symbol string, assetType domain.AssetType) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, domain.PositionKey{Symbol: symbol, AssetType: assetType})
}

func (o *StaticOracle) Price(ctx context.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	o.mu.RLock()
	defer o.mu.RUnlock()

	p, ok := o.prices[domain.PositionKey{Symbol: symbol, AssetType: assetType}]
	if !ok {
		return decimal.Zero, domain.ErrOracleUnavailable
	}
	return p, nil
}
