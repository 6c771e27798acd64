package engine

import (
	"context"
	"errors"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
)

// PositionBook owns position mutation. It keeps a single
// volume-weighted lot per (symbol, asset type).
type PositionBook struct {
	repo store.Repository
	now  func() time.Time
}

// NewPositionBook creates a PositionBook reading from repo.
func NewPositionBook(repo store.Repository) *PositionBook {
	return &PositionBook{repo: repo, now: time.Now}
}

// Get returns the open position for key, or domain.ErrPositionNotFound.
func (b *PositionBook) Get(ctx context.Context, walletID string, key domain.PositionKey) (*domain.Position, error) {
	return b.repo.Position(ctx, walletID, key)
}

// List returns every open position of the wallet.
func (b *PositionBook) List(ctx context.Context, walletID string) ([]*domain.Position, error) {
	return b.repo.Positions(ctx, walletID)
}

// UpsertOnBuy adds quantity bought at price to the position, opening it
// if needed. The average cost becomes total invested over quantity.
func (b *PositionBook) UpsertOnBuy(tx store.Tx, walletID string, key domain.PositionKey, market domain.Market, quantity, price decimal.Decimal) (*domain.Position, error) {
	now := b.now()
	existing, err := tx.Position(key)
	switch {
	case err == nil:
		existing.Quantity = existing.Quantity.Add(quantity)
		existing.TotalInvested = existing.TotalInvested.Add(quantity.Mul(price))
		existing.AvgCost = existing.TotalInvested.Div(existing.Quantity)
		existing.UpdatedAt = now
		if err := tx.PutPosition(existing); err != nil {
			return nil, err
		}
		return existing, nil
	case errors.Is(err, domain.ErrPositionNotFound):
		p, err := domain.NewPosition(walletID, key.Symbol, key.AssetType, market, quantity, price, now)
		if err != nil {
			return nil, err
		}
		if err := tx.PutPosition(p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, err
	}
}

// ReduceOnSell removes quantity from the position and returns the cost
// basis allocated to it at the average cost. The remaining lot keeps its
// average cost. When the position is closed the returned position is nil.
func (b *PositionBook) ReduceOnSell(tx store.Tx, key domain.PositionKey, quantity decimal.Decimal) (*domain.Position, decimal.Decimal, error) {
	p, err := tx.Position(key)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if quantity.GreaterThan(p.Quantity) {
		return nil, decimal.Zero, &domain.InsufficientQuantityError{
			Symbol:    p.Symbol,
			Requested: quantity,
			Available: p.Quantity,
		}
	}

	remaining := p.Quantity.Sub(quantity)
	if remaining.IsZero() {
		if err := tx.DeletePosition(key); err != nil {
			return nil, decimal.Zero, err
		}
		return nil, p.TotalInvested, nil
	}

	costBasis := p.TotalInvested.Div(p.Quantity).Mul(quantity)
	p.Quantity = remaining
	p.TotalInvested = p.TotalInvested.Sub(costBasis)
	p.UpdatedAt = b.now()
	if err := tx.PutPosition(p); err != nil {
		return nil, decimal.Zero, err
	}
	return p, costBasis, nil
}
