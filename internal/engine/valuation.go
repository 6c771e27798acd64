package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/oracle"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentQuotes bounds in-flight oracle calls per valuation.
const maxConcurrentQuotes = 8

// PositionValue is a position marked to market.
type PositionValue struct {
	Position             *domain.Position
	CurrentPrice         decimal.Decimal
	CurrentValue         decimal.Decimal
	UnrealizedPnL        decimal.Decimal
	UnrealizedPnLPercent decimal.Decimal
	Stale                bool // no quote; priced at average cost
	ValuedAt             time.Time
}

// PortfolioStats aggregates a wallet's valuation.
type PortfolioStats struct {
	Balance                decimal.Decimal
	TotalInvested          decimal.Decimal
	TotalCurrentValue      decimal.Decimal
	TotalProfitLoss        decimal.Decimal
	TotalProfitLossPercent decimal.Decimal
	TotalValue             decimal.Decimal
	Positions              []PositionValue
	Stale                  bool // at least one position lacked a quote
}

// Valuate marks positions to market using quotes. Positions without a
// quote are valued at their average cost and flagged stale. It does not
// modify its inputs.
func Valuate(wallet *domain.Wallet, positions []*domain.Position, quotes map[domain.PositionKey]decimal.Decimal, at time.Time) PortfolioStats {
	stats := PortfolioStats{
		Balance:           wallet.Balance,
		TotalInvested:     decimal.Zero,
		TotalCurrentValue: decimal.Zero,
		Positions:         make([]PositionValue, 0, len(positions)),
	}
	for _, p := range positions {
		price, ok := quotes[p.Key()]
		if !ok {
			price = p.AvgCost
		}
		value := p.Quantity.Mul(price)
		pnl := value.Sub(p.TotalInvested)
		stats.Positions = append(stats.Positions, PositionValue{
			Position:             p,
			CurrentPrice:         price,
			CurrentValue:         value,
			UnrealizedPnL:        pnl,
			UnrealizedPnLPercent: domain.Percent(pnl, p.TotalInvested),
			Stale:                !ok,
			ValuedAt:             at,
		})
		stats.TotalInvested = stats.TotalInvested.Add(p.TotalInvested)
		stats.TotalCurrentValue = stats.TotalCurrentValue.Add(value)
		stats.Stale = stats.Stale || !ok
	}
	stats.TotalProfitLoss = stats.TotalCurrentValue.Sub(stats.TotalInvested)
	stats.TotalProfitLossPercent = domain.Percent(stats.TotalProfitLoss, stats.TotalInvested)
	stats.TotalValue = stats.Balance.Add(stats.TotalCurrentValue)
	return stats
}

// Valuator fetches quotes from an oracle and values wallets with them.
type Valuator struct {
	oracle  oracle.Oracle
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewValuator creates a Valuator. Each quote is bounded by timeout.
func NewValuator(o oracle.Oracle, timeout time.Duration, logger *slog.Logger) *Valuator {
	return &Valuator{
		oracle:  o,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Valuate fetches quotes for every position concurrently and values the
// wallet. Oracle failures never fail the valuation.
func (v *Valuator) Valuate(ctx context.Context, wallet *domain.Wallet, positions []*domain.Position) PortfolioStats {
	return Valuate(wallet, positions, v.Quotes(ctx, wallet.ID, positions), v.now())
}

// Quotes returns the prices the oracle could provide for positions.
func (v *Valuator) Quotes(ctx context.Context, walletID string, positions []*domain.Position) map[domain.PositionKey]decimal.Decimal {
	quotes := make(map[domain.PositionKey]decimal.Decimal, len(positions))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentQuotes)
	for _, p := range positions {
		key := p.Key()
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(ctx, v.timeout)
			defer cancel()

			price, err := v.oracle.Price(qctx, key.Symbol, key.AssetType)
			if err != nil {
				v.logger.Warn("quote unavailable, using average cost",
					"wallet_id", walletID,
					"symbol", key.Symbol,
					"asset_type", key.AssetType,
					"error", err,
				)
				return nil
			}
			mu.Lock()
			quotes[key] = price
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return quotes
}
