package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// drawAmount draws a positive decimal with up to two fractional digits.
func drawAmount(t *rapid.T, label string, maxCents int64) decimal.Decimal {
	return decimal.New(rapid.Int64Range(1, maxCents).Draw(t, label), -2)
}

type walletState struct {
	balance   decimal.Decimal
	positions map[domain.PositionKey]*domain.Position
	txCount   int
}

func captureState(t *rapid.T, te *testEngine, walletID string) walletState {
	ctx := context.Background()
	w, err := te.repo.Wallet(ctx, walletID)
	if err != nil {
		t.Fatalf("Wallet: %v", err)
	}
	ps, err := te.book.List(ctx, walletID)
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	txs, err := te.log.List(ctx, walletID, 0)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	st := walletState{balance: w.Balance, positions: make(map[domain.PositionKey]*domain.Position), txCount: len(txs)}
	for _, p := range ps {
		st.positions[p.Key()] = p
	}
	return st
}

func sameState(a, b walletState) bool {
	if !a.balance.Equal(b.balance) || a.txCount != b.txCount || len(a.positions) != len(b.positions) {
		return false
	}
	for k, pa := range a.positions {
		pb, ok := b.positions[k]
		if !ok || !pa.Quantity.Equal(pb.Quantity) || !pa.TotalInvested.Equal(pb.TotalInvested) || !pa.AvgCost.Equal(pb.AvgCost) {
			return false
		}
	}
	return true
}

func TestProperty_AccountingInvariants(t *testing.T) {
	symbols := []string{"ATW", "IAM", "BCP"}

	rapid.Check(t, func(t *rapid.T) {
		te := newTestEngine(t)
		w := te.wallet(t, "prop")
		cash := dec("100000")

		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			symbol := rapid.SampledFrom(symbols).Draw(t, fmt.Sprintf("symbol-%d", i))
			qty := drawAmount(t, fmt.Sprintf("qty-%d", i), 5_000)
			price := drawAmount(t, fmt.Sprintf("price-%d", i), 200_000)
			isBuy := rapid.Bool().Draw(t, fmt.Sprintf("buy-%d", i))

			before := captureState(t, te, w.ID)
			var (
				tx  *domain.Transaction
				err error
			)
			if isBuy {
				tx, err = te.buy(w.ID, symbol, qty.String(), price.String())
			} else {
				tx, err = te.sell(w.ID, symbol, qty.String(), price.String())
			}
			after := captureState(t, te, w.ID)

			if err != nil {
				if !errors.Is(err, domain.ErrInsufficientFunds) &&
					!errors.Is(err, domain.ErrInsufficientQuantity) &&
					!errors.Is(err, domain.ErrPositionNotFound) {
					t.Fatalf("step %d: unexpected error %v", i, err)
				}
				if !sameState(before, after) {
					t.Fatalf("step %d: rejected order mutated wallet state", i)
				}
				continue
			}

			if isBuy {
				cash = cash.Sub(tx.TotalAmount).Sub(tx.Fee)
			} else {
				cash = cash.Add(tx.TotalAmount).Sub(tx.Fee)
			}
			if after.txCount != before.txCount+1 {
				t.Fatalf("step %d: transaction count %d → %d", i, before.txCount, after.txCount)
			}

			if after.balance.IsNegative() {
				t.Fatalf("step %d: balance went negative: %s", i, after.balance)
			}
			if !after.balance.Equal(cash) {
				t.Fatalf("step %d: balance %s, replayed cash flow %s", i, after.balance, cash)
			}
			for k, p := range after.positions {
				if !p.Quantity.IsPositive() {
					t.Fatalf("step %d: %s stored with quantity %s", i, k, p.Quantity)
				}
				if p.CostBasisDrift().GreaterThan(domain.CostBasisTolerance) {
					t.Fatalf("step %d: %s drift %s (invested %s, avg %s, qty %s)",
						i, k, p.CostBasisDrift(), p.TotalInvested, p.AvgCost, p.Quantity)
				}
			}
		}
	})
}

func TestProperty_RoundTripCostsTwoFees(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		te := newTestEngine(t)
		w := te.wallet(t, "prop")
		qty := drawAmount(t, "qty", 10_000)
		price := drawAmount(t, "price", 100_000)
		if qty.Mul(price).Mul(dec("1.005")).GreaterThan(dec("100000")) {
			t.Skip("order does not fit the starting balance")
		}

		buy, err := te.buy(w.ID, "ATW", qty.String(), price.String())
		if err != nil {
			t.Fatalf("buy: %v", err)
		}
		sell, err := te.sell(w.ID, "ATW", qty.String(), price.String())
		if err != nil {
			t.Fatalf("sell: %v", err)
		}

		if !sell.RealizedPnL.Equal(sell.Fee.Neg()) {
			t.Fatalf("realized pnl %s, want -%s", sell.RealizedPnL, sell.Fee)
		}
		if !buy.Fee.Equal(sell.Fee) {
			t.Fatalf("buy fee %s != sell fee %s", buy.Fee, sell.Fee)
		}
		want := dec("100000").Sub(buy.Fee.Mul(decimal.NewFromInt(2)))
		if got := te.balance(t, w.ID); !got.Equal(want) {
			t.Fatalf("balance %s, want %s", got, want)
		}
		if _, err := te.book.Get(context.Background(), w.ID, stockKey("ATW")); !errors.Is(err, domain.ErrPositionNotFound) {
			t.Fatalf("position should be removed, got %v", err)
		}
	})
}

func TestProperty_ValuationIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 6).Draw(t, "positions")
		positions := make([]*domain.Position, 0, n)
		quotes := make(map[domain.PositionKey]decimal.Decimal)
		for i := 0; i < n; i++ {
			qty := drawAmount(t, fmt.Sprintf("qty-%d", i), 100_000)
			avg := drawAmount(t, fmt.Sprintf("avg-%d", i), 100_000)
			p := &domain.Position{
				Symbol:        fmt.Sprintf("S%d", i),
				AssetType:     domain.AssetTypeStock,
				Quantity:      qty,
				AvgCost:       avg,
				TotalInvested: qty.Mul(avg),
			}
			positions = append(positions, p)
			if rapid.Bool().Draw(t, fmt.Sprintf("quoted-%d", i)) {
				quotes[p.Key()] = drawAmount(t, fmt.Sprintf("quote-%d", i), 100_000)
			}
		}
		wallet := &domain.Wallet{Balance: drawAmount(t, "balance", 10_000_000)}

		a := Valuate(wallet, positions, quotes, valuedAt)
		b := Valuate(wallet, positions, quotes, valuedAt)

		if !a.TotalValue.Equal(b.TotalValue) || !a.TotalProfitLoss.Equal(b.TotalProfitLoss) ||
			!a.TotalInvested.Equal(b.TotalInvested) || a.Stale != b.Stale {
			t.Fatalf("valuation not idempotent: %+v vs %+v", a, b)
		}
		for i := range a.Positions {
			if !a.Positions[i].CurrentValue.Equal(b.Positions[i].CurrentValue) ||
				!a.Positions[i].UnrealizedPnLPercent.Equal(b.Positions[i].UnrealizedPnLPercent) {
				t.Fatalf("position %d valuation differs", i)
			}
		}
		if !a.TotalValue.Equal(wallet.Balance.Add(a.TotalCurrentValue)) {
			t.Fatalf("total value %s != balance + current value", a.TotalValue)
		}
	})
}
