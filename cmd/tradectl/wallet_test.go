package main

import (
	"context"
	"flag"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/app"
	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeCmd_NamesAndFlags(t *testing.T) {
	buy := &tradeCmd{side: domain.TransactionBuy}
	sell := &tradeCmd{side: domain.TransactionSell}
	assert.Equal(t, "buy", buy.Name())
	assert.Equal(t, "sell", sell.Name())

	fs := flag.NewFlagSet("buy", flag.ContinueOnError)
	buy.SetFlags(fs)
	assert.NotNil(t, fs.Lookup("market"))
	require.NoError(t, fs.Parse([]string{"-owner", "alice", "-symbol", "IAM", "-qty", "2", "-price", "10.5"}))
	assert.Equal(t, "alice", buy.owner)
	assert.Equal(t, "IAM", buy.symbol)
	assert.Equal(t, "STOCK", buy.assetType)

	fs = flag.NewFlagSet("sell", flag.ContinueOnError)
	sell.SetFlags(fs)
	assert.Nil(t, fs.Lookup("market"), "sell uses the position's market")
}

func TestWalletCommands_UniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range walletCommands {
		assert.False(t, seen[c.Name()], "duplicate command %q", c.Name())
		seen[c.Name()] = true
	}
	for _, name := range []string{"wallet", "buy", "sell", "history", "snapshot", "reset"} {
		assert.True(t, seen[name], "missing command %q", name)
	}
}

func TestToTransactionOutput(t *testing.T) {
	pnl := decimal.RequireFromString("-5")
	tx := &domain.Transaction{
		ID:          "tx-1",
		Type:        domain.TransactionSell,
		Symbol:      "IAM",
		Quantity:    decimal.NewFromInt(10),
		Price:       decimal.NewFromInt(100),
		TotalAmount: decimal.NewFromInt(1000),
		Fee:         decimal.NewFromInt(5),
		RealizedPnL: &pnl,
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	out := toTransactionOutput(tx, "XYZ")
	assert.Equal(t, "SELL", out.Type)
	assert.Equal(t, "1000.00 XYZ", out.TotalAmount)
	assert.Equal(t, "5.00 XYZ", out.Fee)
	assert.Equal(t, "-5.00 XYZ", out.RealizedPnL)

	tx.RealizedPnL = nil
	assert.Empty(t, toTransactionOutput(tx, "XYZ").RealizedPnL)
}

func TestWithApp_TradeLeavesSnapshot(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "papertrade.db"))
	t.Setenv("SNAPSHOT_STORE", "")
	ctx := context.Background()

	st := withApp(ctx, func(a *app.App) error {
		_, err := a.Service.Buy(ctx, service.BuyRequest{
			OwnerID:   "alice",
			Symbol:    "ATW",
			AssetType: "STOCK",
			Quantity:  decimal.NewFromInt(100),
			Price:     decimal.NewFromInt(500),
		})
		return err
	})
	require.Equal(t, subcommands.ExitSuccess, st)

	// A second process sees the snapshot the first one queued.
	st = withApp(ctx, func(a *app.App) error {
		snaps, err := a.Service.GetHistory(ctx, "alice", "MAX")
		if err != nil {
			return err
		}
		require.Len(t, snaps, 1)
		assert.True(t, snaps[0].AvailableBalance.Equal(decimal.NewFromInt(49750)), "balance = %s", snaps[0].AvailableBalance)
		return nil
	})
	require.Equal(t, subcommands.ExitSuccess, st)
}
