package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/config"
	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		FeeRate:           decimal.RequireFromString("0.005"),
		StartingBalance:   decimal.NewFromInt(100000),
		Currency:          "MAD",
		TransactionLimit:  100,
		StorageDriver:     config.StorageMemory,
		SnapshotQueueSize: 16,
		OracleTimeout:     time.Second,
		OracleCacheTTL:    time.Minute,
	}
}

// exercise runs a buy, a snapshot and a history read through the wired
// service.
func exercise(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()

	tx, err := a.Service.Buy(ctx, service.BuyRequest{
		OwnerID:   "alice",
		Symbol:    "IAM",
		AssetType: "STOCK",
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionBuy, tx.Type)

	_, err = a.Service.RecordSnapshot(ctx, "alice")
	require.NoError(t, err)

	snaps, err := a.Service.GetHistory(ctx, "alice", "MAX")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	view, err := a.Service.GetWallet(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, view.Wallet.Balance.Equal(decimal.NewFromInt(98995)), "balance = %s", view.Wallet.Balance)
}

func TestNew_Memory(t *testing.T) {
	a, err := New(context.Background(), testConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer a.Close()

	exercise(t, a)
}

func TestNew_SQLiteWithWALSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.StorageDriver = config.StorageSQLite
	cfg.DatabaseURL = filepath.Join(dir, "papertrade.db")
	cfg.SnapshotStore = config.SnapshotStoreWAL
	cfg.SnapshotWALDir = filepath.Join(dir, "wal")

	a, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	exercise(t, a)
	require.NoError(t, a.Close())

	// State survives a restart.
	a, err = New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer a.Close()

	view, err := a.Service.GetWallet(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, view.Wallet.Balance.Equal(decimal.NewFromInt(98995)))
	require.Len(t, view.Stats.Positions, 1)

	snaps, err := a.Service.GetHistory(context.Background(), "alice", "MAX")
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestNew_BadDatabase(t *testing.T) {
	cfg := testConfig()
	cfg.StorageDriver = config.StorageSQLite
	cfg.DatabaseURL = filepath.Join(t.TempDir(), "missing", "dir", "papertrade.db")

	_, err := New(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestClose_Idempotent(t *testing.T) {
	a, err := New(context.Background(), testConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
}

func TestNew_FlushRecordsQueuedSnapshots(t *testing.T) {
	a, err := New(context.Background(), testConfig(), slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	_, err = a.Service.Buy(ctx, service.BuyRequest{
		OwnerID:   "alice",
		Symbol:    "IAM",
		AssetType: "STOCK",
		Quantity:  decimal.NewFromInt(10),
		Price:     decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	a.Recorder.Flush(ctx)

	snaps, err := a.Service.GetHistory(ctx, "alice", "MAX")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].AvailableBalance.Equal(decimal.NewFromInt(98995)))
}
