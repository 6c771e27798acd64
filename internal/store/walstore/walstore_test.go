package walstore

import (
	"context"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/efreitasn/papertrade/internal/store/storetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(dir string) Config {
	cfg := DefaultConfig(dir)
	cfg.SyncWrites = false
	return cfg
}

func TestStore_SnapshotRepository(t *testing.T) {
	storetest.RunSnapshotRepository(t, func(t *testing.T) store.SnapshotRepository {
		s, err := Open(testConfig(t.TempDir()))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_ReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	s, err := Open(testConfig(dir))
	require.NoError(t, err)

	keep, err := domain.NewSnapshot("w1", at, decimal.RequireFromString("100250.5"), decimal.NewFromInt(50000),
		decimal.NewFromInt(50000), decimal.RequireFromString("250.5"))
	require.NoError(t, err)
	gone, err := domain.NewSnapshot("w2", at, decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.Zero, decimal.Zero)
	require.NoError(t, err)

	require.NoError(t, s.AddSnapshot(ctx, keep))
	require.NoError(t, s.AddSnapshot(ctx, gone))
	require.NoError(t, s.DeleteSnapshots(ctx, "w2"))
	require.NoError(t, s.Close())

	reopened, err := Open(testConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Snapshots(ctx, "w1", time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, keep.ID, got[0].ID)
	assert.True(t, got[0].Timestamp.Equal(at))
	assert.True(t, got[0].TotalValue.Equal(keep.TotalValue))
	assert.True(t, got[0].ProfitLossPercent.Equal(keep.ProfitLossPercent))

	deleted, err := reopened.Snapshots(ctx, "w2", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, deleted)
}
