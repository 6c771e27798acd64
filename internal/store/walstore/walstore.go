// Package walstore keeps portfolio snapshots in a gowal segmented
// write-ahead log. The log is replayed into an in-memory index on open.
package walstore

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
)

const (
	snapshotKeyPrefix  = "snap:"
	tombstoneKeyPrefix = "del:"

	dirPermissions = 0o755
)

// Config controls the WAL layout on disk. Segments beyond MaxSegments are
// dropped oldest first, which bounds how much history survives.
type Config struct {
	Dir              string
	SegmentThreshold int
	MaxSegments      int
	SyncWrites       bool
}

// DefaultConfig returns the layout used by the server for dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		SegmentThreshold: 1000,
		MaxSegments:      100,
		SyncWrites:       true,
	}
}

// snapshotRecord is the on-disk form of a snapshot.
type snapshotRecord struct {
	ID                string          `json:"id"`
	WalletID          string          `json:"wallet_id"`
	Timestamp         time.Time       `json:"ts"`
	TotalValue        decimal.Decimal `json:"total_value"`
	AvailableBalance  decimal.Decimal `json:"available_balance"`
	InvestedValue     decimal.Decimal `json:"invested_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent decimal.Decimal `json:"profit_loss_percent"`
}

// Store is a SnapshotRepository persisted to a WAL.
type Store struct {
	mu    sync.Mutex // serializes log writes
	wal   *gowal.Wal
	index *store.MemorySnapshotStore
}

var _ store.SnapshotRepository = (*Store)(nil)

// Open opens or creates the log in cfg.Dir and rebuilds the index from it.
func Open(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, dirPermissions); err != nil {
		return nil, errors.Wrapf(err, "failed to ensure WAL directory %s", cfg.Dir)
	}
	w, err := gowal.NewWAL(gowal.Config{
		Dir:              cfg.Dir,
		Prefix:           "snap_",
		SegmentThreshold: cfg.SegmentThreshold,
		MaxSegments:      cfg.MaxSegments,
		IsInSyncDiskMode: cfg.SyncWrites,
	})
	if err != nil {
		return nil, errors.Wrap(err, "error init wal")
	}

	s := &Store{wal: w, index: store.NewMemorySnapshotStore()}
	if err := s.replay(); err != nil {
		w.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) replay() error {
	ctx := context.Background()
	for msg := range s.wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, snapshotKeyPrefix):
			var rec snapshotRecord
			if err := json.Unmarshal(msg.Value, &rec); err != nil {
				return errors.Wrapf(err, "error unmarshal snapshot %s", msg.Key)
			}
			if err := s.index.AddSnapshot(ctx, rec.toDomain()); err != nil {
				return err
			}
		case strings.HasPrefix(msg.Key, tombstoneKeyPrefix):
			walletID := strings.TrimPrefix(msg.Key, tombstoneKeyPrefix)
			if err := s.index.DeleteSnapshots(ctx, walletID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) AddSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	b, err := json.Marshal(recordFrom(snap))
	if err != nil {
		return errors.Wrap(err, "error marshal snapshot")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wal.Write(s.wal.CurrentIndex()+1, snapshotKeyPrefix+snap.WalletID, b); err != nil {
		return errors.Wrap(err, "error write snapshot to wal")
	}
	return s.index.AddSnapshot(ctx, snap)
}

func (s *Store) Snapshots(ctx context.Context, walletID string, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	return s.index.Snapshots(ctx, walletID, since)
}

// DeleteSnapshots appends a tombstone for the wallet; earlier records are
// skipped on replay.
func (s *Store) DeleteSnapshots(ctx context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wal.Write(s.wal.CurrentIndex()+1, tombstoneKeyPrefix+walletID, []byte{}); err != nil {
		return errors.Wrap(err, "error write tombstone to wal")
	}
	return s.index.DeleteSnapshots(ctx, walletID)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}

func recordFrom(snap *domain.PortfolioSnapshot) snapshotRecord {
	return snapshotRecord{
		ID:                snap.ID,
		WalletID:          snap.WalletID,
		Timestamp:         snap.Timestamp,
		TotalValue:        snap.TotalValue,
		AvailableBalance:  snap.AvailableBalance,
		InvestedValue:     snap.InvestedValue,
		ProfitLoss:        snap.ProfitLoss,
		ProfitLossPercent: snap.ProfitLossPercent,
	}
}

func (r snapshotRecord) toDomain() *domain.PortfolioSnapshot {
	return &domain.PortfolioSnapshot{
		ID:                r.ID,
		WalletID:          r.WalletID,
		Timestamp:         r.Timestamp,
		TotalValue:        r.TotalValue,
		AvailableBalance:  r.AvailableBalance,
		InvestedValue:     r.InvestedValue,
		ProfitLoss:        r.ProfitLoss,
		ProfitLossPercent: r.ProfitLossPercent,
	}
}
