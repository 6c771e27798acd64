package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/google/btree"
)

const snapshotTreeDegree = 32

// snapshotLess orders snapshots by timestamp, breaking ties by ID so two
// snapshots taken in the same instant both stay in the tree.
func snapshotLess(a, b *domain.PortfolioSnapshot) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return strings.Compare(a.ID, b.ID) < 0
}

// MemorySnapshotStore keeps one time-ordered B-tree of snapshots per
// wallet.
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	trees map[string]*btree.BTreeG[*domain.PortfolioSnapshot]
}

var _ SnapshotRepository = (*MemorySnapshotStore)(nil)

// NewMemorySnapshotStore creates an empty MemorySnapshotStore.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		trees: make(map[string]*btree.BTreeG[*domain.PortfolioSnapshot]),
	}
}

func (s *MemorySnapshotStore) AddSnapshot(_ context.Context, snap *domain.PortfolioSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tree, ok := s.trees[snap.WalletID]
	if !ok {
		tree = btree.NewG[*domain.PortfolioSnapshot](snapshotTreeDegree, snapshotLess)
		s.trees[snap.WalletID] = tree
	}
	c := *snap
	tree.ReplaceOrInsert(&c)
	return nil
}

func (s *MemorySnapshotStore) Snapshots(_ context.Context, walletID string, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.PortfolioSnapshot, 0)
	tree, ok := s.trees[walletID]
	if !ok {
		return out, nil
	}
	pivot := &domain.PortfolioSnapshot{Timestamp: since}
	tree.AscendGreaterOrEqual(pivot, func(snap *domain.PortfolioSnapshot) bool {
		c := *snap
		out = append(out, &c)
		return true
	})
	return out, nil
}

func (s *MemorySnapshotStore) DeleteSnapshots(_ context.Context, walletID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.trees, walletID)
	return nil
}
