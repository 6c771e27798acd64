package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// MemoryStore is a thread-safe in-memory Repository. Each wallet has its
// own mutex serializing Atomically calls; the store-wide RWMutex only
// guards the maps.
type MemoryStore struct {
	mu           sync.RWMutex
	wallets      map[string]*domain.Wallet                           // wallet_id → wallet
	owners       map[string]string                                   // owner_id → wallet_id
	positions    map[string]map[domain.PositionKey]*domain.Position // wallet_id → key → position
	transactions map[string][]*domain.Transaction                    // wallet_id → transactions (append-only)
	walletLocks  map[string]*sync.Mutex
}

var _ Repository = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		wallets:      make(map[string]*domain.Wallet),
		owners:       make(map[string]string),
		positions:    make(map[string]map[domain.PositionKey]*domain.Position),
		transactions: make(map[string][]*domain.Transaction),
		walletLocks:  make(map[string]*sync.Mutex),
	}
}

// CreateWallet adds a wallet. It returns domain.ErrWalletAlreadyExists if
// the owner already has one.
func (s *MemoryStore) CreateWallet(_ context.Context, w *domain.Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.owners[w.OwnerID]; exists {
		return domain.ErrWalletAlreadyExists
	}
	s.wallets[w.ID] = w.Clone()
	s.owners[w.OwnerID] = w.ID
	s.walletLocks[w.ID] = &sync.Mutex{}
	return nil
}

func (s *MemoryStore) WalletByOwner(_ context.Context, ownerID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.owners[ownerID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return s.wallets[id].Clone(), nil
}

func (s *MemoryStore) Wallet(_ context.Context, walletID string) (*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return w.Clone(), nil
}

// Wallets returns every wallet ordered by creation time.
func (s *MemoryStore) Wallets(_ context.Context) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w.Clone())
	}
	slices.SortFunc(out, func(a, b *domain.Wallet) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Positions returns the wallet's open positions ordered by creation time.
func (s *MemoryStore) Positions(_ context.Context, walletID string) ([]*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.wallets[walletID]; !ok {
		return nil, domain.ErrWalletNotFound
	}
	out := make([]*domain.Position, 0, len(s.positions[walletID]))
	for _, p := range s.positions[walletID] {
		out = append(out, p.Clone())
	}
	sortPositions(out)
	return out, nil
}

func (s *MemoryStore) Position(_ context.Context, walletID string, key domain.PositionKey) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[walletID][key]
	if !ok {
		return nil, domain.ErrPositionNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Transactions(_ context.Context, walletID string, limit int) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.wallets[walletID]; !ok {
		return nil, domain.ErrWalletNotFound
	}
	all := s.transactions[walletID]
	n := len(all)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*domain.Transaction, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i].Clone())
	}
	return out, nil
}

func (s *MemoryStore) ResetWallet(_ context.Context, walletID string, balance decimal.Decimal, at time.Time) error {
	lock, err := s.lockFor(walletID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.wallets[walletID]
	w.Balance = balance
	w.UpdatedAt = at
	delete(s.positions, walletID)
	delete(s.transactions, walletID)
	return nil
}

// Atomically holds the wallet's mutex for the duration of fn and applies
// the staged writes under the store lock once fn succeeds.
func (s *MemoryStore) Atomically(ctx context.Context, walletID string, fn func(Tx) error) error {
	lock, err := s.lockFor(walletID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		s:        s,
		walletID: walletID,
		puts:     make(map[domain.PositionKey]*domain.Position),
		deletes:  make(map[domain.PositionKey]bool),
	}
	if err := fn(tx); err != nil {
		return err
	}
	s.commit(tx)
	return nil
}

func (s *MemoryStore) lockFor(walletID string) (*sync.Mutex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.walletLocks[walletID]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return l, nil
}

func (s *MemoryStore) commit(tx *memTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.wallet != nil {
		s.wallets[tx.walletID] = tx.wallet
	}
	book := s.positions[tx.walletID]
	if book == nil {
		book = make(map[domain.PositionKey]*domain.Position)
		s.positions[tx.walletID] = book
	}
	for key := range tx.deletes {
		delete(book, key)
	}
	for key, p := range tx.puts {
		book[key] = p
	}
	s.transactions[tx.walletID] = append(s.transactions[tx.walletID], tx.appended...)
}

// memTx stages writes on top of the committed state of one wallet.
type memTx struct {
	s        *MemoryStore
	walletID string
	wallet   *domain.Wallet
	puts     map[domain.PositionKey]*domain.Position
	deletes  map[domain.PositionKey]bool
	appended []*domain.Transaction
}

func (tx *memTx) Wallet() (*domain.Wallet, error) {
	if tx.wallet != nil {
		return tx.wallet.Clone(), nil
	}
	return tx.s.Wallet(context.Background(), tx.walletID)
}

func (tx *memTx) PutWallet(w *domain.Wallet) error {
	if w.ID != tx.walletID {
		return domain.ErrWalletNotFound
	}
	tx.wallet = w.Clone()
	return nil
}

func (tx *memTx) Position(key domain.PositionKey) (*domain.Position, error) {
	if p, ok := tx.puts[key]; ok {
		return p.Clone(), nil
	}
	if tx.deletes[key] {
		return nil, domain.ErrPositionNotFound
	}
	return tx.s.Position(context.Background(), tx.walletID, key)
}

func (tx *memTx) PutPosition(p *domain.Position) error {
	if p.WalletID != tx.walletID {
		return &domain.ValidationError{Message: "position belongs to another wallet"}
	}
	delete(tx.deletes, p.Key())
	tx.puts[p.Key()] = p.Clone()
	return nil
}

func (tx *memTx) DeletePosition(key domain.PositionKey) error {
	if _, err := tx.Position(key); err != nil {
		return err
	}
	delete(tx.puts, key)
	tx.deletes[key] = true
	return nil
}

func (tx *memTx) AppendTransaction(t *domain.Transaction) error {
	if t.WalletID != tx.walletID {
		return &domain.ValidationError{Message: "transaction belongs to another wallet"}
	}
	tx.appended = append(tx.appended, t.Clone())
	return nil
}

func sortPositions(ps []*domain.Position) {
	slices.SortFunc(ps, func(a, b *domain.Position) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key().String(), b.Key().String())
	})
}
