// Package store defines the persistence boundary of the accounting core and
// its in-memory implementations.
package store

import (
	"context"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// Repository persists wallets, positions and transactions.
//
// Lookups return domain.ErrWalletNotFound or domain.ErrPositionNotFound
// when nothing matches. Returned values are copies; mutating them has no
// effect on stored state.
type Repository interface {
	CreateWallet(ctx context.Context, w *domain.Wallet) error
	WalletByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error)
	Wallet(ctx context.Context, walletID string) (*domain.Wallet, error)
	Wallets(ctx context.Context) ([]*domain.Wallet, error)

	Positions(ctx context.Context, walletID string) ([]*domain.Position, error)
	Position(ctx context.Context, walletID string, key domain.PositionKey) (*domain.Position, error)

	// Transactions returns up to limit transactions, newest first. A limit
	// <= 0 returns all of them.
	Transactions(ctx context.Context, walletID string, limit int) ([]*domain.Transaction, error)

	// ResetWallet deletes every position and transaction of the wallet and
	// sets its balance.
	ResetWallet(ctx context.Context, walletID string, balance decimal.Decimal, at time.Time) error

	// Atomically runs fn against a staged view of one wallet. Writes made
	// through the Tx become visible together when fn returns nil and are
	// discarded otherwise.
	Atomically(ctx context.Context, walletID string, fn func(Tx) error) error
}

// Tx is the write set of a single Atomically call.
type Tx interface {
	Wallet() (*domain.Wallet, error)
	PutWallet(w *domain.Wallet) error
	Position(key domain.PositionKey) (*domain.Position, error)
	PutPosition(p *domain.Position) error
	DeletePosition(key domain.PositionKey) error
	AppendTransaction(t *domain.Transaction) error
}

// SnapshotRepository stores portfolio snapshots.
type SnapshotRepository interface {
	AddSnapshot(ctx context.Context, s *domain.PortfolioSnapshot) error
	// Snapshots returns the wallet's snapshots taken at or after since,
	// oldest first.
	Snapshots(ctx context.Context, walletID string, since time.Time) ([]*domain.PortfolioSnapshot, error)
	DeleteSnapshots(ctx context.Context, walletID string) error
}
