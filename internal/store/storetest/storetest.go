// Package storetest holds behavioural tests shared by every Repository and
// SnapshotRepository implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newWallet(t *testing.T, repo store.Repository, owner string) *domain.Wallet {
	t.Helper()
	w, err := domain.NewWallet(owner, d("100000"), "MAD", base)
	require.NoError(t, err)
	require.NoError(t, repo.CreateWallet(context.Background(), w))
	return w
}

func buyTx(t *testing.T, walletID, symbol string, qty, price string, at time.Time) *domain.Transaction {
	t.Helper()
	tx, err := domain.NewTransaction(domain.TransactionParams{
		WalletID:  walletID,
		Type:      domain.TransactionBuy,
		Symbol:    symbol,
		AssetType: domain.AssetTypeStock,
		Market:    domain.MarketBVC,
		Quantity:  d(qty),
		Price:     d(price),
		Fee:       d(qty).Mul(d(price)).Mul(d("0.005")),
		Timestamp: at,
	})
	require.NoError(t, err)
	return tx
}

// RunRepository exercises the Repository contract against fresh stores
// returned by newRepo.
func RunRepository(t *testing.T, newRepo func(t *testing.T) store.Repository) {
	ctx := context.Background()

	t.Run("CreateAndLookupWallet", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")

		got, err := repo.WalletByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, w.ID, got.ID)
		assert.True(t, got.Balance.Equal(d("100000")))
		assert.Equal(t, "MAD", got.Currency)

		got, err = repo.Wallet(ctx, w.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.OwnerID)

		_, err = repo.WalletByOwner(ctx, "bob")
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)
		_, err = repo.Wallet(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	})

	t.Run("DuplicateOwnerRejected", func(t *testing.T) {
		repo := newRepo(t)
		newWallet(t, repo, "alice")
		dup, err := domain.NewWallet("alice", d("5"), "MAD", base)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.CreateWallet(ctx, dup), domain.ErrWalletAlreadyExists)
	})

	t.Run("WalletsListed", func(t *testing.T) {
		repo := newRepo(t)
		newWallet(t, repo, "alice")
		newWallet(t, repo, "bob")
		ws, err := repo.Wallets(ctx)
		require.NoError(t, err)
		assert.Len(t, ws, 2)
	})

	t.Run("AtomicallyCommits", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")

		err := repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			cur, err := tx.Wallet()
			if err != nil {
				return err
			}
			cur.Balance = cur.Balance.Sub(d("50250"))
			if err := tx.PutWallet(cur); err != nil {
				return err
			}
			p, err := domain.NewPosition(w.ID, "ATW", domain.AssetTypeStock, domain.MarketBVC, d("100"), d("500"), base)
			if err != nil {
				return err
			}
			if err := tx.PutPosition(p); err != nil {
				return err
			}
			staged, err := tx.Position(p.Key())
			if err != nil {
				return err
			}
			if !staged.Quantity.Equal(d("100")) {
				return errors.New("staged position not visible inside the transaction")
			}
			return tx.AppendTransaction(buyTx(t, w.ID, "ATW", "100", "500", base))
		})
		require.NoError(t, err)

		got, err := repo.Wallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(d("49750")), "balance = %s", got.Balance)

		p, err := repo.Position(ctx, w.ID, domain.PositionKey{Symbol: "ATW", AssetType: domain.AssetTypeStock})
		require.NoError(t, err)
		assert.True(t, p.Quantity.Equal(d("100")))
		assert.True(t, p.AvgCost.Equal(d("500")))
		assert.True(t, p.TotalInvested.Equal(d("50000")))

		txs, err := repo.Transactions(ctx, w.ID, 0)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, domain.TransactionBuy, txs[0].Type)
		assert.True(t, txs[0].Fee.Equal(d("250")))
		assert.Nil(t, txs[0].RealizedPnL)
	})

	t.Run("AtomicallyRollsBackOnError", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")
		boom := errors.New("boom")

		err := repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			cur, err := tx.Wallet()
			if err != nil {
				return err
			}
			cur.Balance = d("1")
			if err := tx.PutWallet(cur); err != nil {
				return err
			}
			p, err := domain.NewPosition(w.ID, "IAM", domain.AssetTypeStock, domain.MarketBVC, d("1"), d("1"), base)
			if err != nil {
				return err
			}
			if err := tx.PutPosition(p); err != nil {
				return err
			}
			if err := tx.AppendTransaction(buyTx(t, w.ID, "IAM", "1", "1", base)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := repo.Wallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(d("100000")))
		ps, err := repo.Positions(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, ps)
		txs, err := repo.Transactions(ctx, w.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("DeletePosition", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")
		key := domain.PositionKey{Symbol: "BTC", AssetType: domain.AssetTypeCrypto}

		require.NoError(t, repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			p, err := domain.NewPosition(w.ID, "BTC", domain.AssetTypeCrypto, domain.MarketCrypto, d("0.5"), d("60000"), base)
			if err != nil {
				return err
			}
			return tx.PutPosition(p)
		}))
		require.NoError(t, repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			if err := tx.DeletePosition(key); err != nil {
				return err
			}
			_, err := tx.Position(key)
			if !errors.Is(err, domain.ErrPositionNotFound) {
				return errors.New("deleted position still visible inside the transaction")
			}
			return nil
		}))

		_, err := repo.Position(ctx, w.ID, key)
		assert.ErrorIs(t, err, domain.ErrPositionNotFound)

		err = repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			return tx.DeletePosition(key)
		})
		assert.ErrorIs(t, err, domain.ErrPositionNotFound)
	})

	t.Run("SellKeepsRealizedPnL", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")
		pnl := d("-250.125")
		sell, err := domain.NewTransaction(domain.TransactionParams{
			WalletID:    w.ID,
			Type:        domain.TransactionSell,
			Symbol:      "ATW",
			AssetType:   domain.AssetTypeStock,
			Market:      domain.MarketBVC,
			Quantity:    d("100"),
			Price:       d("500"),
			Fee:         d("250"),
			RealizedPnL: &pnl,
			Notes:       "closing",
			Timestamp:   base,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			return tx.AppendTransaction(sell)
		}))

		txs, err := repo.Transactions(ctx, w.ID, 10)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		require.NotNil(t, txs[0].RealizedPnL)
		assert.True(t, txs[0].RealizedPnL.Equal(pnl), "realized = %s", txs[0].RealizedPnL)
		assert.True(t, txs[0].TotalAmount.Equal(d("50000")))
		assert.Equal(t, "closing", txs[0].Notes)
		assert.Equal(t, sell.ID, txs[0].ID)
	})

	t.Run("TransactionsNewestFirstWithLimit", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")
		for i := 0; i < 5; i++ {
			tx := buyTx(t, w.ID, "ATW", "1", "10", base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, repo.Atomically(ctx, w.ID, func(s store.Tx) error {
				return s.AppendTransaction(tx)
			}))
		}
		txs, err := repo.Transactions(ctx, w.ID, 3)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.True(t, txs[0].Timestamp.Equal(base.Add(4*time.Minute)))
		assert.True(t, txs[2].Timestamp.Equal(base.Add(2*time.Minute)))
	})

	t.Run("ResetWallet", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")
		require.NoError(t, repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
			cur, err := tx.Wallet()
			if err != nil {
				return err
			}
			cur.Balance = d("10")
			if err := tx.PutWallet(cur); err != nil {
				return err
			}
			p, err := domain.NewPosition(w.ID, "ATW", domain.AssetTypeStock, domain.MarketBVC, d("1"), d("1"), base)
			if err != nil {
				return err
			}
			if err := tx.PutPosition(p); err != nil {
				return err
			}
			return tx.AppendTransaction(buyTx(t, w.ID, "ATW", "1", "1", base))
		}))

		require.NoError(t, repo.ResetWallet(ctx, w.ID, d("100000"), base.Add(time.Hour)))

		got, err := repo.Wallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(d("100000")))
		ps, err := repo.Positions(ctx, w.ID)
		require.NoError(t, err)
		assert.Empty(t, ps)
		txs, err := repo.Transactions(ctx, w.ID, 0)
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("ConcurrentAtomicallySerializes", func(t *testing.T) {
		repo := newRepo(t)
		w := newWallet(t, repo, "alice")

		const workers = 20
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := repo.Atomically(ctx, w.ID, func(tx store.Tx) error {
					cur, err := tx.Wallet()
					if err != nil {
						return err
					}
					cur.Balance = cur.Balance.Sub(d("100"))
					return tx.PutWallet(cur)
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := repo.Wallet(ctx, w.ID)
		require.NoError(t, err)
		assert.True(t, got.Balance.Equal(d("98000")), "balance = %s", got.Balance)
	})
}

// RunSnapshotRepository exercises the SnapshotRepository contract.
func RunSnapshotRepository(t *testing.T, newRepo func(t *testing.T) store.SnapshotRepository) {
	ctx := context.Background()

	snap := func(walletID string, at time.Time, total string) *domain.PortfolioSnapshot {
		s, err := domain.NewSnapshot(walletID, at, d(total), d("50000"), d("50000"), d(total).Sub(d("100000")))
		require.NoError(t, err)
		return s
	}

	t.Run("AscendingSince", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base.Add(2*time.Hour), "100200")))
		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base, "100000")))
		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base.Add(time.Hour), "100100")))
		require.NoError(t, repo.AddSnapshot(ctx, snap("w2", base.Add(time.Hour), "1")))

		all, err := repo.Snapshots(ctx, "w1", time.Time{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].Timestamp.Equal(base))
		assert.True(t, all[2].Timestamp.Equal(base.Add(2*time.Hour)))
		assert.True(t, all[1].TotalValue.Equal(d("100100")))

		recent, err := repo.Snapshots(ctx, "w1", base.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.True(t, recent[0].Timestamp.Equal(base.Add(time.Hour)))
	})

	t.Run("SameInstantKept", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base, "1")))
		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base, "2")))
		all, err := repo.Snapshots(ctx, "w1", base)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})

	t.Run("EmptyWallet", func(t *testing.T) {
		repo := newRepo(t)
		all, err := repo.Snapshots(ctx, "nobody", time.Time{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base, "1")))
		require.NoError(t, repo.AddSnapshot(ctx, snap("w2", base, "1")))
		require.NoError(t, repo.DeleteSnapshots(ctx, "w1"))

		all, err := repo.Snapshots(ctx, "w1", time.Time{})
		require.NoError(t, err)
		assert.Empty(t, all)
		other, err := repo.Snapshots(ctx, "w2", time.Time{})
		require.NoError(t, err)
		assert.Len(t, other, 1)

		require.NoError(t, repo.AddSnapshot(ctx, snap("w1", base.Add(time.Minute), "3")))
		again, err := repo.Snapshots(ctx, "w1", time.Time{})
		require.NoError(t, err)
		assert.Len(t, again, 1)
	})
}
