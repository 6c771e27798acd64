package engine

import (
	"context"
	"errors"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
)

// WalletLedger owns wallet balances. Debit and Credit only run inside a
// store transaction opened by the Executor.
type WalletLedger struct {
	repo            store.Repository
	startingBalance decimal.Decimal
	currency        string
	now             func() time.Time
}

// NewWalletLedger creates a ledger that funds new wallets with
// startingBalance in currency.
func NewWalletLedger(repo store.Repository, startingBalance decimal.Decimal, currency string) *WalletLedger {
	return &WalletLedger{
		repo:            repo,
		startingBalance: startingBalance,
		currency:        currency,
		now:             time.Now,
	}
}

// StartingBalance returns the balance given to new and reset wallets.
func (l *WalletLedger) StartingBalance() decimal.Decimal {
	return l.startingBalance
}

// Currency returns the currency of new wallets.
func (l *WalletLedger) Currency() string {
	return l.currency
}

// GetOrCreate returns the owner's wallet, creating it with the starting
// balance on first access.
func (l *WalletLedger) GetOrCreate(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	w, err := l.repo.WalletByOwner(ctx, ownerID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrWalletNotFound) {
		return nil, err
	}

	w, err = domain.NewWallet(ownerID, l.startingBalance, l.currency, l.now())
	if err != nil {
		return nil, err
	}
	err = l.repo.CreateWallet(ctx, w)
	if errors.Is(err, domain.ErrWalletAlreadyExists) {
		// Lost a creation race; the other caller's wallet wins.
		return l.repo.WalletByOwner(ctx, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Debit reduces the balance of the transaction's wallet by amount. It
// returns an *domain.InsufficientFundsError when amount exceeds the
// balance.
func (l *WalletLedger) Debit(tx store.Tx, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	w, err := tx.Wallet()
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(w.Balance) {
		return nil, &domain.InsufficientFundsError{
			Required:  amount,
			Available: w.Balance,
			Currency:  w.Currency,
		}
	}
	w.Balance = w.Balance.Sub(amount)
	w.UpdatedAt = l.now()
	if err := tx.PutWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Credit increases the balance of the transaction's wallet by amount.
func (l *WalletLedger) Credit(tx store.Tx, amount decimal.Decimal) (*domain.Wallet, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	w, err := tx.Wallet()
	if err != nil {
		return nil, err
	}
	w.Balance = w.Balance.Add(amount)
	w.UpdatedAt = l.now()
	if err := tx.PutWallet(w); err != nil {
		return nil, err
	}
	return w, nil
}

// Reset restores the starting balance and clears the wallet's positions
// and transactions.
func (l *WalletLedger) Reset(ctx context.Context, walletID string) error {
	return l.repo.ResetWallet(ctx, walletID, l.startingBalance, l.now())
}
