package engine

import (
	"context"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
)

// TransactionLog is the append-only record of executed orders.
type TransactionLog struct {
	repo store.Repository
}

// NewTransactionLog creates a TransactionLog over repo.
func NewTransactionLog(repo store.Repository) *TransactionLog {
	return &TransactionLog{repo: repo}
}

// Append records a new transaction inside tx.
func (l *TransactionLog) Append(tx store.Tx, p domain.TransactionParams) (*domain.Transaction, error) {
	t, err := domain.NewTransaction(p)
	if err != nil {
		return nil, err
	}
	if err := tx.AppendTransaction(t); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns up to limit transactions, newest first.
func (l *TransactionLog) List(ctx context.Context, walletID string, limit int) ([]*domain.Transaction, error) {
	return l.repo.Transactions(ctx, walletID, limit)
}
