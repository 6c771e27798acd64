package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
)

var _ store.Repository = (*Store)(nil)

const walletColumns = `id, owner_id, balance, currency, created_at, updated_at`

const positionColumns = `id, wallet_id, symbol, name, asset_type, market, quantity, avg_cost, total_invested, notes, created_at, updated_at`

const transactionColumns = `id, wallet_id, type, symbol, asset_type, market, quantity, price, total_amount, fee, realized_pnl, notes, ts`

// CreateWallet inserts w. It returns domain.ErrWalletAlreadyExists if the
// owner already has a wallet.
func (s *Store) CreateWallet(ctx context.Context, w *domain.Wallet) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO wallets (`+walletColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner_id) DO NOTHING
	`), w.ID, w.OwnerID, w.Balance.String(), w.Currency, toNanos(w.CreatedAt), toNanos(w.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to insert wallet: %w", err)
	}
	if n == 0 {
		return domain.ErrWalletAlreadyExists
	}
	return nil
}

func (s *Store) WalletByOwner(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+walletColumns+` FROM wallets WHERE owner_id = ?`), ownerID)
	return scanWallet(row)
}

func (s *Store) Wallet(ctx context.Context, walletID string) (*domain.Wallet, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+walletColumns+` FROM wallets WHERE id = ?`), walletID)
	return scanWallet(row)
}

func (s *Store) Wallets(ctx context.Context) ([]*domain.Wallet, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+walletColumns+` FROM wallets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var out []*domain.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return out, nil
}

func (s *Store) Positions(ctx context.Context, walletID string) ([]*domain.Position, error) {
	if _, err := s.Wallet(ctx, walletID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE wallet_id = ?
		ORDER BY created_at, asset_type, symbol
	`), walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Position, 0)
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	return out, nil
}

func (s *Store) Position(ctx context.Context, walletID string, key domain.PositionKey) (*domain.Position, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE wallet_id = ? AND symbol = ? AND asset_type = ?
	`), walletID, key.Symbol, string(key.AssetType))
	return scanPosition(row)
}

func (s *Store) Transactions(ctx context.Context, walletID string, limit int) ([]*domain.Transaction, error) {
	if _, err := s.Wallet(ctx, walletID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE wallet_id = ?
		ORDER BY ts DESC, id DESC
	`
	args := []any{walletID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return out, nil
}

func (s *Store) ResetWallet(ctx context.Context, walletID string, balance decimal.Decimal, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`),
		balance.String(), toNanos(at), walletID)
	if err != nil {
		return fmt.Errorf("failed to reset wallet: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to reset wallet: %w", err)
	} else if n == 0 {
		return domain.ErrWalletNotFound
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM positions WHERE wallet_id = ?`), walletID); err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM transactions WHERE wallet_id = ?`), walletID); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Atomically runs fn inside a database transaction. On PostgreSQL the
// wallet row is locked with SELECT ... FOR UPDATE for the duration.
func (s *Store) Atomically(ctx context.Context, walletID string, fn func(store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = ?`
	if s.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	w, err := scanWallet(tx.QueryRowContext(ctx, s.rebind(query), walletID))
	if err != nil {
		return err
	}

	if err := fn(&sqlTx{s: s, ctx: ctx, tx: tx, wallet: w}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sqlTx applies writes directly to an open *sql.Tx.
type sqlTx struct {
	s      *Store
	ctx    context.Context
	tx     *sql.Tx
	wallet *domain.Wallet
}

func (t *sqlTx) Wallet() (*domain.Wallet, error) {
	return t.wallet.Clone(), nil
}

func (t *sqlTx) PutWallet(w *domain.Wallet) error {
	if w.ID != t.wallet.ID {
		return domain.ErrWalletNotFound
	}
	_, err := t.tx.ExecContext(t.ctx, t.s.rebind(`UPDATE wallets SET balance = ?, updated_at = ? WHERE id = ?`),
		w.Balance.String(), toNanos(w.UpdatedAt), w.ID)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	t.wallet = w.Clone()
	return nil
}

func (t *sqlTx) Position(key domain.PositionKey) (*domain.Position, error) {
	row := t.tx.QueryRowContext(t.ctx, t.s.rebind(`
		SELECT `+positionColumns+`
		FROM positions
		WHERE wallet_id = ? AND symbol = ? AND asset_type = ?
	`), t.wallet.ID, key.Symbol, string(key.AssetType))
	return scanPosition(row)
}

func (t *sqlTx) PutPosition(p *domain.Position) error {
	if p.WalletID != t.wallet.ID {
		return &domain.ValidationError{Message: "position belongs to another wallet"}
	}
	_, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
		INSERT INTO positions (`+positionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (wallet_id, symbol, asset_type) DO UPDATE SET
			name = excluded.name,
			market = excluded.market,
			quantity = excluded.quantity,
			avg_cost = excluded.avg_cost,
			total_invested = excluded.total_invested,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`),
		p.ID, p.WalletID, p.Symbol, p.Name, string(p.AssetType), string(p.Market),
		p.Quantity.String(), p.AvgCost.String(), p.TotalInvested.String(),
		p.Notes, toNanos(p.CreatedAt), toNanos(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

func (t *sqlTx) DeletePosition(key domain.PositionKey) error {
	res, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
		DELETE FROM positions WHERE wallet_id = ? AND symbol = ? AND asset_type = ?
	`), t.wallet.ID, key.Symbol, string(key.AssetType))
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	if n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

func (t *sqlTx) AppendTransaction(tr *domain.Transaction) error {
	if tr.WalletID != t.wallet.ID {
		return &domain.ValidationError{Message: "transaction belongs to another wallet"}
	}
	var pnl any
	if tr.RealizedPnL != nil {
		pnl = tr.RealizedPnL.String()
	}
	_, err := t.tx.ExecContext(t.ctx, t.s.rebind(`
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		tr.ID, tr.WalletID, string(tr.Type), tr.Symbol, string(tr.AssetType), string(tr.Market),
		tr.Quantity.String(), tr.Price.String(), tr.TotalAmount.String(), tr.Fee.String(),
		pnl, tr.Notes, toNanos(tr.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func scanWallet(row scanner) (*domain.Wallet, error) {
	var w domain.Wallet
	var created, updated int64
	err := row.Scan(&w.ID, &w.OwnerID, &w.Balance, &w.Currency, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	w.CreatedAt = fromNanos(created)
	w.UpdatedAt = fromNanos(updated)
	return &w, nil
}

func scanPosition(row scanner) (*domain.Position, error) {
	var p domain.Position
	var assetType, market string
	var created, updated int64
	err := row.Scan(
		&p.ID, &p.WalletID, &p.Symbol, &p.Name, &assetType, &market,
		&p.Quantity, &p.AvgCost, &p.TotalInvested, &p.Notes, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("failed to scan position: %w", err)
	}
	p.AssetType = domain.AssetType(assetType)
	p.Market = domain.Market(market)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

func scanTransaction(row scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var typ, assetType, market string
	var pnl decimal.NullDecimal
	var ts int64
	err := row.Scan(
		&t.ID, &t.WalletID, &typ, &t.Symbol, &assetType, &market,
		&t.Quantity, &t.Price, &t.TotalAmount, &t.Fee, &pnl, &t.Notes, &ts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	t.Type = domain.TransactionType(typ)
	t.AssetType = domain.AssetType(assetType)
	t.Market = domain.Market(market)
	if pnl.Valid {
		v := pnl.Decimal
		t.RealizedPnL = &v
	}
	t.Timestamp = fromNanos(ts)
	return &t, nil
}
