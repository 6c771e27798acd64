package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
)

var _ store.SnapshotRepository = (*Store)(nil)

const snapshotColumns = `id, wallet_id, ts, total_value, available_balance, invested_value, profit_loss, profit_loss_percent`

func (s *Store) AddSnapshot(ctx context.Context, snap *domain.PortfolioSnapshot) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO snapshots (`+snapshotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		snap.ID, snap.WalletID, toNanos(snap.Timestamp),
		snap.TotalValue.String(), snap.AvailableBalance.String(), snap.InvestedValue.String(),
		snap.ProfitLoss.String(), snap.ProfitLossPercent.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (s *Store) Snapshots(ctx context.Context, walletID string, since time.Time) ([]*domain.PortfolioSnapshot, error) {
	var from int64
	if !since.IsZero() {
		from = toNanos(since)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE wallet_id = ? AND ts >= ?
		ORDER BY ts, id
	`), walletID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.PortfolioSnapshot, 0)
	for rows.Next() {
		var snap domain.PortfolioSnapshot
		var ts int64
		err := rows.Scan(
			&snap.ID, &snap.WalletID, &ts,
			&snap.TotalValue, &snap.AvailableBalance, &snap.InvestedValue,
			&snap.ProfitLoss, &snap.ProfitLossPercent,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snap.Timestamp = fromNanos(ts)
		out = append(out, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteSnapshots(ctx context.Context, walletID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM snapshots WHERE wallet_id = ?`), walletID); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}
