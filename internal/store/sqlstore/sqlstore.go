// Package sqlstore implements the wallet and snapshot repositories on top
// of database/sql, for PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // PostgreSQL driver.
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Dialect selects the SQL flavour spoken by the underlying database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store is a Repository and SnapshotRepository backed by a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the database, verifies the connection and creates the
// schema if it does not exist yet.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dialect != Postgres && dialect != SQLite {
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if dialect == SQLite {
		// A single connection keeps ":memory:" databases shared and
		// serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	num := "NUMERIC"
	if s.dialect == SQLite {
		num = "TEXT"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL UNIQUE,
			balance    ` + num + ` NOT NULL,
			currency   TEXT NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id             TEXT PRIMARY KEY,
			wallet_id      TEXT NOT NULL REFERENCES wallets(id),
			symbol         TEXT NOT NULL,
			name           TEXT NOT NULL,
			asset_type     TEXT NOT NULL,
			market         TEXT NOT NULL,
			quantity       ` + num + ` NOT NULL,
			avg_cost       ` + num + ` NOT NULL,
			total_invested ` + num + ` NOT NULL,
			notes          TEXT NOT NULL,
			created_at     BIGINT NOT NULL,
			updated_at     BIGINT NOT NULL,
			UNIQUE (wallet_id, symbol, asset_type)
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id           TEXT PRIMARY KEY,
			wallet_id    TEXT NOT NULL REFERENCES wallets(id),
			type         TEXT NOT NULL,
			symbol       TEXT NOT NULL,
			asset_type   TEXT NOT NULL,
			market       TEXT NOT NULL,
			quantity     ` + num + ` NOT NULL,
			price        ` + num + ` NOT NULL,
			total_amount ` + num + ` NOT NULL,
			fee          ` + num + ` NOT NULL,
			realized_pnl ` + num + `,
			notes        TEXT NOT NULL,
			ts           BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS transactions_wallet_ts ON transactions (wallet_id, ts)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id                  TEXT PRIMARY KEY,
			wallet_id           TEXT NOT NULL,
			ts                  BIGINT NOT NULL,
			total_value         ` + num + ` NOT NULL,
			available_balance   ` + num + ` NOT NULL,
			invested_value      ` + num + ` NOT NULL,
			profit_loss         ` + num + ` NOT NULL,
			profit_loss_percent ` + num + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS snapshots_wallet_ts ON snapshots (wallet_id, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into the dialect's positional form.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

type scanner interface {
	Scan(dest ...any) error
}
