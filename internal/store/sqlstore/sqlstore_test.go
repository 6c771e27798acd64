package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/efreitasn/papertrade/internal/store"
	"github.com/efreitasn/papertrade/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "papertrade.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRepository(t *testing.T) {
	storetest.RunRepository(t, func(t *testing.T) store.Repository {
		return openSQLite(t)
	})
}

func TestSQLiteSnapshotRepository(t *testing.T) {
	storetest.RunSnapshotRepository(t, func(t *testing.T) store.SnapshotRepository {
		return openSQLite(t)
	})
}

// TestPostgresRepository runs against a live server when
// PAPERTRADE_TEST_POSTGRES_DSN is set.
func TestPostgresRepository(t *testing.T) {
	dsn := os.Getenv("PAPERTRADE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PAPERTRADE_TEST_POSTGRES_DSN not set")
	}
	storetest.RunRepository(t, func(t *testing.T) store.Repository {
		s, err := Open(context.Background(), Postgres, dsn)
		require.NoError(t, err)
		_, err = s.db.Exec(`TRUNCATE snapshots, transactions, positions, wallets`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpen_SchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "papertrade.db")
	s, err := Open(context.Background(), SQLite, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(context.Background(), SQLite, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpen_UnknownDialect(t *testing.T) {
	_, err := Open(context.Background(), Dialect("mysql"), "")
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: Postgres}
	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"))

	lite := &Store{dialect: SQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
