// Package app wires configuration into the stores, oracle, engine and
// service shared by the server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/efreitasn/papertrade/internal/config"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/oracle"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/efreitasn/papertrade/internal/store/sqlstore"
	"github.com/efreitasn/papertrade/internal/store/walstore"
)

// App holds the wired components.
type App struct {
	Service  *service.PortfolioService
	Recorder *engine.SnapshotRecorder

	closers []io.Closer
	logger  *slog.Logger
}

// New builds the application described by cfg. The caller must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	repo, snaps, err := a.openStores(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	var prices oracle.Oracle = oracle.NewStaticOracle()
	if cfg.OracleURL != "" {
		prices = oracle.NewHTTPOracle(cfg.OracleURL, cfg.OracleTimeout)
		if cfg.OracleCacheTTL > 0 {
			prices = oracle.NewCachedOracle(prices, cfg.OracleCacheTTL)
		}
	}

	ledger := engine.NewWalletLedger(repo, cfg.StartingBalance, cfg.Currency)
	book := engine.NewPositionBook(repo)
	txlog := engine.NewTransactionLog(repo)
	valuator := engine.NewValuator(prices, cfg.OracleTimeout, logger)
	locks := engine.NewWalletLocks()
	a.Recorder = engine.NewSnapshotRecorder(repo, snaps, locks, valuator, cfg.SnapshotInterval, cfg.SnapshotQueueSize, logger)
	exec := engine.NewExecutor(repo, locks, ledger, book, txlog, cfg.FeeRate, a.Recorder, logger)
	a.Service = service.NewPortfolioService(ledger, book, txlog, exec, valuator, a.Recorder, cfg.TransactionLimit, logger)

	logger.Info("app initialized",
		slog.String("storage_driver", cfg.StorageDriver),
		slog.String("snapshot_store", snapshotStoreName(cfg)),
		slog.Bool("oracle_remote", cfg.OracleURL != ""),
		slog.String("fee_rate", cfg.FeeRate.String()),
	)
	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (store.Repository, store.SnapshotRepository, error) {
	var (
		repo  store.Repository
		snaps store.SnapshotRepository
	)
	switch cfg.StorageDriver {
	case config.StoragePostgres, config.StorageSQLite:
		s, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.StorageDriver), cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s store: %w", cfg.StorageDriver, err)
		}
		a.closers = append(a.closers, s)
		repo, snaps = s, s
	default:
		repo, snaps = store.NewMemoryStore(), store.NewMemorySnapshotStore()
	}

	if cfg.SnapshotStore == config.SnapshotStoreWAL {
		w, err := walstore.Open(walstore.DefaultConfig(cfg.SnapshotWALDir))
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot wal: %w", err)
		}
		a.closers = append(a.closers, w)
		snaps = w
	}
	return repo, snaps, nil
}

// Close releases the stores in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func snapshotStoreName(cfg *config.Config) string {
	if cfg.SnapshotStore != "" {
		return cfg.SnapshotStore
	}
	return cfg.StorageDriver
}
