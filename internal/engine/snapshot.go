package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
)

// SnapshotRecorder stores point-in-time valuations of wallets. Snapshots
// are best-effort: failures are logged and never reach the trade path.
type SnapshotRecorder struct {
	repo      store.Repository
	snapshots store.SnapshotRepository
	locks     *WalletLocks
	valuator  *Valuator
	interval  time.Duration // 0 disables scheduled snapshots
	queue     chan string   // wallet IDs awaiting a post-trade snapshot
	logger    *slog.Logger
	now       func() time.Time

	worker sync.WaitGroup
}

var _ SnapshotTrigger = (*SnapshotRecorder)(nil)

// NewSnapshotRecorder creates a recorder with room for queueSize pending
// triggers. locks must be the table the Executor settles orders under.
func NewSnapshotRecorder(
	repo store.Repository,
	snapshots store.SnapshotRepository,
	locks *WalletLocks,
	valuator *Valuator,
	interval time.Duration,
	queueSize int,
	logger *slog.Logger,
) *SnapshotRecorder {
	if queueSize < 1 {
		queueSize = 1
	}
	return &SnapshotRecorder{
		repo:      repo,
		snapshots: snapshots,
		locks:     locks,
		valuator:  valuator,
		interval:  interval,
		queue:     make(chan string, queueSize),
		logger:    logger,
		now:       time.Now,
	}
}

// Record values the wallet now and stores the result. Storage failures
// wrap domain.ErrSnapshotWriteFailed. The wallet's lock is held
// throughout, so a snapshot never straddles a settlement or a reset.
func (r *SnapshotRecorder) Record(ctx context.Context, walletID string) (*domain.PortfolioSnapshot, error) {
	lock := r.locks.GetOrCreate(walletID)
	lock.Lock()
	defer lock.Unlock()

	w, err := r.repo.Wallet(ctx, walletID)
	if err != nil {
		return nil, err
	}
	positions, err := r.repo.Positions(ctx, walletID)
	if err != nil {
		return nil, err
	}
	stats := r.valuator.Valuate(ctx, w, positions)

	snap, err := domain.NewSnapshot(walletID, r.now(), stats.TotalValue, stats.Balance, stats.TotalInvested, stats.TotalProfitLoss)
	if err != nil {
		return nil, err
	}
	if err := r.snapshots.AddSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSnapshotWriteFailed, err)
	}
	return snap, nil
}

// History returns the wallet's snapshots within period, oldest first.
func (r *SnapshotRecorder) History(ctx context.Context, walletID string, period domain.HistoryPeriod) ([]*domain.PortfolioSnapshot, error) {
	return r.snapshots.Snapshots(ctx, walletID, period.Since(r.now()))
}

// Clear deletes every snapshot of the wallet.
func (r *SnapshotRecorder) Clear(ctx context.Context, walletID string) error {
	return r.snapshots.DeleteSnapshots(ctx, walletID)
}

// Trigger queues a snapshot of the wallet without blocking. When the
// queue is full the trigger is dropped.
func (r *SnapshotRecorder) Trigger(walletID string) {
	select {
	case r.queue <- walletID:
	default:
		r.logger.Warn("snapshot queue full, dropping trigger", "wallet_id", walletID)
	}
}

// Start launches a background goroutine that records queued snapshots and,
// when an interval is configured, snapshots every wallet on each tick. It
// stops when ctx is cancelled; call Flush afterwards to record what is
// still queued.
func (r *SnapshotRecorder) Start(ctx context.Context) {
	r.worker.Add(1)
	go func() {
		defer r.worker.Done()

		var tick <-chan time.Time
		if r.interval > 0 {
			ticker := time.NewTicker(r.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-ctx.Done():
				return
			case walletID := <-r.queue:
				// A queued snapshot in progress finishes even if ctx is
				// cancelled meanwhile.
				r.recordLogged(context.WithoutCancel(ctx), walletID)
			case <-tick:
				r.recordAll(ctx)
			}
		}
	}()
}

// Flush waits for the worker started by Start to exit, then records every
// trigger still queued. It returns early when ctx is done. Call it after
// cancelling the worker's context and before closing the stores; processes
// that never call Start use it to drain their own triggers.
func (r *SnapshotRecorder) Flush(ctx context.Context) {
	stopped := make(chan struct{})
	go func() {
		r.worker.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		r.logger.Warn("snapshot flush: worker still running", "error", ctx.Err())
		return
	}

	for {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("snapshot flush interrupted", "pending", len(r.queue), "error", err)
			return
		}
		select {
		case walletID := <-r.queue:
			r.recordLogged(ctx, walletID)
		default:
			return
		}
	}
}

// recordAll snapshots every wallet once.
func (r *SnapshotRecorder) recordAll(ctx context.Context) {
	wallets, err := r.repo.Wallets(ctx)
	if err != nil {
		r.logger.Warn("scheduled snapshot: listing wallets failed", "error", err)
		return
	}
	for _, w := range wallets {
		if ctx.Err() != nil {
			return
		}
		r.recordLogged(ctx, w.ID)
	}
}

func (r *SnapshotRecorder) recordLogged(ctx context.Context, walletID string) {
	if _, err := r.Record(ctx, walletID); err != nil {
		r.logger.Warn("snapshot failed", "wallet_id", walletID, "error", err)
	}
}
