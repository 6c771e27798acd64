package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/store"
	"github.com/shopspring/decimal"
)

// OrderState is the lifecycle state of an order inside the Executor.
type OrderState string

const (
	OrderValidated OrderState = "validated"
	OrderPriced    OrderState = "priced"
	OrderSettled   OrderState = "settled"
	OrderRejected  OrderState = "rejected"
)

var orderTransitions = map[OrderState][]OrderState{
	"":             {OrderValidated, OrderRejected},
	OrderValidated: {OrderPriced, OrderRejected},
	OrderPriced:    {OrderSettled, OrderRejected},
}

// Terminal reports whether no transition leaves s.
func (s OrderState) Terminal() bool {
	return s == OrderSettled || s == OrderRejected
}

// CanTransition reports whether an order in state s may move to next.
func (s OrderState) CanTransition(next OrderState) bool {
	for _, to := range orderTransitions[s] {
		if to == next {
			return true
		}
	}
	return false
}

// SnapshotTrigger is notified after every settled order.
type SnapshotTrigger interface {
	Trigger(walletID string)
}

// BuyOrder is a request to buy Quantity of Symbol at Price.
type BuyOrder struct {
	WalletID  string
	Symbol    string
	AssetType domain.AssetType
	Market    domain.Market
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notes     string
}

// SellOrder is a request to sell Quantity of an open position at Price.
type SellOrder struct {
	WalletID  string
	Symbol    string
	AssetType domain.AssetType
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notes     string
}

// orderRun tracks one order through its states.
type orderRun struct {
	side     domain.TransactionType
	walletID string
	symbol   string
	state    OrderState

	totalAmount decimal.Decimal
	fee         decimal.Decimal
}

func (o *orderRun) advance(next OrderState) {
	if !o.state.CanTransition(next) {
		panic(fmt.Sprintf("engine: invalid order transition %q -> %q", o.state, next))
	}
	o.state = next
}

// Executor settles buy and sell orders. Each order runs under its
// wallet's lock and commits its balance, position and log writes in one
// store transaction.
type Executor struct {
	repo     store.Repository
	locks    *WalletLocks
	ledger   *WalletLedger
	book     *PositionBook
	log      *TransactionLog
	feeRate  decimal.Decimal
	snapshot SnapshotTrigger
	logger   *slog.Logger
	now      func() time.Time
}

// NewExecutor creates an Executor. snapshot may be nil.
func NewExecutor(
	repo store.Repository,
	locks *WalletLocks,
	ledger *WalletLedger,
	book *PositionBook,
	txlog *TransactionLog,
	feeRate decimal.Decimal,
	snapshot SnapshotTrigger,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		repo:     repo,
		locks:    locks,
		ledger:   ledger,
		book:     book,
		log:      txlog,
		feeRate:  feeRate,
		snapshot: snapshot,
		logger:   logger,
		now:      time.Now,
	}
}

// FeeRate returns the fee applied to the notional of every order.
func (e *Executor) FeeRate() decimal.Decimal {
	return e.feeRate
}

// Exclusive runs fn holding the wallet's lock. No order settles and no
// snapshot is recorded for the wallet while fn runs.
func (e *Executor) Exclusive(walletID string, fn func() error) error {
	lock := e.locks.GetOrCreate(walletID)
	lock.Lock()
	defer lock.Unlock()
	return fn()
}

// ExecuteBuy debits quantity × price plus fee, adds to the position and
// records a BUY transaction.
func (e *Executor) ExecuteBuy(ctx context.Context, o BuyOrder) (*domain.Transaction, error) {
	run := &orderRun{side: domain.TransactionBuy, walletID: o.WalletID, symbol: o.Symbol}

	if err := validateOrder(o.Symbol, o.AssetType, o.Quantity, o.Price); err != nil {
		return nil, e.reject(run, err)
	}
	if !o.Market.Valid() {
		return nil, e.reject(run, &domain.ValidationError{Message: "invalid market"})
	}
	run.advance(OrderValidated)

	run.totalAmount = o.Quantity.Mul(o.Price)
	run.fee = run.totalAmount.Mul(e.feeRate)
	totalCost := run.totalAmount.Add(run.fee)
	run.advance(OrderPriced)

	key := domain.PositionKey{Symbol: o.Symbol, AssetType: o.AssetType}
	lock := e.locks.GetOrCreate(o.WalletID)
	lock.Lock()
	var settled *domain.Transaction
	err := e.repo.Atomically(ctx, o.WalletID, func(tx store.Tx) error {
		if _, err := e.ledger.Debit(tx, totalCost); err != nil {
			return err
		}
		if _, err := e.book.UpsertOnBuy(tx, o.WalletID, key, o.Market, o.Quantity, o.Price); err != nil {
			return err
		}
		t, err := e.log.Append(tx, domain.TransactionParams{
			WalletID:  o.WalletID,
			Type:      domain.TransactionBuy,
			Symbol:    o.Symbol,
			AssetType: o.AssetType,
			Market:    o.Market,
			Quantity:  o.Quantity,
			Price:     o.Price,
			Fee:       run.fee,
			Notes:     o.Notes,
			Timestamp: e.now(),
		})
		settled = t
		return err
	})
	lock.Unlock()
	if err != nil {
		return nil, e.reject(run, err)
	}

	e.settle(run)
	return settled, nil
}

// ExecuteSell removes quantity from the position, credits the proceeds
// net of fee and records a SELL transaction carrying the realized P&L.
func (e *Executor) ExecuteSell(ctx context.Context, o SellOrder) (*domain.Transaction, error) {
	run := &orderRun{side: domain.TransactionSell, walletID: o.WalletID, symbol: o.Symbol}

	if err := validateOrder(o.Symbol, o.AssetType, o.Quantity, o.Price); err != nil {
		return nil, e.reject(run, err)
	}
	run.advance(OrderValidated)

	key := domain.PositionKey{Symbol: o.Symbol, AssetType: o.AssetType}
	lock := e.locks.GetOrCreate(o.WalletID)
	lock.Lock()
	var settled *domain.Transaction
	err := e.repo.Atomically(ctx, o.WalletID, func(tx store.Tx) error {
		pos, err := tx.Position(key)
		if err != nil {
			return err
		}
		if o.Quantity.GreaterThan(pos.Quantity) {
			return &domain.InsufficientQuantityError{
				Symbol:    o.Symbol,
				Requested: o.Quantity,
				Available: pos.Quantity,
			}
		}

		run.totalAmount = o.Quantity.Mul(o.Price)
		run.fee = run.totalAmount.Mul(e.feeRate)
		proceeds := run.totalAmount.Sub(run.fee)
		run.advance(OrderPriced)

		_, costBasis, err := e.book.ReduceOnSell(tx, key, o.Quantity)
		if err != nil {
			return err
		}
		if _, err := e.ledger.Credit(tx, proceeds); err != nil {
			return err
		}
		realized := run.totalAmount.Sub(costBasis).Sub(run.fee)
		t, err := e.log.Append(tx, domain.TransactionParams{
			WalletID:    o.WalletID,
			Type:        domain.TransactionSell,
			Symbol:      o.Symbol,
			AssetType:   o.AssetType,
			Market:      pos.Market,
			Quantity:    o.Quantity,
			Price:       o.Price,
			Fee:         run.fee,
			RealizedPnL: &realized,
			Notes:       o.Notes,
			Timestamp:   e.now(),
		})
		settled = t
		return err
	})
	lock.Unlock()
	if err != nil {
		return nil, e.reject(run, err)
	}

	e.settle(run)
	return settled, nil
}

func (e *Executor) settle(run *orderRun) {
	run.advance(OrderSettled)
	e.logger.Debug("order settled",
		"wallet_id", run.walletID,
		"side", run.side,
		"symbol", run.symbol,
		"total_amount", run.totalAmount.String(),
		"fee", run.fee.String(),
	)
	if e.snapshot != nil {
		e.snapshot.Trigger(run.walletID)
	}
}

func (e *Executor) reject(run *orderRun, err error) error {
	from := run.state
	run.advance(OrderRejected)
	e.logger.Info("order rejected",
		"wallet_id", run.walletID,
		"side", run.side,
		"symbol", run.symbol,
		"from_state", from,
		"error", err,
	)
	return err
}

func validateOrder(symbol string, assetType domain.AssetType, quantity, price decimal.Decimal) error {
	if symbol == "" {
		return &domain.ValidationError{Message: "symbol is required"}
	}
	if !assetType.Valid() {
		return &domain.ValidationError{Message: "invalid asset_type"}
	}
	if !quantity.IsPositive() {
		return &domain.ValidationError{Message: "quantity must be > 0"}
	}
	if !price.IsPositive() {
		return &domain.ValidationError{Message: "price must be > 0"}
	}
	return nil
}
