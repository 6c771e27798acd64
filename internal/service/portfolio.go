package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/simulator"
	"github.com/shopspring/decimal"
)

var (
	ownerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	symbolRegex  = regexp.MustCompile(`^[A-Z0-9.\-]{1,15}$`)
)

// BuyRequest represents the input for a buy order.
type BuyRequest struct {
	OwnerID   string
	Symbol    string
	AssetType string
	Market    string // optional; defaults by asset type
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notes     string
}

// SellRequest represents the input for a sell order.
type SellRequest struct {
	OwnerID   string
	Symbol    string
	AssetType string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Notes     string
}

// WalletView is a wallet with its valued positions and recent
// transactions.
type WalletView struct {
	Wallet       *domain.Wallet
	Stats        engine.PortfolioStats
	Transactions []*domain.Transaction
}

// PortfolioService exposes the accounting engine to transports. Callers
// address wallets by owner ID; wallets are created on first access.
type PortfolioService struct {
	ledger   *engine.WalletLedger
	book     *engine.PositionBook
	txlog    *engine.TransactionLog
	exec     *engine.Executor
	valuator *engine.Valuator
	recorder *engine.SnapshotRecorder
	txLimit  int
	logger   *slog.Logger
}

// NewPortfolioService creates a new PortfolioService. GetWallet returns at
// most txLimit transactions.
func NewPortfolioService(
	ledger *engine.WalletLedger,
	book *engine.PositionBook,
	txlog *engine.TransactionLog,
	exec *engine.Executor,
	valuator *engine.Valuator,
	recorder *engine.SnapshotRecorder,
	txLimit int,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		ledger:   ledger,
		book:     book,
		txlog:    txlog,
		exec:     exec,
		valuator: valuator,
		recorder: recorder,
		txLimit:  txLimit,
		logger:   logger,
	}
}

// GetWallet returns the owner's wallet valued at current prices.
func (s *PortfolioService) GetWallet(ctx context.Context, ownerID string) (*WalletView, error) {
	w, err := s.wallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	positions, err := s.book.List(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	txs, err := s.txlog.List(ctx, w.ID, s.txLimit)
	if err != nil {
		return nil, err
	}
	return &WalletView{
		Wallet:       w,
		Stats:        s.valuator.Valuate(ctx, w, positions),
		Transactions: txs,
	}, nil
}

// Buy validates the request and executes a buy against the owner's wallet.
func (s *PortfolioService) Buy(ctx context.Context, req BuyRequest) (*domain.Transaction, error) {
	symbol, assetType, err := parseInstrument(req.Symbol, req.AssetType)
	if err != nil {
		return nil, err
	}
	market := domain.DefaultMarket(assetType)
	if req.Market != "" {
		m, ok := domain.ParseMarket(req.Market)
		if !ok {
			return nil, &domain.ValidationError{Message: "market must be one of BVC, CRYPTO, OTHER"}
		}
		market = m
	}
	if err := validateAmounts(req.Quantity, req.Price); err != nil {
		return nil, err
	}

	w, err := s.wallet(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	return s.exec.ExecuteBuy(ctx, engine.BuyOrder{
		WalletID:  w.ID,
		Symbol:    symbol,
		AssetType: assetType,
		Market:    market,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Notes:     strings.TrimSpace(req.Notes),
	})
}

// Sell validates the request and executes a sell against the owner's
// wallet.
func (s *PortfolioService) Sell(ctx context.Context, req SellRequest) (*domain.Transaction, error) {
	symbol, assetType, err := parseInstrument(req.Symbol, req.AssetType)
	if err != nil {
		return nil, err
	}
	if err := validateAmounts(req.Quantity, req.Price); err != nil {
		return nil, err
	}

	w, err := s.wallet(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}
	return s.exec.ExecuteSell(ctx, engine.SellOrder{
		WalletID:  w.ID,
		Symbol:    symbol,
		AssetType: assetType,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Notes:     strings.TrimSpace(req.Notes),
	})
}

// GetHistory returns the owner's snapshots for period, oldest first. An
// empty period means one month.
func (s *PortfolioService) GetHistory(ctx context.Context, ownerID, period string) ([]*domain.PortfolioSnapshot, error) {
	p, err := domain.ParseHistoryPeriod(strings.ToUpper(strings.TrimSpace(period)))
	if err != nil {
		return nil, err
	}
	w, err := s.wallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, w.ID, p)
}

// RecordSnapshot stores a snapshot of the owner's wallet now.
func (s *PortfolioService) RecordSnapshot(ctx context.Context, ownerID string) (*domain.PortfolioSnapshot, error) {
	w, err := s.wallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.recorder.Record(ctx, w.ID)
}

// ResetWallet restores the starting balance and deletes the owner's
// positions, transactions and snapshots.
func (s *PortfolioService) ResetWallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	w, err := s.wallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	err = s.exec.Exclusive(w.ID, func() error {
		if err := s.ledger.Reset(ctx, w.ID); err != nil {
			return err
		}
		if err := s.recorder.Clear(ctx, w.ID); err != nil {
			s.logger.Warn("reset: clearing snapshots failed", "wallet_id", w.ID, "error", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("wallet reset", "wallet_id", w.ID, "owner_id", ownerID)
	return s.ledger.GetOrCreate(ctx, ownerID)
}

// Simulate projects an investment plan.
func (s *PortfolioService) Simulate(in simulator.Input) (simulator.Result, error) {
	return simulator.Simulate(in)
}

// FeeRate returns the configured fee rate.
func (s *PortfolioService) FeeRate() decimal.Decimal {
	return s.exec.FeeRate()
}

// Currency returns the currency wallets are opened in.
func (s *PortfolioService) Currency() string {
	return s.ledger.Currency()
}

func (s *PortfolioService) wallet(ctx context.Context, ownerID string) (*domain.Wallet, error) {
	if !ownerIDRegex.MatchString(ownerID) {
		return nil, &domain.ValidationError{Message: "owner_id must match ^[a-zA-Z0-9_-]{1,64}$"}
	}
	return s.ledger.GetOrCreate(ctx, ownerID)
}

func parseInstrument(symbol, assetType string) (string, domain.AssetType, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolRegex.MatchString(sym) {
		return "", "", &domain.ValidationError{
			Message: fmt.Sprintf("symbol must match ^[A-Z0-9.-]{1,15}$, got %q", symbol),
		}
	}
	at, ok := domain.ParseAssetType(assetType)
	if !ok {
		return "", "", &domain.ValidationError{Message: "asset_type must be one of STOCK, CRYPTO, OPCVM, INDEX"}
	}
	return sym, at, nil
}

func validateAmounts(quantity, price decimal.Decimal) error {
	if !quantity.IsPositive() {
		return &domain.ValidationError{Message: "quantity must be > 0"}
	}
	if !price.IsPositive() {
		return &domain.ValidationError{Message: "price must be > 0"}
	}
	return nil
}
