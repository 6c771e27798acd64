package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/efreitasn/papertrade/internal/engine"
	"github.com/efreitasn/papertrade/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// WalletHandler handles HTTP requests for wallet endpoints.
type WalletHandler struct {
	svc *service.PortfolioService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc *service.PortfolioService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// --- Request types ---

type tradeRequest struct {
	Symbol    string          `json:"symbol"`
	AssetType string          `json:"asset_type"`
	Market    string          `json:"market,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
}

// --- Response types ---

type walletResponse struct {
	WalletID  string  `json:"wallet_id"`
	OwnerID   string  `json:"owner_id"`
	Balance   float64 `json:"balance"`
	Currency  string  `json:"currency"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type walletDetailResponse struct {
	walletResponse
	Stats        statsResponse         `json:"stats"`
	Positions    []positionResponse    `json:"positions"`
	Transactions []transactionResponse `json:"transactions"`
}

type statsResponse struct {
	TotalInvested          float64 `json:"total_invested"`
	TotalCurrentValue      float64 `json:"total_current_value"`
	TotalProfitLoss        float64 `json:"total_profit_loss"`
	TotalProfitLossPercent float64 `json:"total_profit_loss_percent"`
	TotalValue             float64 `json:"total_value"`
	Stale                  bool    `json:"stale"`
}

type positionResponse struct {
	PositionID           string  `json:"position_id"`
	Symbol               string  `json:"symbol"`
	AssetType            string  `json:"asset_type"`
	Market               string  `json:"market"`
	Quantity             float64 `json:"quantity"`
	AvgCost              float64 `json:"avg_cost"`
	TotalInvested        float64 `json:"total_invested"`
	CurrentPrice         float64 `json:"current_price"`
	CurrentValue         float64 `json:"current_value"`
	UnrealizedPnL        float64 `json:"unrealized_pnl"`
	UnrealizedPnLPercent float64 `json:"unrealized_pnl_percent"`
	Stale                bool    `json:"stale"`
}

type transactionResponse struct {
	TransactionID string   `json:"transaction_id"`
	Type          string   `json:"type"`
	Symbol        string   `json:"symbol"`
	AssetType     string   `json:"asset_type"`
	Market        string   `json:"market"`
	Quantity      float64  `json:"quantity"`
	Price         float64  `json:"price"`
	TotalAmount   float64  `json:"total_amount"`
	Fee           float64  `json:"fee"`
	RealizedPnL   *float64 `json:"realized_pnl"`
	Notes         string   `json:"notes,omitempty"`
	Timestamp     string   `json:"timestamp"`
}

type snapshotResponse struct {
	SnapshotID        string  `json:"snapshot_id"`
	Timestamp         string  `json:"timestamp"`
	TotalValue        float64 `json:"total_value"`
	AvailableBalance  float64 `json:"available_balance"`
	InvestedValue     float64 `json:"invested_value"`
	ProfitLoss        float64 `json:"profit_loss"`
	ProfitLossPercent float64 `json:"profit_loss_percent"`
}

type historyResponse struct {
	OwnerID   string             `json:"owner_id"`
	Period    string             `json:"period"`
	Snapshots []snapshotResponse `json:"snapshots"`
}

// --- Handlers ---

// Get handles GET /wallets/{owner_id}.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetWallet(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	resp := walletDetailResponse{
		walletResponse: toWalletResponse(view.Wallet),
		Stats: statsResponse{
			TotalInvested:          amount(view.Stats.TotalInvested),
			TotalCurrentValue:      amount(view.Stats.TotalCurrentValue),
			TotalProfitLoss:        amount(view.Stats.TotalProfitLoss),
			TotalProfitLossPercent: amount(view.Stats.TotalProfitLossPercent),
			TotalValue:             amount(view.Stats.TotalValue),
			Stale:                  view.Stats.Stale,
		},
		Positions:    make([]positionResponse, len(view.Stats.Positions)),
		Transactions: make([]transactionResponse, len(view.Transactions)),
	}
	for i, pv := range view.Stats.Positions {
		resp.Positions[i] = toPositionResponse(pv)
	}
	for i, tx := range view.Transactions {
		resp.Transactions[i] = toTransactionResponse(tx)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// Buy handles POST /wallets/{owner_id}/buy.
func (h *WalletHandler) Buy(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	tx, err := h.svc.Buy(r.Context(), service.BuyRequest{
		OwnerID:   chi.URLParam(r, "owner_id"),
		Symbol:    req.Symbol,
		AssetType: req.AssetType,
		Market:    req.Market,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Notes:     req.Notes,
	})
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// Sell handles POST /wallets/{owner_id}/sell.
func (h *WalletHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if req.Market != "" {
		WriteError(w, http.StatusBadRequest, "validation_error", "market is not accepted on sell")
		return
	}

	tx, err := h.svc.Sell(r.Context(), service.SellRequest{
		OwnerID:   chi.URLParam(r, "owner_id"),
		Symbol:    req.Symbol,
		AssetType: req.AssetType,
		Quantity:  req.Quantity,
		Price:     req.Price,
		Notes:     req.Notes,
	})
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toTransactionResponse(tx))
}

// History handles GET /wallets/{owner_id}/history.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	ownerID := chi.URLParam(r, "owner_id")
	period := r.URL.Query().Get("period")

	snaps, err := h.svc.GetHistory(r.Context(), ownerID, period)
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	resp := historyResponse{
		OwnerID:   ownerID,
		Period:    strings.ToUpper(strings.TrimSpace(period)),
		Snapshots: make([]snapshotResponse, len(snaps)),
	}
	if resp.Period == "" {
		resp.Period = string(domain.PeriodMonth)
	}
	for i, s := range snaps {
		resp.Snapshots[i] = toSnapshotResponse(s)
	}

	WriteJSON(w, http.StatusOK, resp)
}

// RecordSnapshot handles POST /wallets/{owner_id}/snapshots.
func (h *WalletHandler) RecordSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RecordSnapshot(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toSnapshotResponse(snap))
}

// Reset handles POST /wallets/{owner_id}/reset.
func (h *WalletHandler) Reset(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.svc.ResetWallet(r.Context(), chi.URLParam(r, "owner_id"))
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func toWalletResponse(wl *domain.Wallet) walletResponse {
	return walletResponse{
		WalletID:  wl.ID,
		OwnerID:   wl.OwnerID,
		Balance:   amount(wl.Balance),
		Currency:  wl.Currency,
		CreatedAt: formatTime(wl.CreatedAt),
		UpdatedAt: formatTime(wl.UpdatedAt),
	}
}

func toPositionResponse(pv engine.PositionValue) positionResponse {
	p := pv.Position
	return positionResponse{
		PositionID:           p.ID,
		Symbol:               p.Symbol,
		AssetType:            string(p.AssetType),
		Market:               string(p.Market),
		Quantity:             quantity(p.Quantity),
		AvgCost:              quantity(p.AvgCost),
		TotalInvested:        amount(p.TotalInvested),
		CurrentPrice:         quantity(pv.CurrentPrice),
		CurrentValue:         amount(pv.CurrentValue),
		UnrealizedPnL:        amount(pv.UnrealizedPnL),
		UnrealizedPnLPercent: amount(pv.UnrealizedPnLPercent),
		Stale:                pv.Stale,
	}
}

func toTransactionResponse(tx *domain.Transaction) transactionResponse {
	resp := transactionResponse{
		TransactionID: tx.ID,
		Type:          string(tx.Type),
		Symbol:        tx.Symbol,
		AssetType:     string(tx.AssetType),
		Market:        string(tx.Market),
		Quantity:      quantity(tx.Quantity),
		Price:         quantity(tx.Price),
		TotalAmount:   amount(tx.TotalAmount),
		Fee:           amount(tx.Fee),
		Notes:         tx.Notes,
		Timestamp:     formatTime(tx.Timestamp),
	}
	// realized_pnl: present on sells, null on buys.
	if tx.RealizedPnL != nil {
		v := amount(*tx.RealizedPnL)
		resp.RealizedPnL = &v
	}
	return resp
}

func toSnapshotResponse(s *domain.PortfolioSnapshot) snapshotResponse {
	return snapshotResponse{
		SnapshotID:        s.ID,
		Timestamp:         formatTime(s.Timestamp),
		TotalValue:        amount(s.TotalValue),
		AvailableBalance:  amount(s.AvailableBalance),
		InvestedValue:     amount(s.InvestedValue),
		ProfitLoss:        amount(s.ProfitLoss),
		ProfitLossPercent: amount(s.ProfitLossPercent),
	}
}

// mapPortfolioError maps domain errors to HTTP responses for wallet and
// simulation endpoints.
func mapPortfolioError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidAmount):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusConflict, "insufficient_funds", err.Error())
	case errors.Is(err, domain.ErrInsufficientQuantity):
		WriteError(w, http.StatusConflict, "insufficient_quantity", err.Error())
	case errors.Is(err, domain.ErrPositionNotFound):
		WriteError(w, http.StatusNotFound, "position_not_found", "Position not found")
	case errors.Is(err, domain.ErrWalletNotFound):
		WriteError(w, http.StatusNotFound, "wallet_not_found", "Wallet not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
