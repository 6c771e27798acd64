package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the side of an executed order.
type TransactionType string

const (
	TransactionBuy  TransactionType = "BUY"
	TransactionSell TransactionType = "SELL"
)

// Transaction is an immutable record of one executed order.
type Transaction struct {
	ID          string
	WalletID    string
	Type        TransactionType
	Symbol      string
	AssetType   AssetType
	Market      Market
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	TotalAmount decimal.Decimal // quantity × price, fee excluded
	Fee         decimal.Decimal
	RealizedPnL *decimal.Decimal // SELL only
	Notes       string
	Timestamp   time.Time
}

// TransactionParams carries the fields of a transaction being recorded.
type TransactionParams struct {
	WalletID    string
	Type        TransactionType
	Symbol      string
	AssetType   AssetType
	Market      Market
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Fee         decimal.Decimal
	RealizedPnL *decimal.Decimal
	Notes       string
	Timestamp   time.Time
}

// NewTransaction validates p and builds the transaction it describes.
// TotalAmount is derived from quantity and price.
func NewTransaction(p TransactionParams) (*Transaction, error) {
	switch {
	case p.WalletID == "":
		return nil, &ValidationError{Message: "wallet_id is required"}
	case p.Type != TransactionBuy && p.Type != TransactionSell:
		return nil, &ValidationError{Message: "type must be BUY or SELL"}
	case p.Symbol == "":
		return nil, &ValidationError{Message: "symbol is required"}
	case !validAssetTypes[p.AssetType]:
		return nil, &ValidationError{Message: "invalid asset_type"}
	case !validMarkets[p.Market]:
		return nil, &ValidationError{Message: "invalid market"}
	case !p.Quantity.IsPositive():
		return nil, &ValidationError{Message: "quantity must be > 0"}
	case !p.Price.IsPositive():
		return nil, &ValidationError{Message: "price must be > 0"}
	case p.Fee.IsNegative():
		return nil, &ValidationError{Message: "fee must be >= 0"}
	case p.Type == TransactionBuy && p.RealizedPnL != nil:
		return nil, &ValidationError{Message: "realized_pnl is only recorded on sells"}
	case p.Type == TransactionSell && p.RealizedPnL == nil:
		return nil, &ValidationError{Message: "realized_pnl is required on sells"}
	case p.Timestamp.IsZero():
		return nil, &ValidationError{Message: "timestamp is required"}
	}
	return &Transaction{
		ID:          uuid.New().String(),
		WalletID:    p.WalletID,
		Type:        p.Type,
		Symbol:      p.Symbol,
		AssetType:   p.AssetType,
		Market:      p.Market,
		Quantity:    p.Quantity,
		Price:       p.Price,
		TotalAmount: p.Quantity.Mul(p.Price),
		Fee:         p.Fee,
		RealizedPnL: p.RealizedPnL,
		Notes:       p.Notes,
		Timestamp:   p.Timestamp,
	}, nil
}

// Clone returns a copy that shares no state with t.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.RealizedPnL != nil {
		pnl := *t.RealizedPnL
		c.RealizedPnL = &pnl
	}
	return &c
}
