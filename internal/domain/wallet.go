package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds one owner's virtual cash balance.
type Wallet struct {
	ID        string
	OwnerID   string
	Balance   decimal.Decimal
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWallet creates a wallet for ownerID funded with balance.
func NewWallet(ownerID string, balance decimal.Decimal, currency string, now time.Time) (*Wallet, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, &ValidationError{Message: "owner_id is required"}
	}
	if balance.IsNegative() {
		return nil, &ValidationError{Message: "balance must be >= 0"}
	}
	if len(currency) != 3 {
		return nil, &ValidationError{Message: "currency must be a 3-letter code"}
	}
	return &Wallet{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Balance:   balance,
		Currency:  strings.ToUpper(currency),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Clone returns a copy that shares no state with w.
func (w *Wallet) Clone() *Wallet {
	c := *w
	return &c
}
