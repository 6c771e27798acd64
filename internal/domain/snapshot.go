package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PortfolioSnapshot is a stored point-in-time valuation of a wallet.
type PortfolioSnapshot struct {
	ID                string
	WalletID          string
	Timestamp         time.Time
	TotalValue        decimal.Decimal
	AvailableBalance  decimal.Decimal
	InvestedValue     decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
}

// NewSnapshot builds a snapshot of the given totals. ProfitLossPercent is
// derived from profitLoss and investedValue.
func NewSnapshot(walletID string, at time.Time, totalValue, balance, investedValue, profitLoss decimal.Decimal) (*PortfolioSnapshot, error) {
	if walletID == "" {
		return nil, &ValidationError{Message: "wallet_id is required"}
	}
	if at.IsZero() {
		return nil, &ValidationError{Message: "timestamp is required"}
	}
	return &PortfolioSnapshot{
		ID:                uuid.New().String(),
		WalletID:          walletID,
		Timestamp:         at,
		TotalValue:        totalValue,
		AvailableBalance:  balance,
		InvestedValue:     investedValue,
		ProfitLoss:        profitLoss,
		ProfitLossPercent: Percent(profitLoss, investedValue),
	}, nil
}

// HistoryPeriod selects how far back snapshot history reaches.
type HistoryPeriod string

const (
	PeriodWeek  HistoryPeriod = "1W"
	PeriodMonth HistoryPeriod = "1M"
	PeriodYear  HistoryPeriod = "1Y"
	PeriodMax   HistoryPeriod = "MAX"
)

// ParseHistoryPeriod parses s, defaulting to one month when s is empty.
func ParseHistoryPeriod(s string) (HistoryPeriod, error) {
	switch p := HistoryPeriod(s); p {
	case "":
		return PeriodMonth, nil
	case PeriodWeek, PeriodMonth, PeriodYear, PeriodMax:
		return p, nil
	}
	return "", &ValidationError{Message: "period must be one of 1W, 1M, 1Y, MAX"}
}

// Since returns the earliest timestamp included in the period ending at
// now. PeriodMax returns the zero time.
func (p HistoryPeriod) Since(now time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	case PeriodMax:
		return time.Time{}
	default:
		return now.AddDate(0, -1, 0)
	}
}
