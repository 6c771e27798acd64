package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrInvalidInput         = errors.New("invalid_input")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientQuantity = errors.New("insufficient_quantity")
	ErrPositionNotFound     = errors.New("position_not_found")
	ErrWalletNotFound       = errors.New("wallet_not_found")
	ErrWalletAlreadyExists  = errors.New("wallet_already_exists")
	ErrOracleUnavailable    = errors.New("oracle_unavailable")
	ErrSnapshotWriteFailed  = errors.New("snapshot_write_failed")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match validation failures.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// InsufficientFundsError reports a buy whose total cost exceeds the wallet
// balance.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
	Currency  string
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("Insufficient balance. Required: %s, Available: %s",
		FormatAmount(e.Required, e.Currency), FormatAmount(e.Available, e.Currency))
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// InsufficientQuantityError reports a sell larger than the held position.
type InsufficientQuantityError struct {
	Symbol    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("Insufficient quantity of %s. Required: %s, Available: %s",
		e.Symbol, e.Requested.String(), e.Available.String())
}

func (e *InsufficientQuantityError) Unwrap() error {
	return ErrInsufficientQuantity
}
