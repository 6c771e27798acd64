package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Message: "quantity must be > 0"}
	if err.Error() != "quantity must be > 0" {
		t.Errorf("Error() = %q, want %q", err.Error(), "quantity must be > 0")
	}
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	var err error = &ValidationError{Message: "test"}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
}

func TestInsufficientFundsError(t *testing.T) {
	err := &InsufficientFundsError{
		Required:  decimal.NewFromInt(100500),
		Available: decimal.NewFromInt(100000),
		Currency:  "USD",
	}
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Error("InsufficientFundsError should match ErrInsufficientFunds")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Required: $100,500.00") || !strings.Contains(msg, "Available: $100,000.00") {
		t.Errorf("Error() = %q, want required and available amounts", msg)
	}
}

func TestInsufficientQuantityError(t *testing.T) {
	err := &InsufficientQuantityError{
		Symbol:    "ATW",
		Requested: decimal.NewFromInt(11),
		Available: decimal.NewFromInt(10),
	}
	if !errors.Is(err, ErrInsufficientQuantity) {
		t.Error("InsufficientQuantityError should match ErrInsufficientQuantity")
	}
	if errors.Is(err, ErrInsufficientFunds) {
		t.Error("InsufficientQuantityError should not match ErrInsufficientFunds")
	}
	if !strings.Contains(err.Error(), "ATW") {
		t.Errorf("Error() = %q, want symbol", err.Error())
	}
}

func TestSentinelErrors_AreDistinct(t *testing.T) {
	errs := []error{
		ErrInvalidInput,
		ErrInvalidAmount,
		ErrInsufficientFunds,
		ErrInsufficientQuantity,
		ErrPositionNotFound,
		ErrWalletNotFound,
		ErrWalletAlreadyExists,
		ErrOracleUnavailable,
		ErrSnapshotWriteFailed,
	}
	for i := 0; i < len(errs); i++ {
		for j := i + 1; j < len(errs); j++ {
			if errors.Is(errs[i], errs[j]) {
				t.Errorf("sentinel errors %d and %d should be distinct", i, j)
			}
		}
	}
}
