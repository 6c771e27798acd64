package domain

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount   string
		currency string
		want     string
	}{
		{"100500", "USD", "$100,500.00"},
		{"0.004", "USD", "$0.00"},
		{"12.5", "XYZ", "12.50 XYZ"},
	}
	for _, tt := range tests {
		t.Run(tt.amount+"_"+tt.currency, func(t *testing.T) {
			got := FormatAmount(decimal.RequireFromString(tt.amount), tt.currency)
			if got != tt.want {
				t.Errorf("FormatAmount(%s, %s) = %q, want %q", tt.amount, tt.currency, got, tt.want)
			}
		})
	}
}

func TestFormatAmount_MAD(t *testing.T) {
	got := FormatAmount(decimal.NewFromInt(100500), "MAD")
	if !strings.Contains(got, "100") || !strings.Contains(got, "500") {
		t.Errorf("FormatAmount(100500, MAD) = %q, want digits preserved", got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, whole, want string
	}{
		{"50", "200", "25"},
		{"-250", "50000", "-0.5"},
		{"10", "0", "0"},
	}
	for _, tt := range tests {
		got := Percent(decimal.RequireFromString(tt.part), decimal.RequireFromString(tt.whole))
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Percent(%s, %s) = %s, want %s", tt.part, tt.whole, got, tt.want)
		}
	}
}
