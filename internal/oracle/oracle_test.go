package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

func TestStaticOracle(t *testing.T) {
	o := NewStaticOracle()
	ctx := context.Background()

	if _, err := o.Price(ctx, "ATW", domain.AssetTypeStock); !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}

	o.Set("ATW", domain.AssetTypeStock, decimal.NewFromInt(520))
	p, err := o.Price(ctx, "ATW", domain.AssetTypeStock)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !p.Equal(decimal.NewFromInt(520)) {
		t.Errorf("Price = %s, want 520", p)
	}

	// Same symbol under another asset type is a different instrument.
	if _, err := o.Price(ctx, "ATW", domain.AssetTypeIndex); !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Errorf("expected ErrOracleUnavailable for other asset type, got %v", err)
	}

	o.Remove("ATW", domain.AssetTypeStock)
	if _, err := o.Price(ctx, "ATW", domain.AssetTypeStock); !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Errorf("expected ErrOracleUnavailable after Remove, got %v", err)
	}
}

func TestHTTPOracle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/prices/crypto/BTC":
			w.Write([]byte(`{"price": 64250.75}`))
		case "/prices/stock/NULL":
			w.Write([]byte(`{"price": null}`))
		case "/prices/stock/SLOW":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte(`{"price": 1}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewHTTPOracle(srv.URL+"/", 50*time.Millisecond)
	ctx := context.Background()

	p, err := o.Price(ctx, "BTC", domain.AssetTypeCrypto)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !p.Equal(decimal.RequireFromString("64250.75")) {
		t.Errorf("Price = %s, want 64250.75", p)
	}

	for _, sym := range []string{"MISSING", "NULL", "SLOW"} {
		t.Run(sym, func(t *testing.T) {
			_, err := o.Price(ctx, sym, domain.AssetTypeStock)
			if !errors.Is(err, domain.ErrOracleUnavailable) {
				t.Errorf("expected ErrOracleUnavailable, got %v", err)
			}
		})
	}
}

type countingOracle struct {
	calls atomic.Int32
	err   error
}

func (c *countingOracle) Price(context.Context, string, domain.AssetType) (decimal.Decimal, error) {
	c.calls.Add(1)
	if c.err != nil {
		return decimal.Zero, c.err
	}
	return decimal.NewFromInt(10), nil
}

func TestCachedOracle_TTL(t *testing.T) {
	next := &countingOracle{}
	o := NewCachedOracle(next, 5*time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := o.Price(ctx, "IAM", domain.AssetTypeStock); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if got := next.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1 within TTL", got)
	}

	now = now.Add(5 * time.Minute)
	if _, err := o.Price(ctx, "IAM", domain.AssetTypeStock); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 after expiry", got)
	}
}

func TestCachedOracle_FailuresNotCached(t *testing.T) {
	next := &countingOracle{err: domain.ErrOracleUnavailable}
	o := NewCachedOracle(next, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := o.Price(ctx, "IAM", domain.AssetTypeStock); !errors.Is(err, domain.ErrOracleUnavailable) {
			t.Fatalf("expected ErrOracleUnavailable, got %v", err)
		}
	}
	if got := next.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestCachedOracle_FailedRefreshEvicts(t *testing.T) {
	next := &countingOracle{}
	o := NewCachedOracle(next, time.Minute)
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return now }
	ctx := context.Background()

	if _, err := o.Price(ctx, "IAM", domain.AssetTypeStock); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := len(o.quotes); got != 1 {
		t.Fatalf("cached quotes = %d, want 1", got)
	}

	now = now.Add(2 * time.Minute)
	next.err = domain.ErrOracleUnavailable
	if _, err := o.Price(ctx, "IAM", domain.AssetTypeStock); !errors.Is(err, domain.ErrOracleUnavailable) {
		t.Fatalf("expected ErrOracleUnavailable, got %v", err)
	}
	if got := len(o.quotes); got != 0 {
		t.Errorf("cached quotes = %d, want expired quote evicted", got)
	}
}
