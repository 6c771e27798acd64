package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

// HTTPOracle fetches prices from a price service exposing
// GET {base}/prices/{assetType}/{symbol} → {"price": number}.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
}

var _ Oracle = (*HTTPOracle)(nil)

// NewHTTPOracle creates an oracle for the service at baseURL. Each call is
// bounded by timeout.
func NewHTTPOracle(baseURL string, timeout time.Duration) *HTTPOracle {
	return &HTTPOracle{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type priceResponse struct {
	Price *decimal.Decimal `json:"price"`
}

func (o *HTTPOracle) Price(ctx context.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error) {
	u := fmt.Sprintf("%s/prices/%s/%s", o.baseURL,
		url.PathEscape(strings.ToLower(string(assetType))), url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: %s %s returned %d", domain.ErrOracleUnavailable, symbol, assetType, resp.StatusCode)
	}

	var body priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode price: %v", domain.ErrOracleUnavailable, err)
	}
	if body.Price == nil || !body.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", domain.ErrOracleUnavailable, symbol)
	}
	return *body.Price, nil
}
