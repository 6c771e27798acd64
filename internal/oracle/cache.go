package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/efreitasn/papertrade/internal/domain"
	"github.com/shopspring/decimal"
)

type cachedQuote struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// CachedOracle remembers successful quotes from the wrapped oracle for a
// fixed TTL. Failures are not cached, and a failed refresh evicts the
// expired quote, so the map holds at most one entry per instrument.
type CachedOracle struct {
	next Oracle
	ttl  time.Duration
	now  func() time.Time

	mu     sync.Mutex
	quotes map[domain.PositionKey]cachedQuote
}

var _ Oracle = (*CachedOracle)(nil)

// NewCachedOracle wraps next with a TTL cache.
func NewCachedOracle(next Oracle, ttl time.Duration) *CachedOracle {
	return &CachedOracle{
		next:   next,
		ttl:    ttl,
		now:    time.Now,
		quotes: make(map[domain.PositionKey]cachedQuote),
	}
}

func (o *CachedOracle) Price(ctx context.Context, symbol string, assetType domain.AssetType) (decimal.Decimal, error) {
	key := domain.PositionKey{Symbol: symbol, AssetType: assetType}

	o.mu.Lock()
	q, ok := o.quotes[key]
	o.mu.Unlock()
	if ok && o.now().Sub(q.fetchedAt) < o.ttl {
		return q.price, nil
	}

	price, err := o.next.Price(ctx, symbol, assetType)
	if err != nil {
		if ok {
			o.mu.Lock()
			if cur, still := o.quotes[key]; still && cur.fetchedAt.Equal(q.fetchedAt) {
				delete(o.quotes, key)
			}
			o.mu.Unlock()
		}
		return decimal.Zero, err
	}

	o.mu.Lock()
	o.quotes[key] = cachedQuote{price: price, fetchedAt: o.now()}
	o.mu.Unlock()
	return price, nil
}
