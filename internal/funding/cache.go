// Package funding keeps one cache of funding figures per exchange.
// Each cache refreshes on its own timer, slower than the detection
// cycle, and keeps stale entries in place when a refresh round fails
// for some symbols (stale-but-available, never evict-on-error).
package funding

import (
	"context"
	"sync"

	"github.com/zengbo0710/zifei-panel/internal/exchange"
	"github.com/zengbo0710/zifei-panel/internal/metrics"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Cache holds the latest funding figures for one exchange, keyed by
// canonical symbol.
type Cache struct {
	adapter     exchange.Adapter
	log         *zap.Logger
	concurrency int

	mu    sync.RWMutex
	rates map[string]types.FundingRate
}

func NewCache(adapter exchange.Adapter, concurrency int, log *zap.Logger) *Cache {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Cache{
		adapter:     adapter,
		log:         log.With(zap.String("exchange", string(adapter.ID()))),
		concurrency: concurrency,
		rates:       make(map[string]types.FundingRate),
	}
}

func (c *Cache) Exchange() types.ExchangeID { return c.adapter.ID() }

// Get returns the cached funding figures for a symbol. When the symbol
// is absent the documented fallback applies: zero rate, default
// settlement period.
func (c *Cache) Get(symbol string) (types.FundingRate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fr, ok := c.rates[symbol]
	if !ok {
		return types.FundingRate{IntervalHours: types.DefaultFundingPeriodHours}, false
	}
	return fr, true
}

// Len reports the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rates)
}

// Snapshot copies the cache for read-only consumers (the /status
// endpoint surfaces it).
func (c *Cache) Snapshot() map[string]types.FundingRate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]types.FundingRate, len(c.rates))
	for k, v := range c.rates {
		out[k] = v
	}
	return out
}

// MergeRate updates only the rate of an entry, preserving settlement
// time and interval from the last full refresh. Used for venues whose
// ticker payload carries a funding rate every detection cycle.
func (c *Cache) MergeRate(symbol string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.rates[symbol]
	entry.Rate = rate
	c.rates[symbol] = entry
}

// Refresh fetches current funding figures and replaces the entries it
// successfully fetched. Bulk-capable venues refresh everything in one
// call; the rest fan out per symbol over the restricted set with
// bounded concurrency, and a failed symbol keeps its prior value.
func (c *Cache) Refresh(ctx context.Context, restricted []string) {
	if bulk, ok := c.adapter.(exchange.BulkFundingSource); ok {
		fetched, err := bulk.FetchAllFundingRates(ctx)
		if err != nil {
			c.log.Warn("bulk funding refresh failed, keeping prior entries", zap.Error(err))
			metrics.FetchErrors.WithLabelValues(string(c.adapter.ID())).Inc()
			return
		}
		c.replace(fetched)
		c.log.Debug("funding refreshed", zap.Int("symbols", len(fetched)))
		return
	}

	if len(restricted) == 0 {
		c.log.Debug("no symbols to refresh, skipping funding update")
		return
	}

	fetched := make(map[string]types.FundingRate, len(restricted))
	var fmu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, symbol := range restricted {
		symbol := symbol
		g.Go(func() error {
			fr, err := c.adapter.FetchFundingRate(gctx, symbol)
			if err != nil {
				// per-request isolation: log, keep the prior entry
				c.log.Warn("funding fetch failed",
					zap.String("symbol", symbol), zap.Error(err))
				metrics.FetchErrors.WithLabelValues(string(c.adapter.ID())).Inc()
				return nil
			}
			fmu.Lock()
			fetched[symbol] = fr
			fmu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	c.replace(fetched)
	c.log.Debug("funding refreshed",
		zap.Int("requested", len(restricted)), zap.Int("fetched", len(fetched)))
}

// replace overwrites fetched entries only; everything else stays.
func (c *Cache) replace(fetched map[string]types.FundingRate) {
	c.mu.Lock()
	for sym, fr := range fetched {
		c.rates[sym] = fr
	}
	size := len(c.rates)
	c.mu.Unlock()
	metrics.FundingCacheEntries.WithLabelValues(string(c.adapter.ID())).Set(float64(size))
}
