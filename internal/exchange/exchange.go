// Package exchange holds one adapter per supported derivatives venue.
// Each adapter speaks the venue's REST dialect and hands back data
// keyed by canonical symbol, so nothing outside this package ever sees
// a raw exchange spelling.
package exchange

import (
	"context"

	"github.com/zengbo0710/zifei-panel/internal/types"
)

// Adapter is the per-exchange market data capability consumed by the
// scheduler and funding caches.
type Adapter interface {
	ID() types.ExchangeID

	// FetchTickers returns the venue's current perp quotes keyed by
	// canonical symbol.
	FetchTickers(ctx context.Context) (map[string]types.Ticker, error)

	// FetchFundingRate returns the current funding figures for one
	// canonical symbol.
	FetchFundingRate(ctx context.Context, symbol string) (types.FundingRate, error)
}

// BulkFundingSource is implemented by venues whose API returns funding
// for all contracts in one call. The funding cache prefers it over
// per-symbol fan-out.
type BulkFundingSource interface {
	FetchAllFundingRates(ctx context.Context) (map[string]types.FundingRate, error)
}

// TickerFundingSource is implemented by venues whose ticker payload
// already carries a funding rate. Rates from the latest FetchTickers
// call are merged rate-only into the cache every detection cycle, so
// the rate stays fresher than the slow per-symbol refresh.
type TickerFundingSource interface {
	TickerFundingRates() map[string]float64
}

// KlineSource serves the pass-through /kline endpoint.
type KlineSource interface {
	FetchOHLCV(ctx context.Context, symbol, timeframe string, limit int) ([]types.Candle, error)
}
