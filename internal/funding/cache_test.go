package funding

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
)

// fakeAdapter serves canned per-symbol funding; symbols listed in fail
// return an error.
type fakeAdapter struct {
	id    types.ExchangeID
	rates map[string]types.FundingRate
	fail  map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeAdapter) ID() types.ExchangeID { return f.id }

func (f *fakeAdapter) FetchTickers(context.Context) (map[string]types.Ticker, error) {
	return nil, nil
}

func (f *fakeAdapter) FetchFundingRate(_ context.Context, symbol string) (types.FundingRate, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol)
	f.mu.Unlock()
	if f.fail[symbol] {
		return types.FundingRate{}, errors.New("boom")
	}
	fr, ok := f.rates[symbol]
	if !ok {
		return types.FundingRate{}, errors.Errorf("no data for %s", symbol)
	}
	return fr, nil
}

// bulkAdapter additionally serves everything in one call.
type bulkAdapter struct {
	fakeAdapter
	bulkErr error
}

func (b *bulkAdapter) FetchAllFundingRates(context.Context) (map[string]types.FundingRate, error) {
	if b.bulkErr != nil {
		return nil, b.bulkErr
	}
	return b.rates, nil
}

func TestGetAbsentUsesDefaults(t *testing.T) {
	c := NewCache(&fakeAdapter{id: types.OKX}, 4, zap.NewNop())
	fr, ok := c.Get("BTC/USDT:USDT")
	assert.False(t, ok)
	assert.Zero(t, fr.Rate)
	assert.Equal(t, float64(types.DefaultFundingPeriodHours), fr.IntervalHours)
}

func TestRefreshRestrictedSet(t *testing.T) {
	a := &fakeAdapter{
		id: types.OKX,
		rates: map[string]types.FundingRate{
			"BTC/USDT:USDT": {Rate: 0.0001, NextTime: 1, IntervalHours: 8},
			"ETH/USDT:USDT": {Rate: -0.0002, NextTime: 2, IntervalHours: 4},
		},
	}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), []string{"BTC/USDT:USDT", "ETH/USDT:USDT"})

	assert.Equal(t, 2, c.Len())
	fr, ok := c.Get("ETH/USDT:USDT")
	require.True(t, ok)
	assert.Equal(t, -0.0002, fr.Rate)
	assert.ElementsMatch(t, []string{"BTC/USDT:USDT", "ETH/USDT:USDT"}, a.calls)
}

func TestRefreshKeepsPriorValueOnFailure(t *testing.T) {
	a := &fakeAdapter{
		id: types.OKX,
		rates: map[string]types.FundingRate{
			"BTC/USDT:USDT": {Rate: 0.0001, IntervalHours: 8},
			"ETH/USDT:USDT": {Rate: 0.0003, IntervalHours: 8},
		},
	}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), []string{"BTC/USDT:USDT", "ETH/USDT:USDT"})

	// second round: BTC starts failing, its prior entry must survive
	a.fail = map[string]bool{"BTC/USDT:USDT": true}
	a.rates["ETH/USDT:USDT"] = types.FundingRate{Rate: 0.0009, IntervalHours: 8}
	c.Refresh(context.Background(), []string{"BTC/USDT:USDT", "ETH/USDT:USDT"})

	fr, ok := c.Get("BTC/USDT:USDT")
	require.True(t, ok)
	assert.Equal(t, 0.0001, fr.Rate)
	fr, _ = c.Get("ETH/USDT:USDT")
	assert.Equal(t, 0.0009, fr.Rate)
}

func TestRefreshEmptyRestrictedSetIsNoop(t *testing.T) {
	a := &fakeAdapter{id: types.OKX}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), nil)
	assert.Empty(t, a.calls)
	assert.Zero(t, c.Len())
}

func TestRefreshBulk(t *testing.T) {
	a := &bulkAdapter{fakeAdapter: fakeAdapter{
		id: types.Binance,
		rates: map[string]types.FundingRate{
			"BTC/USDT:USDT": {Rate: 0.0001, IntervalHours: 8},
			"ETH/USDT:USDT": {Rate: 0.0002, IntervalHours: 8},
		},
	}}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), nil)

	assert.Equal(t, 2, c.Len())
	assert.Empty(t, a.calls, "bulk venues never fan out per symbol")
}

func TestRefreshBulkFailureRetainsEntries(t *testing.T) {
	a := &bulkAdapter{fakeAdapter: fakeAdapter{
		id:    types.Binance,
		rates: map[string]types.FundingRate{"BTC/USDT:USDT": {Rate: 0.0001, IntervalHours: 8}},
	}}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), nil)

	a.bulkErr = errors.New("exchange down")
	c.Refresh(context.Background(), nil)

	fr, ok := c.Get("BTC/USDT:USDT")
	require.True(t, ok)
	assert.Equal(t, 0.0001, fr.Rate)
}

func TestMergeRatePreservesSettlementDetails(t *testing.T) {
	a := &fakeAdapter{
		id:    types.Bitget,
		rates: map[string]types.FundingRate{"BTC/USDT:USDT": {Rate: 0.0001, NextTime: 1700000000000, IntervalHours: 8}},
	}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), []string{"BTC/USDT:USDT"})

	c.MergeRate("BTC/USDT:USDT", 0.0007)
	fr, _ := c.Get("BTC/USDT:USDT")
	assert.Equal(t, 0.0007, fr.Rate)
	assert.Equal(t, int64(1700000000000), fr.NextTime)
	assert.Equal(t, 8.0, fr.IntervalHours)
}

func TestSnapshotIsACopy(t *testing.T) {
	a := &fakeAdapter{
		id:    types.Bitget,
		rates: map[string]types.FundingRate{"BTC/USDT:USDT": {Rate: 0.0001, IntervalHours: 8}},
	}
	c := NewCache(a, 4, zap.NewNop())
	c.Refresh(context.Background(), []string{"BTC/USDT:USDT"})

	snap := c.Snapshot()
	snap["BTC/USDT:USDT"] = types.FundingRate{Rate: 99}
	fr, _ := c.Get("BTC/USDT:USDT")
	assert.Equal(t, 0.0001, fr.Rate)
}
