package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zengbo0710/zifei-panel/internal/types"
)

type stubFunding map[types.ExchangeID]map[string]types.FundingRate

func (s stubFunding) Funding(ex types.ExchangeID, symbol string) (types.FundingRate, bool) {
	fr, ok := s[ex][symbol]
	if !ok {
		return types.FundingRate{IntervalHours: types.DefaultFundingPeriodHours}, false
	}
	return fr, true
}

const btc = "BTC/USDT:USDT"

func ticker(bid, ask, last, volume float64, ts time.Time) types.Ticker {
	return types.Ticker{
		Symbol: btc, Bid: bid, Ask: ask, Last: last,
		QuoteVolume: volume, Timestamp: ts.UnixMilli(),
	}
}

func index(now time.Time, perExchange map[types.ExchangeID]map[string]types.Ticker) *SupportIndex {
	return BuildIndex(types.EnumOrder, perExchange, 12*time.Hour, now)
}

func TestComputeCrossedBooksLongAShortB(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.OKX:     {btc: ticker(60100, 60110, 60105, 5e8, now)},
	})

	opps := New(stubFunding{}).Compute(idx, now)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, "BINANCE-OKX", o.Pair)
	assert.Equal(t, types.LASB, o.Opportunity)
	assert.InDelta(t, 60010.0/60100.0, o.LASB, 1e-12)
	assert.InDelta(t, 0.000892, o.OpportunityValue, 1e-6)
}

func TestComputeCrossedBooksShortALongB(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60100, 60110, 60105, 5e8, now)},
		types.OKX:     {btc: ticker(60000, 60010, 60005, 5e8, now)},
	})

	opps := New(stubFunding{}).Compute(idx, now)
	require.Len(t, opps, 1)
	assert.Equal(t, types.SALB, opps[0].Opportunity)
	assert.InDelta(t, 60100.0/60010.0-1, opps[0].OpportunityValue, 1e-12)
}

func TestComputeNoArbitrageZone(t *testing.T) {
	now := time.Now()
	// books overlap: askA >= bidB and bidA <= askB
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.OKX:     {btc: ticker(60005, 60015, 60010, 5e8, now)},
	})
	assert.Empty(t, New(stubFunding{}).Compute(idx, now))
}

func TestComputeRejectsMissingLastPrice(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 0, 5e8, now)},
		types.OKX:     {btc: ticker(60100, 60110, 60105, 5e8, now)},
	})
	assert.Empty(t, New(stubFunding{}).Compute(idx, now))
}

func TestComputeRejectsMissingBook(t *testing.T) {
	now := time.Now()
	// a venue reporting empty book fields parses to zero bid/ask; a
	// zero ask must not rank as a maximal opportunity against any
	// positive bid
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.OKX:   {btc: ticker(0, 0, 60005, 5e8, now)},
		types.Bybit: {btc: ticker(60100, 60110, 60105, 5e8, now)},
	})
	assert.Empty(t, New(stubFunding{}).Compute(idx, now))

	// one-sided book on the other leg
	idx = index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.OKX:   {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.Bybit: {btc: ticker(60100, 0, 60105, 5e8, now)},
	})
	assert.Empty(t, New(stubFunding{}).Compute(idx, now))
}

func TestComputeFundingFields(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.OKX:     {btc: ticker(60100, 60110, 60105, 5e8, now)},
	})
	fund := stubFunding{
		types.Binance: {btc: {Rate: 0.0001, NextTime: 1700000000000, IntervalHours: 8}},
		types.OKX:     {btc: {Rate: -0.0002, NextTime: 1700000000000, IntervalHours: 4}},
	}

	opps := New(fund).Compute(idx, now)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.InDelta(t, 0.0003, o.FundingProfit.RawDiff, 1e-12)
	assert.Equal(t, o.FundingProfit.RawDiff, o.FundingProfit.ProfitPerPeriod)
	// rateA > rateB: short the higher-rate leg
	assert.Equal(t, types.SALB, o.FundingProfit.OptimalDirection)
	assert.Equal(t, 0.0001, o.FundingRateA)
	assert.Equal(t, -0.0002, o.FundingRateB)
	assert.Equal(t, 4.0, o.FundingPeriodB)
}

func TestComputeFundingDefaultsWhenAbsent(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.OKX:     {btc: ticker(60100, 60110, 60105, 5e8, now)},
	})

	opps := New(stubFunding{}).Compute(idx, now)
	require.Len(t, opps, 1)
	assert.Zero(t, opps[0].FundingRateA)
	assert.Equal(t, float64(types.DefaultFundingPeriodHours), opps[0].FundingPeriodA)
	assert.Equal(t, types.LASB, opps[0].FundingProfit.OptimalDirection)
}

func TestComputePairEnumerationOrder(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.Bybit:   {btc: ticker(60100, 60110, 60105, 5e8, now)},
		types.Bitget:  {btc: ticker(60200, 60210, 60205, 5e8, now)},
	})

	opps := New(stubFunding{}).Compute(idx, now)
	require.Len(t, opps, 3)
	pairs := make(map[string]bool, len(opps))
	for _, o := range opps {
		pairs[o.Pair] = true
	}
	// fixed enumeration order: never the reversed spelling
	assert.True(t, pairs["BINANCE-BYBIT"])
	assert.True(t, pairs["BINANCE-BITGET"])
	assert.True(t, pairs["BYBIT-BITGET"])
}

func TestComputeSortedByValueDescending(t *testing.T) {
	now := time.Now()
	eth := "ETH/USDT:USDT"
	perExchange := map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {
			btc: ticker(60000, 60010, 60005, 5e8, now),
			eth: {Symbol: eth, Bid: 3000, Ask: 3001, Last: 3000.5, QuoteVolume: 5e8, Timestamp: now.UnixMilli()},
		},
		types.OKX: {
			btc: ticker(60100, 60110, 60105, 5e8, now),
			eth: {Symbol: eth, Bid: 3100, Ask: 3101, Last: 3100.5, QuoteVolume: 5e8, Timestamp: now.UnixMilli()},
		},
	}
	opps := New(stubFunding{}).Compute(index(now, perExchange), now)
	require.Len(t, opps, 2)
	assert.GreaterOrEqual(t, opps[0].OpportunityValue, opps[1].OpportunityValue)
	assert.Equal(t, eth, opps[0].Symbol)
}

func TestFreshnessFilterExcludesStaleTicker(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now.Add(-13*time.Hour))},
		types.OKX:     {btc: ticker(60100, 60110, 60105, 5e8, now)},
	})
	// the stale leg never enters the index, so the symbol has <2 supporters
	assert.Empty(t, idx.Symbols(2))
	assert.Empty(t, New(stubFunding{}).Compute(idx, now))
}

func TestLiquidityRuleVolume(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.Bitget:  {btc: ticker(60100, 60110, 60105, 500_000, now)}, // thin book
	})
	fund := stubFunding{
		types.Bitget: {btc: {Rate: 0.01, IntervalHours: 8}},
	}
	eng := New(fund, LiquidityRule(types.Bitget, 1_000_000, 0.001))
	assert.Empty(t, eng.Compute(idx, now))
}

func TestLiquidityRuleFunding(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 5e8, now)},
		types.Bitget:  {btc: ticker(60100, 60110, 60105, 5e6, now)},
	})
	fund := stubFunding{
		types.Bitget: {btc: {Rate: 0.0005, IntervalHours: 8}}, // below the 0.001 floor
	}
	eng := New(fund, LiquidityRule(types.Bitget, 1_000_000, 0.001))
	assert.Empty(t, eng.Compute(idx, now))

	// negative rate past the floor is admitted
	fund[types.Bitget][btc] = types.FundingRate{Rate: -0.002, IntervalHours: 8}
	assert.Len(t, eng.Compute(idx, now), 1)
}

func TestLiquidityRuleLeavesOtherPairsAlone(t *testing.T) {
	now := time.Now()
	idx := index(now, map[types.ExchangeID]map[string]types.Ticker{
		types.Binance: {btc: ticker(60000, 60010, 60005, 100, now)},
		types.OKX:     {btc: ticker(60100, 60110, 60105, 100, now)},
	})
	eng := New(stubFunding{}, LiquidityRule(types.Bitget, 1_000_000, 0.001))
	assert.Len(t, eng.Compute(idx, now), 1)
}
