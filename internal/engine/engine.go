// Package engine turns one cycle's support index plus the funding
// caches into a ranked list of cross-exchange opportunities. The
// computation is pure: tickers and funding rates in, opportunities
// out, no I/O.
package engine

import (
	"math"
	"sort"
	"time"

	"github.com/zengbo0710/zifei-panel/internal/types"
)

// FundingLookup resolves an exchange's cached funding figures for a
// symbol. Implementations return ok=false with the documented fallback
// (zero rate, default period) when nothing is cached.
type FundingLookup interface {
	Funding(ex types.ExchangeID, symbol string) (types.FundingRate, bool)
}

type Engine struct {
	funding FundingLookup
	filters []Predicate
}

func New(funding FundingLookup, filters ...Predicate) *Engine {
	return &Engine{funding: funding, filters: filters}
}

// Compute walks every symbol supported by at least two exchanges and
// every unordered exchange pair in fixed enumeration order, emitting
// one Opportunity per pair whose books actually cross. The result is
// filtered and stably sorted by opportunityValue descending.
func (e *Engine) Compute(idx *SupportIndex, now time.Time) []types.Opportunity {
	var out []types.Opportunity
	order := idx.Order()

	syms := idx.Symbols(2)
	sort.Strings(syms) // deterministic walk; final order is by value anyway

	for _, sym := range syms {
		for i := 0; i < len(order); i++ {
			ta, ok := idx.Ticker(order[i], sym)
			if !ok {
				continue
			}
			for j := i + 1; j < len(order); j++ {
				tb, ok := idx.Ticker(order[j], sym)
				if !ok {
					continue
				}
				opp, ok := e.pair(sym, order[i], order[j], ta, tb, now)
				if !ok {
					continue
				}
				if e.admit(opp, idx) {
					out = append(out, opp)
				}
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OpportunityValue > out[j].OpportunityValue
	})
	return out
}

// pair evaluates a single (symbol, exchangeA, exchangeB) candidate.
func (e *Engine) pair(sym string, exA, exB types.ExchangeID, ta, tb types.Ticker, now time.Time) (types.Opportunity, bool) {
	// a ticker without a last price or a full two-sided book is not a
	// quote; venues report empty book fields as zeros and a zero ask
	// would otherwise read as infinitely cheap
	if ta.Last == 0 || tb.Last == 0 {
		return types.Opportunity{}, false
	}
	if ta.Bid <= 0 || ta.Ask <= 0 || tb.Bid <= 0 || tb.Ask <= 0 {
		return types.Opportunity{}, false
	}

	lasb := ta.Ask / tb.Bid // cost ratio of buying A, selling B
	salb := ta.Bid / tb.Ask // cost ratio of selling A, buying B

	var direction types.Direction
	var value float64
	switch {
	case ta.Ask < tb.Bid:
		direction = types.LASB
		value = math.Abs(1 - lasb)
	case ta.Bid > tb.Ask:
		direction = types.SALB
		value = math.Abs(1 - salb)
	default:
		// books do not cross: no arbitrage window this cycle
		return types.Opportunity{}, false
	}

	fa, _ := e.funding.Funding(exA, sym)
	fb, _ := e.funding.Funding(exB, sym)

	diff := math.Abs(fa.Rate - fb.Rate)
	optimal := types.LASB
	if fa.Rate > fb.Rate {
		// longs pay shorts on the higher-rate leg: short it
		optimal = types.SALB
	}

	return types.Opportunity{
		Pair:      string(exA) + "-" + string(exB),
		ExchangeA: exA,
		ExchangeB: exB,
		Symbol:    sym,

		AskA:  ta.Ask,
		BidA:  ta.Bid,
		LastA: ta.Last,
		AskB:  tb.Ask,
		BidB:  tb.Bid,
		LastB: tb.Last,

		LASB: lasb,
		SALB: salb,

		Timestamp:        now.UTC().Format(time.RFC3339),
		Opportunity:      direction,
		OpportunityValue: value,

		FundingRateA:   fa.Rate,
		FundingTimeA:   fa.NextTime,
		FundingPeriodA: fa.IntervalHours,
		FundingRateB:   fb.Rate,
		FundingTimeB:   fb.NextTime,
		FundingPeriodB: fb.IntervalHours,

		FundingProfit: types.FundingProfit{
			RawDiff:          diff,
			ProfitPerPeriod:  diff,
			OptimalDirection: optimal,
		},
	}, true
}

func (e *Engine) admit(opp types.Opportunity, idx *SupportIndex) bool {
	for _, f := range e.filters {
		if !f(opp, idx) {
			return false
		}
	}
	return true
}
