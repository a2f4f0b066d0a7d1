package engine

import (
	"math"

	"github.com/zengbo0710/zifei-panel/internal/types"
)

// Predicate admits or drops a computed opportunity before publication.
// Returning false drops it outright, it is not merely demoted.
type Predicate func(opp types.Opportunity, idx *SupportIndex) bool

// LiquidityRule gates any opportunity touching a thin venue: that
// venue's 24h quote volume for the symbol must reach minVolume AND the
// absolute funding rate on its leg must reach minAbsFunding. Other
// venues pass unrestricted.
func LiquidityRule(ex types.ExchangeID, minVolume, minAbsFunding float64) Predicate {
	return func(opp types.Opportunity, idx *SupportIndex) bool {
		var rate float64
		switch ex {
		case opp.ExchangeA:
			rate = opp.FundingRateA
		case opp.ExchangeB:
			rate = opp.FundingRateB
		default:
			return true
		}

		t, ok := idx.Ticker(ex, opp.Symbol)
		if !ok || t.QuoteVolume < minVolume {
			return false
		}
		return math.Abs(rate) >= minAbsFunding
	}
}
