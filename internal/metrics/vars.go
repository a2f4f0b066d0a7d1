package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zifei_cycle_duration_seconds",
		Help:    "Wall time of one full detection cycle",
		Buckets: prometheus.DefBuckets,
	})

	Opportunities = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zifei_opportunities",
		Help: "Opportunities in the currently published snapshot",
	})

	CyclesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zifei_cycles_skipped_total",
		Help: "Cycle ticks skipped because the previous cycle was still running",
	})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zifei_fetch_errors_total",
		Help: "Failed exchange fetches by exchange",
	}, []string{"exchange"})

	FundingCacheEntries = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "zifei_funding_cache_entries",
		Help: "Symbols currently held in each funding cache",
	}, []string{"exchange"})
)

func init() {
	prometheus.MustRegister(
		CycleDuration,
		Opportunities,
		CyclesSkipped,
		FetchErrors,
		FundingCacheEntries,
	)
}
