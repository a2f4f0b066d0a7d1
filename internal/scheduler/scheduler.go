// Package scheduler drives the periodic detection cycle and the
// slower, independent funding-cache refreshes. All per-exchange and
// per-symbol failures stay inside a cycle; nothing scheduled ever
// takes the process down.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zengbo0710/zifei-panel/internal/config"
	"github.com/zengbo0710/zifei-panel/internal/engine"
	"github.com/zengbo0710/zifei-panel/internal/exchange"
	"github.com/zengbo0710/zifei-panel/internal/funding"
	"github.com/zengbo0710/zifei-panel/internal/metrics"
	"github.com/zengbo0710/zifei-panel/internal/store"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Feed receives each published snapshot (the Redis publisher). A nil
// Feed disables publication.
type Feed interface {
	Publish(ctx context.Context, snap *types.Snapshot) error
}

type Scheduler struct {
	cfg      *config.Config
	registry *exchange.Registry
	caches   map[types.ExchangeID]*funding.Cache
	engine   *engine.Engine
	store    *store.Store
	feed     Feed
	log      *zap.Logger

	inCycle atomic.Bool
	running atomic.Bool
}

func New(cfg *config.Config, reg *exchange.Registry, caches map[types.ExchangeID]*funding.Cache, store *store.Store, feed Feed, log *zap.Logger) *Scheduler {
	s := &Scheduler{
		cfg:      cfg,
		registry: reg,
		caches:   caches,
		store:    store,
		feed:     feed,
		log:      log,
	}
	filters := []engine.Predicate{
		engine.LiquidityRule(types.Bitget, cfg.Filters.BitgetMinVolumeUSDT, cfg.Filters.BitgetMinAbsFunding),
	}
	s.engine = engine.New(s, filters...)
	return s
}

// Funding implements engine.FundingLookup over the per-exchange caches.
func (s *Scheduler) Funding(ex types.ExchangeID, symbol string) (types.FundingRate, bool) {
	c, ok := s.caches[ex]
	if !ok {
		return types.FundingRate{IntervalHours: types.DefaultFundingPeriodHours}, false
	}
	return c.Get(symbol)
}

// IsRunning reports whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool { return s.running.Load() }

// Run blocks until ctx is cancelled. One goroutine owns the cycle
// timer; each funding cache gets its own refresh goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	var wg sync.WaitGroup
	for _, c := range s.caches {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.refreshLoop(ctx, c)
		}()
	}

	t := time.NewTicker(s.cfg.CycleInterval())
	defer t.Stop()

	s.tryCycle(ctx)
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-t.C:
			s.tryCycle(ctx)
		}
	}
}

// tryCycle runs one detection cycle unless the previous one is still
// going; overlapping ticks are skipped, never run concurrently.
func (s *Scheduler) tryCycle(ctx context.Context) {
	if !s.inCycle.CompareAndSwap(false, true) {
		metrics.CyclesSkipped.Inc()
		s.log.Warn("previous cycle still running, skipping tick")
		return
	}
	defer s.inCycle.Store(false)

	start := time.Now()
	s.runCycle(ctx)
	metrics.CycleDuration.Observe(time.Since(start).Seconds())
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()
	perExchange := make(map[types.ExchangeID]map[string]types.Ticker)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Scan.FetchConcurrency)
	for _, a := range s.registry.All() {
		a := a
		g.Go(func() error {
			tickers, err := a.FetchTickers(gctx)
			if err != nil {
				// the exchange is simply absent from this cycle's index
				s.log.Warn("ticker fetch failed",
					zap.String("exchange", string(a.ID())), zap.Error(err))
				metrics.FetchErrors.WithLabelValues(string(a.ID())).Inc()
				return nil
			}
			mu.Lock()
			perExchange[a.ID()] = tickers
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if len(perExchange) == 0 {
		// total cycle failure: keep the previous snapshot and its
		// lastUpdate so clients can observe staleness
		s.log.Error("all exchanges failed, retaining previous snapshot")
		return
	}

	// merge ticker-borne funding rates (rate only, settlement details
	// kept from the last full refresh)
	for _, a := range s.registry.All() {
		tf, ok := a.(exchange.TickerFundingSource)
		if !ok {
			continue
		}
		cache, ok := s.caches[a.ID()]
		if !ok {
			continue
		}
		if _, fetched := perExchange[a.ID()]; !fetched {
			continue
		}
		for sym, rate := range tf.TickerFundingRates() {
			cache.MergeRate(sym, rate)
		}
	}

	now := time.Now()
	idx := engine.BuildIndex(s.registry.Order(), perExchange, s.cfg.MaxTickerAge(), now)
	opps := s.engine.Compute(idx, now)

	s.store.Publish(opps, now)
	metrics.Opportunities.Set(float64(len(opps)))
	s.log.Info("cycle complete",
		zap.Int("exchanges", len(perExchange)),
		zap.Int("opportunities", len(opps)),
		zap.Duration("took", time.Since(start)))

	if s.feed != nil {
		if err := s.feed.Publish(ctx, s.store.Current()); err != nil {
			s.log.Warn("feed publish failed", zap.Error(err))
		}
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context, c *funding.Cache) {
	// first refresh straight away so the first cycles are not all
	// running on zero-rate fallbacks
	c.Refresh(ctx, s.restrictedSymbols(c.Exchange()))

	t := time.NewTicker(s.cfg.FundingRefresh())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Refresh(ctx, s.restrictedSymbols(c.Exchange()))
		}
	}
}

// restrictedSymbols lists the canonical symbols whose published
// opportunities touch the given exchange. Per-symbol venues refresh
// only these instead of walking every listed contract.
func (s *Scheduler) restrictedSymbols(ex types.ExchangeID) []string {
	snap := s.store.Current()
	seen := make(map[string]struct{})
	var out []string
	for _, o := range snap.Opportunities {
		if o.ExchangeA != ex && o.ExchangeB != ex {
			continue
		}
		if _, dup := seen[o.Symbol]; dup {
			continue
		}
		seen[o.Symbol] = struct{}{}
		out = append(out, o.Symbol)
	}
	return out
}
