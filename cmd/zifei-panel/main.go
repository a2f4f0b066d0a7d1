package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/zengbo0710/zifei-panel/internal/api"
	"github.com/zengbo0710/zifei-panel/internal/config"
	"github.com/zengbo0710/zifei-panel/internal/exchange"
	"github.com/zengbo0710/zifei-panel/internal/feed"
	"github.com/zengbo0710/zifei-panel/internal/funding"
	"github.com/zengbo0710/zifei-panel/internal/metrics"
	"github.com/zengbo0710/zifei-panel/internal/scheduler"
	"github.com/zengbo0710/zifei-panel/internal/store"
	"github.com/zengbo0710/zifei-panel/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	registry, err := exchange.NewRegistry(cfg.Exchanges, exchange.ClientOptions{
		Timeout:        cfg.HTTPTimeout(),
		RatePerSec:     cfg.HTTP.RatePerSec,
		BreakerMinReqs: cfg.HTTP.BreakerMinReqs,
	}, logger)
	if err != nil {
		logger.Fatal("failed to build exchange registry", zap.Error(err))
	}

	caches := make(map[types.ExchangeID]*funding.Cache, len(registry.Order()))
	for _, a := range registry.All() {
		caches[a.ID()] = funding.NewCache(a, cfg.Scan.FetchConcurrency, logger)
	}

	st := store.New()

	var pub scheduler.Feed
	if p := feed.NewPublisher(cfg); p != nil {
		defer p.Close()
		pub = p
		logger.Info("redis feed enabled", zap.String("addr", cfg.Redis.Addr))
	}

	sched := scheduler.New(cfg, registry, caches, st, pub, logger)

	srv := api.NewServer(st, registry, caches, sched, logger)
	srv.Serve(ctx, cfg.Server.ListenAddr)

	logger.Info("scanner starting",
		zap.Any("exchanges", cfg.Exchanges),
		zap.Duration("cycle_interval", cfg.CycleInterval()),
		zap.Duration("funding_refresh", cfg.FundingRefresh()))
	sched.Run(ctx)
}
