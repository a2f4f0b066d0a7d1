// Package feed mirrors each published snapshot into Redis so other
// consumers (alerting, history collectors) can follow the scanner
// without going through the HTTP API.
package feed

import (
	"context"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/zengbo0710/zifei-panel/internal/config"
	"github.com/zengbo0710/zifei-panel/internal/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Publisher struct {
	rdb    *redis.Client
	stream string
	snapNS string
}

// NewPublisher connects to Redis using the config block and fills in
// key defaults. Returns nil when no address is configured.
func NewPublisher(cfg *config.Config) *Publisher {
	if cfg.Redis.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	stream := cfg.Redis.Stream
	if stream == "" {
		stream = "opps:stream"
	}
	snapNS := cfg.Redis.SnapNS
	if snapNS == "" {
		snapNS = "opps:snap:"
	}
	return &Publisher{rdb: rdb, stream: stream, snapNS: snapNS}
}

// Publish stores the full snapshot under <ns>latest and appends a
// compact entry to the capped stream.
func (p *Publisher) Publish(ctx context.Context, snap *types.Snapshot) error {
	b, err := json.Marshal(snap.Opportunities)
	if err != nil {
		return err
	}
	if err := p.rdb.Set(ctx, p.snapNS+"latest", b, 0).Err(); err != nil {
		return err
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"count":       len(snap.Opportunities),
			"last_update": snap.LastUpdate.UTC().Format(time.RFC3339),
		},
	}).Err()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
