package config

import (
	"fmt"
	"os"
	"time"

	"github.com/zengbo0710/zifei-panel/internal/types"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchanges []types.ExchangeID `yaml:"exchanges"`

	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Stream   string `yaml:"stream"`
		SnapNS   string `yaml:"snap_ns"`
	} `yaml:"redis"`

	Scan struct {
		CycleIntervalMs   int     `yaml:"cycle_interval_ms"`
		FundingRefreshMs  int     `yaml:"funding_refresh_ms"`
		MaxTickerAgeHours float64 `yaml:"max_ticker_age_hours"`
		FetchConcurrency  int     `yaml:"fetch_concurrency"`
	} `yaml:"scan"`

	Filters struct {
		BitgetMinVolumeUSDT float64 `yaml:"bitget_min_volume_usdt"`
		BitgetMinAbsFunding float64 `yaml:"bitget_min_abs_funding"`
	} `yaml:"filters"`

	HTTP struct {
		TimeoutMs      int     `yaml:"timeout_ms"`
		RatePerSec     float64 `yaml:"rate_per_sec"`
		BreakerMinReqs int     `yaml:"breaker_min_reqs"`
	} `yaml:"http"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if len(c.Exchanges) == 0 {
		c.Exchanges = append([]types.ExchangeID(nil), types.EnumOrder...)
	}
	for _, ex := range c.Exchanges {
		switch ex {
		case types.Binance, types.OKX, types.Bybit, types.Bitget:
		default:
			return nil, fmt.Errorf("unsupported exchange %q", ex)
		}
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":3001"
	}
	if c.Scan.CycleIntervalMs == 0 {
		c.Scan.CycleIntervalMs = 5000
	}
	if c.Scan.FundingRefreshMs == 0 {
		c.Scan.FundingRefreshMs = 60000
	}
	if c.Scan.MaxTickerAgeHours == 0 {
		c.Scan.MaxTickerAgeHours = 12
	}
	if c.Scan.FetchConcurrency == 0 {
		c.Scan.FetchConcurrency = 8
	}
	if c.Filters.BitgetMinVolumeUSDT == 0 {
		c.Filters.BitgetMinVolumeUSDT = 1_000_000
	}
	if c.Filters.BitgetMinAbsFunding == 0 {
		c.Filters.BitgetMinAbsFunding = 0.001
	}
	if c.HTTP.TimeoutMs == 0 {
		c.HTTP.TimeoutMs = 10000
	}
	if c.HTTP.RatePerSec == 0 {
		c.HTTP.RatePerSec = 10
	}
	if c.HTTP.BreakerMinReqs == 0 {
		c.HTTP.BreakerMinReqs = 5
	}
	return &c, nil
}

func (c *Config) CycleInterval() time.Duration {
	return time.Duration(c.Scan.CycleIntervalMs) * time.Millisecond
}
func (c *Config) FundingRefresh() time.Duration {
	return time.Duration(c.Scan.FundingRefreshMs) * time.Millisecond
}
func (c *Config) MaxTickerAge() time.Duration {
	return time.Duration(c.Scan.MaxTickerAgeHours * float64(time.Hour))
}
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutMs) * time.Millisecond
}
