package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zengbo0710/zifei-panel/internal/types"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, "{}"))
	require.NoError(t, err)

	assert.Equal(t, types.EnumOrder, c.Exchanges)
	assert.Equal(t, ":3001", c.Server.ListenAddr)
	assert.Equal(t, 5*time.Second, c.CycleInterval())
	assert.Equal(t, time.Minute, c.FundingRefresh())
	assert.Equal(t, 12*time.Hour, c.MaxTickerAge())
	assert.Equal(t, 1_000_000.0, c.Filters.BitgetMinVolumeUSDT)
	assert.Equal(t, 0.001, c.Filters.BitgetMinAbsFunding)
	assert.Equal(t, 10*time.Second, c.HTTPTimeout())
}

func TestLoadOverrides(t *testing.T) {
	c, err := Load(writeConfig(t, `
exchanges: [BINANCE, OKX]
server:
  listen_addr: ":8080"
scan:
  cycle_interval_ms: 1000
  max_ticker_age_hours: 0.5
filters:
  bitget_min_volume_usdt: 250000
`))
	require.NoError(t, err)

	assert.Equal(t, []types.ExchangeID{types.Binance, types.OKX}, c.Exchanges)
	assert.Equal(t, ":8080", c.Server.ListenAddr)
	assert.Equal(t, time.Second, c.CycleInterval())
	assert.Equal(t, 30*time.Minute, c.MaxTickerAge())
	assert.Equal(t, 250000.0, c.Filters.BitgetMinVolumeUSDT)
}

func TestLoadRejectsUnknownExchange(t *testing.T) {
	_, err := Load(writeConfig(t, "exchanges: [GATE]"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exchange")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
