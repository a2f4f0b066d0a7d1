package symbols

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zengbo0710/zifei-panel/internal/types"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		ex   types.ExchangeID
		raw  string
		want string
	}{
		{types.Binance, "BTCUSDT", "BTC/USDT:USDT"},
		{types.Bybit, "ETHUSDT", "ETH/USDT:USDT"},
		{types.OKX, "BTC-USDT-SWAP", "BTC/USDT:USDT"},
		{types.Bitget, "SOLUSDT", "SOL/USDT:USDT"},
		{types.Bitget, "SOLUSDT_UMCBL", "SOL/USDT:USDT"},
		// quoted in something else: passed through untouched
		{types.Binance, "BTCBUSD", "BTCBUSD"},
		{types.OKX, "BTC-USD-SWAP", "BTC-USD-SWAP"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.ex, c.raw), "%s %s", c.ex, c.raw)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	for _, ex := range types.EnumOrder {
		for _, raw := range []string{"BTCUSDT", "BTC-USDT-SWAP", "BTC/USDT:USDT", "garbage"} {
			once := Normalize(ex, raw)
			assert.Equal(t, once, Normalize(ex, once), "%s %s", ex, raw)
		}
	}
}

func TestNative(t *testing.T) {
	assert.Equal(t, "BTCUSDT", Native(types.Binance, "BTC/USDT:USDT"))
	assert.Equal(t, "BTCUSDT", Native(types.Bitget, "BTC/USDT:USDT"))
	assert.Equal(t, "BTC-USDT-SWAP", Native(types.OKX, "BTC/USDT:USDT"))
}

func TestBase(t *testing.T) {
	assert.Equal(t, "ETH", Base("ETH/USDT:USDT"))
	assert.Equal(t, "ETHUSDT", Base("ETHUSDT"))
}
