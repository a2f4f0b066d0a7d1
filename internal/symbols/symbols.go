// Package symbols maps each exchange's raw contract spelling to one
// canonical form so quotes from different venues can be joined.
//
// Canonical form is "BASE/USDT:USDT" (base/quote with an explicit
// settlement-asset suffix), the spelling the dashboard already expects.
package symbols

import (
	"strings"

	"github.com/zengbo0710/zifei-panel/internal/types"
)

const quote = "USDT"

// Canonical builds the canonical spelling for a base asset.
func Canonical(base string) string {
	return base + "/" + quote + ":" + quote
}

// IsCanonical reports whether s is already in canonical form.
func IsCanonical(s string) bool {
	return strings.Contains(s, "/") && strings.Contains(s, ":")
}

// Normalize rewrites an exchange's raw symbol into canonical form.
// Idempotent: an already-canonical string passes through unchanged, as
// does anything the exchange mapping cannot interpret (best effort —
// unknown contracts simply never match across venues).
func Normalize(ex types.ExchangeID, raw string) string {
	if IsCanonical(raw) {
		return raw
	}

	switch ex {
	case types.OKX:
		// "BTC-USDT-SWAP"
		parts := strings.Split(raw, "-")
		if len(parts) == 3 && parts[1] == quote && parts[2] == "SWAP" {
			return Canonical(parts[0])
		}
	case types.Bitget:
		// "BTCUSDT" from the v2 mix API; older APIs append a
		// product suffix like "BTCUSDT_UMCBL".
		if i := strings.IndexByte(raw, '_'); i >= 0 {
			raw = raw[:i]
		}
		if base, ok := trimQuote(raw); ok {
			return Canonical(base)
		}
	case types.Binance, types.Bybit:
		// "BTCUSDT"
		if base, ok := trimQuote(raw); ok {
			return Canonical(base)
		}
	}
	return raw
}

// Native converts a canonical symbol back to the spelling an
// exchange's API expects for per-symbol requests.
func Native(ex types.ExchangeID, canonical string) string {
	base := Base(canonical)
	switch ex {
	case types.OKX:
		return base + "-" + quote + "-SWAP"
	default:
		return base + quote
	}
}

// Base extracts the base asset from a canonical symbol
// ("BTC/USDT:USDT" -> "BTC"). Non-canonical input is returned as-is.
func Base(canonical string) string {
	if i := strings.IndexByte(canonical, '/'); i >= 0 {
		return canonical[:i]
	}
	return canonical
}

func trimQuote(raw string) (string, bool) {
	if strings.HasSuffix(raw, quote) && len(raw) > len(quote) {
		return strings.TrimSuffix(raw, quote), true
	}
	return "", false
}
