package models

import (
	"strings"
	"time"
)

// MarketSymbol is the sentinel symbol for market-wide items that could not be
// attributed to any watched ticker.
const MarketSymbol = "MARKET"

// NormalizeSymbol trims and upper-cases a raw symbol string.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidTicker reports whether s looks like a listed ticker: 1-5 letters A-Z.
func ValidTicker(s string) bool {
	if len(s) < 1 || len(s) > 5 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// ParseSymbols parses a comma-separated string into an order-preserving,
// deduplicated list of upper-case tickers. Entries that do not match the
// ticker shape are dropped. If filterTo is non-empty, only symbols present in
// that watchlist are returned.
func ParseSymbols(raw string, filterTo []string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var allow map[string]struct{}
	if len(filterTo) > 0 {
		allow = make(map[string]struct{}, len(filterTo))
		for _, s := range filterTo {
			if n := NormalizeSymbol(s); n != "" {
				allow[n] = struct{}{}
			}
		}
	}

	seen := make(map[string]struct{})
	var out []string
	for _, tok := range strings.Split(raw, ",") {
		sym := NormalizeSymbol(tok)
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		if !ValidTicker(sym) {
			continue
		}
		if allow != nil {
			if _, ok := allow[sym]; !ok {
				continue
			}
		}
		out = append(out, sym)
		seen[sym] = struct{}{}
	}
	return out
}

// NormalizeTime converts a timestamp to UTC and truncates it to whole seconds,
// the precision everything is persisted at.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
