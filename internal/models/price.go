package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Session identifies the trading session a price tick was observed in.
type Session string

const (
	SessionPre    Session = "PRE"
	SessionReg    Session = "REG"
	SessionPost   Session = "POST"
	SessionClosed Session = "CLOSED"
)

// PriceTick is a single observed price for a symbol, keyed by
// (symbol, timestamp). Price keeps the provider's exact decimal precision.
type PriceTick struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Price     decimal.Decimal `json:"price"`
	Volume    *int64          `json:"volume,omitempty"`
	Session   Session         `json:"session"`
}

// NewPriceTick validates and constructs a PriceTick. Price must be strictly
// positive and volume, when present, non-negative.
func NewPriceTick(symbol string, timestamp time.Time, price decimal.Decimal, volume *int64, session Session) (PriceTick, error) {
	sym := NormalizeSymbol(symbol)
	if !ValidTicker(sym) {
		return PriceTick{}, fmt.Errorf("invalid price symbol %q", symbol)
	}

	if timestamp.IsZero() {
		return PriceTick{}, fmt.Errorf("price timestamp cannot be zero (symbol=%s)", sym)
	}

	if !price.IsPositive() {
		return PriceTick{}, fmt.Errorf("price must be positive, got %s (symbol=%s)", price, sym)
	}

	if volume != nil && *volume < 0 {
		return PriceTick{}, fmt.Errorf("volume cannot be negative, got %d (symbol=%s)", *volume, sym)
	}

	switch session {
	case SessionPre, SessionReg, SessionPost, SessionClosed:
	default:
		return PriceTick{}, fmt.Errorf("invalid session %q (symbol=%s)", session, sym)
	}

	return PriceTick{
		Symbol:    sym,
		Timestamp: NormalizeTime(timestamp),
		Price:     price,
		Volume:    volume,
		Session:   session,
	}, nil
}

// RecordSymbol implements the watermark record contract.
func (p PriceTick) RecordSymbol() string { return p.Symbol }

// RecordTime implements the watermark record contract.
func (p PriceTick) RecordTime() time.Time { return p.Timestamp }
