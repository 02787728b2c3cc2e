package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a portfolio position keyed by symbol. Like AnalysisResult it is
// an upsert target: CreatedAt is immutable, UpdatedAt advances on each write.
type Holding struct {
	Symbol         string          `json:"symbol"`
	Quantity       decimal.Decimal `json:"quantity"`
	BreakEvenPrice decimal.Decimal `json:"break_even_price"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	Notes          string          `json:"notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at,omitempty"`
}

// NewHolding validates and constructs a Holding. All financial values must be
// strictly positive; notes are trimmed.
func NewHolding(symbol string, quantity, breakEvenPrice, totalCost decimal.Decimal, notes string) (Holding, error) {
	sym := NormalizeSymbol(symbol)
	if !ValidTicker(sym) {
		return Holding{}, fmt.Errorf("invalid holding symbol %q", symbol)
	}

	if !quantity.IsPositive() {
		return Holding{}, fmt.Errorf("quantity must be positive, got %s (symbol=%s)", quantity, sym)
	}
	if !breakEvenPrice.IsPositive() {
		return Holding{}, fmt.Errorf("break-even price must be positive, got %s (symbol=%s)", breakEvenPrice, sym)
	}
	if !totalCost.IsPositive() {
		return Holding{}, fmt.Errorf("total cost must be positive, got %s (symbol=%s)", totalCost, sym)
	}

	return Holding{
		Symbol:         sym,
		Quantity:       quantity,
		BreakEvenPrice: breakEvenPrice,
		TotalCost:      totalCost,
		Notes:          strings.TrimSpace(notes),
	}, nil
}
