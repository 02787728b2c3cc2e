package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tickerwatch/ingest-service/internal/models"
)

// isoLayout is the persisted timestamp format: second precision, always UTC,
// always Z-suffixed. The fixed width keeps the text lexicographically
// ordered, which the watermark advance-only SQL and the prune cutoff rely on.
const isoLayout = "2006-01-02T15:04:05Z"

// naiveLayout accepts offset-less timestamps, which are treated as UTC.
const naiveLayout = "2006-01-02T15:04:05"

// timeToISO encodes a timestamp as second-precision UTC ISO-8601 text.
func timeToISO(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(isoLayout)
}

// isoToTime parses persisted or provider ISO text back to a UTC instant.
// Offset timestamps are converted to UTC; naive ones are assumed UTC.
func isoToTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	if t, err := time.Parse(naiveLayout, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid timestamp text %q", s)
}

// decimalToText encodes a decimal with its exact original precision.
// Decimal.String trims trailing fractional zeros, so negative-exponent values
// are rendered at their own scale instead ("10.0" stays "10.0").
func decimalToText(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// textToDecimal parses persisted decimal text, preserving scale.
func textToDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid decimal text %q: %w", s, err)
	}
	return d, nil
}

// importanceToNull maps the tri-state flag onto the nullable boolean column.
func importanceToNull(i models.Importance) sql.NullBool {
	switch i {
	case models.ImportanceImportant:
		return sql.NullBool{Bool: true, Valid: true}
	case models.ImportanceNotImportant:
		return sql.NullBool{Bool: false, Valid: true}
	default:
		return sql.NullBool{}
	}
}

// importanceFromNull maps the nullable boolean column back to the tri-state.
func importanceFromNull(b sql.NullBool) models.Importance {
	switch {
	case !b.Valid:
		return models.ImportanceUnknown
	case b.Bool:
		return models.ImportanceImportant
	default:
		return models.ImportanceNotImportant
	}
}
