package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used on every external surface
const DateLayout = "2006-01-02"

// PriceBar represents one daily OHLCV session for a symbol
// Upstream feeds occasionally return partial rows, so every price is nullable
type PriceBar struct {
	ID        int                 `json:"id,omitempty"`
	Symbol    string              `json:"symbol"`
	Date      time.Time           `json:"date"`
	Open      decimal.NullDecimal `json:"open"`
	High      decimal.NullDecimal `json:"high"`
	Low       decimal.NullDecimal `json:"low"`
	Close     decimal.NullDecimal `json:"close"`
	Volume    int64               `json:"volume"`
	CreatedAt time.Time           `json:"created_at,omitempty"`
}

// HasClose reports whether the bar carries a usable close price
func (b PriceBar) HasClose() bool {
	return b.Close.Valid
}

// Complete reports whether all four prices are present
func (b PriceBar) Complete() bool {
	return b.Open.Valid && b.High.Valid && b.Low.Valid && b.Close.Valid
}

// SameDay reports whether t falls on the bar's calendar date
func (b PriceBar) SameDay(t time.Time) bool {
	y1, m1, d1 := b.Date.Date()
	y2, m2, d2 := t.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Dec wraps a decimal as a valid NullDecimal
func Dec(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// DecFloat builds a valid NullDecimal from a float
func DecFloat(f float64) decimal.NullDecimal {
	return Dec(decimal.NewFromFloat(f))
}

// FetchWindow records a [Start, End) range whose daily bars were loaded from
// upstream as a whole
type FetchWindow struct {
	Symbol    string    `json:"symbol"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	FetchedAt time.Time `json:"fetched_at,omitempty"`
}
