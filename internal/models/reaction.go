package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReactionRecord is the measured market reaction for one announcement
// OriginalDate is always the caller's pre-normalization date
type ReactionRecord struct {
	OriginalDate  string              `json:"date"`
	PercentChange decimal.NullDecimal `json:"price_change_pct"`
	Open          decimal.NullDecimal `json:"open"`
	High          decimal.NullDecimal `json:"high"`
	Low           decimal.NullDecimal `json:"low"`
	Close         decimal.NullDecimal `json:"close"`
}

// Resolved reports whether a bar was found for the record
func (r ReactionRecord) Resolved() bool {
	return r.Close.Valid
}

// HistogramBin counts signed percent changes in [Start, End)
type HistogramBin struct {
	Start     int `json:"bin_start"`
	End       int `json:"bin_end"`
	Frequency int `json:"frequency"`
}

// SummaryStats summarizes absolute percent changes over a batch
type SummaryStats struct {
	TotalInputDates int                 `json:"total_input_dates"`
	ValidChanges    int                 `json:"valid_changes"`
	AbsoluteMean    decimal.NullDecimal `json:"absolute_mean"`
	FirstStdBand    decimal.NullDecimal `json:"first_std"`
	SecondStdBand   decimal.NullDecimal `json:"second_std"`
	ThirdStdBand    decimal.NullDecimal `json:"third_std"`
	ExceedFirstStd  int                 `json:"exceed_first_std"`
	ExceedSecondStd int                 `json:"exceed_second_std"`
	Histogram       []HistogramBin      `json:"histogram"`
}

// AnalysisResult is the full output for one ticker batch
type AnalysisResult struct {
	Ticker     string           `json:"ticker"`
	Records    []ReactionRecord `json:"results"`
	Stats      SummaryStats     `json:"stats"`
	Notices    []Notice         `json:"notices"`
	AnalyzedAt time.Time        `json:"analyzed_at"`
}
