package api

import (
	"github.com/shopspring/decimal"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// AnalysisResponse is the JSON body returned for an analysis. Absent values encode as null
type AnalysisResponse struct {
	Ticker  string           `json:"ticker"`
	Results []RecordResponse `json:"results"`
	Stats   StatsResponse    `json:"stats"`
	Notices []models.Notice  `json:"notices"`
}

// RecordResponse is one announcement's reaction
type RecordResponse struct {
	Date           string   `json:"date"`
	PriceChangePct *float64 `json:"price_change_pct"`
	Open           *float64 `json:"open"`
	High           *float64 `json:"high"`
	Low            *float64 `json:"low"`
	Close          *float64 `json:"close"`
}

// StatsResponse carries the batch summary statistics
type StatsResponse struct {
	TotalInputDates int                   `json:"total_input_dates"`
	AbsoluteMean    *float64              `json:"absolute_mean"`
	FirstStd        *float64              `json:"first_std"`
	SecondStd       *float64              `json:"second_std"`
	ThirdStd        *float64              `json:"third_std"`
	ExceedFirstStd  int                   `json:"exceed_first_std"`
	ExceedSecondStd int                   `json:"exceed_second_std"`
	Histogram       []models.HistogramBin `json:"histogram"`
}

func newAnalysisResponse(r *models.AnalysisResult) AnalysisResponse {
	results := make([]RecordResponse, 0, len(r.Records))
	for _, rec := range r.Records {
		results = append(results, RecordResponse{
			Date:           rec.OriginalDate,
			PriceChangePct: floatPtr(rec.PercentChange),
			Open:           floatPtr(rec.Open),
			High:           floatPtr(rec.High),
			Low:            floatPtr(rec.Low),
			Close:          floatPtr(rec.Close),
		})
	}

	notices := r.Notices
	if notices == nil {
		notices = []models.Notice{}
	}

	return AnalysisResponse{
		Ticker:  r.Ticker,
		Results: results,
		Stats: StatsResponse{
			TotalInputDates: r.Stats.TotalInputDates,
			AbsoluteMean:    floatPtr(r.Stats.AbsoluteMean),
			FirstStd:        floatPtr(r.Stats.FirstStdBand),
			SecondStd:       floatPtr(r.Stats.SecondStdBand),
			ThirdStd:        floatPtr(r.Stats.ThirdStdBand),
			ExceedFirstStd:  r.Stats.ExceedFirstStd,
			ExceedSecondStd: r.Stats.ExceedSecondStd,
			Histogram:       r.Stats.Histogram,
		},
		Notices: notices,
	}
}

func floatPtr(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	f := d.Decimal.InexactFloat64()
	return &f
}
