// Package marketdata provides daily price bar sources for reaction analysis
//
// Sources compose: a RedisCache in front of a Store (Postgres read-through) in front
// of the YahooClient. Every layer implements Fetcher
package marketdata

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// Fetcher returns daily bars for symbol dated in [start, end), ascending by date
// An empty slice with a nil error means the source has no data for the window
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// FetchRecorder observes fetch outcomes per source
type FetchRecorder interface {
	RecordFetch(source, result string)
}

// Fetch results reported to a FetchRecorder
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultEmpty = "empty"
	ResultError = "error"
)

// APIError represents a non-success response from an upstream market-data API
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("market data API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// inWindow keeps bars dated in [start, end)
func inWindow(bars []models.PriceBar, start, end time.Time) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		if !b.Date.Before(start) && b.Date.Before(end) {
			out = append(out, b)
		}
	}
	return out
}

// windowsCover reports whether the union of windows spans [start, end) without gaps
func windowsCover(windows []models.FetchWindow, start, end time.Time) bool {
	sorted := make([]models.FetchWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	covered := start
	for _, w := range sorted {
		if !covered.Before(end) {
			break
		}
		if w.Start.After(covered) {
			return false
		}
		if w.End.After(covered) {
			covered = w.End
		}
	}
	return !covered.Before(end)
}

// Settlement decides which exchange dates carry final daily bars. The bar for
// the current exchange date can still move while the session is open, so only
// dates before it are settled
type Settlement struct {
	Now      func() time.Time
	Location *time.Location
}

// DefaultSettlement uses the wall clock in UTC
func DefaultSettlement() Settlement {
	return Settlement{Now: time.Now, Location: time.UTC}
}

// Today returns the current exchange date as a UTC midnight, the first date
// whose bar is not yet settled
func (s Settlement) Today() time.Time {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// settledBars keeps bars dated before today
func settledBars(bars []models.PriceBar, today time.Time) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(today) {
			out = append(out, b)
		}
	}
	return out
}

func record(r FetchRecorder, source, result string) {
	if r != nil {
		r.RecordFetch(source, result)
	}
}
