// Package reaction measures how a security's close-to-close price moved on the
// trading days attributed to its earnings announcements
//
// The pipeline is: sort announcements by date, normalize each one to a trading day
// (Saturday and cutoff-time rules), resolve each day against a BarFetcher with a bounded
// forward search, and aggregate the resulting percent changes into summary statistics
package reaction

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

var (
	ErrEmptySymbol  = errors.New("symbol is required")
	ErrNoTimestamps = errors.New("at least one announcement timestamp is required")
	ErrInvalidDate  = errors.New("invalid announcement date")
)

// MetricsRecorder receives per-analysis observations
type MetricsRecorder interface {
	RecordResolution(outcome string)
	RecordAnalysisDuration(seconds float64)
}

// Analyzer runs the full normalize, resolve, aggregate pipeline for one ticker batch
// It holds no per-request state and is safe for concurrent use
type Analyzer struct {
	resolver *Resolver
	cutoff   Cutoff
	logger   zerolog.Logger
	metrics  MetricsRecorder
	now      func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithCutoff overrides the 15:15 cutoff
func WithCutoff(c Cutoff) Option {
	return func(a *Analyzer) {
		a.cutoff = c
	}
}

// WithLogger sets the logger used for diagnostic notices
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = l
	}
}

// WithMetrics sets a metrics recorder
func WithMetrics(m MetricsRecorder) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithClock overrides the clock used for AnalyzedAt
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// NewAnalyzer creates an Analyzer backed by fetcher
func NewAnalyzer(fetcher BarFetcher, windowDays, maxAttempts int, opts ...Option) *Analyzer {
	a := &Analyzer{
		resolver: NewResolver(fetcher, windowDays, maxAttempts),
		cutoff:   Cutoff{hour: 15, minute: 15},
		logger:   zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes one reaction record per timestamp plus summary statistics
// Records are ordered by announcement date ascending; ties keep input order
// Missing market data degrades to absent fields. Only invalid arguments and
// market-data source failures return an error
func (a *Analyzer) Analyze(ctx context.Context, symbol string, timestamps []models.AnnouncementTimestamp) (*models.AnalysisResult, error) {
	start := time.Now()

	ticker := strings.ToUpper(strings.TrimSpace(symbol))
	if ticker == "" {
		return nil, ErrEmptySymbol
	}
	if len(timestamps) == 0 {
		return nil, ErrNoTimestamps
	}

	dates, clocks, err := sortByDate(timestamps)
	if err != nil {
		return nil, err
	}

	days, notices := NormalizeAll(dates, clocks, a.cutoff)

	resolutions, fallback, err := a.resolver.Resolve(ctx, ticker, days)
	if err != nil {
		return nil, err
	}
	notices = append(notices, fallback...)

	records := Records(resolutions)
	result := &models.AnalysisResult{
		Ticker:     ticker,
		Records:    records,
		Stats:      Aggregate(records),
		Notices:    notices,
		AnalyzedAt: a.now().UTC(),
	}

	for _, n := range notices {
		a.logger.Debug().
			Str("ticker", ticker).
			Str("kind", string(n.Kind)).
			Str("original_date", n.OriginalDate).
			Msg(n.Message)
	}
	if a.metrics != nil {
		for _, res := range resolutions {
			a.metrics.RecordResolution(res.Outcome.String())
		}
		a.metrics.RecordAnalysisDuration(time.Since(start).Seconds())
	}

	a.logger.Info().
		Str("ticker", ticker).
		Int("inputs", len(timestamps)).
		Int("valid_changes", result.Stats.ValidChanges).
		Dur("elapsed", time.Since(start)).
		Msg("earnings reaction analysis complete")

	return result, nil
}

// sortByDate parses every date and returns parallel date/time slices ordered by date
func sortByDate(timestamps []models.AnnouncementTimestamp) ([]time.Time, []string, error) {
	type entry struct {
		date  time.Time
		clock string
	}
	entries := make([]entry, len(timestamps))
	for i, ts := range timestamps {
		d, err := ts.ParseDate()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDate, err)
		}
		entries[i] = entry{date: d, clock: strings.TrimSpace(ts.Time)}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.Before(entries[j].date)
	})

	dates := make([]time.Time, len(entries))
	clocks := make([]string, len(entries))
	for i, e := range entries {
		dates[i] = e.date
		clocks[i] = e.clock
	}
	return dates, clocks, nil
}
