package reaction

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// Resolver defaults
const (
	DefaultWindowDays          = 7
	DefaultMaxFallbackAttempts = 10
)

var hundred = decimal.NewFromInt(100)

// BarFetcher returns daily bars for symbol dated in [start, end)
// An empty result means the source has no data for the window
type BarFetcher interface {
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error)
}

// Outcome tags how a normalized day was resolved
type Outcome int

const (
	// OutcomeResolved found a bar and a prior close
	OutcomeResolved Outcome = iota
	// OutcomeNoPriorClose found a bar but nothing earlier in the window to compare against
	OutcomeNoPriorClose
	// OutcomeExhausted used every probe without finding a usable bar
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNoPriorClose:
		return "no_prior_close"
	case OutcomeExhausted:
		return "exhausted"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Resolution is the result of probing the market-data source for one normalized day
type Resolution struct {
	Day          models.NormalizedDay
	Outcome      Outcome
	Attempts     int
	ResolvedDate time.Time
	Bar          models.PriceBar
	PriorClose   decimal.NullDecimal
}

// Record converts the resolution into the caller-facing record
func (r Resolution) Record() models.ReactionRecord {
	rec := models.ReactionRecord{OriginalDate: r.Day.OriginalDate}
	if r.Outcome == OutcomeExhausted {
		return rec
	}

	rec.Open = round2(r.Bar.Open)
	rec.High = round2(r.Bar.High)
	rec.Low = round2(r.Bar.Low)
	rec.Close = round2(r.Bar.Close)
	if r.Outcome == OutcomeResolved {
		change := r.Bar.Close.Decimal.Sub(r.PriorClose.Decimal).
			Div(r.PriorClose.Decimal).
			Mul(hundred)
		rec.PercentChange = models.Dec(change.RoundBank(2))
	}
	return rec
}

// Resolver finds the reaction bar for each normalized day, probing forward day by day
// when the source has no usable row
type Resolver struct {
	fetcher     BarFetcher
	windowDays  int
	maxAttempts int
}

// NewResolver creates a Resolver. Non-positive window or attempt values fall back to the defaults
func NewResolver(fetcher BarFetcher, windowDays, maxAttempts int) *Resolver {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxFallbackAttempts
	}
	return &Resolver{
		fetcher:     fetcher,
		windowDays:  windowDays,
		maxAttempts: maxAttempts,
	}
}

// Resolve resolves every day in order. A fetch error aborts the batch
func (r *Resolver) Resolve(ctx context.Context, symbol string, days []models.NormalizedDay) ([]Resolution, []models.Notice, error) {
	resolutions := make([]Resolution, 0, len(days))
	var notices []models.Notice

	for _, day := range days {
		res, err := r.ResolveDay(ctx, symbol, day)
		if err != nil {
			return nil, nil, err
		}
		resolutions = append(resolutions, res)
		if n, ok := fallbackNotice(res, r.maxAttempts); ok {
			notices = append(notices, n)
		}
	}
	return resolutions, notices, nil
}

// ResolveDay probes at most maxAttempts consecutive calendar days starting at day.Date
func (r *Resolver) ResolveDay(ctx context.Context, symbol string, day models.NormalizedDay) (Resolution, error) {
	probe := day.Date
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		start := probe.AddDate(0, 0, -r.windowDays)
		end := probe.AddDate(0, 0, 1)

		bars, err := r.fetcher.FetchBars(ctx, symbol, start, end)
		if err != nil {
			return Resolution{}, fmt.Errorf("failed to fetch bars for %s on %s: %w",
				symbol, probe.Format(models.DateLayout), err)
		}

		bar, ok := barOn(bars, probe)
		if !ok || !bar.HasClose() {
			probe = probe.AddDate(0, 0, 1)
			continue
		}

		res := Resolution{
			Day:          day,
			Outcome:      OutcomeNoPriorClose,
			Attempts:     attempt,
			ResolvedDate: probe,
			Bar:          bar,
		}
		if prior, ok := priorClose(bars, probe); ok {
			res.Outcome = OutcomeResolved
			res.PriorClose = prior
		}
		return res, nil
	}

	return Resolution{
		Day:      day,
		Outcome:  OutcomeExhausted,
		Attempts: r.maxAttempts,
	}, nil
}

// Records converts resolutions into records, preserving order
func Records(resolutions []Resolution) []models.ReactionRecord {
	records := make([]models.ReactionRecord, len(resolutions))
	for i, res := range resolutions {
		records[i] = res.Record()
	}
	return records
}

func barOn(bars []models.PriceBar, day time.Time) (models.PriceBar, bool) {
	for _, b := range bars {
		if b.SameDay(day) {
			return b, true
		}
	}
	return models.PriceBar{}, false
}

// priorClose returns the close of the latest bar strictly before day
// Zero closes are skipped since they cannot serve as a baseline
func priorClose(bars []models.PriceBar, day time.Time) (decimal.NullDecimal, bool) {
	cutoff := truncateDay(day)
	var (
		best  models.PriceBar
		found bool
	)
	for _, b := range bars {
		if !b.HasClose() || b.Close.Decimal.IsZero() {
			continue
		}
		if !truncateDay(b.Date).Before(cutoff) {
			continue
		}
		if !found || b.Date.After(best.Date) {
			best = b
			found = true
		}
	}
	return best.Close, found
}

func fallbackNotice(res Resolution, maxAttempts int) (models.Notice, bool) {
	from := res.Day.Date.Format(models.DateLayout)
	switch {
	case res.Outcome == OutcomeExhausted:
		last := res.Day.Date.AddDate(0, 0, maxAttempts-1).Format(models.DateLayout)
		return models.Notice{
			Kind:         models.NoticeExhausted,
			OriginalDate: res.Day.OriginalDate,
			From:         from,
			To:           last,
			Message: fmt.Sprintf("N/A Fallback Exhausted: %s no usable bar from %s to %s",
				res.Day.OriginalDate, from, last),
		}, true
	case res.Attempts > 1:
		to := res.ResolvedDate.Format(models.DateLayout)
		return models.Notice{
			Kind:         models.NoticeFallback,
			OriginalDate: res.Day.OriginalDate,
			From:         from,
			To:           to,
			Message: fmt.Sprintf("N/A Fallback Adjustment: %s %s (original adjusted) -> %s",
				res.Day.OriginalDate, from, to),
		}, true
	default:
		return models.Notice{}, false
	}
}

func round2(d decimal.NullDecimal) decimal.NullDecimal {
	if !d.Valid {
		return d
	}
	return models.Dec(d.Decimal.RoundBank(2))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
