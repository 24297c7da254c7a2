package reaction

import (
	"context"
	"sort"
	"time"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// fakeFetcher serves bars from memory and records every requested window
type fakeFetcher struct {
	bars  map[string][]models.PriceBar
	err   error
	calls []window
}

type window struct {
	symbol     string
	start, end time.Time
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{bars: make(map[string][]models.PriceBar)}
}

func (f *fakeFetcher) add(symbol string, bars ...models.PriceBar) *fakeFetcher {
	for _, b := range bars {
		b.Symbol = symbol
		f.bars[symbol] = append(f.bars[symbol], b)
	}
	sort.Slice(f.bars[symbol], func(i, j int) bool {
		return f.bars[symbol][i].Date.Before(f.bars[symbol][j].Date)
	})
	return f
}

func (f *fakeFetcher) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]models.PriceBar, error) {
	f.calls = append(f.calls, window{symbol: symbol, start: start, end: end})
	if f.err != nil {
		return nil, f.err
	}
	var out []models.PriceBar
	for _, b := range f.bars[symbol] {
		if !b.Date.Before(start) && b.Date.Before(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func closeBar(date string, close float64) models.PriceBar {
	return models.PriceBar{
		Date:  day(date),
		Open:  models.DecFloat(close - 1),
		High:  models.DecFloat(close + 2),
		Low:   models.DecFloat(close - 2),
		Close: models.DecFloat(close),
	}
}
