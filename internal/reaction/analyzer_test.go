package reaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

type recordingMetrics struct {
	outcomes  []string
	durations int
}

func (m *recordingMetrics) RecordResolution(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) RecordAnalysisDuration(float64) {
	m.durations++
}

func TestAnalyze(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	t.Run("saturday announcement end to end", func(t *testing.T) {
		f := newFakeFetcher().add("XYZ", closeBar("2025-08-15", 100), closeBar("2025-08-18", 105))
		a := NewAnalyzer(f, 0, 0, WithClock(func() time.Time { return fixed }))

		result, err := a.Analyze(ctx, "xyz ", []models.AnnouncementTimestamp{{Date: "2025-08-16", Time: "16:00"}})
		require.NoError(t, err)

		assert.Equal(t, "XYZ", result.Ticker)
		assert.Equal(t, fixed, result.AnalyzedAt)
		require.Len(t, result.Records, 1)
		rec := result.Records[0]
		assert.Equal(t, "2025-08-16", rec.OriginalDate)
		assert.Equal(t, "5.00", rec.PercentChange.Decimal.StringFixed(2))
		assert.Equal(t, "105.00", rec.Close.Decimal.StringFixed(2))

		assert.Equal(t, 1, result.Stats.TotalInputDates)
		assert.Equal(t, "5.00", result.Stats.AbsoluteMean.Decimal.StringFixed(2))

		require.Len(t, result.Notices, 1)
		assert.Equal(t, models.NoticeSaturday, result.Notices[0].Kind)
		assert.Equal(t, "XYZ", f.calls[0].symbol)
	})

	t.Run("one record per input sorted by date", func(t *testing.T) {
		f := newFakeFetcher().add("ABC",
			closeBar("2024-01-26", 50),
			closeBar("2024-01-29", 51),
			closeBar("2023-10-26", 40),
			closeBar("2023-10-30", 38),
		)
		m := &recordingMetrics{}
		a := NewAnalyzer(f, 7, 2, WithMetrics(m))

		input := []models.AnnouncementTimestamp{
			{Date: "2024-01-29", Time: "13:40"},
			{Date: "2023-10-27", Time: "19:30"},
			{Date: "2022-01-01", Time: "10:00"},
			{Date: "2023-10-27", Time: "bogus"},
		}
		result, err := a.Analyze(ctx, "ABC", input)
		require.NoError(t, err)
		require.Len(t, result.Records, len(input))

		dates := make([]string, len(result.Records))
		for i, r := range result.Records {
			dates[i] = r.OriginalDate
		}
		assert.Equal(t, []string{"2022-01-01", "2023-10-27", "2023-10-27", "2024-01-29"}, dates)

		// 2022-01-01 is a Saturday with no data at all
		assert.False(t, result.Records[0].Close.Valid)
		// 19:30 on Friday 2023-10-27 lands on Saturday; two probes never reach Monday
		assert.False(t, result.Records[1].Close.Valid)
		// The unparseable time keeps Friday 2023-10-27, which has no bar
		assert.False(t, result.Records[2].Close.Valid)
		assert.Equal(t, "2.00", result.Records[3].PercentChange.Decimal.StringFixed(2))

		assert.Equal(t, 4, result.Stats.TotalInputDates)
		assert.Equal(t, 1, result.Stats.ValidChanges)
		assert.Len(t, m.outcomes, 4)
		assert.Equal(t, 1, m.durations)

		kinds := map[models.NoticeKind]int{}
		for _, n := range result.Notices {
			kinds[n.Kind]++
		}
		assert.Equal(t, 1, kinds[models.NoticeSaturday])
		assert.Equal(t, 1, kinds[models.NoticeTime])
		assert.Equal(t, 1, kinds[models.NoticeInvalidTime])
		assert.Equal(t, 3, kinds[models.NoticeExhausted])
	})

	t.Run("argument errors", func(t *testing.T) {
		a := NewAnalyzer(newFakeFetcher(), 0, 0)

		_, err := a.Analyze(ctx, "  ", []models.AnnouncementTimestamp{{Date: "2025-01-01", Time: "10:00"}})
		assert.ErrorIs(t, err, ErrEmptySymbol)

		_, err = a.Analyze(ctx, "XYZ", nil)
		assert.ErrorIs(t, err, ErrNoTimestamps)

		_, err = a.Analyze(ctx, "XYZ", []models.AnnouncementTimestamp{{Date: "18 Jul 2025", Time: "10:00"}})
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("market data failure fails the batch", func(t *testing.T) {
		f := newFakeFetcher()
		f.err = errors.New("upstream unavailable")
		a := NewAnalyzer(f, 0, 0)

		result, err := a.Analyze(ctx, "XYZ", []models.AnnouncementTimestamp{{Date: "2025-08-18", Time: "10:00"}})
		assert.Nil(t, result)
		assert.ErrorIs(t, err, f.err)
	})
}
