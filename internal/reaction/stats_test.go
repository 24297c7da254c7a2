package reaction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

func withChange(v string) models.ReactionRecord {
	return models.ReactionRecord{
		OriginalDate:  "2025-01-01",
		PercentChange: models.Dec(decimal.RequireFromString(v)),
		Close:         models.DecFloat(100),
	}
}

func TestAggregate(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		stats := Aggregate(nil)

		assert.Equal(t, 0, stats.TotalInputDates)
		assert.False(t, stats.AbsoluteMean.Valid)
		assert.False(t, stats.FirstStdBand.Valid)
		assert.False(t, stats.SecondStdBand.Valid)
		assert.False(t, stats.ThirdStdBand.Valid)
	})

	t.Run("no valid changes still counts inputs", func(t *testing.T) {
		records := []models.ReactionRecord{{OriginalDate: "2025-01-01"}, {OriginalDate: "2025-02-01"}}
		stats := Aggregate(records)

		assert.Equal(t, 2, stats.TotalInputDates)
		assert.Equal(t, 0, stats.ValidChanges)
		assert.False(t, stats.AbsoluteMean.Valid)
	})

	t.Run("population standard deviation", func(t *testing.T) {
		records := []models.ReactionRecord{withChange("1"), withChange("-2"), withChange("3")}
		stats := Aggregate(records)

		require.True(t, stats.AbsoluteMean.Valid)
		assert.Equal(t, 3, stats.TotalInputDates)
		assert.Equal(t, 3, stats.ValidChanges)
		assert.Equal(t, "2.00", stats.AbsoluteMean.Decimal.StringFixed(2))
		assert.Equal(t, "2.82", stats.FirstStdBand.Decimal.StringFixed(2))
		assert.Equal(t, "3.63", stats.SecondStdBand.Decimal.StringFixed(2))
		assert.Equal(t, "4.45", stats.ThirdStdBand.Decimal.StringFixed(2))
		assert.Equal(t, 1, stats.ExceedFirstStd)
		assert.Equal(t, 0, stats.ExceedSecondStd)
	})

	t.Run("absent changes are excluded but counted", func(t *testing.T) {
		records := []models.ReactionRecord{withChange("4"), {OriginalDate: "2025-03-01"}, withChange("-4")}
		stats := Aggregate(records)

		assert.Equal(t, 3, stats.TotalInputDates)
		assert.Equal(t, 2, stats.ValidChanges)
		assert.Equal(t, "4.00", stats.AbsoluteMean.Decimal.StringFixed(2))
		assert.Equal(t, "4.00", stats.FirstStdBand.Decimal.StringFixed(2))
		assert.Equal(t, "4.00", stats.ThirdStdBand.Decimal.StringFixed(2))
	})

	t.Run("exact halves round to even", func(t *testing.T) {
		stats := Aggregate([]models.ReactionRecord{withChange("-0.25"), withChange("0")})

		assert.Equal(t, "0.12", stats.AbsoluteMean.Decimal.StringFixed(2))
		assert.Equal(t, "0.25", stats.FirstStdBand.Decimal.StringFixed(2))
		assert.Equal(t, "0.50", stats.ThirdStdBand.Decimal.StringFixed(2))
	})

	t.Run("is deterministic", func(t *testing.T) {
		records := []models.ReactionRecord{withChange("1.37"), withChange("-5.12"), withChange("0.08"), withChange("2.5")}
		assert.Equal(t, Aggregate(records), Aggregate(records))
	})

	t.Run("histogram of signed changes", func(t *testing.T) {
		records := []models.ReactionRecord{
			withChange("-1"), withChange("1"), withChange("1.5"),
			withChange("7"), withChange("-7"), withChange("8.2"),
		}
		stats := Aggregate(records)

		require.Len(t, stats.Histogram, 14)
		freq := map[int]int{}
		total := 0
		for _, bin := range stats.Histogram {
			assert.Equal(t, bin.Start+1, bin.End)
			freq[bin.Start] = bin.Frequency
			total += bin.Frequency
		}
		assert.Equal(t, 1, freq[-7])
		assert.Equal(t, 1, freq[-1])
		assert.Equal(t, 2, freq[1])
		assert.Equal(t, 1, freq[6])
		assert.Equal(t, 5, total)
	})
}
