package reaction

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// Histogram range of signed percent changes, in whole percentage points
const (
	histogramMin = -7
	histogramMax = 7
)

// Aggregate summarizes the absolute percent changes of records
// Standard deviation is the population form (divisor N). Records without a
// percent change count toward TotalInputDates only
func Aggregate(records []models.ReactionRecord) models.SummaryStats {
	stats := models.SummaryStats{
		TotalInputDates: len(records),
		Histogram:       emptyHistogram(),
	}

	var signed, abs []float64
	for _, r := range records {
		if !r.PercentChange.Valid {
			continue
		}
		v := r.PercentChange.Decimal.InexactFloat64()
		signed = append(signed, v)
		abs = append(abs, math.Abs(v))
	}
	stats.ValidChanges = len(abs)
	if len(abs) == 0 {
		return stats
	}

	mean, std := meanStd(abs)
	first := mean + std
	second := mean + 2*std
	third := mean + 3*std

	stats.AbsoluteMean = roundFloat(mean)
	stats.FirstStdBand = roundFloat(first)
	stats.SecondStdBand = roundFloat(second)
	stats.ThirdStdBand = roundFloat(third)

	for _, v := range abs {
		if v > first {
			stats.ExceedFirstStd++
		}
		if v > second {
			stats.ExceedSecondStd++
		}
	}

	for _, v := range signed {
		if idx, ok := histogramIndex(v); ok {
			stats.Histogram[idx].Frequency++
		}
	}
	return stats
}

func meanStd(values []float64) (float64, float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

func roundFloat(f float64) decimal.NullDecimal {
	return models.Dec(decimal.NewFromFloat(f).RoundBank(2))
}

func emptyHistogram() []models.HistogramBin {
	bins := make([]models.HistogramBin, 0, histogramMax-histogramMin)
	for start := histogramMin; start < histogramMax; start++ {
		bins = append(bins, models.HistogramBin{Start: start, End: start + 1})
	}
	return bins
}

// histogramIndex places v in a 1-point bin. The last bin is closed on the right
func histogramIndex(v float64) (int, bool) {
	if v < histogramMin || v > histogramMax {
		return 0, false
	}
	idx := int(math.Floor(v - histogramMin))
	if idx == histogramMax-histogramMin {
		idx--
	}
	return idx, true
}
