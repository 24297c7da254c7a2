package reaction

import (
	"fmt"
	"time"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

// DefaultCutoff is the wall-clock time after which an announcement is attributed to the next day
const DefaultCutoff = "15:15"

const timeLayout = "15:04"

// Cutoff is a parsed HH:MM wall-clock time
type Cutoff struct {
	hour, minute int
}

// ParseCutoff parses a 24-hour HH:MM cutoff
func ParseCutoff(s string) (Cutoff, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return Cutoff{}, fmt.Errorf("invalid cutoff time %q: %w", s, err)
	}
	return Cutoff{hour: t.Hour(), minute: t.Minute()}, nil
}

func (c Cutoff) String() string {
	return fmt.Sprintf("%02d:%02d", c.hour, c.minute)
}

// after reports whether t is strictly later than the cutoff
func (c Cutoff) after(t time.Time) bool {
	if t.Hour() != c.hour {
		return t.Hour() > c.hour
	}
	return t.Minute() > c.minute
}

// Normalize maps one announcement to the trading day that should carry its reaction
// A Saturday moves to the following Monday and skips the cutoff rule. Otherwise a time
// strictly after the cutoff moves the day forward by one. Sundays and holidays pass through
// An unparseable time leaves the date unchanged and produces an INVALID_TIME notice
func Normalize(date time.Time, clock string, cutoff Cutoff) (models.NormalizedDay, []models.Notice) {
	original := date.Format(models.DateLayout)
	day := models.NormalizedDay{OriginalDate: original, Date: date}

	if date.Weekday() == time.Saturday {
		day.Date = date.AddDate(0, 0, 2)
		day.SaturdayAdjusted = true
		return day, []models.Notice{{
			Kind:         models.NoticeSaturday,
			OriginalDate: original,
			From:         original,
			To:           day.Date.Format(models.DateLayout),
			Message:      fmt.Sprintf("Saturday Adjustment: %s -> %s", original, day.Date.Format(models.DateLayout)),
		}}
	}

	t, err := time.Parse(timeLayout, clock)
	if err != nil {
		return day, []models.Notice{{
			Kind:         models.NoticeInvalidTime,
			OriginalDate: original,
			Message:      fmt.Sprintf("Invalid time format for %s: %s. Skipping time adjustment.", original, clock),
		}}
	}

	if cutoff.after(t) {
		day.Date = date.AddDate(0, 0, 1)
		day.TimeAdjusted = true
		return day, []models.Notice{{
			Kind:         models.NoticeTime,
			OriginalDate: original,
			From:         original,
			To:           day.Date.Format(models.DateLayout),
			Message:      fmt.Sprintf("Time Adjustment (>%s): %s -> %s", cutoff, original, day.Date.Format(models.DateLayout)),
		}}
	}

	return day, nil
}

// NormalizeAll normalizes announcements that are already sorted and parsed
// dates and clocks are parallel slices
func NormalizeAll(dates []time.Time, clocks []string, cutoff Cutoff) ([]models.NormalizedDay, []models.Notice) {
	days := make([]models.NormalizedDay, 0, len(dates))
	var notices []models.Notice
	for i, d := range dates {
		day, n := Normalize(d, clocks[i], cutoff)
		days = append(days, day)
		notices = append(notices, n...)
	}
	return days, notices
}
