// Package textparse pulls announcement date/time pairs out of OCR'd screenshots of
// corporate-announcement listings
package textparse

import (
	"bufio"
	"regexp"
	"strings"
	"time"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
)

const displayLayout = "2 Jan 2006"

var (
	inlinePair = regexp.MustCompile(`(\d{1,2} [A-Za-z]{3} \d{4})[ \t]+(\d{2}:\d{2})`)
	leadDate   = regexp.MustCompile(`^\d{1,2} [A-Za-z]{3} \d{4}`)
	leadTime   = regexp.MustCompile(`^\d{2}:\d{2}`)
)

// ExtractDatesWithTimes returns the date/time pairs found in text, in order of
// appearance. Pairs printed on one line ("18 Jul 2025 19:33") win; when none are
// found, date lines and time lines are collected separately and zipped
// Dates that do not exist on the calendar are dropped
func ExtractDatesWithTimes(text string) []models.AnnouncementTimestamp {
	if pairs := inlinePairs(text); len(pairs) > 0 {
		return pairs
	}
	return pairedLines(text)
}

func inlinePairs(text string) []models.AnnouncementTimestamp {
	var out []models.AnnouncementTimestamp
	for _, m := range inlinePair.FindAllStringSubmatch(text, -1) {
		if ts, ok := toTimestamp(m[1], m[2]); ok {
			out = append(out, ts)
		}
	}
	return out
}

func pairedLines(text string) []models.AnnouncementTimestamp {
	var dates, clocks []string

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if d := leadDate.FindString(line); d != "" {
			dates = append(dates, d)
		} else if c := leadTime.FindString(line); c != "" {
			clocks = append(clocks, c)
		}
	}

	n := min(len(dates), len(clocks))
	var out []models.AnnouncementTimestamp
	for i := 0; i < n; i++ {
		if ts, ok := toTimestamp(dates[i], clocks[i]); ok {
			out = append(out, ts)
		}
	}
	return out
}

func toTimestamp(date, clock string) (models.AnnouncementTimestamp, bool) {
	d, err := time.Parse(displayLayout, date)
	if err != nil {
		return models.AnnouncementTimestamp{}, false
	}
	return models.AnnouncementTimestamp{Date: d.Format(models.DateLayout), Time: clock}, true
}
