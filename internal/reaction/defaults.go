package reaction

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/trogers1052/earnings-reaction-service/internal/models"
	"gopkg.in/yaml.v3"
)

// AnnouncementTable maps known tickers to their announcement history
// It is read-only after construction
type AnnouncementTable struct {
	entries map[string][]models.AnnouncementTimestamp
}

type announcementFile struct {
	Tickers map[string][]models.AnnouncementTimestamp `yaml:"tickers"`
}

var builtinAnnouncements = map[string][]models.AnnouncementTimestamp{
	"BPCL": {
		{Date: "2025-04-29", Time: "15:50"},
		{Date: "2025-01-23", Time: "11:25"},
		{Date: "2024-10-25", Time: "17:37"},
		{Date: "2024-07-19", Time: "20:10"},
		{Date: "2024-05-10", Time: "12:34"},
		{Date: "2024-01-29", Time: "13:40"},
		{Date: "2023-10-27", Time: "19:30"},
		{Date: "2023-07-26", Time: "14:38"},
		{Date: "2023-05-22", Time: "20:40"},
		{Date: "2023-01-30", Time: "17:39"},
		{Date: "2022-11-07", Time: "21:18"},
		{Date: "2022-08-06", Time: "19:32"},
		{Date: "2022-05-26", Time: "14:28"},
		{Date: "2022-01-31", Time: "17:20"},
		{Date: "2021-10-29", Time: "18:01"},
		{Date: "2021-08-12", Time: "15:30"},
		{Date: "2021-05-26", Time: "19:40"},
	},
}

// NewAnnouncementTable copies entries into a new table keyed by upper-case ticker
func NewAnnouncementTable(entries map[string][]models.AnnouncementTimestamp) *AnnouncementTable {
	t := &AnnouncementTable{entries: make(map[string][]models.AnnouncementTimestamp, len(entries))}
	for symbol, ts := range entries {
		key := strings.ToUpper(strings.TrimSpace(symbol))
		t.entries[key] = append([]models.AnnouncementTimestamp(nil), ts...)
	}
	return t
}

// DefaultAnnouncements returns the built-in table
func DefaultAnnouncements() *AnnouncementTable {
	return NewAnnouncementTable(builtinAnnouncements)
}

// LoadAnnouncementTable reads a YAML table of the form
//
//	tickers:
//	  BPCL:
//	    - date: "2025-04-29"
//	      time: "15:50"
func LoadAnnouncementTable(path string) (*AnnouncementTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read announcements file: %w", err)
	}

	var f announcementFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("failed to parse announcements file: %w", err)
	}

	for symbol, ts := range f.Tickers {
		for _, a := range ts {
			if _, err := a.ParseDate(); err != nil {
				return nil, fmt.Errorf("ticker %s: %w", symbol, err)
			}
		}
	}
	return NewAnnouncementTable(f.Tickers), nil
}

// Lookup returns a copy of the announcements for symbol
func (t *AnnouncementTable) Lookup(symbol string) ([]models.AnnouncementTimestamp, bool) {
	ts, ok := t.entries[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return nil, false
	}
	return append([]models.AnnouncementTimestamp(nil), ts...), true
}

// Symbols lists the known tickers in sorted order
func (t *AnnouncementTable) Symbols() []string {
	symbols := make([]string, 0, len(t.entries))
	for s := range t.entries {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
