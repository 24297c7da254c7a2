package models

import (
	"fmt"
	"time"
)

// AnnouncementTimestamp is a reported earnings release date and wall-clock time
type AnnouncementTimestamp struct {
	Date string `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" yaml:"time" validate:"required"`
}

// ParseDate returns the announcement date at UTC midnight
func (a AnnouncementTimestamp) ParseDate() (time.Time, error) {
	d, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", a.Date, err)
	}
	return d, nil
}

// NormalizedDay is the trading day whose close-to-close move is attributed to an announcement
type NormalizedDay struct {
	OriginalDate     string    `json:"original_date"`
	Date             time.Time `json:"date"`
	SaturdayAdjusted bool      `json:"saturday_adjusted"`
	TimeAdjusted     bool      `json:"time_adjusted"`
}

// NoticeKind classifies a diagnostic notice
type NoticeKind string

// Notice kinds
const (
	NoticeSaturday    NoticeKind = "SATURDAY_ADJUSTMENT"
	NoticeTime        NoticeKind = "TIME_ADJUSTMENT"
	NoticeInvalidTime NoticeKind = "INVALID_TIME"
	NoticeFallback    NoticeKind = "FALLBACK_ADJUSTMENT"
	NoticeExhausted   NoticeKind = "FALLBACK_EXHAUSTED"
)

// Notice records one date adjustment or tolerated data problem
type Notice struct {
	Kind         NoticeKind `json:"kind"`
	OriginalDate string     `json:"original_date"`
	From         string     `json:"from,omitempty"`
	To           string     `json:"to,omitempty"`
	Message      string     `json:"message"`
}
