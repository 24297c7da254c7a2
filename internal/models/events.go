package models

import "time"

// Analysis event types
const (
	EventAnalysisRequested = "ANALYSIS_REQUESTED"
	EventAnalysisCompleted = "ANALYSIS_COMPLETED"
	EventAnalysisFailed    = "ANALYSIS_FAILED"
)

// AnalysisEvent is the Kafka envelope for analysis requests and outcomes
type AnalysisEvent struct {
	EventType      string                  `json:"event_type"`
	RequestID      string                  `json:"request_id"`
	Ticker         string                  `json:"ticker"`
	DatesWithTimes []AnnouncementTimestamp `json:"dates_with_times,omitempty"`
	Result         *AnalysisResult         `json:"result,omitempty"`
	Error          string                  `json:"error,omitempty"`
	Timestamp      time.Time               `json:"timestamp"`
}
