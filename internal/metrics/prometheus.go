// Package metrics exposes service counters and histograms to Prometheus
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records service metrics. A nil *Recorder discards everything
type Recorder struct {
	httpRequests     *prometheus.CounterVec
	fetches          *prometheus.CounterVec
	resolutions      *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
}

// New creates a Recorder registered on the default registry
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a Recorder registered on reg
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnings_http_requests_total",
				Help: "Total number of HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnings_bar_fetches_total",
				Help: "Total number of price bar fetches by source and result",
			},
			[]string{"source", "result"},
		),
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "earnings_reaction_resolutions_total",
				Help: "Total number of announcement days resolved by outcome",
			},
			[]string{"outcome"},
		),
		analysisDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "earnings_analysis_duration_seconds",
				Help:    "Duration of a full ticker analysis in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{},
		),
	}
}

// RecordHTTPRequest records a served request
func (r *Recorder) RecordHTTPRequest(method, route string, status int) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// RecordFetch records a price bar fetch
func (r *Recorder) RecordFetch(source, result string) {
	if r == nil {
		return
	}
	r.fetches.WithLabelValues(source, result).Inc()
}

// RecordResolution records the outcome for one announcement day
func (r *Recorder) RecordResolution(outcome string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(outcome).Inc()
}

// RecordAnalysisDuration records analysis latency in seconds
func (r *Recorder) RecordAnalysisDuration(seconds float64) {
	if r == nil {
		return
	}
	r.analysisDuration.WithLabelValues().Observe(seconds)
}
