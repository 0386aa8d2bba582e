// Package metrics holds the Prometheus collectors of BriStack. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Classification metrics
	Classifications *prometheus.CounterVec
	Reasons         *prometheus.CounterVec

	// Event log metrics
	EventsRecorded *prometheus.CounterVec
	RecordFailures prometheus.Counter

	// Engagement metrics
	Promotions *prometheus.CounterVec

	// Fidelity metrics
	Assessments      *prometheus.CounterVec
	PenetrationScore prometheus.Histogram
	OracleErrors     *prometheus.CounterVec
}

// New creates all metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Classifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bristack_classifications_total",
				Help: "Requests classified, by bot type",
			},
			[]string{"bot_type", "category"},
		),

		Reasons: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bristack_classification_reasons_total",
				Help: "Evidence codes attached to classifications",
			},
			[]string{"reason"},
		),

		EventsRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bristack_events_recorded_total",
				Help: "Interaction events written to the event log",
			},
			[]string{"event_type", "human"},
		),

		RecordFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bristack_event_record_failures_total",
				Help: "Interaction events that could not be persisted",
			},
		),

		Promotions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bristack_level_promotions_total",
				Help: "Subscriber trust-level promotions, by target level",
			},
			[]string{"level"},
		),

		Assessments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bristack_fidelity_assessments_total",
				Help: "Fidelity assessments, by outcome",
			},
			[]string{"outcome"}, // outcome: scored, unparsed, skipped, failed
		),

		PenetrationScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bristack_penetration_score",
				Help:    "Penetration scores of assessed content",
				Buckets: prometheus.LinearBuckets(10, 10, 10), // 10..100
			},
		),

		OracleErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bristack_oracle_errors_total",
				Help: "Failed summarization oracle calls, by stage",
			},
			[]string{"stage"}, // stage: summary, verify
		),
	}
}

// Classified records a classification verdict and its evidence
func (m *Metrics) Classified(botType, category string, reasons []string) {
	if m == nil {
		return
	}
	m.Classifications.WithLabelValues(botType, category).Inc()
	for _, r := range reasons {
		m.Reasons.WithLabelValues(r).Inc()
	}
}

// Recorded counts a persisted event
func (m *Metrics) Recorded(eventType string, human bool) {
	if m == nil {
		return
	}
	m.EventsRecorded.WithLabelValues(eventType, strconv.FormatBool(human)).Inc()
}

// RecordFailed counts an event lost to a storage failure
func (m *Metrics) RecordFailed() {
	if m == nil {
		return
	}
	m.RecordFailures.Inc()
}

// Promoted counts a trust-level promotion
func (m *Metrics) Promoted(level int) {
	if m == nil {
		return
	}
	m.Promotions.WithLabelValues(strconv.Itoa(level)).Inc()
}

// Assessed counts a fidelity assessment outcome; score is observed when
// outcome produced one
func (m *Metrics) Assessed(outcome string, score int) {
	if m == nil {
		return
	}
	m.Assessments.WithLabelValues(outcome).Inc()
	if score >= 0 {
		m.PenetrationScore.Observe(float64(score))
	}
}

// OracleFailed counts a failed oracle call
func (m *Metrics) OracleFailed(stage string) {
	if m == nil {
		return
	}
	m.OracleErrors.WithLabelValues(stage).Inc()
}
