package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendsense_evaluations_total",
			Help: "Total number of purchase evaluations by report status",
		},
		[]string{"status"},
	)

	EvaluationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spendsense_evaluation_duration_seconds",
			Help:    "Duration of purchase evaluations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	ExplanationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendsense_explanations_total",
			Help: "Total number of explanations by mode",
		},
		[]string{"mode"},
	)

	ExplanationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendsense_explanation_failures_total",
			Help: "Total number of remote explanation failures by reason",
		},
		[]string{"reason"},
	)

	RiskLevelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendsense_risk_levels_total",
			Help: "Total number of successful evaluations by risk level",
		},
		[]string{"risk_level"},
	)

	RateLimitedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spendsense_rate_limited_requests_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"path"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "spendsense_active_sessions",
			Help: "Number of conversation sessions held in memory",
		},
	)
)
