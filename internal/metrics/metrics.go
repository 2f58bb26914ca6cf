package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Consumer pipeline metrics
	ReadingsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_readings_consumed_total",
			Help: "Total number of readings received from the vital-signs channel",
		},
	)

	DecodeFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_decode_failures_total",
			Help: "Total number of bus messages dropped as undecodable",
		},
	)

	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_anomalies_detected_total",
			Help: "Total number of threshold violations detected",
		},
		[]string{"metric", "source"}, // source: stream, backfill
	)

	PersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vitalwatch_persist_failures_total",
			Help: "Total number of anomaly batches that failed to persist",
		},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vitalwatch_evaluation_duration_seconds",
			Help:    "Time taken to evaluate one reading against the threshold registry",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Alert dispatch metrics
	AlertsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_alerts_dispatched_total",
			Help: "Total number of alert dispatch attempts",
		},
		[]string{"status"}, // status: success, failed
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vitalwatch_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vitalwatch_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path", "status"},
	)
)
