package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PredictionsTotal counts pipeline runs by outcome (ok or an error kind).
	PredictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshness",
		Subsystem: "pipeline",
		Name:      "predictions_total",
		Help:      "Total number of freshness predictions, labeled by result.",
	}, []string{"result"})

	// StatusTotal counts successful predictions by room-temperature status.
	StatusTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "freshness",
		Subsystem: "pipeline",
		Name:      "status_total",
		Help:      "Total number of successful predictions, labeled by freshness status.",
	}, []string{"status"})

	// PredictionDurationSeconds is the end-to-end time of one pipeline run.
	PredictionDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "freshness",
		Subsystem: "pipeline",
		Name:      "prediction_duration_seconds",
		Help:      "End-to-end time of a freshness prediction (decode, inference, decay).",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"result"})

	// EstimatorDurationSeconds is the time spent inside the estimator.
	EstimatorDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "freshness",
		Subsystem: "estimator",
		Name:      "duration_seconds",
		Help:      "Time spent in a single freshness estimator call.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// InitialFreshness is the distribution of clamped estimator scores.
	InitialFreshness = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "freshness",
		Subsystem: "estimator",
		Name:      "initial_freshness",
		Help:      "Distribution of clamped initial freshness scores.",
		Buckets:   prometheus.LinearBuckets(10, 10, 9),
	})

	// WebsocketClients is the number of connected websocket clients.
	WebsocketClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "freshness",
		Subsystem: "server",
		Name:      "websocket_clients",
		Help:      "Current number of connected websocket clients.",
	})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PredictionsTotal,
			StatusTotal,
			PredictionDurationSeconds,
			EstimatorDurationSeconds,
			InitialFreshness,
			WebsocketClients,
		)
	})
}
