package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_ml_predictions_total",
		Help: "Total number of predictions served, by model and risk level.",
	}, []string{"model", "risk_level"})
	PredictionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_ml_predictions_failed_total",
		Help: "Total number of prediction requests that failed.",
	}, []string{"model", "reason"})
	PredictionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthcare_ml_prediction_duration_seconds",
		Help:    "Duration of a single prediction including encoding.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}, []string{"model"})

	TrainingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_ml_training_runs_total",
		Help: "Total number of training runs, by model and outcome.",
	}, []string{"model", "outcome"})
	TrainingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthcare_ml_training_duration_seconds",
		Help:    "Duration of a full training run.",
		Buckets: []float64{0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
	}, []string{"model"})

	EventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_analytics_events_ingested_total",
		Help: "Total number of prediction events accepted, by source.",
	}, []string{"source"})
	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_analytics_events_rejected_total",
		Help: "Total number of prediction events rejected or failed to store, by source.",
	}, []string{"source"})

	ReportsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_reporter_sent_total",
		Help: "Total number of prediction events delivered to a sink.",
	}, []string{"sink"})
	ReportsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_reporter_failed_total",
		Help: "Total number of prediction event deliveries that failed.",
	}, []string{"sink"})
	ReportsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "healthcare_reporter_dropped_total",
		Help: "Total number of prediction events dropped because the queue was full.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_http_requests_total",
		Help: "Total number of HTTP requests, by route and status.",
	}, []string{"method", "route", "status"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthcare_http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	RPCRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "healthcare_grpc_requests_total",
		Help: "Total number of gRPC requests, by method and status code.",
	}, []string{"method", "code"})
)
