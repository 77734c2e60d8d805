package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "faultstudy_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	engineCalls    *prometheus.CounterVec
	engineFailures *prometheus.CounterVec

	solveTotal   *prometheus.CounterVec
	solveLatency *prometheus.HistogramVec

	dataQualityWarnings prometheus.Counter
	studiesTotal        *prometheus.CounterVec
	studyLatency        *prometheus.HistogramVec
)

// Init registers the study metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		engineCalls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "engine_calls_total",
				Help: "Total vendor engine calls by operation",
			},
			[]string{"op"},
		)
		engineFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "engine_failures_total",
				Help: "Total non-zero vendor engine statuses by operation",
			},
			[]string{"op"},
		)
		solveTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "solve_total",
				Help: "Total breaker-duty solves by result",
			},
			[]string{"result"},
		)
		solveLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "solve_latency_seconds",
				Help:    "Breaker-duty solve latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		dataQualityWarnings = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "data_quality_warnings_total",
				Help: "Total data-quality warnings accumulated across studies",
			},
		)
		studiesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "studies_total",
				Help: "Total completed studies by result",
			},
			[]string{"result"},
		)
		studyLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "study_latency_seconds",
				Help:    "Whole-study latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			engineCalls,
			engineFailures,
			solveTotal,
			solveLatency,
			dataQualityWarnings,
			studiesTotal,
			studyLatency,
		)
	})
}

// IncEngineCall counts one vendor engine call.
func IncEngineCall(op string) {
	if op == "" {
		op = "unknown"
	}
	if engineCalls != nil {
		engineCalls.WithLabelValues(op).Inc()
	}
}

// IncEngineFailure counts one non-zero vendor status.
func IncEngineFailure(op string) {
	if op == "" {
		op = "unknown"
	}
	if engineFailures != nil {
		engineFailures.WithLabelValues(op).Inc()
	}
}

// ObserveSolve records one breaker-duty solve.
func ObserveSolve(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if solveTotal != nil {
		solveTotal.WithLabelValues(result).Inc()
	}
	if solveLatency != nil {
		solveLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// AddDataQualityWarnings counts accumulated warnings.
func AddDataQualityWarnings(count int) {
	if count <= 0 {
		return
	}
	if dataQualityWarnings != nil {
		dataQualityWarnings.Add(float64(count))
	}
}

// ObserveStudy records one whole study run.
func ObserveStudy(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if studiesTotal != nil {
		studiesTotal.WithLabelValues(result).Inc()
	}
	if studyLatency != nil {
		studyLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
