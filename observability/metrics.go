package observability

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "debtvault"

// InvalidInstruction is the instruction label recorded for data that does not
// decode into a variant of the program's instruction set.
const InvalidInstruction = "invalid"

type processorMetrics struct {
	instructions *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

type apiMetrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	processorMetricsOnce sync.Once
	processorRegistry    *processorMetrics

	apiMetricsOnce sync.Once
	apiRegistry    *apiMetrics
)

// Processor returns the lazily-initialised metrics registry used to record
// instruction outcomes.
func Processor() *processorMetrics {
	processorMetricsOnce.Do(func() {
		processorRegistry = &processorMetrics{
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "instructions_total",
				Help:      "Processed instructions segmented by variant and outcome code.",
			}, []string{"instruction", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "processor",
				Name:      "instruction_duration_seconds",
				Help:      "Latency distribution for instruction handlers.",
				Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
			}, []string{"instruction"}),
		}
		prometheus.MustRegister(processorRegistry.instructions, processorRegistry.latency)
	})
	return processorRegistry
}

// Observe records one processed instruction. outcome is "ok" or the name of
// the error code the call failed with.
func (m *processorMetrics) Observe(instruction, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if instruction == "" {
		instruction = InvalidInstruction
	}
	if outcome == "" {
		outcome = "ok"
	}
	m.instructions.WithLabelValues(instruction, outcome).Inc()
	m.latency.WithLabelValues(instruction).Observe(duration.Seconds())
}

// API returns the metrics registry for the query server.
func API() *apiMetrics {
	apiMetricsOnce.Do(func() {
		apiRegistry = &apiMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total query API requests segmented by route and status code.",
			}, []string{"route", "status"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for query API handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"route"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "api",
				Name:      "throttles_total",
				Help:      "Count of query API requests rejected due to throttling policies.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(apiRegistry.requests, apiRegistry.latency, apiRegistry.throttles)
	})
	return apiRegistry
}

// Observe records the outcome of a query request. The status code should be
// the HTTP status that was ultimately written to the response writer.
func (m *apiMetrics) Observe(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	m.requests.WithLabelValues(route, fmt.Sprintf("%d", status)).Inc()
	m.latency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter. Reasons should be stable
// strings such as "rate_limit".
func (m *apiMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}
