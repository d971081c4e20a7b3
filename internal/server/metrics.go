package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics are registered on a per-server registry so two servers can
// coexist in one process.
type metrics struct {
	registry    *prometheus.Registry
	reqTotal    *prometheus.CounterVec
	reqDuration prometheus.Summary
	candidates  *prometheus.CounterVec
	unknowns    prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{registry: prometheus.NewRegistry()}

	m.reqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lastshow",
		Name:      "requests_total",
		Help:      "Number of API requests by endpoint and status",
	}, []string{"endpoint", "status"})
	m.reqDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "lastshow",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving API requests",
	})
	m.candidates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lastshow",
		Name:      "candidates_extracted_total",
		Help:      "Number of candidates produced by extraction endpoint",
	}, []string{"endpoint"})
	m.unknowns = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lastshow",
		Name:      "selections_unknown_total",
		Help:      "Number of selections that returned status unknown",
	})

	m.registry.MustRegister(m.reqTotal, m.reqDuration, m.candidates, m.unknowns)
	return m
}
