// Package metrics holds the Prometheus collectors of the API server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts dispatched actions by name and outcome status code.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sports_club",
		Name:      "actions_total",
		Help:      "Dispatched API actions by action name and response code.",
	}, []string{"action", "code"})

	// ActionDuration observes handler latency per action.
	ActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sports_club",
		Name:      "action_duration_seconds",
		Help:      "Handler latency per action.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"action"})

	// WriteGateWait observes how long mutations waited for the write gate.
	WriteGateWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sports_club",
		Name:      "write_gate_wait_seconds",
		Help:      "Time spent waiting for the store write gate.",
		Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
	}, []string{"outcome"})
)
