package router

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// routeAttemptsTotal counts every candidate model the router tries,
// whether it ultimately succeeds or fails.
var routeAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hive",
		Subsystem: "router",
		Name:      "attempts_total",
		Help:      "Total number of routing attempts against a candidate model.",
	},
	[]string{"model", "outcome"}, // outcome: success, failure
)

// routeFallbacksTotal counts how often the router had to move past the
// first candidate in a chain because an earlier one failed or was marked
// unavailable.
var routeFallbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "hive",
		Subsystem: "router",
		Name:      "fallbacks_total",
		Help:      "Total number of times routing fell back past the first candidate in a chain.",
	},
	[]string{"tier"},
)
