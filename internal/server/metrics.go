package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpRequestsTotal and httpRequestDuration give an operator visibility
// into traffic shape without having to cross-reference access logs.
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hive",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled, by route and status class.",
		},
		[]string{"route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hive",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds, by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// metricsMiddleware records per-route request counts and latency. It reads
// the route pattern chi matched (not the raw path) so templated segments
// like "/v1/loop/{id}" don't explode the label cardinality.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chiRoutePattern(r)
		httpRequestsTotal.WithLabelValues(route, statusClass(ww.Status())).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func chiRoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func statusClass(code int) string {
	if code == 0 {
		return "unknown"
	}
	return strconv.Itoa(code/100) + "xx"
}
