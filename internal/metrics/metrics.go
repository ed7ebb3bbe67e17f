// Package metrics exposes Prometheus collectors for the HTTP layer, the
// rating and invitation workflows, blob uploads and the catalog breaker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests being served",
		},
	)

	// RatingUpserts counts rating writes by kind and whether a row was created.
	RatingUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_upserts_total",
			Help: "Total number of rating upserts",
		},
		[]string{"kind", "result"}, // result: inserted, updated
	)

	InvitationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invitation_transitions_total",
			Help: "Total number of invitation status changes",
		},
		[]string{"to"},
	)

	BlobUploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blob_upload_bytes",
			Help:    "Size of stored uploads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		},
		[]string{"bucket"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRatingUpsert counts one rating write.
func RecordRatingUpsert(kind string, inserted bool) {
	result := "updated"
	if inserted {
		result = "inserted"
	}
	RatingUpserts.WithLabelValues(kind, result).Inc()
}

// Middleware records request count, latency and in-flight requests labelled
// by the matched chi route pattern, so path parameters do not explode
// cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// PoolStats is the subset of pgxpool.Stat exported as gauges.
type PoolStats interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
	MaxConns() int32
}

// RegisterPoolStats exports connection pool gauges read from stats on every
// scrape. Registering twice returns the registry's AlreadyRegisteredError.
func RegisterPoolStats(reg prometheus.Registerer, stats func() PoolStats) error {
	gauges := map[string]func(PoolStats) int32{
		"db_pool_acquired_connections": PoolStats.AcquiredConns,
		"db_pool_idle_connections":     PoolStats.IdleConns,
		"db_pool_total_connections":    PoolStats.TotalConns,
		"db_pool_max_connections":      PoolStats.MaxConns,
	}
	for name, read := range gauges {
		read := read
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: name,
			Help: "Postgres connection pool gauge " + name,
		}, func() float64 {
			s := stats()
			if s == nil {
				return 0
			}
			return float64(read(s))
		})
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}
