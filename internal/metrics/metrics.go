package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smartwaste",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartwaste",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartwaste",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	coinsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartwaste",
			Subsystem: "ledger",
			Name:      "coins_awarded_total",
			Help:      "Coins credited to users, by source.",
		},
		[]string{"source"},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartwaste",
			Subsystem: "ledger",
			Name:      "redemptions_total",
			Help:      "Reward redemption attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	storeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartwaste",
			Subsystem: "ledger",
			Name:      "store_failures_total",
			Help:      "Ledger store failures, by operation.",
		},
		[]string{"operation"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartwaste",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications sent, by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		coinsAwarded,
		redemptions,
		storeFailures,
		notifications,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
// Requests are labelled by chi route pattern so ids don't explode cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordCoinsAwarded adds to the coins credited from a source
// ("bin_fill", "community", "deposit", "scan").
func RecordCoinsAwarded(source string, coins int) {
	if coins <= 0 {
		return
	}
	coinsAwarded.WithLabelValues(source).Add(float64(coins))
}

// RecordRedemption counts a redemption attempt by outcome
// ("success", "insufficient_balance", "invalid", "not_found", "error").
func RecordRedemption(outcome string) {
	redemptions.WithLabelValues(outcome).Inc()
}

// RecordStoreFailure counts a failed ledger operation
func RecordStoreFailure(operation string) {
	storeFailures.WithLabelValues(operation).Inc()
}

// RecordNotification counts a notification attempt
func RecordNotification(channel string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	notifications.WithLabelValues(channel, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
