package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"karoo_lodge/internal/domain"
)

const namespace = "lodge"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "gateway_requests_total", Help: "Table store operations."},
		[]string{"backend", "op", "table", "outcome"},
	)
	GatewayLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace, Name: "gateway_request_duration_seconds",
			Help:    "Table store operation duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "external_requests_total", Help: "Outbound HTTP requests."},
		[]string{"service", "method", "status"},
	)
	ContentFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "content_fallbacks_total", Help: "Reads served from the bundled catalog."},
		[]string{"section", "reason"}, // reason: empty|error
	)
	DedupeRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "dedupe_removed_total", Help: "Duplicate rows deleted."},
		[]string{"table"},
	)
	LockEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "lock_events_total", Help: "Maintenance lock acquire/busy/release."},
		[]string{"event"},
	)
)

// Serve starts a side listener for /metrics when addr is set.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, GatewayRequests, GatewayLatency,
		ExternalRequests, ContentFallbacks, DedupeRemoved, LockEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveGateway(backend, op, table string, start time.Time, err error) {
	GatewayRequests.WithLabelValues(backend, op, table, LabelErr(err)).Inc()
	GatewayLatency.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func ObserveExternal(service, method string, status int) {
	ExternalRequests.WithLabelValues(service, method, strconv.Itoa(status)).Inc()
}

func ObserveFallback(section, reason string) { // reason: empty|error
	ContentFallbacks.WithLabelValues(section, reason).Inc()
}

func ObserveDedupe(table string, removed int) {
	DedupeRemoved.WithLabelValues(table).Add(float64(removed))
}

func ObserveLock(event string) { // event: acquired|busy|released
	LockEvents.WithLabelValues(event).Inc()
}

// LabelErr buckets an error into a low-cardinality outcome label.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalid):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotConfigured):
		return "not_configured"
	case errors.Is(err, domain.ErrBusy):
		return "busy"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	}
	return "error"
}
