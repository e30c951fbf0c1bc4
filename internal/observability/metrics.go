package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mutationsTotal  *prometheus.CounterVec
	kinds           map[string]struct{}
}

// Kind label values for requests outside the parameter tables.
const (
	kindNone    = "none"
	kindUnknown = "unknown"
)

// NewMetrics initialises the registry and base metrics. kinds bounds the
// values of the kind label on request metrics; any other {kind} path value
// is recorded as "unknown".
func NewMetrics(kinds ...string) *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditoria360_http_requests_total",
		Help: "HTTP requests by parameter kind, route and status code.",
	}, []string{"kind", "route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "auditoria360_http_request_duration_seconds",
		Help:    "HTTP request duration by parameter kind and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "route"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auditoria360_parametros_mutations_total",
		Help: "Tax-parameter mutations by kind, action and outcome.",
	}, []string{"kind", "action", "outcome"})
	registry.MustRegister(requests, duration, mutations)
	known := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		known[strings.ToUpper(k)] = struct{}{}
	}
	return &Metrics{
		kinds:           known,
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		mutationsTotal:  mutations,
	}
}

// Handler returns the http.Handler for /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per parameter kind and route
// pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route, kind := routePattern(r), m.requestKind(r)
		m.requestsTotal.WithLabelValues(kind, route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(kind, route).Observe(time.Since(start).Seconds())
	})
}

// ObserveMutation counts one create/update/delete attempt. outcome is "ok"
// or an error class.
func (m *Metrics) ObserveMutation(kind, action, outcome string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(kind, action, outcome).Inc()
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}

// requestKind reads the {kind} URL parameter once routing has filled it in.
func (m *Metrics) requestKind(r *http.Request) string {
	routeCtx := chi.RouteContext(r.Context())
	if routeCtx == nil {
		return kindNone
	}
	raw := routeCtx.URLParam("kind")
	if raw == "" {
		return kindNone
	}
	if _, ok := m.kinds[strings.ToUpper(raw)]; ok {
		return strings.ToUpper(raw)
	}
	return kindUnknown
}
