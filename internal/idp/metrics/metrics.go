// Package metrics exposes the service's Prometheus collectors.
//
// Every recording method is safe on a nil *Metrics so components can run
// with metrics disabled.
//
// # Label values
//
//   - route: the ServeMux pattern that matched, "unmatched" otherwise
//   - grant: authorization_code, password, client_credentials, refresh_token
//   - decision: allowed, denied
//   - result: hit, miss
//   - kind: refresh_tokens, authorization_codes
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "idp"

type Metrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	tokensIssued    *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	resolverCache   *prometheus.CounterVec
	housekeeping    *prometheus.CounterVec
}

// New builds the collectors on a private registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Token responses issued by grant type.",
		}, []string{"grant"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_key_decisions_total",
			Help:      "API key authorization decisions.",
		}, []string{"decision"}),
		resolverCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_resolver_cache_total",
			Help:      "Key resolver cache lookups.",
		}, []string{"result"}),
		housekeeping: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "housekeeping_removed_total",
			Help:      "Rows removed or cleared by housekeeping.",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestDuration,
		m.tokensIssued,
		m.guardDecisions,
		m.resolverCache,
		m.housekeeping,
	)
	return m
}

// Registry returns the registry backing m, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) TokenIssued(grant string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(grant).Inc()
}

func (m *Metrics) GuardDecision(allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.guardDecisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ResolverCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.resolverCache.WithLabelValues(result).Inc()
}

func (m *Metrics) HousekeepingRemoved(kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.housekeeping.WithLabelValues(kind).Add(float64(n))
}

// Middleware records request durations. It must wrap the ServeMux directly
// so the matched pattern is visible once the handler returns.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
