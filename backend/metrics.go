package backend

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "eventdesk"

// AlertType identifies the kind of anomaly detected.
type AlertType string

const (
	AlertLoginFailureSpike AlertType = "login_failure_spike"
)

// AlertEvent describes an anomaly that triggered an alert.
type AlertEvent struct {
	Type      AlertType `json:"type"`
	Message   string    `json:"message"`
	Count     int       `json:"count"`
	Threshold int       `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// AlertFunc is the callback invoked when an anomaly is detected.
type AlertFunc func(AlertEvent)

const (
	defaultLoginFailureWindow    = 1 * time.Minute
	defaultLoginFailureThreshold = 20
)

// metrics exports request and audit counters to prometheus and watches a
// sliding window of login failures.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	auditTotal      *prometheus.CounterVec

	mu             sync.Mutex
	loginFailures  []time.Time
	loginWindow    time.Duration
	loginThreshold int
	alertFn        AlertFunc
}

func newMetrics(registry *prometheus.Registry, alertFn AlertFunc) *metrics {
	factory := promauto.With(registry)
	return &metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "Total number of backend HTTP requests",
		}, []string{"route", "method", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Backend HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		auditTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "audit_events_total",
			Help:      "Total number of audit events by type",
		}, []string{"event"}),
		loginWindow:    defaultLoginFailureWindow,
		loginThreshold: defaultLoginFailureThreshold,
		alertFn:        alertFn,
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// instrument records every request under its chi route pattern so that
// path parameters do not explode label cardinality.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// recordAudit counts an audit event and updates the anomaly windows.
func (m *metrics) recordAudit(event AuditEvent) {
	if m == nil {
		return
	}
	m.auditTotal.WithLabelValues(string(event)).Inc()
	if event == AuditLoginFailure && m.alertFn != nil {
		m.recordLoginFailure()
	}
}

func (m *metrics) recordLoginFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.loginFailures = append(m.loginFailures, now)
	m.loginFailures = trimWindow(m.loginFailures, now, m.loginWindow)

	if len(m.loginFailures) >= m.loginThreshold {
		m.alertFn(AlertEvent{
			Type:      AlertLoginFailureSpike,
			Message:   "login failure rate exceeds threshold",
			Count:     len(m.loginFailures),
			Threshold: m.loginThreshold,
			Timestamp: now,
		})
		// Reset to avoid repeated alerts within the same spike.
		m.loginFailures = m.loginFailures[:0]
	}
}

// trimWindow removes entries older than (now - window) from the sorted slice.
func trimWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	cutoff := now.Add(-window)
	start := 0
	for start < len(times) && times[start].Before(cutoff) {
		start++
	}
	return times[start:]
}
