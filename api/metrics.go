package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported at /metrics.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	attendance     *prometheus.CounterVec
	leaveDecisions *prometheus.CounterVec
	leavesExpired  prometheus.Counter
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workforce_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workforce_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		attendance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workforce_attendance_transitions_total",
			Help: "Successful attendance transitions by resulting state.",
		}, []string{"state"}),
		leaveDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workforce_leave_decisions_total",
			Help: "Leave requests decided by managers.",
		}, []string{"decision"}),
		leavesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "workforce_leaves_expired_total",
			Help: "Pending leave requests rejected after their start date elapsed.",
		}),
	}
	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.attendance,
		m.leaveDecisions,
		m.leavesExpired,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency, labelled by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.statusCode)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// AttendanceEvent counts a transition into state.
func (m *Metrics) AttendanceEvent(state string) {
	if m == nil {
		return
	}
	m.attendance.WithLabelValues(state).Inc()
}

// LeaveDecision counts a manager decision.
func (m *Metrics) LeaveDecision(decision string) {
	if m == nil {
		return
	}
	m.leaveDecisions.WithLabelValues(decision).Inc()
}

// LeavesExpired counts requests rejected by the expiry sweep.
func (m *Metrics) LeavesExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.leavesExpired.Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
