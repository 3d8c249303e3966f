// Package metrics exposes the portal's prometheus collectors.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	RequestCounter      *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	BackendCalls        *prometheus.CounterVec
	BackendDuration     *prometheus.HistogramVec
	Submissions         *prometheus.CounterVec
	ActiveAttempts      prometheus.Gauge
	UnreadNotifications prometheus.Gauge
	NotificationPolls   *prometheus.CounterVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_http_requests_total",
				Help: "Total number of portal HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_http_request_duration_seconds",
				Help:    "Duration of portal HTTP requests",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		BackendCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_backend_calls_total",
				Help: "Calls made to the learning backend",
			},
			[]string{"method", "endpoint", "status"},
		),
		BackendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portal_backend_call_duration_seconds",
				Help:    "Latency of calls to the learning backend",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "endpoint"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_assessment_submissions_total",
				Help: "Assessment submissions by outcome",
			},
			[]string{"outcome"},
		),
		ActiveAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_active_attempts",
			Help: "Assessment attempts currently held by the portal",
		}),
		UnreadNotifications: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "portal_unread_notifications",
			Help: "Unread notification count from the last poll",
		}),
		NotificationPolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portal_notification_polls_total",
				Help: "Notification polls by result",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestCounter,
		m.RequestDuration,
		m.BackendCalls,
		m.BackendDuration,
		m.Submissions,
		m.ActiveAttempts,
		m.UnreadNotifications,
		m.NotificationPolls,
	)
	return m
}

// Middleware records request counts and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ObserveBackend records one backend round trip. status is 0 on transport errors.
func (m *Metrics) ObserveBackend(method, endpoint string, status int, latency time.Duration) {
	m.BackendCalls.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.BackendDuration.WithLabelValues(method, endpoint).Observe(latency.Seconds())
}
