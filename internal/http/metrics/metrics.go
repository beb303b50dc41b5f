package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jobboard"

// Collector owns its registry so tests and multiple servers do not share
// global state. A nil *Collector is valid and records nothing.
type Collector struct {
	registry      *prometheus.Registry
	inFlight      prometheus.Gauge
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	errors        *prometheus.CounterVec
	submissions   prometheus.Counter
	statusChanges *prometheus.CounterVec
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Error responses by error code.",
		}, []string{"code"}),
		submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "submitted_total",
			Help:      "Applications accepted for review.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "applications",
			Name:      "status_changes_total",
			Help:      "Application status changes by new status.",
		}, []string{"status"}),
	}
	c.registry.MustRegister(
		c.inFlight,
		c.requests,
		c.duration,
		c.errors,
		c.submissions,
		c.statusChanges,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RequestStarted() {
	if c == nil {
		return
	}
	c.inFlight.Inc()
}

func (c *Collector) RequestFinished(method, path string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.inFlight.Dec()
	method = strings.ToUpper(method)
	c.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (c *Collector) ErrorResponse(code string) {
	if c == nil {
		return
	}
	c.errors.WithLabelValues(code).Inc()
}

func (c *Collector) ApplicationSubmitted() {
	if c == nil {
		return
	}
	c.submissions.Inc()
}

func (c *Collector) StatusChanged(status string) {
	if c == nil {
		return
	}
	c.statusChanges.WithLabelValues(status).Inc()
}
