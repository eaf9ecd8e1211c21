// Package metrics provides Prometheus metrics collection for brane.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ComplyCloud/brane/core/fault"
)

const namespace = "brane"

// Collector holds all Prometheus metrics for brane. It implements
// service.Observer.
type Collector struct {
	// Lifecycle metrics
	ModuleStarts        *prometheus.CounterVec
	ModuleStartDuration *prometheus.HistogramVec

	// Event metrics
	EventsProcessed *prometheus.CounterVec
	EventDuration   *prometheus.HistogramVec
	EventsRejected  *prometheus.CounterVec

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates a collector registered with the default registry.
func New() *Collector {
	return newCollector(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newCollector(promauto.With(reg))
}

func newCollector(f promauto.Factory) *Collector {
	return &Collector{
		ModuleStarts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "module_starts_total",
				Help:      "Module start attempts by outcome",
			},
			[]string{"module", "outcome"},
		),
		ModuleStartDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "module_start_duration_seconds",
				Help:      "Time spent starting each module, including dependency injection",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
			},
			[]string{"module"},
		),

		EventsProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_processed_total",
				Help:      "Events dispatched by outcome",
			},
			[]string{"event", "outcome"},
		),
		EventDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_duration_seconds",
				Help:      "Event dispatch duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"event"},
		),
		EventsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_rejected_total",
				Help:      "Events rejected before dispatch, by reason",
			},
			[]string{"event", "reason"},
		),

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),
	}
}

// ModuleStarted records a module start attempt.
func (c *Collector) ModuleStarted(name string, took time.Duration, err error) {
	c.ModuleStarts.WithLabelValues(name, outcome(err)).Inc()
	c.ModuleStartDuration.WithLabelValues(name).Observe(took.Seconds())
}

// EventProcessed records a dispatched event.
func (c *Collector) EventProcessed(event string, took time.Duration, err error) {
	c.EventsProcessed.WithLabelValues(event, outcome(err)).Inc()
	c.EventDuration.WithLabelValues(event).Observe(took.Seconds())
}

// EventRejected records an event refused before dispatch.
func (c *Collector) EventRejected(event string, err error) {
	c.EventsRejected.WithLabelValues(event, reason(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func reason(err error) string {
	switch {
	case errors.Is(err, fault.ErrInvalidPayload):
		return "invalid_payload"
	case errors.Is(err, fault.ErrNotFound):
		return "unknown_event"
	case err == nil:
		return "none"
	default:
		return "other"
	}
}
