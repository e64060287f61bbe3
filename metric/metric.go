// Package metric exposes component counters as prometheus metrics.
package metric

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "il"

// Metric holds the collectors shared by all components registered with
// the same registerer.
type Metric struct {
	processed *prometheus.CounterVec
	returned  *prometheus.CounterVec
	flushed   *prometheus.CounterVec
	events    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	queued    *prometheus.GaugeVec
}

// New registers component collectors with the registerer. Nil means the
// default prometheus registerer.
func New(reg prometheus.Registerer) *Metric {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metric{
		processed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "buffers_processed_total",
				Help:      "Number of buffers passed to the processing callback",
			},
			[]string{"component"},
		),
		returned: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "buffers_returned_total",
				Help:      "Number of buffers returned to their owner",
			},
			[]string{"component", "port"},
		),
		flushed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "buffers_flushed_total",
				Help:      "Number of queued buffers returned by a flush",
			},
			[]string{"component", "port"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Number of events raised to the client",
			},
			[]string{"component", "type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "callback_duration_seconds",
				Help:      "Duration of processing callbacks",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"component"},
		),
		queued: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "buffers_queued",
				Help:      "Number of buffers waiting in the port queue",
			},
			[]string{"component", "port"},
		),
	}
}

// Meter returns the meter of a single component. Nil metric results in
// a nil meter, which discards all measurements.
func (m *Metric) Meter(component string) *Meter {
	if m == nil {
		return nil
	}
	return &Meter{m: m, component: component}
}

// Meter captures the measurements of one component.
type Meter struct {
	m         *Metric
	component string
}

// Processed counts a processing callback that took d.
func (m *Meter) Processed(d time.Duration) {
	if m == nil {
		return
	}
	m.m.processed.WithLabelValues(m.component).Inc()
	m.m.latency.WithLabelValues(m.component).Observe(d.Seconds())
}

// Returned counts a buffer returned from the port.
func (m *Meter) Returned(port int) {
	if m == nil {
		return
	}
	m.m.returned.WithLabelValues(m.component, strconv.Itoa(port)).Inc()
}

// Flushed counts buffers drained from the port queue by a flush.
func (m *Meter) Flushed(port, n int) {
	if m == nil || n == 0 {
		return
	}
	m.m.flushed.WithLabelValues(m.component, strconv.Itoa(port)).Add(float64(n))
}

// Event counts an event of the given type.
func (m *Meter) Event(eventType string) {
	if m == nil {
		return
	}
	m.m.events.WithLabelValues(m.component, eventType).Inc()
}

// Queued sets the number of buffers waiting in the port queue.
func (m *Meter) Queued(port, n int) {
	if m == nil {
		return
	}
	m.m.queued.WithLabelValues(m.component, strconv.Itoa(port)).Set(float64(n))
}
