package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

const namespace = "igrejabot"

// Metrics holds the Prometheus collectors of the application. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	classStudents *prometheus.GaugeVec
	registrations prometheus.Counter
	lastPoll      prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Service operations by name and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		classStudents: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "class_students",
			Help:      "Students enrolled per new member class, as seen by the class watcher.",
		}, []string{"class_id"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "public_registrations_total",
			Help:      "Members registered through a class invite link.",
		}),
		lastPoll: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "class_watcher_last_poll_timestamp_seconds",
			Help:      "Unix time of the last successful class watcher poll.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.operations,
		m.duration,
		m.classStudents,
		m.registrations,
		m.lastPoll,
	)
	return m
}

// Observe records the outcome and latency of one service operation.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, resultLabel(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// SetClassStudents sets the enrolled student gauge of a class.
func (m *Metrics) SetClassStudents(classID string, count int) {
	if m == nil {
		return
	}
	m.classStudents.WithLabelValues(classID).Set(float64(count))
}

// ForgetClass drops the student gauge of a class that no longer exists.
func (m *Metrics) ForgetClass(classID string) {
	if m == nil {
		return
	}
	m.classStudents.DeleteLabelValues(classID)
}

// IncRegistrations counts one public registration.
func (m *Metrics) IncRegistrations() {
	if m == nil {
		return
	}
	m.registrations.Inc()
}

// SetLastPoll records the time of a successful watcher poll.
func (m *Metrics) SetLastPoll(t time.Time) {
	if m == nil {
		return
	}
	m.lastPoll.Set(float64(t.Unix()))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrValidation):
		return "invalid"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrAlreadyExists), errors.Is(err, models.ErrClassClosed):
		return "conflict"
	default:
		return "error"
	}
}
