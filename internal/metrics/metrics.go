// Package metrics exports the driver's activity to Prometheus.
package metrics

import (
	"errors"

	"github.com/clambin/humidifier-cycler/internal/driver"
	"github.com/clambin/humidifier-cycler/internal/mode"
	"github.com/prometheus/client_golang/prometheus"
)

var _ prometheus.Collector = &Metrics{}
var _ driver.Observer = &Metrics{}

type Metrics struct {
	presses      *prometheus.CounterVec
	walks        *prometheus.CounterVec
	walkDuration prometheus.Histogram
	currentMode  *prometheus.GaugeVec
}

func New(namespace string, labels prometheus.Labels) *Metrics {
	return &Metrics{
		presses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "presses_total",
			Help:        "Number of button presses, by result",
			ConstLabels: labels,
		}, []string{"result"}),
		walks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "walks_total",
			Help:        "Number of walks that pressed the button, by result",
			ConstLabels: labels,
		}, []string{"result"}),
		walkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "walk_duration_seconds",
			Help:        "Duration of walks that pressed the button",
			ConstLabels: labels,
			Buckets:     []float64{1, 5, 10, 20, 30, 60, 120},
		}),
		currentMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "current_mode",
			Help:        "Mode the appliance is believed to be in. Always one. See label 'mode'",
			ConstLabels: labels,
		}, []string{"mode"}),
	}
}

// SetMode records the mode the appliance is in.
func (m *Metrics) SetMode(current mode.Mode) {
	for _, md := range mode.Modes() {
		var value float64
		if md == current {
			value = 1
		}
		m.currentMode.WithLabelValues(md.String()).Set(value)
	}
}

func (m *Metrics) PressAttempted(e driver.PressEvent) {
	m.presses.WithLabelValues(pressResult(e)).Inc()
	if e.Landed {
		m.SetMode(e.To)
	}
}

func (m *Metrics) WalkCompleted(e driver.WalkEvent) {
	if e.Presses == 0 && e.Err == nil {
		return
	}
	m.walks.WithLabelValues(walkResult(e.Err)).Inc()
	m.walkDuration.Observe(e.Duration.Seconds())
	m.SetMode(e.To)
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.presses.Describe(ch)
	m.walks.Describe(ch)
	m.walkDuration.Describe(ch)
	m.currentMode.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.presses.Collect(ch)
	m.walks.Collect(ch)
	m.walkDuration.Collect(ch)
	m.currentMode.Collect(ch)
}

func pressResult(e driver.PressEvent) string {
	switch {
	case e.Landed:
		return "landed"
	case errors.Is(e.Err, driver.ErrNotActuated):
		return "not_actuated"
	case errors.Is(e.Err, driver.ErrPressDropped):
		return "dropped"
	default:
		return "unavailable"
	}
}

func walkResult(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, driver.ErrPressExhausted):
		return "exhausted"
	case errors.Is(err, driver.ErrCanceled):
		return "canceled"
	default:
		return "failed"
	}
}
