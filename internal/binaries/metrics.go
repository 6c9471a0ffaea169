package binaries

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Acquisition outcomes reported to Metrics.
const (
	OutcomeCached      = "cached"
	OutcomeInstalled   = "installed"
	OutcomeUnavailable = "unavailable"
	OutcomeFailed      = "failed"
)

// Metrics receives one observation per acquisition attempt.
type Metrics interface {
	ObserveAcquisition(tool Tool, outcome string, duration time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveAcquisition(Tool, string, time.Duration) {}

// PrometheusMetrics counts acquisitions and records their duration.
type PrometheusMetrics struct {
	acquisitions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewPrometheusMetrics registers the collectors with registerer, or the default registerer when nil.
func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		acquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiskofy_tool_acquisitions_total",
				Help: "Total number of tool acquisition attempts by outcome",
			},
			[]string{"tool", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tiskofy_tool_acquisition_duration_seconds",
				Help:    "Duration of tool acquisition attempts in seconds",
				Buckets: []float64{.01, .1, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"tool"},
		),
	}
}

// ObserveAcquisition records one attempt for tool.
func (m *PrometheusMetrics) ObserveAcquisition(tool Tool, outcome string, duration time.Duration) {
	m.acquisitions.WithLabelValues(tool.String(), outcome).Inc()
	m.duration.WithLabelValues(tool.String()).Observe(duration.Seconds())
}
