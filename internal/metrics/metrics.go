package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Detections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "streampresence_detections_total", Help: "Cycles that selected a record, by strategy"},
		[]string{"strategy"},
	)
	Rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "streampresence_rejections_total", Help: "Selected records rejected as false positives, by rule"},
		[]string{"rule"},
	)
	CollectorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "streampresence_collector_errors_total", Help: "Collector failures"},
		[]string{"strategy"},
	)
	Pushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "streampresence_pushes_total", Help: "Presence pushes by tier and result"},
		[]string{"tier", "result"},
	)
	Reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "streampresence_reconnects_total", Help: "Presence connection reopen attempts"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "streampresence_cycle_duration_seconds",
			Help:    "Poll cycle time",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
	Watching = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "streampresence_watching", Help: "1 while the service is being broadcast"},
		[]string{"service"},
	)
)

var registerOnce sync.Once

// RegisterMetrics registers every collector with the default registry. It is
// safe to call more than once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(Detections, Rejections, CollectorErrors, Pushes, Reconnects, CycleDuration, Watching)
	})
}
