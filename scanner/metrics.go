package scanner

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors updated by scanner runs. Runs are
// distinguished by their label.
type Metrics struct {
	records  *prometheus.CounterVec
	progress *prometheus.GaugeVec
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
}

// NewMetrics creates the scanner collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemio",
			Subsystem: "scanner",
			Name:      "records_total",
			Help:      "Records handled by scanner workers",
		}, []string{"label", "status"}), // status: processed, failed

		progress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "chemio",
			Subsystem: "scanner",
			Name:      "progress_ratio",
			Help:      "Fraction of the input handled by the current run",
		}, []string{"label"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chemio",
			Subsystem: "scanner",
			Name:      "record_duration_seconds",
			Help:      "Time spent processing one record",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"label"}),

		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chemio",
			Subsystem: "scanner",
			Name:      "runs_total",
			Help:      "Finished scanner runs by final status",
		}, []string{"label", "status"}),
	}

	for _, c := range []prometheus.Collector{m.records, m.progress, m.duration, m.runs} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) recordProcessed(label string, seconds float64) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(label, "processed").Inc()
	m.duration.WithLabelValues(label).Observe(seconds)
}

func (m *Metrics) recordFailed(label string) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(label, "failed").Inc()
}

func (m *Metrics) setProgress(label string, fraction float64) {
	if m == nil {
		return
	}
	m.progress.WithLabelValues(label).Set(fraction)
}

func (m *Metrics) runFinished(label string, status Status) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(label, status.String()).Inc()
}
