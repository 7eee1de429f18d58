package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels used by the filter pipeline.
const (
	StageLoad     = "load"
	StageUpload   = "upload"
	StageFilter   = "filter"
	StageDownload = "download"
	StageSave     = "save"
)

// Run status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the collectors for one process. Collectors live on their own
// registry so tests and textfile dumps never see the default registry.
type Metrics struct {
	Registry *prometheus.Registry

	StageDuration *prometheus.HistogramVec
	Runs          *prometheus.CounterVec
	ImagePixels   prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nppfilter_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10), // 100us to ~26s
		}, []string{"stage"}),
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nppfilter_runs_total",
			Help: "Total number of filter runs by filter, backend and status",
		}, []string{"filter", "backend", "status"}),
		ImagePixels: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nppfilter_image_pixels",
			Help: "Pixel count of the last processed image",
		}),
	}
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun counts one finished run.
func (m *Metrics) RecordRun(filter, backend string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.Runs.WithLabelValues(filter, backend, status).Inc()
}

// WriteTextfile dumps the registry in the text exposition format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
