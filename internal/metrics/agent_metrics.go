package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AgentMetrics bundles the pipeline's self-metrics. It is built once at
// startup and shared by the scheduler, the per-pass collectors and the
// dispatcher, which come and go every pass.
type AgentMetrics struct {
	PassesTotal     prometheus.Counter
	PassDuration    prometheus.Histogram
	PointsEmitted   *prometheus.CounterVec
	CollectErrors   *prometheus.CounterVec
	CollectDuration *prometheus.HistogramVec
	PointsSent      *prometheus.CounterVec
	SinkWriteErrors *prometheus.CounterVec
}

// NewAgentMetrics creates and registers every pipeline metric.
func NewAgentMetrics(f *MetricFactory) *AgentMetrics {
	return &AgentMetrics{
		PassesTotal:     f.NewPassesTotal(),
		PassDuration:    f.NewPassDurationSeconds(),
		PointsEmitted:   f.NewPointsEmittedTotal(),
		CollectErrors:   f.NewCollectErrorsTotal(),
		CollectDuration: f.NewCollectDurationSeconds(),
		PointsSent:      f.NewPointsSentTotal(),
		SinkWriteErrors: f.NewSinkWriteErrorsTotal(),
	}
}

func (f *MetricFactory) NewPassesTotal() prometheus.Counter {
	return promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
		Name: "syncflux_passes_total",
		Help: "Completed passes over all configuration files",
	})
}

func (f *MetricFactory) NewPassDurationSeconds() prometheus.Histogram {
	return promauto.With(f.reg).NewHistogram(prometheus.HistogramOpts{
		Name: "syncflux_pass_duration_seconds",
		Help: "Wall-clock duration of one full pass",
	})
}

func (f *MetricFactory) NewPointsEmittedTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncflux_points_emitted_total",
			Help: "Points produced by collection, per source",
		},
		[]string{"source"},
	)
}

func (f *MetricFactory) NewCollectErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncflux_collect_errors_total",
			Help: "Collection failures per source, including skipped devices and folders",
		},
		[]string{"source"},
	)
}

func (f *MetricFactory) NewCollectDurationSeconds() *prometheus.HistogramVec {
	return promauto.With(f.reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "syncflux_collect_duration_seconds",
			Help: "Duration of one source's collection cycle",
		},
		[]string{"source"},
	)
}

func (f *MetricFactory) NewPointsSentTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncflux_points_sent_total",
			Help: "Points accepted by sink writes, per sink",
		},
		[]string{"sink"},
	)
}

func (f *MetricFactory) NewSinkWriteErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "syncflux_sink_write_errors_total",
			Help: "Failed sink writes per sink and error kind",
		},
		[]string{"sink", "kind"},
	)
}
