// Package metrics exports every externally observable operation under the
// vonnegut_ namespace, mirroring the teacher's kafkametrics/metrics_raft.go
// families (one Prometheus collector per operation, incremented inline by
// the handler that completes it) but built on prometheus/client_golang
// directly rather than the teacher's metricsserver's separate file-backed
// reporting path, since this project has no mercury/internal sink to mirror
// it to.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a small, non-blocking facade over a private Prometheus
// registry: no call on this type may block on I/O, matching spec.md §1's
// framing of metrics as a pure external collaborator the core only ever
// writes to.
type Metrics struct {
	registry *prometheus.Registry

	connectionsOpened prometheus.Counter
	connectionsActive prometheus.Gauge

	produceLatency  *prometheus.HistogramVec
	produceErrors   *prometheus.CounterVec
	fetchLatency    *prometheus.HistogramVec
	fetchBytes      *prometheus.CounterVec
	replicateLatency prometheus.Histogram
	writeRepairs    prometheus.Counter
	segmentRollovers prometheus.Counter
	openFileHandles prometheus.Gauge
}

// New constructs a Metrics backed by a fresh private registry, so that
// more than one Server in the same process (as in tests) never collide on
// global collector registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return &Metrics{
		registry: reg,

		connectionsOpened: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "vonnegut_connections_opened_total",
			Help: "Total TCP connections accepted.",
		}),
		connectionsActive: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "vonnegut_connections_active",
			Help: "Currently open TCP connections.",
		}),
		produceLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "vonnegut_produce_latency_seconds",
			Help: "Produce request latency, from append through chain acknowledgement.",
		}, []string{"topic"}),
		produceErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vonnegut_produce_errors_total",
			Help: "Produce requests that returned a non-success error code.",
		}, []string{"topic", "error_code"}),
		fetchLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name: "vonnegut_fetch_latency_seconds",
			Help: "Per-partition fetch resolution latency (offset lookup and range trim), excluding the socket transfer.",
		}, []string{"topic"}),
		fetchBytes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "vonnegut_fetch_bytes_total",
			Help: "Bytes transferred to fetch clients.",
		}, []string{"topic"}),
		replicateLatency: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name: "vonnegut_replicate_latency_seconds",
			Help: "Downstream replicate round-trip latency.",
		}),
		writeRepairs: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "vonnegut_write_repairs_total",
			Help: "write_repair responses sent to an upstream replica.",
		}),
		segmentRollovers: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "vonnegut_segment_rollovers_total",
			Help: "Active segment rollovers across all partitions.",
		}),
		openFileHandles: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "vonnegut_open_file_handles",
			Help: "Segment file descriptors currently held open by the LRU cache.",
		}),
	}
}

// NewUnregistered is New with a throwaway registry, for callers (mainly
// tests and the default Options in server.New) that need a working
// Metrics but have no intention of ever serving it over HTTP.
func NewUnregistered() *Metrics { return New() }

// Handler exposes the registry in the Prometheus exposition format, for
// wiring into the metrics HTTP listener.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() { m.connectionsOpened.Inc(); m.connectionsActive.Inc() }
func (m *Metrics) ConnectionClosed() { m.connectionsActive.Dec() }

func (m *Metrics) ProduceObserved(topic string, dur time.Duration) {
	m.produceLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func (m *Metrics) ProduceErrored(topic, errorCodeName string) {
	m.produceErrors.WithLabelValues(topic, errorCodeName).Inc()
}

func (m *Metrics) FetchObserved(topic string, bytes int64, dur time.Duration) {
	m.fetchLatency.WithLabelValues(topic).Observe(dur.Seconds())
	m.fetchBytes.WithLabelValues(topic).Add(float64(bytes))
}

func (m *Metrics) ReplicateObserved(dur time.Duration) {
	m.replicateLatency.Observe(dur.Seconds())
}

func (m *Metrics) WriteRepaired() { m.writeRepairs.Inc() }

func (m *Metrics) SegmentRolledOver() { m.segmentRollovers.Inc() }

func (m *Metrics) OpenFileHandlesSet(n int) { m.openFileHandles.Set(float64(n)) }
