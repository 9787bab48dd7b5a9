// Package metrics exposes delta and mount statistics for Prometheus
// scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	nfsgaze "github.com/blakegolliher/nfs-gaze"
)

var opLabels = []string{"mountpoint", "server", "operation"}
var mountLabels = []string{"mountpoint", "server"}

// Exporter accumulates observed deltas into a dedicated Prometheus
// registry. Counter families only ever grow: a counter reset on the mount
// shows up as negative deltas from the engine and is clamped to zero here,
// since Prometheus counters must not decrease. The raw (possibly negative)
// deltas remain visible to the text renderers.
type Exporter struct {
	registry *prometheus.Registry

	operations      *prometheus.CounterVec
	sentBytes       *prometheus.CounterVec
	receivedBytes   *prometheus.CounterVec
	errors          *prometheus.CounterVec
	retransmissions *prometheus.CounterVec
	avgRTT          *prometheus.GaugeVec
	avgExec         *prometheus.GaugeVec
	avgQueue        *prometheus.GaugeVec

	vfsEvents *prometheus.GaugeVec

	mountAge     *prometheus.GaugeVec
	readBytes    *prometheus.GaugeVec
	writtenBytes *prometheus.GaugeVec
}

// NewExporter builds an Exporter with all metric families registered on a
// fresh registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Exporter{
		registry: registry,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfs_operations_total",
			Help: "Number of NFS operations performed, by operation type.",
		}, opLabels),
		sentBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfs_operation_sent_bytes_total",
			Help: "Bytes sent for NFS operations, by operation type.",
		}, opLabels),
		receivedBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfs_operation_received_bytes_total",
			Help: "Bytes received for NFS operations, by operation type.",
		}, opLabels),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfs_operation_errors_total",
			Help: "Number of NFS operations that completed with an error.",
		}, opLabels),
		retransmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nfs_operation_retransmissions_total",
			Help: "Number of NFS operation major timeouts.",
		}, opLabels),
		avgRTT: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_operation_avg_rtt_milliseconds",
			Help: "Average round trip time per operation over the last interval.",
		}, opLabels),
		avgExec: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_operation_avg_exec_milliseconds",
			Help: "Average execution time per operation over the last interval.",
		}, opLabels),
		avgQueue: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_operation_avg_queue_milliseconds",
			Help: "Average queue time per operation over the last interval.",
		}, opLabels),
		vfsEvents: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_vfs_events",
			Help: "Cumulative VFS event counters as reported by the kernel.",
		}, []string{"mountpoint", "server", "event"}),
		mountAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_mount_age_seconds",
			Help: "Age of the NFS mount.",
		}, mountLabels),
		readBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_mount_read_bytes",
			Help: "Cumulative bytes read through the mount.",
		}, mountLabels),
		writtenBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nfs_mount_written_bytes",
			Help: "Cumulative bytes written through the mount.",
		}, mountLabels),
	}
}

// ObserveDeltas records one interval's delta statistics for a mount.
func (e *Exporter) ObserveDeltas(mount *nfsgaze.NFSMount, stats []nfsgaze.DeltaStats) {
	for _, stat := range stats {
		labels := prometheus.Labels{
			"mountpoint": mount.MountPoint,
			"server":     mount.Server,
			"operation":  stat.Operation,
		}
		e.operations.With(labels).Add(clamped(stat.DeltaOps))
		e.sentBytes.With(labels).Add(clamped(stat.DeltaSent))
		e.receivedBytes.With(labels).Add(clamped(stat.DeltaRecv))
		e.errors.With(labels).Add(clamped(stat.DeltaErrors))
		e.retransmissions.With(labels).Add(clamped(stat.DeltaRetrans))
		e.avgRTT.With(labels).Set(stat.AvgRTT)
		e.avgExec.With(labels).Set(stat.AvgExec)
		e.avgQueue.With(labels).Set(stat.AvgQueue)
	}
}

// ObserveMount records the mount-level gauges and, when the report carried
// an events line, every VFS event counter.
func (e *Exporter) ObserveMount(mount *nfsgaze.NFSMount) {
	e.mountAge.WithLabelValues(mount.MountPoint, mount.Server).Set(float64(mount.Age))
	e.readBytes.WithLabelValues(mount.MountPoint, mount.Server).Set(float64(mount.BytesRead))
	e.writtenBytes.WithLabelValues(mount.MountPoint, mount.Server).Set(float64(mount.BytesWrite))

	if mount.Events == nil {
		return
	}
	for _, counter := range mount.Events.Counters() {
		e.vfsEvents.WithLabelValues(mount.MountPoint, mount.Server, counter.Name).Set(float64(counter.Value))
	}
}

// Handler returns the scrape endpoint for this exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

func clamped(delta int64) float64 {
	if delta < 0 {
		return 0
	}
	return float64(delta)
}
