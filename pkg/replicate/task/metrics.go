package task

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// Metrics is the per-task metrics sink (component G). It is owned by the
// ReplicationTask that created it; reporters are registered externally
// by whatever scrapes reg, exactly as modules/blockbuilder registers its
// metricPartitionLag family against prometheus.DefaultRegisterer.
type Metrics struct {
	recordAge          *prometheus.HistogramVec
	recordBytes        *prometheus.HistogramVec
	recordsTotal       *prometheus.CounterVec
	replicationLatency *prometheus.HistogramVec
}

// NewMetrics registers the task's metric family against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		recordAge: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                   "tempo_replicator",
			Name:                        "record_age_seconds",
			Help:                        "Age of a polled source record at poll time.",
			NativeHistogramBucketFactor: 1.1,
		}, []string{"topic", "partition"}),
		recordBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                   "tempo_replicator",
			Name:                        "record_bytes",
			Help:                        "Size in bytes of a polled source record.",
			NativeHistogramBucketFactor: 1.1,
		}, []string{"topic", "partition"}),
		recordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempo_replicator",
			Name:      "records_total",
			Help:      "Total number of source records whose forwarding has been acknowledged.",
		}, []string{"topic", "partition"}),
		replicationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                   "tempo_replicator",
			Name:                        "replication_latency_seconds",
			Help:                        "Time between a record's source timestamp and its acknowledged forward to target.",
			NativeHistogramBucketFactor: 1.1,
		}, []string{"topic", "partition"}),
	}
}

func labels(tp model.TopicPartition) prometheus.Labels {
	return prometheus.Labels{"topic": tp.Topic, "partition": strconv.FormatUint(uint64(tp.Partition), 10)}
}

// RecordAge observes ageSeconds for tp.
func (m *Metrics) RecordAge(tp model.TopicPartition, ageSeconds float64) {
	m.recordAge.With(labels(tp)).Observe(ageSeconds)
}

// RecordBytes observes n for tp.
func (m *Metrics) RecordBytes(tp model.TopicPartition, n int) {
	m.recordBytes.With(labels(tp)).Observe(float64(n))
}

// CountRecord increments the forwarded-record counter for tp.
func (m *Metrics) CountRecord(tp model.TopicPartition) {
	m.recordsTotal.With(labels(tp)).Inc()
}

// ReplicationLatency observes latencySeconds for tp.
func (m *Metrics) ReplicationLatency(tp model.TopicPartition, latencySeconds float64) {
	m.replicationLatency.With(labels(tp)).Observe(latencySeconds)
}

// Close unregisters the task's metrics from the registry they were
// registered against, mirroring the lifecycle of every other per-task
// resource.
func (m *Metrics) Close(reg prometheus.Registerer) {
	if unreg, ok := reg.(interface{ Unregister(prometheus.Collector) bool }); ok {
		unreg.Unregister(m.recordAge)
		unreg.Unregister(m.recordBytes)
		unreg.Unregister(m.recordsTotal)
		unreg.Unregister(m.replicationLatency)
	}
}
