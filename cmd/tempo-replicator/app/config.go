package app

import (
	"flag"
	"fmt"

	"github.com/grafana/tempo-replicator/pkg/replicate/kafkaclient"
	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// PartitionConfig names one source partition this process replicates.
type PartitionConfig struct {
	Topic     string `yaml:"topic"`
	Partition uint32 `yaml:"partition"`
}

// Config is the root configuration for one tempo-replicator process,
// which runs exactly one replication flow (one source cluster, one
// target cluster, a fixed set of source partitions) per spec.md §1's
// one-task-per-process scope.
type Config struct {
	LogLevel string `yaml:"log_level"`

	SourceClusterAlias string `yaml:"source_cluster_alias"`
	TargetClusterAlias string `yaml:"target_cluster_alias"`
	TopicSeparator     string `yaml:"topic_separator"`

	SourceKafka kafkaclient.Config `yaml:"source_kafka"`
	TargetKafka kafkaclient.Config `yaml:"target_kafka"`

	Partitions       []PartitionConfig `yaml:"partitions"`
	OffsetSyncsTopic string            `yaml:"offset_syncs_topic"`
	MaxOffsetLag     int64             `yaml:"max_offset_lag"`
	PollTimeoutMs    int64             `yaml:"poll_timeout_ms"`
}

// RegisterFlagsAndApplyDefaults registers every sub-config's flags under
// prefix, the way cmd/tempo/app/config.go registers each module's Config.
func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.LogLevel, prefix+"log-level", "info", "Log level: debug, info, warn, or error.")
	f.StringVar(&c.SourceClusterAlias, prefix+"source-cluster-alias", "", "Alias used in target-side topic names and in stored offset keys.")
	f.StringVar(&c.TargetClusterAlias, prefix+"target-cluster-alias", "", "Alias of the target cluster, for logging only.")
	f.StringVar(&c.TopicSeparator, prefix+"topic-separator", "", "Separator joining the source alias to a topic name on the target side; empty uses the built-in default.")
	f.StringVar(&c.OffsetSyncsTopic, prefix+"offset-syncs-topic", "", "Compacted topic, on the source cluster, that offset syncs are produced to.")
	f.Int64Var(&c.MaxOffsetLag, prefix+"max-offset-lag", 100, "Maximum downstream-offset drift tolerated before a new offset sync is forced.")
	f.Int64Var(&c.PollTimeoutMs, prefix+"poll-timeout-ms", 1000, "Per-iteration poll timeout.")

	c.SourceKafka.RegisterFlagsAndApplyDefaults(prefix+"source-kafka", f)
	c.TargetKafka.RegisterFlagsAndApplyDefaults(prefix+"target-kafka", f)
}

// Validate reports a configuration that cannot build a runnable flow.
func (c *Config) Validate() error {
	if c.SourceClusterAlias == "" {
		return fmt.Errorf("source-cluster-alias is required")
	}
	if len(c.Partitions) == 0 {
		return fmt.Errorf("at least one partition must be configured")
	}
	if c.OffsetSyncsTopic == "" {
		return fmt.Errorf("offset-syncs-topic is required")
	}
	if err := c.SourceKafka.Validate(); err != nil {
		return fmt.Errorf("source-kafka: %w", err)
	}
	if err := c.TargetKafka.Validate(); err != nil {
		return fmt.Errorf("target-kafka: %w", err)
	}
	return nil
}

// assignedPartitions converts the configured partition list to the
// model.TopicPartition shape task.Start needs.
func (c *Config) assignedPartitions() []model.TopicPartition {
	out := make([]model.TopicPartition, len(c.Partitions))
	for i, p := range c.Partitions {
		out[i] = model.TopicPartition{Topic: p.Topic, Partition: p.Partition}
	}
	return out
}
