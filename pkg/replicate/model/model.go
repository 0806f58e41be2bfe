// Package model holds the data shared by every replication-pump package:
// the topic-partition key type, the offset-sync record, and the immutable
// task assignment handed down by the orchestrator.
package model

import "fmt"

// NotTranslatable is returned by translation lookups when no bracketing
// offset sync exists for the requested upstream offset.
const NotTranslatable int64 = -1

// unset marks a field that has never been observed.
const unset int64 = -1

// TopicPartition identifies one source or target log shard. It is used as
// a map key throughout the store and the task, so it must remain a plain
// comparable struct.
type TopicPartition struct {
	Topic     string
	Partition uint32
}

func (tp TopicPartition) String() string {
	return fmt.Sprintf("%s-%d", tp.Topic, tp.Partition)
}

// OffsetSync pins one (upstream, downstream) pair for tp. It is the unit
// persisted to, and read back from, the compacted offset-syncs topic.
type OffsetSync struct {
	TP         TopicPartition
	Upstream   int64
	Downstream int64
}

// sentinelSync is returned by the store when no sync has ever been
// observed for a partition.
func sentinelSync(tp TopicPartition) OffsetSync {
	return OffsetSync{TP: tp, Upstream: unset, Downstream: unset}
}

// SentinelSync exposes sentinelSync to other packages in this module.
func SentinelSync(tp TopicPartition) OffsetSync {
	return sentinelSync(tp)
}

// TaskAssignment is the immutable configuration an orchestrator hands to
// one activation of a ReplicationTask. Its lifetime is one task run.
type TaskAssignment struct {
	SourceClusterAlias string
	TargetClusterAlias string
	AssignedPartitions []TopicPartition
	MaxOffsetLag       int64
	PollTimeoutMs      int64
	OffsetSyncsTopic   string
	Policy             ReplicationPolicy
}

// RecordHeader mirrors a Kafka record header, copied verbatim from
// source to target per spec.md §4.E.
type RecordHeader struct {
	Key   string
	Value []byte
}

// SourceRecord is one record as read from the source cluster, before
// conversion.
type SourceRecord struct {
	TP        TopicPartition
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp int64 // unix millis
	Headers   []RecordHeader
}

// ForwardedRecord is the converted record the host publishes to the
// target cluster on this task's behalf (spec.md §4.E, component E does
// not own the target producer — the host does).
type ForwardedRecord struct {
	SourceTP        TopicPartition
	UpstreamOffset  int64
	TargetTopic     string
	TargetPartition uint32
	Key             []byte
	Value           []byte
	Timestamp       int64
	Headers         []RecordHeader
}

// RecordMetadata is what the host passes back to CommitRecord once the
// target cluster has acknowledged a ForwardedRecord.
type RecordMetadata struct {
	Offset    int64
	HasOffset bool
}

// ReplicationPolicy is declared here (rather than imported from
// pkg/replicate/policy) to avoid a dependency cycle: model is the leaf
// package everything else imports, and TaskAssignment needs to reference
// the policy's type without importing its implementation package. The
// concrete *policy.Default in pkg/replicate/policy satisfies this.
type ReplicationPolicy interface {
	FormatRemoteTopic(sourceAlias, topic string) string
	IsHeartbeatsTopic(topic string) bool
	IsCheckpointsTopic(topic string) bool
	IsMM2InternalTopic(topic string) bool
	IsReplicatedTopic(topic string) bool
}
