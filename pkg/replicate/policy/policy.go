// Package policy implements the pure topic-naming and topic-classification
// rules a replication flow uses to rename topics on the target side and to
// keep internal bookkeeping topics from being replicated back to source.
package policy

import "strings"

// DefaultSeparator joins a source cluster alias to a topic name when no
// override is configured.
const DefaultSeparator = "."

// Default is the out-of-the-box ReplicationPolicy. It satisfies
// model.ReplicationPolicy.
type Default struct {
	// Separator joins sourceAlias and topic in FormatRemoteTopic. Empty
	// means DefaultSeparator.
	Separator string
}

func (p Default) separator() string {
	if p.Separator == "" {
		return DefaultSeparator
	}
	return p.Separator
}

// FormatRemoteTopic renders the target-side name for a topic replicated
// from sourceAlias, e.g. FormatRemoteTopic("east", "orders") == "east.orders".
func (p Default) FormatRemoteTopic(sourceAlias, topic string) string {
	return sourceAlias + p.separator() + topic
}

// IsHeartbeatsTopic reports whether topic is a heartbeats topic produced by
// a replication flow, e.g. "east.heartbeats".
func (p Default) IsHeartbeatsTopic(topic string) bool {
	return strings.HasSuffix(topic, p.separator()+"heartbeats") || topic == "heartbeats"
}

// IsCheckpointsTopic reports whether topic is a checkpoints topic, e.g.
// "east.checkpoints.internal".
func (p Default) IsCheckpointsTopic(topic string) bool {
	return strings.HasSuffix(topic, ".checkpoints.internal")
}

// IsMM2InternalTopic reports whether topic is any internal bookkeeping
// topic this system or a compatible one owns: offset syncs, checkpoints,
// or heartbeats. Internal topics are never replicated back to source.
func (p Default) IsMM2InternalTopic(topic string) bool {
	return strings.Contains(topic, "-offset-syncs.") ||
		strings.HasSuffix(topic, ".internal") ||
		p.IsHeartbeatsTopic(topic)
}

// IsReplicatedTopic reports whether topic already carries a
// sourceAlias+separator prefix produced by some upstream replication hop,
// i.e. whether replicating it again would create a replica of a replica.
// This is a supplement beyond the distilled naming rules: a real
// multi-hop deployment needs it to avoid fan-out topic name growth
// ("east.west.orders.orders...").
func (p Default) IsReplicatedTopic(topic string) bool {
	sep := p.separator()
	idx := strings.Index(topic, sep)
	return idx > 0 && idx < len(topic)-len(sep)
}
