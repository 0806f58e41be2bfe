// Package offsetsync implements the three in-scope pieces of the
// replication data-plane that revolve around the offset-syncs compacted
// topic: the wire codec, the per-partition emission decision
// (PartitionState), and the tailing read-side store (OffsetSyncStore).
package offsetsync

import (
	"encoding/binary"
	"fmt"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// valueVersion1 is the only value layout this codec has ever produced.
// Bumping it is how a future incompatible value change would be signaled;
// the key format never changes, since compaction correctness depends on
// byte-stable keys across restarts (spec: "key stability ... is required
// for correct compaction").
const valueVersion1 = byte(1)

// EncodeKey returns the compaction key for tp: a length-prefixed topic
// name followed by a big-endian partition index. It is stable across
// restarts and across this codec's own version bumps, by design.
func EncodeKey(tp model.TopicPartition) []byte {
	topic := []byte(tp.Topic)
	buf := make([]byte, 0, 4+len(topic)+4)
	buf = appendUint32(buf, uint32(len(topic)))
	buf = append(buf, topic...)
	buf = appendUint32(buf, tp.Partition)
	return buf
}

// EncodeValue returns the self-describing value payload for sync: the
// full (topic, partition, upstream, downstream) tuple, so a consumer of
// the offset-syncs topic never needs to assume key/value pairing.
func EncodeValue(sync model.OffsetSync) []byte {
	topic := []byte(sync.TP.Topic)
	buf := make([]byte, 0, 1+4+len(topic)+4+8+8)
	buf = append(buf, valueVersion1)
	buf = appendUint32(buf, uint32(len(topic)))
	buf = append(buf, topic...)
	buf = appendUint32(buf, sync.TP.Partition)
	buf = appendInt64(buf, sync.Upstream)
	buf = appendInt64(buf, sync.Downstream)
	return buf
}

// DecodeRecord reconstructs the OffsetSync carried by a record's raw key
// and value bytes. It trusts the value (not the key) for every field,
// exactly as spec.md requires, and tolerates extra trailing bytes in
// value so a future codec version can append fields without breaking
// older readers mid-rollout.
func DecodeRecord(_, value []byte) (model.OffsetSync, error) {
	var sync model.OffsetSync

	if len(value) < 1 {
		return sync, fmt.Errorf("offsetsync: empty value")
	}
	switch value[0] {
	case valueVersion1:
	default:
		return sync, fmt.Errorf("offsetsync: unsupported value version %d", value[0])
	}
	buf := value[1:]

	topicLen, buf, err := readUint32(buf)
	if err != nil {
		return sync, fmt.Errorf("offsetsync: topic length: %w", err)
	}
	if uint32(len(buf)) < topicLen {
		return sync, fmt.Errorf("offsetsync: truncated topic")
	}
	topic := string(buf[:topicLen])
	buf = buf[topicLen:]

	partition, buf, err := readUint32(buf)
	if err != nil {
		return sync, fmt.Errorf("offsetsync: partition: %w", err)
	}

	upstream, buf, err := readInt64(buf)
	if err != nil {
		return sync, fmt.Errorf("offsetsync: upstream offset: %w", err)
	}

	downstream, _, err := readInt64(buf)
	if err != nil {
		return sync, fmt.Errorf("offsetsync: downstream offset: %w", err)
	}

	sync.TP = model.TopicPartition{Topic: topic, Partition: partition}
	sync.Upstream = upstream
	sync.Downstream = downstream
	return sync, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt64(buf []byte, v int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(v))
	return append(buf, tmp[:]...)
}

func readUint32(buf []byte) (uint32, []byte, error) {
	if len(buf) < 4 {
		return 0, nil, fmt.Errorf("need 4 bytes, have %d", len(buf))
	}
	return binary.BigEndian.Uint32(buf[:4]), buf[4:], nil
}

func readInt64(buf []byte) (int64, []byte, error) {
	if len(buf) < 8 {
		return 0, nil, fmt.Errorf("need 8 bytes, have %d", len(buf))
	}
	return int64(binary.BigEndian.Uint64(buf[:8])), buf[8:], nil
}
