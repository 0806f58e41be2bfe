package kafkaclient

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// SourceConsumer wraps a *kgo.Client for the replication task's source
// side: manual partition assignment seeked to a caller-supplied start
// offset per partition, never a consumer group, matching spec.md §4.E's
// seek-and-tail model exactly.
type SourceConsumer struct {
	client *kgo.Client
}

// NewSourceConsumer wraps client for task.ReplicationTask's exclusive
// use as its source-side consumer.
func NewSourceConsumer(client *kgo.Client) *SourceConsumer {
	return &SourceConsumer{client: client}
}

// Assign seeks every partition in startOffsets to the given offset
// (earliest retained record if the offset is negative) and adds that
// set to what the client consumes. Partitions added by a prior call are
// not removed.
func (c *SourceConsumer) Assign(_ context.Context, startOffsets map[model.TopicPartition]int64) error {
	byTopic := make(map[string]map[int32]kgo.Offset)
	for tp, offset := range startOffsets {
		partitions, ok := byTopic[tp.Topic]
		if !ok {
			partitions = make(map[int32]kgo.Offset)
			byTopic[tp.Topic] = partitions
		}
		if offset < 0 {
			partitions[int32(tp.Partition)] = kgo.NewOffset().AtStart()
		} else {
			partitions[int32(tp.Partition)] = kgo.NewOffset().At(offset)
		}
	}
	c.client.AddConsumePartitions(byTopic)
	return nil
}

// PollFetches blocks until records are available or ctx is done and
// returns any newly fetched records, converted to model.SourceRecord. A context cancellation
// (the task's wake signal, or the poll timeout) is not reported as an
// error.
func (c *SourceConsumer) PollFetches(ctx context.Context) ([]model.SourceRecord, error) {
	fetches := c.client.PollFetches(ctx)
	if err := fetches.Err(); err != nil && ctx.Err() == nil {
		return nil, err
	}

	var out []model.SourceRecord
	fetches.EachRecord(func(r *kgo.Record) {
		out = append(out, toSourceRecord(r))
	})
	return out, nil
}

// Close closes the underlying client.
func (c *SourceConsumer) Close() {
	c.client.Close()
}

func toSourceRecord(r *kgo.Record) model.SourceRecord {
	rec := model.SourceRecord{
		TP:        model.TopicPartition{Topic: r.Topic, Partition: uint32(r.Partition)},
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Timestamp: r.Timestamp.UnixMilli(),
	}
	for _, h := range r.Headers {
		rec.Headers = append(rec.Headers, model.RecordHeader{Key: h.Key, Value: h.Value})
	}
	return rec
}
