package kafkaclient

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
)

// SyncProducer wraps a *kgo.Client for producing to the offset-syncs
// topic. It is named for the topic it writes to, not for synchronous
// delivery — Produce is fire-and-forget from the caller's perspective,
// acknowledged later through the callback kgo invokes once the broker
// has responded.
type SyncProducer struct {
	client *kgo.Client
	topic  string
}

// NewSyncProducer wraps client to produce onto topic.
func NewSyncProducer(client *kgo.Client, topic string) *SyncProducer {
	return &SyncProducer{client: client, topic: topic}
}

// Produce enqueues one record and invokes ack from kgo's internal
// goroutine once the broker has acknowledged it or the send has failed
// permanently.
func (p *SyncProducer) Produce(ctx context.Context, key, value []byte, ack func(error)) {
	record := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		ack(err)
	})
}

// Close closes the underlying client without flushing it first; records
// still buffered at that point are not delivered.
func (p *SyncProducer) Close() {
	p.client.Close()
}
