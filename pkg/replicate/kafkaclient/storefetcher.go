package kafkaclient

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/grafana/tempo-replicator/pkg/replicate/offsetsync"
)

// StoreFetcher adapts a *kgo.Client to offsetsync.RecordFetcher. It is
// kept separate from SourceConsumer (used by the replication task) because the
// store only ever needs bare key/value bytes, never headers or
// timestamps.
type StoreFetcher struct {
	client *kgo.Client
}

// NewStoreFetcher wraps client for OffsetSyncStore's exclusive use.
func NewStoreFetcher(client *kgo.Client) *StoreFetcher {
	return &StoreFetcher{client: client}
}

// Assign implements offsetsync.RecordFetcher.
func (f *StoreFetcher) Assign(_ context.Context, topic string) error {
	f.client.AddConsumePartitions(map[string]map[int32]kgo.Offset{
		topic: {0: kgo.NewOffset().AtStart()},
	})
	return nil
}

// PollFetches implements offsetsync.RecordFetcher.
func (f *StoreFetcher) PollFetches(ctx context.Context) ([]offsetsync.Record, error) {
	fetches := f.client.PollFetches(ctx)
	if err := fetches.Err(); err != nil && ctx.Err() == nil {
		return nil, err
	}

	var out []offsetsync.Record
	fetches.EachRecord(func(r *kgo.Record) {
		out = append(out, offsetsync.Record{Key: r.Key, Value: r.Value})
	})
	return out, nil
}

// Close implements offsetsync.RecordFetcher.
func (f *StoreFetcher) Close() {
	f.client.Close()
}
