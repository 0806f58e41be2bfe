package offsetsync

import (
	"context"
	"testing"
	"time"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// fakeFetcher is an in-memory stand-in for the *kgo.Client-backed
// RecordFetcher, queued with the records Update should observe on its
// next poll.
type fakeFetcher struct {
	assigned bool
	queue    [][]Record
	closed   bool
}

func (f *fakeFetcher) Assign(context.Context, string) error {
	f.assigned = true
	return nil
}

func (f *fakeFetcher) PollFetches(context.Context) ([]Record, error) {
	if len(f.queue) == 0 {
		return nil, nil
	}
	batch := f.queue[0]
	f.queue = f.queue[1:]
	return batch, nil
}

func (f *fakeFetcher) Close() { f.closed = true }

func recordFor(sync model.OffsetSync) Record {
	return Record{Key: EncodeKey(sync.TP), Value: EncodeValue(sync)}
}

// TestTranslationRoundTrip covers property P4 and scenario S5.
func TestTranslationRoundTrip(t *testing.T) {
	tp := model.TopicPartition{Topic: "orders", Partition: 0}
	fetcher := &fakeFetcher{queue: [][]Record{
		{recordFor(model.OffsetSync{TP: tp, Upstream: 100, Downstream: 900})},
		{recordFor(model.OffsetSync{TP: tp, Upstream: 200, Downstream: 1005})},
	}}

	store := NewOffsetSyncStore(fetcher, "offset-syncs", log.NewNopLogger())
	require.NoError(t, store.Start(context.Background()))
	require.True(t, fetcher.assigned)

	require.NoError(t, store.Update(context.Background(), time.Second))
	require.Equal(t, model.NotTranslatable, store.TranslateDownstream(tp, 50))
	require.NoError(t, store.Update(context.Background(), time.Second))

	require.Equal(t, model.NotTranslatable, store.TranslateDownstream(tp, 50))
	require.Equal(t, int64(1055), store.TranslateDownstream(tp, 250))
	require.Equal(t, int64(1005), store.TranslateDownstream(tp, 200))
}

func TestTranslateDownstreamUnknownPartitionIsNotTranslatable(t *testing.T) {
	store := NewOffsetSyncStore(&fakeFetcher{}, "offset-syncs", log.NewNopLogger())
	tp := model.TopicPartition{Topic: "unseen", Partition: 0}

	require.Equal(t, model.NotTranslatable, store.TranslateDownstream(tp, 0))
}

func TestCloseDispatchesOffCallerGoroutine(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := NewOffsetSyncStore(fetcher, "offset-syncs", log.NewNopLogger())

	store.Close()
	require.Eventually(t, func() bool { return fetcher.closed }, time.Second, time.Millisecond)

	// Update after Close is a clean no-op, not an error.
	require.NoError(t, store.Update(context.Background(), time.Millisecond))
}
