package task

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// fakeKVStore is an in-memory stand-in for a host's real KVStore, used to
// exercise HostOffsetStorage without any actual persistence mechanism.
type fakeKVStore struct {
	values map[string][]byte
}

func newFakeKVStore() *fakeKVStore {
	return &fakeKVStore{values: make(map[string][]byte)}
}

func (f *fakeKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeKVStore) Set(_ context.Context, key string, value []byte) error {
	f.values[key] = value
	return nil
}

func TestHostOffsetStorageGetUnsetReturnsUnsetOffset(t *testing.T) {
	storage := NewHostOffsetStorage(newFakeKVStore())
	tp := model.TopicPartition{Topic: "spans", Partition: 3}

	offset, err := storage.Get(context.Background(), "source-a", tp)
	require.NoError(t, err)
	require.Equal(t, unsetOffset, offset)
}

func TestHostOffsetStorageSetThenGetRoundTrips(t *testing.T) {
	storage := NewHostOffsetStorage(newFakeKVStore())
	tp := model.TopicPartition{Topic: "spans", Partition: 3}

	require.NoError(t, storage.Set(context.Background(), "source-a", tp, 42))

	offset, err := storage.Get(context.Background(), "source-a", tp)
	require.NoError(t, err)
	require.Equal(t, int64(42), offset)
}

func TestHostOffsetStorageDistinguishesClusterAndPartition(t *testing.T) {
	kv := newFakeKVStore()
	storage := NewHostOffsetStorage(kv)
	tp := model.TopicPartition{Topic: "spans", Partition: 3}
	other := model.TopicPartition{Topic: "spans", Partition: 4}

	require.NoError(t, storage.Set(context.Background(), "source-a", tp, 42))
	require.NoError(t, storage.Set(context.Background(), "source-b", tp, 99))

	offsetA, err := storage.Get(context.Background(), "source-a", tp)
	require.NoError(t, err)
	require.Equal(t, int64(42), offsetA)

	offsetB, err := storage.Get(context.Background(), "source-b", tp)
	require.NoError(t, err)
	require.Equal(t, int64(99), offsetB)

	offsetOther, err := storage.Get(context.Background(), "source-a", other)
	require.NoError(t, err)
	require.Equal(t, unsetOffset, offsetOther)
}

func TestStorageKeyShape(t *testing.T) {
	tp := model.TopicPartition{Topic: "spans", Partition: 3}
	require.Equal(t, "source-a/spans/3", storageKey("source-a", tp))
}
