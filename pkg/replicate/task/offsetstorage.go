package task

import (
	"context"
	"sync"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// unsetOffset is returned by OffsetStorage.Get when no position has ever
// been recorded for a partition.
const unsetOffset int64 = -1

// OffsetStorage is the narrow view this task needs of the host's
// offset-storage mechanism (out of scope per spec.md §1: the host
// decides how and where these opaque key/value pairs are actually
// persisted). wrapPartition/wrapOffset/unwrapOffset below build the
// host's opaque shapes without this package needing to interpret them.
type OffsetStorage interface {
	// Get returns the last persisted offset for tp under sourceAlias, or
	// unsetOffset if none has ever been stored.
	Get(ctx context.Context, sourceAlias string, tp model.TopicPartition) (int64, error)
	// Set persists offset as the last delivered position for tp.
	Set(ctx context.Context, sourceAlias string, tp model.TopicPartition, offset int64) error
}

// wrapPartition builds the host's opaque partition key, keyed by
// {cluster, topic, partition} as spec.md §4.E requires.
func wrapPartition(sourceAlias string, tp model.TopicPartition) map[string]any {
	return map[string]any{
		"cluster":   sourceAlias,
		"topic":     tp.Topic,
		"partition": tp.Partition,
	}
}

// wrapOffset builds the host's opaque offset value, {"offset": n}.
func wrapOffset(offset int64) map[string]any {
	return map[string]any{"offset": offset}
}

// unwrapOffset tolerates a missing map, returning unsetOffset.
func unwrapOffset(m map[string]any) int64 {
	if m == nil {
		return unsetOffset
	}
	v, ok := m["offset"]
	if !ok {
		return unsetOffset
	}
	n, ok := v.(int64)
	if !ok {
		return unsetOffset
	}
	return n
}

// InMemoryOffsetStorage is a process-local OffsetStorage, used by tests
// and by cmd/tempo-replicator, which offers no persistent store option.
// Production deployments inject a host-provided implementation backed by
// whatever the orchestrator's real storage mechanism is.
type InMemoryOffsetStorage struct {
	mu      sync.Mutex
	offsets map[string]map[model.TopicPartition]int64
}

// NewInMemoryOffsetStorage returns an empty store.
func NewInMemoryOffsetStorage() *InMemoryOffsetStorage {
	return &InMemoryOffsetStorage{offsets: make(map[string]map[model.TopicPartition]int64)}
}

// Get implements OffsetStorage.
func (s *InMemoryOffsetStorage) Get(_ context.Context, sourceAlias string, tp model.TopicPartition) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTP, ok := s.offsets[sourceAlias]
	if !ok {
		return unwrapOffset(nil), nil
	}
	offset, ok := byTP[tp]
	if !ok {
		return unwrapOffset(nil), nil
	}
	return unwrapOffset(wrapOffset(offset)), nil
}

// Set implements OffsetStorage.
func (s *InMemoryOffsetStorage) Set(_ context.Context, sourceAlias string, tp model.TopicPartition, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTP, ok := s.offsets[sourceAlias]
	if !ok {
		byTP = make(map[model.TopicPartition]int64)
		s.offsets[sourceAlias] = byTP
	}
	byTP[tp] = offset
	return nil
}
