package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// KVStore is the minimal persistence primitive a host process' real
// offset-storage mechanism exposes. Its transport and durability are
// entirely out of scope per spec.md §1; this package only needs to wrap
// and unwrap opaque key/value pairs through it.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// HostOffsetStorage is an OffsetStorage backed by a host-provided
// KVStore, using the {cluster, topic, partition} -> {offset} opaque
// shapes spec.md §4.F names. The JSON encoding here is an implementation
// detail of this adapter only; no other component interprets it.
type HostOffsetStorage struct {
	kv KVStore
}

// NewHostOffsetStorage builds an OffsetStorage over kv.
func NewHostOffsetStorage(kv KVStore) *HostOffsetStorage {
	return &HostOffsetStorage{kv: kv}
}

// Get implements OffsetStorage.
func (h *HostOffsetStorage) Get(ctx context.Context, sourceAlias string, tp model.TopicPartition) (int64, error) {
	raw, ok, err := h.kv.Get(ctx, storageKey(sourceAlias, tp))
	if err != nil {
		return unsetOffset, fmt.Errorf("host offset storage: get: %w", err)
	}
	if !ok {
		return unwrapOffset(nil), nil
	}

	var wrapped map[string]any
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return unsetOffset, fmt.Errorf("host offset storage: decode: %w", err)
	}
	// json.Unmarshal decodes numbers as float64; normalize back to int64
	// before handing off to unwrapOffset's opaque-map contract.
	if f, ok := wrapped["offset"].(float64); ok {
		wrapped["offset"] = int64(f)
	}
	return unwrapOffset(wrapped), nil
}

// Set implements OffsetStorage.
func (h *HostOffsetStorage) Set(ctx context.Context, sourceAlias string, tp model.TopicPartition, offset int64) error {
	raw, err := json.Marshal(wrapOffset(offset))
	if err != nil {
		return fmt.Errorf("host offset storage: encode: %w", err)
	}
	if err := h.kv.Set(ctx, storageKey(sourceAlias, tp), raw); err != nil {
		return fmt.Errorf("host offset storage: set: %w", err)
	}
	return nil
}

func storageKey(sourceAlias string, tp model.TopicPartition) string {
	partition := wrapPartition(sourceAlias, tp)
	return fmt.Sprintf("%s/%s/%d", partition["cluster"], partition["topic"], partition["partition"])
}
