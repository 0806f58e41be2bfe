package offsetsync

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

// Record is the minimal shape OffsetSyncStore needs from a consumed
// record. The production implementation is backed by *kgo.Record via
// kafkaclient.StoreFetcher; tests supply a fake.
type Record struct {
	Key   []byte
	Value []byte
}

// RecordFetcher is the narrow consumer surface OffsetSyncStore polls.
// pkg/replicate/kafkaclient provides the *kgo.Client-backed
// implementation; it is kept this small so the store's folding and
// translation logic can be tested without a broker.
type RecordFetcher interface {
	// Assign seeds the fetcher to start tailing topic's partition 0 from
	// the earliest retained record.
	Assign(ctx context.Context, topic string) error
	// PollFetches blocks up to the deadline carried by ctx and returns
	// whatever records are newly available. An empty, nil-error result is
	// a normal "nothing new yet" response.
	PollFetches(ctx context.Context) ([]Record, error)
	// Close tears down the fetcher. It may block.
	Close()
}

// OffsetSyncStore tails a compacted offset-syncs topic and answers
// translateDownstream lookups for a sibling checkpoint task. It is the
// sole owner of its RecordFetcher; nothing else may use it concurrently.
type OffsetSyncStore struct {
	fetcher RecordFetcher
	topic   string
	logger  log.Logger

	mu     sync.Mutex
	syncs  map[model.TopicPartition]model.OffsetSync
	closed bool
}

// NewOffsetSyncStore builds a store that will tail topic once Start is
// called.
func NewOffsetSyncStore(fetcher RecordFetcher, topic string, logger log.Logger) *OffsetSyncStore {
	return &OffsetSyncStore{
		fetcher: fetcher,
		topic:   topic,
		logger:  logger,
		syncs:   make(map[model.TopicPartition]model.OffsetSync),
	}
}

// Start assigns the store's fetcher to the offset-syncs topic, beginning
// at the earliest retained record.
func (s *OffsetSyncStore) Start(ctx context.Context) error {
	return s.fetcher.Assign(ctx, s.topic)
}

// Update blocks up to pollTimeout, applies every record fetched in that
// window to the in-memory map, and returns. Concurrent calls are
// serialized by s.mu, same as Close and TranslateDownstream.
func (s *OffsetSyncStore) Update(ctx context.Context, pollTimeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	records, err := s.fetcher.PollFetches(pollCtx)
	if err != nil {
		if pollCtx.Err() != nil {
			// Plain poll-timeout expiry: nothing new, not a failure.
			return nil
		}
		level.Warn(s.logger).Log("msg", "offset sync store poll failed", "err", err)
		return err
	}

	for _, rec := range records {
		ofs, err := DecodeRecord(rec.Key, rec.Value)
		if err != nil {
			level.Warn(s.logger).Log("msg", "dropping unreadable offset sync record", "err", err)
			continue
		}
		s.syncs[ofs.TP] = ofs
	}
	return nil
}

// TranslateDownstream returns the downstream offset corresponding to
// upstream for tp, or model.NotTranslatable if upstream predates the
// oldest sync this store has observed for tp. It does no I/O itself and
// is safe to call while Update is in progress, but it shares s.mu with
// Update and so waits for an in-progress poll to finish.
func (s *OffsetSyncStore) TranslateDownstream(tp model.TopicPartition, upstream int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ofs, ok := s.syncs[tp]
	if !ok {
		// No sync has ever been observed for tp; refuse to guess rather
		// than extrapolate from the sentinel pair.
		return model.NotTranslatable
	}
	if ofs.Upstream > upstream {
		return model.NotTranslatable
	}
	return ofs.Downstream + (upstream - ofs.Upstream)
}

// Close schedules the fetcher's shutdown off the caller's goroutine,
// since the underlying network close can block arbitrarily, and returns
// immediately. Subsequent Update/TranslateDownstream calls operate
// against the pre-close snapshot.
func (s *OffsetSyncStore) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	fetcher := s.fetcher
	s.mu.Unlock()

	go fetcher.Close()
}
