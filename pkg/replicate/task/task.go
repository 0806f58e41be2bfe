// Package task implements ReplicationTask, the per-flow pump: it owns
// the source consumer and the offset-sync producer, drives the polling
// loop and record conversion, and emits offset syncs on the schedule
// offsetsync.PartitionState decides. Publishing the forwarded batch to
// the target cluster, and acknowledging it, is the host's job — this
// package only exposes the Poll/CommitRecord/Stop surface a host drives.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
	"github.com/grafana/tempo-replicator/pkg/replicate/offsetsync"
)

// MaxOutstandingOffsetSyncs bounds the number of offset-sync produce
// calls this task allows in flight at once (spec.md §4.E, property P5).
const MaxOutstandingOffsetSyncs = 10

// closeTimeout bounds how long Stop waits for the consumer and producer
// to close before giving up and proceeding anyway.
const closeTimeout = 500 * time.Millisecond

// state is the task's lifecycle, spec.md §4.E: Created -> Running ->
// Stopping -> Stopped.
type state int

const (
	stateCreated state = iota
	stateRunning
	stateStopping
	stateStopped
)

// sourceConsumer is the manual-assign, no-consumer-group source side the
// task polls. pkg/replicate/kafkaclient provides the *kgo.Client-backed
// implementation; tests supply a fake.
type sourceConsumer interface {
	// Assign seeds the consumer at exactly the given starting offsets
	// (already advanced past the last delivered position) and begins
	// consuming those partitions, and only those partitions.
	Assign(ctx context.Context, startOffsets map[model.TopicPartition]int64) error
	// PollFetches blocks up to the deadline carried by ctx. A context
	// cancellation (the task's wake signal) must return cleanly with no
	// error, the same as a plain deadline expiry.
	PollFetches(ctx context.Context) ([]model.SourceRecord, error)
	Close()
}

// syncProducer is the offset-syncs-topic producer sendOffsetSync uses.
type syncProducer interface {
	// Produce enqueues a record and invokes ack exactly once, from any
	// goroutine, once the broker has responded (nil error) or the send
	// has permanently failed (non-nil error).
	Produce(ctx context.Context, key, value []byte, ack func(error))
	Close()
}

// OffsetSyncEmittedFunc is how sendOffsetSync reports a partition's emitted
// sync to the task's caller — callback, not a direct field access to
// keep ReplicationTask anonymous store setup optional in tests.
type OffsetSyncEmittedFunc func(model.OffsetSync)

// ReplicationTask is the pump described by spec.md component E. One
// instance handles one TaskAssignment for its whole lifetime; it owns
// its consumer, producer, partition-state map, metrics, and outstanding-
// sync permits exclusively.
type ReplicationTask struct {
	logger log.Logger

	consumer sourceConsumer
	producer syncProducer
	storage  OffsetStorage
	metrics  *Metrics

	assignment model.TaskAssignment
	pollTimeout time.Duration

	// onSyncEmitted, if set, is called from the producer's ack callback
	// once an offset sync has been produced successfully. It is nil in
	// cmd/tempo-replicator and in the tests.
	onSyncEmitted OffsetSyncEmittedFunc

	mu              sync.Mutex
	state           state
	partitionStates map[model.TopicPartition]*offsetsync.PartitionState

	wakeCtx    context.Context
	wakeCancel context.CancelFunc

	permits chan struct{}
}

// New constructs a task around the given consumer/producer/storage and
// metrics sink. Start still must be called before Poll.
func New(logger log.Logger, consumer sourceConsumer, producer syncProducer, storage OffsetStorage, metrics *Metrics, onSyncEmitted OffsetSyncEmittedFunc) *ReplicationTask {
	return &ReplicationTask{
		logger:        logger,
		consumer:      consumer,
		producer:      producer,
		storage:       storage,
		metrics:       metrics,
		onSyncEmitted: onSyncEmitted,
		permits:       make(chan struct{}, MaxOutstandingOffsetSyncs),
	}
}

// Start seeds consumer positions from OffsetStorage (advancing the
// stored offset by +1, since it records the last *delivered* position),
// assigns the task's partitions, and transitions Created -> Running.
func (t *ReplicationTask) Start(ctx context.Context, assignment model.TaskAssignment) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateCreated {
		return fmt.Errorf("task: Start called in state %d", t.state)
	}

	t.assignment = assignment
	t.pollTimeout = time.Duration(assignment.PollTimeoutMs) * time.Millisecond
	t.partitionStates = make(map[model.TopicPartition]*offsetsync.PartitionState, len(assignment.AssignedPartitions))
	for _, tp := range assignment.AssignedPartitions {
		t.partitionStates[tp] = offsetsync.NewPartitionState(assignment.MaxOffsetLag)
	}

	startOffsets := make(map[model.TopicPartition]int64, len(assignment.AssignedPartitions))
	for _, tp := range assignment.AssignedPartitions {
		stored, err := t.storage.Get(ctx, assignment.SourceClusterAlias, tp)
		if err != nil {
			return fmt.Errorf("task: loading stored offset for %s: %w", tp, err)
		}
		if stored < 0 {
			startOffsets[tp] = -1 // sourceConsumer implementation treats <0 as "earliest"
			continue
		}
		startOffsets[tp] = stored + 1
	}

	if err := t.consumer.Assign(ctx, startOffsets); err != nil {
		return fmt.Errorf("task: assigning partitions: %w", err)
	}

	t.wakeCtx, t.wakeCancel = context.WithCancel(context.Background())
	t.state = stateRunning
	level.Info(t.logger).Log("msg", "replication task started", "source", assignment.SourceClusterAlias, "target", assignment.TargetClusterAlias, "partitions", len(assignment.AssignedPartitions))
	return nil
}

// Poll drives one iteration of the polling loop: it returns the
// forwarded batch the host should publish to the target cluster. An
// empty/nil batch with a nil error means "no work right now" — it is
// returned on a clean stop, on a wake/interrupt, and on any caught
// fault, per spec.md §4.E step 5 and §6's error surface.
//
// Poll does not hold the task lock while blocked inside PollFetches: the
// call can run for up to the poll timeout, and Stop must be able to
// cancel the wake context (and flip the task to stopping) without
// waiting on it.
func (t *ReplicationTask) Poll(ctx context.Context) ([]model.ForwardedRecord, error) {
	t.mu.Lock()
	if t.state != stateRunning {
		t.mu.Unlock()
		return nil, nil
	}
	wakeCtx := t.wakeCtx
	pollTimeout := t.pollTimeout
	t.mu.Unlock()

	pollCtx, cancel := context.WithTimeout(wakeCtx, pollTimeout)
	defer cancel()
	// Also honor the caller's ctx, so a host shutdown unrelated to this
	// task's own Stop() still unblocks the poll.
	if ctx != nil {
		var outerCancel context.CancelFunc
		pollCtx, outerCancel = context.WithCancel(pollCtx)
		defer outerCancel()
		go func() {
			select {
			case <-ctx.Done():
				outerCancel()
			case <-pollCtx.Done():
			}
		}()
	}

	records, err := t.consumer.PollFetches(pollCtx)
	if err != nil {
		if pollCtx.Err() != nil {
			// Wake or plain poll-timeout expiry: expected, not logged as
			// an error.
			return nil, nil
		}
		level.Error(t.logger).Log("msg", "poll failed", "err", err)
		return nil, nil
	}

	if len(records) == 0 {
		return nil, nil
	}

	batch := make([]model.ForwardedRecord, 0, len(records))
	for _, rec := range records {
		fwd, ok := t.convert(rec)
		if !ok {
			continue
		}
		batch = append(batch, fwd)

		ageSeconds := float64(nowMillis()-rec.Timestamp) / 1000
		t.metrics.RecordAge(rec.TP, ageSeconds)
		t.metrics.RecordBytes(rec.TP, len(rec.Value)+len(rec.Key))
	}
	return batch, nil
}

// convert builds a ForwardedRecord from a polled source record, per
// spec.md §4.E step 3. It cannot itself fail today (headers and values
// are copied verbatim), but returns ok=false as the hook for a future
// conversion failure path without changing Poll's contract: a record
// that fails conversion is skipped and PartitionState is not advanced
// for it.
func (t *ReplicationTask) convert(rec model.SourceRecord) (model.ForwardedRecord, bool) {
	headers := make([]model.RecordHeader, len(rec.Headers))
	copy(headers, rec.Headers)

	return model.ForwardedRecord{
		SourceTP:        rec.TP,
		UpstreamOffset:  rec.Offset,
		TargetTopic:     t.assignment.Policy.FormatRemoteTopic(t.assignment.SourceClusterAlias, rec.TP.Topic),
		TargetPartition: rec.TP.Partition,
		Key:             rec.Key,
		Value:           rec.Value,
		Timestamp:       rec.Timestamp,
		Headers:         headers,
	}, true
}

// CommitRecord is invoked by the host once the target cluster has
// acknowledged a ForwardedRecord for tp/upstreamOffset, carrying the
// metadata of the just-acknowledged target record.
func (t *ReplicationTask) CommitRecord(ctx context.Context, tp model.TopicPartition, upstreamOffset int64, sourceTimestampMillis int64, metadata model.RecordMetadata) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != stateRunning {
		return
	}
	if !metadata.HasOffset {
		level.Warn(t.logger).Log("msg", "commit record missing downstream offset; skipping sync", "tp", tp.String())
		return
	}

	latencySeconds := float64(nowMillis()-sourceTimestampMillis) / 1000
	t.metrics.ReplicationLatency(tp, latencySeconds)
	t.metrics.CountRecord(tp)

	if err := t.storage.Set(ctx, t.assignment.SourceClusterAlias, tp, upstreamOffset); err != nil {
		level.Warn(t.logger).Log("msg", "failed to persist source offset", "tp", tp.String(), "err", err)
	}

	ps, ok := t.partitionStates[tp]
	if !ok {
		// Not one of ours; the host misrouted the callback.
		return
	}

	if emit := ps.Update(upstreamOffset, metadata.Offset); emit {
		t.sendOffsetSync(ctx, tp, upstreamOffset, metadata.Offset)
	}
}

// sendOffsetSync implements spec.md §4.E's bounded-in-flight emission:
// it tries to acquire one of MaxOutstandingOffsetSyncs permits and, if
// none is free, drops the sync silently — the next qualifying update
// will try again. Must be called with t.mu held.
func (t *ReplicationTask) sendOffsetSync(ctx context.Context, tp model.TopicPartition, upstream, downstream int64) {
	select {
	case t.permits <- struct{}{}:
	default:
		return
	}

	ofs := model.OffsetSync{TP: tp, Upstream: upstream, Downstream: downstream}
	key := offsetsync.EncodeKey(tp)
	value := offsetsync.EncodeValue(ofs)

	t.producer.Produce(ctx, key, value, func(err error) {
		<-t.permits
		if err != nil {
			level.Warn(t.logger).Log("msg", "offset sync produce failed", "tp", tp.String(), "err", err)
			return
		}
		if t.onSyncEmitted != nil {
			t.onSyncEmitted(ofs)
		}
	})
}

// Stop is idempotent. It stops further pump activity, wakes any
// in-progress Poll, then closes the consumer and producer with a bounded
// timeout each. After Stop returns, no further Poll or CommitRecord call
// mutates state or produces records (property P6).
func (t *ReplicationTask) Stop() {
	t.mu.Lock()
	if t.state == stateStopping || t.state == stateStopped {
		t.mu.Unlock()
		return
	}
	t.state = stateStopping
	if t.wakeCancel != nil {
		t.wakeCancel()
	}
	t.mu.Unlock()

	t.closeWithTimeout("consumer", t.consumer.Close)
	t.closeWithTimeout("producer", t.producer.Close)
	if t.metrics != nil {
		// Stop does not unregister the task's metrics: that needs the
		// registerer they were built against, which the task does not
		// hold. Metrics.Close(reg) does it, and nothing in this repository
		// calls it.
	}

	t.mu.Lock()
	t.state = stateStopped
	t.mu.Unlock()
	level.Info(t.logger).Log("msg", "replication task stopped")
}

func (t *ReplicationTask) closeWithTimeout(name string, closeFn func()) {
	done := make(chan struct{})
	go func() {
		closeFn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(closeTimeout):
		level.Warn(t.logger).Log("msg", "timed out closing client during shutdown", "client", name)
	}
}

// nowMillis is a seam so tests can avoid depending on wall-clock time
// without needing a full clock-injection interface for one field.
var nowMillis = func() int64 { return time.Now().UnixMilli() }
