package offsetsync

import "github.com/grafana/tempo-replicator/pkg/replicate/model"

// unset marks a PartitionState field that has never observed a value.
const unset int64 = -1

// PartitionState tracks, for one source partition inside a running task,
// whether a downstream consumer extrapolating linearly from the last
// emitted sync would still translate correctly. It holds no I/O and is
// owned exclusively by the ReplicationTask that created it.
type PartitionState struct {
	maxOffsetLag int64

	previousUpstream   int64
	previousDownstream int64
	lastSyncUpstream   int64
	lastSyncDownstream int64
}

// NewPartitionState returns a fresh PartitionState with no prior sync,
// tolerating up to maxOffsetLag records of linear-extrapolation drift
// before a new sync is required.
func NewPartitionState(maxOffsetLag int64) *PartitionState {
	return &PartitionState{
		maxOffsetLag:       maxOffsetLag,
		previousUpstream:   unset,
		previousDownstream: unset,
		lastSyncUpstream:   unset,
		lastSyncDownstream: unset,
	}
}

// Update records one more observed (upstream, downstream) pair and
// reports whether the task should emit a new offset sync. See spec.md
// §4.B for the decision rule; the four branches below are evaluated in
// order and the first match wins.
func (s *PartitionState) Update(upstream, downstream int64) (emit bool) {
	switch {
	case s.lastSyncDownstream == unset:
		// No prior sync exists.
		emit = true
	case downstream-s.predictedDownstream(upstream) >= s.maxOffsetLag:
		// Linear extrapolation from the last sync has drifted too far.
		emit = true
	case upstream-s.previousUpstream != 1:
		// Skip in source offsets; a downstream reader can't infer it.
		emit = true
	case downstream < s.previousDownstream:
		// Downstream regression, e.g. a producer retry landed lower.
		emit = true
	}

	s.previousUpstream = upstream
	s.previousDownstream = downstream
	if emit {
		s.lastSyncUpstream = upstream
		s.lastSyncDownstream = downstream
	}
	return emit
}

// predictedDownstream is the downstream offset a linear-extrapolating
// reader would compute for upstream, given the last emitted sync.
func (s *PartitionState) predictedDownstream(upstream int64) int64 {
	return s.lastSyncDownstream + (upstream - s.lastSyncUpstream)
}

// LastSync returns the most recently emitted sync for tp, or the
// sentinel (-1, -1) pair if none has been emitted yet.
func (s *PartitionState) LastSync(tp model.TopicPartition) model.OffsetSync {
	if s.lastSyncDownstream == unset {
		return model.SentinelSync(tp)
	}
	return model.OffsetSync{TP: tp, Upstream: s.lastSyncUpstream, Downstream: s.lastSyncDownstream}
}
