package offsetsync

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFirstSyncAlwaysEmits covers property P1: with no prior sync, any
// (upstream, downstream) pair emits, and the lastSync fields are set to
// exactly that pair afterward.
func TestFirstSyncAlwaysEmits(t *testing.T) {
	s := NewPartitionState(100)
	require.True(t, s.Update(42, 4242))
	require.Equal(t, int64(42), s.lastSyncUpstream)
	require.Equal(t, int64(4242), s.lastSyncDownstream)
}

// TestSteadyLinearReplication covers S1/P2: once a sync has been emitted,
// strictly +1/+1 commits with no drift never re-emit.
func TestSteadyLinearReplication(t *testing.T) {
	s := NewPartitionState(100)
	require.True(t, s.Update(0, 1000))

	for u, d := int64(1), int64(1001); u <= 50; u, d = u+1, d+1 {
		require.Falsef(t, s.Update(u, d), "unexpected emit at u=%d d=%d", u, d)
	}
}

// TestDriftEmits covers P3/S2: a downstream jump that would mistranslate
// by at least maxOffsetLag forces an emit.
func TestDriftEmits(t *testing.T) {
	s := NewPartitionState(100)
	require.True(t, s.Update(0, 1000))
	for u, d := int64(1), int64(1001); u <= 50; u, d = u+1, d+1 {
		require.False(t, s.Update(u, d))
	}

	// Linear prediction for u=51 is 1051; 1250-1051 = 199 >= 100.
	require.True(t, s.Update(51, 1250))
	require.Equal(t, int64(51), s.lastSyncUpstream)
	require.Equal(t, int64(1250), s.lastSyncDownstream)
}

// TestUpstreamGapEmits covers S3: a skip in upstream offsets forces a
// re-sync even with no downstream drift.
func TestUpstreamGapEmits(t *testing.T) {
	s := NewPartitionState(100)
	require.True(t, s.Update(10, 5000))
	require.False(t, s.Update(11, 5001))
	require.True(t, s.Update(13, 5003))
}

// TestDownstreamRegressionEmits covers S4: a downstream offset lower than
// the previous one forces a re-sync.
func TestDownstreamRegressionEmits(t *testing.T) {
	s := NewPartitionState(100)
	require.True(t, s.Update(18, 6001))
	require.False(t, s.Update(19, 6002))
	require.True(t, s.Update(20, 6000))
}

func TestUpdateAlwaysAdvancesPrevious(t *testing.T) {
	s := NewPartitionState(5)
	s.Update(1, 100)
	s.Update(2, 101)
	require.Equal(t, int64(2), s.previousUpstream)
	require.Equal(t, int64(101), s.previousDownstream)
}
