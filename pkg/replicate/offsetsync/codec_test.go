package offsetsync

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/grafana/tempo-replicator/pkg/replicate/model"
)

func TestEncodeKeyStableAcrossCalls(t *testing.T) {
	tp := model.TopicPartition{Topic: "orders", Partition: 3}

	require.Equal(t, EncodeKey(tp), EncodeKey(tp))
	require.NotEqual(t, EncodeKey(tp), EncodeKey(model.TopicPartition{Topic: "orders", Partition: 4}))
	require.NotEqual(t, EncodeKey(tp), EncodeKey(model.TopicPartition{Topic: "shipments", Partition: 3}))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	sync := model.OffsetSync{
		TP:         model.TopicPartition{Topic: "orders", Partition: 7},
		Upstream:   1234,
		Downstream: 5678,
	}

	key := EncodeKey(sync.TP)
	value := EncodeValue(sync)

	got, err := DecodeRecord(key, value)
	require.NoError(t, err)
	if diff := cmp.Diff(sync, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRecordToleratesTrailingBytes(t *testing.T) {
	sync := model.OffsetSync{TP: model.TopicPartition{Topic: "t", Partition: 0}, Upstream: 1, Downstream: 2}
	value := append(EncodeValue(sync), 0xDE, 0xAD, 0xBE, 0xEF)

	got, err := DecodeRecord(nil, value)
	require.NoError(t, err)
	require.Equal(t, sync, got)
}

func TestDecodeRecordRejectsUnknownVersion(t *testing.T) {
	value := EncodeValue(model.OffsetSync{TP: model.TopicPartition{Topic: "t", Partition: 0}})
	value[0] = 0xFF

	_, err := DecodeRecord(nil, value)
	require.Error(t, err)
}

func TestDecodeRecordRejectsTruncatedValue(t *testing.T) {
	_, err := DecodeRecord(nil, []byte{valueVersion1})
	require.Error(t, err)
}
