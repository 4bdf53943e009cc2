package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanResult_OverwriteKeepsPosition(t *testing.T) {
	r := NewScanResult()
	r.Put(&ScanRecord{MessageID: "m1", Subject: "first"})
	r.Put(&ScanRecord{MessageID: "m2"})
	r.Put(&ScanRecord{MessageID: "m1", Subject: "second"})

	require.Equal(t, 2, r.Len())
	records := r.Records()
	assert.Equal(t, "m1", records[0].MessageID)
	assert.Equal(t, "second", records[0].Subject)
	assert.Equal(t, "m2", records[1].MessageID)
}

func TestScanResult_JSONRoundTripPreservesOrder(t *testing.T) {
	r := NewScanResult()
	for _, id := range []string{"c", "a", "b"} {
		r.Put(&ScanRecord{MessageID: id, Classification: ClassificationResult{CompanyName: id, InteractionType: Interacted}})
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	decoded := NewScanResult()
	require.NoError(t, json.Unmarshal(data, decoded))

	var ids []string
	for _, rec := range decoded.Records() {
		ids = append(ids, rec.MessageID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestScanResult_NullRecords(t *testing.T) {
	r := NewScanResult()
	r.Put(nil)
	assert.Equal(t, 0, r.Len())

	err := json.Unmarshal([]byte(`[{"message_id":"m1","classification":{}},null]`), r)
	require.Error(t, err)
	assert.Equal(t, 0, r.Len())
}
