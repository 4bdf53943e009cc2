package core

import (
	"fmt"

	"github.com/goccy/go-json"
)

// ScanResult is the ordered mapping of message id to ScanRecord produced by one scan.
// Writing an existing id replaces the record but keeps its original position.
type ScanResult struct {
	order   []string
	records map[string]*ScanRecord
}

// NewScanResult creates an empty result
func NewScanResult() *ScanResult {
	return &ScanResult{records: make(map[string]*ScanRecord)}
}

// Put inserts or overwrites the record keyed by rec.MessageID. A nil record
// is ignored.
func (r *ScanResult) Put(rec *ScanRecord) {
	if rec == nil {
		return
	}
	if _, ok := r.records[rec.MessageID]; !ok {
		r.order = append(r.order, rec.MessageID)
	}
	r.records[rec.MessageID] = rec
}

// Get returns the record for a message id
func (r *ScanResult) Get(messageID string) (*ScanRecord, bool) {
	rec, ok := r.records[messageID]
	return rec, ok
}

// Len returns the number of distinct messages
func (r *ScanResult) Len() int {
	return len(r.order)
}

// Records returns the records in first-insertion order
func (r *ScanResult) Records() []*ScanRecord {
	out := make([]*ScanRecord, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.records[id])
	}
	return out
}

// MarshalJSON encodes the result as an ordered list of records
func (r *ScanResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Records())
}

// UnmarshalJSON decodes a list of records, applying the same overwrite rule as Put
func (r *ScanResult) UnmarshalJSON(data []byte) error {
	var records []*ScanRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for i, rec := range records {
		if rec == nil {
			return fmt.Errorf("scan record %d is null", i)
		}
	}
	r.order = nil
	r.records = make(map[string]*ScanRecord, len(records))
	for _, rec := range records {
		r.Put(rec)
	}
	return nil
}
