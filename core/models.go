package core

import (
	"time"
)

// RawRecord is one document as stored in the data lake: an opaque mapping of
// field name to decoded BSON value. Records are owned by the lake and are
// read-only to this system.
type RawRecord map[string]any

// Clone returns a shallow copy of the record. Mappers that need to remove
// fields (such as the identifier) must work on a copy so the original record
// is never mutated.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// RetrievalUnit is one embeddable text+metadata record derived from a raw
// lake record. Units are immutable once built: they are buffered until a
// flush hands them to the vector index.
type RetrievalUnit struct {
	// Id is the identifier the index uses for upsert/dedup semantics.
	// It is the source record id when the record has one, otherwise a
	// freshly generated random identifier.
	Id string

	// Content is the formatted text to embed. The template producing it is
	// a stable contract: changing it invalidates the semantic comparability
	// of previously embedded content.
	Content string

	// Metadata holds scalar values only (string, int, int64, float64, bool).
	// It always includes the source collection name and source record id.
	Metadata map[string]any
}

// SweepStats summarizes one full scan-and-process cycle.
type SweepStats struct {
	Collections int // collections discovered and processed
	Units       int // retrieval units flushed to the index
	Skipped     int // records skipped due to mapping failures
	Flushes     int // non-empty flush calls issued
}

// RunReport is the persisted record of one scheduler tick.
type RunReport struct {
	Seq       uint64 // ledger sequence number, assigned on record
	RunId     string // run tag for log correlation (pid + start timestamp)
	StartedAt time.Time
	Duration  time.Duration
	Stats     SweepStats
	Failed    bool
	Err       string // error text when Failed, empty otherwise
}
