// Package pipeline implements the collection-processing flow: a bounded
// batch buffer that accumulates retrieval units for one run and flushes them
// to the vector index in a single embed+upsert call, a per-collection
// processor that isolates per-record mapping failures, and a sweeper that
// runs one full transactional scan-and-process cycle over every qualifying
// collection.
//
// The pipeline runs on a single logical worker: collections are processed
// strictly sequentially, and no two cycles ever run concurrently, so none of
// these types carry internal locking.
package pipeline
