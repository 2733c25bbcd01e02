// Package mapping converts raw data-lake records into retrieval units.
//
// BuildUnit is a pure, total function over one record: it removes the lake
// identifier from the content source, renders a fixed text template with
// field defaulting, and merges scalar-only metadata. A record that cannot be
// rendered fails with an error wrapping ErrMapping so callers can skip it
// and continue with the rest of the collection.
package mapping
