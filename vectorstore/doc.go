// Package vectorstore defines the vector-index interface the pipeline flushes
// into. Concrete implementations (Qdrant, etc.) satisfy the interface so the
// pipeline never depends on a specific backend.
package vectorstore
