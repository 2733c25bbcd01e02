package vectorstore

import (
	"context"

	"github.com/poiesic/lakefeed/core"
)

// Hit is one similarity-search result.
type Hit struct {
	// Id is the index-side point id the match was stored under. The source
	// record id is available in Metadata under source_document_id.
	Id string

	// Score is the similarity score assigned by the index.
	Score float32

	// Content is the stored text of the unit.
	Content string

	// Metadata is the stored metadata of the unit.
	Metadata map[string]any
}

// Index persists retrieval-unit embeddings and serves similarity search.
type Index interface {
	// Upsert writes a batch of units with their pre-computed embeddings in
	// one call. vectors must be parallel to units: vectors[i] is the
	// embedding of units[i].Content. Upserting an id that already exists
	// overwrites it.
	Upsert(ctx context.Context, units []*core.RetrievalUnit, vectors [][]float32) error

	// Search returns the topK most similar units for the query embedding.
	Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error)

	// Close releases resources held by the index client.
	Close() error
}
