package pipeline

import "errors"

var (
	// ErrCapacityExceeded is returned when an append would push a batch past
	// its configured capacity. The append is rejected whole: no unit of the
	// rejected append is buffered.
	ErrCapacityExceeded = errors.New("batch capacity exceeded")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrIndexRequired is returned when a vector index is not provided.
	ErrIndexRequired = errors.New("vector index required")

	// ErrLakeRequired is returned when a data lake is not provided.
	ErrLakeRequired = errors.New("data lake required")

	// ErrProcessorRequired is returned when a collection processor is not
	// provided.
	ErrProcessorRequired = errors.New("collection processor required")
)
