package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates two vectors of different length were compared.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnsupportedType indicates an unknown provider, backend or resource type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Similarity queries return nothing without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrDisposed indicates the workspace or index has been shut down.
	ErrDisposed = errors.New("disposed")
)
