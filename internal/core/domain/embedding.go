package domain

import "time"

// EmbeddingEntry is a cached embedding for one resource.
// It is valid only while Checksum matches the hash of the resource's current
// text and Model matches the model currently producing embeddings.
type EmbeddingEntry struct {
	// Checksum is the sha1 hex digest of the embedded text.
	Checksum string

	// Model names the embedding model that produced the vector.
	Model string

	// Embedding is the vector returned by the embedding service.
	Embedding []float32
}

// Embedding is an in-memory similarity index entry.
type Embedding struct {
	URI       URI
	Vector    []float32
	Checksum  string
	CreatedAt time.Time
}

// SimilarResource is one result of a similarity query.
type SimilarResource struct {
	// URI identifies the similar resource.
	URI URI

	// Similarity is the cosine similarity in [-1, 1].
	Similarity float64
}

// EmbeddingUpdate notifies subscribers that an index entry changed.
type EmbeddingUpdate struct {
	// URI is the resource whose entry changed.
	URI URI

	// Removed is true when the entry was dropped rather than written.
	Removed bool
}

// IndexStats summarises a full similarity rebuild.
type IndexStats struct {
	// Embedded counts resources sent to the embedding service.
	Embedded int

	// Reused counts resources served from the checksum-gated cache.
	Reused int

	// Skipped counts resources that are not indexable.
	Skipped int

	// Failed counts resources whose embedding call returned an error.
	Failed int

	// Removed counts entries dropped because their resource disappeared mid-run.
	Removed int
}

// Total returns the number of resources the rebuild visited.
func (s IndexStats) Total() int {
	return s.Embedded + s.Reused + s.Skipped + s.Failed + s.Removed
}
