package services

import (
	"crypto/sha1" //nolint:gosec // G505: content fingerprint, not a security boundary.
	"encoding/hex"
	"fmt"
	"math"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// CosineSimilarity returns the cosine of the angle between a and b, clamped
// to [-1, 1]. A zero vector has similarity 0 with anything. Vectors of
// different length are rejected with domain.ErrDimensionMismatch.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", domain.ErrDimensionMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim)), nil
}

// Checksum returns the sha1 hex digest used to gate cached embeddings.
func Checksum(text string) string {
	sum := sha1.Sum([]byte(text)) //nolint:gosec // G401: see import.
	return hex.EncodeToString(sum[:])
}
