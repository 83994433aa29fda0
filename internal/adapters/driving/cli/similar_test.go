package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

func similarFixture(t *testing.T) *testServices {
	t.Helper()
	ts := setupTestServices(t,
		note("cars/engine.md", "Engines"),
		note("cars/tyres.md", "Tyres"),
		note("cooking.md", "Cooking"),
	)
	ts.similarity.embedded = map[string]bool{"/notes/cars/engine.md": true}
	ts.similarity.results = []domain.SimilarResource{
		{URI: domain.FileURI("/notes/cars/tyres.md"), Similarity: 0.91},
		{URI: domain.FileURI("/notes/deleted.md"), Similarity: 0.5},
		{URI: domain.FileURI("/notes/cooking.md"), Similarity: 0.12},
	}
	return ts
}

func TestSimilarCmd(t *testing.T) {
	ts := similarFixture(t)

	out, err := executeCommand(t, "similar", "cars/engine.md")
	require.NoError(t, err)

	assert.Equal(t, 1, ts.similarity.updates)
	assert.Equal(t, 10, ts.similarity.gotTopK)
	assert.Contains(t, out, "Similar to engine")
	assert.Contains(t, out, " 1. 0.910  tyres  Tyres")
	assert.Contains(t, out, " 2. 0.120  cooking  Cooking")
	assert.NotContains(t, out, "deleted")
}

func TestSimilarCmd_JSON(t *testing.T) {
	ts := similarFixture(t)

	out, err := executeCommand(t, "similar", "engine", "--json", "-n", "3")
	require.NoError(t, err)
	assert.Equal(t, 3, ts.similarity.gotTopK)

	var results []similarResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, similarResult{
		Path:       "/notes/cars/tyres.md",
		Identifier: "tyres",
		Title:      "Tyres",
		Similarity: 0.91,
	}, results[0])
}

func TestSimilarCmd_NoEmbedding(t *testing.T) {
	ts := similarFixture(t)
	ts.similarity.results = nil

	out, err := executeCommand(t, "similar", "cooking.md")
	require.NoError(t, err)
	assert.Contains(t, out, "cooking has no embedding.")
}

func TestSimilarCmd_NoResults(t *testing.T) {
	ts := similarFixture(t)
	ts.similarity.results = nil

	out, err := executeCommand(t, "similar", "cars/engine.md")
	require.NoError(t, err)
	assert.Contains(t, out, "No similar notes found.")
}

func TestSimilarCmd_EmbeddingUnavailable(t *testing.T) {
	ts := similarFixture(t)
	ts.similarity.updateErr = domain.ErrEmbeddingUnavailable

	out, err := executeCommand(t, "similar", "cars/engine.md")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, out, "refindex config embedding")
}

func TestSimilarCmd_UnknownResource(t *testing.T) {
	ts := similarFixture(t)

	_, err := executeCommand(t, "similar", "nope.md")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, ts.similarity.updates)
}

func TestIndexCmd(t *testing.T) {
	ts := similarFixture(t)
	ts.similarity.stats = domain.IndexStats{Embedded: 2, Reused: 1, Failed: 1}

	out, err := executeCommand(t, "index")
	require.NoError(t, err)

	assert.Contains(t, out, "Indexed 4 resources")
	assert.Contains(t, out, "Embedded: 2")
	assert.Contains(t, out, "Reused:   1")
	assert.Contains(t, out, "Failed:   1")
	assert.NotContains(t, out, "Removed")
}

func TestIndexCmd_EmbeddingUnavailable(t *testing.T) {
	ts := similarFixture(t)
	ts.similarity.updateErr = domain.ErrEmbeddingUnavailable

	out, err := executeCommand(t, "index")
	require.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.Contains(t, out, "refindex config embedding")
}
