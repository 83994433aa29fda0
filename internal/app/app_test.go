package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/refindex/internal/core/domain"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o600))
}

// ollamaServer embeds text by counting the words "short" and "long".
func ollamaServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"test-embed:latest"}]}`))
		case "/api/embed":
			var req struct {
				Input string `json:"input"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			text := strings.ToLower(req.Input)
			vec := []float64{
				float64(strings.Count(text, "short")),
				float64(strings.Count(text, "long")),
				1,
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float64{vec}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestConfigDir(t *testing.T) {
	t.Run("override wins", func(t *testing.T) {
		assert.Equal(t, "/custom", ConfigDir(t.TempDir(), "/custom"))
	})

	t.Run("local directory when present", func(t *testing.T) {
		root := t.TempDir()
		local := filepath.Join(root, ".refindex")
		require.NoError(t, os.Mkdir(local, 0o700))
		assert.Equal(t, local, ConfigDir(root, ""))
	})

	t.Run("home default otherwise", func(t *testing.T) {
		assert.Equal(t, "", ConfigDir(t.TempDir(), ""))
	})
}

func TestNew_Ephemeral(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := writeTree(t, map[string]string{
		"a.md":        "# A\nlinks to [[b]]",
		"sub/b.md":    "# B",
		"img/pic.png": "png",
	})

	a, err := New(context.Background(), Options{Root: root, Ephemeral: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, ":memory:", a.Config.Path())
	assert.False(t, a.HasEmbedder())

	n, err := a.Ingest.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	target := a.Workspace.ResolveLink(domain.FileURI(filepath.Join(root, "a.md")), "b")
	assert.Equal(t, domain.FileURI(filepath.Join(root, "sub", "b.md")), target)

	_, err = os.Stat(filepath.Join(root, ".refindex"))
	assert.True(t, os.IsNotExist(err), "ephemeral runs write nothing")
}

func TestNew_PersistentCache(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "# A"})
	configDir := filepath.Join(t.TempDir(), "conf")

	a, err := New(context.Background(), Options{Root: root, ConfigDir: configDir})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	assert.FileExists(t, filepath.Join(configDir, sqlite.DBName))
}

func TestNew_LocalConfigDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := writeTree(t, map[string]string{"a.txt": "plain"})
	writeConfig(t, filepath.Join(root, ".refindex"), "[workspace]\ndefault_extension = \".txt\"\n\n[cache]\nbackend = \"memory\"\n")

	a, err := New(context.Background(), Options{Root: root})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, filepath.Join(root, ".refindex", "config.toml"), a.Config.Path())
	assert.Equal(t, ".txt", a.Workspace.DefaultExtension())
	assert.NoFileExists(t, filepath.Join(root, ".refindex", sqlite.DBName))
}

func TestNew_EmbeddingUnreachable(t *testing.T) {
	root := writeTree(t, map[string]string{"a.md": "# A"})
	configDir := t.TempDir()
	writeConfig(t, configDir, "[embedding]\nprovider = \"ollama\"\nbase_url = \"http://127.0.0.1:1\"\n\n[cache]\nbackend = \"memory\"\n")

	t.Run("runs without validation", func(t *testing.T) {
		a, err := New(context.Background(), Options{Root: root, ConfigDir: configDir})
		require.NoError(t, err)
		defer a.Close()
		assert.True(t, a.HasEmbedder())
	})

	t.Run("fails with validation", func(t *testing.T) {
		_, err := New(context.Background(), Options{Root: root, ConfigDir: configDir, ValidateEmbedding: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
		assert.Contains(t, err.Error(), "refindex config embedding")
	})
}

func TestNew_SimilarityEndToEnd(t *testing.T) {
	server := ollamaServer(t)
	root := writeTree(t, map[string]string{
		"short.md":   "# Short\none two",
		"short2.md":  "# Short too\none two three",
		"long.md":    "# Long\nline\nline\nline\nline\nline\nline\nline\nline",
		"attach.pdf": "%PDF",
	})
	configDir := t.TempDir()
	writeConfig(t, configDir, "[embedding]\nprovider = \"ollama\"\nmodel = \"test-embed\"\nbase_url = \""+
		server.URL+"\"\nrequests_per_second = 0\n")

	ctx := context.Background()
	a, err := New(ctx, Options{Root: root, ConfigDir: configDir, ValidateEmbedding: true})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Ingest.Load(ctx)
	require.NoError(t, err)

	stats, err := a.Similarity.Update(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Embedded)
	assert.Equal(t, 1, stats.Skipped)

	similar, err := a.Similarity.GetSimilar(domain.FileURI(filepath.Join(root, "short.md")), 1)
	require.NoError(t, err)
	require.Len(t, similar, 1)
	assert.Equal(t, "short2.md", similar[0].URI.Basename())

	t.Run("second run reuses the sqlite cache", func(t *testing.T) {
		b, err := New(ctx, Options{Root: root, ConfigDir: configDir})
		require.NoError(t, err)
		defer b.Close()

		_, err = b.Ingest.Load(ctx)
		require.NoError(t, err)

		stats, err := b.Similarity.Update(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Embedded)
		assert.Equal(t, 3, stats.Reused)
	})
}
