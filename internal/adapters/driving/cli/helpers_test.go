package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/refindex/internal/app"
	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/services"
)

const testRoot = "/notes"

// mockSimilarityService is a mock implementation of driving.SimilarityService.
type mockSimilarityService struct {
	results   []domain.SimilarResource
	updateErr error
	stats     domain.IndexStats
	embedded  map[string]bool

	updates int
	gotTopK int
}

func (m *mockSimilarityService) GetSimilar(_ domain.URI, topK int) ([]domain.SimilarResource, error) {
	m.gotTopK = topK
	return m.results, nil
}

func (m *mockSimilarityService) GetEmbedding(uri domain.URI) ([]float32, bool) {
	if m.embedded[uri.Path] {
		return []float32{1}, true
	}
	return nil, false
}

func (m *mockSimilarityService) HasEmbeddings() bool {
	return len(m.embedded) > 0
}

func (m *mockSimilarityService) UpdateResource(_ context.Context, _ domain.URI) error {
	return m.updateErr
}

func (m *mockSimilarityService) Update(_ context.Context) (domain.IndexStats, error) {
	m.updates++
	return m.stats, m.updateErr
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	loads   int
	watches int
	loadErr error
}

func (m *mockIngestService) Load(_ context.Context) (int, error) {
	m.loads++
	return 0, m.loadErr
}

func (m *mockIngestService) Apply(_ context.Context, _ domain.RawResourceChange) error {
	return nil
}

func (m *mockIngestService) Watch(_ context.Context) error {
	m.watches++
	return nil
}

// mockMonitor records Monitor and Settle calls.
type mockMonitor struct {
	monitored int
	settled   int
}

func (m *mockMonitor) Monitor(_ context.Context) { m.monitored++ }

func (m *mockMonitor) Settle(_ context.Context) error {
	m.settled++
	return nil
}

// stubValidator is a driven.AIConfigValidator returning a fixed error.
type stubValidator struct {
	err   error
	calls int
}

func (v *stubValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	v.calls++
	return v.err
}

// testServices holds the fakes a test command runs against.
type testServices struct {
	workspace  *services.Workspace
	similarity *mockSimilarityService
	ingest     *mockIngestService
	monitor    *mockMonitor
	config     *memory.ConfigStore
	validator  *stubValidator

	opened []app.Options
	closed int
}

// setupTestServices replaces openServices with fakes backed by a real
// workspace holding resources under testRoot.
func setupTestServices(t *testing.T, resources ...domain.Resource) *testServices {
	t.Helper()

	ts := &testServices{
		workspace:  services.NewWorkspace(".md"),
		similarity: &mockSimilarityService{},
		ingest:     &mockIngestService{},
		monitor:    &mockMonitor{},
		config:     memory.NewConfigStore(),
		validator:  &stubValidator{},
	}
	for _, r := range resources {
		require.NoError(t, ts.workspace.Set(r))
	}

	original := openServices
	openServices = func(_ context.Context, opts app.Options) (*Services, error) {
		ts.opened = append(ts.opened, opts)
		return &Services{
			Root:       testRoot,
			Resources:  ts.workspace,
			Similarity: ts.similarity,
			Ingest:     ts.ingest,
			Settings:   services.NewSettingsService(ts.config, ts.validator),
			Monitor:    ts.monitor,
			Close: func() error {
				ts.closed++
				return nil
			},
		}, nil
	}
	t.Cleanup(func() {
		releaseServices()
		openServices = original
		resourceService = nil
		similarityService = nil
		ingestService = nil
		settingsService = nil
		indexMonitor = nil
		workspaceRoot = ""
	})
	return ts
}

// note builds a markdown note under testRoot.
func note(rel, title string, links ...domain.Link) domain.Resource {
	return domain.Resource{
		URI:   domain.FileURI(testRoot + "/" + rel),
		Kind:  domain.KindNote,
		Title: title,
		Text:  "text of " + rel,
		Links: links,
	}
}

// executeCommand runs the root command with args and returns its output.
// Flags are reset afterwards so tests do not leak state.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithInput(t, "", args...)
}

// executeWithInput runs the root command reading input from stdin.
func executeWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
