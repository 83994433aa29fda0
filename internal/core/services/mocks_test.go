package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// --- Mock implementations shared by service tests ---

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu       sync.Mutex
	calls    int
	texts    []string
	inFlight int
	maxConc  int

	// embed overrides the default vector. Keyed on text prefix when set.
	vectors map[string][]float32
	err     error

	// gate, when set, blocks Embed until it is closed.
	gate    chan struct{}
	started chan struct{}

	model string
	dims  int
}

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{vectors: make(map[string][]float32), model: "mock", dims: 3}
}

// newMockEmbedderFor returns an embedder for model whose default vectors
// have dims components.
func newMockEmbedderFor(model string, dims int) *mockEmbeddingService {
	return &mockEmbeddingService{vectors: make(map[string][]float32), model: model, dims: dims}
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, text)
	m.inFlight++
	if m.inFlight > m.maxConc {
		m.maxConc = m.inFlight
	}
	gate, started, err := m.gate, m.started, m.err
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for prefix, vec := range m.vectors {
		if strings.HasPrefix(text, prefix) {
			return vec, nil
		}
	}
	vec := make([]float32, m.dims)
	vec[0] = float32(len(text))
	if m.dims > 1 {
		vec[1] = 1
	}
	return vec, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dims }
func (m *mockEmbeddingService) ModelName() string            { return m.model }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

func (m *mockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockEmbeddingService) MaxConcurrency() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxConc
}

// mockEmbeddingCache implements driven.EmbeddingCache for testing.
type mockEmbeddingCache struct {
	mu      sync.Mutex
	entries map[string]domain.EmbeddingEntry
	getErr  error
}

func newMockCache() *mockEmbeddingCache {
	return &mockEmbeddingCache{entries: make(map[string]domain.EmbeddingEntry)}
}

func (m *mockEmbeddingCache) Get(_ context.Context, uri string) (domain.EmbeddingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return domain.EmbeddingEntry{}, m.getErr
	}
	e, ok := m.entries[uri]
	if !ok {
		return domain.EmbeddingEntry{}, domain.ErrNotFound
	}
	return e, nil
}

func (m *mockEmbeddingCache) Has(_ context.Context, uri string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[uri]
	return ok, nil
}

func (m *mockEmbeddingCache) Set(_ context.Context, uri string, entry domain.EmbeddingEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[uri] = entry
	return nil
}

func (m *mockEmbeddingCache) Delete(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, uri)
	return nil
}

func (m *mockEmbeddingCache) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]domain.EmbeddingEntry)
	return nil
}

func (m *mockEmbeddingCache) Close() error { return nil }

func (m *mockEmbeddingCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// mockConnector implements driven.Connector for testing.
type mockConnector struct {
	root        domain.URI
	resources   []domain.RawResource
	walkErrs    []error
	validateErr error
	changes     chan domain.RawResourceChange
	watchErr    error
	closed      bool
}

func (m *mockConnector) Root() domain.URI { return m.root }

func (m *mockConnector) Validate(_ context.Context) error { return m.validateErr }

func (m *mockConnector) Walk(ctx context.Context) (<-chan domain.RawResource, <-chan error) {
	out := make(chan domain.RawResource)
	errs := make(chan error, len(m.walkErrs))

	go func() {
		defer close(out)
		defer close(errs)

		for _, err := range m.walkErrs {
			errs <- err
		}
		for _, r := range m.resources {
			select {
			case <-ctx.Done():
				return
			case out <- r:
			}
		}
	}()
	return out, errs
}

func (m *mockConnector) Watch(_ context.Context) (<-chan domain.RawResourceChange, error) {
	if m.watchErr != nil {
		return nil, m.watchErr
	}
	return m.changes, nil
}

func (m *mockConnector) Close() error {
	m.closed = true
	return nil
}

// mockRegistry implements driven.NormaliserRegistry for testing.
// Files ending in ".md" become notes titled by their first line; others become attachments.
type mockRegistry struct {
	failOn string
}

func (m *mockRegistry) Normalise(_ context.Context, raw *domain.RawResource) (*domain.Resource, error) {
	if m.failOn != "" && raw.URI.Path == m.failOn {
		return nil, errors.New("cannot parse")
	}
	if raw.URI.Extension() != ".md" {
		return &domain.Resource{URI: raw.URI, Kind: domain.KindAttachment, Title: raw.URI.Basename()}, nil
	}
	title, body, _ := strings.Cut(string(raw.Content), "\n")
	return &domain.Resource{URI: raw.URI, Kind: domain.KindNote, Title: title, Text: body}, nil
}

func (m *mockRegistry) Register(_ driven.Normaliser) {}

func (m *mockRegistry) SupportedExtensions() []string { return []string{".md"} }

// mockAIConfigValidator implements driven.AIConfigValidator for testing.
type mockAIConfigValidator struct {
	err    error
	called bool
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.called = true
	return m.err
}
