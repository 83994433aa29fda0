package domain

import (
	"fmt"
	"strings"
)

const unknownDescription = "Unknown"

// DefaultExtension is the extension assumed for identifiers written without one.
const DefaultExtension = ".md"

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderNone disables embeddings. Similarity queries return nothing.
	AIProviderNone AIProvider = ""

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderNone:
		return "Disabled"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// CacheBackend selects where embedding cache entries are kept.
type CacheBackend string

// Available cache backends.
const (
	// CacheBackendSQLite persists entries so restarts skip re-embedding.
	CacheBackendSQLite CacheBackend = "sqlite"

	// CacheBackendMemory keeps entries for the lifetime of the process.
	CacheBackendMemory CacheBackend = "memory"
)

// IsValid returns true if the backend is recognised.
func (b CacheBackend) IsValid() bool {
	return b == CacheBackendSQLite || b == CacheBackendMemory
}

// WorkspaceSettings controls which files become resources.
type WorkspaceSettings struct {
	// DefaultExtension is appended to identifiers without an extension.
	DefaultExtension string

	// Exclude holds doublestar glob patterns relative to the root.
	Exclude []string

	// IncludeHidden indexes dot-files and dot-directories.
	IncludeHidden bool
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64

	// Burst is the number of calls allowed above the steady rate.
	Burst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// CacheSettings holds embedding cache configuration.
type CacheSettings struct {
	// Backend selects the cache implementation.
	Backend CacheBackend

	// Dir holds the sqlite database. Empty means the configuration directory.
	Dir string
}

// Settings is the complete application configuration.
type Settings struct {
	Workspace WorkspaceSettings
	Embedding EmbeddingSettings
	Cache     CacheSettings
}

// DefaultSettings returns settings that work without a config file.
// Embeddings stay disabled until a provider is configured.
func DefaultSettings() Settings {
	return Settings{
		Workspace: WorkspaceSettings{
			DefaultExtension: DefaultExtension,
			Exclude:          []string{"node_modules/**", ".git/**"},
		},
		Embedding: EmbeddingSettings{
			RequestsPerSecond: 10,
			Burst:             1,
		},
		Cache: CacheSettings{
			Backend: CacheBackendSQLite,
		},
	}
}

// Validate checks the settings for values the application cannot use.
func (s Settings) Validate() error {
	ext := s.Workspace.DefaultExtension
	if ext == "" || !strings.HasPrefix(ext, ".") || strings.Contains(ext, "/") {
		return fmt.Errorf("%w: default extension %q must start with a dot", ErrInvalidInput, ext)
	}
	if s.Embedding.Provider != AIProviderNone && !s.Embedding.Provider.IsValid() {
		return fmt.Errorf("%w: embedding provider %q", ErrUnsupportedType, s.Embedding.Provider)
	}
	if s.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests per second must not be negative", ErrInvalidInput)
	}
	if s.Embedding.Burst < 0 {
		return fmt.Errorf("%w: burst must not be negative", ErrInvalidInput)
	}
	if !s.Cache.Backend.IsValid() {
		return fmt.Errorf("%w: cache backend %q", ErrUnsupportedType, s.Cache.Backend)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
