package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAIProvider_IsValid tests all valid and invalid providers
func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{name: "ollama is valid", provider: AIProviderOllama, expected: true},
		{name: "openai is valid", provider: AIProviderOpenAI, expected: true},
		{name: "none is not a provider", provider: AIProviderNone, expected: false},
		{name: "unknown is invalid", provider: AIProvider("anthropic"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Properties(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOpenAI.IsLocal())

	assert.Equal(t, "Disabled", AIProviderNone.Description())
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, "OpenAI (cloud)", AIProviderOpenAI.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

// TestEmbeddingSettings_IsConfigured tests provider and key requirements
func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{
			name:     "ollama without key",
			settings: EmbeddingSettings{Provider: AIProviderOllama, Model: "nomic-embed-text"},
			expected: true,
		},
		{
			name:     "openai without key",
			settings: EmbeddingSettings{Provider: AIProviderOpenAI},
			expected: false,
		},
		{
			name:     "openai with key",
			settings: EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"},
			expected: true,
		},
		{
			name:     "no provider",
			settings: EmbeddingSettings{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, ".md", s.Workspace.DefaultExtension)
	assert.Contains(t, s.Workspace.Exclude, ".git/**")
	assert.False(t, s.Workspace.IncludeHidden)
	assert.False(t, s.Embedding.IsConfigured())
	assert.Equal(t, CacheBackendSQLite, s.Cache.Backend)
	require.NoError(t, s.Validate())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr error
	}{
		{
			name:    "extension without dot",
			mutate:  func(s *Settings) { s.Workspace.DefaultExtension = "md" },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "empty extension",
			mutate:  func(s *Settings) { s.Workspace.DefaultExtension = "" },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown provider",
			mutate:  func(s *Settings) { s.Embedding.Provider = "cohere" },
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "negative rate",
			mutate:  func(s *Settings) { s.Embedding.RequestsPerSecond = -1 },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "negative burst",
			mutate:  func(s *Settings) { s.Embedding.Burst = -1 },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown cache backend",
			mutate:  func(s *Settings) { s.Cache.Backend = "redis" },
			wantErr: ErrUnsupportedType,
		},
		{
			name:   "memory cache with ollama",
			mutate: func(s *Settings) { s.Cache.Backend = CacheBackendMemory; s.Embedding.Provider = AIProviderOllama },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)

			err := s.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDefaultEmbeddingModels(t *testing.T) {
	models := DefaultEmbeddingModels()
	dims := EmbeddingDimensions()

	for _, p := range AllEmbeddingProviders() {
		model, ok := models[p]
		require.True(t, ok, "provider %s has no default model", p)
		assert.Positive(t, dims[model])
	}
}
