package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/refindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/refindex/internal/core/domain"
)

func newSettingsService(store *memory.ConfigStore, env map[string]string) *SettingsService {
	service := NewSettingsService(store, nil)
	service.getenv = func(key string) string { return env[key] }
	return service
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := newSettingsService(memory.NewConfigStore(), nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Workspace, settings.Workspace)
	assert.Equal(t, domain.AIProviderNone, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.RequestsPerSecond, settings.Embedding.RequestsPerSecond)
	assert.Equal(t, defaults.Embedding.Burst, settings.Embedding.Burst)
	assert.Equal(t, domain.CacheBackendSQLite, settings.Cache.Backend)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"workspace.default_extension":     ".markdown",
		"workspace.exclude":               []any{"drafts/**"},
		"workspace.include_hidden":        true,
		"embedding.provider":              "ollama",
		"embedding.base_url":              "http://gpu-box:11434",
		"embedding.requests_per_second":   int64(4),
		"embedding.burst":                 int64(2),
		"cache.backend":                   "memory",
		"cache.dir":                       "/tmp/cache",
	})
	service := newSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, ".markdown", settings.Workspace.DefaultExtension)
	assert.Equal(t, []string{"drafts/**"}, settings.Workspace.Exclude)
	assert.True(t, settings.Workspace.IncludeHidden)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Equal(t, "http://gpu-box:11434", settings.Embedding.BaseURL)
	assert.InDelta(t, 4.0, settings.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, 2, settings.Embedding.Burst)
	assert.Equal(t, domain.CacheBackendMemory, settings.Cache.Backend)
	assert.Equal(t, "/tmp/cache", settings.Cache.Dir)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider": "invalid_provider",
		"cache.backend":      "redis",
	})
	service := newSettingsService(store, nil)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderNone, settings.Embedding.Provider)
	assert.Equal(t, domain.CacheBackendSQLite, settings.Cache.Backend)
}

func TestSettingsService_Get_APIKeyFromEnvironment(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.provider": "openai"})

	t.Run("env fallback", func(t *testing.T) {
		service := newSettingsService(store, map[string]string{"OPENAI_API_KEY": "sk-env"})
		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "sk-env", settings.Embedding.APIKey)
		assert.True(t, settings.Embedding.IsConfigured())
	})

	t.Run("config wins over env", func(t *testing.T) {
		configured := memory.NewConfigStore(map[string]any{
			"embedding.provider": "openai",
			"embedding.api_key":  "sk-file",
		})
		service := newSettingsService(configured, map[string]string{"OPENAI_API_KEY": "sk-env"})
		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "sk-file", settings.Embedding.APIKey)
	})
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := newSettingsService(store, nil)

	settings := domain.DefaultSettings()
	settings.Workspace.DefaultExtension = ".txt"
	settings.Embedding = domain.EmbeddingSettings{
		Provider:          domain.AIProviderOpenAI,
		Model:             "text-embedding-3-large",
		APIKey:            "sk-test-key",
		RequestsPerSecond: 2.5,
		Burst:             3,
	}
	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, ".txt", retrieved.Workspace.DefaultExtension)
	assert.Equal(t, domain.AIProviderOpenAI, retrieved.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", retrieved.Embedding.Model)
	assert.Equal(t, "sk-test-key", retrieved.Embedding.APIKey)
	assert.InDelta(t, 2.5, retrieved.Embedding.RequestsPerSecond, 1e-9)
	assert.Equal(t, 3, retrieved.Embedding.Burst)
}

func TestSettingsService_Save_DoesNotPersistEnvKey(t *testing.T) {
	store := memory.NewConfigStore()
	service := newSettingsService(store, map[string]string{"OPENAI_API_KEY": "sk-env"})

	settings := domain.DefaultSettings()
	settings.Embedding.Provider = domain.AIProviderOpenAI
	settings.Embedding.APIKey = "sk-env"
	require.NoError(t, service.Save(&settings))

	_, ok := store.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	service := newSettingsService(memory.NewConfigStore(), nil)

	settings := domain.DefaultSettings()
	settings.Workspace.DefaultExtension = "md"
	assert.ErrorIs(t, service.Save(&settings), domain.ErrInvalidInput)
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	tests := []struct {
		name          string
		provider      domain.AIProvider
		model         string
		apiKey        string
		expectedModel string
		expectedErr   error
	}{
		{
			name:          "ollama with explicit model",
			provider:      domain.AIProviderOllama,
			model:         "mxbai-embed-large",
			expectedModel: "mxbai-embed-large",
		},
		{
			name:          "openai default model",
			provider:      domain.AIProviderOpenAI,
			apiKey:        "sk-test",
			expectedModel: "text-embedding-3-small",
		},
		{
			name:        "openai without key",
			provider:    domain.AIProviderOpenAI,
			expectedErr: domain.ErrInvalidInput,
		},
		{
			name:        "unknown provider",
			provider:    domain.AIProvider("invalid"),
			expectedErr: domain.ErrUnsupportedType,
		},
		{
			name:     "disable",
			provider: domain.AIProviderNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newSettingsService(memory.NewConfigStore(), nil)

			err := service.SetEmbeddingProvider(tt.provider, tt.model, tt.apiKey)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, tt.provider, settings.Embedding.Provider)
			assert.Equal(t, tt.expectedModel, settings.Embedding.Model)
		})
	}
}

func TestSettingsService_SetEmbeddingProvider_KeepsEnvKey(t *testing.T) {
	store := memory.NewConfigStore()
	service := newSettingsService(store, map[string]string{"OPENAI_API_KEY": "sk-env"})

	require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", ""))

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	_, ok := store.Get("embedding.api_key")
	assert.False(t, ok)
}

func TestSettingsService_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		service := newSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.Validate())
	})

	t.Run("openai without key", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"embedding.provider": "openai"})
		service := newSettingsService(store, nil)

		err := service.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("bad extension", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"workspace.default_extension": "md/"})
		service := newSettingsService(store, nil)
		assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)
	})
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := newSettingsService(memory.NewConfigStore(), nil)
	assert.Equal(t, domain.DefaultSettings(), service.GetDefaults())
}

func TestSettingsService_ValidateEmbeddingConfig(t *testing.T) {
	t.Run("without validator", func(t *testing.T) {
		service := newSettingsService(memory.NewConfigStore(), nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
	})

	t.Run("delegates to validator", func(t *testing.T) {
		validator := &mockAIConfigValidator{err: errors.New("connection refused")}
		service := NewSettingsService(memory.NewConfigStore(), validator)

		err := service.ValidateEmbeddingConfig()
		assert.EqualError(t, err, "connection refused")
		assert.True(t, validator.called)
	})
}
