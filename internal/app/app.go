// Package app wires configuration, storage, embedding and the core
// services into one runnable unit for the CLI and MCP adapters.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/refindex/internal/adapters/driven/ai"
	"github.com/custodia-labs/refindex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/refindex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/refindex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/refindex/internal/connectors/filesystem"
	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
	"github.com/custodia-labs/refindex/internal/core/services"
	"github.com/custodia-labs/refindex/internal/logger"
	"github.com/custodia-labs/refindex/internal/normalisers"
)

// Options selects where the application reads from and what it persists.
type Options struct {
	// Root is the workspace folder. Empty means the working directory.
	Root string

	// ConfigDir overrides the configuration directory. Empty means
	// <root>/.refindex when that directory exists, else ~/.refindex.
	ConfigDir string

	// Ephemeral keeps configuration and embeddings in memory only.
	Ephemeral bool

	// ValidateEmbedding pings the embedding provider and fails when it is
	// unreachable instead of running without embeddings.
	ValidateEmbedding bool
}

// App holds the wired services. Close releases everything New opened.
type App struct {
	Root       string
	Config     driven.ConfigStore
	Settings   *services.SettingsService
	Workspace  *services.Workspace
	Similarity *services.SimilarityIndex
	Ingest     *services.IngestService

	embedder  driven.EmbeddingService
	cache     driven.EmbeddingCache
	connector *filesystem.Connector
}

// New builds an App. The workspace starts empty; call Ingest.Load to read the tree.
func New(ctx context.Context, opts Options) (*App, error) {
	root, err := resolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	config, err := openConfig(root, opts)
	if err != nil {
		return nil, err
	}

	settingsService := services.NewSettingsService(config, ai.NewConfigValidator())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	cache, err := openCache(config, settings, opts.Ephemeral)
	if err != nil {
		return nil, err
	}

	embedder, err := openEmbedder(ctx, settings, opts.ValidateEmbedding)
	if err != nil {
		_ = cache.Close()
		return nil, err
	}

	model := settings.Embedding.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[settings.Embedding.Provider]
	}

	workspace := services.NewWorkspace(settings.Workspace.DefaultExtension)
	connector := filesystem.New(root, filesystem.Options{
		Exclude:       settings.Workspace.Exclude,
		IncludeHidden: settings.Workspace.IncludeHidden,
	})
	registry := normalisers.NewDefaultRegistry(settings.Workspace.DefaultExtension)

	logger.Debug("workspace root %s, config %s", root, config.Path())

	return &App{
		Root:       root,
		Config:     config,
		Settings:   settingsService,
		Workspace:  workspace,
		Similarity: services.NewSimilarityIndex(workspace, embedder, cache, services.WithCacheModel(model)),
		Ingest:     services.NewIngestService(connector, registry, workspace),
		embedder:   embedder,
		cache:      cache,
		connector:  connector,
	}, nil
}

// HasEmbedder reports whether an embedding provider is configured.
func (a *App) HasEmbedder() bool {
	return a.embedder != nil
}

// Close stops monitoring, disposes the workspace and releases storage.
func (a *App) Close() error {
	a.Similarity.Close()
	a.Workspace.Dispose()

	var errs []error
	if err := a.connector.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close connector: %w", err))
	}
	if a.embedder != nil {
		if err := a.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close embedder: %w", err))
		}
	}
	if err := a.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close cache: %w", err))
	}
	return errors.Join(errs...)
}

func resolveRoot(root string) (string, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %s: %w", root, err)
	}
	return abs, nil
}

// ConfigDir returns the configuration directory for root: the override when
// set, <root>/.refindex when it exists, or "" for the home default.
func ConfigDir(root, override string) string {
	if override != "" {
		return override
	}
	local := filepath.Join(root, file.DirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local
	}
	return ""
}

func openConfig(root string, opts Options) (driven.ConfigStore, error) {
	if opts.Ephemeral {
		return memory.NewConfigStore(), nil
	}
	store, err := file.NewConfigStore(ConfigDir(root, opts.ConfigDir))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	return store, nil
}

func openCache(config driven.ConfigStore, settings *domain.Settings, ephemeral bool) (driven.EmbeddingCache, error) {
	if ephemeral || settings.Cache.Backend == domain.CacheBackendMemory {
		return memory.NewEmbeddingCache(), nil
	}

	dir := settings.Cache.Dir
	if dir == "" {
		dir = filepath.Dir(config.Path())
	}
	store, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	return store.EmbeddingCache(), nil
}

func openEmbedder(ctx context.Context, settings *domain.Settings, validate bool) (driven.EmbeddingService, error) {
	if validate {
		return ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	}

	svc, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding disabled: %v", err)
		return nil, nil
	}
	return svc, nil
}
