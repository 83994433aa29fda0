// Package cli provides the refindex command line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refindex/internal/app"
	"github.com/custodia-labs/refindex/internal/core/ports/driving"
	"github.com/custodia-labs/refindex/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=1.2.3".
var version = "dev"

// Global flags.
var (
	rootDir   string
	configDir string
	verbose   bool
	ephemeral bool
)

// Command annotations read by the root bootstrap.
const (
	// annotationServices marks commands that open configuration and storage.
	// Others, such as help and version, run without touching disk.
	annotationServices = "refindex/services"

	// annotationLoad marks commands that need the tree read into the workspace.
	annotationLoad = "refindex/load"

	// annotationEmbedding marks commands that fail when the embedding
	// provider is configured but unreachable.
	annotationEmbedding = "refindex/embedding"
)

// Monitor keeps the similarity index in step with the workspace.
type Monitor interface {
	Monitor(ctx context.Context)
	Settle(ctx context.Context) error
}

// Services bundles the ports commands use.
type Services struct {
	Root       string
	Resources  driving.ResourceService
	Similarity driving.SimilarityService
	Ingest     driving.IngestService
	Settings   driving.SettingsService
	Monitor    Monitor
	Close      func() error
}

// Services injected by the root bootstrap.
var (
	workspaceRoot     string
	resourceService   driving.ResourceService
	similarityService driving.SimilarityService
	ingestService     driving.IngestService
	settingsService   driving.SettingsService
	indexMonitor      Monitor
	closeServices     func() error
)

// openServices builds the services for a command. Replaced in tests.
var openServices = func(ctx context.Context, opts app.Options) (*Services, error) {
	a, err := app.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Services{
		Root:       a.Root,
		Resources:  a.Workspace,
		Similarity: a.Similarity,
		Ingest:     a.Ingest,
		Settings:   a.Settings,
		Monitor:    a.Similarity,
		Close:      a.Close,
	}, nil
}

var rootCmd = &cobra.Command{
	Use:   "refindex",
	Short: "Resolve note identifiers and find related notes",
	Long: `refindex indexes a folder of markdown notes and attachments.

It answers two questions about any note: what is the shortest name that
still points at it unambiguously, and which other notes are most like it.
Related notes are ranked by embedding similarity (Ollama or OpenAI).`,
	SilenceUsage:      true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootDir, "root", "r", "", "workspace folder (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "",
		"config directory (default: <root>/.refindex if present, else ~/.refindex)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress and debug output")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false,
		"keep settings and embeddings in memory; nothing is written to disk")
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer releaseServices()
	rootCmd.SetOut(os.Stdout)
	return rootCmd.ExecuteContext(ctx)
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if cmd.Annotations[annotationServices] != "true" {
		return nil
	}

	ctx := cmd.Context()
	svc, err := openServices(ctx, app.Options{
		Root:              rootDir,
		ConfigDir:         configDir,
		Ephemeral:         ephemeral,
		ValidateEmbedding: cmd.Annotations[annotationEmbedding] == "true",
	})
	if err != nil {
		return err
	}
	setServices(svc)

	if cmd.Annotations[annotationLoad] == "true" {
		if _, err := ingestService.Load(ctx); err != nil {
			return fmt.Errorf("load %s: %w", workspaceRoot, err)
		}
	}
	return nil
}

func setServices(svc *Services) {
	releaseServices()

	workspaceRoot = svc.Root
	resourceService = svc.Resources
	similarityService = svc.Similarity
	ingestService = svc.Ingest
	settingsService = svc.Settings
	indexMonitor = svc.Monitor
	closeServices = svc.Close
}

func releaseServices() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("close: %v", err)
	}
	closeServices = nil
}

// annotate returns command annotations with annotationServices and each
// key set to "true".
func annotate(keys ...string) map[string]string {
	m := map[string]string{annotationServices: "true"}
	for _, k := range keys {
		m[k] = "true"
	}
	return m
}
