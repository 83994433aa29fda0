package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index up to date while files change",
	Long: `Loads the workspace, then follows file changes until interrupted.

Each created, modified or deleted note updates the workspace and its
embedding. Embeddings are skipped when no provider is configured.`,
	Args:        cobra.NoArgs,
	Annotations: annotate(annotationLoad),
	RunE:        runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	startMonitoring(cmd)

	pr := newPrinter(cmd.OutOrStdout())
	cmd.Println(pr.Heading(fmt.Sprintf("Watching %s (%d resources)", workspaceRoot, resourceService.Len())))
	cmd.Println(pr.Muted("Press Ctrl+C to stop."))

	if err := ingestService.Watch(ctx); err != nil {
		return err
	}
	if indexMonitor != nil {
		if err := indexMonitor.Settle(ctx); err != nil && ctx.Err() == nil {
			return err
		}
	}
	return nil
}

// startMonitoring builds the similarity index once and then follows
// workspace events. A missing embedding provider only disables similarity.
func startMonitoring(cmd *cobra.Command) {
	if similarityService == nil || indexMonitor == nil {
		return
	}

	ctx := cmd.Context()
	if _, err := similarityService.Update(ctx); err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			logger.Warn("similarity index: %v", err)
		}
		logger.Debug("similarity disabled: %v", err)
		return
	}
	indexMonitor.Monitor(ctx)
}
