package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

const embeddingHint = "Run 'refindex config embedding' to configure an embedding provider."

var similarCmd = &cobra.Command{
	Use:   "similar [path]",
	Short: "List the notes most similar to a note",
	Long: `Ranks every other note by cosine similarity of its embedding.

Embeddings are cached by content, so only changed notes are sent to the
provider on each run.`,
	Args:        cobra.ExactArgs(1),
	Annotations: annotate(annotationLoad, annotationEmbedding),
	RunE:        runSimilar,
}

var indexCmd = &cobra.Command{
	Use:         "index",
	Short:       "Embed every note and refresh the cache",
	Args:        cobra.NoArgs,
	Annotations: annotate(annotationLoad, annotationEmbedding),
	RunE:        runIndex,
}

func init() {
	similarCmd.Flags().IntP("limit", "n", 10, "maximum number of results (0 = all)")
	similarCmd.Flags().Bool("json", false, "print results as JSON")
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(indexCmd)
}

type similarResult struct {
	Path       string  `json:"path"`
	Identifier string  `json:"identifier"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

func runSimilar(cmd *cobra.Command, args []string) error {
	if similarityService == nil {
		return errors.New("similarity service not configured")
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("getting limit flag: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("getting json flag: %w", err)
	}

	r, err := lookupResource(args[0])
	if err != nil {
		return err
	}

	if err := rebuildIndex(cmd); err != nil {
		return err
	}

	similar, err := similarityService.GetSimilar(r.URI, limit)
	if err != nil {
		return fmt.Errorf("similar: %w", err)
	}

	results := make([]similarResult, 0, len(similar))
	for _, s := range similar {
		res, err := resourceService.Get(s.URI)
		if err != nil {
			continue
		}
		results = append(results, similarResult{
			Path:       res.URI.FsPath(),
			Identifier: resourceService.GetIdentifier(res.URI),
			Title:      res.Title,
			Similarity: s.Similarity,
		})
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	pr := newPrinter(cmd.OutOrStdout())
	if len(results) == 0 {
		if _, ok := similarityService.GetEmbedding(r.URI); !ok {
			cmd.Printf("%s has no embedding.\n", resourceService.GetIdentifier(r.URI))
			return nil
		}
		cmd.Println("No similar notes found.")
		return nil
	}

	cmd.Println(pr.Heading("Similar to " + resourceService.GetIdentifier(r.URI)))
	for i, res := range results {
		cmd.Printf("%2d. %.3f  %s  %s\n", i+1, res.Similarity, res.Identifier, pr.Muted(res.Title))
	}
	return nil
}

func runIndex(cmd *cobra.Command, _ []string) error {
	if similarityService == nil {
		return errors.New("similarity service not configured")
	}

	stats, err := similarityService.Update(cmd.Context())
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			cmd.Println(embeddingHint)
		}
		return fmt.Errorf("index: %w", err)
	}

	pr := newPrinter(cmd.OutOrStdout())
	cmd.Println(pr.Heading(fmt.Sprintf("Indexed %d resources", stats.Total())))
	cmd.Printf("  Embedded: %d\n", stats.Embedded)
	cmd.Printf("  Reused:   %d\n", stats.Reused)
	cmd.Printf("  Skipped:  %d\n", stats.Skipped)
	if stats.Failed > 0 {
		cmd.Println(pr.Warning(fmt.Sprintf("  Failed:   %d (run with -v for details)", stats.Failed)))
	}
	if stats.Removed > 0 {
		cmd.Printf("  Removed:  %d\n", stats.Removed)
	}
	return nil
}

// rebuildIndex brings the similarity index up to date with the workspace.
func rebuildIndex(cmd *cobra.Command) error {
	if _, err := similarityService.Update(cmd.Context()); err != nil {
		if errors.Is(err, domain.ErrEmbeddingUnavailable) {
			cmd.PrintErrln(embeddingHint)
		}
		return fmt.Errorf("update similarity index: %w", err)
	}
	return nil
}
