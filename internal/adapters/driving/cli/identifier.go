package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

var idCmd = &cobra.Command{
	Use:   "id [path]",
	Short: "Print the shortest identifier for a note",
	Long: `Prints the shortest reference that still finds the note unambiguously.

The default extension is dropped, and the path grows one folder at a time
until no other resource shares the suffix:

  notes/work/todo.md and notes/home/todo.md  ->  work/todo, home/todo`,
	Args:        cobra.ExactArgs(1),
	Annotations: annotate(annotationLoad),
	RunE:        runID,
}

var resolveCmd = &cobra.Command{
	Use:         "resolve [identifier]",
	Short:       "List the resources an identifier refers to",
	Args:        cobra.ExactArgs(1),
	Annotations: annotate(annotationLoad),
	RunE:        runResolve,
}

var listCmd = &cobra.Command{
	Use:         "list",
	Short:       "List every resource with its identifier",
	Args:        cobra.NoArgs,
	Annotations: annotate(annotationLoad),
	RunE:        runList,
}

var linksCmd = &cobra.Command{
	Use:         "links [path]",
	Short:       "Show where each link in a note points",
	Args:        cobra.ExactArgs(1),
	Annotations: annotate(annotationLoad),
	RunE:        runLinks,
}

func init() {
	rootCmd.AddCommand(idCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(linksCmd)
}

func runID(cmd *cobra.Command, args []string) error {
	r, err := lookupResource(args[0])
	if err != nil {
		return err
	}
	cmd.Println(resourceService.GetIdentifier(r.URI))
	return nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	if resourceService == nil {
		return errors.New("resource service not configured")
	}

	identifier := args[0]
	pr := newPrinter(cmd.OutOrStdout())

	matches := resourceService.ListByIdentifier(identifier)
	if len(matches) == 0 {
		cmd.Printf("No resource matches %q.\n", identifier)
		return nil
	}
	if len(matches) > 1 {
		cmd.Println(pr.Warning(fmt.Sprintf("%q is ambiguous: %d matches", identifier, len(matches))))
	}
	for i := range matches {
		cmd.Printf("  %s  %s\n", resourceService.GetIdentifier(matches[i].URI), pr.Muted(displayPath(matches[i].URI)))
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	if resourceService == nil {
		return errors.New("resource service not configured")
	}

	pr := newPrinter(cmd.OutOrStdout())
	resources := resourceService.List()
	if len(resources) == 0 {
		cmd.Println("No resources found.")
		return nil
	}

	ids := make([]string, len(resources))
	width := 0
	for i := range resources {
		ids[i] = resourceService.GetIdentifier(resources[i].URI)
		width = max(width, len(ids[i]))
	}

	cmd.Println(pr.Heading(fmt.Sprintf("%d resources", len(resources))))
	for i := range resources {
		cmd.Printf("  %-*s  %s\n", width, ids[i], pr.Muted(displayPath(resources[i].URI)))
	}
	return nil
}

func runLinks(cmd *cobra.Command, args []string) error {
	r, err := lookupResource(args[0])
	if err != nil {
		return err
	}

	pr := newPrinter(cmd.OutOrStdout())
	if len(r.Links) == 0 {
		cmd.Println("No links.")
		return nil
	}

	cmd.Println(pr.Heading("Links in " + resourceService.GetIdentifier(r.URI)))
	for _, link := range r.Links {
		target := resourceService.ResolveLink(r.URI, link.Target)
		if target.IsPlaceholder() {
			cmd.Printf("  %s -> %s\n", link.Target, pr.Warning("(missing)"))
			continue
		}
		cmd.Printf("  %s -> %s  %s\n", link.Target, resourceService.GetIdentifier(target), pr.Muted(displayPath(target)))
	}
	return nil
}

// lookupResource finds a resource by path (relative to the working directory
// or the workspace root) or by identifier.
func lookupResource(arg string) (domain.Resource, error) {
	if resourceService == nil {
		return domain.Resource{}, errors.New("resource service not configured")
	}

	var candidates []string
	if abs, err := filepath.Abs(arg); err == nil {
		candidates = append(candidates, abs)
	}
	if workspaceRoot != "" && !filepath.IsAbs(arg) {
		candidates = append(candidates, filepath.Join(workspaceRoot, arg))
	}
	for _, p := range candidates {
		if r, err := resourceService.Get(domain.FileURI(p)); err == nil {
			return r, nil
		}
	}

	if r, ok := resourceService.Find(filepath.ToSlash(arg), domain.URI{}); ok {
		return r, nil
	}
	return domain.Resource{}, fmt.Errorf("%w: %s", domain.ErrNotFound, arg)
}

// displayPath returns the path relative to the workspace root when inside it.
func displayPath(u domain.URI) string {
	p := u.FsPath()
	if workspaceRoot == "" {
		return p
	}
	rel, err := filepath.Rel(workspaceRoot, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}
