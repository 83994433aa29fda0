package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the current configuration",
	Long: `Shows workspace, embedding and cache settings.

Settings are read from config.toml in the config directory. A .refindex
folder in the workspace root takes precedence over ~/.refindex.`,
	Args:        cobra.NoArgs,
	Annotations: annotate(),
	RunE:        runConfigShow,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	Long: `Configure the provider used to rank related notes.

Without flags an interactive prompt asks for each value. With --provider
the values are taken from flags:

  refindex config embedding --provider ollama
  refindex config embedding --provider openai --model text-embedding-3-large
  refindex config embedding --provider none`,
	Args:        cobra.NoArgs,
	Annotations: annotate(),
	RunE:        runConfigEmbedding,
}

func init() {
	configEmbeddingCmd.Flags().String("provider", "", "provider: ollama, openai or none")
	configEmbeddingCmd.Flags().String("model", "", "model name (default: provider default)")
	configEmbeddingCmd.Flags().String("api-key", "", "API key (openai; falls back to OPENAI_API_KEY)")
	configCmd.AddCommand(configEmbeddingCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	pr := newPrinter(cmd.OutOrStdout())

	cmd.Println(pr.Heading("[Workspace]"))
	cmd.Printf("  Root: %s\n", workspaceRoot)
	cmd.Printf("  Default extension: %s\n", settings.Workspace.DefaultExtension)
	if len(settings.Workspace.Exclude) > 0 {
		cmd.Printf("  Exclude: %s\n", strings.Join(settings.Workspace.Exclude, ", "))
	}
	cmd.Printf("  Include hidden: %s\n", yesNo(settings.Workspace.IncludeHidden))
	cmd.Println()

	cmd.Println(pr.Heading("[Embedding]"))
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	if settings.Embedding.Provider.IsValid() {
		cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	}
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	} else if settings.Embedding.Provider.IsLocal() {
		cmd.Printf("  Base URL: (default)\n")
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		if settings.Embedding.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(settings.Embedding.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	cmd.Printf("  Rate limit: %g/s, burst %d\n", settings.Embedding.RequestsPerSecond, settings.Embedding.Burst)
	status := "configured"
	if !settings.Embedding.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	cmd.Println(pr.Heading("[Cache]"))
	cmd.Printf("  Backend: %s\n", settings.Cache.Backend)
	if settings.Cache.Dir != "" {
		cmd.Printf("  Directory: %s\n", settings.Cache.Dir)
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(pr.Warning(fmt.Sprintf("Warning: %v", err)))
		cmd.Println("Run 'refindex config embedding' to fix the embedding provider.")
	} else {
		cmd.Println(pr.Success("Configuration is valid."))
	}
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if cmd.Flags().Changed("provider") {
		name, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		apiKey, _ := cmd.Flags().GetString("api-key")

		provider, err := parseProvider(name)
		if err != nil {
			return err
		}
		return applyEmbeddingProvider(cmd, provider, model, apiKey)
	}

	return configureEmbeddingProvider(cmd, bufio.NewReader(cmd.InOrStdin()))
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := append(domain.AllEmbeddingProviders(), domain.AIProviderNone)
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	idx := parseChoice(readLine(reader), len(providers), 1)
	selected := providers[idx-1]

	if selected == domain.AIProviderNone {
		return applyEmbeddingProvider(cmd, selected, "", "")
	}

	defaultModel := domain.DefaultEmbeddingModels()[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key (blank uses OPENAI_API_KEY): ")
		apiKey = readPassword(cmd.InOrStdin(), reader)
		cmd.Println()
	}

	return applyEmbeddingProvider(cmd, selected, model, apiKey)
}

func applyEmbeddingProvider(cmd *cobra.Command, provider domain.AIProvider, model, apiKey string) error {
	if err := settingsService.SetEmbeddingProvider(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	pr := newPrinter(cmd.OutOrStdout())
	if provider == domain.AIProviderNone {
		cmd.Println("Embeddings disabled.")
		return nil
	}

	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Println(pr.Warning("FAILED"))
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println(pr.Success("OK"))

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), settings.Embedding.Model)
	return nil
}

func parseProvider(name string) (domain.AIProvider, error) {
	switch p := domain.AIProvider(strings.ToLower(strings.TrimSpace(name))); p {
	case "none", domain.AIProviderNone:
		return domain.AIProviderNone, nil
	case domain.AIProviderOllama, domain.AIProviderOpenAI:
		return p, nil
	default:
		return "", fmt.Errorf("%w: embedding provider %q (want ollama, openai or none)", domain.ErrUnsupportedType, name)
	}
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when in is a terminal and falls back to
// a plain line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
