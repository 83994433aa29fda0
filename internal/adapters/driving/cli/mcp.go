package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/refindex/internal/adapters/driving/mcp"
	"github.com/custodia-labs/refindex/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so an AI assistant can resolve
identifiers and look up related notes.

The workspace is loaded first and then watched for changes while the
server runs. By default the server speaks JSON-RPC over stdio. Use --port
to serve streamable HTTP instead, for example with MCP Inspector.

Examples:
  # Stdio mode (default)
  refindex mcp serve --root ~/notes

  # HTTP mode
  refindex mcp serve --root ~/notes --port 8080

Client configuration:
  {
    "mcpServers": {
      "refindex": {
        "command": "/path/to/refindex",
        "args": ["mcp", "serve", "--root", "/path/to/notes"]
      }
    }
  }`,
	Args:        cobra.NoArgs,
	Annotations: annotate(annotationLoad),
	RunE:        runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ports := &mcp.Ports{
		Resources:  resourceService,
		Similarity: similarityService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	startMonitoring(cmd)
	if ingestService != nil {
		go func() {
			if err := ingestService.Watch(ctx); err != nil {
				logger.Warn("watch stopped: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
