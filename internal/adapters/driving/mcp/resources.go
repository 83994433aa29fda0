package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// uriScheme is the custom URI scheme for refindex resources.
const uriScheme = "refindex://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "resources",
		Name:        "resources",
		Description: "Every note and file in the workspace with its identifier",
		MIMEType:    "application/json",
	}, s.handleResourcesResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "notes/{identifier}",
		Name:        "note-text",
		Description: "Plain text of the note an identifier resolves to",
		MIMEType:    "text/plain",
	}, s.handleNoteResource)
}

// handleResourcesResource lists every workspace resource.
func (s *Server) handleResourcesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	resources := s.ports.Resources.List()

	infos := make([]ResourceOutput, len(resources))
	for i := range resources {
		infos[i] = s.describe(resources[i])
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resources: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleNoteResource returns the text of the note an identifier resolves to.
func (s *Server) handleNoteResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	identifier := extractIdentifier(req.Params.URI)
	if identifier == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	r, ok := s.ports.Resources.Find(identifier, domain.URI{})
	if !ok {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     r.Text,
		}},
	}, nil
}

// extractIdentifier extracts the identifier from a URI like refindex://notes/{identifier}.
// The identifier may be percent-encoded.
func extractIdentifier(uri string) string {
	const prefix = uriScheme + "notes/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	identifier, err := url.PathUnescape(strings.TrimPrefix(uri, prefix))
	if err != nil {
		return ""
	}
	return identifier
}
