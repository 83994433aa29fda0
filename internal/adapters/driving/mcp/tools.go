package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/refindex/internal/core/domain"
)

// defaultSimilarLimit caps similar results when the caller gives no limit.
const defaultSimilarLimit = 10

// ResourceOutput describes one workspace resource.
type ResourceOutput struct {
	Path       string `json:"path"`
	URI        string `json:"uri"`
	Kind       string `json:"kind"`
	Title      string `json:"title,omitempty"`
	Identifier string `json:"identifier"`
}

// IdentifierInput is the input schema for the identifier tool.
type IdentifierInput struct {
	Path string `json:"path" jsonschema:"absolute path or identifier of the resource"`
}

// IdentifierOutput is the output schema for the identifier tool.
type IdentifierOutput struct {
	Resource ResourceOutput `json:"resource"`
}

// ResolveInput is the input schema for the resolve tool.
type ResolveInput struct {
	Identifier string `json:"identifier" jsonschema:"identifier to resolve, with or without extension"`
	From       string `json:"from,omitempty" jsonschema:"absolute path of the note containing the reference, for relative links"`
}

// ResolveOutput is the output schema for the resolve tool.
type ResolveOutput struct {
	Matches   []ResourceOutput `json:"matches"`
	Ambiguous bool             `json:"ambiguous"`
	// Target is the resolved link target, or a placeholder URI when nothing matches.
	Target string `json:"target,omitempty"`
}

// SimilarInput is the input schema for the similar tool.
type SimilarInput struct {
	Path  string `json:"path" jsonschema:"absolute path or identifier of the note"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
}

// SimilarOutput is the output schema for the similar tool.
type SimilarOutput struct {
	Results []SimilarResultOutput `json:"results"`
	Count   int                   `json:"count"`
}

// SimilarResultOutput is one related note.
type SimilarResultOutput struct {
	ResourceOutput
	Similarity float64 `json:"similarity"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "identifier",
		Description: "Get the shortest unambiguous identifier for a note or file",
	}, s.handleIdentifier)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve",
		Description: "List the notes and files an identifier may refer to",
	}, s.handleResolve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "similar",
		Description: "Find notes related to a note by embedding similarity",
	}, s.handleSimilar)
}

func (s *Server) handleIdentifier(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input IdentifierInput,
) (*mcp.CallToolResult, IdentifierOutput, error) {
	r, err := s.lookup(input.Path)
	if err != nil {
		return nil, IdentifierOutput{}, err
	}
	return nil, IdentifierOutput{Resource: s.describe(r)}, nil
}

func (s *Server) handleResolve(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResolveInput,
) (*mcp.CallToolResult, ResolveOutput, error) {
	if input.Identifier == "" {
		return nil, ResolveOutput{}, fmt.Errorf("%w: identifier is required", domain.ErrInvalidInput)
	}

	matches := s.ports.Resources.ListByIdentifier(input.Identifier)
	output := ResolveOutput{
		Matches:   make([]ResourceOutput, len(matches)),
		Ambiguous: len(matches) > 1,
	}
	for i := range matches {
		output.Matches[i] = s.describe(matches[i])
	}

	if input.From != "" {
		output.Target = s.ports.Resources.ResolveLink(domain.FileURI(input.From), input.Identifier).String()
	}

	return nil, output, nil
}

func (s *Server) handleSimilar(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SimilarInput,
) (*mcp.CallToolResult, SimilarOutput, error) {
	if s.ports.Similarity == nil {
		return nil, SimilarOutput{}, domain.ErrEmbeddingUnavailable
	}

	r, err := s.lookup(input.Path)
	if err != nil {
		return nil, SimilarOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSimilarLimit
	}

	results, err := s.ports.Similarity.GetSimilar(r.URI, limit)
	if err != nil {
		return nil, SimilarOutput{}, err
	}

	output := SimilarOutput{
		Results: make([]SimilarResultOutput, 0, len(results)),
	}
	for _, res := range results {
		similar, err := s.ports.Resources.Get(res.URI)
		if err != nil {
			// Deleted between ranking and lookup.
			continue
		}
		output.Results = append(output.Results, SimilarResultOutput{
			ResourceOutput: s.describe(similar),
			Similarity:     res.Similarity,
		})
	}
	output.Count = len(output.Results)

	return nil, output, nil
}

// lookup finds a resource by absolute path or identifier.
func (s *Server) lookup(reference string) (domain.Resource, error) {
	if reference == "" {
		return domain.Resource{}, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	r, ok := s.ports.Resources.Find(reference, domain.URI{})
	if !ok {
		return domain.Resource{}, fmt.Errorf("%w: %s", domain.ErrNotFound, reference)
	}
	return r, nil
}

func (s *Server) describe(r domain.Resource) ResourceOutput {
	return ResourceOutput{
		Path:       r.URI.FsPath(),
		URI:        r.URI.String(),
		Kind:       r.Kind.String(),
		Title:      r.Title,
		Identifier: s.ports.Resources.GetIdentifier(r.URI),
	}
}
