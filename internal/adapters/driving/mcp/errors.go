// Package mcp provides an MCP (Model Context Protocol) server adapter for refindex.
// It lets AI assistants resolve note identifiers and find related notes.
package mcp

import "errors"

// ErrMissingResourceService is returned when the resource service is not provided.
var ErrMissingResourceService = errors.New("mcp: resource service is required")
