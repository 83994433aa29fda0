package mcp

import (
	"github.com/custodia-labs/refindex/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server calls.
type Ports struct {
	// Resources answers identifier and lookup questions.
	Resources driving.ResourceService

	// Similarity ranks related notes. Optional: without it the similar
	// tool reports that embeddings are unavailable.
	Similarity driving.SimilarityService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Resources == nil {
		return ErrMissingResourceService
	}
	return nil
}
