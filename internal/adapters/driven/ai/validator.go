package ai

import (
	"fmt"

	"github.com/custodia-labs/refindex/internal/core/domain"
	"github.com/custodia-labs/refindex/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator pings embedding providers before their settings are used.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the configured provider. A disabled provider is
// always valid.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || config.Provider == domain.AIProviderNone {
		return nil
	}
	if err := ValidateEmbeddingConfig(config); err != nil {
		return fmt.Errorf("%s (%s): %w", config.Provider.Description(), config.Model, err)
	}
	return nil
}
