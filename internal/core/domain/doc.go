// Package domain defines the core business entities for refindex.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - URI: An immutable resource locator with path algebra
//   - Resource: A note, attachment or placeholder addressed by URI
//   - ResourceEvent: A change published by the workspace
//   - EmbeddingEntry: A checksum-gated embedding cache record
//   - Settings: Typed application configuration
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
