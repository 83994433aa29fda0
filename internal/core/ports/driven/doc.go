// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Connector: Walks and watches a resource tree
//   - Normaliser: Transforms raw bytes into a resource
//   - NormaliserRegistry: Selects the appropriate normaliser
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, similarity queries return nothing.
//   - EmbeddingCache: Persists embeddings between runs. Without it, every start re-embeds.
//   - AIConfigValidator: Checks provider connectivity before it is saved.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or normaliser package
package driven
