// Package driving defines the interfaces the CLI and MCP adapters call into.
// They are the "driving" ports in hexagonal architecture terminology.
//
// Implementations live in internal/core/services.
package driving
