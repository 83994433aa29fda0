// Package services implements the driving ports.
//
//   - Workspace: the resource set, identifiers and link resolution
//   - SimilarityIndex: checksum-gated embeddings and cosine ranking
//   - IngestService: feeds a connector's tree into the workspace
//   - SettingsService: typed settings over a ConfigStore
//
// Workspace and SimilarityIndex are safe for concurrent use. A
// SimilarityIndex belongs to exactly one Workspace.
package services
