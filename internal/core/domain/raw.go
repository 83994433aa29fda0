package domain

import "time"

// RawResource represents opaque bytes read by a connector.
// It is the connector's output before normalisation.
type RawResource struct {
	// URI is the file location.
	URI URI

	// Content is the raw bytes. Empty for deletions.
	Content []byte

	// ModTime is the last modification time reported by the source.
	ModTime time.Time
}

// ChangeType represents the type of resource change.
type ChangeType int

const (
	// ChangeCreated indicates a new resource.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates a modified resource.
	ChangeUpdated

	// ChangeDeleted indicates a removed resource.
	ChangeDeleted
)

// String returns the string representation.
func (c ChangeType) String() string {
	switch c {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// RawResourceChange represents a change event from a connector.
// Used for watch operations.
type RawResourceChange struct {
	// Type is the kind of change.
	Type ChangeType

	// Resource is the affected resource. Content is empty for deletions.
	Resource RawResource
}
