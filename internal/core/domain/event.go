package domain

// EventType identifies what happened to a resource.
type EventType int

const (
	// EventAdded is published when a resource is set at a new URI.
	EventAdded EventType = iota

	// EventUpdated is published when a resource replaces an existing one.
	EventUpdated

	// EventDeleted is published when a resource is removed.
	EventDeleted
)

// String returns the string representation.
func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventUpdated:
		return "updated"
	case EventDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ResourceEvent is a change published by the workspace.
type ResourceEvent struct {
	// Seq increases by one per event. Consumers use it to wait for catch-up.
	Seq uint64

	// Type is the kind of change.
	Type EventType

	// Resource is the new value for added/updated, the removed value for deleted.
	Resource Resource

	// Previous is the replaced value, set only for updated.
	Previous *Resource
}
