package models

// Origin tells observers where a store change came from.
type Origin string

const (
	// OriginLocal is a user edit made through the mutation API.
	OriginLocal Origin = "local"
	// OriginRemote is a pull, realtime event or push acknowledgement.
	OriginRemote Origin = "remote"
	// OriginBootstrap is the snapshot loaded at startup.
	OriginBootstrap Origin = "bootstrap"
)

// Change describes one committed store write. After is nil when the key was
// removed; Before is nil when the key did not exist.
type Change struct {
	ID     string
	Before *Todo
	After  *Todo
	Origin Origin
}

// Removed reports whether the change deleted the key.
func (c Change) Removed() bool { return c.After == nil }

// EventKind mirrors the change feed event types.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// RemoteEvent is a realtime change received from the remote data service.
// Todo is nil for EventDelete.
type RemoteEvent struct {
	Kind         EventKind
	ID           string
	Todo         *Todo
	SourceDevice string
}
