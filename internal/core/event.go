package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventAck completes a command. Value carries the result of a get,
	// SubID the id assigned by a subscribe.
	EventAck EventKind = iota
	// EventValue carries the full value at a value subscription's path.
	EventValue
	// EventChildAdded notifies a child subscription about a new child.
	EventChildAdded
	// EventChildChanged notifies a child subscription about a modified child.
	EventChildChanged
	// EventChildRemoved notifies a child subscription about a deleted child.
	EventChildRemoved
	// EventError is the last event of a client the hub drops.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind  EventKind
	ID    int64 // command id, for EventAck
	SubID int64
	Path  string
	Key   string // child key, for child events
	Value any
	Error *CoreError
}

func childEventKind(k ChildKind) EventKind {
	switch k {
	case ChildAdded:
		return EventChildAdded
	case ChildChanged:
		return EventChildChanged
	default:
		return EventChildRemoved
	}
}
