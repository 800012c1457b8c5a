package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandGet reads the value under a path once.
	CommandGet CommandKind = iota
	// CommandSet replaces the value under a path.
	CommandSet
	// CommandRemove deletes the value under a path.
	CommandRemove
	// CommandSubscribe starts delivering events for a path.
	CommandSubscribe
	// CommandUnsubscribe stops a subscription.
	CommandUnsubscribe
)

// SubscriptionKind selects which events a subscription receives.
type SubscriptionKind int

const (
	// SubscribeValue delivers the full value at the path on every change.
	SubscribeValue SubscriptionKind = iota
	// SubscribeChild delivers added/changed/removed events for immediate children.
	SubscribeChild
)

// Command represents an action requested by a client.
// ID is echoed back in the acknowledgement.
type Command struct {
	Kind  CommandKind
	ID    int64
	Path  string
	Value any
	Sub   SubscriptionKind
	SubID int64 // for CommandUnsubscribe
}
