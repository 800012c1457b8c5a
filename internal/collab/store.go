package collab

import "context"

// ChildEventKind classifies an event on a child subscription.
type ChildEventKind int

const (
	ChildAdded ChildEventKind = iota
	ChildChanged
	ChildRemoved
)

func (k ChildEventKind) String() string {
	switch k {
	case ChildAdded:
		return "child_added"
	case ChildChanged:
		return "child_changed"
	case ChildRemoved:
		return "child_removed"
	default:
		return "unknown"
	}
}

// ChildEvent reports a change to one immediate child of a watched path.
type ChildEvent struct {
	Kind  ChildEventKind
	Key   string
	Value any
}

// Unsubscribe releases a subscription. Implementations must tolerate
// repeated calls.
type Unsubscribe func()

// Store is the room state store as seen by a client. Values are JSON shaped
// (nil, bool, float64, string, []any, map[string]any).
//
// Callbacks run on the store's delivery goroutine and must not block; for a
// single path they arrive in commit order, starting with the current state
// (a value event, or one child_added per existing child). The writer's own
// subscriptions see its writes like any other; writes that leave a value
// unchanged produce no event.
type Store interface {
	Get(ctx context.Context, path string) (any, error)
	Set(ctx context.Context, path string, value any) error
	Remove(ctx context.Context, path string) error
	OnValue(ctx context.Context, path string, fn func(value any)) (Unsubscribe, error)
	OnChild(ctx context.Context, path string, fn func(ev ChildEvent)) (Unsubscribe, error)
}
