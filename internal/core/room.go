package core

type subscription struct {
	id     int64
	client *Client
	room   string
	path   []string // relative to the room
	kind   SubscriptionKind
}

// Room is the live document of one room key plus its watchers.
type Room struct {
	Key   string
	data  *Tree
	subs  map[*subscription]struct{}
	dirty bool
}

// NewRoom constructs an empty room.
func NewRoom(key string) *Room {
	return &Room{
		Key:  key,
		data: NewTree(),
		subs: make(map[*subscription]struct{}),
	}
}

// Get returns the value under a room relative path.
func (r *Room) Get(path []string) any {
	return r.data.Get(path)
}

// Language returns the room language, or "" when unset or not a string.
func (r *Room) Language() string {
	s, _ := r.data.Get([]string{"language"}).(string)
	return s
}

// Code returns the room buffer, or "" when unset or not a string.
func (r *Room) Code() string {
	s, _ := r.data.Get([]string{"code"}).(string)
	return s
}

func (r *Room) addSub(s *subscription) {
	r.subs[s] = struct{}{}
}

func (r *Room) removeSub(s *subscription) {
	delete(r.subs, s)
}

// watchers returns the subscriptions whose value a write at path can affect.
func (r *Room) watchers(path []string) []*subscription {
	var out []*subscription
	for s := range r.subs {
		if Related(s.path, path) {
			out = append(out, s)
		}
	}
	return out
}

// holdsTransient reports whether the room has data the store does not keep,
// such as presence entries.
func (r *Room) holdsTransient() bool {
	root := r.data.root
	if root == nil {
		return false
	}
	if root.children == nil {
		return true
	}
	for k := range root.children {
		if !persisted([]string{k}) {
			return true
		}
	}
	return false
}

// persisted reports whether a write at path touches durable fields.
func persisted(path []string) bool {
	return len(path) == 0 || path[0] == "language" || path[0] == "code"
}
