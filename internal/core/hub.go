package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/keygen"
	"github.com/vovakirdan/codeshare-server/internal/store"
)

// DefaultFlushInterval is how often dirty rooms are written to the RoomStore.
const DefaultFlushInterval = 2 * time.Second

type inbound struct {
	client *Client
	cmd    *Command
}

// Hub owns every room document and serializes all reads and writes.
// Because a single goroutine applies commands, updates to one key reach
// subscribers in commit order and a client always reads its own writes.
type Hub struct {
	clients    map[*Client]struct{}
	rooms      map[string]*Room
	register   chan *Client
	unregister chan *Client
	commands   chan inbound
	queries    chan func()
	done       chan struct{}

	store         store.RoomStore
	log           *zerolog.Logger
	flushInterval time.Duration
}

// NewHub creates a hub. st and logger may be nil.
func NewHub(st store.RoomStore, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		clients:       make(map[*Client]struct{}),
		rooms:         make(map[string]*Room),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		commands:      make(chan inbound, commandBuffer),
		queries:       make(chan func()),
		done:          make(chan struct{}),
		store:         st,
		log:           logger,
		flushInterval: DefaultFlushInterval,
	}
}

// SetFlushInterval changes the persistence period. Call before Run.
func (h *Hub) SetFlushInterval(d time.Duration) {
	if d > 0 {
		h.flushInterval = d
	}
}

// RegisterClient attaches a client. Its commands are processed until it is
// unregistered or the hub stops.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient detaches a client and drops its subscriptions.
// Presence entries the client wrote are left untouched.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Run processes commands until ctx is cancelled, then flushes dirty rooms.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.flushInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			// Flush with a fresh context; ctx is already cancelled.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			h.flush(flushCtx)
			cancel()
			for c := range h.clients {
				h.dropClient(c)
			}
			return
		case c := <-h.register:
			h.addClient(ctx, c)
		case c := <-h.unregister:
			h.dropClient(c)
		case in := <-h.commands:
			if _, ok := h.clients[in.client]; ok {
				h.handle(ctx, in.client, in.cmd)
			}
		case fn := <-h.queries:
			fn()
		case <-ticker.C:
			h.flush(ctx)
		}
	}
}

// Snapshot returns the current value under path. Rooms that are not live are
// read from the store without being kept.
func (h *Hub) Snapshot(ctx context.Context, path string) (any, error) {
	parts := SplitPath(path)
	if len(parts) == 0 || !keygen.Valid(parts[0]) {
		return nil, ErrBadPath
	}

	result := make(chan any, 1)
	fn := func() {
		result <- h.peek(ctx, parts[0]).Get(parts[1:])
	}

	select {
	case h.queries <- fn:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) addClient(ctx context.Context, c *Client) {
	h.clients[c] = struct{}{}
	h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client registered")

	go func() {
		for {
			select {
			case cmd := <-c.Commands:
				if cmd == nil {
					continue
				}
				select {
				case h.commands <- inbound{client: c, cmd: cmd}:
				case <-c.done:
					return
				case <-ctx.Done():
					return
				}
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (h *Hub) dropClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for _, s := range c.subs {
		if room, ok := h.rooms[s.room]; ok {
			room.removeSub(s)
			h.release(room)
		}
	}
	c.subs = nil
	delete(h.clients, c)
	close(c.done)
	close(c.Events)
	h.log.Debug().Str("client_id", c.ID).Int("clients", len(h.clients)).Msg("client unregistered")
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Kind == CommandUnsubscribe {
		h.unsubscribe(c, cmd)
		return
	}

	parts := SplitPath(cmd.Path)
	if len(parts) == 0 || !keygen.Valid(parts[0]) {
		h.send(c, &Event{Kind: EventAck, ID: cmd.ID, Error: coreError(ErrCodeBadPath, "path must start with a valid room key")})
		return
	}
	rel := parts[1:]
	if cmd.Kind == CommandGet {
		h.send(c, &Event{Kind: EventAck, ID: cmd.ID, Path: JoinPath(parts...), Value: h.peek(ctx, parts[0]).Get(rel)})
		return
	}
	room := h.room(ctx, parts[0])

	switch cmd.Kind {
	case CommandSet, CommandRemove:
		var value any
		if cmd.Kind == CommandSet {
			v, err := Normalize(cmd.Value)
			if err != nil {
				h.send(c, &Event{Kind: EventAck, ID: cmd.ID, Error: coreError(ErrCodeBadRequest, err.Error())})
				return
			}
			value = v
		}
		h.write(room, rel, value)
		h.send(c, &Event{Kind: EventAck, ID: cmd.ID, Path: JoinPath(parts...)})
		h.release(room)
	case CommandSubscribe:
		h.subscribe(c, cmd, room, rel)
	default:
		h.send(c, &Event{Kind: EventAck, ID: cmd.ID, Error: coreError(ErrCodeBadRequest, "unknown command")})
	}
}

// write applies a change and notifies every affected subscription, the
// writer's own included.
func (h *Hub) write(room *Room, path []string, value any) {
	watchers := room.watchers(path)
	before := make([]any, len(watchers))
	for i, s := range watchers {
		before[i] = room.Get(s.path)
	}

	room.data.Set(path, value)
	if persisted(path) {
		room.dirty = true
	}

	for i, s := range watchers {
		after := room.Get(s.path)
		fullPath := JoinPath(append([]string{room.Key}, s.path...)...)
		switch s.kind {
		case SubscribeValue:
			if !Equal(before[i], after) {
				h.send(s.client, &Event{Kind: EventValue, SubID: s.id, Path: fullPath, Value: after})
			}
		case SubscribeChild:
			for _, ch := range DiffChildren(before[i], after) {
				h.send(s.client, &Event{
					Kind:  childEventKind(ch.Kind),
					SubID: s.id,
					Path:  fullPath,
					Key:   ch.Key,
					Value: ch.Value,
				})
			}
		}
	}
}

func (h *Hub) subscribe(c *Client, cmd *Command, room *Room, path []string) {
	c.nextID++
	s := &subscription{id: c.nextID, client: c, room: room.Key, path: path, kind: cmd.Sub}
	c.subs[s.id] = s
	room.addSub(s)

	h.send(c, &Event{Kind: EventAck, ID: cmd.ID, SubID: s.id})

	fullPath := JoinPath(append([]string{room.Key}, path...)...)
	current := room.Get(path)
	switch s.kind {
	case SubscribeValue:
		h.send(c, &Event{Kind: EventValue, SubID: s.id, Path: fullPath, Value: current})
	case SubscribeChild:
		for _, ch := range AddedChildren(current) {
			h.send(c, &Event{Kind: EventChildAdded, SubID: s.id, Path: fullPath, Key: ch.Key, Value: ch.Value})
		}
	}
}

func (h *Hub) unsubscribe(c *Client, cmd *Command) {
	s, ok := c.subs[cmd.SubID]
	if !ok {
		h.send(c, &Event{Kind: EventAck, ID: cmd.ID, Error: coreError(ErrCodeUnknownSub, ErrUnknownSub.Error())})
		return
	}
	delete(c.subs, s.id)
	if room, ok := h.rooms[s.room]; ok {
		room.removeSub(s)
		h.release(room)
	}
	h.send(c, &Event{Kind: EventAck, ID: cmd.ID, SubID: s.id})
}

// send delivers without blocking the hub. A client that cannot keep up is
// told so and dropped: skipping events would leave it silently out of sync.
// The hub is the only sender, so the slot kept free past eventBuffer always
// has room for that last error.
func (h *Hub) send(c *Client, ev *Event) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	if len(c.Events) < eventBuffer {
		c.Events <- ev
		return
	}
	h.log.Warn().Str("client_id", c.ID).Msg("event queue full, dropping client")
	c.Events <- &Event{Kind: EventError, Error: coreError(ErrCodeSlowConsumer, "client fell behind, reconnect to resync")}
	h.dropClient(c)
}

// room returns the live room, loading persisted fields on first use.
func (h *Hub) room(ctx context.Context, key string) *Room {
	if r, ok := h.rooms[key]; ok {
		return r
	}
	r := h.load(ctx, key)
	h.rooms[key] = r
	return r
}

// peek returns the live room or, for reads, a detached copy of the persisted
// one. Unknown keys read as an empty room and leave nothing behind.
func (h *Hub) peek(ctx context.Context, key string) *Room {
	if r, ok := h.rooms[key]; ok {
		return r
	}
	return h.load(ctx, key)
}

// release forgets a room nobody watches once everything it holds is in the
// store; the next use reloads it.
func (h *Hub) release(r *Room) {
	if len(r.subs) > 0 || r.dirty || r.holdsTransient() {
		return
	}
	delete(h.rooms, r.Key)
	h.log.Debug().Str("room", r.Key).Int("rooms", len(h.rooms)).Msg("room released")
}

func (h *Hub) load(ctx context.Context, key string) *Room {
	r := NewRoom(key)
	if h.store == nil {
		return r
	}
	rec, err := h.store.GetRoom(ctx, key)
	switch {
	case err == nil:
		if rec.Language != "" {
			r.data.Set([]string{"language"}, rec.Language)
		}
		if rec.Code != "" {
			r.data.Set([]string{"code"}, rec.Code)
		}
		h.log.Debug().Str("room", key).Msg("room loaded")
	case errors.Is(err, store.ErrNotFound):
	default:
		h.log.Warn().Err(err).Str("room", key).Msg("failed to load room")
	}
	return r
}

func (h *Hub) flush(ctx context.Context) {
	if h.store == nil {
		return
	}
	for key, r := range h.rooms {
		if !r.dirty {
			continue
		}
		err := h.store.SaveRoom(ctx, &store.Room{
			Key:      key,
			Language: r.Language(),
			Code:     r.Code(),
		})
		if err != nil {
			// Stay dirty; the next tick retries with the latest content.
			h.log.Warn().Err(err).Str("room", key).Msg("failed to persist room")
			continue
		}
		r.dirty = false
		h.release(r)
	}
}
