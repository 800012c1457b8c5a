package collab

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/codeshare-server/internal/identity"
	"github.com/vovakirdan/codeshare-server/internal/keygen"
)

// Session is one client's presence in one room. It wires DocSync, Presence
// and Overlay to the store and runs them on a single event loop: store
// callbacks and editor events are queued and handled one at a time, in
// arrival order.
//
// The queue is unbounded so store callbacks never block the store's
// delivery goroutine, even while the loop is waiting on a write.
type Session struct {
	key      string
	store    Store
	log      *zerolog.Logger
	doc      *DocSync
	presence *Presence
	overlay  *Overlay
	subs     Subscriptions

	mu      sync.Mutex
	queue   []func(context.Context)
	stopped bool
	notify  chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open joins room key as id and starts syncing ed. surface may be nil.
//
// Open writes the local presence entry, subscribes to the users map, reads
// language and code once, then subscribes to both. Store read and write
// failures are logged and the session carries on with defaults; a failed
// subscription closes the session and is returned.
func Open(ctx context.Context, st Store, key string, id identity.LocalIdentity, ed Editor, surface Surface, logger *zerolog.Logger) (*Session, error) {
	if !keygen.Valid(key) {
		return nil, fmt.Errorf("%w: %q", ErrBadKey, key)
	}
	if !id.Complete() {
		return nil, identity.ErrIncomplete
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("room", key).Str("user", id.UserCode).Logger()

	overlay := NewOverlay(surface)
	loopCtx, cancel := context.WithCancel(context.Background())
	s := &Session{
		key:      key,
		store:    st,
		log:      &l,
		doc:      NewDocSync(st, key, ed, &l),
		presence: NewPresence(st, key, id, overlay, &l),
		overlay:  overlay,
		notify:   make(chan struct{}, 1),
		ctx:      loopCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.run()

	if err := s.call(ctx, s.start); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Session) start(ctx context.Context) error {
	_ = s.presence.Join(ctx)

	unsub, err := s.store.OnChild(ctx, roomPath(s.key, "users"), func(ev ChildEvent) {
		s.post(func(context.Context) { s.presence.HandleChild(ev) })
	})
	if err != nil {
		return fmt.Errorf("subscribe users: %w", err)
	}
	s.subs.Add(unsub)

	_ = s.doc.Init(ctx)

	unsub, err = s.store.OnValue(ctx, roomPath(s.key, "language"), func(v any) {
		s.post(func(context.Context) { s.doc.ApplyRemoteLanguage(v) })
	})
	if err != nil {
		return fmt.Errorf("subscribe language: %w", err)
	}
	s.subs.Add(unsub)

	unsub, err = s.store.OnValue(ctx, roomPath(s.key, "code"), func(v any) {
		s.post(func(context.Context) { s.doc.ApplyRemoteCode(v) })
	})
	if err != nil {
		return fmt.Errorf("subscribe code: %w", err)
	}
	s.subs.Add(unsub)

	s.log.Debug().Int("subscriptions", s.subs.Len()).Msg("session started")
	return nil
}

func (s *Session) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		s.mu.Unlock()

		for _, fn := range batch {
			if s.ctx.Err() != nil {
				return
			}
			fn(s.ctx)
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-s.notify:
		case <-s.ctx.Done():
			return
		}
	}
}

// post queues fn on the loop. It reports false once the session is closed.
func (s *Session) post(fn func(context.Context)) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, fn)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
	return true
}

// call runs fn on the loop and waits for its result.
func (s *Session) call(ctx context.Context, fn func(context.Context) error) error {
	res := make(chan error, 1)
	if !s.post(func(loopCtx context.Context) { res <- fn(loopCtx) }) {
		return ErrClosed
	}
	select {
	case err := <-res:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		select {
		case err := <-res:
			return err
		default:
			return ErrClosed
		}
	}
}

// Key returns the room key.
func (s *Session) Key() string { return s.key }

// LocalChange reports that the editor content changed.
func (s *Session) LocalChange() {
	s.post(func(ctx context.Context) { _, _ = s.doc.PushCodeIfChanged(ctx) })
}

// SetCursor reports a local cursor move.
func (s *Session) SetCursor(pos Position) {
	s.post(func(ctx context.Context) { _, _ = s.presence.SetLocalCursor(ctx, pos) })
}

// SetSelection reports a local selection change.
func (s *Session) SetSelection(sel Selection) {
	s.post(func(ctx context.Context) { _, _ = s.presence.SetLocalSelection(ctx, sel) })
}

// SetLanguage switches the room language and waits for the write.
func (s *Session) SetLanguage(ctx context.Context, lang string) error {
	return s.call(ctx, func(loopCtx context.Context) error {
		_, err := s.doc.SetLanguage(loopCtx, lang)
		return err
	})
}

// Rename changes the local display name.
func (s *Session) Rename(ctx context.Context, name string) error {
	return s.call(ctx, func(loopCtx context.Context) error {
		_, err := s.presence.RenameLocal(loopCtx, name)
		return err
	})
}

// Recolor changes the local color.
func (s *Session) Recolor(ctx context.Context, color string) error {
	return s.call(ctx, func(loopCtx context.Context) error {
		_, err := s.presence.RecolorLocal(loopCtx, color)
		return err
	})
}

// Sync waits until everything queued before it has been handled.
func (s *Session) Sync(ctx context.Context) error {
	return s.call(ctx, func(context.Context) error { return nil })
}

// query runs fn on the loop and hands its result back over a channel, so an
// early return on ctx never shares memory with the loop.
func query[T any](ctx context.Context, s *Session, fn func() T) (T, error) {
	res := make(chan T, 1)
	var zero T
	if !s.post(func(context.Context) { res <- fn() }) {
		return zero, ErrClosed
	}
	select {
	case v := <-res:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-s.done:
		select {
		case v := <-res:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}

// Peers returns the remote peers.
func (s *Session) Peers(ctx context.Context) ([]UserPresence, error) {
	return query(ctx, s, s.presence.Peers)
}

// Language returns the room language as last seen.
func (s *Session) Language(ctx context.Context) (string, error) {
	return query(ctx, s, s.doc.Language)
}

// Styles returns the peer style table.
func (s *Session) Styles(ctx context.Context) ([]Style, error) {
	return query(ctx, s, s.overlay.Styles)
}

// Close releases every subscription, clears the overlay, deletes the local
// presence entry and stops the loop. Only the first call does any work.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.call(ctx, func(context.Context) error {
			s.subs.Close()
			s.overlay.Clear()
			return s.presence.Leave(ctx)
		})
		s.subs.Close()

		s.mu.Lock()
		s.stopped = true
		s.queue = nil
		s.mu.Unlock()
		s.cancel()
		<-s.done
		s.log.Debug().Msg("session closed")
	})
	return s.closeErr
}
