// Package memory is an in-process room state store with the same tree
// semantics as the server. It backs tests and offline sessions.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/vovakirdan/codeshare-server/internal/collab"
	"github.com/vovakirdan/codeshare-server/internal/core"
)

var ErrEmptyPath = errors.New("empty path")

type watcher struct {
	path    []string
	onValue func(any)
	onChild func(collab.ChildEvent)
}

// Write is one recorded Set or Remove. Value is nil for removals.
type Write struct {
	Path  string
	Value any
}

// Store implements collab.Store. Callbacks run synchronously on the writer's
// goroutine, after the write is applied and in commit order; they must not
// call back into the store.
type Store struct {
	mu       sync.Mutex
	tree     *core.Tree
	watchers map[int]*watcher
	nextID   int
	writes   []Write

	// deliver is taken before mu is released so notifications of
	// consecutive writes never interleave.
	deliver sync.Mutex

	fail error
}

var _ collab.Store = (*Store)(nil)

func New() *Store {
	return &Store{tree: core.NewTree(), watchers: make(map[int]*watcher)}
}

func (s *Store) Get(_ context.Context, path string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	return s.tree.Get(core.SplitPath(path)), nil
}

func (s *Store) Set(_ context.Context, path string, value any) error {
	v, err := core.Normalize(value)
	if err != nil {
		return err
	}
	return s.write(path, v)
}

func (s *Store) Remove(_ context.Context, path string) error {
	return s.write(path, nil)
}

// SetFail makes every later call return err. A nil err restores service.
func (s *Store) SetFail(err error) {
	s.mu.Lock()
	s.fail = err
	s.mu.Unlock()
}

// Writes returns every write applied so far, in order.
func (s *Store) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

// WritesTo returns the writes made exactly at path.
func (s *Store) WritesTo(path string) []Write {
	want := core.JoinPath(core.SplitPath(path)...)
	var out []Write
	for _, w := range s.Writes() {
		if w.Path == want {
			out = append(out, w)
		}
	}
	return out
}

func (s *Store) write(path string, value any) error {
	parts := core.SplitPath(path)
	if len(parts) == 0 {
		return ErrEmptyPath
	}

	s.mu.Lock()
	if s.fail != nil {
		s.mu.Unlock()
		return s.fail
	}

	var affected []*watcher
	var before []any
	for _, w := range s.watchers {
		if core.Related(w.path, parts) {
			affected = append(affected, w)
			before = append(before, s.tree.Get(w.path))
		}
	}
	s.tree.Set(parts, value)
	s.writes = append(s.writes, Write{Path: core.JoinPath(parts...), Value: value})

	var notes []func()
	for i, w := range affected {
		after := s.tree.Get(w.path)
		notes = append(notes, changes(w, before[i], after)...)
	}

	s.deliver.Lock()
	s.mu.Unlock()
	for _, fn := range notes {
		fn()
	}
	s.deliver.Unlock()
	return nil
}

func changes(w *watcher, before, after any) []func() {
	if w.onValue != nil {
		if core.Equal(before, after) {
			return nil
		}
		fn := w.onValue
		return []func(){func() { fn(after) }}
	}
	var out []func()
	for _, ch := range core.DiffChildren(before, after) {
		ev := collab.ChildEvent{Kind: childKind(ch.Kind), Key: ch.Key, Value: ch.Value}
		fn := w.onChild
		out = append(out, func() { fn(ev) })
	}
	return out
}

func childKind(k core.ChildKind) collab.ChildEventKind {
	switch k {
	case core.ChildRemoved:
		return collab.ChildRemoved
	case core.ChildChanged:
		return collab.ChildChanged
	default:
		return collab.ChildAdded
	}
}

func (s *Store) OnValue(_ context.Context, path string, fn func(any)) (collab.Unsubscribe, error) {
	return s.subscribe(&watcher{path: core.SplitPath(path), onValue: fn})
}

func (s *Store) OnChild(_ context.Context, path string, fn func(collab.ChildEvent)) (collab.Unsubscribe, error) {
	return s.subscribe(&watcher{path: core.SplitPath(path), onChild: fn})
}

func (s *Store) subscribe(w *watcher) (collab.Unsubscribe, error) {
	s.mu.Lock()
	if s.fail != nil {
		s.mu.Unlock()
		return nil, s.fail
	}
	s.nextID++
	id := s.nextID
	s.watchers[id] = w
	notes := changes(w, nil, s.tree.Get(w.path))
	if w.onValue != nil && len(notes) == 0 {
		// Value subscriptions always start with the current state.
		fn := w.onValue
		notes = []func(){func() { fn(nil) }}
	}
	s.deliver.Lock()
	s.mu.Unlock()
	for _, fn := range notes {
		fn()
	}
	s.deliver.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}, nil
}

// Subscribers returns the number of live subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}
