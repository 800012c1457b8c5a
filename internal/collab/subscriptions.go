package collab

import "sync"

// Subscriptions holds the active store subscriptions of one room session and
// releases each exactly once.
type Subscriptions struct {
	mu     sync.Mutex
	unsubs []Unsubscribe
	closed bool
}

// Add registers u. If the registry is already closed, u is released at once.
func (s *Subscriptions) Add(u Unsubscribe) {
	if u == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		u()
		return
	}
	s.unsubs = append(s.unsubs, u)
	s.mu.Unlock()
}

// Len returns the number of live subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsubs)
}

// Close releases every subscription in reverse order. Later calls are no-ops.
func (s *Subscriptions) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for i := len(unsubs) - 1; i >= 0; i-- {
		unsubs[i]()
	}
}
