// Package observe provides the subscribe/notify list shared by the stores.
package observe

import "sync"

// Subscribers is a set of callbacks receiving values of T.
type Subscribers[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(T)

	pubMu     sync.Mutex
	published uint64
}

// Add registers fn and returns a func that removes it.
func (s *Subscribers[T]) Add(fn func(T)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(T))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

// Publish calls every subscriber with v. It must not be called with store locks held.
func (s *Subscribers[T]) Publish(v T) {
	for _, fn := range s.snapshot() {
		fn(v)
	}
}

// PublishAt publishes v, taken at version, unless a later version was already
// published. Deliveries are serialized, so subscribers see versions in increasing
// order. A subscriber must not synchronously trigger another PublishAt on the same list.
func (s *Subscribers[T]) PublishAt(version uint64, v T) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if version <= s.published {
		return
	}
	s.published = version
	for _, fn := range s.snapshot() {
		fn(v)
	}
}

func (s *Subscribers[T]) snapshot() []func(T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	return fns
}

// Len returns the number of subscribers.
func (s *Subscribers[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}
