// Package readiness tracks whether the greeter is accepting traffic.
package readiness

import "sync"

// State is a concurrency-safe ready flag with change observers.
// The zero value is not ready.
type State struct {
	mu        sync.RWMutex
	ready     bool
	observers []func(ready bool)
}

// New returns a State that starts not ready.
func New() *State {
	return &State{}
}

// Ready reports the current value.
func (s *State) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// SetReady updates the flag and notifies observers when it changes.
// Observers run synchronously on the caller's goroutine, outside the lock.
func (s *State) SetReady(ready bool) {
	s.mu.Lock()
	if s.ready == ready {
		s.mu.Unlock()
		return
	}
	s.ready = ready
	observers := append([]func(bool){}, s.observers...)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(ready)
	}
}

// OnChange registers fn and immediately calls it with the current value.
func (s *State) OnChange(fn func(ready bool)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	ready := s.ready
	s.mu.Unlock()
	fn(ready)
}
