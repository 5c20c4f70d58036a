package boardstate

import (
	"sync"

	"github.com/angelmondragon/workboard-backend/pkg/board"
)

// Listener is called with the new state after every dispatch.
type Listener func(State)

// Store owns the board state. All changes go through Dispatch.
type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func NewStore(initial State) *Store {
	return &Store{state: initial, listeners: make(map[int]Listener)}
}

// Dispatch applies fn under the store lock and notifies listeners once the
// lock is released.
func (s *Store) Dispatch(fn func(State) State) State {
	s.mu.Lock()
	s.state = fn(s.state)
	next := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// Snapshot returns the current state. Reducers never mutate slices in
// place, so the snapshot stays valid after later dispatches.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener and returns its unsubscribe func.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// ApplyEvent folds a realtime event into the store.
func (s *Store) ApplyEvent(e board.Event) {
	s.Dispatch(func(st State) State { return ApplyEvent(st, e) })
}

// SetConnected records the realtime connection status.
func (s *Store) SetConnected(connected bool) {
	s.Dispatch(func(st State) State { return SetConnected(st, connected) })
}
