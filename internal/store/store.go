// Package store keeps the current timeline items in memory.
package store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"timelane/internal/model"
)

// ErrNotFound is returned by Get and Update for an unknown ID.
var ErrNotFound = errors.New("item not found")

// Store is a concurrency-safe, ordered set of events. Every change bumps
// Revision so derived data can be cached against it.
type Store struct {
	mu       sync.RWMutex
	events   []model.Event
	index    map[string]int
	revision uint64
}

func New() *Store {
	return &Store{index: map[string]int{}}
}

// Replace swaps in a freshly loaded event set and reports whether anything
// changed. Input order is kept; it decides lane order for events that start
// on the same day. An identical set leaves the revision alone.
func (s *Store) Replace(events []model.Event) bool {
	events = slices.Clone(events)
	index := make(map[string]int, len(events))
	for i, ev := range events {
		index[ev.ID] = i
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revision > 0 && slices.EqualFunc(s.events, events, sameEvent) {
		return false
	}
	s.events = events
	s.index = index
	s.revision++
	return true
}

func sameEvent(a, b model.Event) bool {
	return a.ID == b.ID && a.Name == b.Name && a.SourceID == b.SourceID &&
		a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

// List returns a copy of all events in insertion order.
func (s *Store) List() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// Snapshot returns a copy of all events together with the revision they
// belong to.
func (s *Store) Snapshot() ([]model.Event, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events), s.revision
}

func (s *Store) Get(id string) (model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.events[i], nil
}

// Update replaces the event with the same ID in place. The event is
// validated first; an invalid event leaves the store untouched. An empty
// SourceID keeps the stored one.
func (s *Store) Update(ev model.Event) (model.Event, error) {
	if err := ev.Validate(); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[ev.ID]
	if !ok {
		return model.Event{}, fmt.Errorf("%w: %q", ErrNotFound, ev.ID)
	}
	if ev.SourceID == "" {
		ev.SourceID = s.events[i].SourceID
	}
	s.events[i] = ev
	s.revision++
	return ev, nil
}

// Revision increases on every Replace that changed the set and on every
// successful Update.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
