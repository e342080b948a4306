package catalog

import (
	"sync"

	"submission-app/internal/metadata"
)

// Selection tracks, per cascade, which parent is currently selected and the
// dependent list last delivered for it. Responses are keyed by the parent id
// they were requested for, so a slow response for an abandoned parent can
// never overwrite the list of the parent now selected.
type Selection struct {
	mu      sync.Mutex
	current map[Cascade]uint
	lists   map[Cascade][]metadata.Entry
}

func NewSelection() *Selection {
	return &Selection{
		current: make(map[Cascade]uint),
		lists:   make(map[Cascade][]metadata.Entry),
	}
}

// Select records parentID as the active parent of the cascade and clears the
// displayed list until a matching response is delivered.
func (s *Selection) Select(cascade Cascade, parentID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[cascade] == parentID {
		return
	}
	s.current[cascade] = parentID
	delete(s.lists, cascade)
}

// Deliver applies a fetched dependent list if parentID is still the active
// parent. Stale deliveries are discarded and reported as false.
func (s *Selection) Deliver(cascade Cascade, parentID uint, entries []metadata.Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[cascade] != parentID {
		return false
	}
	s.lists[cascade] = entries
	return true
}

// List returns the dependent list currently displayed for the cascade.
func (s *Selection) List(cascade Cascade) []metadata.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lists[cascade]
}

// Current returns the active parent of the cascade.
func (s *Selection) Current(cascade Cascade) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[cascade]
}
