// Package app holds the state of an interactive conflict-resolution session
// and the events the GUI listens to.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"sparkscan/internal/library"
	"sparkscan/internal/logging"
	"sparkscan/internal/record"
	"sparkscan/internal/spark"
)

// State holds the loaded library and the conflicts still waiting for a
// decision.
type State struct {
	mu sync.RWMutex

	store    library.Store
	snapshot library.Snapshot
	Naming   spark.Naming
	Modified bool

	log *logging.Logger
	now func() time.Time

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventLibraryLoaded EventType = iota
	EventConflictResolved
	EventLibrarySaved
	EventModified
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates a session over store.
func NewState(store library.Store, naming spark.Naming, log *logging.Logger) *State {
	return &State{
		store:     store,
		Naming:    naming,
		log:       logging.OrNop(log),
		now:       time.Now,
		listeners: make(map[EventType][]EventListener),
	}
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the session as having unsaved resolutions and emits an
// event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// Load reads the library from the store, discarding unsaved resolutions.
func (s *State) Load(ctx context.Context) error {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load library: %w", err)
	}
	s.mu.Lock()
	s.snapshot = snap
	s.Modified = false
	s.mu.Unlock()

	s.log.Info("library loaded", "records", len(snap.Records), "pending", len(snap.Pending))
	s.Emit(EventLibraryLoaded, len(snap.Pending))
	return nil
}

// Pending returns the conflicts still waiting, in detection order.
func (s *State) Pending() []library.Conflict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]library.Conflict(nil), s.snapshot.Pending...)
}

// Records returns the stored records ordered by entry id.
func (s *State) Records() []record.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]record.Record(nil), s.snapshot.Records...)
}

// Resolve applies choices to the conflict for hash in memory.
func (s *State) Resolve(hash string, choices library.Choices) (record.Record, error) {
	s.mu.Lock()
	snap, merged, err := library.Resolve(s.snapshot, hash, choices, s.now())
	if err != nil {
		s.mu.Unlock()
		return record.Record{}, err
	}
	s.snapshot = snap
	s.mu.Unlock()

	s.log.Info("conflict resolved", "hash", hash, "name", merged.Name, "entry_id", merged.EntryID)
	s.SetModified(true)
	s.Emit(EventConflictResolved, merged)
	return merged, nil
}

// Save writes the session's library back to the store.
func (s *State) Save(ctx context.Context) error {
	s.mu.RLock()
	snap := s.snapshot
	s.mu.RUnlock()

	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	s.SetModified(false)
	s.Emit(EventLibrarySaved, nil)
	return nil
}
