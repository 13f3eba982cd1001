// Package states holds the latest Home Assistant style state snapshot that
// cards render from.
package states

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sort"
	"sync"

	appLog "tripcard/internal/log"
	"tripcard/internal/model"
)

// ErrUnknownEntity is returned by Lookup when the snapshot has no such entity.
var ErrUnknownEntity = errors.New("unknown entity")

// Snapshot is an immutable view of all entities at one point in time.
type Snapshot map[string]model.TripState

// Get implements card.StateLookup.
func (s Snapshot) Get(entityID string) (model.TripState, bool) {
	st, ok := s[entityID]
	return st, ok
}

// Store keeps the current snapshot and notifies subscribers on change.
type Store struct {
	path string

	mu       sync.RWMutex
	snapshot Snapshot
	subs     []func(Snapshot)
}

// NewStore returns an empty store bound to a JSON file. Call Reload to read
// it.
func NewStore(path string) *Store {
	return &Store{path: path, snapshot: Snapshot{}}
}

// Path is the file the store reads from.
func (s *Store) Path() string {
	return s.path
}

// Reload reads the backing file and publishes the result. On error the
// previous snapshot is kept.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read states %s: %w", s.path, err)
	}
	snap, err := Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("decode states %s: %w", s.path, err)
	}
	s.Replace(snap)
	appLog.Debug("states reloaded", "path", s.path, "entities", len(snap))
	return nil
}

// Replace swaps in a new snapshot and notifies subscribers.
func (s *Store) Replace(snap Snapshot) {
	snap = maps.Clone(snap)
	if snap == nil {
		snap = Snapshot{}
	}

	s.mu.Lock()
	s.snapshot = snap
	subs := append([]func(Snapshot){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// Subscribe registers fn to receive every new snapshot. fn is called once
// immediately with the current one.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	snap := s.snapshot
	s.mu.Unlock()
	fn(snap)
}

// Snapshot returns the current snapshot. Callers must not modify it.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Get implements card.StateLookup against the current snapshot.
func (s *Store) Get(entityID string) (model.TripState, bool) {
	return s.Snapshot().Get(entityID)
}

// Lookup is Get with an error for missing entities.
func (s *Store) Lookup(entityID string) (model.TripState, error) {
	st, ok := s.Get(entityID)
	if !ok {
		return model.TripState{}, fmt.Errorf("%w: %s", ErrUnknownEntity, entityID)
	}
	return st, nil
}

// EntityIDs lists the known entities in sorted order.
func (s *Store) EntityIDs() []string {
	snap := s.Snapshot()
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Decode reads either a JSON array of state objects or an object keyed by
// entity id. In the keyed form the key wins over any entity_id inside the
// value. Entries that are not objects are skipped.
func Decode(r io.Reader) (Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}

	snap := Snapshot{}
	switch v := raw.(type) {
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			st := model.DecodeState(obj)
			if st.EntityID == "" {
				continue
			}
			snap[st.EntityID] = st
		}
	case map[string]any:
		for id, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			st := model.DecodeState(obj)
			st.EntityID = id
			snap[id] = st
		}
	default:
		return nil, fmt.Errorf("states: expected array or object, got %T", raw)
	}
	return snap, nil
}
