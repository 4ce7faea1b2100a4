// Package tally is the live species-count store for a counting walk.
//
// The store holds the species collection in insertion order: the thirteen
// built-in species first, then any observer-added species. Built-ins can
// never be deleted, only counted; custom species may come and go. Every
// mutation persists the full snapshot through the storage adapter, so an
// interrupted walk never loses counts, and then notifies subscribers.
//
// Counts never go below zero; decrementing a zero counter is a no-op.
package tally

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/storage"
)

// Key is the storage key for the live tally snapshot.
const Key = "species"

// Store is the mutable species-to-count collection.
type Store struct {
	mu      sync.Mutex
	kv      storage.KV
	entries []model.SpeciesEntry
	subs    []func([]model.SpeciesEntry)
}

// Open loads the tally from storage. Stored counts and custom species are
// merged over the built-in table, so a new built-in species appearing in a
// later release shows up even for observers with old data.
func Open(kv storage.KV) (*Store, error) {
	s := &Store{kv: kv, entries: model.BuiltinSpecies()}

	raw, ok, err := kv.Get(Key)
	if err != nil {
		return nil, fmt.Errorf("load tally: %w", err)
	}
	if !ok {
		return s, nil
	}

	var saved []model.SpeciesEntry
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, fmt.Errorf("load tally: %w", err)
	}
	for _, sv := range saved {
		if i := s.indexOf(sv.ID); i >= 0 {
			s.entries[i].Count = sv.Count
		} else {
			s.entries = append(s.entries, sv)
		}
	}
	return s, nil
}

// Subscribe registers fn for every mutation. fn receives a deep copy.
func (s *Store) Subscribe(fn func([]model.SpeciesEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// All returns a deep copy of the collection in insertion order.
func (s *Store) All() []model.SpeciesEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.CloneSpecies(s.entries)
}

// Snapshot is All under the name sessions use for their deep copies.
func (s *Store) Snapshot() []model.SpeciesEntry { return s.All() }

// Get returns the entry with the given id.
func (s *Store) Get(id int) (model.SpeciesEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.entries[i], true
	}
	return model.SpeciesEntry{}, false
}

// Increment adds one to the count for id and returns the new count.
// Unknown ids return 0 without mutating anything.
func (s *Store) Increment(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	s.entries[i].Count++
	if err := s.persistLocked(); err != nil {
		return s.entries[i].Count, err
	}
	s.notifyLocked()
	return s.entries[i].Count, nil
}

// Decrement subtracts one from the count for id, flooring at zero, and
// returns the new count.
func (s *Store) Decrement(id int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return 0, nil
	}
	if s.entries[i].Count == 0 {
		return 0, nil
	}
	s.entries[i].Count--
	if err := s.persistLocked(); err != nil {
		return s.entries[i].Count, err
	}
	s.notifyLocked()
	return s.entries[i].Count, nil
}

// Add appends a new custom species with a zero count. The name is trimmed;
// a blank name is rejected with ok == false and no mutation. The new ID
// continues after the highest existing one.
func (s *Store) Add(name string) (model.SpeciesEntry, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.SpeciesEntry{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	maxID := 0
	for _, e := range s.entries {
		if e.ID > maxID {
			maxID = e.ID
		}
	}
	entry := model.SpeciesEntry{ID: maxID + 1, Name: name}
	s.entries = append(s.entries, entry)
	if err := s.persistLocked(); err != nil {
		return entry, true, err
	}
	s.notifyLocked()
	return entry, true, nil
}

// Delete removes a custom species and returns the removed entry. Built-in
// and unknown ids are rejected with ok == false and no mutation.
func (s *Store) Delete(id int) (model.SpeciesEntry, bool, error) {
	if model.IsBuiltinSpecies(id) {
		return model.SpeciesEntry{}, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.SpeciesEntry{}, false, nil
	}
	removed := s.entries[i]
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	if err := s.persistLocked(); err != nil {
		return removed, true, err
	}
	s.notifyLocked()
	return removed, true, nil
}

// ResetCounts zeroes every count, keeping the species list intact.
func (s *Store) ResetCounts() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entries {
		s.entries[i].Count = 0
	}
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// Replace swaps in a stored species collection verbatim, replacing rather
// than merging. Used when a saved session is reopened for editing.
func (s *Store) Replace(entries []model.SpeciesEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = model.CloneSpecies(entries)
	if err := s.persistLocked(); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// Total sums all counts.
func (s *Store) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return model.TotalCount(s.entries)
}

func (s *Store) indexOf(id int) int {
	for i, e := range s.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistLocked() error {
	raw, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("%w: encode tally: %v", storage.ErrStorageFailure, err)
	}
	return s.kv.Set(Key, string(raw))
}

func (s *Store) notifyLocked() {
	snapshot := model.CloneSpecies(s.entries)
	for _, fn := range s.subs {
		fn(snapshot)
	}
}
