// Package session manages the lifecycle of durable counting sessions.
//
// A session moves through three relationships with the live system:
//
//	none:        nothing being counted.
//	in-progress: created when counting starts; checkpointed into a
//	             dedicated storage slot on every tick and tally change,
//	             so a walk interrupted mid-count is recoverable.
//	editing:     a finalized session reopened for changes. Editing never
//	             touches the in-progress slot; a re-save overwrites the
//	             durable record in place, by id, never duplicating it.
//
// Finalizing moves the in-progress session into the durable list (one
// storage key per session plus an index key) and clears the slot, but
// only after the durable write succeeds. A failed save keeps the slot, so
// no data is ever lost to a rejected write.
//
// At most one session is in progress at a time; creating a new one
// replaces the slot, and an unfinalized predecessor is gone unless the
// caller discarded it deliberately first.
package session

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/distance"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/storage"
)

// Storage keys. Session records themselves live under their own ids
// (session_<unix-ms>), listed by the index key.
const (
	CurrentKey = "current_session"
	IndexKey   = "sessions"
)

// Mode is the manager's relationship to the live system.
type Mode string

const (
	ModeNone       Mode = "none"
	ModeInProgress Mode = "in-progress"
	ModeEditing    Mode = "editing"
)

// Manager owns the current session and the durable session list, and is
// the only writer of session-shaped keys in the store.
type Manager struct {
	mu   sync.Mutex
	kv   storage.KV
	walk distance.Config

	current *model.Session
	mode    Mode
}

// NewManager returns a manager over kv. The walk configuration fixes the
// session duration and target distance used for derived fields.
func NewManager(kv storage.KV, walk distance.Config) *Manager {
	return &Manager{kv: kv, walk: walk, mode: ModeNone}
}

// Mode returns the manager's current mode.
func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// Current returns a copy of the active session, if any.
func (m *Manager) Current() (model.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return model.Session{}, false
	}
	return m.current.Clone(), true
}

// CreateNew builds a fresh session starting at start and adopts it as the
// in-progress session, replacing any previous slot content. A zero start
// instant is an ErrInvalidState. The session is adopted even when the
// initial checkpoint write fails; the error surfaces, the counting state
// stays recoverable in memory.
func (m *Manager) CreateNew(start time.Time, env model.Environmental) (model.Session, error) {
	if start.IsZero() {
		return model.Session{}, fmt.Errorf("%w: session has no start time", ErrInvalidState)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess := model.Session{
		ID:            model.SessionID(start),
		StartTime:     start,
		DisplayDate:   model.FormatDisplayDate(start),
		Species:       []model.SpeciesEntry{},
		RemainingTime: m.walk.Duration.Milliseconds(),
		Environmental: env,
	}
	m.current = &sess
	m.mode = ModeInProgress

	if err := m.writeCurrentSlotLocked(); err != nil {
		return sess.Clone(), err
	}
	return sess.Clone(), nil
}

// LoadCurrent recovers an interrupted in-progress session from its slot
// and adopts it. Reports false when the slot is empty.
func (m *Manager) LoadCurrent() (model.Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok, err := m.kv.Get(CurrentKey)
	if err != nil || !ok {
		return model.Session{}, false, err
	}
	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return model.Session{}, false, fmt.Errorf("decode in-progress session: %w", err)
	}
	m.current = &sess
	m.mode = ModeInProgress
	return sess.Clone(), true, nil
}

// UpdateCurrent checkpoints the active session from live counting state:
// species are deep-copied, totals and the time-derived distance are
// recomputed, and elapsed/remaining are re-balanced so their sum is always
// exactly the session duration. In-progress sessions persist to the slot;
// an editing session overwrites its durable record in place.
func (m *Manager) UpdateCurrent(species []model.SpeciesEntry, elapsed time.Duration, complete bool) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return model.Session{}, ErrNoActiveSession
	}

	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed > m.walk.Duration {
		elapsed = m.walk.Duration
	}

	m.current.Species = model.CloneSpecies(species)
	m.current.TotalCount = model.TotalCount(species)
	m.current.ElapsedTime = elapsed.Milliseconds()
	m.current.RemainingTime = (m.walk.Duration - elapsed).Milliseconds()
	m.current.IsComplete = complete
	m.current.FinalDistance = distance.At(m.walk, elapsed).Meters

	if m.mode == ModeEditing {
		if err := m.writeDurableLocked(*m.current); err != nil {
			return m.current.Clone(), err
		}
		return m.current.Clone(), nil
	}
	if err := m.writeCurrentSlotLocked(); err != nil {
		return m.current.Clone(), err
	}
	return m.current.Clone(), nil
}

// SaveCurrent finalizes the active session. An in-progress session is
// upserted into the durable list and its slot cleared, in that order, so
// a rejected durable write keeps the slot and nothing is lost. Saving an
// editing session overwrites the durable record and releases it.
func (m *Manager) SaveCurrent() (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return model.Session{}, ErrNoActiveSession
	}
	sess := m.current.Clone()

	if err := m.writeDurableLocked(sess); err != nil {
		return sess, err
	}

	if m.mode == ModeInProgress {
		if err := m.kv.Remove(CurrentKey); err != nil {
			// The durable copy exists; a stale slot is recovered, not lost.
			return sess, err
		}
	}
	m.current = nil
	m.mode = ModeNone
	return sess, nil
}

// Discard drops the active session without finalizing. An in-progress
// slot is cleared; a discarded edit leaves the durable record untouched.
func (m *Manager) Discard() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	mode := m.mode
	m.current = nil
	m.mode = ModeNone
	if mode == ModeInProgress {
		return m.kv.Remove(CurrentKey)
	}
	return nil
}

// Edit loads a durable session by id and marks it as the editing target.
// The in-progress slot is not involved; the durable record stays in the
// list until a re-save overwrites it. Missing or unreadable records are
// ErrNotFound.
func (m *Manager) Edit(id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, err := m.loadDurableLocked(id)
	if err != nil {
		return model.Session{}, err
	}
	m.current = &sess
	m.mode = ModeEditing
	return sess.Clone(), nil
}

// Get returns a durable session by id without changing any state.
func (m *Manager) Get(id string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.loadDurableLocked(id)
	if err != nil {
		return model.Session{}, err
	}
	return sess.Clone(), nil
}

// Delete removes a session from the durable list. Reports whether the id
// existed; deleting an absent id is not an error.
func (m *Manager) Delete(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.loadIndexLocked()
	if err != nil {
		return false, err
	}
	found := false
	kept := ids[:0]
	for _, existing := range ids {
		if existing == id {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return false, nil
	}
	if err := m.storeIndexLocked(kept); err != nil {
		return false, err
	}
	if err := m.kv.Remove(id); err != nil {
		return false, err
	}
	return true, nil
}

// All returns every durable session, newest first by start time. Entries
// whose records have gone missing or unreadable are skipped.
func (m *Manager) All() ([]model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids, err := m.loadIndexLocked()
	if err != nil {
		return nil, err
	}
	sessions := make([]model.Session, 0, len(ids))
	for _, id := range ids {
		sess, err := m.loadDurableLocked(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, sess)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartTime.After(sessions[j].StartTime)
	})
	return sessions, nil
}

// LastEnvironmental returns the environmental snapshot of the most
// recently started durable session, for pre-filling the next walk.
func (m *Manager) LastEnvironmental() (model.Environmental, bool, error) {
	sessions, err := m.All()
	if err != nil {
		return model.Environmental{}, false, err
	}
	if len(sessions) == 0 {
		return model.Environmental{}, false, nil
	}
	return sessions[0].Environmental, true, nil
}

// --- persistence helpers ---
//
// The index upsert is load-mutate-store with no suspension point between
// load and store; in this single-writer model that makes it atomic from
// the application's perspective.

func (m *Manager) writeCurrentSlotLocked() error {
	raw, err := json.Marshal(m.current)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", storage.ErrStorageFailure, err)
	}
	return m.kv.Set(CurrentKey, string(raw))
}

func (m *Manager) writeDurableLocked(sess model.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("%w: encode session: %v", storage.ErrStorageFailure, err)
	}
	if err := m.kv.Set(sess.ID, string(raw)); err != nil {
		return err
	}

	ids, err := m.loadIndexLocked()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == sess.ID {
			return nil // already listed; record was overwritten in place
		}
	}
	ids = append([]string{sess.ID}, ids...)
	return m.storeIndexLocked(ids)
}

func (m *Manager) loadDurableLocked(id string) (model.Session, error) {
	raw, ok, err := m.kv.Get(id)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		return model.Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return model.Session{}, fmt.Errorf("%w: %s: unreadable record", ErrNotFound, id)
	}
	return sess, nil
}

func (m *Manager) loadIndexLocked() ([]string, error) {
	raw, ok, err := m.kv.Get(IndexKey)
	if err != nil || !ok {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode session index: %w", err)
	}
	return ids, nil
}

func (m *Manager) storeIndexLocked(ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("%w: encode session index: %v", storage.ErrStorageFailure, err)
	}
	return m.kv.Set(IndexKey, string(raw))
}
