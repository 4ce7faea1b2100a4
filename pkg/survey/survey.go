// Package survey coordinates a counting walk: the countdown timer, the
// species tally and the session lifecycle move in lockstep so that every
// tick and every count change lands in the checkpoint slot.
package survey

import (
	"sync"
	"time"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/distance"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/session"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/storage"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/tally"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/timer"
)

// EventKind tags the events a Survey fans out to its subscribers.
type EventKind string

const (
	EventTick   EventKind = "tick"
	EventState  EventKind = "state"
	EventFinish EventKind = "finish"
	EventTally  EventKind = "tally"
	EventError  EventKind = "error"
)

// Event is a snapshot of the walk at the moment something changed.
type Event struct {
	Kind     EventKind
	TimeLeft int
	State    timer.State
	Progress distance.Progress
	Total    int
	Err      error
}

// Survey owns the timer, the tally store and the session manager. All
// mutations go through it so the three stay consistent.
//
// Events may be delivered from the ticker goroutine; subscribers must not
// call back into the Survey.
type Survey struct {
	walk     distance.Config
	timer    *timer.Timer
	tally    *tally.Store
	sessions *session.Manager

	mu       sync.Mutex
	subs     []func(Event)
	elapsed  time.Duration
	complete bool
	state    timer.State
}

// New opens the tally store from kv and wires the timer and session
// manager. src may be nil for the default wall-clock ticker.
func New(kv storage.KV, walk distance.Config, src timer.TickSource) (*Survey, error) {
	store, err := tally.Open(kv)
	if err != nil {
		return nil, err
	}
	s := &Survey{
		walk:     walk,
		tally:    store,
		sessions: session.NewManager(kv, walk),
		timer:    timer.New(walk.Duration, src),
		state:    timer.StateStopped,
	}
	s.timer.Subscribe(s.onTimer)
	store.Subscribe(s.onTally)
	return s, nil
}

// Subscribe registers fn for walk events.
func (s *Survey) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Begin starts a fresh walk: a new session, a zeroed tally and the timer
// running from the full duration.
func (s *Survey) Begin(start time.Time, env model.Environmental) (model.Session, error) {
	s.timer.Stop()
	s.setProgress(0, false)
	sess, err := s.sessions.CreateNew(start, env)
	if err != nil {
		return model.Session{}, err
	}
	if err := s.tally.ResetCounts(); err != nil {
		return model.Session{}, err
	}
	s.timer.Start()
	return sess, nil
}

// Recover picks up a walk that was interrupted mid-count. The tally is
// restored from the checkpoint and the timer resumes paused at the
// remaining time, waiting for an explicit Resume.
func (s *Survey) Recover() (model.Session, bool, error) {
	sess, ok, err := s.sessions.LoadCurrent()
	if err != nil || !ok {
		return model.Session{}, ok, err
	}
	s.setProgress(time.Duration(sess.ElapsedTime)*time.Millisecond, sess.IsComplete)
	if err := s.tally.Replace(sess.Species); err != nil {
		return model.Session{}, false, err
	}
	s.timer.RestoreRemaining(time.Duration(sess.RemainingTime)*time.Millisecond, sess.StartTime)
	return sess, true, nil
}

// Edit reopens a finalized session for correction. The timer is rebuilt
// to match the stored record: paused at the remaining time when the walk
// was cut short, finished when the clock ran out, stopped when the walk
// completed. Changes write through to the stored record immediately.
func (s *Survey) Edit(id string) (model.Session, error) {
	sess, err := s.sessions.Edit(id)
	if err != nil {
		return model.Session{}, err
	}
	remaining := time.Duration(sess.RemainingTime) * time.Millisecond
	switch {
	case sess.IsComplete:
		s.timer.Stop()
	case remaining > 0:
		s.timer.RestoreRemaining(remaining, sess.StartTime)
	default:
		s.timer.RestoreRemaining(0, sess.StartTime)
	}
	s.setProgress(time.Duration(sess.ElapsedTime)*time.Millisecond, sess.IsComplete)
	if err := s.tally.Replace(sess.Species); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Save finalizes the active walk. The timer halts first so the last
// checkpoint carries the final elapsed time; the slot is only released
// once the durable write went through.
func (s *Survey) Save() (model.Session, error) {
	s.timer.Pause()
	if _, err := s.checkpoint(); err != nil {
		return model.Session{}, err
	}
	sess, err := s.sessions.SaveCurrent()
	if err != nil {
		return model.Session{}, err
	}
	s.timer.Stop()
	s.setProgress(0, false)
	if err := s.tally.ResetCounts(); err != nil {
		return sess, err
	}
	return sess, nil
}

// Discard abandons the active walk without finalizing it. For an edit
// this releases the target; the stored record keeps whatever was last
// written through.
func (s *Survey) Discard() error {
	if err := s.sessions.Discard(); err != nil {
		return err
	}
	s.timer.Stop()
	s.setProgress(0, false)
	return s.tally.ResetCounts()
}

// Pause halts the countdown.
func (s *Survey) Pause() { s.timer.Pause() }

// Resume continues a paused countdown.
func (s *Survey) Resume() { s.timer.Resume() }

// Toggle pauses a running countdown and resumes a paused one.
func (s *Survey) Toggle() { s.timer.Toggle() }

// State reports the timer state.
func (s *Survey) State() timer.State { return s.timer.State() }

// TimeLeft reports the remaining whole seconds.
func (s *Survey) TimeLeft() int { return s.timer.TimeLeft() }

// Elapsed reports how much of the walk has passed. During an edit this
// is the stored value, not the wall clock.
func (s *Survey) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Progress reports the walked distance derived from the elapsed time.
func (s *Survey) Progress() distance.Progress {
	return distance.At(s.walk, s.Elapsed())
}

// Mode reports the session lifecycle mode.
func (s *Survey) Mode() session.Mode { return s.sessions.Mode() }

// Current returns the active session snapshot, if any.
func (s *Survey) Current() (model.Session, bool) { return s.sessions.Current() }

// Sessions exposes the durable session records.
func (s *Survey) Sessions() *session.Manager { return s.sessions }

// LastEnvironmental returns the environmental snapshot of the most
// recent finalized session, for prefilling a new walk.
func (s *Survey) LastEnvironmental() (model.Environmental, bool, error) {
	return s.sessions.LastEnvironmental()
}

// Increment adds one sighting for the species.
func (s *Survey) Increment(id int) (int, error) { return s.tally.Increment(id) }

// Decrement removes one sighting for the species, not below zero.
func (s *Survey) Decrement(id int) (int, error) { return s.tally.Decrement(id) }

// AddSpecies appends a custom species to the tally.
func (s *Survey) AddSpecies(name string) (model.SpeciesEntry, bool, error) {
	return s.tally.Add(name)
}

// RemoveSpecies deletes a custom species. Built-in species are kept.
func (s *Survey) RemoveSpecies(id int) (model.SpeciesEntry, bool, error) {
	return s.tally.Delete(id)
}

// Species returns the current tally rows.
func (s *Survey) Species() []model.SpeciesEntry { return s.tally.All() }

// Total returns the sum of all counts.
func (s *Survey) Total() int { return s.tally.Total() }

// onTimer runs under the timer's lock. Ticks and the finish move the
// elapsed cache forward and checkpoint; plain state changes only fan out,
// so rebuilding the timer during Edit cannot clobber the stored elapsed.
func (s *Survey) onTimer(ev timer.Event) {
	s.mu.Lock()
	s.state = ev.State
	s.mu.Unlock()

	kind := EventState
	switch ev.Kind {
	case timer.EventTick:
		kind = EventTick
	case timer.EventFinish:
		kind = EventFinish
	}
	if kind != EventState {
		elapsed := s.walk.Duration - time.Duration(ev.TimeLeft)*time.Second
		s.setProgress(elapsed, ev.State == timer.StateFinished)
		if _, err := s.checkpoint(); err != nil {
			s.publish(Event{Kind: EventError, Err: err})
			return
		}
	}
	s.publish(Event{
		Kind:     kind,
		TimeLeft: ev.TimeLeft,
		State:    ev.State,
		Progress: distance.At(s.walk, s.Elapsed()),
		Total:    s.tally.Total(),
	})
}

// onTally runs under the tally's lock. Count changes checkpoint with the
// cached elapsed time so the slot always reflects the latest counts.
// The timer state comes from the cache: querying the timer here would
// take its lock in the opposite order of a concurrent tick.
func (s *Survey) onTally(entries []model.SpeciesEntry) {
	if s.sessions.Mode() != session.ModeNone {
		if _, err := s.sessions.UpdateCurrent(entries, s.Elapsed(), s.completed()); err != nil {
			s.publish(Event{Kind: EventError, Err: err})
			return
		}
	}
	s.mu.Lock()
	state := s.state
	left := s.walk.Duration - s.elapsed
	s.mu.Unlock()
	if left < 0 {
		left = 0
	}
	s.publish(Event{
		Kind:     EventTally,
		TimeLeft: int(left / time.Second),
		State:    state,
		Progress: distance.At(s.walk, s.Elapsed()),
		Total:    model.TotalCount(entries),
	})
}

func (s *Survey) checkpoint() (model.Session, error) {
	if s.sessions.Mode() == session.ModeNone {
		return model.Session{}, nil
	}
	return s.sessions.UpdateCurrent(s.tally.Snapshot(), s.Elapsed(), s.completed())
}

func (s *Survey) setProgress(elapsed time.Duration, complete bool) {
	s.mu.Lock()
	s.elapsed = elapsed
	s.complete = complete
	s.mu.Unlock()
}

func (s *Survey) completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

func (s *Survey) publish(ev Event) {
	s.mu.Lock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}
