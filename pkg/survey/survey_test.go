package survey

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/moritzmair/agroforst-methoden-apps/pkg/distance"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/model"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/session"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/storage"
	"github.com/moritzmair/agroforst-methoden-apps/pkg/timer"
)

var testWalk = distance.Config{Duration: 5 * time.Minute, Target: 50}

func newTestSurvey(t *testing.T, kv storage.KV) (*Survey, *timer.ManualSource) {
	t.Helper()
	src := timer.NewManualSource()
	s, err := New(kv, testWalk, src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, src
}

func testStart() time.Time {
	return time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
}

func TestFullWalk(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	sess, err := s.Begin(testStart(), model.Environmental{Temperature: 19})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if s.State() != timer.StateRunning {
		t.Fatalf("state = %s, want running", s.State())
	}

	s.Increment(1)
	s.Increment(1)
	s.Increment(3)
	src.Advance(300)

	if s.State() != timer.StateFinished {
		t.Fatalf("state after full countdown = %s", s.State())
	}
	if p := s.Progress(); p.Meters != 50 || p.Percent != 100 {
		t.Fatalf("progress = %+v, want 50m / 100%%", p)
	}

	saved, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.ID != sess.ID {
		t.Fatalf("saved id %q != started id %q", saved.ID, sess.ID)
	}
	if !saved.IsComplete {
		t.Fatal("full walk must finalize complete")
	}
	if saved.ElapsedTime != 300000 || saved.RemainingTime != 0 {
		t.Fatalf("elapsed/remaining = %d/%d", saved.ElapsedTime, saved.RemainingTime)
	}
	if saved.TotalCount != 3 {
		t.Fatalf("TotalCount = %d, want 3", saved.TotalCount)
	}
	if saved.FinalDistance != 50 {
		t.Fatalf("FinalDistance = %v, want 50", saved.FinalDistance)
	}
	if s.Mode() != session.ModeNone {
		t.Fatalf("mode after save = %s", s.Mode())
	}
	if s.Total() != 0 {
		t.Fatal("tally must be zeroed after save")
	}
}

func TestPartialWalkSave(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	s.Begin(testStart(), model.Environmental{})
	src.Advance(60)
	s.Increment(2)
	s.Pause()

	saved, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.IsComplete {
		t.Fatal("aborted walk must not be complete")
	}
	if saved.ElapsedTime != 60000 || saved.RemainingTime != 240000 {
		t.Fatalf("elapsed/remaining = %d/%d, want 60000/240000", saved.ElapsedTime, saved.RemainingTime)
	}
	if saved.FinalDistance != 10 {
		t.Fatalf("FinalDistance = %v, want 10", saved.FinalDistance)
	}
}

func TestTickCheckpointsSlot(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	s.Begin(testStart(), model.Environmental{})
	s.Increment(5)
	src.Advance(10)

	// A second engine on the same store sees the interrupted walk at the
	// last tick, as after a crash.
	s2, _ := newTestSurvey(t, kv)
	sess, ok, err := s2.Recover()
	if err != nil || !ok {
		t.Fatalf("Recover = (ok=%v, err=%v)", ok, err)
	}
	if sess.ElapsedTime != 10000 {
		t.Fatalf("recovered elapsed = %d, want 10000", sess.ElapsedTime)
	}
	if sess.TotalCount != 1 {
		t.Fatalf("recovered total = %d, want 1", sess.TotalCount)
	}
	if s2.State() != timer.StatePaused {
		t.Fatalf("recovered state = %s, want paused", s2.State())
	}
	if s2.TimeLeft() != 290 {
		t.Fatalf("recovered timeLeft = %d, want 290", s2.TimeLeft())
	}
}

func TestRecoverResumes(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)
	s.Begin(testStart(), model.Environmental{})
	src.Advance(45)

	s2, src2 := newTestSurvey(t, kv)
	if _, ok, err := s2.Recover(); err != nil || !ok {
		t.Fatalf("Recover = (ok=%v, err=%v)", ok, err)
	}
	s2.Resume()
	src2.Advance(15)
	if got := s2.TimeLeft(); got != 240 {
		t.Fatalf("timeLeft after resume = %d, want 240", got)
	}
	if got := s2.Elapsed(); got != time.Minute {
		t.Fatalf("elapsed after resume = %v, want 1m", got)
	}
}

func TestRecoverNothing(t *testing.T) {
	s, _ := newTestSurvey(t, storage.NewMemory())
	if _, ok, err := s.Recover(); ok || err != nil {
		t.Fatalf("empty store: Recover = (ok=%v, err=%v)", ok, err)
	}
}

func TestEditShortenedWalk(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	s.Begin(testStart(), model.Environmental{})
	src.Advance(60)
	s.Increment(1)
	s.Pause()
	saved, _ := s.Save()

	// Cut-short walk: editing reopens it paused at the remaining time.
	back, err := s.Edit(saved.ID)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if back.ID != saved.ID {
		t.Fatalf("edit id = %q", back.ID)
	}
	if s.State() != timer.StatePaused {
		t.Fatalf("state = %s, want paused", s.State())
	}
	if s.TimeLeft() != 240 {
		t.Fatalf("timeLeft = %d, want 240", s.TimeLeft())
	}

	// The countdown can continue from where it stopped.
	s.Resume()
	src.Advance(240)
	if s.State() != timer.StateFinished {
		t.Fatalf("state = %s, want finished", s.State())
	}

	final, err := s.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !final.IsComplete || final.RemainingTime != 0 {
		t.Fatalf("final = complete %v remaining %d", final.IsComplete, final.RemainingTime)
	}

	all, _ := s.Sessions().All()
	if len(all) != 1 {
		t.Fatalf("edit re-save duplicated: %d sessions", len(all))
	}
}

func TestEditCompleteWalk(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	s.Begin(testStart(), model.Environmental{})
	s.Increment(1)
	src.Advance(300)
	saved, _ := s.Save()

	if _, err := s.Edit(saved.ID); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if s.State() != timer.StateStopped {
		t.Fatalf("state = %s, want stopped for a complete walk", s.State())
	}
	if s.Elapsed() != 5*time.Minute {
		t.Fatalf("elapsed = %v, want the stored 5m", s.Elapsed())
	}

	// Corrections write through to the stored record.
	s.Increment(1)
	got, err := s.Sessions().Get(saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalCount != 2 {
		t.Fatalf("write-through total = %d, want 2", got.TotalCount)
	}
	if got.ElapsedTime != 300000 {
		t.Fatalf("edit clobbered elapsed: %d", got.ElapsedTime)
	}
	if !got.IsComplete {
		t.Fatal("edit clobbered the complete flag")
	}

	if _, err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	all, _ := s.Sessions().All()
	if len(all) != 1 {
		t.Fatalf("edit re-save duplicated: %d sessions", len(all))
	}
}

func TestEditExpiredIncompleteWalk(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	// A record whose clock ran out but was never marked complete, as
	// older stored data can contain.
	s.Begin(testStart(), model.Environmental{})
	src.Advance(299)
	s.Pause()
	saved, _ := s.Save()
	raw, _, _ := kv.Get(saved.ID)
	raw = strings.Replace(raw, `"remainingTime":1000`, `"remainingTime":0`, 1)
	raw = strings.Replace(raw, `"elapsedTime":299000`, `"elapsedTime":300000`, 1)
	if err := kv.Set(saved.ID, raw); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Edit(saved.ID); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if s.State() != timer.StateFinished {
		t.Fatalf("state = %s, want finished for an expired record", s.State())
	}
	if s.TimeLeft() != 0 {
		t.Fatalf("timeLeft = %d, want 0", s.TimeLeft())
	}
}

func TestEditNotFound(t *testing.T) {
	s, _ := newTestSurvey(t, storage.NewMemory())
	if _, err := s.Edit("session_0"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDiscardAbandonsWalk(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	s.Begin(testStart(), model.Environmental{})
	src.Advance(30)
	s.Increment(1)

	if err := s.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if s.Mode() != session.ModeNone {
		t.Fatalf("mode = %s", s.Mode())
	}
	if s.State() != timer.StateStopped {
		t.Fatalf("state = %s", s.State())
	}
	if s.Total() != 0 {
		t.Fatal("tally must be zeroed after discard")
	}

	s2, _ := newTestSurvey(t, kv)
	if _, ok, _ := s2.Recover(); ok {
		t.Fatal("discarded walk must leave nothing to recover")
	}
	all, _ := s2.Sessions().All()
	if len(all) != 0 {
		t.Fatal("discard must not finalize")
	}
}

func TestEvents(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	s.Begin(testStart(), model.Environmental{})
	src.Advance(150)
	s.Increment(1)

	var lastTick, lastTally *Event
	for i := range events {
		switch events[i].Kind {
		case EventTick:
			lastTick = &events[i]
		case EventTally:
			lastTally = &events[i]
		}
	}
	if lastTick == nil || lastTally == nil {
		t.Fatalf("missing event kinds in %d events", len(events))
	}
	if lastTick.TimeLeft != 150 {
		t.Fatalf("tick timeLeft = %d, want 150", lastTick.TimeLeft)
	}
	if lastTick.Progress.Meters != 25 || lastTick.Progress.Percent != 50 {
		t.Fatalf("tick progress = %+v", lastTick.Progress)
	}
	if lastTally.Total != 1 {
		t.Fatalf("tally total = %d, want 1", lastTally.Total)
	}
	if lastTally.State != timer.StateRunning {
		t.Fatalf("tally state = %s, want running", lastTally.State)
	}
}

func TestFinishEvent(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)

	var finishes int
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventFinish {
			finishes++
		}
	})

	s.Begin(testStart(), model.Environmental{})
	src.Advance(301)
	if finishes != 1 {
		t.Fatalf("finish events = %d, want exactly 1", finishes)
	}
	cur, ok := s.Current()
	if !ok || !cur.IsComplete {
		t.Fatal("finish must checkpoint the session complete")
	}
}

func TestCheckpointFailurePublishesError(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)
	s.Begin(testStart(), model.Environmental{})

	var gotErr error
	s.Subscribe(func(ev Event) {
		if ev.Kind == EventError {
			gotErr = ev.Err
		}
	})

	kv.FailWrites = true
	src.Advance(1)
	if !errors.Is(gotErr, storage.ErrStorageFailure) {
		t.Fatalf("published err = %v, want ErrStorageFailure", gotErr)
	}
	kv.FailWrites = false

	// Counting continues; the next tick checkpoints again.
	src.Advance(1)
	cur, _ := s.Current()
	if cur.ElapsedTime != 2000 {
		t.Fatalf("elapsed after recovery = %d, want 2000", cur.ElapsedTime)
	}
}

func TestSaveFailureKeepsWalkActive(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)
	s.Begin(testStart(), model.Environmental{})
	src.Advance(30)

	kv.FailWrites = true
	if _, err := s.Save(); !errors.Is(err, storage.ErrStorageFailure) {
		t.Fatalf("err = %v, want ErrStorageFailure", err)
	}
	kv.FailWrites = false

	if s.Mode() != session.ModeInProgress {
		t.Fatalf("mode after failed save = %s, want in-progress", s.Mode())
	}
	if _, err := s.Save(); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestLastEnvironmentalPrefill(t *testing.T) {
	kv := storage.NewMemory()
	s, _ := newTestSurvey(t, kv)

	s.Begin(testStart(), model.Environmental{Temperature: 17, WindStrength: 2, AreaType: "Blühstreifen"})
	s.Save()

	env, ok, err := s.LastEnvironmental()
	if err != nil || !ok {
		t.Fatalf("LastEnvironmental = (ok=%v, err=%v)", ok, err)
	}
	if env.Temperature != 17 || env.WindStrength != 2 || env.AreaType != "Blühstreifen" {
		t.Fatalf("env = %+v", env)
	}
}

func TestCustomSpeciesInWalk(t *testing.T) {
	kv := storage.NewMemory()
	s, src := newTestSurvey(t, kv)
	s.Begin(testStart(), model.Environmental{})

	entry, ok, err := s.AddSpecies("Holzbiene")
	if err != nil || !ok {
		t.Fatalf("AddSpecies = (ok=%v, err=%v)", ok, err)
	}
	s.Increment(entry.ID)
	src.Advance(10)
	s.Pause()
	saved, err := s.Save()
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, sp := range saved.Species {
		if sp.Name == "Holzbiene" && sp.Count == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("custom species missing from saved session: %v", saved.Species)
	}
}
