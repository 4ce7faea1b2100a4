// Package timer implements the countdown state machine for a counting walk.
//
// The timer owns four states:
//
//	Stopped:  idle; timeLeft equals the full duration, no start instant.
//	Running:  counting down, one tick per second.
//	Paused:   halted mid-countdown; timeLeft and start instant preserved.
//	Finished: the countdown reached zero naturally. Terminal except Stop.
//
// Transitions that make no sense in the current state (Pause while Stopped,
// Start while Running) are silent no-ops: callers toggle buttons, they do
// not handle state errors. The one sanctioned bypass of the normal entry
// conditions is RestoreRemaining, which rebuilds a timer mid-session from a
// persisted record when a saved walk is reopened for editing.
//
// Tick scheduling goes through a TickSource so tests can drive the
// countdown deterministically. Events are delivered synchronously, in
// subscription order, before the call that triggered them returns; after
// Pause or Stop return, no further tick is delivered. Subscribers must not
// call back into the timer.
package timer

import (
	"sync"
	"time"
)

// State is the timer lifecycle state.
type State string

const (
	StateStopped  State = "stopped"
	StateRunning  State = "running"
	StatePaused   State = "paused"
	StateFinished State = "finished"
)

// EventKind discriminates timer events.
type EventKind string

const (
	// EventTick is delivered once per elapsed second with the new TimeLeft.
	EventTick EventKind = "tick"
	// EventState is delivered on every state transition.
	EventState EventKind = "state"
	// EventFinish is delivered once, when the countdown reaches zero.
	EventFinish EventKind = "finish"
)

// Event is the tagged union delivered to subscribers. TimeLeft is the
// remaining whole seconds; State is the state after the transition.
type Event struct {
	Kind     EventKind
	TimeLeft int
	State    State
}

// Timer is the countdown state machine. All methods are safe for use from
// the tick goroutine and a caller goroutine; the model is a single
// logical thread, and the mutex serializes the two.
type Timer struct {
	mu        sync.Mutex
	duration  int // full countdown, whole seconds
	timeLeft  int
	state     State
	startedAt time.Time
	source    TickSource
	now       func() time.Time
	subs      []func(Event)
}

// New returns a stopped timer counting down from duration. A nil source
// gets a real once-per-second ticker; tests pass a ManualSource.
func New(duration time.Duration, source TickSource) *Timer {
	if source == nil {
		source = NewTickerSource()
	}
	secs := int(duration / time.Second)
	return &Timer{
		duration: secs,
		timeLeft: secs,
		state:    StateStopped,
		source:   source,
		now:      time.Now,
	}
}

// Subscribe registers fn for all timer events. Delivery is synchronous and
// in registration order.
func (t *Timer) Subscribe(fn func(Event)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.subs = append(t.subs, fn)
}

// Start begins the countdown. From Stopped it resets timeLeft to the full
// duration and records the start instant; from Paused it preserves both
// (this is the resume path). No-op while Running or Finished.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateRunning, StateFinished:
		return
	case StateStopped:
		t.timeLeft = t.duration
		t.startedAt = t.now()
	case StatePaused:
		// Keep timeLeft and startedAt from the interrupted run.
	}

	t.source.Start(time.Second, t.tick)
	t.setStateLocked(StateRunning)
}

// Pause halts the countdown. No tick is delivered after Pause returns.
// No-op outside Running; calling it twice is indistinguishable from once.
func (t *Timer) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return
	}
	t.source.Stop()
	t.setStateLocked(StatePaused)
}

// Resume continues a paused countdown. No-op outside Paused.
func (t *Timer) Resume() {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()
	if state != StatePaused {
		return
	}
	t.Start()
}

// Toggle pauses a running timer and resumes a paused one. No-op otherwise.
func (t *Timer) Toggle() {
	t.mu.Lock()
	state := t.state
	t.mu.Unlock()
	switch state {
	case StateRunning:
		t.Pause()
	case StatePaused:
		t.Resume()
	}
}

// Stop aborts the countdown from any state: ticking halts, timeLeft resets
// to the full duration, and the start instant is cleared.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source.Stop()
	t.timeLeft = t.duration
	t.startedAt = time.Time{}
	t.setStateLocked(StateStopped)
}

/// RestoreRemaining rebuilds the timer from a persisted session: the one
// sanctioned bypass of the normal entry conditions. A positive remaining
// duration leaves the timer Paused with timeLeft = ceil(remaining), ready
// for Resume; zero or negative forces Finished. startedAt is the stored
// session's original start instant, so elapsed-time derivation stays on
// the original timeline rather than a fresh now.
func (t *Timer) RestoreRemaining(remaining time.Duration, startedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.source.Stop()
	t.startedAt = startedAt
	if remaining > 0 {
		t.timeLeft = int((remaining + time.Second - 1) / time.Second)
		if t.timeLeft > t.duration {
			t.timeLeft = t.duration
		}
		t.setStateLocked(StatePaused)
		return
	}
	t.timeLeft = 0
	t.setStateLocked(StateFinished)
}

// tick runs once per scheduled second while Running.
func (t *Timer) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		// A tick that raced a Pause/Stop; the source is already halted.
		return
	}
	t.timeLeft--
	t.notifyLocked(Event{Kind: EventTick, TimeLeft: t.timeLeft, State: StateRunning})
	if t.timeLeft <= 0 {
		t.finishLocked()
	}
}

// finishLocked ends the countdown naturally. Terminal except via Stop.
func (t *Timer) finishLocked() {
	t.source.Stop()
	t.setStateLocked(StateFinished)
	t.notifyLocked(Event{Kind: EventFinish, TimeLeft: 0, State: StateFinished})
}

func (t *Timer) setStateLocked(s State) {
	if t.state == s {
		return
	}
	t.state = s
	t.notifyLocked(Event{Kind: EventState, TimeLeft: t.timeLeft, State: s})
}

func (t *Timer) notifyLocked(e Event) {
	for _, fn := range t.subs {
		fn(e)
	}
}

// TimeLeft returns the remaining whole seconds.
func (t *Timer) TimeLeft() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeLeft
}

// State returns the current lifecycle state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Running reports whether the countdown is ticking.
func (t *Timer) Running() bool { return t.State() == StateRunning }

// Paused reports whether the countdown is halted mid-session.
func (t *Timer) Paused() bool { return t.State() == StatePaused }

// Finished reports whether the countdown ran out naturally.
func (t *Timer) Finished() bool { return t.State() == StateFinished }

// Duration returns the full countdown length.
func (t *Timer) Duration() time.Duration {
	return time.Duration(t.duration) * time.Second
}

// Elapsed returns the counting time consumed so far. Always derived from
// timeLeft, never stored independently.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.duration-t.timeLeft) * time.Second
}

// StartedAt returns the session start instant, or the zero time when no
// session has been started.
func (t *Timer) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startedAt
}
