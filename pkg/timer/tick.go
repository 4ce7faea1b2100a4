package timer

import (
	"sync"
	"time"
)

// TickSource schedules the periodic countdown callback. Start begins
// invoking fn every interval until Stop; Stop is idempotent and must
// guarantee that no invocation begins after it returns. A source can be
// restarted after a Stop (pause and resume reuse one source).
type TickSource interface {
	Start(interval time.Duration, fn func())
	Stop()
}

// TickerSource is the production TickSource, backed by a time.Ticker on
// its own goroutine.
type TickerSource struct {
	mu   sync.Mutex
	quit chan struct{}
}

// NewTickerSource returns an idle ticker source.
func NewTickerSource() *TickerSource {
	return &TickerSource{}
}

// Start launches the tick goroutine. No-op if already ticking.
func (s *TickerSource) Start(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit != nil {
		return
	}
	quit := make(chan struct{})
	s.quit = quit
	go func() {
		tk := time.NewTicker(interval)
		defer tk.Stop()
		for {
			select {
			case <-quit:
				return
			case <-tk.C:
				fn()
			}
		}
	}()
}

// Stop halts ticking. Safe to call repeatedly, including from within fn.
func (s *TickerSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quit == nil {
		return
	}
	close(s.quit)
	s.quit = nil
}

// ManualSource is a TickSource driven explicitly by tests. Advance invokes
// the scheduled callback synchronously, so tick delivery, ordering, and
// cancellation are observable without sleeping.
type ManualSource struct {
	mu     sync.Mutex
	fn     func()
	active bool
}

// NewManualSource returns an idle manual source.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Start records fn as the scheduled callback.
func (s *ManualSource) Start(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.fn = fn
	s.active = true
}

// Stop cancels the scheduled callback.
func (s *ManualSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn = nil
	s.active = false
}

// Active reports whether a callback is currently scheduled.
func (s *ManualSource) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Advance fires up to n ticks, stopping early if the callback cancels the
// schedule (a finishing countdown stops its own source mid-advance).
func (s *ManualSource) Advance(n int) {
	for i := 0; i < n; i++ {
		s.mu.Lock()
		fn, active := s.fn, s.active
		s.mu.Unlock()
		if !active || fn == nil {
			return
		}
		fn()
	}
}
