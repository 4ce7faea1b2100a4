// Package distance computes the time-derived target-distance model.
//
// An observer is expected to cover a fixed distance over a full counting
// session at constant pace; the target position at any moment is the same
// fraction of the total distance as the elapsed time is of the session
// duration. Nothing is measured and no GPS is involved; the model is
// a pure function of elapsed time, so it can be re-evaluated instantly
// when a saved session is reopened, without waiting for the next tick.
package distance

import "time"

// Config fixes the session length and the full target distance in meters.
type Config struct {
	Duration time.Duration
	Target   float64
}

// Progress is the target position at a point in the countdown.
type Progress struct {
	Meters  float64 `json:"meters"`
	Percent float64 `json:"percent"`
}

// At returns the target position after elapsed counting time. The result
// is monotonically non-decreasing in elapsed, clamps at (Target, 100) once
// the duration is consumed, and is (0, 0) for non-positive elapsed time or
// a degenerate configuration.
func At(cfg Config, elapsed time.Duration) Progress {
	if elapsed <= 0 || cfg.Duration <= 0 || cfg.Target <= 0 {
		return Progress{}
	}
	meters := float64(elapsed) / float64(cfg.Duration) * cfg.Target
	if meters > cfg.Target {
		meters = cfg.Target
	}
	return Progress{
		Meters:  meters,
		Percent: meters / cfg.Target * 100,
	}
}
