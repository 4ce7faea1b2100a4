// Package model defines the core domain types for the transect counter.
//
// A survey is a fixed-duration counting walk: the observer walks a short
// transect for five minutes, tapping a counter for every individual of
// every species seen. Two records capture that work:
//
//   - SpeciesEntry: one species and its running count. A fixed table of
//     built-in species is always present; observers may add their own.
//
//   - Session: one complete or partial counting attempt, snapshotting the
//     species counts, the timing, the time-derived target distance, and
//     the environmental conditions at the start of the walk.
//
// Sessions are value snapshots. Once a session has copied the species
// collection, later counting must never reach back into the stored record,
// so every copy here is a deep copy.
package model

import (
	"fmt"
	"time"
)

// Defaults for a counting walk. A config file may override both.
const (
	// DefaultDuration is the length of a counting session.
	DefaultDuration = 5 * time.Minute
	// DefaultTargetDistance is the distance in meters an observer is
	// expected to cover over a full session.
	DefaultTargetDistance = 50.0
)

// SpeciesEntry is one species and its running count during a walk.
type SpeciesEntry struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// BuiltinSpecies returns the fixed species table every survey starts with.
// These entries can never be deleted, only counted. IDs are stable; custom
// species added by observers continue the sequence after them.
func BuiltinSpecies() []SpeciesEntry {
	return []SpeciesEntry{
		{ID: 1, Name: "Ackerhummel"},
		{ID: 2, Name: "Steinhummel"},
		{ID: 3, Name: "Erdhummel"},
		{ID: 4, Name: "Gartenhummel"},
		{ID: 5, Name: "Wiesenhummel"},
		{ID: 6, Name: "Baumhummel"},
		{ID: 7, Name: "Waldhummel"},
		{ID: 8, Name: "andere_Hummel"},
		{ID: 9, Name: "andere_Wildbiene"},
		{ID: 10, Name: "Honigbiene"},
		{ID: 11, Name: "Wespe"},
		{ID: 12, Name: "Schwebfliege"},
		{ID: 13, Name: "unbestimmt"},
	}
}

// IsBuiltinSpecies reports whether id belongs to the fixed species table.
func IsBuiltinSpecies(id int) bool {
	for _, s := range BuiltinSpecies() {
		if s.ID == id {
			return true
		}
	}
	return false
}

// CloneSpecies returns a deep, independent copy of a species collection.
// Sessions snapshot the live tally through this; mutating the original
// afterwards must not affect the copy.
func CloneSpecies(entries []SpeciesEntry) []SpeciesEntry {
	if entries == nil {
		return nil
	}
	out := make([]SpeciesEntry, len(entries))
	copy(out, entries)
	return out
}

// TotalCount sums the counts of a species collection.
func TotalCount(entries []SpeciesEntry) int {
	total := 0
	for _, s := range entries {
		total += s.Count
	}
	return total
}

// Environmental captures the observation conditions recorded at the start
// of a walk. Fields are carried through the session unchanged; absent
// values stay at their zero value.
type Environmental struct {
	WindStrength int     `json:"windStrength"`
	Temperature  float64 `json:"temperature"`
	CloudCover   int     `json:"cloudCover"`
	FirstFlower  string  `json:"mostVisitedFlower"`
	SecondFlower string  `json:"secondVisitedFlower"`
	ThirdFlower  string  `json:"thirdVisitedFlower"`
	AreaType     string  `json:"areaType"`
}

// Session is the durable unit of work: one counting attempt.
//
// ElapsedTime and RemainingTime are milliseconds and always sum to the
// session duration after an update. IsComplete is true only when the
// countdown ran out naturally; a session saved mid-walk keeps
// IsComplete == false and a positive RemainingTime, which is what the
// edit path uses to resume counting exactly where the save left off.
type Session struct {
	ID            string         `json:"id"`
	StartTime     time.Time      `json:"startTime"`
	DisplayDate   string         `json:"displayDate"`
	Species       []SpeciesEntry `json:"species"`
	TotalCount    int            `json:"totalCount"`
	ElapsedTime   int64          `json:"elapsedTime"`
	RemainingTime int64          `json:"remainingTime"`
	IsComplete    bool           `json:"isComplete"`
	FinalDistance float64        `json:"finalDistance"`
	Environmental Environmental  `json:"environmental"`
}

// SessionID derives the durable key for a session from its start instant.
// The millisecond timestamp makes IDs sort chronologically and prevents a
// second session from the same instant getting a distinct identity.
func SessionID(start time.Time) string {
	return fmt.Sprintf("session_%d", start.UnixMilli())
}

// FormatDisplayDate renders a start instant for session lists. Computed
// once at session creation and cached on the record, so stored sessions
// keep their original rendering even if the format changes later.
func FormatDisplayDate(start time.Time) string {
	return start.Format("02.01.2006 um 15:04")
}

// Clone returns a deep copy of the session, including its species snapshot.
func (s Session) Clone() Session {
	out := s
	out.Species = CloneSpecies(s.Species)
	return out
}
