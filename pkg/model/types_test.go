package model

import (
	"testing"
	"time"
)

func TestBuiltinSpecies_StableIDs(t *testing.T) {
	builtin := BuiltinSpecies()
	if len(builtin) != 13 {
		t.Fatalf("got %d built-in species, want 13", len(builtin))
	}
	for i, s := range builtin {
		if s.ID != i+1 {
			t.Fatalf("species %q: got ID %d, want %d", s.Name, s.ID, i+1)
		}
		if s.Count != 0 {
			t.Fatalf("species %q: fresh table should have count 0, got %d", s.Name, s.Count)
		}
	}
}

func TestBuiltinSpecies_IndependentCopies(t *testing.T) {
	a := BuiltinSpecies()
	a[0].Count = 99
	b := BuiltinSpecies()
	if b[0].Count != 0 {
		t.Fatal("BuiltinSpecies must return a fresh table each call")
	}
}

func TestIsBuiltinSpecies(t *testing.T) {
	if !IsBuiltinSpecies(1) || !IsBuiltinSpecies(13) {
		t.Fatal("IDs 1 and 13 are built-in")
	}
	if IsBuiltinSpecies(0) || IsBuiltinSpecies(14) {
		t.Fatal("IDs 0 and 14 are not built-in")
	}
}

func TestCloneSpecies_DeepCopy(t *testing.T) {
	live := []SpeciesEntry{{ID: 1, Name: "Ackerhummel", Count: 2}}
	snap := CloneSpecies(live)

	live[0].Count = 50
	if snap[0].Count != 2 {
		t.Fatalf("snapshot mutated through live slice: got %d, want 2", snap[0].Count)
	}
}

func TestCloneSpecies_Nil(t *testing.T) {
	if CloneSpecies(nil) != nil {
		t.Fatal("cloning nil should stay nil")
	}
}

func TestTotalCount(t *testing.T) {
	entries := []SpeciesEntry{
		{ID: 1, Count: 3},
		{ID: 2, Count: 0},
		{ID: 3, Count: 7},
	}
	if got := TotalCount(entries); got != 10 {
		t.Fatalf("TotalCount = %d, want 10", got)
	}
	if got := TotalCount(nil); got != 0 {
		t.Fatalf("TotalCount(nil) = %d, want 0", got)
	}
}

func TestSessionID_ChronologicalOrder(t *testing.T) {
	t1 := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Second)

	id1 := SessionID(t1)
	id2 := SessionID(t2)
	if id1 >= id2 {
		t.Fatalf("IDs must sort chronologically: %q >= %q", id1, id2)
	}
}

func TestSessionID_DeterministicFromStart(t *testing.T) {
	start := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	if SessionID(start) != SessionID(start) {
		t.Fatal("same start instant must derive the same ID")
	}
	if SessionID(start) != "session_1746867600000" {
		t.Fatalf("unexpected ID %q", SessionID(start))
	}
}

func TestSessionClone_Independent(t *testing.T) {
	s := Session{
		ID:      "session_1",
		Species: []SpeciesEntry{{ID: 1, Name: "Ackerhummel", Count: 4}},
	}
	c := s.Clone()
	s.Species[0].Count = 40
	if c.Species[0].Count != 4 {
		t.Fatalf("clone mutated through original: got %d, want 4", c.Species[0].Count)
	}
}
