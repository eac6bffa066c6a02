package store

import (
	"sort"
	"strings"
)

// Unit is one enriched code unit: a function or method with its summary,
// embedding, and the raw call expressions found in its body.
type Unit struct {
	ID        string    `json:"id"`
	FilePath  string    `json:"file_path"`
	Summary   string    `json:"summary"`
	Embedding []float32 `json:"embedding"`
	Footprint string    `json:"footprint"`
	Calls     []string  `json:"calls"`
}

// UnitID builds the store key for a unit defined in relPath.
func UnitID(relPath, name string) string {
	return relPath + "::" + name
}

// filePathFromID recovers the file path half of a unit id.
func filePathFromID(id string) string {
	if i := strings.LastIndex(id, "::"); i >= 0 {
		return id[:i]
	}
	return ""
}

// Snapshot is the in-memory form of the unit collection. Units keep the
// order they were loaded or saved in; that order is the tie-break used by
// retrieval.
type Snapshot struct {
	LastCommit string
	Units      []Unit
}

// NewSnapshot orders units by id and normalises their call sets so that
// encoding the snapshot is deterministic.
func NewSnapshot(commit string, units map[string]Unit) *Snapshot {
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Unit, 0, len(ids))
	for _, id := range ids {
		u := units[id]
		u.ID = id
		u.Calls = normalizeCalls(u.Calls)
		out = append(out, u)
	}
	return &Snapshot{LastCommit: commit, Units: out}
}

// Len returns the number of units.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Units)
}

// ByID indexes the snapshot by unit id.
func (s *Snapshot) ByID() map[string]Unit {
	m := make(map[string]Unit, s.Len())
	if s == nil {
		return m
	}
	for _, u := range s.Units {
		m[u.ID] = u
	}
	return m
}

// normalizeCalls returns a sorted, duplicate-free, non-nil copy.
func normalizeCalls(calls []string) []string {
	out := make([]string, 0, len(calls))
	seen := make(map[string]bool, len(calls))
	for _, c := range calls {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
