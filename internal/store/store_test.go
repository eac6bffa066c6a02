package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUnits() map[string]Unit {
	return map[string]Unit{
		"b.py::g": {
			FilePath:  "b.py",
			Summary:   "Calls f twice.",
			Embedding: []float32{0, 1},
			Footprint: "fp-g",
			Calls:     []string{"f()", "f()", "a.py::f"},
		},
		"a.py::f": {
			FilePath:  "a.py",
			Summary:   "Returns one.",
			Embedding: []float32{1, 0},
			Footprint: "fp-f",
		},
	}
}

func TestNewSnapshot_SortsAndNormalizes(t *testing.T) {
	snap := NewSnapshot("abc", testUnits())

	require.Len(t, snap.Units, 2)
	assert.Equal(t, "a.py::f", snap.Units[0].ID)
	assert.Equal(t, "b.py::g", snap.Units[1].ID)
	assert.Equal(t, []string{}, snap.Units[0].Calls)
	assert.Equal(t, []string{"a.py::f", "f()"}, snap.Units[1].Calls)
}

func TestFileStore_LoadMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory"))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Len())
	assert.Equal(t, "", snap.LastCommit)

	_, err = s.LoadGraph()
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "memory"))
	units := testUnits()

	require.NoError(t, s.Save(NewSnapshot("c0ffee", units), BuildGraph(units)))

	snap, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", snap.LastCommit)
	require.Len(t, snap.Units, 2)
	assert.Equal(t, "a.py::f", snap.Units[0].ID)
	assert.Equal(t, []float32{1, 0}, snap.Units[0].Embedding)

	g, err := s.LoadGraph()
	require.NoError(t, err)
	assert.True(t, g.HasNode("b.py::g"))
	assert.Equal(t, []string{"a.py::f", "f()"}, g.Callees("b.py::g"))
	assert.Equal(t, []string{"b.py::g"}, g.Callers("a.py::f"))

	commit, err := s.LastCommit()
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", commit)
}

func TestFileStore_SaveIsByteStable(t *testing.T) {
	s := New(t.TempDir())
	units := testUnits()

	require.NoError(t, s.Save(NewSnapshot("c1", units), BuildGraph(units)))
	firstUnits, err := os.ReadFile(s.UnitsPath())
	require.NoError(t, err)
	firstGraph, err := os.ReadFile(s.GraphPath())
	require.NoError(t, err)

	// Reload and save what was read, as an unchanged sync would.
	snap, err := s.Load()
	require.NoError(t, err)
	again := snap.ByID()
	require.NoError(t, s.Save(NewSnapshot(snap.LastCommit, again), BuildGraph(again)))

	secondUnits, err := os.ReadFile(s.UnitsPath())
	require.NoError(t, err)
	secondGraph, err := os.ReadFile(s.GraphPath())
	require.NoError(t, err)

	assert.Equal(t, string(firstUnits), string(secondUnits))
	assert.Equal(t, string(firstGraph), string(secondGraph))
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	units := testUnits()
	require.NoError(t, s.Save(NewSnapshot("c1", units), BuildGraph(units)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{UnitsFile, GraphFile}, names)
}

func TestDecode_WithMetadata(t *testing.T) {
	data := []byte(`[
		{"last_commit": "deadbeef"},
		{"id": "a.py::f", "file_path": "a.py", "summary": "s", "embedding": [0.5, 0.25], "footprint": "x", "calls": ["g()"]}
	]`)

	snap, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", snap.LastCommit)
	require.Len(t, snap.Units, 1)
	assert.Equal(t, []string{"g()"}, snap.Units[0].Calls)
}

func TestDecode_LegacyWithoutMetadata(t *testing.T) {
	data := []byte(`[
		{"id": "src/b.py::g", "summary": "s", "embedding": [1], "footprint": "x", "calls": []},
		{"id": "a.py::f", "file_path": "a.py", "summary": "t", "embedding": [2], "footprint": "y", "calls": []}
	]`)

	snap, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "", snap.LastCommit)
	require.Len(t, snap.Units, 2)
	// File order is kept for legacy stores.
	assert.Equal(t, "src/b.py::g", snap.Units[0].ID)
	assert.Equal(t, "src/b.py", snap.Units[0].FilePath)
}

func TestDecode_EdgeCases(t *testing.T) {
	t.Run("empty array", func(t *testing.T) {
		snap, err := Decode([]byte(`[]`))
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Len())
	})

	t.Run("null commit", func(t *testing.T) {
		snap, err := Decode([]byte(`[{"last_commit": null}]`))
		require.NoError(t, err)
		assert.Equal(t, "", snap.LastCommit)
	})

	t.Run("records without id are skipped", func(t *testing.T) {
		snap, err := Decode([]byte(`[{"last_commit": "a"}, {"summary": "orphan"}]`))
		require.NoError(t, err)
		assert.Equal(t, 0, snap.Len())
	})

	t.Run("not an array", func(t *testing.T) {
		_, err := Decode([]byte(`{"last_commit": "a"}`))
		assert.Error(t, err)
	})
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(NewSnapshot("abc", map[string]Unit{
		"x.rs::run": {FilePath: "x.rs", Summary: "Runs <things> & stuff.", Embedding: []float32{1}, Footprint: "fp"},
	}))
	require.NoError(t, err)

	want := `[
    {
        "last_commit": "abc"
    },
    {
        "id": "x.rs::run",
        "file_path": "x.rs",
        "summary": "Runs <things> & stuff.",
        "embedding": [
            1
        ],
        "footprint": "fp",
        "calls": []
    }
]
`
	assert.Equal(t, want, string(data))
}

func TestDecodeGraph_DerivesVerified(t *testing.T) {
	data := []byte(`{
		"directed": true, "multigraph": false, "graph": {},
		"nodes": [{"id": "b.py::g", "summary": "g"}, {"id": "a.py::f", "summary": "f"}],
		"links": [{"source": "b.py::g", "target": "f"}, {"source": "b.py::g", "target": "a.py::f"}]
	}`)

	g, err := DecodeGraph(data)
	require.NoError(t, err)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, Edge{Source: "b.py::g", Target: "a.py::f", Verified: true}, g.Edges[0])
	assert.Equal(t, Edge{Source: "b.py::g", Target: "f", Verified: false}, g.Edges[1])
}

// generation returns a unit set whose size is tied to its commit id.
func generation(n int) (string, map[string]Unit) {
	units := make(map[string]Unit, n+1)
	for i := 0; i <= n; i++ {
		id := UnitID(fmt.Sprintf("pkg/f%03d.py", i), "run")
		units[id] = Unit{
			FilePath:  fmt.Sprintf("pkg/f%03d.py", i),
			Summary:   strings.Repeat("Does a thing. ", 20),
			Embedding: []float32{float32(i), 1, 2, 3},
			Footprint: fmt.Sprintf("fp-%d", i),
			Calls:     []string{"helper()"},
		}
	}
	return fmt.Sprintf("c%d", n), units
}

func TestFileStore_ConcurrentReadersNeverSeePartialFiles(t *testing.T) {
	st := New(t.TempDir())
	commit, units := generation(0)
	require.NoError(t, st.Save(NewSnapshot(commit, units), BuildGraph(units)))

	var done atomic.Bool
	var reads atomic.Int64
	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for !done.Load() {
				snap, err := st.Load()
				if !assert.NoError(t, err) {
					return
				}
				n, err := strconv.Atoi(strings.TrimPrefix(snap.LastCommit, "c"))
				if !assert.NoError(t, err) {
					return
				}
				assert.Len(t, snap.Units, n+1, "units file for %s is incomplete", snap.LastCommit)

				g, err := st.LoadGraph()
				if !assert.NoError(t, err) {
					return
				}
				assert.NotEmpty(t, g.Nodes)
				reads.Add(1)
			}
		}()
	}

	for i := 1; i <= 60; i++ {
		commit, units := generation(i)
		require.NoError(t, st.Save(NewSnapshot(commit, units), BuildGraph(units)))
	}
	assert.Eventually(t, func() bool { return reads.Load() > 0 }, 5*time.Second, time.Millisecond)
	done.Store(true)
	wg.Wait()

	snap, err := st.Load()
	require.NoError(t, err)
	assert.Equal(t, "c60", snap.LastCommit)
}
