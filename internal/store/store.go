package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File names of the two persisted artifacts.
const (
	UnitsFile = "lumis_memory.json"
	GraphFile = "lumis_graph.json"
)

// metaKey marks the metadata record at the head of the unit collection.
const metaKey = "last_commit"

// ErrNoKnowledge is returned when there is nothing indexed to answer from.
var ErrNoKnowledge = errors.New("knowledge store is empty")

type metaRecord struct {
	LastCommit string `json:"last_commit"`
}

// nodeLinkData is the networkx node-link layout of the graph file.
type nodeLinkData struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []Node         `json:"nodes"`
	Links      []Edge         `json:"links"`
}

// FileStore persists the knowledge store as two JSON files in one directory.
// Both files are replaced atomically; readers never observe a partial write.
type FileStore struct {
	dir string
}

// New returns a store rooted at dir. Nothing is created until Save.
func New(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory holding the artifacts.
func (s *FileStore) Dir() string { return s.dir }

// UnitsPath returns the path of the unit collection.
func (s *FileStore) UnitsPath() string { return filepath.Join(s.dir, UnitsFile) }

// GraphPath returns the path of the graph file.
func (s *FileStore) GraphPath() string { return filepath.Join(s.dir, GraphFile) }

// Load reads the unit collection. A missing file yields an empty snapshot.
func (s *FileStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.UnitsPath())
	if errors.Is(err, fs.ErrNotExist) {
		return &Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read units: %w", err)
	}
	snap, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.UnitsPath(), err)
	}
	return snap, nil
}

// LastCommit returns the commit id recorded by the last save, or "".
func (s *FileStore) LastCommit() (string, error) {
	snap, err := s.Load()
	if err != nil {
		return "", err
	}
	return snap.LastCommit, nil
}

// LoadGraph reads the graph file. The error wraps fs.ErrNotExist when the
// file has not been written yet.
func (s *FileStore) LoadGraph() (*Graph, error) {
	data, err := os.ReadFile(s.GraphPath())
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	g, err := DecodeGraph(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.GraphPath(), err)
	}
	return g, nil
}

// Save writes both artifacts. Each is staged in a temporary file in the
// store directory; the graph is moved into place first so the recorded
// commit only advances once both files are current.
func (s *FileStore) Save(snap *Snapshot, g *Graph) error {
	units, err := Encode(snap)
	if err != nil {
		return err
	}
	graph, err := EncodeGraph(g)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	graphTmp, err := stage(s.dir, GraphFile, graph)
	if err != nil {
		return err
	}
	unitsTmp, err := stage(s.dir, UnitsFile, units)
	if err != nil {
		os.Remove(graphTmp)
		return err
	}

	if err := os.Rename(graphTmp, s.GraphPath()); err != nil {
		os.Remove(graphTmp)
		os.Remove(unitsTmp)
		return fmt.Errorf("replace graph: %w", err)
	}
	if err := os.Rename(unitsTmp, s.UnitsPath()); err != nil {
		os.Remove(unitsTmp)
		return fmt.Errorf("replace units: %w", err)
	}
	return nil
}

// stage writes data to a fresh temporary file next to its final name.
func stage(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp for %s: %w", name, err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("chmod %s: %w", name, err)
	}
	return tmp, nil
}

// Encode renders the unit collection: the metadata record followed by units
// in snapshot order.
func Encode(snap *Snapshot) ([]byte, error) {
	if snap == nil {
		snap = &Snapshot{}
	}
	records := make([]any, 0, len(snap.Units)+1)
	records = append(records, metaRecord{LastCommit: snap.LastCommit})
	for _, u := range snap.Units {
		if u.Calls == nil {
			u.Calls = []string{}
		}
		if u.Embedding == nil {
			u.Embedding = []float32{}
		}
		records = append(records, u)
	}
	return marshal(records)
}

// Decode parses a unit collection. The first record is treated as metadata
// only when it carries a last_commit key; collections written without that
// convention are read as plain unit lists. Records without an id are skipped.
func Decode(data []byte) (*Snapshot, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	snap := &Snapshot{Units: make([]Unit, 0, len(raw))}
	if len(raw) == 0 {
		return snap, nil
	}

	first, err := keys(raw[0])
	if err != nil {
		return nil, fmt.Errorf("record 0: %w", err)
	}
	if commit, ok := first[metaKey]; ok {
		var c *string
		if err := json.Unmarshal(commit, &c); err != nil {
			return nil, fmt.Errorf("last_commit: %w", err)
		}
		if c != nil {
			snap.LastCommit = *c
		}
		raw = raw[1:]
	}

	for i, r := range raw {
		fields, err := keys(r)
		if err != nil {
			return nil, fmt.Errorf("unit record %d: %w", i, err)
		}
		if _, ok := fields["id"]; !ok {
			continue
		}
		var u Unit
		if err := json.Unmarshal(r, &u); err != nil {
			return nil, fmt.Errorf("unit record %d: %w", i, err)
		}
		if u.FilePath == "" {
			u.FilePath = filePathFromID(u.ID)
		}
		snap.Units = append(snap.Units, u)
	}
	return snap, nil
}

// EncodeGraph renders the graph in node-link form.
func EncodeGraph(g *Graph) ([]byte, error) {
	if g == nil {
		g = BuildGraph(nil)
	}
	doc := nodeLinkData{
		Directed: true,
		Graph:    map[string]any{},
		Nodes:    g.Nodes,
		Links:    g.Edges,
	}
	if doc.Nodes == nil {
		doc.Nodes = []Node{}
	}
	if doc.Links == nil {
		doc.Links = []Edge{}
	}
	return marshal(doc)
}

// DecodeGraph parses a node-link graph file. Links written without a
// verified flag are re-derived against the node set.
func DecodeGraph(data []byte) (*Graph, error) {
	var doc nodeLinkData
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		known[n.ID] = true
	}
	for i := range doc.Links {
		doc.Links[i].Verified = known[doc.Links[i].Target]
	}
	return newGraph(doc.Nodes, doc.Links), nil
}

func keys(r json.RawMessage) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(r, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
