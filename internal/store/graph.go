package store

import "sort"

// Node is a code unit in the knowledge graph.
type Node struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
}

// Edge points from a unit to the raw text of a call made inside it.
// Targets are not resolved; Verified is true only when the target happens
// to be a known unit id.
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Verified bool   `json:"verified"`
}

// Graph is the directed call graph derived from a unit set.
type Graph struct {
	Nodes []Node
	Edges []Edge

	nodes   map[string]int
	callers map[string][]string
	callees map[string][]string
}

// BuildGraph derives the call graph from a unit mapping: one node per unit
// and one edge per entry in its call set.
func BuildGraph(units map[string]Unit) *Graph {
	snap := NewSnapshot("", units)

	g := &Graph{
		Nodes: make([]Node, 0, len(snap.Units)),
	}
	known := make(map[string]bool, len(snap.Units))
	for _, u := range snap.Units {
		g.Nodes = append(g.Nodes, Node{ID: u.ID, Summary: u.Summary})
		known[u.ID] = true
	}
	for _, u := range snap.Units {
		for _, call := range u.Calls {
			g.Edges = append(g.Edges, Edge{Source: u.ID, Target: call, Verified: known[call]})
		}
	}
	g.reindex()
	return g
}

// newGraph assembles a graph from decoded nodes and edges.
func newGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{Nodes: nodes, Edges: edges}
	sort.SliceStable(g.Edges, func(i, j int) bool {
		if g.Edges[i].Source != g.Edges[j].Source {
			return g.Edges[i].Source < g.Edges[j].Source
		}
		return g.Edges[i].Target < g.Edges[j].Target
	})
	g.reindex()
	return g
}

func (g *Graph) reindex() {
	g.nodes = make(map[string]int, len(g.Nodes))
	g.callers = make(map[string][]string)
	g.callees = make(map[string][]string)
	for i, n := range g.Nodes {
		g.nodes[n.ID] = i
	}
	for _, e := range g.Edges {
		g.callees[e.Source] = append(g.callees[e.Source], e.Target)
		g.callers[e.Target] = append(g.callers[e.Target], e.Source)
	}
}

// HasNode reports whether id is a unit in the graph.
func (g *Graph) HasNode(id string) bool {
	if g == nil {
		return false
	}
	_, ok := g.nodes[id]
	return ok
}

// Callers returns the direct predecessors of id.
func (g *Graph) Callers(id string) []string {
	if g == nil {
		return nil
	}
	return g.callers[id]
}

// Callees returns the direct successors of id.
func (g *Graph) Callees(id string) []string {
	if g == nil {
		return nil
	}
	return g.callees[id]
}

// Matches reports whether g is the graph of units: the same node ids and the
// same call targets per unit. A graph read alongside a unit file written by
// a different save does not match.
func (g *Graph) Matches(units []Unit) bool {
	if g == nil || len(g.nodes) != len(units) {
		return false
	}
	for _, u := range units {
		if !g.HasNode(u.ID) {
			return false
		}
		want := make(map[string]bool, len(u.Calls))
		for _, c := range u.Calls {
			want[c] = true
		}
		got := g.callees[u.ID]
		seen := make(map[string]bool, len(got))
		for _, c := range got {
			if !want[c] {
				return false
			}
			seen[c] = true
		}
		if len(seen) != len(want) {
			return false
		}
	}
	return true
}
