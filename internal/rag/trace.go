package rag

import (
	"fmt"
	"strings"

	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

// Trace is the one-hop neighbourhood of a unit in the call graph.
type Trace struct {
	ID      string
	Known   bool
	Callers []string
	Callees []string
}

// TraceOf reads the callers and callees of id from g.
func TraceOf(g *store.Graph, id string) Trace {
	if !g.HasNode(id) {
		return Trace{ID: id}
	}
	return Trace{
		ID:      id,
		Known:   true,
		Callers: g.Callers(id),
		Callees: g.Callees(id),
	}
}

// String renders the trace as it appears in the model context. Unknown ids
// render as the empty string.
func (t Trace) String() string {
	if !t.Known {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n- Relationships for %s:", t.ID)
	if len(t.Callers) > 0 {
		fmt.Fprintf(&b, "\n  * Called by: %s", strings.Join(t.Callers, ", "))
	}
	if len(t.Callees) > 0 {
		fmt.Fprintf(&b, "\n  * Calls these functions: %s", strings.Join(t.Callees, ", "))
	}
	return b.String()
}
