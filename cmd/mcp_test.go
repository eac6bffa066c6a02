package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisproject/digital-twin-project-oracle/internal/rag"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

type fakeRetriever struct {
	blocks []rag.Block
	answer string
	err    error
	gotK   int
}

func (f *fakeRetriever) FindContext(_ context.Context, _ string, k int) ([]rag.Block, error) {
	f.gotK = k
	return f.blocks, f.err
}

func (f *fakeRetriever) Ask(context.Context, string) (*rag.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rag.Answer{Text: f.answer}, nil
}

func seededStore(t *testing.T) *store.FileStore {
	t.Helper()
	units := map[string]store.Unit{
		"app/main.py::run":    {FilePath: "app/main.py", Summary: "Runs the app.", Embedding: []float32{1, 0}, Calls: []string{"load()"}},
		"app/cfg.py::load":    {FilePath: "app/cfg.py", Summary: "Loads config.", Embedding: []float32{0, 1}},
		"lib/util.py::helper": {FilePath: "lib/util.py", Summary: "", Embedding: []float32{1, 1}},
	}
	st := store.New(t.TempDir())
	require.NoError(t, st.Save(store.NewSnapshot("abc123", units), store.BuildGraph(units)))
	return st
}

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func TestAskHandler(t *testing.T) {
	r := &fakeRetriever{answer: "It loads config first."}
	text, isErr := call(t, makeAskHandler(r), map[string]any{"question": "what runs?"})
	assert.False(t, isErr)
	assert.Equal(t, "It loads config first.", text)

	_, isErr = call(t, makeAskHandler(r), map[string]any{})
	assert.True(t, isErr)
}

func TestAskHandler_NoKnowledge(t *testing.T) {
	r := &fakeRetriever{err: store.ErrNoKnowledge}
	text, isErr := call(t, makeAskHandler(r), map[string]any{"question": "q"})
	assert.False(t, isErr)
	assert.Equal(t, noKnowledgeText, text)

	r.err = errors.New("provider down")
	text, isErr = call(t, makeAskHandler(r), map[string]any{"question": "q"})
	assert.True(t, isErr)
	assert.Contains(t, text, "provider down")
}

func TestFindContextHandler(t *testing.T) {
	r := &fakeRetriever{blocks: []rag.Block{{
		Match: rag.Match{Unit: store.Unit{ID: "app/main.py::run", Summary: "Runs the app."}, Score: 0.9},
		Trace: rag.Trace{ID: "app/main.py::run", Known: true, Callees: []string{"load()"}},
	}}}
	text, isErr := call(t, makeFindContextHandler(r), map[string]any{"query": "startup", "k": float64(5)})
	assert.False(t, isErr)
	assert.Equal(t, 5, r.gotK)
	assert.Contains(t, text, "`app/main.py::run` (score 0.900)")
	assert.Contains(t, text, "Calls these functions: load()")

	r.blocks = nil
	text, _ = call(t, makeFindContextHandler(r), map[string]any{"query": "nothing"})
	assert.Contains(t, text, "No units found")
	assert.Equal(t, 0, r.gotK)
}

func TestGetUnitHandler(t *testing.T) {
	st := seededStore(t)

	text, isErr := call(t, makeGetUnitHandler(st), map[string]any{"id": "app/main.py::run"})
	assert.False(t, isErr)
	assert.Contains(t, text, "Runs the app.")
	assert.Contains(t, text, "**Calls (raw):**\n- `load()`")
	assert.Contains(t, text, "**Calls into:**\n- `load()`")
	assert.NotContains(t, text, "Called by")

	_, isErr = call(t, makeGetUnitHandler(st), map[string]any{"id": "missing::x"})
	assert.True(t, isErr)
}

func TestListUnitsHandler(t *testing.T) {
	st := seededStore(t)

	text, _ := call(t, makeListUnitsHandler(st), map[string]any{})
	assert.Contains(t, text, "Indexed units (3)")
	assert.Contains(t, text, "- **lib/util.py::helper**: (no summary)")

	text, _ = call(t, makeListUnitsHandler(st), map[string]any{"path_prefix": "app/"})
	assert.Contains(t, text, "Indexed units (2, under app/)")
	assert.NotContains(t, text, "lib/util.py")
}

func TestSyncStatusHandler(t *testing.T) {
	text, _ := call(t, makeSyncStatusHandler(seededStore(t)), nil)
	assert.Equal(t, "Last synced commit: abc123\nUnits indexed: 3", text)

	text, _ = call(t, makeSyncStatusHandler(store.New(t.TempDir())), nil)
	assert.Equal(t, "Last synced commit: none\nUnits indexed: 0", text)
}
