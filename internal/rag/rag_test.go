package rag

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisproject/digital-twin-project-oracle/internal/llm"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vec, f.err }

type fakeChat struct {
	system   string
	user     string
	messages []llm.Message
	reply    string
}

func (f *fakeChat) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, nil
}

func (f *fakeChat) Generate(_ context.Context, msgs []llm.Message) (string, error) {
	f.messages = msgs
	return f.reply, nil
}

func (f *fakeChat) Model() string { return "fake" }

func scenarioUnits() map[string]store.Unit {
	return map[string]store.Unit{
		"a.py::f": {FilePath: "a.py", Summary: "Returns one.", Embedding: []float32{1, 0}, Footprint: "x"},
		"b.py::g": {FilePath: "b.py", Summary: "Calls f.", Embedding: []float32{0, 1}, Footprint: "y", Calls: []string{"f"}},
	}
}

func saveScenario(t *testing.T) *store.FileStore {
	t.Helper()
	st := store.New(t.TempDir())
	units := scenarioUnits()
	require.NoError(t, st.Save(store.NewSnapshot("c1", units), store.BuildGraph(units)))
	return st
}

func TestTopK_OrderAndTies(t *testing.T) {
	units := []store.Unit{
		{ID: "u1", Embedding: []float32{1, 0}},
		{ID: "u2", Embedding: []float32{0, 1}},
		{ID: "u3", Embedding: []float32{2, 0}},
		{ID: "u4", Embedding: []float32{1, 1}},
		{ID: "short", Embedding: []float32{1}},
		{ID: "none"},
	}

	got := TopK([]float32{1, 0}, units, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "u1", got[0].Unit.ID)
	assert.Equal(t, "u3", got[1].Unit.ID, "ties keep store order")
	assert.Equal(t, "u4", got[2].Unit.ID)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 0.7071, got[2].Score, 1e-4)
}

func TestTopK_DefaultsAndZeroVectors(t *testing.T) {
	units := []store.Unit{
		{ID: "zero", Embedding: []float32{0, 0}},
		{ID: "a", Embedding: []float32{1, 0}},
		{ID: "b", Embedding: []float32{-1, 0}},
		{ID: "c", Embedding: []float32{0, 1}},
	}
	got := TopK([]float32{1, 0}, units, 0)
	require.Len(t, got, DefaultTopK)
	assert.Equal(t, "a", got[0].Unit.ID)
	assert.Equal(t, "zero", got[1].Unit.ID)
	assert.Equal(t, "c", got[2].Unit.ID)

	assert.Empty(t, TopK([]float32{1, 0}, nil, 3))
}

func TestTrace(t *testing.T) {
	g := store.BuildGraph(scenarioUnits())

	tr := TraceOf(g, "b.py::g")
	assert.True(t, tr.Known)
	assert.Empty(t, tr.Callers)
	assert.Equal(t, []string{"f"}, tr.Callees)
	assert.Equal(t, "\n- Relationships for b.py::g:\n  * Calls these functions: f", tr.String())

	assert.Equal(t, "\n- Relationships for a.py::f:", TraceOf(g, "a.py::f").String())
	assert.Equal(t, "", TraceOf(g, "missing").String())
}

func TestBuildPrompt(t *testing.T) {
	g := store.BuildGraph(scenarioUnits())
	units := scenarioUnits()
	g2 := units["b.py::g"]
	g2.ID = "b.py::g"

	blocks := []Block{{Match: Match{Unit: g2}, Trace: TraceOf(g, "b.py::g")}}
	want := "Context from codebase:\n" +
		"File/Unit: b.py::g\nSummary: Calls f.\n- Relationships for b.py::g:\n  * Calls these functions: f\n\n" +
		"\n\nQuestion: what calls f?"
	assert.Equal(t, want, BuildPrompt(blocks, "what calls f?"))
}

func TestEngine_ScenarioTopOne(t *testing.T) {
	st := saveScenario(t)
	e := NewEngine(st, &fakeEmbedder{vec: []float32{0.1, 0.9}}, &fakeChat{}, 3, nil)

	blocks, err := e.FindContext(context.Background(), "who calls f", 1)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "b.py::g", blocks[0].Unit.ID)
	assert.Empty(t, blocks[0].Trace.Callers)
	assert.Equal(t, []string{"f"}, blocks[0].Trace.Callees)
}

func TestEngine_Ask(t *testing.T) {
	st := saveScenario(t)
	chat := &fakeChat{reply: "g calls f."}
	e := NewEngine(st, &fakeEmbedder{vec: []float32{1, 0}}, chat, 0, nil)

	ans, err := e.Ask(context.Background(), "what does f do?")
	require.NoError(t, err)
	assert.Equal(t, "g calls f.", ans.Text)
	assert.Len(t, ans.Context, 2)
	assert.Equal(t, SystemPrompt, chat.system)
	assert.Contains(t, chat.user, "File/Unit: a.py::f\nSummary: Returns one.")
	assert.Contains(t, chat.user, "\n\nQuestion: what does f do?")
}

func TestEngine_ChatWithHistory(t *testing.T) {
	st := saveScenario(t)
	chat := &fakeChat{reply: "ok"}
	e := NewEngine(st, &fakeEmbedder{vec: []float32{1, 0}}, chat, 1, nil)

	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}
	_, err := e.Chat(context.Background(), history, "and g?")
	require.NoError(t, err)
	require.Len(t, chat.messages, 4)
	assert.Equal(t, llm.RoleSystem, chat.messages[0].Role)
	assert.Equal(t, "hi", chat.messages[1].Content)
	assert.Contains(t, chat.messages[3].Content, "Question: and g?")
}

func TestEngine_EmptyStore(t *testing.T) {
	e := NewEngine(store.New(t.TempDir()), &fakeEmbedder{vec: []float32{1}}, &fakeChat{}, 3, nil)
	_, err := e.Ask(context.Background(), "anything")
	assert.ErrorIs(t, err, store.ErrNoKnowledge)
}

func TestEngine_MissingGraphIsRebuilt(t *testing.T) {
	st := saveScenario(t)
	require.NoError(t, os.Remove(st.GraphPath()))
	e := NewEngine(st, &fakeEmbedder{vec: []float32{0, 1}}, &fakeChat{}, 1, nil)

	blocks, err := e.FindContext(context.Background(), "q", 0)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"f"}, blocks[0].Trace.Callees)
}

func TestEngine_StaleGraphIsRebuilt(t *testing.T) {
	st := saveScenario(t)

	// A save that has renamed its graph but not yet its units.
	units := scenarioUnits()
	g := units["b.py::g"]
	g.Calls = []string{"h"}
	units["b.py::g"] = g
	units["c.py::h"] = store.Unit{FilePath: "c.py", Summary: "New.", Embedding: []float32{1, 1}}
	data, err := store.EncodeGraph(store.BuildGraph(units))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(st.GraphPath(), data, 0o644))

	e := NewEngine(st, &fakeEmbedder{vec: []float32{0, 1}}, &fakeChat{}, 1, nil)
	blocks, err := e.FindContext(context.Background(), "q", 0)
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "b.py::g", blocks[0].Unit.ID)
	assert.Equal(t, []string{"f"}, blocks[0].Trace.Callees)
}

func TestEngine_EmbedFailure(t *testing.T) {
	st := saveScenario(t)
	e := NewEngine(st, &fakeEmbedder{err: errors.New("down")}, &fakeChat{}, 1, nil)
	_, err := e.Ask(context.Background(), "q")
	assert.Error(t, err)
}
