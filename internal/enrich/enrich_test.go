package enrich

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply string
	err   error
	calls atomic.Int32
	user  string
}

func (f *fakeLLM) Complete(_ context.Context, system, user string) (string, error) {
	f.calls.Add(1)
	f.user = user
	return f.reply, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vec, f.err
}

func TestEnrich_Success(t *testing.T) {
	l := &fakeLLM{reply: "  Returns the sum of two numbers.\n"}
	e := New(l, &fakeEmbedder{vec: []float32{1, 2}}, nil)

	got, ok := e.Enrich(context.Background(), "add", "def add(a, b):\n    return a + b")
	require.True(t, ok)
	assert.Equal(t, "Returns the sum of two numbers.", got.Summary)
	assert.Equal(t, []float32{1, 2}, got.Embedding)
	assert.Equal(t, "Analyze: def add(a, b):\n    return a + b", l.user)
}

func TestEnrich_SentinelIsMemoized(t *testing.T) {
	l := &fakeLLM{reply: "SKIP."}
	e := New(l, &fakeEmbedder{vec: []float32{1}}, nil)

	_, ok := e.Enrich(context.Background(), "init", "def __init__(self): pass")
	assert.False(t, ok)
	_, ok = e.Enrich(context.Background(), "init", "def __init__(self): pass")
	assert.False(t, ok)
	assert.Equal(t, int32(1), l.calls.Load())
}

func TestEnrich_EmptyCompletionIsRetried(t *testing.T) {
	l := &fakeLLM{reply: "  \n"}
	e := New(l, &fakeEmbedder{vec: []float32{1}}, nil)

	_, ok := e.Enrich(context.Background(), "calc", "def calc(): return 42")
	assert.False(t, ok)

	l.reply = "Returns the computed value."
	got, ok := e.Enrich(context.Background(), "calc", "def calc(): return 42")
	require.True(t, ok)
	assert.Equal(t, "Returns the computed value.", got.Summary)
	assert.Equal(t, int32(2), l.calls.Load())
}

func TestEnrich_FailuresMeanNoEnrichment(t *testing.T) {
	ctx := context.Background()

	_, ok := New(&fakeLLM{err: errors.New("503")}, &fakeEmbedder{vec: []float32{1}}, nil).Enrich(ctx, "f", "code")
	assert.False(t, ok)

	_, ok = New(&fakeLLM{reply: "Does work."}, &fakeEmbedder{err: errors.New("down")}, nil).Enrich(ctx, "f", "code")
	assert.False(t, ok)

	_, ok = New(&fakeLLM{reply: ""}, &fakeEmbedder{vec: []float32{1}}, nil).Enrich(ctx, "f", "code")
	assert.False(t, ok)

	_, ok = New(&fakeLLM{reply: "Does work."}, &fakeEmbedder{}, nil).Enrich(ctx, "f", "code")
	assert.False(t, ok)
}

func TestIsSentinel(t *testing.T) {
	for _, s := range []string{"SKIP", "skip", " Skip.\n", "`SKIP`", "\"SKIP\"", "**SKIP**"} {
		assert.True(t, IsSentinel(s), s)
	}
	for _, s := range []string{"Skips blank lines while parsing.", "SKIPPED", ""} {
		assert.False(t, IsSentinel(s), s)
	}
}
