// Package rag answers questions from the knowledge store: embedding search
// over unit summaries plus the call graph around each hit.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/lumisproject/digital-twin-project-oracle/internal/embedder"
	"github.com/lumisproject/digital-twin-project-oracle/internal/llm"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

// Answer is the model's reply with the context it was given.
type Answer struct {
	Text    string
	Context []Block
}

// Engine retrieves context and asks the model. The store is read on every
// call so answers follow the latest sync.
type Engine struct {
	store  *store.FileStore
	emb    embedder.Embedder
	llm    llm.Chatter
	k      int
	logger *slog.Logger
}

// NewEngine creates an Engine retrieving k units per question. A nil logger
// means slog.Default().
func NewEngine(st *store.FileStore, emb embedder.Embedder, chat llm.Chatter, k int, logger *slog.Logger) *Engine {
	if k <= 0 {
		k = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, emb: emb, llm: chat, k: k, logger: logger}
}

// K returns the default number of retrieved units.
func (e *Engine) K() int { return e.k }

// FindContext returns the k units closest to question with their traces.
// k <= 0 uses the engine default. It returns store.ErrNoKnowledge when
// nothing has been indexed.
func (e *Engine) FindContext(ctx context.Context, question string, k int) ([]Block, error) {
	if k <= 0 {
		k = e.k
	}
	snap, g, err := e.load()
	if err != nil {
		return nil, err
	}

	vec, err := e.emb.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches := TopK(vec, snap.Units, k)
	blocks := make([]Block, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, Block{Match: m, Trace: TraceOf(g, m.Unit.ID)})
	}
	return blocks, nil
}

// Ask answers a single question.
func (e *Engine) Ask(ctx context.Context, question string) (*Answer, error) {
	return e.Chat(ctx, nil, question)
}

// Chat answers question in the context of earlier turns.
func (e *Engine) Chat(ctx context.Context, history []llm.Message, question string) (*Answer, error) {
	blocks, err := e.FindContext(ctx, question, e.k)
	if err != nil {
		return nil, err
	}

	var text string
	if len(history) == 0 {
		text, err = e.llm.Complete(ctx, SystemPrompt, BuildPrompt(blocks, question))
	} else {
		text, err = e.llm.Generate(ctx, BuildMessages(blocks, history, question))
	}
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return &Answer{Text: text, Context: blocks}, nil
}

// load reads units and graph. The unit file is authoritative: a missing
// graph file, or one left over from a different save, is rebuilt from it.
func (e *Engine) load() (*store.Snapshot, *store.Graph, error) {
	snap, err := e.store.Load()
	if err != nil {
		return nil, nil, err
	}
	if snap.Len() == 0 {
		return nil, nil, store.ErrNoKnowledge
	}
	g, err := e.store.LoadGraph()
	if errors.Is(err, fs.ErrNotExist) {
		e.logger.Warn("graph file missing, rebuilding from units", "path", e.store.GraphPath())
		return snap, store.BuildGraph(snap.ByID()), nil
	}
	if err != nil {
		return nil, nil, err
	}
	if !g.Matches(snap.Units) {
		e.logger.Debug("graph file does not match units, rebuilding", "commit", snap.LastCommit)
		return snap, store.BuildGraph(snap.ByID()), nil
	}
	return snap, g, nil
}
