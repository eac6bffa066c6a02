// Package enrich asks the completion and embedding capabilities for a unit's
// summary and vector.
package enrich

import (
	"context"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lumisproject/digital-twin-project-oracle/internal/embedder"
	"github.com/lumisproject/digital-twin-project-oracle/internal/footprint"
	"github.com/lumisproject/digital-twin-project-oracle/internal/llm"
)

// SystemPrompt instructs the model to summarize or flag boilerplate.
const SystemPrompt = "Summarize logic in one sentence. If boilerplate or empty, return: SKIP"

// Sentinel is the reply that marks a unit as boilerplate.
const Sentinel = "SKIP"

const defaultMemoSize = 4096

// Enrichment is the generated part of a code unit.
type Enrichment struct {
	Summary   string
	Embedding []float32
}

// Enricher produces enrichments. It never returns an error: any failure
// means the unit gets no enrichment.
type Enricher struct {
	llm    llm.Completer
	emb    embedder.Embedder
	logger *slog.Logger
	// boilerplate remembers footprints the model already declined.
	boilerplate *lru.Cache[string, struct{}]
}

// New creates an Enricher. A nil logger means slog.Default().
func New(c llm.Completer, e embedder.Embedder, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	memo, _ := lru.New[string, struct{}](defaultMemoSize)
	return &Enricher{llm: c, emb: e, logger: logger, boilerplate: memo}
}

// Enrich returns the summary and embedding for one unit. ok is false when
// the unit is boilerplate or either capability failed.
func (e *Enricher) Enrich(ctx context.Context, name, code string) (Enrichment, bool) {
	fp := footprint.Of(code)
	if e.boilerplate.Contains(fp) {
		RecordOutcome(OutcomeSkipped)
		return Enrichment{}, false
	}

	summary, err := e.llm.Complete(ctx, SystemPrompt, "Analyze: "+code)
	if err != nil {
		e.logger.Warn("completion failed", "unit", name, "error", err)
		RecordOutcome(OutcomeFailed)
		return Enrichment{}, false
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		// Not a verdict; the unit is asked about again on the next sync.
		e.logger.Warn("completion is empty", "unit", name)
		RecordOutcome(OutcomeFailed)
		return Enrichment{}, false
	}
	if IsSentinel(summary) {
		e.boilerplate.Add(fp, struct{}{})
		e.logger.Debug("unit skipped as boilerplate", "unit", name)
		RecordOutcome(OutcomeSkipped)
		return Enrichment{}, false
	}

	vec, err := e.emb.Embed(ctx, code)
	if err != nil {
		e.logger.Warn("embedding failed", "unit", name, "error", err)
		RecordOutcome(OutcomeFailed)
		return Enrichment{}, false
	}
	if len(vec) == 0 {
		e.logger.Warn("embedding is empty", "unit", name)
		RecordOutcome(OutcomeFailed)
		return Enrichment{}, false
	}

	RecordOutcome(OutcomeEnriched)
	return Enrichment{Summary: summary, Embedding: vec}, true
}

// IsSentinel reports whether a completion is the boilerplate marker, ignoring
// case, surrounding space and trailing punctuation.
func IsSentinel(completion string) bool {
	s := strings.TrimSpace(completion)
	s = strings.TrimRight(s, ".!;:")
	s = strings.Trim(s, "\"'`*")
	return strings.EqualFold(s, Sentinel)
}
