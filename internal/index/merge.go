package index

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/lumisproject/digital-twin-project-oracle/internal/enrich"
	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
	"github.com/lumisproject/digital-twin-project-oracle/internal/footprint"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
)

// Enricher produces a unit's summary and embedding. ok is false when the
// unit should be left out of the store.
type Enricher interface {
	Enrich(ctx context.Context, name, code string) (e enrich.Enrichment, ok bool)
}

// MergeStats counts what a merge did with each distinct draft.
type MergeStats struct {
	Drafts   int
	Reused   int
	Enriched int
	Dropped  int
	// Removed counts previous units that were not found again.
	Removed int
}

// ProgressFunc reports progress of a long-running stage.
type ProgressFunc func(stage string, done, total int)

type job struct {
	draft extractor.Draft
	fp    string
}

// Reconcile merges freshly extracted drafts into the previous units and
// returns the new unit set. A draft whose id and footprint match a previous
// unit keeps that unit verbatim; every other draft is enriched, and dropped
// if enrichment yields nothing. Previous units without a matching draft are
// not carried over. When an id occurs more than once among drafts the last
// occurrence wins.
//
// At most workers enrichments run at once. If ctx is cancelled Reconcile
// returns ctx.Err() and no result.
func Reconcile(
	ctx context.Context,
	old map[string]store.Unit,
	drafts []extractor.Draft,
	enr Enricher,
	workers int,
	onProgress ProgressFunc,
) (map[string]store.Unit, MergeStats, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	drafts = lastWins(drafts)
	stats := MergeStats{Drafts: len(drafts)}
	merged := make(map[string]store.Unit, len(drafts))

	seen := make(map[string]bool, len(drafts))
	var jobs []job
	for _, d := range drafts {
		seen[d.ID] = true
		fp := footprint.Of(d.Code)
		if prev, ok := old[d.ID]; ok && prev.Footprint == fp {
			merged[d.ID] = prev
			stats.Reused++
			enrich.RecordOutcome(enrich.OutcomeReused)
			continue
		}
		jobs = append(jobs, job{draft: d, fp: fp})
	}
	for id := range old {
		if !seen[id] {
			stats.Removed++
		}
	}

	results := make([]*store.Unit, len(jobs))
	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, ok := enr.Enrich(gctx, j.draft.Name, j.draft.Code)
			if onProgress != nil {
				onProgress("Enriching units...", int(done.Add(1)), len(jobs))
			}
			if !ok {
				return nil
			}
			results[i] = &store.Unit{
				ID:        j.draft.ID,
				FilePath:  j.draft.FilePath,
				Summary:   e.Summary,
				Embedding: e.Embedding,
				Footprint: j.fp,
				Calls:     j.draft.Calls,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, MergeStats{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, MergeStats{}, err
	}

	for _, u := range results {
		if u == nil {
			stats.Dropped++
			continue
		}
		merged[u.ID] = *u
		stats.Enriched++
	}
	return merged, stats, nil
}

// lastWins removes drafts whose id occurs again later, keeping the order of
// the surviving drafts.
func lastWins(drafts []extractor.Draft) []extractor.Draft {
	last := make(map[string]int, len(drafts))
	for i, d := range drafts {
		last[d.ID] = i
	}
	if len(last) == len(drafts) {
		return drafts
	}
	out := make([]extractor.Draft, 0, len(last))
	for i, d := range drafts {
		if last[d.ID] == i {
			out = append(out, d)
		}
	}
	return out
}
