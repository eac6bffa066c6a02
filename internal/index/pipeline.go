package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
	"github.com/lumisproject/digital-twin-project-oracle/internal/walker"
)

// fileDrafts is the extraction result of one file.
type fileDrafts struct {
	relPath string
	drafts  []extractor.Draft
	failed  bool
}

// ExtractStats counts files seen by an extraction pass.
type ExtractStats struct {
	Files  int
	Failed int
}

// extractTree walks root and extracts drafts from every supported file with
// at most workers files in flight. Drafts come back in walk order: files by
// relative path, then definitions in pre-order. Unreadable or unparsable
// files contribute nothing and are logged.
func extractTree(
	ctx context.Context,
	root string,
	ex *extractor.Extractor,
	workers int,
	logger *slog.Logger,
) ([]extractor.Draft, ExtractStats, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	files, err := walker.Collect(ctx, root, ex.Supports)
	if err != nil {
		return nil, ExtractStats{}, fmt.Errorf("walk %s: %w", root, err)
	}

	results := make([]fileDrafts, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, fi := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i].relPath = fi.RelPath
			src, err := os.ReadFile(fi.Path)
			if err != nil {
				logger.Warn("skipping unreadable file", "file", fi.RelPath, "error", err)
				results[i].failed = true
				return nil
			}
			drafts, err := ex.Extract(gctx, fi.RelPath, src)
			if err != nil {
				if errors.Is(err, extractor.ErrParse) {
					logger.Warn("skipping unparsable file", "file", fi.RelPath, "error", err)
				} else {
					logger.Warn("extraction failed", "file", fi.RelPath, "error", err)
				}
				results[i].failed = true
				return nil
			}
			results[i].drafts = drafts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, ExtractStats{}, err
	}

	stats := ExtractStats{Files: len(files)}
	var all []extractor.Draft
	for _, r := range results {
		if r.failed {
			stats.Failed++
		}
		all = append(all, r.drafts...)
	}
	return all, stats, nil
}
