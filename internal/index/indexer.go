// Package index builds and incrementally refreshes the knowledge store from
// a repository working copy.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lumisproject/digital-twin-project-oracle/internal/extractor"
	"github.com/lumisproject/digital-twin-project-oracle/internal/store"
	"github.com/lumisproject/digital-twin-project-oracle/internal/vcs"
)

// ErrTransport wraps clone and pull failures.
var ErrTransport = errors.New("repository transport failed")

// Repository is the version-control capability.
type Repository interface {
	Clone(ctx context.Context, url, dir string) error
	Pull(ctx context.Context, dir string) error
	Head(dir string) (string, error)
	IsRepo(dir string) bool
}

// Config holds the indexer configuration.
type Config struct {
	RepoURL    string
	WorkDir    string
	Workers    int
	OnProgress ProgressFunc
}

// Result summarizes one rebuild or sync.
type Result struct {
	Mode string
	// Commit is the commit recorded in the store.
	Commit string
	// UpToDate is set when a sync found nothing to do.
	UpToDate bool
	Files    int
	Units    int
	MergeStats
	Duration time.Duration
}

// Indexer runs full rebuilds and incremental syncs against one repository
// and one store. It does not serialize its own calls; see package syncer.
type Indexer struct {
	cfg       Config
	repo      Repository
	store     *store.FileStore
	extractor *extractor.Extractor
	enricher  Enricher
	logger    *slog.Logger
}

// New creates an Indexer. A nil logger means slog.Default().
func New(cfg Config, repo Repository, st *store.FileStore, ex *extractor.Extractor, enr Enricher, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		cfg:       cfg,
		repo:      repo,
		store:     st,
		extractor: ex,
		enricher:  enr,
		logger:    logger,
	}
}

// Store returns the store the indexer writes to.
func (idx *Indexer) Store() *store.FileStore { return idx.store }

// LastCommit returns the commit recorded in the store, or "".
func (idx *Indexer) LastCommit() (string, error) {
	return idx.store.LastCommit()
}

// Rebuild discards the working copy, clones afresh and enriches every unit
// without consulting the previous store. The working copy is removed
// afterwards.
func (idx *Indexer) Rebuild(ctx context.Context) (res *Result, err error) {
	start := time.Now()
	defer func() { idx.finish(ModeRebuild, start, res, err) }()

	if idx.cfg.RepoURL == "" {
		return nil, fmt.Errorf("repository url is not configured")
	}
	if err := idx.cloneFresh(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(idx.cfg.WorkDir); rmErr != nil {
			idx.logger.Warn("failed to remove working copy", "dir", idx.cfg.WorkDir, "error", rmErr)
		}
	}()
	return idx.index(ctx, ModeRebuild, nil)
}

// Sync brings the store up to date with the repository. When commit is
// non-empty and equal to the recorded commit nothing is fetched or written.
func (idx *Indexer) Sync(ctx context.Context, commit string) (res *Result, err error) {
	start := time.Now()

	snap, err := idx.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	if commit != "" && commit == snap.LastCommit {
		idx.logger.Info("already synced", "commit", commit)
		return &Result{Mode: ModeSync, Commit: commit, UpToDate: true, Units: snap.Len()}, nil
	}

	defer func() { idx.finish(ModeSync, start, res, err) }()

	if idx.cfg.RepoURL == "" {
		return nil, fmt.Errorf("repository url is not configured")
	}
	if err := idx.updateWorkingCopy(ctx); err != nil {
		return nil, err
	}
	return idx.index(ctx, ModeSync, snap.ByID())
}

// updateWorkingCopy pulls, or clones when there is no usable working copy
// or the remote history was rewritten.
func (idx *Indexer) updateWorkingCopy(ctx context.Context) error {
	dir := idx.cfg.WorkDir
	if idx.repo.IsRepo(dir) {
		idx.logger.Info("pulling latest updates", "dir", dir)
		err := idx.repo.Pull(ctx, dir)
		if err == nil {
			return nil
		}
		if !errors.Is(err, vcs.ErrDiverged) {
			return fmt.Errorf("%w: %w", ErrTransport, err)
		}
		idx.logger.Warn("remote history rewritten, cloning again", "dir", dir)
	}
	return idx.cloneFresh(ctx)
}

// cloneFresh clones into a sibling directory and swaps it in only once the
// clone succeeded, so a failed clone leaves the current working copy as is.
func (idx *Indexer) cloneFresh(ctx context.Context) error {
	dir := filepath.Clean(idx.cfg.WorkDir)
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("create working copy parent: %w", err)
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".clone-*")
	if err != nil {
		return fmt.Errorf("create clone directory: %w", err)
	}

	idx.logger.Info("cloning repository", "url", idx.cfg.RepoURL, "dir", dir)
	if err := idx.repo.Clone(ctx, idx.cfg.RepoURL, tmp); err != nil {
		if rmErr := os.RemoveAll(tmp); rmErr != nil {
			idx.logger.Warn("failed to remove partial clone", "dir", tmp, "error", rmErr)
		}
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("remove working copy: %w", err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.RemoveAll(tmp)
		return fmt.Errorf("move clone into place: %w", err)
	}
	return nil
}

// index extracts the working copy, merges against old and persists the
// result under the working copy's HEAD.
func (idx *Indexer) index(ctx context.Context, mode string, old map[string]store.Unit) (*Result, error) {
	head, err := idx.repo.Head(idx.cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	drafts, xstats, err := extractTree(ctx, idx.cfg.WorkDir, idx.extractor, idx.cfg.Workers, idx.logger)
	if err != nil {
		return nil, err
	}
	idx.logger.Info("extracted units", "files", xstats.Files, "unparsable", xstats.Failed, "drafts", len(drafts))

	merged, mstats, err := Reconcile(ctx, old, drafts, idx.enricher, idx.cfg.Workers, idx.cfg.OnProgress)
	if err != nil {
		return nil, err
	}

	if err := idx.store.Save(store.NewSnapshot(head, merged), store.BuildGraph(merged)); err != nil {
		return nil, fmt.Errorf("save store: %w", err)
	}
	SetUnits(len(merged))

	return &Result{
		Mode:       mode,
		Commit:     head,
		Files:      xstats.Files,
		Units:      len(merged),
		MergeStats: mstats,
	}, nil
}

func (idx *Indexer) finish(mode string, start time.Time, res *Result, err error) {
	d := time.Since(start)
	if err != nil {
		recordSync(mode, "error", d)
		idx.logger.Error("sync failed", "mode", mode, "error", err, "duration", d)
		return
	}
	res.Duration = d
	recordSync(mode, "ok", d)
	idx.logger.Info("sync complete",
		"mode", mode,
		"commit", res.Commit,
		"units", res.Units,
		"reused", res.Reused,
		"enriched", res.Enriched,
		"dropped", res.Dropped,
		"removed", res.Removed,
		"duration", d,
	)
}
