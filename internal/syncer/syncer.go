// Package syncer serializes syncs of one repository. At most one sync runs
// at a time; triggers that arrive meanwhile collapse into a single rerun.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
)

// ErrBusy is returned by SyncNow while another sync is in flight.
var ErrBusy = errors.New("a sync is already running")

// Status is the immediate answer to a trigger.
type Status string

const (
	StatusAlreadySynced Status = "already_synced"
	StatusStarted       Status = "sync_started"
	StatusQueued        Status = "sync_queued"
)

// Target performs the actual sync.
type Target interface {
	Sync(ctx context.Context, commit string) (*index.Result, error)
	LastCommit() (string, error)
}

// State is a point-in-time view of the orchestrator.
type State struct {
	Syncing    bool
	Pending    bool
	RunID      string
	LastResult *index.Result
	LastError  string
	LastRunAt  time.Time
}

// Syncer runs syncs against a Target one at a time.
type Syncer struct {
	target Target
	ctx    context.Context
	logger *slog.Logger

	mu            sync.Mutex
	running       bool
	pending       bool
	pendingCommit string
	runID         string
	lastResult    *index.Result
	lastErr       error
	lastRunAt     time.Time

	wg sync.WaitGroup
}

// New creates a Syncer. Background syncs run under ctx. A nil logger means
// slog.Default().
func New(ctx context.Context, target Target, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{target: target, ctx: ctx, logger: logger}
}

// Trigger answers a change notification without waiting for the sync. If a
// sync is in flight the commit is remembered and one more sync runs after
// the current one; further triggers before then only replace the commit.
func (s *Syncer) Trigger(commit string) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.pending = true
		s.pendingCommit = commit
		s.logger.Info("sync in flight, queued", "commit", commit, "run_id", s.runID)
		return StatusQueued, nil
	}

	last, err := s.target.LastCommit()
	if err != nil {
		return "", fmt.Errorf("read last commit: %w", err)
	}
	if commit != "" && commit == last {
		return StatusAlreadySynced, nil
	}

	s.running = true
	s.wg.Add(1)
	go s.loop(commit)
	return StatusStarted, nil
}

// SyncNow runs a sync in the calling goroutine. It returns ErrBusy instead
// of waiting when another sync is in flight.
func (s *Syncer) SyncNow(ctx context.Context, commit string) (*index.Result, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.running = true
	s.mu.Unlock()

	res, err := s.run(ctx, commit)

	s.mu.Lock()
	if s.pending {
		next := s.pendingCommit
		s.pending = false
		s.pendingCommit = ""
		s.wg.Add(1)
		go s.loop(next)
	} else {
		s.running = false
	}
	s.mu.Unlock()
	return res, err
}

// Wait blocks until no background sync is running or queued.
func (s *Syncer) Wait() {
	s.wg.Wait()
}

// State returns the current orchestrator state.
func (s *Syncer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := State{
		Syncing:    s.running,
		Pending:    s.pending,
		RunID:      s.runID,
		LastResult: s.lastResult,
		LastRunAt:  s.lastRunAt,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *Syncer) loop(commit string) {
	defer s.wg.Done()
	for {
		s.run(s.ctx, commit)

		s.mu.Lock()
		if !s.pending {
			s.running = false
			s.mu.Unlock()
			return
		}
		commit = s.pendingCommit
		s.pending = false
		s.pendingCommit = ""
		s.mu.Unlock()
	}
}

func (s *Syncer) run(ctx context.Context, commit string) (*index.Result, error) {
	runID := uuid.NewString()
	s.mu.Lock()
	s.runID = runID
	s.mu.Unlock()

	logger := s.logger.With("run_id", runID)
	logger.Info("sync started", "commit", commit)
	res, err := s.target.Sync(ctx, commit)
	if err != nil {
		logger.Error("sync failed", "commit", commit, "error", err)
	} else {
		logger.Info("sync finished", "commit", res.Commit, "up_to_date", res.UpToDate)
	}

	s.mu.Lock()
	s.lastResult = res
	s.lastErr = err
	s.lastRunAt = time.Now()
	s.mu.Unlock()
	return res, err
}
