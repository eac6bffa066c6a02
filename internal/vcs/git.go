// Package vcs fetches and updates the working copy with go-git.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// ErrDiverged is returned by Pull when the remote history no longer contains
// the local HEAD, as after a force push.
var ErrDiverged = errors.New("working copy diverged from remote")

// Git clones and pulls repositories in-process.
type Git struct {
	// Depth limits clone history; zero or less clones everything.
	Depth int
}

// New returns a Git client cloning with the given depth.
func New(depth int) *Git {
	return &Git{Depth: depth}
}

// Clone clones url into dir, which must not already hold a repository.
func (g *Git) Clone(ctx context.Context, url, dir string) error {
	opts := &git.CloneOptions{
		URL:          url,
		SingleBranch: true,
	}
	if g.Depth > 0 {
		opts.Depth = g.Depth
	}
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return fmt.Errorf("clone %s: %w", url, err)
	}
	return nil
}

// Pull fast-forwards the working copy in dir from origin. Being already up
// to date is not an error.
func (g *Git) Pull(ctx context.Context, dir string) error {
	repo, err := open(dir)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree %s: %w", dir, err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:   git.DefaultRemoteName,
		SingleBranch: true,
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return fmt.Errorf("pull %s: %w", dir, ErrDiverged)
	default:
		return fmt.Errorf("pull %s: %w", dir, err)
	}
}

// Head returns the commit hash checked out in dir.
func (g *Git) Head(dir string) (string, error) {
	repo, err := open(dir)
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// IsRepo reports whether dir holds a repository.
func (g *Git) IsRepo(dir string) bool {
	_, err := open(dir)
	return err == nil
}

func open(dir string) (*git.Repository, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	repo, err := git.PlainOpen(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository at %s: %w", absPath, err)
	}
	return repo, nil
}
