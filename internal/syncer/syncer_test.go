package syncer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisproject/digital-twin-project-oracle/internal/index"
)

// fakeTarget blocks each sync until released and records overlap.
type fakeTarget struct {
	mu       sync.Mutex
	last     string
	commits  []string
	release  chan struct{}
	started  chan string
	inFlight atomic.Int32
	overlap  atomic.Bool
	err      error
}

func newFakeTarget(last string) *fakeTarget {
	return &fakeTarget{
		last:    last,
		release: make(chan struct{}),
		started: make(chan string, 16),
	}
}

func (f *fakeTarget) Sync(ctx context.Context, commit string) (*index.Result, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)

	f.started <- commit
	<-f.release

	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, commit)
	if f.err != nil {
		return nil, f.err
	}
	f.last = commit
	return &index.Result{Mode: index.ModeSync, Commit: commit}, nil
}

func (f *fakeTarget) LastCommit() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, nil
}

func (f *fakeTarget) synced() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commits...)
}

func waitStarted(t *testing.T, f *fakeTarget) string {
	t.Helper()
	select {
	case c := <-f.started:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not start")
		return ""
	}
}

func TestTrigger_AlreadySynced(t *testing.T) {
	f := newFakeTarget("c1")
	s := New(context.Background(), f, nil)

	st, err := s.Trigger("c1")
	require.NoError(t, err)
	assert.Equal(t, StatusAlreadySynced, st)
	assert.Empty(t, f.synced())
}

func TestTrigger_CoalescesIntoOneRerun(t *testing.T) {
	f := newFakeTarget("c0")
	s := New(context.Background(), f, nil)

	st, err := s.Trigger("c1")
	require.NoError(t, err)
	assert.Equal(t, StatusStarted, st)
	assert.Equal(t, "c1", waitStarted(t, f))
	assert.True(t, s.State().Syncing)

	for _, c := range []string{"c2", "c3", "c4"} {
		st, err := s.Trigger(c)
		require.NoError(t, err)
		assert.Equal(t, StatusQueued, st)
	}
	assert.True(t, s.State().Pending)

	f.release <- struct{}{}
	assert.Equal(t, "c4", waitStarted(t, f))
	f.release <- struct{}{}
	s.Wait()

	assert.Equal(t, []string{"c1", "c4"}, f.synced())
	assert.False(t, f.overlap.Load())
	state := s.State()
	assert.False(t, state.Syncing)
	assert.False(t, state.Pending)
	require.NotNil(t, state.LastResult)
	assert.Equal(t, "c4", state.LastResult.Commit)
	assert.NotEmpty(t, state.RunID)
}

func TestSyncNow_BusyWhileRunning(t *testing.T) {
	f := newFakeTarget("c0")
	s := New(context.Background(), f, nil)

	_, err := s.Trigger("c1")
	require.NoError(t, err)
	waitStarted(t, f)

	_, err = s.SyncNow(context.Background(), "c2")
	assert.ErrorIs(t, err, ErrBusy)

	f.release <- struct{}{}
	s.Wait()
}

func TestSyncNow_RunsPendingAfterwards(t *testing.T) {
	f := newFakeTarget("c0")
	s := New(context.Background(), f, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.SyncNow(context.Background(), "c1")
		done <- err
	}()
	waitStarted(t, f)

	st, err := s.Trigger("c2")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, st)

	f.release <- struct{}{}
	require.NoError(t, <-done)
	assert.Equal(t, "c2", waitStarted(t, f))
	f.release <- struct{}{}
	s.Wait()

	assert.Equal(t, []string{"c1", "c2"}, f.synced())
}

func TestState_RecordsFailure(t *testing.T) {
	f := newFakeTarget("c0")
	f.err = errors.New("boom")
	s := New(context.Background(), f, nil)

	_, err := s.Trigger("c1")
	require.NoError(t, err)
	waitStarted(t, f)
	f.release <- struct{}{}
	s.Wait()

	state := s.State()
	assert.Equal(t, "boom", state.LastError)
	assert.False(t, state.Syncing)
}
