package locations

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lora-console/pkg/logger"
	"lora-console/pkg/model"
	"lora-console/pkg/store"
)

type fakeFetcher struct {
	mu      sync.Mutex
	results [][]model.NodeReport
	errs    []error
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context) ([]model.NodeReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.results[len(f.results)-1], nil
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPollOnceReplacesSnapshotAndNotifies(t *testing.T) {
	st := store.NewMemoryStore()
	f := &fakeFetcher{results: [][]model.NodeReport{{{ID: "a"}, {ID: "b"}}}}
	p := NewPoller(f, st, nil, time.Minute, logger.Discard())
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	var seen []store.Snapshot
	p.OnRefresh(func(s store.Snapshot) { seen = append(seen, s) })

	require.NoError(t, p.PollOnce(context.Background()))
	snap, _ := st.Snapshot()
	assert.Len(t, snap.Reports, 2)
	assert.Equal(t, at, snap.FetchedAt)
	require.Len(t, seen, 1)
	assert.Equal(t, snap, seen[0])
}

func TestPollOnceFailureKeepsPreviousSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	f := &fakeFetcher{
		results: [][]model.NodeReport{{{ID: "a"}}},
		errs:    []error{nil, errors.New("boom")},
	}
	p := NewPoller(f, st, nil, time.Minute, logger.Discard())
	notified := 0
	p.OnRefresh(func(store.Snapshot) { notified++ })

	require.NoError(t, p.PollOnce(context.Background()))
	assert.Error(t, p.PollOnce(context.Background()))

	snap, _ := st.Snapshot()
	assert.Equal(t, []model.NodeReport{{ID: "a"}}, snap.Reports)
	assert.Equal(t, 1, notified)
}

func TestRunPollsImmediatelyAndOnTicks(t *testing.T) {
	st := store.NewMemoryStore()
	f := &fakeFetcher{results: [][]model.NodeReport{{{ID: "a"}}}}
	p := NewPoller(f, st, nil, 10*time.Millisecond, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return f.Calls() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestRestoreFromCache(t *testing.T) {
	ctx := context.Background()
	cache, err := store.OpenSnapshotCache(ctx, filepath.Join(t.TempDir(), "snap.db"))
	require.NoError(t, err)
	defer cache.Close()

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := []model.NodeReport{{ID: "cached", Latitude: 1, Longitude: 2, Port: 18, ReportedAt: at}}

	// first console instance polls and writes the cache
	first := NewPoller(&fakeFetcher{results: [][]model.NodeReport{seed}}, store.NewMemoryStore(), cache, time.Minute, logger.Discard())
	first.now = func() time.Time { return at }
	require.NoError(t, first.PollOnce(ctx))

	// a restarted instance restores before polling
	st := store.NewMemoryStore()
	second := NewPoller(&fakeFetcher{results: [][]model.NodeReport{nil}}, st, cache, time.Minute, logger.Discard())
	require.NoError(t, second.Restore(ctx))
	snap, _ := st.Snapshot()
	assert.Equal(t, seed, snap.Reports)
	assert.Equal(t, at, snap.FetchedAt)
}
