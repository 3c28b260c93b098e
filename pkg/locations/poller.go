package locations

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lora-console/pkg/model"
	"lora-console/pkg/store"
)

// Fetcher supplies the current node report collection.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.NodeReport, error)
}

// Poller refreshes the store snapshot on a fixed interval.
type Poller struct {
	fetcher  Fetcher
	store    store.NodeStore
	cache    *store.SnapshotCache
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	listeners []func(store.Snapshot)
}

// NewPoller creates a poller. cache may be nil.
func NewPoller(f Fetcher, st store.NodeStore, cache *store.SnapshotCache, interval time.Duration, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{
		fetcher:  f,
		store:    st,
		cache:    cache,
		interval: interval,
		logger:   log,
		now:      time.Now,
	}
}

// OnRefresh registers fn to run after every successful refresh.
func (p *Poller) OnRefresh(fn func(store.Snapshot)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Restore seeds the store from the sqlite cache when the store is still empty.
func (p *Poller) Restore(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	cur, err := p.store.Snapshot()
	if err != nil {
		return err
	}
	if !cur.FetchedAt.IsZero() {
		return nil
	}
	snap, ok, err := p.cache.Load(ctx)
	if err != nil || !ok {
		return err
	}
	if err := p.store.ReplaceReports(snap.Reports, snap.FetchedAt); err != nil {
		return err
	}
	p.logger.Info("restored node snapshot from cache", "nodes", len(snap.Reports), "fetched_at", snap.FetchedAt)
	return nil
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting node poller", "interval", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("node poll failed; keeping previous snapshot", "error", err)
		}
		select {
		case <-ctx.Done():
			p.logger.Info("node poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollOnce fetches once and replaces the snapshot on success.
func (p *Poller) PollOnce(ctx context.Context) error {
	reports, err := p.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}
	snap := store.Snapshot{Reports: reports, FetchedAt: p.now()}
	if err := p.store.ReplaceReports(snap.Reports, snap.FetchedAt); err != nil {
		return err
	}
	p.logger.Debug("node snapshot replaced", "nodes", len(reports))

	if p.cache != nil {
		if err := p.cache.Save(ctx, snap); err != nil {
			p.logger.Warn("snapshot cache save failed", "error", err)
		}
	}

	p.mu.Lock()
	listeners := append([]func(store.Snapshot){}, p.listeners...)
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(snap)
	}
	return nil
}
