package client

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/safego"
	"github.com/philanthrohub/directory/internal/telemetry"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultStaleTime    = 60 * time.Second
)

// ErrCacheStopped is set on snapshots read after Stop when nothing was loaded.
var ErrCacheStopped = errors.New("organization cache stopped")

// Fetcher retrieves the full organization listing. *Client implements it.
type Fetcher interface {
	ListOrganizations(ctx context.Context) ([]models.Organization, error)
}

// Snapshot is one observed state of the cache. Organizations must be treated
// as read-only; it is shared between readers.
type Snapshot struct {
	Organizations []models.Organization
	// Version is the sequence number of the fetch that produced Organizations.
	// Zero means nothing has loaded yet.
	Version uint64
	// FetchedAt is when Organizations was fetched.
	FetchedAt time.Time
	// Err is the error from the most recent resolved fetch, nil after a
	// success. A failed refresh keeps the previous Organizations.
	Err error
}

// Loaded reports whether any fetch has succeeded.
func (s Snapshot) Loaded() bool {
	return s.Version > 0
}

// Cache serves the organization listing with stale-while-revalidate
// semantics. The first Get blocks until a fetch resolves. Later reads return
// immediately, refreshing in the background once the data is older than the
// stale time. Start adds a fixed-interval poll.
//
// Each fetch takes a sequence number when it is issued. A result is applied
// only if no fetch issued later has already resolved, so an older response
// never overwrites a newer one.
type Cache struct {
	fetcher      Fetcher
	pollInterval time.Duration
	staleTime    time.Duration
	now          func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	wg     sync.WaitGroup
	issued atomic.Uint64

	bgPending atomic.Bool

	mu         sync.RWMutex
	snap       Snapshot
	resolved   bool
	resolvedAt uint64
	invalid    bool
	generation uint64
	started    bool
	stopped    bool
	watchers   []chan struct{}
}

// NewCache creates a cache over fetcher. Non-positive durations fall back to
// DefaultPollInterval and DefaultStaleTime.
func NewCache(fetcher Fetcher, pollInterval, staleTime time.Duration) *Cache {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		fetcher:      fetcher,
		pollInterval: pollInterval,
		staleTime:    staleTime,
		now:          time.Now,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Get returns the current snapshot. It blocks on a fetch when nothing has
// resolved yet or after Invalidate, and returns early with ctx's error if ctx
// ends first.
func (c *Cache) Get(ctx context.Context) Snapshot {
	c.mu.RLock()
	snap, resolved, invalid, stopped := c.snap, c.resolved, c.invalid, c.stopped
	c.mu.RUnlock()

	if stopped {
		if !resolved {
			snap.Err = ErrCacheStopped
		}
		return snap
	}

	if !resolved || invalid {
		done := c.startFetch(nil)
		if done == nil {
			return c.Snapshot()
		}
		select {
		case <-done:
			return c.Snapshot()
		case <-ctx.Done():
			snap.Err = ctx.Err()
			return snap
		}
	}

	if c.isStale(snap) {
		c.refreshInBackground()
	}
	return snap
}

// Snapshot returns the current snapshot without triggering a fetch.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// Invalidate marks the cached listing as outdated. The next Get blocks on a
// fresh fetch that does not join any fetch already in flight.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.invalid = true
	c.generation++
	c.mu.Unlock()
}

// Refresh fetches now and waits for the result to resolve.
func (c *Cache) Refresh(ctx context.Context) Snapshot {
	done := c.startFetch(nil)
	if done == nil {
		return c.Snapshot()
	}
	select {
	case <-done:
	case <-ctx.Done():
	}
	return c.Snapshot()
}

// Changes returns a channel that receives a value whenever a fetch result is
// applied. Deliveries coalesce when the reader falls behind. The channel is
// closed by Stop.
func (c *Cache) Changes() <-chan struct{} {
	ch := make(chan struct{}, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		close(ch)
		return ch
	}
	c.watchers = append(c.watchers, ch)
	return ch
}

// Start begins polling every poll interval. It returns immediately.
func (c *Cache) Start() {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.wg.Add(1)
	c.mu.Unlock()

	slog.Debug("organization cache polling started", "interval", c.pollInterval)

	safego.Go("organization-cache-poll", func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				done := c.startFetch(nil)
				if done == nil {
					return
				}
				select {
				case <-done:
				case <-c.ctx.Done():
					return
				}
			case <-c.ctx.Done():
				return
			}
		}
	})
}

// Stop ends polling, cancels in-flight fetches and closes every Changes
// channel. It waits for the cache's goroutines to exit and is safe to call
// more than once.
func (c *Cache) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	for _, ch := range c.watchers {
		close(ch)
	}
	c.watchers = nil
	c.mu.Unlock()
}

func (c *Cache) isStale(snap Snapshot) bool {
	if snap.FetchedAt.IsZero() {
		return true
	}
	return c.now().Sub(snap.FetchedAt) >= c.staleTime
}

func (c *Cache) refreshInBackground() {
	if !c.bgPending.CompareAndSwap(false, true) {
		return
	}
	if c.startFetch(func() { c.bgPending.Store(false) }) == nil {
		c.bgPending.Store(false)
	}
}

// startFetch runs a fetch for the current generation, or joins the one in
// flight, on a tracked goroutine. The returned channel closes when it
// resolves. It returns nil once the cache is stopped.
func (c *Cache) startFetch(after func()) <-chan struct{} {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	gen := c.generation
	key := "organizations:" + strconv.FormatUint(gen, 10)
	c.wg.Add(1)
	c.mu.Unlock()

	done := make(chan struct{})
	safego.Go("organization-cache-fetch", func() {
		defer c.wg.Done()
		defer close(done)
		if after != nil {
			defer after()
		}
		_, _, _ = c.group.Do(key, func() (interface{}, error) {
			c.fetch(gen)
			return nil, nil
		})
	})
	return done
}

func (c *Cache) fetch(gen uint64) {
	seq := c.issued.Add(1)
	orgs, err := c.fetcher.ListOrganizations(c.ctx)
	c.apply(seq, gen, orgs, err)
}

// apply records a resolved fetch. Only a success issued in the current
// generation clears an Invalidate.
func (c *Cache) apply(seq, gen uint64, orgs []models.Organization, err error) {
	c.mu.Lock()
	if seq < c.resolvedAt {
		c.mu.Unlock()
		telemetry.ClientCacheRefreshesTotal.WithLabelValues(telemetry.RefreshSuperseded).Inc()
		slog.Debug("discarding superseded organization fetch", "seq", seq, "resolved", c.resolvedAt)
		return
	}
	c.resolvedAt = seq
	c.resolved = true

	if err != nil {
		var tfe *TransientFetchError
		if !errors.As(err, &tfe) {
			err = &TransientFetchError{Err: err}
		}
		c.snap.Err = err
		c.notifyLocked()
		c.mu.Unlock()

		telemetry.ClientCacheRefreshesTotal.WithLabelValues(telemetry.RefreshFailed).Inc()
		if c.ctx.Err() == nil {
			slog.Warn("organization fetch failed, keeping last-known listing", "seq", seq, "error", err)
		}
		return
	}

	c.snap = Snapshot{
		Organizations: orgs,
		Version:       seq,
		FetchedAt:     c.now(),
	}
	if gen == c.generation {
		c.invalid = false
	}
	c.notifyLocked()
	c.mu.Unlock()

	telemetry.ClientCacheRefreshesTotal.WithLabelValues(telemetry.RefreshApplied).Inc()
}

// notifyLocked must be called with c.mu held.
func (c *Cache) notifyLocked() {
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
