package pagecache

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/beaconhillfe/bhfe-web/internal/log"
	"github.com/beaconhillfe/bhfe-web/internal/xerrors"
)

const (
	DefaultMaxEntries     = 2000
	DefaultRefreshTimeout = 30 * time.Second
)

// Lookup results, also used as metric labels.
const (
	Hit    = "hit"
	Stale  = "stale"
	Miss   = "miss"
	Bypass = "bypass"
)

// Page is one rendered response.
type Page struct {
	Status      int
	ContentType string
	Body        []byte
	Template    string
}

// NotFound reports whether the page is a cached negative result.
func (p Page) NotFound() bool { return p.Status == http.StatusNotFound }

// FillFunc renders the page for a key.
type FillFunc func(ctx context.Context) (Page, error)

type Metrics interface {
	IncCacheLookup(result string)
	SetCacheEntries(n int)
	IncCacheRefresh(ok bool)
	IncCacheEviction()
}

type Options struct {
	MaxEntries     int
	RefreshTimeout time.Duration
	Logger         log.Logger
	Metrics        Metrics
	Now            func() time.Time
}

type entry struct {
	page       Page
	expires    time.Time
	refreshing bool
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group

	max            int
	refreshTimeout time.Duration
	logger         log.Logger
	metrics        Metrics
	now            func() time.Time

	// wg tracks background refreshes so tests and shutdown can wait.
	wg sync.WaitGroup
}

func New(opts Options) *Cache {
	c := &Cache{
		entries:        make(map[string]*entry),
		max:            opts.MaxEntries,
		refreshTimeout: opts.RefreshTimeout,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
		now:            opts.Now,
	}
	if c.max <= 0 {
		c.max = DefaultMaxEntries
	}
	if c.refreshTimeout <= 0 {
		c.refreshTimeout = DefaultRefreshTimeout
	}
	if c.logger == nil {
		c.logger = log.Nop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Get returns the page for key and how it was served (Hit, Stale or Miss).
// A stale entry triggers at most one background refresh through fill. On a
// miss, concurrent callers share one fill; canceling ctx abandons the wait
// but not the fill.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, fill FillFunc) (Page, string, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok {
		p := e.page
		if c.now().Before(e.expires) {
			c.mu.Unlock()
			c.count(Hit)
			return p, Hit, nil
		}
		start := !e.refreshing
		e.refreshing = true
		c.mu.Unlock()
		if start {
			c.wg.Add(1)
			go c.refresh(context.WithoutCancel(ctx), key, ttl, fill)
		}
		c.count(Stale)
		return p, Stale, nil
	}
	c.mu.Unlock()

	c.count(Miss)
	// the shared fill outlives any one caller; each caller waits on its own ctx
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(detached, c.refreshTimeout)
		defer cancel()
		p, err := c.fillOnce(fctx, key, fill)
		if err != nil {
			return Page{}, err
		}
		c.store(key, p, ttl)
		return p, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return Page{}, Miss, xerrors.Wrapf(r.Err, "fill %s", key)
		}
		return r.Val.(Page), Miss, nil
	case <-ctx.Done():
		return Page{}, Miss, xerrors.Wrapf(ctx.Err(), "fill %s", key)
	}
}

// fillOnce runs fill and turns a panic into an error, since DoChan runs fill
// off the caller's goroutine.
func (c *Cache) fillOnce(ctx context.Context, key string, fill FillFunc) (p Page, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = xerrors.Newf("fill %s panicked: %v", key, v)
		}
	}()
	return fill(ctx)
}

func (c *Cache) refresh(ctx context.Context, key string, ttl time.Duration, fill FillFunc) {
	defer c.wg.Done()
	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	_, err, _ := c.group.Do(key, func() (any, error) {
		p, err := fill(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, p, ttl)
		return p, nil
	})
	if c.metrics != nil {
		c.metrics.IncCacheRefresh(err == nil)
	}
	if err != nil {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok {
			e.refreshing = false
		}
		c.mu.Unlock()
		c.logger.Warn(ctx, "page refresh failed, serving stale copy", "key", key, "err", err)
	}
}

func (c *Cache) store(key string, p Page, ttl time.Duration) {
	c.mu.Lock()
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.max {
		c.evictLocked()
	}
	c.entries[key] = &entry{page: p, expires: c.now().Add(ttl)}
	n := len(c.entries)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetCacheEntries(n)
	}
}

// evictLocked drops the entry closest to (or furthest past) expiry.
func (c *Cache) evictLocked() {
	var (
		victim string
		oldest time.Time
		found  bool
	)
	for k, e := range c.entries {
		if !found || e.expires.Before(oldest) {
			victim, oldest, found = k, e.expires, true
		}
	}
	if found {
		delete(c.entries, victim)
		if c.metrics != nil {
			c.metrics.IncCacheEviction()
		}
	}
}

// Purge drops key so the next Get fills synchronously.
func (c *Cache) Purge(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	n := len(c.entries)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.SetCacheEntries(n)
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Wait blocks until in-flight background refreshes finish.
func (c *Cache) Wait() { c.wg.Wait() }

// CountBypass records a request that skipped the cache, such as a preview.
func (c *Cache) CountBypass() { c.count(Bypass) }

func (c *Cache) count(result string) {
	if c.metrics != nil {
		c.metrics.IncCacheLookup(result)
	}
}
