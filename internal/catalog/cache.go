package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/bomquote/internal/bom"
	"github.com/JonMunkholm/bomquote/internal/logging"
)

// CacheOptions configures a Cache.
type CacheOptions struct {
	// TTL is how long a snapshot is reused. Zero keeps it until Refresh.
	TTL time.Duration
	// LoadTimeout bounds a single load. Zero means no timeout.
	LoadTimeout time.Duration
	// Vocabulary folds catalog families and grades. Nil uses the default.
	Vocabulary *bom.Vocabulary
	// OnLoad is called after every load attempt.
	OnLoad func(products int, err error)
}

// Cache holds an indexed catalog snapshot and reloads it from its Source
// once it is older than the TTL. Concurrent reloads are collapsed into one.
type Cache struct {
	src  Source
	opts CacheOptions
	now  func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *bom.Catalog
	loadedAt time.Time
}

// NewCache returns an empty cache; the first Catalog call loads it.
func NewCache(src Source, opts CacheOptions) *Cache {
	if opts.Vocabulary == nil {
		opts.Vocabulary = bom.DefaultVocabulary()
	}
	return &Cache{src: src, opts: opts, now: time.Now}
}

// Source returns the underlying source.
func (c *Cache) Source() Source { return c.src }

// Catalog returns the current snapshot, reloading it when stale. When a
// reload fails and an older snapshot exists, the older one is served.
func (c *Cache) Catalog(ctx context.Context) (*bom.Catalog, error) {
	c.mu.RLock()
	snap, loadedAt := c.snapshot, c.loadedAt
	c.mu.RUnlock()

	if snap != nil && (c.opts.TTL == 0 || c.now().Sub(loadedAt) < c.opts.TTL) {
		return snap, nil
	}

	fresh, err := c.Refresh(ctx)
	if err != nil {
		if snap != nil {
			logging.FromContext(ctx).Warn("catalog reload failed, serving stale snapshot",
				"source", c.src.Name(),
				"age", c.now().Sub(loadedAt).Round(time.Second).String(),
				"error", err,
			)
			return snap, nil
		}
		return nil, err
	}
	return fresh, nil
}

// Refresh loads the source now and replaces the snapshot on success.
func (c *Cache) Refresh(ctx context.Context) (*bom.Catalog, error) {
	v, err, _ := c.group.Do("load", func() (any, error) {
		return c.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*bom.Catalog), nil
}

func (c *Cache) load(ctx context.Context) (*bom.Catalog, error) {
	// The load is shared by every waiting caller, so one caller going away
	// must not cancel it.
	loadCtx := context.WithoutCancel(ctx)
	if c.opts.LoadTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(loadCtx, c.opts.LoadTimeout)
		defer cancel()
	}

	start := c.now()
	products, err := c.src.Products(loadCtx)
	if c.opts.OnLoad != nil {
		c.opts.OnLoad(len(products), err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, c.src.Name(), err)
	}

	snap := bom.NewCatalog(products, c.opts.Vocabulary)

	c.mu.Lock()
	c.snapshot = snap
	c.loadedAt = c.now()
	c.mu.Unlock()

	logging.FromContext(ctx).Info("catalog loaded",
		"source", c.src.Name(),
		"products", snap.Len(),
		"duration", c.now().Sub(start).String(),
	)
	return snap, nil
}
