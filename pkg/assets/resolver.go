package assets

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/observability"
)

// prefetchLimit bounds concurrent fetches during Prefetch.
const prefetchLimit = 8

// Resolver memoizes intrinsic viewport dimensions of vector assets.
//
// Successful measurements are kept for the Resolver's lifetime (and in the
// optional persistent cache). Failures are logged and answered with
// DefaultSize but not memoized, so a later lookup may still succeed.
type Resolver struct {
	src    Source
	cache  cache.Cache
	keyer  cache.Keyer
	logger *log.Logger

	mu    sync.RWMutex
	dims  map[string]geom.Rect
	group singleflight.Group
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCache adds a persistent cache behind the in-memory memo.
func WithCache(c cache.Cache, k cache.Keyer) ResolverOption {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
		if k != nil {
			r.keyer = k
		}
	}
}

// WithLogger sets the logger for absorbed failures.
func WithLogger(l *log.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver returns a Resolver reading from src.
func NewResolver(src Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		src:    src,
		cache:  cache.NewNullCache(),
		keyer:  cache.NewDefaultKeyer(),
		logger: log.Default(),
		dims:   make(map[string]geom.Rect),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dimensions returns the native viewport of the asset at path, or
// DefaultSize if it cannot be measured.
func (r *Resolver) Dimensions(ctx context.Context, path string) geom.Rect {
	d, _ := r.Lookup(ctx, path)
	return d
}

// Lookup is Dimensions with an indicator of whether the asset was measured.
func (r *Resolver) Lookup(ctx context.Context, path string) (geom.Rect, bool) {
	if path == "" {
		return DefaultSize, false
	}
	r.mu.RLock()
	d, ok := r.dims[path]
	r.mu.RUnlock()
	if ok {
		return d, true
	}

	v, err, _ := r.group.Do(path, func() (any, error) {
		return r.measure(ctx, path)
	})
	if err != nil {
		r.logger.Warn("intrinsic size unavailable", "asset", path, "err", err)
		return DefaultSize, false
	}
	d = v.(geom.Rect)
	r.mu.Lock()
	r.dims[path] = d
	r.mu.Unlock()
	return d, true
}

func (r *Resolver) measure(ctx context.Context, path string) (geom.Rect, error) {
	key := r.keyer.DimensionsKey(path)
	if data, hit, err := r.cache.Get(ctx, key); err == nil && hit {
		var d geom.Rect
		if json.Unmarshal(data, &d) == nil && !d.Empty() {
			observability.Cache().OnCacheHit(ctx, "dims")
			return d, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "dims")

	data, err := r.src.Fetch(ctx, path)
	if err != nil {
		return geom.Rect{}, err
	}
	d, err := Intrinsic(data)
	if err != nil {
		return geom.Rect{}, err
	}
	if enc, err := json.Marshal(d); err == nil {
		if r.cache.Set(ctx, key, enc, cache.TTLDimensions) == nil {
			observability.Cache().OnCacheSet(ctx, "dims", len(enc))
		}
	}
	return d, nil
}

// Prefetch measures all paths concurrently. Individual failures are
// absorbed; only context cancellation is returned.
func (r *Resolver) Prefetch(ctx context.Context, paths []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchLimit)
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		g.Go(func() error {
			r.Lookup(gctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// Len returns the number of memoized entries.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.dims)
}

// Reset drops every memoized entry.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dims = make(map[string]geom.Rect)
}
