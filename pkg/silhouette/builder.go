package silhouette

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/observability"
	"github.com/forevershiningA/memorial/pkg/raster"
)

// Key identifies a profile. Two scenes with the same key must render the
// same silhouette.
type Key struct {
	Shape   string
	Texture string
	Frame   geom.Size
	// Scene is the digest of the sanitized scene. The base slab and the
	// container aspect change the outline, so they are part of it. Build
	// fills it in when empty.
	Scene string
}

func (k Key) memo() string {
	return fmt.Sprintf("%s|%s|%gx%g|%s", k.Shape, k.Texture, k.Frame.W, k.Frame.H, k.Scene)
}

func (k Key) opts() cache.ProfileKeyOpts {
	return cache.ProfileKeyOpts{
		Shape:       k.Shape,
		Texture:     k.Texture,
		FrameWidth:  k.Frame.W,
		FrameHeight: k.Frame.H,
		Scene:       k.Scene,
	}
}

// Builder renders and memoizes profiles.
type Builder struct {
	renderer raster.Renderer
	cache    cache.Cache
	keyer    cache.Keyer
	logger   *log.Logger

	mu    sync.RWMutex
	memo  map[string]*Profile
	group singleflight.Group
}

// Option configures a Builder.
type Option func(*Builder)

// WithRenderer replaces the software renderer.
func WithRenderer(r raster.Renderer) Option {
	return func(b *Builder) {
		if r != nil {
			b.renderer = r
		}
	}
}

// WithCache persists profiles in c.
func WithCache(c cache.Cache, k cache.Keyer) Option {
	return func(b *Builder) {
		if c != nil {
			b.cache = c
		}
		if k != nil {
			b.keyer = k
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBuilder returns a Builder backed by the software renderer.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		renderer: raster.NewSVGRenderer(),
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		logger:   log.Default(),
		memo:     make(map[string]*Profile),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build returns the profile of the sanitized scene rendered at key.Frame.
// Profiles are memoized by key, so callers must not mutate the result.
func (b *Builder) Build(ctx context.Context, key Key, sanitized []byte) (*Profile, error) {
	if key.Frame.Empty() {
		return nil, fmt.Errorf("silhouette: empty frame %gx%g", key.Frame.W, key.Frame.H)
	}
	if len(sanitized) == 0 {
		return nil, fmt.Errorf("silhouette: no scene")
	}
	if key.Scene == "" {
		key.Scene = cache.Hash(sanitized)
	}
	mk := key.memo()
	b.mu.RLock()
	p, ok := b.memo[mk]
	b.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := b.group.Do(mk, func() (any, error) {
		return b.build(ctx, key, sanitized)
	})
	if err != nil {
		return nil, err
	}
	p = v.(*Profile)
	b.mu.Lock()
	b.memo[mk] = p
	b.mu.Unlock()
	return p, nil
}

func (b *Builder) build(ctx context.Context, key Key, sanitized []byte) (p *Profile, err error) {
	start := time.Now()
	cached := false
	defer func() {
		observability.Pipeline().OnProfileComplete(ctx, key.Shape, cached, time.Since(start), err)
	}()

	ck := b.keyer.ProfileKey(key.opts())
	if data, hit, cerr := b.cache.Get(ctx, ck); cerr == nil && hit {
		var hitProf Profile
		if json.Unmarshal(data, &hitProf) == nil && hitProf.Valid() {
			observability.Cache().OnCacheHit(ctx, "profile")
			cached = true
			return &hitProf, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "profile")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w := int(math.Round(key.Frame.W))
	h := int(math.Round(key.Frame.H))
	buf, err := b.renderer.Render(sanitized, w, h, raster.Contain)
	if err != nil {
		return nil, fmt.Errorf("silhouette: %w", err)
	}
	p = FromBuffer(buf)
	b.logger.Debug("profile built", "shape", key.Shape, "w", w, "h", h)

	if enc, merr := json.Marshal(p); merr == nil {
		if b.cache.Set(ctx, ck, enc, cache.TTLProfile) == nil {
			observability.Cache().OnCacheSet(ctx, "profile", len(enc))
		}
	}
	return p, nil
}

// Len returns the number of memoized profiles.
func (b *Builder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.memo)
}

// Reset drops memoized profiles. The persistent cache is untouched.
func (b *Builder) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memo = make(map[string]*Profile)
}
