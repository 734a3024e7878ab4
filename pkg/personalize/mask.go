package personalize

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/observability"
	"github.com/forevershiningA/memorial/pkg/raster"
)

// metricSize is the long edge of the buffer masks are measured in.
const metricSize = 512

// maskThreshold is the alpha a mask pixel must exceed to count as visible.
const maskThreshold = 8

// Metrics describe a mask's visible content.
type Metrics struct {
	// ViewBox is the mask's declared viewport.
	ViewBox geom.Rect `json:"view_box"`
	// Bounds is the opaque content as 0..1 fractions of the viewport.
	Bounds geom.Rect `json:"bounds"`
	// Aspect is the width/height of the visible content in mask units.
	Aspect float64 `json:"aspect"`
}

// Mask is a loaded mask asset.
type Mask struct {
	Name string
	SVG  []byte
	Metrics
}

// Measure renders svg and reports the normalized bounds of its opaque
// content.
func Measure(r raster.Renderer, svg []byte) (Metrics, error) {
	vb, err := assets.Intrinsic(svg)
	if err != nil {
		return Metrics{}, err
	}
	w, h := metricSize, metricSize
	if vb.W > vb.H {
		h = max(1, int(math.Round(metricSize*vb.H/vb.W)))
	} else {
		w = max(1, int(math.Round(metricSize*vb.W/vb.H)))
	}
	buf, err := r.Render(svg, w, h, raster.Stretch)
	if err != nil {
		return Metrics{}, err
	}
	bounds, ok := buf.NormalizedBounds(maskThreshold)
	if !ok {
		return Metrics{}, fmt.Errorf("mask has no visible content")
	}
	return Metrics{
		ViewBox: vb,
		Bounds:  bounds,
		Aspect:  (bounds.W * vb.W) / (bounds.H * vb.H),
	}, nil
}

// MaskLibrary loads masks by catalog name and memoizes their metrics.
type MaskLibrary struct {
	src      assets.Source
	paths    assets.Paths
	renderer raster.Renderer
	cache    cache.Cache
	keyer    cache.Keyer
	logger   *log.Logger

	mu    sync.RWMutex
	masks map[string]*Mask
	group singleflight.Group
}

// MaskOption configures a MaskLibrary.
type MaskOption func(*MaskLibrary)

// WithMaskCache persists mask metrics.
func WithMaskCache(c cache.Cache, k cache.Keyer) MaskOption {
	return func(l *MaskLibrary) {
		if c != nil {
			l.cache = c
		}
		if k != nil {
			l.keyer = k
		}
	}
}

// WithMaskRenderer replaces the software renderer.
func WithMaskRenderer(r raster.Renderer) MaskOption {
	return func(l *MaskLibrary) {
		if r != nil {
			l.renderer = r
		}
	}
}

// WithMaskLogger sets the logger.
func WithMaskLogger(lg *log.Logger) MaskOption {
	return func(l *MaskLibrary) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewMaskLibrary returns a library reading masks from src.
func NewMaskLibrary(src assets.Source, paths assets.Paths, opts ...MaskOption) *MaskLibrary {
	l := &MaskLibrary{
		src:      src,
		paths:    paths,
		renderer: raster.NewSVGRenderer(),
		cache:    cache.NewNullCache(),
		keyer:    cache.NewDefaultKeyer(),
		logger:   log.Default(),
		masks:    make(map[string]*Mask),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the named mask.
func (l *MaskLibrary) Load(ctx context.Context, name string) (*Mask, error) {
	if name == "" {
		return nil, fmt.Errorf("mask name is empty")
	}
	l.mu.RLock()
	m, ok := l.masks[name]
	l.mu.RUnlock()
	if ok {
		return m, nil
	}
	v, err, _ := l.group.Do(name, func() (any, error) {
		return l.load(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	m = v.(*Mask)
	l.mu.Lock()
	l.masks[name] = m
	l.mu.Unlock()
	return m, nil
}

func (l *MaskLibrary) load(ctx context.Context, name string) (*Mask, error) {
	path := l.paths.Mask(name)
	data, err := l.src.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("mask %s: %w", name, err)
	}
	m := &Mask{Name: name, SVG: data}

	key := l.keyer.MaskKey(path)
	if raw, hit, cerr := l.cache.Get(ctx, key); cerr == nil && hit {
		if json.Unmarshal(raw, &m.Metrics) == nil && m.Aspect > 0 {
			observability.Cache().OnCacheHit(ctx, "mask")
			return m, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "mask")

	if m.Metrics, err = Measure(l.renderer, data); err != nil {
		return nil, fmt.Errorf("mask %s: %w", name, err)
	}
	l.logger.Debug("mask measured", "mask", name, "aspect", m.Aspect)
	if enc, merr := json.Marshal(m.Metrics); merr == nil {
		if l.cache.Set(ctx, key, enc, cache.TTLMask) == nil {
			observability.Cache().OnCacheSet(ctx, "mask", len(enc))
		}
	}
	return m, nil
}
