package pipeline

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/coords"
	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/framing"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/observability"
	"github.com/forevershiningA/memorial/pkg/personalize"
	"github.com/forevershiningA/memorial/pkg/placement"
	"github.com/forevershiningA/memorial/pkg/scene"
	"github.com/forevershiningA/memorial/pkg/silhouette"
	"github.com/forevershiningA/memorial/pkg/store"
)

// Runner executes renders and personalizations. Both CLI and API use it so
// caching and memoization are shared.
//
// The memo tables behind Resolver, Profiles and Masks grow for the life of
// the Runner. Multiple goroutines can safely use the same Runner.
type Runner struct {
	Catalog    *catalog.Catalog
	Source     assets.Source
	Paths      assets.Paths
	Resolver   *assets.Resolver
	Profiles   *silhouette.Builder
	Masks      *personalize.MaskLibrary
	Compositor *personalize.Compositor
	Tracker    *Tracker
	Cache      cache.Cache
	Keyer      cache.Keyer
	Logger     *log.Logger

	// AssetURL prefixes asset paths linked from composed scenes. Empty
	// links the bare relative path.
	AssetURL string
}

// NewRunner creates a runner reading assets from src.
// If cat is nil, the embedded catalog is used.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (persistent caching disabled).
func NewRunner(cat *catalog.Catalog, src assets.Source, c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if cat == nil {
		cat = catalog.Default()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	paths := assets.NewPaths(cat)
	return &Runner{
		Catalog:    cat,
		Source:     src,
		Paths:      paths,
		Resolver:   assets.NewResolver(src, assets.WithCache(c, keyer), assets.WithLogger(logger)),
		Profiles:   silhouette.NewBuilder(silhouette.WithCache(c, keyer), silhouette.WithLogger(logger)),
		Masks:      personalize.NewMaskLibrary(src, paths, personalize.WithMaskCache(c, keyer), personalize.WithMaskLogger(logger)),
		Compositor: personalize.NewCompositor(cat, personalize.WithLogger(logger)),
		Tracker:    NewTracker(),
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
	}
}

// =============================================================================
// Render
// =============================================================================

// Render runs compose → profile → place for rec. shot may be nil.
//
// Only invalid options, an invalid record, cancellation and staleness are
// returned as errors; asset failures degrade the result instead.
func (r *Runner) Render(ctx context.Context, rec *design.Record, shot *design.ScreenshotMeta, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if rec == nil || len(rec.Elements) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidDesign, "design has no elements")
	}
	logger := opts.Logger
	if opts.Session == "" {
		opts.Session = uuid.NewString()
		defer r.Tracker.Forget(opts.Session)
	}
	tok := r.Tracker.Begin(opts.Session, opts.DesignID)

	res := r.frame(rec, shot, opts)
	res.Stats.Motifs = len(rec.Motifs())

	// Stage 1: Compose
	composeStart := time.Now()
	c, err := r.compose(ctx, rec, res.Framing, opts)
	res.Stats.ComposeTime = time.Since(composeStart)
	observability.Pipeline().OnComposeComplete(ctx, opts.DesignID, err == nil && c.scene.Shaped, res.Stats.ComposeTime, err)
	if err != nil {
		return nil, err
	}
	res.Scene = c.scene
	res.Stats.Shaped = c.scene.Shaped

	logger.Info("composed scene",
		"design", opts.DesignID,
		"shape", c.shapePath,
		"shaped", c.scene.Shaped,
		"duration", res.Stats.ComposeTime)

	if err := r.checkCurrent(ctx, tok); err != nil {
		return nil, err
	}

	// Stage 2: Profile
	if !opts.SkipProfile && c.scene.Shaped {
		profileStart := time.Now()
		key := silhouette.Key{Shape: c.shapePath, Texture: c.texturePath, Frame: res.Framing.Frame}
		prof, err := r.Profiles.Build(ctx, key, c.scene.Sanitized)
		res.Stats.ProfileTime = time.Since(profileStart)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			logger.Warn("silhouette profile unavailable", "shape", c.shapePath, "err", err)
		default:
			res.Profile = prof
			res.Stats.Profiled = true
		}
	}

	if err := r.checkCurrent(ctx, tok); err != nil {
		return nil, err
	}

	// Stage 3: Place
	placeStart := time.Now()
	res.Placements = placement.Place(placement.Input{
		Record:     rec,
		Resolution: res.resolution,
		Framing:    res.Framing,
		Profile:    res.Profile,
		Intrinsic: func(m *design.Motif) geom.Rect {
			return r.Resolver.Dimensions(ctx, r.Paths.Motif(m.Asset()))
		},
		Options: opts.Placement,
	})
	res.Stats.PlaceTime = time.Since(placeStart)
	res.Stats.Elements = len(res.Placements)
	res.Stats.Snapped = placement.Snapped(res.Placements)

	if err := r.checkCurrent(ctx, tok); err != nil {
		return nil, err
	}
	observability.Pipeline().OnPlaceComplete(ctx, opts.DesignID, res.Stats.Elements, res.Stats.Snapped, res.Stats.PlaceTime)

	logger.Info("placed elements",
		"design", opts.DesignID,
		"mode", res.ModeName,
		"elements", res.Stats.Elements,
		"snapped", res.Stats.Snapped,
		"duration", res.Stats.PlaceTime)

	return &res.Result, nil
}

// RenderByID loads a design from st and renders it. opts.DesignID defaults
// to id.
func (r *Runner) RenderByID(ctx context.Context, st store.Store, id string, opts Options) (*Result, error) {
	entry, err := st.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if opts.DesignID == "" {
		opts.DesignID = id
	}
	return r.Render(ctx, entry.Record, entry.Screenshot, opts)
}

// rendering carries the coordinate resolution next to the public result.
type rendering struct {
	Result
	resolution coords.Resolution
}

// frame resolves the coordinate mode and the display framing.
func (r *Runner) frame(rec *design.Record, shot *design.ScreenshotMeta, opts Options) *rendering {
	res := coords.Resolve(rec)
	fr := framing.Compute(framing.FromRecord(rec, shot, opts.ViewportWidth, framing.PolicyFromCatalog(r.Catalog)))
	return &rendering{
		Result: Result{
			DesignID: opts.DesignID,
			Mode:     res.Mode,
			ModeName: res.Mode.String(),
			Tagged:   res.Tagged,
			Framing:  fr,
		},
		resolution: res,
	}
}

func (r *Runner) checkCurrent(ctx context.Context, tok Token) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.Tracker.Current(tok) {
		observability.Pipeline().OnStale(ctx, tok.DesignID)
		return ErrStale
	}
	return nil
}

// =============================================================================
// Compose
// =============================================================================

type composed struct {
	scene       *scene.Scene
	shapePath   string
	texturePath string
}

// compose loads the outline and textures concurrently, warms the motif
// dimension memo and builds the scene.
func (r *Runner) compose(ctx context.Context, rec *design.Record, fr framing.Framing, opts Options) (*composed, error) {
	logger := opts.Logger
	out := &composed{}

	finish := design.FinishTextured
	var baseRef string
	hs, hasHS := rec.Headstone()
	if hasHS {
		out.shapePath = r.Paths.Shape(hs.Shape)
		out.texturePath = r.Paths.Texture(hs.Texture)
		if hs.Finish != "" {
			finish = hs.Finish
		}
	}
	if opts.Finish != "" {
		finish = opts.Finish
	}
	base, hasBase := rec.Base()
	if hasBase {
		baseRef = base.Texture
	}
	if baseRef == "" {
		baseRef = r.Catalog.Finish.BaseTexture
	}
	basePath := r.Paths.Texture(baseRef)

	motifs := rec.Motifs()
	motifPaths := make([]string, 0, len(motifs))
	for _, m := range motifs {
		motifPaths = append(motifPaths, r.Paths.Motif(m.Asset()))
	}

	var shape []byte
	var textureHref, baseHref string
	g, gctx := errgroup.WithContext(ctx)
	if out.shapePath != "" {
		g.Go(func() error {
			data, err := r.Source.Fetch(gctx, out.shapePath)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Warn("shape unavailable", "asset", out.shapePath, "err", err)
				return nil
			}
			shape = data
			return nil
		})
	}
	if finish != design.FinishFlat {
		g.Go(func() error {
			textureHref = r.href(gctx, out.texturePath, opts)
			return gctx.Err()
		})
	}
	if hasBase {
		g.Go(func() error {
			baseHref = r.href(gctx, basePath, opts)
			return gctx.Err()
		})
	}
	g.Go(func() error {
		return r.Resolver.Prefetch(gctx, motifPaths)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	in := scene.Input{
		Shape:       shape,
		Finish:      scene.Textured,
		TextureHref: textureHref,
		FlatColor:   r.Catalog.Finish.FlatColor,
		Container:   fr.Frame,
	}
	if finish == design.FinishFlat {
		in.Finish = scene.Flat
	}
	if native, err := assets.Intrinsic(shape); len(shape) > 0 && err == nil && fr.Frame.W > 0 {
		in.TileSize = r.Catalog.TextureTile * native.W / fr.Frame.W
	}
	if hasBase && hasHS {
		in.Base = &scene.BaseSpec{
			WidthMM:     base.Width,
			HeightMM:    base.Height,
			Fill:        r.Catalog.Finish.BaseColor,
			TextureHref: baseHref,
		}
		in.HeadstoneHeightMM = hs.Height
	}

	sc, err := scene.Compose(in)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "compose scene")
	}
	if sc.Fallback != "" {
		logger.Warn("unshaped scene", "asset", out.shapePath, "reason", sc.Fallback)
	}
	out.scene = sc
	return out, nil
}

// href returns the reference a scene uses for the asset at path. Inlined
// assets that cannot be loaded yield "", which selects the flat fill.
func (r *Runner) href(ctx context.Context, path string, opts Options) string {
	if path == "" {
		return ""
	}
	if !opts.InlineAssets {
		if r.AssetURL == "" {
			return path
		}
		return strings.TrimRight(r.AssetURL, "/") + "/" + path
	}
	data, err := r.Source.Fetch(ctx, path)
	if err == nil {
		var uri string
		if uri, err = assets.DataURI(data); err == nil {
			return uri
		}
	}
	opts.Logger.Warn("texture unavailable", "asset", path, "err", err)
	return ""
}

// =============================================================================
// Personalize
// =============================================================================

// PersonalizeRequest is a photo personalization job.
type PersonalizeRequest struct {
	// Image is the encoded source photo.
	Image []byte
	// ImagePath loads the source from the asset source when Image is empty.
	ImagePath string
	Spec      personalize.CropSpec
}

// Personalize loads the source image and the mask concurrently, then
// composes synchronously. A mask that cannot be loaded is skipped; every
// other failure is returned.
func (r *Runner) Personalize(ctx context.Context, req PersonalizeRequest) (*personalize.Asset, error) {
	start := time.Now()
	asset, err := r.personalize(ctx, req)
	observability.Pipeline().OnPersonalizeComplete(ctx, req.Spec.Product, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("personalized photo",
		"product", req.Spec.Product,
		"mask", req.Spec.Mask,
		"masked", asset.Masked,
		"size_mm", geom.Size{W: asset.WidthMM, H: asset.HeightMM},
		"duration", time.Since(start))
	return asset, nil
}

func (r *Runner) personalize(ctx context.Context, req PersonalizeRequest) (*personalize.Asset, error) {
	spec := req.Spec
	spec.SetDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	var src image.Image
	var mask *personalize.Mask
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data := req.Image
		if len(data) == 0 {
			if req.ImagePath == "" {
				return errors.New(errors.ErrCodeInvalidInput, "no source image")
			}
			var err error
			if data, err = r.Source.Fetch(gctx, req.ImagePath); err != nil {
				return errors.Wrap(errors.ErrCodeAssetUnavailable, err, "load source image %s", req.ImagePath)
			}
		}
		img, _, err := assets.DecodeImage(data)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode source image")
		}
		src = img
		return nil
	})
	if spec.Mask != "" {
		g.Go(func() error {
			m, err := r.Masks.Load(gctx, spec.Mask)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.Logger.Warn("mask unavailable", "mask", spec.Mask, "err", err)
				return nil
			}
			mask = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return r.Compositor.Compose(src, mask, spec)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
