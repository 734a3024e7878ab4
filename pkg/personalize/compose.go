package personalize

import (
	"bytes"
	"image"
	"image/png"
	"math"

	"github.com/HugoSmits86/nativewebp"
	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/raster"
)

// Compositor composes personalization assets.
type Compositor struct {
	catalog   *catalog.Catalog
	renderer  raster.Renderer
	logger    *log.Logger
	maxPixels int
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithRenderer replaces the mask renderer.
func WithRenderer(r raster.Renderer) Option {
	return func(c *Compositor) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Compositor) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxPixels bounds working buffers.
func WithMaxPixels(n int) Option {
	return func(c *Compositor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// NewCompositor returns a Compositor sizing products from cat. A nil
// catalog selects the embedded default.
func NewCompositor(cat *catalog.Catalog, opts ...Option) *Compositor {
	if cat == nil {
		cat = catalog.Default()
	}
	c := &Compositor{
		catalog:   cat,
		renderer:  raster.NewSVGRenderer(),
		logger:    log.Default(),
		maxPixels: raster.DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose crops, transforms, colors and masks src. mask may be nil, in
// which case the unmasked crop is kept.
func (c *Compositor) Compose(src image.Image, mask *Mask, spec CropSpec) (*Asset, error) {
	spec.SetDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if src == nil || src.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeInvalidInput, "source image is empty")
	}

	crop := cropRect(src.Bounds(), spec)
	work := imaging.Crop(src, crop)
	work = transform(work, spec)
	if err := c.checkSize(work.Bounds()); err != nil {
		return nil, err
	}
	work = applyColor(work, spec.Color)

	masked := false
	if mask != nil && mask.Aspect > 0 {
		work = fitToAspect(work, mask.Aspect)
		if err := c.checkSize(work.Bounds()); err != nil {
			return nil, err
		}
		out, err := c.applyMask(work, mask)
		if err != nil {
			return nil, err
		}
		work, masked = out, true
	}

	b := work.Bounds()
	aspect := float64(b.Dx()) / float64(b.Dy())
	wmm, hmm := c.physicalSize(spec.Product, spec.Variant, aspect)

	data, err := encode(work, spec.Format)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCompositing, err, "encode %s", spec.Format)
	}
	c.logger.Debug("personalized", "w", b.Dx(), "h", b.Dy(), "mask", maskName(mask), "color", spec.Color)

	return &Asset{
		ID:        uuid.NewString(),
		Format:    spec.Format,
		MediaType: spec.Format.MediaType(),
		Data:      data,
		Width:     b.Dx(),
		Height:    b.Dy(),
		WidthMM:   wmm,
		HeightMM:  hmm,
		Aspect:    aspect,
		Masked:    masked,
	}, nil
}

func (c *Compositor) checkSize(r image.Rectangle) error {
	if r.Empty() || r.Dx()*r.Dy() > c.maxPixels {
		return errors.New(errors.ErrCodeCompositing, "working buffer %dx%d unavailable", r.Dx(), r.Dy())
	}
	return nil
}

// applyMask keeps only the pixels where the mask is opaque, sampling the
// mask through its visible bounds, and trims the result to them.
func (c *Compositor) applyMask(img *image.NRGBA, mask *Mask) (*image.NRGBA, error) {
	b := img.Bounds()
	buf, err := c.renderer.Render(mask.SVG, b.Dx(), b.Dy(), raster.Window(mask.Bounds))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCompositing, err, "render mask %s", mask.Name)
	}

	out := imaging.Clone(img)
	for y := 0; y < b.Dy(); y++ {
		row := out.PixOffset(0, y)
		for x := 0; x < b.Dx(); x++ {
			i := row + x*4 + 3
			ma := uint32(buf.AlphaAt(x, y))
			out.Pix[i] = uint8((uint32(out.Pix[i])*ma + 127) / 255)
		}
	}

	trim := buf.OpaqueBounds(0)
	if trim.Empty() {
		return nil, errors.New(errors.ErrCodeCompositing, "mask %s left no visible pixels", mask.Name)
	}
	if trim.Eq(out.Bounds()) {
		return out, nil
	}
	return imaging.Crop(out, trim), nil
}

// physicalSize returns the asset size in millimeters. Products with discrete
// sizes keep the variant height and shrink proportionally when the width
// would overflow; others use the product or catalog default height.
func (c *Compositor) physicalSize(productID string, variant int, aspect float64) (float64, float64) {
	if aspect <= 0 || math.IsNaN(aspect) {
		aspect = 1
	}
	height := c.catalog.DefaultUnitHeightMM
	if p, ok := c.catalog.Product(productID); ok {
		if v, ok := p.Variant(variant); ok {
			w, h := v.Height*aspect, v.Height
			if w > v.Width {
				w, h = v.Width, v.Width/aspect
			}
			return round2(w), round2(h)
		}
		if p.DefaultHeightMM > 0 {
			height = p.DefaultHeightMM
		}
	}
	return round2(height * aspect), round2(height)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func encode(img image.Image, f Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f {
	case WebP:
		err = nativewebp.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func maskName(m *Mask) string {
	if m == nil {
		return ""
	}
	return m.Name
}
