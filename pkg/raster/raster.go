// Package raster renders vector scenes into off-screen pixel buffers.
//
// The silhouette builder and the mask compositor only need two things from
// a backend: paint a scene at a given size, then read alpha back. [Renderer]
// captures exactly that, and [SVGRenderer] implements it in pure Go on top
// of oksvg and rasterx.
package raster

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/forevershiningA/memorial/pkg/geom"
)

// DefaultMaxPixels bounds a single buffer allocation (about 64 MB RGBA).
const DefaultMaxPixels = 16 << 20

var (
	// ErrBufferUnavailable is returned when a buffer cannot be allocated for
	// the requested size.
	ErrBufferUnavailable = errors.New("raster buffer unavailable")

	// ErrInvalidScene is returned when a scene cannot be parsed or has no
	// usable viewport.
	ErrInvalidScene = errors.New("invalid vector scene")
)

// Renderer paints a vector scene into a w x h buffer.
type Renderer interface {
	Render(scene []byte, w, h int, target Target) (*Buffer, error)
}

// Target decides where a scene's viewport lands inside the buffer.
type Target interface {
	// Place returns the destination rectangle, in buffer pixels, that the
	// full viewBox maps onto.
	Place(viewBox geom.Rect, w, h int) geom.Rect
}

type containTarget struct{}

// Contain fits the viewport uniformly and centers it.
var Contain Target = containTarget{}

func (containTarget) Place(vb geom.Rect, w, h int) geom.Rect {
	fit := geom.Contain(vb.Size(), geom.Size{W: float64(w), H: float64(h)})
	return geom.Rect{X: fit.OffX, Y: fit.OffY, W: fit.DrawW, H: fit.DrawH}
}

type stretchTarget struct{}

// Stretch maps the viewport onto the whole buffer, non-uniformly.
var Stretch Target = stretchTarget{}

func (stretchTarget) Place(_ geom.Rect, w, h int) geom.Rect {
	return geom.Rect{W: float64(w), H: float64(h)}
}

// Window maps a sub-rectangle of the viewport, given in normalized 0..1
// fractions, onto the whole buffer. Content outside the window is clipped.
type Window geom.Rect

func (win Window) Place(_ geom.Rect, w, h int) geom.Rect {
	if win.W <= 0 || win.H <= 0 {
		return Stretch.Place(geom.Rect{}, w, h)
	}
	fw, fh := float64(w)/win.W, float64(h)/win.H
	return geom.Rect{X: -win.X * fw, Y: -win.Y * fh, W: fw, H: fh}
}

// SVGRenderer is the software backend.
type SVGRenderer struct {
	// MaxPixels caps w*h; zero means DefaultMaxPixels.
	MaxPixels int
}

// NewSVGRenderer returns a software renderer with default limits.
func NewSVGRenderer() *SVGRenderer { return &SVGRenderer{} }

// Render implements Renderer.
func (r *SVGRenderer) Render(scene []byte, w, h int, target Target) (*Buffer, error) {
	limit := r.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if w <= 0 || h <= 0 || w*h > limit {
		return nil, fmt.Errorf("%w: %dx%d", ErrBufferUnavailable, w, h)
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(scene), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	vb := geom.Rect{X: icon.ViewBox.X, Y: icon.ViewBox.Y, W: icon.ViewBox.W, H: icon.ViewBox.H}
	if vb.Empty() {
		return nil, fmt.Errorf("%w: empty viewBox", ErrInvalidScene)
	}
	if target == nil {
		target = Contain
	}
	dst := target.Place(vb, w, h)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	icon.SetTarget(dst.X, dst.Y, dst.W, dst.H)
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1.0)

	return &Buffer{img: img, ViewBox: vb, Placed: dst}, nil
}

var _ Renderer = (*SVGRenderer)(nil)
