package raster

import (
	"image"

	"github.com/forevershiningA/memorial/pkg/geom"
)

// Buffer is a rendered RGBA pixel buffer.
type Buffer struct {
	img *image.RGBA

	// ViewBox is the scene's native viewport.
	ViewBox geom.Rect
	// Placed is where the viewport landed in buffer pixels.
	Placed geom.Rect
}

// NewBuffer wraps an existing image.
func NewBuffer(img *image.RGBA) *Buffer { return &Buffer{img: img} }

// Image returns the underlying image.
func (b *Buffer) Image() *image.RGBA { return b.img }

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int { return b.img.Bounds().Dx() }

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int { return b.img.Bounds().Dy() }

// AlphaAt returns the alpha channel at (x, y); out-of-range reads are 0.
func (b *Buffer) AlphaAt(x, y int) uint8 {
	r := b.img.Bounds()
	if x < r.Min.X || y < r.Min.Y || x >= r.Max.X || y >= r.Max.Y {
		return 0
	}
	return b.img.Pix[b.img.PixOffset(x, y)+3]
}

// OpaqueBounds returns the smallest rectangle containing every pixel whose
// alpha exceeds threshold. It is empty when no pixel qualifies.
func (b *Buffer) OpaqueBounds(threshold uint8) image.Rectangle {
	r := b.img.Bounds()
	minX, minY, maxX, maxY := r.Max.X, r.Max.Y, r.Min.X-1, r.Min.Y-1
	for y := r.Min.Y; y < r.Max.Y; y++ {
		off := b.img.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			if b.img.Pix[off+3] > threshold {
				if x < minX {
					minX = x
				}
				if x > maxX {
					maxX = x
				}
				if y < minY {
					minY = y
				}
				maxY = y
			}
			off += 4
		}
	}
	if maxX < minX || maxY < minY {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// NormalizedBounds returns OpaqueBounds as 0..1 fractions of the buffer.
func (b *Buffer) NormalizedBounds(threshold uint8) (geom.Rect, bool) {
	ob := b.OpaqueBounds(threshold)
	if ob.Empty() {
		return geom.Rect{}, false
	}
	w, h := float64(b.Width()), float64(b.Height())
	return geom.Rect{
		X: float64(ob.Min.X) / w,
		Y: float64(ob.Min.Y) / h,
		W: float64(ob.Dx()) / w,
		H: float64(ob.Dy()) / h,
	}, true
}
