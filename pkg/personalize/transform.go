package personalize

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	"github.com/forevershiningA/memorial/pkg/geom"
)

// cropRect converts a percentage crop to source pixels, clamped to the
// image and at least one pixel in each direction.
func cropRect(bounds image.Rectangle, s CropSpec) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	x := geom.Clamp(s.X, 0, 100)
	y := geom.Clamp(s.Y, 0, 100)
	cw, ch := s.Width, s.Height
	if cw <= 0 {
		cw = 100 - x
	}
	if ch <= 0 {
		ch = 100 - y
	}
	cw = geom.Clamp(cw, 0, 100-x)
	ch = geom.Clamp(ch, 0, 100-y)

	x0 := int(math.Floor(x / 100 * w))
	y0 := int(math.Floor(y / 100 * h))
	x1 := int(math.Ceil((x + cw) / 100 * w))
	y1 := int(math.Ceil((y + ch) / 100 * h))
	x0 = min(x0, bounds.Dx()-1)
	y0 = min(y0, bounds.Dy()-1)
	x1 = max(x1, x0+1)
	y1 = max(y1, y0+1)
	return image.Rect(x0, y0, x1, y1).Add(bounds.Min).Intersect(bounds)
}

// transform applies rotation, flips and scale in that order.
func transform(img image.Image, s CropSpec) *image.NRGBA {
	out := imaging.Clone(img)
	if r := math.Mod(s.Rotation, 360); r != 0 {
		// imaging rotates counter-clockwise.
		out = imaging.Rotate(out, -r, color.Transparent)
	}
	if s.FlipX {
		out = imaging.FlipH(out)
	}
	if s.FlipY {
		out = imaging.FlipV(out)
	}
	scale := geom.Clamp(s.Scale/100, MinScale, MaxScale)
	if scale != 1 {
		b := out.Bounds()
		w := max(1, int(math.Round(float64(b.Dx())*scale)))
		h := max(1, int(math.Round(float64(b.Dy())*scale)))
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}
	return out
}

// fitToAspect pads img with transparency, centered, to the given aspect.
func fitToAspect(img *image.NRGBA, aspect float64) *image.NRGBA {
	b := img.Bounds()
	size := geom.FitToAspect(geom.Size{W: float64(b.Dx()), H: float64(b.Dy())}, aspect)
	w, h := ceil(size.W), ceil(size.H)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	canvas := imaging.New(w, h, color.Transparent)
	return imaging.PasteCenter(canvas, img)
}

// ceil rounds up, ignoring float noise just above an integer.
func ceil(v float64) int {
	return int(math.Ceil(v - 1e-9))
}
