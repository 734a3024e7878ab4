package silhouette

import (
	"math"

	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/raster"
)

const (
	// AlphaThreshold is the alpha a pixel must exceed to count as shape.
	AlphaThreshold = 8
	// BlurTaps is the box-blur window width.
	BlurTaps = 5
	// BlurPasses is how often the blur is applied.
	BlurPasses = 2
)

// Profile is a per-column top edge in frame pixels.
type Profile struct {
	// TopY[x] is the first shape row of column x, or Height if the column
	// is empty.
	TopY   []float64 `json:"top_y"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	// Fit is the contain transform the scene was rendered with.
	Fit geom.Fit `json:"fit"`
}

// FromBuffer scans a rendered buffer.
func FromBuffer(buf *raster.Buffer) *Profile {
	w, h := buf.Width(), buf.Height()
	top := make([]float64, w)
	for x := 0; x < w; x++ {
		top[x] = float64(h)
		for y := 0; y < h; y++ {
			if buf.AlphaAt(x, y) > AlphaThreshold {
				top[x] = geom.Clamp(float64(y-1), 0, float64(h))
				break
			}
		}
	}
	for i := 0; i < BlurPasses; i++ {
		top = boxBlur(top, BlurTaps)
	}

	p := &Profile{TopY: top, Width: w, Height: h}
	if vb := buf.ViewBox; !vb.Empty() {
		p.Fit = geom.Fit{
			OffX:  buf.Placed.X,
			OffY:  buf.Placed.Y,
			DrawW: buf.Placed.W,
			DrawH: buf.Placed.H,
			Scale: buf.Placed.W / vb.W,
		}
	}
	return p
}

// boxBlur averages each sample with its neighbours. Windows shrink at the
// edges instead of padding.
func boxBlur(in []float64, taps int) []float64 {
	half := taps / 2
	out := make([]float64, len(in))
	for i := range in {
		lo, hi := max(0, i-half), min(len(in)-1, i+half)
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += in[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}

// column returns the column nearest x, clamped into the profile.
func (p *Profile) column(x float64) int {
	if len(p.TopY) == 0 {
		return 0
	}
	c := int(math.Round(x))
	return min(max(c, 0), len(p.TopY)-1)
}

// Sample returns the top edge at frame column x.
func (p *Profile) Sample(x float64) float64 {
	if p == nil || len(p.TopY) == 0 {
		return 0
	}
	return p.TopY[p.column(x)]
}

// Slope returns the edge gradient around x in pixels per pixel, measured
// over span columns either side.
func (p *Profile) Slope(x float64, span int) float64 {
	if p == nil || len(p.TopY) < 2 || span <= 0 {
		return 0
	}
	c := p.column(x)
	lo, hi := max(0, c-span), min(len(p.TopY)-1, c+span)
	if hi == lo {
		return 0
	}
	return (p.TopY[hi] - p.TopY[lo]) / float64(hi-lo)
}

// Valid reports whether every sample lies in [0, Height].
func (p *Profile) Valid() bool {
	if p == nil || len(p.TopY) != p.Width {
		return false
	}
	for _, v := range p.TopY {
		if math.IsNaN(v) || v < 0 || v > float64(p.Height) {
			return false
		}
	}
	return true
}
