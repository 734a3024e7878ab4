package placement

import (
	"math"

	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/geom"
)

// Options tunes top-band snapping. Fractions are relative to the frame.
type Options struct {
	// MotifBand: motifs above this fraction of the half-height snap.
	MotifBand float64
	// EdgeInset keeps samples away from the frame's left and right edges.
	EdgeInset float64
	// SlopeSpan is the column distance used to estimate the local slope.
	SlopeSpan int
	// Margin is the gap kept below the edge on flat regions.
	Margin float64
	// SlopeBias widens the gap on steep regions, up to Margin*(1+SlopeBias).
	SlopeBias float64
	// Grid is the quantization step in frame pixels.
	Grid float64
}

// DefaultOptions are the tuned defaults.
var DefaultOptions = Options{
	MotifBand: 0.18,
	EdgeInset: 0.018,
	SlopeSpan: 6,
	Margin:    0.012,
	SlopeBias: 0.75,
	Grid:      0.5,
}

// snap moves p so that its top sits a small margin below the silhouette
// edge. Without a profile p is left as authored. Positions are frame
// coordinates; only the element's height carries compensation.
func (n *normalizer) snap(p *Placement, o Options) {
	prof := n.in.Profile
	w, h := n.frame.W, n.frame.H
	if prof == nil || w <= 0 || h <= 0 || len(prof.TopY) == 0 {
		return
	}
	comp := n.in.Framing.Compensation
	if comp <= 0 {
		comp = 1
	}

	// Frame-pixel column of the element center, scaled to the profile.
	cx := p.X + w/2
	inset := o.EdgeInset * w
	cx = geom.Clamp(cx, inset, w-inset)
	col := cx * float64(prof.Width) / w

	rowScale := float64(prof.Height) / h
	edge := prof.Sample(col) / rowScale
	if edge >= h {
		return
	}
	slope := math.Min(math.Abs(prof.Slope(col, o.SlopeSpan)), 1)
	margin := o.Margin * h * (1 + o.SlopeBias*slope)

	half := n.height(p) * comp / 2
	center := geom.Quantize(edge+margin+half, o.Grid)
	p.Y = center - h/2
	p.Snapped = true
}

// height is the element's frame-unit height before display scaling.
func (n *normalizer) height(p *Placement) float64 {
	if p.Kind == design.KindInscription {
		return p.FontSize
	}
	return p.Height
}
