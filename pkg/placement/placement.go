package placement

import (
	"math"

	"github.com/forevershiningA/memorial/pkg/coords"
	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/framing"
	"github.com/forevershiningA/memorial/pkg/geom"
	"github.com/forevershiningA/memorial/pkg/silhouette"
)

// DefaultIntrinsic is used for motifs whose asset size is unknown.
var DefaultIntrinsic = geom.Rect{W: 100, H: 100}

// Input is everything Place depends on.
type Input struct {
	Record     *design.Record
	Resolution coords.Resolution
	Framing    framing.Framing
	// Profile enables top-band snapping. Nil skips it.
	Profile *silhouette.Profile
	// Intrinsic returns a motif asset's native size. Nil or an empty result
	// selects DefaultIntrinsic.
	Intrinsic func(m *design.Motif) geom.Rect
	// Options tunes the heuristics; the zero value means DefaultOptions.
	Options *Options
}

// Placement is one positioned element.
type Placement struct {
	// Index is the element's position in the record.
	Index int         `json:"index"`
	Kind  design.Kind `json:"kind"`
	Label string      `json:"label,omitempty"`
	Asset string      `json:"asset,omitempty"`

	// X and Y are the normalized center-origin frame coordinates after
	// axis reconciliation and snapping.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// Left and Top are the display-pixel anchor (element center).
	Left float64 `json:"left"`
	Top  float64 `json:"top"`
	// Width and Height are display pixels. Inscriptions report only a
	// height, equal to their display font size.
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height"`
	FontSize float64 `json:"font_size,omitempty"`

	Rotation float64 `json:"rotation,omitempty"`
	Color    string  `json:"color,omitempty"`
	FlipX    bool    `json:"flip_x,omitempty"`
	FlipY    bool    `json:"flip_y,omitempty"`

	Snapped       bool `json:"snapped,omitempty"`
	AxisCorrected bool `json:"axis_corrected,omitempty"`
}

// Place positions every inscription and motif of the record in authored
// order.
func Place(in Input) []Placement {
	if in.Record == nil {
		return nil
	}
	opts := DefaultOptions
	if in.Options != nil {
		opts = *in.Options
	}
	n := newNormalizer(in)
	surnames := surnameSet(in.Record)

	var out []Placement
	for i, el := range in.Record.Elements {
		var p Placement
		switch e := el.(type) {
		case *design.Inscription:
			p = n.inscription(e)
			if surnames[e] {
				n.snap(&p, opts)
			}
		case *design.Motif:
			p = n.motif(e, in.Intrinsic)
			if p.Y < -opts.MotifBand*n.frame.H/2 {
				n.snap(&p, opts)
			}
		default:
			continue
		}
		p.Index = i
		n.display(&p)
		out = append(out, p)
	}
	return out
}

// Snapped counts snapped placements.
func Snapped(ps []Placement) int {
	n := 0
	for _, p := range ps {
		if p.Snapped {
			n++
		}
	}
	return n
}

// =============================================================================
// Normalization
// =============================================================================

type normalizer struct {
	in    Input
	frame geom.Size
	// unit converts normalized record units to frame pixels.
	unit float64
	// axisRatio is heightRatio/widthRatio of the authoring canvas against
	// the headstone's physical size, or 0 when unknown.
	axisRatio float64
	// mmToFrame converts headstone millimeters to frame pixels.
	mmToFrame float64
	physical  bool
}

func newNormalizer(in Input) *normalizer {
	n := &normalizer{in: in, frame: in.Framing.Frame, unit: 1}
	n.physical = in.Resolution.Mode == coords.Physical

	hs, ok := in.Record.Headstone()
	if !ok {
		return n
	}
	if hs.Height > 0 && hs.InitHeight > 0 {
		n.mmToFrame = hs.InitHeight / hs.Height
	}
	if in.Resolution.Mode == coords.Millimeter && n.mmToFrame > 0 {
		n.unit = n.mmToFrame
	}
	if hs.Width > 0 && hs.Height > 0 && hs.InitWidth > 0 && hs.InitHeight > 0 {
		widthRatio := hs.InitWidth / hs.Width
		heightRatio := hs.InitHeight / hs.Height
		n.axisRatio = heightRatio / widthRatio
	}
	return n
}

// length normalizes a record length to logical frame pixels.
func (n *normalizer) length(v float64) float64 {
	return n.in.Resolution.Normalize(v) * n.unit
}

func (n *normalizer) position(c *design.Common) (x, y float64, corrected bool) {
	x, y = n.length(c.X), n.length(c.Y)
	x, corrected = n.reconcileX(x)
	return x, y, corrected
}

// reconcileX resolves the legacy axis bug. Some records divided X by the
// height ratio instead of the width ratio; the alternative candidate is
// x*heightRatio/widthRatio. The check only runs when the record is
// physical or x already lies outside the frame.
func (n *normalizer) reconcileX(x float64) (float64, bool) {
	w := n.frame.W
	if w <= 0 || n.axisRatio <= 0 || n.axisRatio == 1 {
		return x, false
	}
	limit := w/2 + coords.Margin(w)
	byWidth := x
	inWidth := math.Abs(byWidth) <= limit
	if !n.physical && inWidth {
		return x, false
	}

	byHeight := x * n.axisRatio
	inHeight := math.Abs(byHeight) <= limit
	switch {
	case inWidth && inHeight:
		if math.Abs(byHeight) > math.Abs(byWidth) {
			return byHeight, true
		}
		return byWidth, false
	case inWidth:
		return byWidth, false
	case inHeight:
		return byHeight, true
	}
	return geom.Clamp(byWidth, -w/2, w/2), true
}

func (n *normalizer) inscription(e *design.Inscription) Placement {
	x, y, corrected := n.position(&e.Common)
	return Placement{
		Kind:          design.KindInscription,
		Label:         e.Label,
		X:             x,
		Y:             y,
		FontSize:      n.length(e.FontSize),
		Rotation:      e.Rotation,
		Color:         e.Color,
		AxisCorrected: corrected,
	}
}

func (n *normalizer) motif(e *design.Motif, intrinsic func(*design.Motif) geom.Rect) Placement {
	x, y, corrected := n.position(&e.Common)

	native := DefaultIntrinsic
	if intrinsic != nil {
		if r := intrinsic(e); !r.Empty() {
			native = r
		}
	}
	var h float64
	switch {
	case e.Legacy() && n.mmToFrame > 0:
		h = e.HeightMM * n.mmToFrame
	case e.Ratio > 0:
		h = n.length(native.H * e.Ratio)
	default:
		h = n.length(native.H)
	}
	return Placement{
		Kind:          design.KindMotif,
		Asset:         e.Asset(),
		X:             x,
		Y:             y,
		Width:         h * native.Aspect(),
		Height:        h,
		Rotation:      e.Rotation,
		Color:         e.Color,
		FlipX:         e.ScaleX < 0,
		FlipY:         e.ScaleY < 0,
		AxisCorrected: corrected,
	}
}

// display maps a placement to display pixels. Sizes are in frame units
// until here.
func (n *normalizer) display(p *Placement) {
	f := n.in.Framing
	p.Left = f.DisplayX(p.X)
	p.Top = f.DisplayY(p.Y)
	k := f.Compensation * f.Scale
	p.Width *= k
	p.Height *= k
	p.FontSize *= k
	if p.Kind == design.KindInscription {
		p.Height = p.FontSize
	}
}

// surnameSet picks the inscriptions eligible for snapping: explicitly
// tagged surnames, or for untagged records the first line with the largest
// font.
func surnameSet(rec *design.Record) map[*design.Inscription]bool {
	set := make(map[*design.Inscription]bool)
	lines := rec.Inscriptions()
	if rec.HasRoleTags() {
		for _, i := range lines {
			if i.Role == design.RoleSurname {
				set[i] = true
			}
		}
		return set
	}
	var best *design.Inscription
	for _, i := range lines {
		if i.FontSize > 0 && (best == nil || i.FontSize > best.FontSize) {
			best = i
		}
	}
	if best != nil {
		set[best] = true
	}
	return set
}
