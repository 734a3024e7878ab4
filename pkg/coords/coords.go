// Package coords classifies the coordinate system a design record uses.
//
// Older records never tagged their unit. Coordinates are either physical
// device pixels (logical units multiplied by the device pixel ratio) or
// logical pixels, and the only way to tell is to compare them against the
// authoring frame: a point far outside the frame must have been scaled up.
package coords

import (
	"math"

	"github.com/forevershiningA/memorial/pkg/design"
)

// Mode is a resolved coordinate system.
type Mode int

const (
	Logical Mode = iota
	Physical
	Millimeter
)

func (m Mode) String() string {
	switch m {
	case Physical:
		return "physical"
	case Millimeter:
		return "mm"
	default:
		return "logical"
	}
}

// Margin constants for out-of-frame detection.
const (
	BaseMargin     = 10.0
	RelativeMargin = 0.02
)

// Margin returns the tolerance beyond the half-extent of a frame dimension.
func Margin(dim float64) float64 {
	return BaseMargin + RelativeMargin*dim
}

// Point is a raw element position.
type Point struct {
	X, Y float64
}

// Detect classifies raw coordinates against a frame of width w and height h.
// The result is Physical if any point lies outside the frame by more than
// the margin, else Logical. The classification is a pure function of its
// inputs.
func Detect(points []Point, w, h float64) Mode {
	if w <= 0 || h <= 0 {
		return Logical
	}
	limX := w/2 + Margin(w)
	limY := h/2 + Margin(h)
	for _, p := range points {
		if math.Abs(p.X) > limX || math.Abs(p.Y) > limY {
			return Physical
		}
	}
	return Logical
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Mode Mode
	// Divisor is applied to coordinates and font sizes. It is the DPR in
	// physical mode and 1 otherwise.
	Divisor float64
	// Tagged is true when the record declared its coordinate system.
	Tagged bool
}

// Normalize divides v by the resolution's divisor.
func (r Resolution) Normalize(v float64) float64 {
	if r.Divisor <= 0 {
		return v
	}
	return v / r.Divisor
}

// Resolve determines the coordinate mode of a record. An explicit tag on the
// headstone wins; untagged records are classified with Detect against the
// recorded authoring frame.
func Resolve(rec *design.Record) Resolution {
	hs, ok := rec.Headstone()
	if !ok {
		return Resolution{Mode: Logical, Divisor: 1}
	}
	dpr := hs.EffectiveDPR()

	switch hs.Coords {
	case design.CoordsPhysical:
		return Resolution{Mode: Physical, Divisor: dpr, Tagged: true}
	case design.CoordsLogical:
		return Resolution{Mode: Logical, Divisor: 1, Tagged: true}
	case design.CoordsMillimeter:
		return Resolution{Mode: Millimeter, Divisor: 1, Tagged: true}
	}

	var pts []Point
	for _, el := range rec.Placeable() {
		c := el.Attrs()
		pts = append(pts, Point{X: c.X, Y: c.Y})
	}
	if Detect(pts, hs.InitWidth, hs.InitHeight) == Physical {
		return Resolution{Mode: Physical, Divisor: dpr}
	}
	return Resolution{Mode: Logical, Divisor: 1}
}
