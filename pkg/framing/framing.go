// Package framing fits an authoring frame into a responsive display area.
package framing

import (
	"math"

	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/geom"
)

// Compensation bounds.
const (
	CompensationTolerance = 0.5 // accepted relative deviation of physical vs frame size
	MaxCompensation       = 3.0
)

// Policy is the maximum container width rule.
type Policy struct {
	MobileBreakpoint float64 `json:"mobile_breakpoint"`
	DesktopMaxWidth  float64 `json:"desktop_max_width"`
}

// DefaultPolicy matches the default catalog.
var DefaultPolicy = Policy{MobileBreakpoint: 768, DesktopMaxWidth: 800}

// PolicyFromCatalog converts catalog framing settings.
func PolicyFromCatalog(c *catalog.Catalog) Policy {
	if c == nil {
		return DefaultPolicy
	}
	return Policy{MobileBreakpoint: c.Framing.MobileBreakpoint, DesktopMaxWidth: c.Framing.DesktopMaxWidth}
}

// MaxWidth returns the container width cap for a viewport.
func (p Policy) MaxWidth(viewport float64) float64 {
	if viewport <= 0 {
		return p.DesktopMaxWidth
	}
	if viewport < p.MobileBreakpoint || p.DesktopMaxWidth <= 0 {
		return viewport
	}
	return math.Min(viewport, p.DesktopMaxWidth)
}

// Input collects everything the calculator depends on.
type Input struct {
	// Frame is the recorded authoring canvas (init_width x init_height).
	Frame geom.Size
	// Cropped is the cropped reference-image size, if known.
	Cropped geom.Size
	// MillimeterDesign pins the frame to the recorded canvas.
	MillimeterDesign bool
	// Physical is the headstone's recorded width/height.
	Physical geom.Size
	// PhysicalInMillimeters disables compensation.
	PhysicalInMillimeters bool
	ViewportWidth         float64
	Policy                Policy
}

// Framing is the computed fit.
type Framing struct {
	Frame        geom.Size `json:"frame"`
	Display      geom.Size `json:"display"`
	Scale        float64   `json:"scale"`
	OffsetX      float64   `json:"offset_x"`
	OffsetY      float64   `json:"offset_y"`
	Compensation float64   `json:"compensation"`
	UsedCrop     bool      `json:"used_crop"`
}

// ToDisplay maps a center-origin frame coordinate along one axis to display
// pixels: offset + (coord + frameDim/2) * scale. Compensation only scales
// element sizes, never positions.
func (f Framing) ToDisplay(coord, frameDim, offset float64) float64 {
	return offset + (coord+frameDim/2)*f.Scale
}

// DisplayX maps a frame x coordinate to display pixels.
func (f Framing) DisplayX(x float64) float64 { return f.ToDisplay(x, f.Frame.W, f.OffsetX) }

// DisplayY maps a frame y coordinate to display pixels.
func (f Framing) DisplayY(y float64) float64 { return f.ToDisplay(y, f.Frame.H, f.OffsetY) }

// Compute derives the display framing. It is a pure function of in.
func Compute(in Input) Framing {
	frame := in.Frame
	used := false
	if !in.MillimeterDesign && !in.Cropped.Empty() {
		frame, used = in.Cropped, true
	}
	out := Framing{Frame: frame, Compensation: 1, UsedCrop: used}
	if frame.Empty() {
		return out
	}

	maxW := in.Policy.MaxWidth(in.ViewportWidth)
	displayW := frame.W
	if maxW > 0 && maxW < displayW {
		displayW = maxW
	}
	displayH := frame.H * displayW / frame.W
	out.Display = geom.Size{W: displayW, H: displayH}
	out.Scale = math.Min(displayW/frame.W, displayH/frame.H)
	out.OffsetX = (displayW - frame.W*out.Scale) / 2
	out.OffsetY = (displayH - frame.H*out.Scale) / 2

	if !in.PhysicalInMillimeters {
		out.Compensation = compensation(in.Physical, frame)
	}
	return out
}

// compensation returns the multiplier that enlarges content whose physical
// size is well below the frame. It never shrinks content.
func compensation(phys, frame geom.Size) float64 {
	var ratio float64
	switch {
	case phys.W > 0 && frame.W > 0:
		ratio = phys.W / frame.W
	case phys.H > 0 && frame.H > 0:
		ratio = phys.H / frame.H
	default:
		return 1
	}
	if math.Abs(ratio-1) <= CompensationTolerance {
		return 1
	}
	return geom.Clamp(1/ratio, 1, MaxCompensation)
}

// FromRecord builds an Input from a decoded record and optional screenshot
// metadata.
func FromRecord(rec *design.Record, shot *design.ScreenshotMeta, viewport float64, policy Policy) Input {
	in := Input{ViewportWidth: viewport, Policy: policy}
	if f, ok := rec.Frame(); ok {
		in.Frame = f.Size()
	}
	if hs, ok := rec.Headstone(); ok {
		in.Physical = geom.Size{W: hs.Width, H: hs.Height}
	}
	if crop, ok := shot.CroppedSize(); ok {
		in.Cropped = crop
	}
	in.MillimeterDesign = rec.UsesMillimeterMotifs()
	in.PhysicalInMillimeters = rec.PhysicalInMillimeters()
	return in
}
