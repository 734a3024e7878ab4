// Package geom holds the small 2-D value types shared by the framing,
// compositing and rasterization stages.
package geom

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Size is a width/height pair in an unspecified unit.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Aspect returns W/H, or 0 for a degenerate size.
func (s Size) Aspect() float64 {
	if s.H <= 0 {
		return 0
	}
	return s.W / s.H
}

// Empty reports whether either side is non-positive.
func (s Size) Empty() bool { return s.W <= 0 || s.H <= 0 }

// Rect is an axis-aligned rectangle. For SVG viewBoxes X/Y is the min corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Bottom() float64 { return r.Y + r.H }
func (r Rect) Size() Size      { return Size{W: r.W, H: r.H} }
func (r Rect) Aspect() float64 { return r.Size().Aspect() }
func (r Rect) Empty() bool     { return r.W <= 0 || r.H <= 0 }

// Union returns the smallest rectangle covering both r and o.
// An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := math.Min(r.X, o.X)
	y0 := math.Min(r.Y, o.Y)
	x1 := math.Max(r.Right(), o.Right())
	y1 := math.Max(r.Bottom(), o.Bottom())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ExpandToAspect grows r around its center along exactly one axis so that
// its aspect ratio equals aspect. A wider target grows the width; a taller
// target grows the height. The other axis is left untouched.
func (r Rect) ExpandToAspect(aspect float64) Rect {
	if r.Empty() || aspect <= 0 {
		return r
	}
	cur := r.Aspect()
	switch {
	case aspect > cur:
		w := r.H * aspect
		return Rect{X: r.X - (w-r.W)/2, Y: r.Y, W: w, H: r.H}
	case aspect < cur:
		h := r.W / aspect
		return Rect{X: r.X, Y: r.Y - (h-r.H)/2, W: r.W, H: h}
	}
	return r
}

// ViewBox formats r as an SVG viewBox attribute value.
func (r Rect) ViewBox() string {
	return strings.Join([]string{FormatNumber(r.X), FormatNumber(r.Y), FormatNumber(r.W), FormatNumber(r.H)}, " ")
}

// FormatNumber formats v for SVG attributes, rounded to 6 decimals so round
// trips through markup stay stable.
func FormatNumber(v float64) string {
	v = math.Round(v*1e6) / 1e6
	if v == 0 {
		v = 0 // normalize -0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseViewBox parses "minX minY width height", accepting commas and any
// whitespace as separators.
func ParseViewBox(s string) (Rect, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return Rect{}, fmt.Errorf("viewBox %q: want 4 numbers, got %d", s, len(fields))
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Rect{}, fmt.Errorf("viewBox %q: %w", s, err)
		}
		v[i] = n
	}
	r := Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}
	if r.Empty() {
		return Rect{}, fmt.Errorf("viewBox %q: non-positive size", s)
	}
	return r, nil
}

// ParseLength parses an SVG length such as "120", "120px" or "120.5pt",
// ignoring the unit. Percentages are rejected.
func ParseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasSuffix(s, "%") {
		return 0, false
	}
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		end--
	}
	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// Fit describes how a source box was placed inside a destination box.
type Fit struct {
	OffX  float64 `json:"off_x"`
	OffY  float64 `json:"off_y"`
	DrawW float64 `json:"draw_w"`
	DrawH float64 `json:"draw_h"`
	Scale float64 `json:"scale"`
}

// Contain scales src uniformly to fit inside dst and centers it, leaving
// margin on at most one axis (letterbox or pillarbox).
func Contain(src, dst Size) Fit {
	if src.Empty() || dst.Empty() {
		return Fit{}
	}
	scale := math.Min(dst.W/src.W, dst.H/src.H)
	w, h := src.W*scale, src.H*scale
	return Fit{
		OffX:  (dst.W - w) / 2,
		OffY:  (dst.H - h) / 2,
		DrawW: w,
		DrawH: h,
		Scale: scale,
	}
}

// FitToAspect returns the smallest box with the given aspect ratio that
// contains s while keeping one of its sides. A 500x400 box at aspect 1.0667
// becomes 500x468.75.
func FitToAspect(s Size, aspect float64) Size {
	if s.Empty() || aspect <= 0 {
		return s
	}
	if s.Aspect() > aspect {
		return Size{W: s.W, H: s.W / aspect}
	}
	return Size{W: s.H * aspect, H: s.H}
}

// Quantize rounds v to the nearest multiple of step.
func Quantize(v, step float64) float64 {
	if step <= 0 {
		return v
	}
	return math.Round(v/step) * step
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
