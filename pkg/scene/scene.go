package scene

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/geom"
)

// Element ids injected into composed scenes.
const (
	TexturePatternID = "memorial-texture"
	BasePatternID    = "memorial-base-texture"
	BaseID           = "memorial-base"
	GradientID       = "memorial-fallback"
)

// SanitizedFill is the opaque placeholder fill of the raster-safe twin.
const SanitizedFill = "#000000"

// Finish selects how the stone surface is filled.
type Finish int

const (
	Textured Finish = iota
	Flat
)

// BaseSpec describes the base slab in millimeters.
type BaseSpec struct {
	WidthMM     float64
	HeightMM    float64
	Fill        string
	TextureHref string
}

// Input is everything Compose needs.
type Input struct {
	// Shape is the outline document. Nil selects the unshaped fallback.
	Shape []byte

	Finish      Finish
	TextureHref string
	FlatColor   string
	// TileSize is the texture tile edge in outline units.
	TileSize float64

	Base *BaseSpec
	// HeadstoneHeightMM converts base millimeters to outline units.
	HeadstoneHeightMM float64

	// Container is the display box the scene will be shown in.
	Container geom.Size
}

// Scene is the composed result.
type Scene struct {
	SVG       []byte    `json:"-"`
	Sanitized []byte    `json:"-"`
	Shaped    bool      `json:"shaped"`
	Native    geom.Rect `json:"native"`
	Content   geom.Rect `json:"content"`
	ViewBox   geom.Rect `json:"view_box"`
	Base      geom.Rect `json:"base"`
	HasBase   bool      `json:"has_base"`
	// Fallback holds the reason the scene is unshaped.
	Fallback string `json:"fallback,omitempty"`
}

// Compose builds the shape scene. It only fails when the fallback scene
// itself cannot be produced.
func Compose(in Input) (*Scene, error) {
	if len(in.Shape) == 0 {
		return fallback(in, "shape unavailable")
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(in.Shape); err != nil {
		return fallback(in, fmt.Sprintf("parse shape: %v", err))
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return fallback(in, "shape has no <svg> root")
	}
	native, err := assets.RootViewport(root)
	if err != nil {
		return fallback(in, err.Error())
	}

	ensureNamespaces(root)
	stripEffects(root)

	fill := in.FlatColor
	if fill == "" {
		fill = "#1c1c1c"
	}
	if in.Finish == Textured && in.TextureHref != "" {
		addPattern(defs(root), TexturePatternID, in.TextureHref, tileSize(in.TileSize, native), native.X, native.Y)
		fill = "url(#" + TexturePatternID + ")"
	}
	paintShapes(root, fill)

	out := &Scene{Shaped: true, Native: native, Content: native}
	if base, ok := baseRect(in, native); ok {
		baseFill := in.Base.Fill
		if baseFill == "" {
			baseFill = in.FlatColor
		}
		if in.Base.TextureHref != "" {
			addPattern(defs(root), BasePatternID, in.Base.TextureHref, tileSize(in.TileSize, native), base.X, base.Y)
			baseFill = "url(#" + BasePatternID + ")"
		}
		rect := root.CreateElement("rect")
		rect.CreateAttr("id", BaseID)
		setRect(rect, base)
		rect.CreateAttr("fill", baseFill)
		out.Base, out.HasBase = base, true
		out.Content = native.Union(base)
	}

	out.ViewBox = out.Content
	if !in.Container.Empty() {
		out.ViewBox = out.Content.ExpandToAspect(in.Container.Aspect())
	}
	setViewport(root, out.ViewBox)

	if out.SVG, err = doc.WriteToBytes(); err != nil {
		return nil, fmt.Errorf("write scene: %w", err)
	}
	if out.Sanitized, err = sanitize(doc); err != nil {
		return nil, fmt.Errorf("write sanitized scene: %w", err)
	}
	return out, nil
}

func tileSize(t float64, native geom.Rect) float64 {
	if t > 0 {
		return t
	}
	return native.W / 2
}

// baseRect sizes the base in outline units and centers it under the
// outline's original lower edge.
func baseRect(in Input, native geom.Rect) (geom.Rect, bool) {
	b := in.Base
	if b == nil || b.WidthMM <= 0 || b.HeightMM <= 0 || in.HeadstoneHeightMM <= 0 {
		return geom.Rect{}, false
	}
	ratio := native.H / in.HeadstoneHeightMM
	w, h := b.WidthMM*ratio, b.HeightMM*ratio
	return geom.Rect{
		X: native.X + native.W/2 - w/2,
		Y: native.Bottom(),
		W: w,
		H: h,
	}, true
}

// =============================================================================
// Document rewriting
// =============================================================================

var shapeTags = map[string]bool{
	"path": true, "rect": true, "circle": true, "ellipse": true,
	"polygon": true, "polyline": true,
}

// containerTags hold definitions that are not painted directly.
var containerTags = map[string]bool{
	"defs": true, "clipPath": true, "mask": true, "pattern": true,
	"symbol": true, "marker": true, "linearGradient": true, "radialGradient": true,
	"filter": true,
}

func ensureNamespaces(root *etree.Element) {
	if root.SelectAttr("xmlns") == nil {
		root.CreateAttr("xmlns", "http://www.w3.org/2000/svg")
	}
	if root.SelectAttr("xmlns:xlink") == nil {
		root.CreateAttr("xmlns:xlink", "http://www.w3.org/1999/xlink")
	}
}

// stripEffects removes filters and shadows.
func stripEffects(root *etree.Element) {
	for _, f := range root.FindElements("//filter") {
		if p := f.Parent(); p != nil {
			p.RemoveChild(f)
		}
	}
	for _, el := range root.FindElements("//*") {
		id := strings.ToLower(el.SelectAttrValue("id", ""))
		if strings.Contains(id, "shadow") {
			if p := el.Parent(); p != nil {
				p.RemoveChild(el)
			}
			continue
		}
		el.RemoveAttr("filter")
		stripStyle(el, "filter", "fill")
	}
}

// stripStyle drops the named properties from an inline style attribute.
func stripStyle(el *etree.Element, props ...string) {
	style := el.SelectAttrValue("style", "")
	if style == "" {
		return
	}
	var kept []string
	for _, decl := range strings.Split(style, ";") {
		name, _, _ := strings.Cut(decl, ":")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		drop := false
		for _, p := range props {
			if strings.EqualFold(name, p) {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, strings.TrimSpace(decl))
		}
	}
	if len(kept) == 0 {
		el.RemoveAttr("style")
		return
	}
	el.CreateAttr("style", strings.Join(kept, ";"))
}

// paintShapes sets fill on every painted shape. Unfilled outlines
// (fill="none") keep their stroke-only look.
func paintShapes(root *etree.Element, fill string) {
	for _, el := range paintable(root) {
		if el.SelectAttrValue("fill", "") == "none" {
			continue
		}
		el.CreateAttr("fill", fill)
	}
}

func paintable(root *etree.Element) []*etree.Element {
	var out []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, c := range e.ChildElements() {
			if containerTags[c.Tag] {
				continue
			}
			if shapeTags[c.Tag] {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func defs(root *etree.Element) *etree.Element {
	for _, c := range root.ChildElements() {
		if c.Tag == "defs" {
			return c
		}
	}
	d := etree.NewElement("defs")
	root.InsertChildAt(0, d)
	return d
}

func addPattern(d *etree.Element, id, href string, tile, x, y float64) {
	p := d.CreateElement("pattern")
	p.CreateAttr("id", id)
	p.CreateAttr("patternUnits", "userSpaceOnUse")
	p.CreateAttr("x", num(x))
	p.CreateAttr("y", num(y))
	p.CreateAttr("width", num(tile))
	p.CreateAttr("height", num(tile))
	img := p.CreateElement("image")
	img.CreateAttr("href", href)
	img.CreateAttr("xlink:href", href)
	img.CreateAttr("width", num(tile))
	img.CreateAttr("height", num(tile))
	img.CreateAttr("preserveAspectRatio", "xMidYMid slice")
}

func setRect(el *etree.Element, r geom.Rect) {
	el.CreateAttr("x", num(r.X))
	el.CreateAttr("y", num(r.Y))
	el.CreateAttr("width", num(r.W))
	el.CreateAttr("height", num(r.H))
}

func setViewport(root *etree.Element, vb geom.Rect) {
	root.CreateAttr("viewBox", vb.ViewBox())
	root.RemoveAttr("width")
	root.RemoveAttr("height")
	root.CreateAttr("preserveAspectRatio", "xMidYMid meet")
}

// sanitize writes a copy of doc with flat fills and no images or patterns.
func sanitize(doc *etree.Document) ([]byte, error) {
	cp := doc.Copy()
	root := cp.Root()
	for _, tag := range []string{"//image", "//pattern", "//use"} {
		for _, el := range root.FindElements(tag) {
			if p := el.Parent(); p != nil {
				p.RemoveChild(el)
			}
		}
	}
	for _, el := range paintable(root) {
		if el.SelectAttrValue("fill", "") == "none" {
			continue
		}
		el.CreateAttr("fill", SanitizedFill)
		if strings.HasPrefix(el.SelectAttrValue("stroke", ""), "url(") {
			el.RemoveAttr("stroke")
		}
	}
	return cp.WriteToBytes()
}

func num(v float64) string { return geom.FormatNumber(v) }
