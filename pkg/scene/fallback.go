package scene

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/forevershiningA/memorial/pkg/geom"
)

// fallbackSize is used when no container size is known.
var fallbackSize = geom.Size{W: 600, H: 600}

// fallback builds an unshaped scene: a rectangle covering the container,
// filled with the texture when one is set, else a vertical gradient.
func fallback(in Input, reason string) (*Scene, error) {
	size := in.Container
	if size.Empty() {
		size = fallbackSize
	}
	vb := geom.Rect{W: size.W, H: size.H}

	doc := etree.NewDocument()
	root := doc.CreateElement("svg")
	ensureNamespaces(root)
	d := defs(root)

	var fill string
	switch {
	case in.Finish == Textured && in.TextureHref != "":
		addPattern(d, TexturePatternID, in.TextureHref, tileSize(in.TileSize, vb), 0, 0)
		fill = "url(#" + TexturePatternID + ")"
	default:
		base := in.FlatColor
		if base == "" {
			base = "#1c1c1c"
		}
		g := d.CreateElement("linearGradient")
		g.CreateAttr("id", GradientID)
		g.CreateAttr("x1", "0")
		g.CreateAttr("y1", "0")
		g.CreateAttr("x2", "0")
		g.CreateAttr("y2", "1")
		for _, stop := range []struct{ off, opacity string }{{"0", "0.85"}, {"1", "1"}} {
			s := g.CreateElement("stop")
			s.CreateAttr("offset", stop.off)
			s.CreateAttr("stop-color", base)
			s.CreateAttr("stop-opacity", stop.opacity)
		}
		fill = "url(#" + GradientID + ")"
	}

	rect := root.CreateElement("rect")
	setRect(rect, vb)
	rect.CreateAttr("fill", fill)
	setViewport(root, vb)

	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("write fallback scene: %w", err)
	}
	return &Scene{
		SVG:      data,
		Native:   vb,
		Content:  vb,
		ViewBox:  vb,
		Fallback: reason,
	}, nil
}
