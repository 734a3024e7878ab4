package assets

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/forevershiningA/memorial/pkg/geom"
)

// DefaultSize is the intrinsic size reported for unusable assets.
var DefaultSize = geom.Rect{W: 100, H: 100}

// Intrinsic reads an SVG document's native viewport from its root element.
// The viewBox wins; otherwise width and height are used with a zero origin.
func Intrinsic(svg []byte) (geom.Rect, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(svg); err != nil {
		return geom.Rect{}, fmt.Errorf("parse svg: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "svg" {
		return geom.Rect{}, fmt.Errorf("parse svg: no <svg> root")
	}
	return RootViewport(root)
}

// RootViewport reads the viewport of an <svg> element.
func RootViewport(root *etree.Element) (geom.Rect, error) {
	if vb := root.SelectAttrValue("viewBox", ""); vb != "" {
		return geom.ParseViewBox(vb)
	}
	w, okW := geom.ParseLength(root.SelectAttrValue("width", ""))
	h, okH := geom.ParseLength(root.SelectAttrValue("height", ""))
	if !okW || !okH {
		return geom.Rect{}, fmt.Errorf("svg has neither viewBox nor width/height")
	}
	return geom.Rect{W: w, H: h}, nil
}
