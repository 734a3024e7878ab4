package raster

import (
	"errors"
	"image"
	"testing"

	"github.com/forevershiningA/memorial/pkg/geom"
)

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<rect x="25" y="25" width="50" height="50" fill="#000"/>
</svg>`

const wideSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 100">
<rect x="0" y="0" width="200" height="100" fill="#000"/>
</svg>`

func TestRenderContain(t *testing.T) {
	r := NewSVGRenderer()
	buf, err := r.Render([]byte(wideSVG), 100, 100, Contain)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if buf.Placed != (geom.Rect{X: 0, Y: 25, W: 100, H: 50}) {
		t.Errorf("Placed = %+v", buf.Placed)
	}
	if buf.AlphaAt(50, 10) != 0 {
		t.Error("letterbox band should be transparent")
	}
	if buf.AlphaAt(50, 50) == 0 {
		t.Error("center should be painted")
	}
	ob := buf.OpaqueBounds(8)
	if ob.Min.Y < 24 || ob.Min.Y > 26 || ob.Max.Y < 74 || ob.Max.Y > 76 {
		t.Errorf("OpaqueBounds = %v", ob)
	}
}

func TestRenderWindow(t *testing.T) {
	r := NewSVGRenderer()
	// Window onto the inner square: it should fill the whole buffer.
	buf, err := r.Render([]byte(squareSVG), 40, 40, Window(geom.Rect{X: 0.25, Y: 0.25, W: 0.5, H: 0.5}))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, p := range []image.Point{{1, 1}, {20, 20}, {38, 38}} {
		if buf.AlphaAt(p.X, p.Y) == 0 {
			t.Errorf("pixel %v should be opaque", p)
		}
	}
}

func TestNormalizedBounds(t *testing.T) {
	r := NewSVGRenderer()
	buf, err := r.Render([]byte(squareSVG), 100, 100, Stretch)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	nb, ok := buf.NormalizedBounds(8)
	if !ok {
		t.Fatal("no visible bounds")
	}
	if nb.X < 0.24 || nb.X > 0.26 || nb.W < 0.49 || nb.W > 0.51 {
		t.Errorf("NormalizedBounds = %+v", nb)
	}
}

func TestRenderErrors(t *testing.T) {
	r := &SVGRenderer{MaxPixels: 100}
	if _, err := r.Render([]byte(squareSVG), 20, 20, Contain); !errors.Is(err, ErrBufferUnavailable) {
		t.Errorf("oversized buffer err = %v", err)
	}
	if _, err := r.Render([]byte(squareSVG), 0, 10, Contain); !errors.Is(err, ErrBufferUnavailable) {
		t.Errorf("zero width err = %v", err)
	}
	if _, err := NewSVGRenderer().Render([]byte("<svg"), 10, 10, Contain); !errors.Is(err, ErrInvalidScene) {
		t.Errorf("broken scene err = %v", err)
	}
}

func TestAlphaAtOutOfRange(t *testing.T) {
	buf := NewBuffer(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if buf.AlphaAt(-1, 0) != 0 || buf.AlphaAt(5, 5) != 0 {
		t.Error("out of range reads must be 0")
	}
	if !buf.OpaqueBounds(0).Empty() {
		t.Error("blank buffer has no opaque bounds")
	}
}
