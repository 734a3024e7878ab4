package personalize

import (
	"bytes"
	"context"
	stderrors "errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/raster"
)

// A mask whose visible content (384x360) is padded inside a square viewBox.
const paddedMask = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512">
<rect x="32" y="48" width="384" height="360" fill="#000000"/></svg>`

const circleMask = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 512 512">
<circle cx="256" cy="256" r="200" fill="#000000"/></svg>`

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func alphaAt(img image.Image, x, y int) uint8 {
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).A
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	return img
}

func measure(t *testing.T, svg string) *Mask {
	t.Helper()
	m, err := Measure(raster.NewSVGRenderer(), []byte(svg))
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	return &Mask{Name: "test", SVG: []byte(svg), Metrics: m}
}

func TestColorTransforms(t *testing.T) {
	if got := luma(200, 100, 50); got != 124 {
		t.Errorf("luma = %d, want 124", got)
	}
	tests := []struct {
		in   [3]uint8
		want [3]uint8
	}{
		{[3]uint8{200, 100, 50}, [3]uint8{165, 147, 114}},
		{[3]uint8{255, 255, 255}, [3]uint8{255, 255, 239}},
		{[3]uint8{0, 0, 0}, [3]uint8{0, 0, 0}},
	}
	for _, tt := range tests {
		r, g, b := sepia(tt.in[0], tt.in[1], tt.in[2])
		if [3]uint8{r, g, b} != tt.want {
			t.Errorf("sepia(%v) = %v, want %v", tt.in, [3]uint8{r, g, b}, tt.want)
		}
	}

	src := solid(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	bw := applyColor(src, BlackWhite).NRGBAAt(0, 0)
	if bw != (color.NRGBA{R: 124, G: 124, B: 124, A: 128}) {
		t.Errorf("bw pixel = %v", bw)
	}
	full := applyColor(src, FullColor).NRGBAAt(1, 1)
	if full != (color.NRGBA{R: 200, G: 100, B: 50, A: 128}) {
		t.Errorf("full color changed the pixel: %v", full)
	}
}

func TestCropRect(t *testing.T) {
	b := image.Rect(0, 0, 200, 100)
	tests := []struct {
		name string
		spec CropSpec
		want image.Rectangle
	}{
		{"inner", CropSpec{X: 25, Y: 10, Width: 50, Height: 50}, image.Rect(50, 10, 150, 60)},
		{"whole by default", CropSpec{}, b},
		{"overflow clamped", CropSpec{X: -10, Y: -5, Width: 200, Height: 300}, b},
		{"past the edge", CropSpec{X: 120, Y: 50, Width: 10, Height: 80}, image.Rect(199, 50, 200, 100)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cropRect(b, tt.spec); got != tt.want {
				t.Errorf("cropRect = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransformOrder(t *testing.T) {
	src := solid(40, 20, color.NRGBA{A: 255})
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	red := func(img *image.NRGBA, x, y int) bool { return img.NRGBAAt(x, y).R == 255 }

	rot := transform(src, CropSpec{Rotation: 90, Scale: 100})
	if rot.Bounds().Dx() != 20 || rot.Bounds().Dy() != 40 {
		t.Fatalf("rotated size = %v", rot.Bounds())
	}
	if !red(rot, 19, 0) {
		t.Error("clockwise rotation should move the top-left pixel to the top-right")
	}

	flipped := transform(src, CropSpec{FlipX: true, Scale: 100})
	if !red(flipped, 39, 0) {
		t.Error("horizontal flip misplaced the pixel")
	}
	flipped = transform(src, CropSpec{FlipY: true, Scale: 100})
	if !red(flipped, 0, 19) {
		t.Error("vertical flip misplaced the pixel")
	}

	scaled := transform(src, CropSpec{Scale: 50})
	if scaled.Bounds().Dx() != 20 || scaled.Bounds().Dy() != 10 {
		t.Errorf("scaled size = %v", scaled.Bounds())
	}
}

func TestMeasureUsesVisibleBounds(t *testing.T) {
	m := measure(t, paddedMask)
	if m.ViewBox.W != 512 || m.ViewBox.H != 512 {
		t.Errorf("ViewBox = %+v", m.ViewBox)
	}
	if math.Abs(m.Aspect-384.0/360.0) > 1e-3 {
		t.Errorf("Aspect = %v, want %v", m.Aspect, 384.0/360.0)
	}
	if math.Abs(m.Bounds.X-32.0/512) > 1e-3 || math.Abs(m.Bounds.Y-48.0/512) > 1e-3 {
		t.Errorf("Bounds = %+v", m.Bounds)
	}

	empty := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10"></svg>`
	if _, err := Measure(raster.NewSVGRenderer(), []byte(empty)); err == nil {
		t.Error("a mask without visible content should fail")
	}
}

func TestFitToAspectPillarbox(t *testing.T) {
	img := solid(500, 400, color.NRGBA{R: 10, A: 255})
	out := fitToAspect(img, 640.0/600.0)
	if out.Bounds().Dx() != 500 || out.Bounds().Dy() != 469 {
		t.Fatalf("fitted size = %v, want 500x469", out.Bounds())
	}
	if alphaAt(out, 250, 0) != 0 || alphaAt(out, 250, 468) != 0 {
		t.Error("padding should be transparent")
	}
	if alphaAt(out, 250, 234) != 255 {
		t.Error("content should be centered vertically")
	}
}

func TestComposeMasked(t *testing.T) {
	c := NewCompositor(nil)
	asset, err := c.Compose(solid(500, 400, color.NRGBA{R: 200, G: 100, B: 50, A: 255}), measure(t, paddedMask), CropSpec{
		Color:   Sepia,
		Product: "ceramic-photo",
		Variant: 1,
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !asset.Masked || asset.ID == "" || asset.MediaType != "image/png" {
		t.Errorf("asset = %+v", asset)
	}
	if asset.Width != 500 || asset.Height < 468 || asset.Height > 469 {
		t.Errorf("size = %dx%d, want about 500x469", asset.Width, asset.Height)
	}

	img := decodePNG(t, asset.Data)
	if alphaAt(img, 250, 0) != 0 {
		t.Error("pillarbox padding should stay transparent")
	}
	mid := color.NRGBAModel.Convert(img.At(250, asset.Height/2)).(color.NRGBA)
	if mid != (color.NRGBA{R: 165, G: 147, B: 114, A: 255}) {
		t.Errorf("center pixel = %v, want opaque sepia", mid)
	}

	// Variant 60x80 mm: natural width at 80 mm would overflow, so shrink.
	if asset.WidthMM != 60 || math.Abs(asset.HeightMM-60/asset.Aspect) > 0.01 {
		t.Errorf("physical = %vx%v mm", asset.WidthMM, asset.HeightMM)
	}
}

func TestComposeCircleMask(t *testing.T) {
	c := NewCompositor(nil)
	asset, err := c.Compose(solid(300, 300, color.NRGBA{G: 255, A: 255}), measure(t, circleMask), CropSpec{})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	img := decodePNG(t, asset.Data)
	b := img.Bounds()
	if alphaAt(img, b.Min.X, b.Min.Y) != 0 {
		t.Error("corner outside the circle should be transparent")
	}
	if alphaAt(img, b.Dx()/2, b.Dy()/2) != 255 {
		t.Error("center should be opaque")
	}
	if math.Abs(asset.Aspect-1) > 0.02 {
		t.Errorf("circle aspect = %v", asset.Aspect)
	}
}

func TestComposeWithoutMask(t *testing.T) {
	c := NewCompositor(nil)
	asset, err := c.Compose(solid(400, 200, color.NRGBA{B: 255, A: 255}), nil, CropSpec{
		X: 0, Y: 0, Width: 50, Height: 100,
		Product: "granite-photo",
	})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if asset.Masked || asset.Width != 200 || asset.Height != 200 {
		t.Errorf("asset = %+v", asset)
	}
	if asset.HeightMM != 150 || asset.WidthMM != 150 {
		t.Errorf("default product height not used: %vx%v", asset.WidthMM, asset.HeightMM)
	}
}

func TestComposeWebP(t *testing.T) {
	asset, err := NewCompositor(nil).Compose(solid(32, 16, color.NRGBA{R: 255, A: 255}), nil, CropSpec{Format: WebP})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if asset.MediaType != "image/webp" || len(asset.Data) < 12 ||
		string(asset.Data[:4]) != "RIFF" || string(asset.Data[8:12]) != "WEBP" {
		t.Errorf("not a WebP container: %q", asset.Data[:min(12, len(asset.Data))])
	}
}

type failingRenderer struct{}

func (failingRenderer) Render([]byte, int, int, raster.Target) (*raster.Buffer, error) {
	return nil, raster.ErrBufferUnavailable
}

func TestComposeFailures(t *testing.T) {
	mask := measure(t, paddedMask)
	src := solid(100, 80, color.NRGBA{A: 255})

	_, err := NewCompositor(nil, WithRenderer(failingRenderer{})).Compose(src, mask, CropSpec{})
	if !errors.Is(err, errors.ErrCodeCompositing) || !stderrors.Is(err, raster.ErrBufferUnavailable) {
		t.Errorf("renderer failure = %v, want COMPOSITING_FAILED", err)
	}

	_, err = NewCompositor(nil, WithMaxPixels(1000)).Compose(src, nil, CropSpec{})
	if !errors.Is(err, errors.ErrCodeCompositing) {
		t.Errorf("oversized buffer = %v, want COMPOSITING_FAILED", err)
	}

	_, err = NewCompositor(nil).Compose(src, nil, CropSpec{Format: "tiff"})
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("bad format = %v", err)
	}

	_, err = NewCompositor(nil).Compose(image.NewNRGBA(image.Rect(0, 0, 0, 0)), nil, CropSpec{})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("empty source = %v", err)
	}
}

func TestPhysicalSize(t *testing.T) {
	c := NewCompositor(catalog.Default())
	tests := []struct {
		name    string
		product string
		variant int
		aspect  float64
		w, h    float64
	}{
		{"portrait fits variant", "ceramic-photo", 0, 0.5, 35, 70},
		{"wide shrinks to width", "ceramic-photo", 0, 2, 50, 25},
		{"variant index clamped", "ceramic-photo", 99, 0.5, 75, 150},
		{"negative index clamped", "bronze-plaque-photo", -3, 1, 100, 100},
		{"no sizes uses product height", "granite-photo", 0, 0.8, 120, 150},
		{"unknown product uses unit height", "mug", 0, 1.5, 150, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := c.physicalSize(tt.product, tt.variant, tt.aspect)
			if w != tt.w || h != tt.h {
				t.Errorf("physicalSize = %vx%v, want %vx%v", w, h, tt.w, tt.h)
			}
		})
	}
}

func TestParse(t *testing.T) {
	if m, err := ParseColorMode("Greyscale"); err != nil || m != BlackWhite {
		t.Errorf("ParseColorMode = %v, %v", m, err)
	}
	if _, err := ParseColorMode("infrared"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("unknown mode err = %v", err)
	}
	if f, err := ParseFormat(""); err != nil || f != PNG {
		t.Errorf("ParseFormat = %v, %v", f, err)
	}
}

func TestMaskLibrary(t *testing.T) {
	src := assets.NewMemorySource(map[string][]byte{"masks/heart.svg": []byte(paddedMask)})
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	paths := assets.NewPaths(catalog.Default())
	lib := NewMaskLibrary(src, paths, WithMaskCache(fc, nil))
	ctx := context.Background()

	m, err := lib.Load(ctx, "Heart")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if math.Abs(m.Aspect-384.0/360.0) > 1e-3 {
		t.Errorf("Aspect = %v", m.Aspect)
	}
	if _, err := lib.Load(ctx, "Heart"); err != nil {
		t.Fatal(err)
	}
	if n := src.Calls("masks/heart.svg"); n != 1 {
		t.Errorf("fetches = %d, want memoized", n)
	}

	// A fresh library reads metrics from the persistent cache but still
	// needs the mask document.
	again, err := NewMaskLibrary(src, paths, WithMaskCache(fc, nil), WithMaskRenderer(failingRenderer{})).Load(ctx, "Heart")
	if err != nil {
		t.Fatalf("cached Load: %v", err)
	}
	if again.Metrics != m.Metrics {
		t.Errorf("cached metrics = %+v, want %+v", again.Metrics, m.Metrics)
	}

	if _, err := lib.Load(ctx, "oval"); !stderrors.Is(err, assets.ErrNotFound) {
		t.Errorf("missing mask err = %v", err)
	}
}
