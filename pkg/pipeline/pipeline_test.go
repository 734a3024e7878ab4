package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/personalize"
	"github.com/forevershiningA/memorial/pkg/store"
)

const (
	slabShape = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
  <rect x="0" y="20" width="100" height="80" fill="#777" filter="url(#f)"/>
</svg>`
	doveMotif = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 50 25"><path d="M0 0h50v25H0z"/></svg>`
	ovalMask  = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 60 80"><ellipse cx="30" cy="40" rx="30" ry="40"/></svg>`
)

func testRecord(shape string) *design.Record {
	return &design.Record{Elements: []design.Element{
		&design.Headstone{
			InitWidth:  400,
			InitHeight: 400,
			Shape:      shape,
			Texture:    "Blue-Pearl-TILE-900-X-900.jpg",
			Coords:     design.CoordsLogical,
		},
		&design.Inscription{Common: design.Common{Y: -180}, Label: "SMITH", FontSize: 20, Role: design.RoleSurname},
		&design.Inscription{Common: design.Common{Y: 60}, Label: "1931 - 2019", FontSize: 14},
		&design.Motif{Common: design.Common{X: 100}, Name: "dove", Ratio: 1, ScaleX: 1, ScaleY: 1},
	}}
}

func newTestRunner(t *testing.T, src assets.Source) *Runner {
	t.Helper()
	return NewRunner(nil, src, nil, nil, log.New(io.Discard))
}

func fixtures(r *Runner) *assets.MemorySource {
	return assets.NewMemorySource(map[string][]byte{
		r.Paths.Shape("Serpentine"): []byte(slabShape),
		r.Paths.Motif("dove"):       []byte(doveMotif),
		r.Paths.Mask("oval"):        []byte(ovalMask),
	})
}

func fixtureRunner(t *testing.T) *Runner {
	t.Helper()
	r := newTestRunner(t, nil)
	return newTestRunner(t, fixtures(r))
}

// =============================================================================
// Options
// =============================================================================

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"zero value", Options{}, false},
		{"design id", Options{DesignID: "1712345678901"}, false},
		{"bad design id", Options{DesignID: "../etc"}, true},
		{"negative viewport", Options{ViewportWidth: -1}, true},
		{"huge viewport", Options{ViewportWidth: MaxViewportWidth + 1}, true},
		{"flat finish", Options{Finish: "flat"}, false},
		{"unknown finish", Options{Finish: "polished"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidInput) {
					t.Errorf("code = %s, want INVALID_INPUT", errors.GetCode(err))
				}
				return
			}
			if tt.opts.Logger == nil {
				t.Error("logger should default to a discard logger")
			}
			if tt.opts.ViewportWidth <= 0 {
				t.Errorf("viewport = %v, want default", tt.opts.ViewportWidth)
			}
		})
	}
}

// =============================================================================
// Tracker
// =============================================================================

func TestTracker(t *testing.T) {
	tr := NewTracker()

	a1 := tr.Begin("s", "a")
	a2 := tr.Begin("s", "a")
	if !tr.Current(a1) || !tr.Current(a2) {
		t.Fatal("restarting the same design must not invalidate earlier chains")
	}

	other := tr.Begin("other", "b")
	if !tr.Current(a1) || !tr.Current(other) {
		t.Fatal("sessions must be independent")
	}

	b := tr.Begin("s", "b")
	if tr.Current(a1) || tr.Current(a2) {
		t.Error("switching design must invalidate prior chains")
	}
	if !tr.Current(b) {
		t.Error("newest chain must be current")
	}

	a3 := tr.Begin("s", "a")
	if tr.Current(a1) || tr.Current(b) {
		t.Error("returning to a design must not revive chains started before the switch")
	}
	if !tr.Current(a3) {
		t.Error("newest chain must be current")
	}

	tr.Forget("s")
	if tr.Current(a3) {
		t.Error("forgotten session has no current chains")
	}
}

// =============================================================================
// Render
// =============================================================================

func TestRenderShaped(t *testing.T) {
	r := fixtureRunner(t)
	res, err := r.Render(context.Background(), testRecord("Serpentine"), nil, Options{DesignID: "d1"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if res.ModeName != "logical" || !res.Tagged {
		t.Errorf("mode = %s tagged %v", res.ModeName, res.Tagged)
	}
	if res.Framing.Frame.W != 400 || res.Framing.Scale != 1 {
		t.Errorf("framing = %+v", res.Framing)
	}
	if !res.Scene.Shaped || !res.Stats.Shaped {
		t.Fatalf("scene should be shaped: %q", res.Scene.Fallback)
	}
	if svg := string(res.Scene.SVG); strings.Contains(svg, "filter=") || !strings.Contains(svg, "textures/") {
		t.Errorf("scene not rewritten:\n%s", svg)
	}
	if !res.Stats.Profiled || res.Profile == nil {
		t.Fatal("profile should be built")
	}
	if n := len(r.Tracker.sessions); n != 0 {
		t.Errorf("one-off render left %d tracker sessions", n)
	}
	if got := res.Profile.Sample(200); math.Abs(got-79) > 1 {
		t.Errorf("profile edge = %v, want ~79", got)
	}

	if len(res.Placements) != 3 {
		t.Fatalf("placements = %d, want 3", len(res.Placements))
	}
	surname := res.Placements[0]
	if !surname.Snapped || surname.Y <= -180 {
		t.Errorf("surname should snap below the edge: %+v", surname)
	}
	if res.Placements[1].Snapped {
		t.Error("only the surname line snaps")
	}
	dove := res.Placements[2]
	if dove.Height != 25 || dove.Width != 50 {
		t.Errorf("motif size = %vx%v, want 50x25", dove.Width, dove.Height)
	}
	if res.Stats.Elements != 3 || res.Stats.Snapped != 1 || res.Stats.Motifs != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestRenderProfileDependsOnBase(t *testing.T) {
	withBase := func() *design.Record {
		rec := testRecord("Serpentine")
		hs, _ := rec.Headstone()
		hs.Width, hs.Height = 600, 600
		rec.Elements = append(rec.Elements, &design.Base{Width: 700, Height: 150})
		return rec
	}
	ctx := context.Background()

	alone, err := fixtureRunner(t).Render(ctx, withBase(), nil, Options{DesignID: "with-base"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !alone.Scene.HasBase || alone.Profile == nil {
		t.Fatalf("expected a based, profiled scene: %+v", alone.Stats)
	}

	r := fixtureRunner(t)
	plain, err := r.Render(ctx, testRecord("Serpentine"), nil, Options{DesignID: "plain"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	shared, err := r.Render(ctx, withBase(), nil, Options{DesignID: "with-base"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if reflect.DeepEqual(plain.Profile.TopY, alone.Profile.TopY) {
		t.Fatal("the base should change the silhouette")
	}
	if !reflect.DeepEqual(shared.Profile.TopY, alone.Profile.TopY) {
		t.Error("profile depends on what the runner rendered before")
	}
	if shared.Placements[0].Top != alone.Placements[0].Top {
		t.Errorf("surname top = %v, want %v", shared.Placements[0].Top, alone.Placements[0].Top)
	}
}

func TestRenderDegradesWithoutAssets(t *testing.T) {
	r := newTestRunner(t, assets.NewMemorySource(nil))
	res, err := r.Render(context.Background(), testRecord("Serpentine"), nil, Options{})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if res.Scene.Shaped || res.Scene.Fallback == "" {
		t.Error("missing shape should yield the unshaped scene")
	}
	if res.Profile != nil || res.Stats.Snapped != 0 {
		t.Error("no profile means no snapping")
	}
	dove := res.Placements[2]
	if dove.Width != assets.DefaultSize.W || dove.Height != assets.DefaultSize.H {
		t.Errorf("motif size = %vx%v, want default intrinsic", dove.Width, dove.Height)
	}
}

func TestRenderSkipProfile(t *testing.T) {
	r := fixtureRunner(t)
	res, err := r.Render(context.Background(), testRecord("Serpentine"), nil, Options{SkipProfile: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Profile != nil || res.Placements[0].Snapped {
		t.Error("skip profile should disable snapping")
	}
}

func TestRenderFlatFinish(t *testing.T) {
	r := fixtureRunner(t)
	res, err := r.Render(context.Background(), testRecord("Serpentine"), nil, Options{Finish: "flat"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(res.Scene.SVG), "<pattern") {
		t.Error("flat finish should not inject a texture pattern")
	}
}

func TestRenderInlineAssets(t *testing.T) {
	r := fixtureRunner(t)
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	r.Source.(*assets.MemorySource).Put(r.Paths.Texture("Blue-Pearl-TILE-900-X-900.jpg"), buf.Bytes())

	res, err := r.Render(context.Background(), testRecord("Serpentine"), nil, Options{InlineAssets: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(res.Scene.SVG), "data:image/png;base64,") {
		t.Error("texture should be inlined as a data URI")
	}
}

func TestRenderInvalidRecord(t *testing.T) {
	r := fixtureRunner(t)
	_, err := r.Render(context.Background(), &design.Record{}, nil, Options{})
	if !errors.Is(err, errors.ErrCodeInvalidDesign) {
		t.Errorf("err = %v, want INVALID_DESIGN", err)
	}
}

// blockingSource holds fetches of one path until released.
type blockingSource struct {
	*assets.MemorySource
	path    string
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	if path == s.path {
		s.once.Do(func() { close(s.started) })
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.MemorySource.Fetch(ctx, path)
}

func TestRenderStale(t *testing.T) {
	base := newTestRunner(t, nil)
	src := &blockingSource{
		MemorySource: fixtures(base),
		path:         base.Paths.Shape("Serpentine"),
		started:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	src.Put(base.Paths.Shape("Gable"), []byte(slabShape))
	r := newTestRunner(t, src)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := r.Render(ctx, testRecord("Serpentine"), nil, Options{Session: "tab", DesignID: "first"})
		done <- err
	}()
	<-src.started

	// The newer design is not blocked by the pending one.
	res, err := r.Render(ctx, testRecord("Gable"), nil, Options{Session: "tab", DesignID: "second"})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if !res.Scene.Shaped {
		t.Error("second render should be shaped")
	}

	close(src.release)
	select {
	case err := <-done:
		if !errors.Is(err, errors.ErrCodeStale) {
			t.Errorf("first render err = %v, want STALE_DERIVATION", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("first render did not finish")
	}
}

func TestRenderByID(t *testing.T) {
	r := fixtureRunner(t)
	st := store.NewMemoryStore()
	ctx := context.Background()

	raw := `{"elements":[
	  {"type":"headstone","init_width":400,"init_height":400,"shape":"Serpentine","coords":"logical"},
	  {"type":"inscription","label":"DOE","font_size":20,"y":-150,"role":"surname"}
	]}`
	if err := st.Save(ctx, "design-7", []byte(raw), nil); err != nil {
		t.Fatal(err)
	}
	res, err := r.RenderByID(ctx, st, "design-7", Options{})
	if err != nil {
		t.Fatalf("RenderByID: %v", err)
	}
	if res.DesignID != "design-7" || len(res.Placements) != 1 {
		t.Errorf("result = %+v", res)
	}
	if _, err := r.RenderByID(ctx, st, "missing", Options{}); !errors.Is(err, errors.ErrCodeDesignNotFound) {
		t.Errorf("missing design err = %v", err)
	}
}

// =============================================================================
// Personalize
// =============================================================================

func photo(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestPersonalize(t *testing.T) {
	r := fixtureRunner(t)
	ctx := context.Background()

	asset, err := r.Personalize(ctx, PersonalizeRequest{
		Image: photo(t, 200, 100),
		Spec:  personalize.CropSpec{Mask: "oval", Product: "ceramic-photo"},
	})
	if err != nil {
		t.Fatalf("Personalize: %v", err)
	}
	if !asset.Masked {
		t.Error("asset should be masked")
	}
	if math.Abs(asset.Aspect-0.75) > 0.05 {
		t.Errorf("aspect = %v, want ~0.75", asset.Aspect)
	}
	if asset.WidthMM <= 0 || asset.WidthMM > 50 {
		t.Errorf("width = %vmm, want within the 50mm variant", asset.WidthMM)
	}
}

func TestPersonalizeMissingMask(t *testing.T) {
	r := fixtureRunner(t)
	asset, err := r.Personalize(context.Background(), PersonalizeRequest{
		Image: photo(t, 80, 40),
		Spec:  personalize.CropSpec{Mask: "heart"},
	})
	if err != nil {
		t.Fatalf("missing mask should be skipped: %v", err)
	}
	if asset.Masked || asset.Width != 80 || asset.Height != 40 {
		t.Errorf("asset = %+v, want the unmasked crop", asset)
	}
}

func TestPersonalizeFromPath(t *testing.T) {
	r := fixtureRunner(t)
	r.Source.(*assets.MemorySource).Put("uploads/photo.png", photo(t, 30, 30))
	asset, err := r.Personalize(context.Background(), PersonalizeRequest{ImagePath: "uploads/photo.png"})
	if err != nil {
		t.Fatal(err)
	}
	if asset.Width != 30 {
		t.Errorf("width = %d", asset.Width)
	}
}

func TestPersonalizeErrors(t *testing.T) {
	r := fixtureRunner(t)
	tests := []struct {
		name string
		req  PersonalizeRequest
		code errors.Code
	}{
		{"no image", PersonalizeRequest{}, errors.ErrCodeInvalidInput},
		{"undecodable", PersonalizeRequest{Image: []byte("nope")}, errors.ErrCodeInvalidInput},
		{"missing path", PersonalizeRequest{ImagePath: "uploads/none.png"}, errors.ErrCodeAssetUnavailable},
		{"bad format", PersonalizeRequest{Image: photo(t, 4, 4), Spec: personalize.CropSpec{Format: "gif"}}, errors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Personalize(context.Background(), tt.req)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}
