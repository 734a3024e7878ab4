package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/design"
	merrors "github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/silhouette"
	"github.com/forevershiningA/memorial/pkg/store"
)

const (
	slabShape = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><rect x="0" y="20" width="100" height="80"/></svg>`
	ovalMask  = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 60 80"><ellipse cx="30" cy="40" rx="30" ry="40"/></svg>`

	sampleDesign = `{"elements":[
	  {"type":"headstone","init_width":400,"init_height":400,"shape":"Serpentine","coords":"logical"},
	  {"type":"inscription","label":"DOE","font_size":20,"y":-180,"role":"surname"},
	  {"type":"motif","name":"dove","ratio":1,"x":50,"y":40}
	]}`
)

// fixture lays out an asset directory and a design file under a temp dir.
type fixture struct {
	assets string
	design string
	dir    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	assetDir := filepath.Join(dir, "assets")
	paths := assets.NewPaths(catalog.Default())
	for path, data := range map[string]string{
		paths.Shape("Serpentine"): slabShape,
		paths.Mask("oval"):        ovalMask,
	} {
		full := filepath.Join(assetDir, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	designPath := filepath.Join(dir, "sample.json")
	if err := os.WriteFile(designPath, []byte(sampleDesign), 0o644); err != nil {
		t.Fatal(err)
	}
	return fixture{assets: assetDir, design: designPath, dir: dir}
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestReadDesignFile(t *testing.T) {
	f := newFixture(t)
	shot := `{"original":{"width":800,"height":600},"cropped":{"width":400,"height":400},"wasCropped":true}`
	if err := os.WriteFile(filepath.Join(f.dir, "sample.screenshot.json"), []byte(shot), 0o644); err != nil {
		t.Fatal(err)
	}

	e, err := readDesignFile(f.design)
	if err != nil {
		t.Fatalf("readDesignFile: %v", err)
	}
	if e.ID != "sample" {
		t.Errorf("ID = %q, want sample", e.ID)
	}
	if _, ok := e.Record.Headstone(); !ok {
		t.Error("record should have a headstone")
	}
	if e.Screenshot == nil || !e.Screenshot.WasCropped {
		t.Errorf("Screenshot = %+v, want cropped metadata", e.Screenshot)
	}
}

func TestReadDesignFileErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"elements":`), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
		code merrors.Code
	}{
		{"missing file", filepath.Join(dir, "nope.json"), merrors.ErrCodeInvalidPath},
		{"malformed", bad, merrors.ErrCodeInvalidDesign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readDesignFile(tt.path)
			if !merrors.Is(err, tt.code) {
				t.Errorf("error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestLoadDesignByID(t *testing.T) {
	dir := t.TempDir()
	st, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := st.Save(ctx, "design-7", []byte(sampleDesign), nil); err != nil {
		t.Fatal(err)
	}

	c := New(io.Discard, log.InfoLevel)
	c.designDir = dir
	e, err := c.loadDesign(ctx, "design-7")
	if err != nil {
		t.Fatalf("loadDesign: %v", err)
	}
	if len(e.Record.Inscriptions()) != 1 {
		t.Errorf("inscriptions = %d, want 1", len(e.Record.Inscriptions()))
	}

	_, err = c.loadDesign(ctx, "design-8")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing design error = %v, want ErrNotFound", err)
	}
}

func TestParseCrop(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
		want    [4]float64
	}{
		{"10,20,50,60", false, [4]float64{10, 20, 50, 60}},
		{" 0, 0 ,100, 100", false, [4]float64{0, 0, 100, 100}},
		{"10,20,50", true, [4]float64{}},
		{"a,b,c,d", true, [4]float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := parseCrop(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseCrop(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !merrors.Is(err, merrors.ErrCodeInvalidCrop) {
					t.Errorf("error code = %s, want INVALID_CROP", merrors.GetCode(err))
				}
				return
			}
			got := [4]float64{r.X, r.Y, r.W, r.H}
			if got != tt.want {
				t.Errorf("parseCrop(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderCommand(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "out", "scene.svg")

	if err := execute(t, "--assets", f.assets, "render", f.design, "-o", out); err != nil {
		t.Fatalf("render: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Errorf("output is not an SVG: %.80s", data)
	}
}

func TestRenderCommandBadViewport(t *testing.T) {
	f := newFixture(t)
	err := execute(t, "--assets", f.assets, "render", f.design, "--viewport=-5", "-o", filepath.Join(f.dir, "x.svg"))
	if !merrors.Is(err, merrors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestLayoutCommandJSON(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "layout.json")

	if err := execute(t, "--assets", f.assets, "layout", f.design, "-o", out); err != nil {
		t.Fatalf("layout: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var got struct {
		DesignID   string `json:"design_id"`
		Placements []struct {
			Kind    design.Kind `json:"kind"`
			Snapped bool        `json:"snapped"`
		} `json:"placements"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if len(got.Placements) != 2 {
		t.Fatalf("placements = %d, want 2", len(got.Placements))
	}
	if got.Placements[0].Kind != design.KindInscription || !got.Placements[0].Snapped {
		t.Errorf("surname placement = %+v, want snapped inscription", got.Placements[0])
	}
}

func TestPersonalizeCommand(t *testing.T) {
	f := newFixture(t)
	img := image.NewNRGBA(image.Rect(0, 0, 80, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 80; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	photo := filepath.Join(f.dir, "photo.png")
	if err := os.WriteFile(photo, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := execute(t, "--assets", f.assets, "personalize", photo, "--mask", "oval", "--color", "sepia"); err != nil {
		t.Fatalf("personalize: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, "photo-personalized.png"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	b := got.Bounds()
	if aspect := float64(b.Dx()) / float64(b.Dy()); aspect < 0.7 || aspect > 0.8 {
		t.Errorf("aspect = %.3f, want the oval mask's 0.75", aspect)
	}
}

func TestPersonalizeCommandBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"bad color", []string{"--color", "neon"}},
		{"bad format", []string{"--format", "bmp"}},
		{"bad crop", []string{"--crop", "1,2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"personalize", "photo.png"}, tt.args...)
			if err := execute(t, args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSparkline(t *testing.T) {
	p := &silhouette.Profile{TopY: []float64{100, 50, 0, 50}, Width: 4, Height: 100}
	got := []rune(sparkline(p, 4))
	want := []rune("▁▅█▅")
	if string(got) != string(want) {
		t.Errorf("sparkline = %q, want %q", string(got), string(want))
	}
	if sparkline(&silhouette.Profile{}, 10) != "" {
		t.Error("empty profile should give an empty sparkline")
	}
}

func TestDesignListModel(t *testing.T) {
	m := NewDesignListModel([]DesignSummary{
		{ID: "a"},
		{ID: "broken", Err: errors.New("bad")},
		{ID: "c"},
	})

	step := func(m DesignListModel, k tea.KeyType) DesignListModel {
		next, _ := m.Update(tea.KeyMsg{Type: k})
		return next.(DesignListModel)
	}

	m = step(m, tea.KeyDown)
	m = step(m, tea.KeyEnter)
	if m.Selected != nil {
		t.Fatal("invalid design should not be selectable")
	}
	m = step(m, tea.KeyDown)
	m = step(m, tea.KeyDown)
	if m.Cursor != 2 {
		t.Errorf("cursor = %d, want clamped at 2", m.Cursor)
	}
	m = step(m, tea.KeyEnter)
	if m.Selected == nil || m.Selected.ID != "c" {
		t.Errorf("Selected = %+v, want c", m.Selected)
	}
	if !strings.Contains(m.View(), "Select Design") {
		t.Error("view should carry the title")
	}
}

func TestActionListModel(t *testing.T) {
	m := NewActionListModel("design-7")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	next, _ = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := next.(ActionListModel).Selected; got != actionScene {
		t.Errorf("Selected = %q, want %q", got, actionScene)
	}
}

func TestListDesigns(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	if err := st.Save(ctx, "one", []byte(sampleDesign), nil); err != nil {
		t.Fatal(err)
	}
	got, err := listDesigns(ctx, st)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("designs = %d, want 1", len(got))
	}
	if got[0].Shape != "Serpentine" || got[0].Inscriptions != 1 || got[0].Motifs != 1 {
		t.Errorf("summary = %+v", got[0])
	}
}

func TestDisplayAddr(t *testing.T) {
	tests := map[string]string{
		":8080":          "localhost:8080",
		"127.0.0.1:9000": "127.0.0.1:9000",
	}
	for in, want := range tests {
		if got := displayAddr(in); got != want {
			t.Errorf("displayAddr(%q) = %q, want %q", in, got, want)
		}
	}
}
