package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/pipeline"
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

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	paths := assets.NewPaths(catalog.Default())
	src := assets.NewMemorySource(map[string][]byte{
		paths.Shape("Serpentine"): []byte(slabShape),
		paths.Mask("oval"):        []byte(ovalMask),
	})
	logger := log.New(io.Discard)
	runner := pipeline.NewRunner(nil, src, nil, nil, logger)
	srv := New(runner, store.NewMemoryStore(), Config{}, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func putSample(t *testing.T, ts *httptest.Server, id string) {
	t.Helper()
	body := `{"design":` + sampleDesign + `}`
	resp := do(t, http.MethodPut, ts.URL+"/designs/"+id, "application/json", strings.NewReader(body))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}
}

func samplePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 120, 80))
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], []byte{90, 120, 200, 255})
	}
	img.SetNRGBA(0, 0, color.NRGBA{A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/health", "", nil)
	var body map[string]any
	decode(t, resp, &body)
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}
}

func TestCatalog(t *testing.T) {
	ts := newTestServer(t)
	resp := do(t, http.MethodGet, ts.URL+"/catalog", "", nil)
	var body catalogResponse
	decode(t, resp, &body)
	found := false
	for _, m := range body.Masks {
		found = found || m == "oval"
	}
	if !found || len(body.Products) == 0 {
		t.Errorf("catalog = %+v", body)
	}
}

func TestDesignLifecycle(t *testing.T) {
	ts := newTestServer(t)
	putSample(t, ts, "family-doe")

	resp := do(t, http.MethodGet, ts.URL+"/designs", "", nil)
	var list map[string][]string
	decode(t, resp, &list)
	if len(list["designs"]) != 1 || list["designs"][0] != "family-doe" {
		t.Errorf("list = %v", list)
	}

	resp = do(t, http.MethodGet, ts.URL+"/designs/family-doe", "", nil)
	var got designResponse
	decode(t, resp, &got)
	if got.ID != "family-doe" || !bytes.Contains(got.Design, []byte("DOE")) {
		t.Errorf("design = %+v", got)
	}
}

func TestDesignLayout(t *testing.T) {
	ts := newTestServer(t)
	putSample(t, ts, "family-doe")

	resp := do(t, http.MethodGet, ts.URL+"/designs/family-doe/layout?viewport=1024", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var res struct {
		Mode       string `json:"mode"`
		Placements []struct {
			Kind    string  `json:"kind"`
			Snapped bool    `json:"snapped"`
			Height  float64 `json:"height"`
		} `json:"placements"`
		Scene struct {
			Shaped bool `json:"shaped"`
		} `json:"scene"`
	}
	decode(t, resp, &res)
	if res.Mode != "logical" || !res.Scene.Shaped || len(res.Placements) != 2 {
		t.Fatalf("layout = %+v", res)
	}
	if !res.Placements[0].Snapped {
		t.Error("surname should snap")
	}
	// The motif asset is missing, so it falls back to the default size.
	if res.Placements[1].Height != assets.DefaultSize.H {
		t.Errorf("motif height = %v", res.Placements[1].Height)
	}
}

func TestDesignSceneAndProfile(t *testing.T) {
	ts := newTestServer(t)
	putSample(t, ts, "family-doe")

	resp := do(t, http.MethodGet, ts.URL+"/designs/family-doe/scene", "", nil)
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("content type = %q", ct)
	}
	svg, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("scene = %s", svg)
	}

	resp = do(t, http.MethodGet, ts.URL+"/designs/family-doe/profile", "", nil)
	var prof struct {
		TopY  []float64 `json:"top_y"`
		Width int       `json:"width"`
	}
	decode(t, resp, &prof)
	if prof.Width != 400 || len(prof.TopY) != 400 {
		t.Errorf("profile width = %d, columns = %d", prof.Width, len(prof.TopY))
	}
}

func TestErrors(t *testing.T) {
	ts := newTestServer(t)
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"missing design", http.MethodGet, "/designs/nope/layout", "", http.StatusNotFound, "DESIGN_NOT_FOUND"},
		{"bad viewport", http.MethodGet, "/designs/nope/layout?viewport=wide", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"invalid design", http.MethodPut, "/designs/broken", `{"design":"not a design"}`, http.StatusBadRequest, "INVALID_DESIGN"},
		{"malformed body", http.MethodPost, "/layout", `{`, http.StatusBadRequest, "INVALID_INPUT"},
		{"empty inline design", http.MethodPost, "/layout", `{"design":[]}`, http.StatusBadRequest, "INVALID_DESIGN"},
		{"personalize without image", http.MethodPost, "/personalize", `{}`, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			resp := do(t, tt.method, ts.URL+tt.path, "application/json", body)
			var e errorResponse
			decode(t, resp, &e)
			if resp.StatusCode != tt.status || string(e.Code) != tt.code {
				t.Errorf("got %d %s (%s), want %d %s", resp.StatusCode, e.Code, e.Error, tt.status, tt.code)
			}
		})
	}
}

func TestInlineLayout(t *testing.T) {
	ts := newTestServer(t)
	body := `{"design":` + sampleDesign + `,"options":{"viewport_width":375,"skip_profile":true}}`
	resp := do(t, http.MethodPost, ts.URL+"/layout", "application/json", strings.NewReader(body))
	var res struct {
		Framing struct {
			Scale float64 `json:"scale"`
		} `json:"framing"`
		Stats struct {
			Profiled bool `json:"profiled"`
		} `json:"stats"`
	}
	decode(t, resp, &res)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	// 375 px mobile viewport shrinks the 400 px frame.
	if res.Framing.Scale >= 1 || res.Stats.Profiled {
		t.Errorf("layout = %+v", res)
	}
}

func multipartBody(t *testing.T, image []byte, spec string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if spec != "" {
		if err := mw.WriteField("spec", spec); err != nil {
			t.Fatal(err)
		}
	}
	fw, err := mw.CreateFormFile("image", "photo.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(image); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestPersonalize(t *testing.T) {
	ts := newTestServer(t)

	body, ct := multipartBody(t, samplePNG(t), `{"mask":"oval","product":"ceramic-photo","variant":1}`)
	resp := do(t, http.MethodPost, ts.URL+"/personalize", ct, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got struct {
		Masked   bool    `json:"masked"`
		WidthMM  float64 `json:"width_mm"`
		HeightMM float64 `json:"height_mm"`
		DataURI  string  `json:"data_uri"`
	}
	decode(t, resp, &got)
	if !got.Masked || got.WidthMM <= 0 || got.HeightMM <= 0 {
		t.Errorf("asset = %+v", got)
	}
	if !strings.HasPrefix(got.DataURI, "data:image/png;base64,") {
		t.Errorf("data uri = %.40s", got.DataURI)
	}

	body, ct = multipartBody(t, samplePNG(t), `{"format":"webp"}`)
	resp = do(t, http.MethodPost, ts.URL+"/personalize?raw=1", ct, body)
	if resp.Header.Get("Content-Type") != "image/webp" || resp.Header.Get("X-Asset-Id") == "" {
		t.Errorf("raw headers = %v", resp.Header)
	}
	data, _ := io.ReadAll(resp.Body)
	if !bytes.HasPrefix(data, []byte("RIFF")) {
		t.Error("raw body should be a webp image")
	}
}

func TestCacheScope(t *testing.T) {
	cat := catalog.Default()
	a := cacheScope(Config{AssetDir: "./assets"}, cat)
	if a != cacheScope(Config{AssetDir: "./assets"}, catalog.Default()) {
		t.Error("scope should be stable for the same inputs")
	}
	if a == cacheScope(Config{AssetDir: "https://cdn.example.com/assets"}, cat) {
		t.Error("scope should change with the asset root")
	}
	if !strings.HasPrefix(a, "catalog:") || !strings.HasSuffix(a, ":") {
		t.Errorf("scope = %q", a)
	}
}
