package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/forevershiningA/memorial/pkg/buildinfo"
	"github.com/forevershiningA/memorial/pkg/design"
	merrors "github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/personalize"
	"github.com/forevershiningA/memorial/pkg/pipeline"
)

// SessionHeader carries the display session renders are tracked under.
const SessionHeader = "X-Memorial-Session"

// maxDesignBytes bounds design and layout request bodies.
const maxDesignBytes = 4 << 20

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string       `json:"error"`
	Code  merrors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := merrors.HTTPStatus(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorResponse{Error: merrors.UserMessage(err), Code: merrors.GetCode(err)})
}

// =============================================================================
// Misc
// =============================================================================

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "build": buildinfo.Get()})
}

type catalogResponse struct {
	Shapes   []string         `json:"shapes"`
	Masks    []string         `json:"masks"`
	Products []catalogProduct `json:"products"`
}

type catalogProduct struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DefaultHeightMM float64  `json:"default_height_mm"`
	Sizes           []sizeMM `json:"sizes"`
}

type sizeMM struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s *Server) catalog(w http.ResponseWriter, r *http.Request) {
	cat := s.runner.Catalog
	resp := catalogResponse{Shapes: cat.ShapeNames(), Masks: cat.MaskNames()}
	for _, p := range cat.Products {
		cp := catalogProduct{ID: p.ID, Name: p.Name, DefaultHeightMM: p.DefaultHeightMM}
		for _, v := range p.Sizes {
			cp.Sizes = append(cp.Sizes, sizeMM{Width: v.Width, Height: v.Height})
		}
		resp.Products = append(resp.Products, cp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Designs
// =============================================================================

type designBody struct {
	Design     json.RawMessage        `json:"design"`
	Screenshot *design.ScreenshotMeta `json:"screenshot,omitempty"`
}

type designResponse struct {
	ID         string                 `json:"id"`
	Design     json.RawMessage        `json:"design"`
	Screenshot *design.ScreenshotMeta `json:"screenshot,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

func (s *Server) listDesigns(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"designs": ids})
}

func (s *Server) getDesign(w http.ResponseWriter, r *http.Request) {
	entry, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, designResponse{
		ID:         entry.ID,
		Design:     entry.Raw,
		Screenshot: entry.Screenshot,
		UpdatedAt:  entry.UpdatedAt,
	})
}

func (s *Server) putDesign(w http.ResponseWriter, r *http.Request) {
	var body designBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.store.Save(r.Context(), id, body.Design, body.Screenshot); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

// =============================================================================
// Rendering
// =============================================================================

// renderOptions reads render options from the query string.
func renderOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	opts := pipeline.Options{
		Session:      session(r),
		Finish:       q.Get("finish"),
		SkipProfile:  queryBool(q.Get("skip_profile")),
		InlineAssets: queryBool(q.Get("inline")),
	}
	if v := q.Get("viewport"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return opts, merrors.New(merrors.ErrCodeInvalidInput, "invalid viewport %q", v)
		}
		opts.ViewportWidth = f
	}
	return opts, nil
}

// session returns the caller's display session, or "" for a one-off
// render that never goes stale.
func session(r *http.Request) string {
	if v := r.Header.Get(SessionHeader); v != "" {
		return v
	}
	if v := r.URL.Query().Get("session"); v != "" {
		return v
	}
	return ""
}

func queryBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

func (s *Server) renderDesign(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	opts, err := renderOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	res, err := s.runner.RenderByID(r.Context(), s.store, chi.URLParam(r, "id"), opts)
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return res, true
}

func (s *Server) designLayout(w http.ResponseWriter, r *http.Request) {
	if res, ok := s.renderDesign(w, r); ok {
		writeJSON(w, http.StatusOK, res)
	}
}

func (s *Server) designScene(w http.ResponseWriter, r *http.Request) {
	res, ok := s.renderDesign(w, r)
	if !ok {
		return
	}
	svg := res.Scene.SVG
	if queryBool(r.URL.Query().Get("sanitized")) {
		svg = res.Scene.Sanitized
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(svg)
}

func (s *Server) designProfile(w http.ResponseWriter, r *http.Request) {
	res, ok := s.renderDesign(w, r)
	if !ok {
		return
	}
	if res.Profile == nil {
		s.writeError(w, r, merrors.New(merrors.ErrCodeAssetUnavailable, "no silhouette profile for this design"))
		return
	}
	writeJSON(w, http.StatusOK, res.Profile)
}

type layoutRequest struct {
	designBody
	Options pipeline.Options `json:"options"`
}

// layout renders a design posted inline.
func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := design.Decode(req.Design)
	if err != nil {
		s.writeError(w, r, merrors.Wrap(merrors.ErrCodeInvalidDesign, err, "decode design"))
		return
	}
	if req.Options.Session == "" {
		req.Options.Session = session(r)
	}
	res, err := s.runner.Render(r.Context(), rec, req.Screenshot, req.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// Personalization
// =============================================================================

type personalizeResponse struct {
	*personalize.Asset
	DataURI string `json:"data_uri"`
}

type personalizeJSON struct {
	ImagePath string               `json:"image_path"`
	Image     []byte               `json:"image"`
	Spec      personalize.CropSpec `json:"spec"`
}

// personalize accepts either a multipart form (file "image", JSON field
// "spec") or a JSON body. ?raw=1 returns the encoded image itself.
func (s *Server) personalize(w http.ResponseWriter, r *http.Request) {
	req, err := s.personalizeRequest(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := s.runner.Personalize(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if queryBool(r.URL.Query().Get("raw")) {
		h := w.Header()
		h.Set("Content-Type", asset.MediaType)
		h.Set("X-Asset-Id", asset.ID)
		h.Set("X-Width-Mm", strconv.FormatFloat(asset.WidthMM, 'f', -1, 64))
		h.Set("X-Height-Mm", strconv.FormatFloat(asset.HeightMM, 'f', -1, 64))
		h.Set("X-Aspect", strconv.FormatFloat(asset.Aspect, 'f', -1, 64))
		_, _ = w.Write(asset.Data)
		return
	}
	writeJSON(w, http.StatusOK, personalizeResponse{
		Asset:   asset,
		DataURI: "data:" + asset.MediaType + ";base64," + base64.StdEncoding.EncodeToString(asset.Data),
	})
}

func (s *Server) personalizeRequest(w http.ResponseWriter, r *http.Request) (pipeline.PersonalizeRequest, error) {
	limit := s.cfg.maxUpload()
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		var body personalizeJSON
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return pipeline.PersonalizeRequest{}, merrors.Wrap(merrors.ErrCodeInvalidInput, err, "invalid request body")
		}
		return pipeline.PersonalizeRequest{Image: body.Image, ImagePath: body.ImagePath, Spec: body.Spec}, nil
	}

	if err := r.ParseMultipartForm(limit); err != nil {
		return pipeline.PersonalizeRequest{}, merrors.Wrap(merrors.ErrCodeInvalidInput, err, "upload too large (max %d MB)", limit>>20)
	}
	var req pipeline.PersonalizeRequest
	if spec := r.FormValue("spec"); spec != "" {
		if err := json.Unmarshal([]byte(spec), &req.Spec); err != nil {
			return req, merrors.Wrap(merrors.ErrCodeInvalidCrop, err, "invalid spec")
		}
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return req, merrors.Wrap(merrors.ErrCodeInvalidInput, err, "missing image field")
	}
	defer file.Close()
	if req.Image, err = io.ReadAll(file); err != nil {
		return req, merrors.Wrap(merrors.ErrCodeInvalidInput, err, "read image")
	}
	return req, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxDesignBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return merrors.Wrap(merrors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}
