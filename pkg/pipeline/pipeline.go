// Package pipeline runs the memorial rendering chain.
//
// A design is rendered in three ordered stages, each consuming the output
// of the one before it:
//
//  1. Compose: the shape outline is filled with its texture or flat finish,
//     the base slab is appended and the viewBox is fitted to the display
//     container. A raster-safe twin of the scene is produced alongside.
//  2. Profile: the raster-safe twin is rasterized at frame size and reduced
//     to a smoothed top-edge profile.
//  3. Place: every inscription and motif is normalized into the display
//     frame, snapping top-band elements against the profile.
//
// Asset failures never abort a render. A missing shape yields the unshaped
// scene, a missing profile disables snapping and a missing motif asset is
// sized with the default intrinsic box.
//
// Renders for the same session are ordered by a [Tracker]: once a session
// switches to another design, chains still running for the previous one
// finish with [ErrStale] instead of a result.
//
// # Usage
//
//	runner := pipeline.NewRunner(catalog.Default(), assets.NewDirSource(root), nil, nil, logger)
//	res, err := runner.Render(ctx, rec, shot, pipeline.Options{
//	    DesignID:      "1712345678901",
//	    ViewportWidth: 1280,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range res.Placements {
//	    fmt.Println(p.Kind, p.Left, p.Top)
//	}
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/forevershiningA/memorial/pkg/coords"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/framing"
	"github.com/forevershiningA/memorial/pkg/placement"
	"github.com/forevershiningA/memorial/pkg/scene"
	"github.com/forevershiningA/memorial/pkg/silhouette"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultViewportWidth is assumed when the caller does not report one.
	DefaultViewportWidth = 1280.0

	// MaxViewportWidth bounds caller-provided viewports.
	MaxViewportWidth = 8192.0
)

// =============================================================================
// Options - Render Configuration
// =============================================================================

// Options configures a single render. It supports JSON for API requests.
type Options struct {
	// DesignID identifies the design for stale tracking and hooks.
	DesignID string `json:"design_id,omitempty"`
	// Session groups renders that share one display. Renders in the same
	// session invalidate each other when the design changes. An empty
	// session is private to the one render and never goes stale.
	Session string `json:"session,omitempty"`

	ViewportWidth float64 `json:"viewport_width,omitempty"`

	// Finish overrides the record's finish ("textured" or "flat").
	Finish string `json:"finish,omitempty"`

	// SkipProfile disables the silhouette stage and with it snapping.
	SkipProfile bool `json:"skip_profile,omitempty"`

	// InlineAssets embeds textures as data URIs instead of linking them.
	InlineAssets bool `json:"inline_assets,omitempty"`

	// Placement tunes the normalizer heuristics. Nil uses the defaults.
	Placement *placement.Options `json:"placement,omitempty"`

	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks the options and fills unset fields. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.DesignID != "" {
		if err := errors.ValidateDesignID(o.DesignID); err != nil {
			return err
		}
	}
	switch {
	case o.ViewportWidth < 0 || o.ViewportWidth > MaxViewportWidth:
		return errors.New(errors.ErrCodeInvalidInput, "viewport width out of range: %v", o.ViewportWidth)
	case o.ViewportWidth == 0:
		o.ViewportWidth = DefaultViewportWidth
	}
	switch o.Finish {
	case "", "textured", "flat":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown finish %q (must be textured or flat)", o.Finish)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Results
// =============================================================================

// Result is the output of a render.
type Result struct {
	DesignID   string                `json:"design_id,omitempty"`
	Mode       coords.Mode           `json:"-"`
	ModeName   string                `json:"mode"`
	Tagged     bool                  `json:"tagged"`
	Framing    framing.Framing       `json:"framing"`
	Scene      *scene.Scene          `json:"scene"`
	Profile    *silhouette.Profile   `json:"-"`
	Placements []placement.Placement `json:"placements"`
	Stats      Stats                 `json:"stats"`
}

// Stats contains render timings and counts.
type Stats struct {
	ComposeTime time.Duration `json:"compose_ns"`
	ProfileTime time.Duration `json:"profile_ns"`
	PlaceTime   time.Duration `json:"place_ns"`
	Elements    int           `json:"elements"`
	Snapped     int           `json:"snapped"`
	Motifs      int           `json:"motifs"`
	Shaped      bool          `json:"shaped"`
	Profiled    bool          `json:"profiled"`
}
