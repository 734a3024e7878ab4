package design

import (
	"github.com/forevershiningA/memorial/pkg/geom"
)

// =============================================================================
// Constants
// =============================================================================

// Kind identifies an element variant.
type Kind string

// Element kinds.
const (
	KindHeadstone   Kind = "Headstone"
	KindBase        Kind = "Base"
	KindInscription Kind = "Inscription"
	KindMotif       Kind = "Motif"
)

// CoordTag is an explicit coordinate-system tag carried by newer records.
type CoordTag string

// Coordinate tags. The zero value means the record is untagged.
const (
	CoordsUntagged   CoordTag = ""
	CoordsPhysical   CoordTag = "physical"
	CoordsLogical    CoordTag = "logical"
	CoordsMillimeter CoordTag = "mm"
)

// Role is an explicit inscription role.
type Role string

// Inscription roles.
const (
	RoleNone    Role = ""
	RoleSurname Role = "surname"
)

// Finishes select how the headstone surface is filled.
const (
	FinishTextured = "textured"
	FinishFlat     = "flat"
)

// =============================================================================
// Elements
// =============================================================================

// Element is one entry of a design record. The set of implementations is
// closed: *Headstone, *Base, *Inscription and *Motif.
type Element interface {
	Kind() Kind
	Attrs() *Common
	element()
}

// Common holds the fields every element carries. X and Y are relative to
// the authoring frame center; their unit depends on the coordinate mode.
type Common struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation,omitempty"`
	Color    string  `json:"color,omitempty"`
}

// Headstone is the stone and the frame the design was authored against.
type Headstone struct {
	Common
	InitWidth  float64  `json:"init_width"`
	InitHeight float64  `json:"init_height"`
	DPR        float64  `json:"dpr,omitempty"`
	Device     string   `json:"device,omitempty"`
	Shape      string   `json:"shape,omitempty"`
	Texture    string   `json:"texture,omitempty"`
	Finish     string   `json:"finish,omitempty"`
	Width      float64  `json:"width,omitempty"`  // physical width, px or mm
	Height     float64  `json:"height,omitempty"` // physical height, px or mm
	Coords     CoordTag `json:"coords,omitempty"`
}

// Base is the slab under the stone. Width and Height are millimeters.
type Base struct {
	Common
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Texture string  `json:"texture,omitempty"`
}

// Inscription is a single line of text.
type Inscription struct {
	Common
	Label    string  `json:"label"`
	FontSize float64 `json:"font_size,omitempty"`
	Font     string  `json:"font,omitempty"`
	Align    string  `json:"align,omitempty"`
	Role     Role    `json:"role,omitempty"`
}

// Motif is a vector ornament. New records size it with Ratio (a multiplier
// on the asset's intrinsic size); legacy records carry HeightMM instead.
type Motif struct {
	Common
	Src      string  `json:"src,omitempty"`
	Name     string  `json:"name,omitempty"`
	Ratio    float64 `json:"ratio,omitempty"`
	HeightMM float64 `json:"height,omitempty"`
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

func (*Headstone) Kind() Kind   { return KindHeadstone }
func (*Base) Kind() Kind        { return KindBase }
func (*Inscription) Kind() Kind { return KindInscription }
func (*Motif) Kind() Kind       { return KindMotif }

func (h *Headstone) Attrs() *Common   { return &h.Common }
func (b *Base) Attrs() *Common        { return &b.Common }
func (i *Inscription) Attrs() *Common { return &i.Common }
func (m *Motif) Attrs() *Common       { return &m.Common }

func (*Headstone) element()   {}
func (*Base) element()        {}
func (*Inscription) element() {}
func (*Motif) element()       {}

// Legacy reports whether the motif is sized in millimeters.
func (m *Motif) Legacy() bool { return m.HeightMM > 0 && m.Ratio <= 0 }

// Asset returns the motif's asset reference, preferring Src over Name.
func (m *Motif) Asset() string {
	if m.Src != "" {
		return m.Src
	}
	return m.Name
}

// EffectiveDPR returns the recorded device pixel ratio, defaulting to 1.
func (h *Headstone) EffectiveDPR() float64 {
	if h.DPR <= 0 {
		return 1
	}
	return h.DPR
}

// =============================================================================
// Frames and side metadata
// =============================================================================

// AuthoringFrame is the logical canvas a design was composed against.
type AuthoringFrame struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	DPR    float64 `json:"dpr"`
	Device string  `json:"device,omitempty"`
}

// Size returns the frame dimensions.
func (f AuthoringFrame) Size() geom.Size { return geom.Size{W: f.Width, H: f.Height} }

// ScreenshotMeta is the optional crop metadata stored next to a record.
type ScreenshotMeta struct {
	Original   geom.Size `json:"original" bson:"original"`
	Cropped    geom.Size `json:"cropped" bson:"cropped"`
	WasCropped bool      `json:"wasCropped" bson:"wasCropped"`
}

// CroppedSize returns the cropped dimensions when a usable crop exists.
func (m *ScreenshotMeta) CroppedSize() (geom.Size, bool) {
	if m == nil || !m.WasCropped || m.Cropped.Empty() {
		return geom.Size{}, false
	}
	return m.Cropped, true
}
