package personalize

import (
	"strings"

	"github.com/forevershiningA/memorial/pkg/errors"
)

// ColorMode is the color transform applied to the photo.
type ColorMode string

const (
	FullColor  ColorMode = "color"
	BlackWhite ColorMode = "bw"
	Sepia      ColorMode = "sepia"
)

// ParseColorMode accepts the mode names plus a few common aliases. Empty
// selects FullColor.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "color", "colour", "full":
		return FullColor, nil
	case "bw", "b&w", "grayscale", "greyscale", "mono":
		return BlackWhite, nil
	case "sepia":
		return Sepia, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown color mode %q", s)
}

// Format is the output encoding.
type Format string

const (
	PNG  Format = "png"
	WebP Format = "webp"
)

// ParseFormat parses an output format name. Empty selects PNG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported output format %q", s)
}

// MediaType returns the MIME type of f.
func (f Format) MediaType() string {
	if f == WebP {
		return "image/webp"
	}
	return "image/png"
}

// CropSpec describes one personalization.
type CropSpec struct {
	// X, Y, Width and Height select the crop in percent of the source
	// image. A zero Width or Height selects the rest of the image.
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Rotation is clockwise, in degrees.
	Rotation float64 `json:"rotation"`
	FlipX    bool    `json:"flip_x"`
	FlipY    bool    `json:"flip_y"`
	// Scale is a percentage; zero means 100.
	Scale float64 `json:"scale"`

	Color  ColorMode `json:"color"`
	Mask   string    `json:"mask"`
	Format Format    `json:"format"`

	// Product selects the catalog product type; Variant indexes its sizes.
	Product string `json:"product"`
	Variant int    `json:"variant"`
}

// Scale limits, as multipliers.
const (
	MinScale = 0.05
	MaxScale = 8.0
)

// SetDefaults fills unset fields.
func (s *CropSpec) SetDefaults() {
	if s.Scale == 0 {
		s.Scale = 100
	}
	if s.Color == "" {
		s.Color = FullColor
	}
	if s.Format == "" {
		s.Format = PNG
	}
}

// Validate rejects values that cannot be clamped into range.
func (s *CropSpec) Validate() error {
	if _, err := ParseColorMode(string(s.Color)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return err
	}
	if s.Scale < 0 {
		return errors.New(errors.ErrCodeInvalidCrop, "scale must not be negative: %v", s.Scale)
	}
	return nil
}

// Asset is a composited personalization image.
type Asset struct {
	ID        string  `json:"id"`
	Format    Format  `json:"format"`
	MediaType string  `json:"media_type"`
	Data      []byte  `json:"-"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	WidthMM   float64 `json:"width_mm"`
	HeightMM  float64 `json:"height_mm"`
	Aspect    float64 `json:"aspect"`
	Masked    bool    `json:"masked"`
}
