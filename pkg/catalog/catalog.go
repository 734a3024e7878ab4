// Package catalog loads the product catalog that drives asset addressing,
// framing policy and personalization sizes.
//
// The default catalog is embedded; [Load] reads an override from disk.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/forevershiningA/memorial/pkg/errors"
)

//go:embed catalog.toml
var defaultTOML []byte

// Catalog is the decoded catalog.
type Catalog struct {
	DefaultUnitHeightMM float64 `toml:"default_unit_height_mm"`
	TextureTile         float64 `toml:"texture_tile"`

	Framing  Framing           `toml:"framing"`
	Assets   Assets            `toml:"assets"`
	Finish   Finish            `toml:"finish"`
	Shapes   map[string]string `toml:"shapes"`
	Textures Textures          `toml:"textures"`
	Masks    map[string]string `toml:"masks"`
	Products []Product         `toml:"products"`
}

// Framing is the responsive display policy.
type Framing struct {
	MobileBreakpoint float64 `toml:"mobile_breakpoint"`
	DesktopMaxWidth  float64 `toml:"desktop_max_width"`
}

// Assets holds directory conventions, relative to the asset root.
type Assets struct {
	ShapeDir            string `toml:"shape_dir"`
	NumericShapePattern string `toml:"numeric_shape_pattern"`
	TextureDir          string `toml:"texture_dir"`
	MotifDir            string `toml:"motif_dir"`
	MaskDir             string `toml:"mask_dir"`
}

// Finish holds fills for the flat finish and the base slab.
type Finish struct {
	FlatColor   string `toml:"flat_color"`
	BaseColor   string `toml:"base_color"`
	BaseTexture string `toml:"base_texture"`
}

// Textures maps legacy texture references to current asset files.
type Textures struct {
	Legacy map[string]string `toml:"legacy"` // exact legacy path -> file
	Names  map[string]string `toml:"names"`  // extracted stem -> file
}

// Product is a personalization product type.
type Product struct {
	ID              string    `toml:"id"`
	Name            string    `toml:"name"`
	DefaultHeightMM float64   `toml:"default_height_mm"`
	Sizes           []Variant `toml:"sizes"`
}

// Variant is a discrete physical size in millimeters.
type Variant struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultTOML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a catalog from path. An empty path returns the default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "read catalog %s", path)
	}
	return Parse(data)
}

// Parse decodes a catalog and fills unset values with defaults.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if _, err := toml.Decode(string(data), &c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse catalog")
	}
	c.SetDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// SetDefaults fills zero values.
func (c *Catalog) SetDefaults() {
	if c.DefaultUnitHeightMM <= 0 {
		c.DefaultUnitHeightMM = 100
	}
	if c.TextureTile <= 0 {
		c.TextureTile = 512
	}
	if c.Framing.MobileBreakpoint <= 0 {
		c.Framing.MobileBreakpoint = 768
	}
	if c.Framing.DesktopMaxWidth <= 0 {
		c.Framing.DesktopMaxWidth = 800
	}
	if c.Assets.ShapeDir == "" {
		c.Assets.ShapeDir = "shapes"
	}
	if c.Assets.NumericShapePattern == "" {
		c.Assets.NumericShapePattern = "headstone_%d.svg"
	}
	if c.Assets.TextureDir == "" {
		c.Assets.TextureDir = "textures"
	}
	if c.Assets.MotifDir == "" {
		c.Assets.MotifDir = "motifs"
	}
	if c.Assets.MaskDir == "" {
		c.Assets.MaskDir = "masks"
	}
	if c.Finish.FlatColor == "" {
		c.Finish.FlatColor = "#1c1c1c"
	}
	if c.Finish.BaseColor == "" {
		c.Finish.BaseColor = "#2b2b2b"
	}
}

// Validate rejects catalogs that cannot drive a render.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool, len(c.Products))
	for _, p := range c.Products {
		if p.ID == "" {
			return errors.New(errors.ErrCodeInvalidInput, "catalog product without id")
		}
		if seen[p.ID] {
			return errors.New(errors.ErrCodeInvalidInput, "duplicate catalog product %q", p.ID)
		}
		seen[p.ID] = true
		for i, v := range p.Sizes {
			if v.Width <= 0 || v.Height <= 0 {
				return errors.New(errors.ErrCodeInvalidInput, "product %q size %d is not positive", p.ID, i)
			}
		}
	}
	return nil
}

// Product looks up a product type by id.
func (c *Catalog) Product(id string) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Variant returns the size at index i, clamped to the available range.
// It reports false when the product has no discrete sizes.
func (p Product) Variant(i int) (Variant, bool) {
	if len(p.Sizes) == 0 {
		return Variant{}, false
	}
	if i < 0 {
		i = 0
	}
	if i >= len(p.Sizes) {
		i = len(p.Sizes) - 1
	}
	return p.Sizes[i], true
}

// MaskNames returns the configured mask names, sorted.
func (c *Catalog) MaskNames() []string {
	names := make([]string, 0, len(c.Masks))
	for n := range c.Masks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ShapeNames returns the configured shape names, sorted.
func (c *Catalog) ShapeNames() []string {
	names := make([]string, 0, len(c.Shapes))
	for n := range c.Shapes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
