package assets

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/forevershiningA/memorial/pkg/catalog"
)

// Paths maps catalog names to asset paths.
type Paths struct {
	cat *catalog.Catalog
}

// NewPaths returns a Paths over c (the default catalog when nil).
func NewPaths(c *catalog.Catalog) Paths {
	if c == nil {
		c = catalog.Default()
	}
	return Paths{cat: c}
}

// Shape returns the outline path for a shape name. Table entries win,
// numeric names use the numeric pattern and anything else is slugged.
func (p Paths) Shape(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasSuffix(strings.ToLower(name), ".svg") && strings.Contains(name, "/") {
		return strings.TrimLeft(name, "/")
	}
	for k, file := range p.cat.Shapes {
		if strings.EqualFold(k, name) {
			return path.Join(p.cat.Assets.ShapeDir, file)
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 {
		return path.Join(p.cat.Assets.ShapeDir, fmt.Sprintf(p.cat.Assets.NumericShapePattern, n))
	}
	return path.Join(p.cat.Assets.ShapeDir, slug(name)+".svg")
}

// textureStem pulls a texture name out of legacy file names such as
// "Blue-Pearl-TILE-900-X-900.jpg" or "blue_pearl.png".
var textureStem = regexp.MustCompile(`(?i)^([a-z0-9][a-z0-9 _-]*?)(?:-tile-\d+-x-\d+)?\.(?:jpe?g|png|webp|tga)$`)

// Texture resolves a texture reference. It tries the legacy table, then the
// extracted stem, then reuses the raw file name.
func (p Paths) Texture(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if file, ok := p.cat.Textures.Legacy[ref]; ok {
		return path.Join(p.cat.Assets.TextureDir, file)
	}
	if file, ok := p.cat.Textures.Legacy[strings.TrimLeft(ref, "/")]; ok {
		return path.Join(p.cat.Assets.TextureDir, file)
	}

	base := path.Base(strings.ReplaceAll(ref, "\\", "/"))
	if m := textureStem.FindStringSubmatch(base); m != nil {
		if file, ok := p.cat.Textures.Names[slug(m[1])]; ok {
			return path.Join(p.cat.Assets.TextureDir, file)
		}
	}
	if file, ok := p.cat.Textures.Names[slug(ref)]; ok {
		return path.Join(p.cat.Assets.TextureDir, file)
	}
	return path.Join(p.cat.Assets.TextureDir, base)
}

// Motif resolves a motif reference. Bare names live in the motif directory.
func (p Paths) Motif(ref string) string {
	ref = strings.TrimLeft(strings.TrimSpace(ref), "/")
	if ref == "" {
		return ""
	}
	if strings.Contains(ref, "/") {
		return ref
	}
	if path.Ext(ref) == "" {
		ref += ".svg"
	}
	return path.Join(p.cat.Assets.MotifDir, ref)
}

// Mask resolves a mask shape name.
func (p Paths) Mask(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if file, ok := p.cat.Masks[strings.ToLower(name)]; ok {
		return path.Join(p.cat.Assets.MaskDir, file)
	}
	return path.Join(p.cat.Assets.MaskDir, slug(name)+".svg")
}

// slug lowercases and joins words with dashes.
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	})
	return strings.Join(fields, "-")
}
