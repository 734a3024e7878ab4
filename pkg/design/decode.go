package design

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// number accepts JSON numbers, numeric strings and null.
type number struct {
	v   float64
	set bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "px"))
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		n.v, n.set = v, true
		return nil
	}
	if string(b) == "true" || string(b) == "false" {
		return fmt.Errorf("not a number: %s", b)
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	n.v, n.set = v, true
	return nil
}

// flip accepts a signed scale (1 / -1) or a boolean where true means mirrored.
type flip struct {
	v   float64
	set bool
}

func (f *flip) UnmarshalJSON(b []byte) error {
	switch s := string(bytes.TrimSpace(b)); s {
	case "null", "":
		return nil
	case "true", `"true"`:
		f.v, f.set = -1, true
		return nil
	case "false", `"false"`:
		f.v, f.set = 1, true
		return nil
	}
	var n number
	if err := n.UnmarshalJSON(b); err != nil {
		return err
	}
	if n.set {
		f.v, f.set = n.v, true
	}
	return nil
}

func (f flip) or(other flip) float64 {
	switch {
	case f.set && f.v != 0:
		return f.v
	case other.set && other.v != 0:
		return other.v
	}
	return 1
}

// looseBool accepts booleans, "true"/"false" strings and 0/1.
type looseBool bool

func (l *looseBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "true", "1":
		*l = true
	}
	return nil
}

// wireElement is the superset of every field any historical writer used.
type wireElement struct {
	Type     string `json:"type"`
	ItemType string `json:"itemType"`

	X        number `json:"x"`
	Y        number `json:"y"`
	Rotation number `json:"rotation"`
	Color    string `json:"color"`

	InitWidth  number `json:"init_width"`
	InitHeight number `json:"init_height"`
	DPR        number `json:"dpr"`
	Device     string `json:"device"`
	Shape      string `json:"shape"`
	Texture    string `json:"texture"`
	Finish     string `json:"finish"`
	Width      number `json:"width"`
	Height     number `json:"height"`
	Coords     string `json:"coords"`

	Label     string    `json:"label"`
	FontSize  number    `json:"font_size"`
	Font      string    `json:"font"`
	Align     string    `json:"align"`
	Role      string    `json:"role"`
	IsSurname looseBool `json:"is_surname"`

	Src    string `json:"src"`
	Name   string `json:"name"`
	Ratio  number `json:"ratio"`
	ScaleX flip   `json:"scaleX"`
	ScaleY flip   `json:"scaleY"`
	FlipX  flip   `json:"flipx"`
	FlipY  flip   `json:"flipy"`
}

var fontSizeRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*px`)

// FontSizeFromString extracts the pixel size from a CSS font shorthand such
// as "bold 42.5px Garamond".
func FontSizeFromString(font string) (float64, bool) {
	m := fontSizeRegex.FindStringSubmatch(font)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func normalizeKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "headstone", "plaque", "stone":
		return KindHeadstone
	case "base":
		return KindBase
	case "inscription", "text":
		return KindInscription
	case "motif", "emblem":
		return KindMotif
	}
	return ""
}

func normalizeCoords(s string) CoordTag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "physical", "device":
		return CoordsPhysical
	case "logical", "css":
		return CoordsLogical
	case "mm", "millimeter", "millimeters":
		return CoordsMillimeter
	}
	return CoordsUntagged
}

func (w *wireElement) element() Element {
	kind := normalizeKind(w.Type)
	if kind == "" {
		kind = normalizeKind(w.ItemType)
	}
	common := Common{X: finite(w.X.v), Y: finite(w.Y.v), Rotation: finite(w.Rotation.v), Color: w.Color}

	switch kind {
	case KindHeadstone:
		return &Headstone{
			Common:     common,
			InitWidth:  finite(w.InitWidth.v),
			InitHeight: finite(w.InitHeight.v),
			DPR:        finite(w.DPR.v),
			Device:     w.Device,
			Shape:      w.Shape,
			Texture:    w.Texture,
			Finish:     strings.ToLower(w.Finish),
			Width:      finite(w.Width.v),
			Height:     finite(w.Height.v),
			Coords:     normalizeCoords(w.Coords),
		}
	case KindBase:
		return &Base{Common: common, Width: finite(w.Width.v), Height: finite(w.Height.v), Texture: w.Texture}
	case KindInscription:
		ins := &Inscription{
			Common:   common,
			Label:    w.Label,
			FontSize: finite(w.FontSize.v),
			Font:     w.Font,
			Align:    w.Align,
		}
		if ins.FontSize <= 0 {
			if v, ok := FontSizeFromString(w.Font); ok {
				ins.FontSize = v
			}
		}
		if strings.EqualFold(w.Role, string(RoleSurname)) || bool(w.IsSurname) {
			ins.Role = RoleSurname
		}
		return ins
	case KindMotif:
		return &Motif{
			Common:   common,
			Src:      w.Src,
			Name:     w.Name,
			Ratio:    finite(w.Ratio.v),
			HeightMM: finite(w.Height.v),
			ScaleX:   w.ScaleX.or(w.FlipX),
			ScaleY:   w.ScaleY.or(w.FlipY),
		}
	}
	return nil
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Decode parses a persisted design. It accepts a bare JSON array of
// elements or an object wrapping one under "elements" or "items".
func Decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var raw []json.RawMessage
	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Elements []json.RawMessage `json:"elements"`
			Items    []json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return fmt.Errorf("decode design: %w", err)
		}
		raw = wrapper.Elements
		if raw == nil {
			raw = wrapper.Items
		}
	} else if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode design: %w", err)
	}

	r.Elements = r.Elements[:0]
	for i, msg := range raw {
		var w wireElement
		if err := json.Unmarshal(msg, &w); err != nil {
			return fmt.Errorf("decode design element %d: %w", i, err)
		}
		if el := w.element(); el != nil {
			r.Elements = append(r.Elements, el)
		}
	}
	return nil
}

// MarshalJSON writes the record in the tagged format: every element carries
// its "type" and the headstone carries its coordinate tag if set.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make([]map[string]any, 0, len(r.Elements))
	for _, el := range r.Elements {
		b, err := json.Marshal(el)
		if err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		m["type"] = el.Kind()
		out = append(out, m)
	}
	return json.Marshal(out)
}
