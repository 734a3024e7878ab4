package design

// Record is a decoded design: its elements in authored order.
type Record struct {
	Elements []Element
}

// Headstone returns the first headstone element.
func (r *Record) Headstone() (*Headstone, bool) {
	for _, el := range r.Elements {
		if h, ok := el.(*Headstone); ok {
			return h, true
		}
	}
	return nil, false
}

// Base returns the first base element.
func (r *Record) Base() (*Base, bool) {
	for _, el := range r.Elements {
		if b, ok := el.(*Base); ok {
			return b, true
		}
	}
	return nil, false
}

// Inscriptions returns all inscription elements in order.
func (r *Record) Inscriptions() []*Inscription {
	var out []*Inscription
	for _, el := range r.Elements {
		if i, ok := el.(*Inscription); ok {
			out = append(out, i)
		}
	}
	return out
}

// Motifs returns all motif elements in order.
func (r *Record) Motifs() []*Motif {
	var out []*Motif
	for _, el := range r.Elements {
		if m, ok := el.(*Motif); ok {
			out = append(out, m)
		}
	}
	return out
}

// Placeable returns the inscriptions and motifs in authored order.
func (r *Record) Placeable() []Element {
	var out []Element
	for _, el := range r.Elements {
		switch el.(type) {
		case *Inscription, *Motif:
			out = append(out, el)
		}
	}
	return out
}

// UsesMillimeterMotifs reports whether any motif is sized in millimeters.
// Such designs were authored against the original canvas and must keep it.
func (r *Record) UsesMillimeterMotifs() bool {
	for _, m := range r.Motifs() {
		if m.Legacy() {
			return true
		}
	}
	return false
}

// PhysicalInMillimeters reports whether the headstone's width/height are
// millimeters rather than pixels.
func (r *Record) PhysicalInMillimeters() bool {
	h, ok := r.Headstone()
	if !ok {
		return false
	}
	if h.Coords == CoordsMillimeter {
		return true
	}
	return r.UsesMillimeterMotifs()
}

// HasRoleTags reports whether any inscription carries an explicit role.
func (r *Record) HasRoleTags() bool {
	for _, i := range r.Inscriptions() {
		if i.Role != RoleNone {
			return true
		}
	}
	return false
}

// Frame returns the authoring frame recorded on the headstone.
func (r *Record) Frame() (AuthoringFrame, bool) {
	h, ok := r.Headstone()
	if !ok || h.InitWidth <= 0 || h.InitHeight <= 0 {
		return AuthoringFrame{}, false
	}
	return AuthoringFrame{
		Width:  h.InitWidth,
		Height: h.InitHeight,
		DPR:    h.EffectiveDPR(),
		Device: h.Device,
	}, true
}
