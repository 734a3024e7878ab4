// Package design models persisted memorial design records.
//
// # Overview
//
// A design record is an ordered list of elements authored against a canvas
// (the authoring frame). Historical records are loosely typed: numbers may
// arrive as strings, flip flags exist under two names, font sizes are
// sometimes embedded in a CSS font string, and the unit of x/y was never
// written down. This package decodes all of that into a closed set of
// element variants:
//
//   - [Headstone]: the stone itself, carrying the authoring frame, shape,
//     texture and physical size
//   - [Base]: the optional slab under the stone, sized in millimeters
//   - [Inscription]: a line of text
//   - [Motif]: a vector ornament
//
// Newer records may carry an explicit coordinate tag on the headstone
// ([CoordsPhysical], [CoordsLogical], [CoordsMillimeter]) and an explicit
// role on inscriptions ([RoleSurname]). Both are optional; the coords
// package falls back to heuristics when they are absent.
//
// # Decoding
//
//	rec, err := design.Decode(data)
//	if err != nil {
//	    return err
//	}
//	hs, ok := rec.Headstone()
//
// Elements of unknown kind are skipped, not rejected.
package design
