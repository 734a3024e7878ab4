// Package scene composites the headstone shape scene.
//
// [Compose] takes a shape outline and produces two documents:
//
//   - the display scene: shape filled with a tiled texture pattern (or a flat
//     finish), an optional base slab, and a viewBox expanded to the
//     container's aspect ratio
//   - a sanitized twin with identical geometry, flat opaque fills and no
//     external images, safe to hand to a rasterizer
//
// The viewBox is widened or heightened about its center, never cropped, so
// coordinates authored against the outline stay valid at any container
// aspect. The base is attached below the outline's original lower edge, not
// below the expanded viewBox.
//
// When the outline is missing or unparseable, Compose falls back to an
// unshaped background rectangle and reports Shaped=false; no sanitized twin
// is produced because there is no silhouette to derive.
package scene
