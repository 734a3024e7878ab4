// Package silhouette derives the top-edge height profile of a shape.
//
// A sanitized shape scene is rendered into an off-screen buffer at the
// authoring frame's pixel size with a contain fit. For every column the
// first row whose alpha exceeds [AlphaThreshold] is recorded (minus one
// pixel of anti-aliasing bias), then the array is smoothed with two passes
// of a 5-tap box blur:
//
//	buf, _ := renderer.Render(sanitized, w, h, raster.Contain)
//	prof := silhouette.FromBuffer(buf)
//	top := prof.Sample(x)
//
// [Builder] adds memoization per (shape, texture, frame) and sanitized scene
// digest, plus an optional persistent [cache.Cache] so profiles survive
// restarts.
package silhouette
