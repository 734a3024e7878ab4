// Package pkg provides the core libraries of the memorial design renderer.
//
// # Overview
//
// A memorial design is a saved record of a headstone, its optional base,
// and the inscriptions and motifs placed on it. The renderer turns such a
// record back into something a browser can show at any viewport: a textured
// shape scene, and display coordinates for every element, snapped to the
// top edge of the stone where they were authored against it.
//
// # Architecture
//
// The data flow of one render:
//
//	design record (+ screenshot metadata)
//	         ↓
//	    [coords] (which unit system the record uses)
//	         ↓
//	    [framing] (fit the authoring frame into the viewport)
//	         ↓
//	    [scene] (shape + texture + base, fitted viewBox)
//	         ↓
//	    [raster] → [silhouette] (top-edge profile)
//	         ↓
//	    [placement] (inscription and motif positions)
//
// [pipeline] runs these stages in order and is shared by the CLI and the
// HTTP server. [personalize] is a separate path that crops, masks and
// encodes uploaded photos for photo products.
//
// # Main Packages
//
// ## Domain
//
// [design] - Record model and the tolerant JSON decoder for saved designs.
//
// [geom] - Sizes, rectangles and contain-fit transforms.
//
// [coords] - Coordinate mode detection: explicit tags, millimeter signals
// and the legacy heuristics.
//
// [framing] - Responsive display framing, including crop and DPR handling.
//
// [scene] - SVG scene composition with etree.
//
// [raster] - Off-screen SVG rasterization with oksvg and rasterx.
//
// [silhouette] - Top-edge profiles with memoized, cache-backed builds.
//
// [placement] - Element normalization and silhouette snapping.
//
// [personalize] - Photo crop, color, mask and encode.
//
// ## Infrastructure
//
// [assets] - Asset addressing from the [catalog], fetching from disk or
// HTTP, and intrinsic-size measurement.
//
// [catalog] - Embedded TOML product catalog.
//
// [store] - Design storage: file, MongoDB and in-memory backends.
//
// [cache] - Derived-artifact cache: file, Redis and null backends.
//
// [httputil] - Retrying HTTP client with an on-disk response cache.
//
// [observability] - Hooks around each pipeline stage.
//
// [errors] - Coded errors with HTTP status and user-message mapping.
//
// # Testing
//
//	go test ./pkg/...
//
// [coords]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/coords
// [framing]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/framing
// [scene]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/scene
// [raster]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/raster
// [silhouette]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/silhouette
// [placement]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/placement
// [pipeline]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/pipeline
// [personalize]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/personalize
// [design]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/design
// [geom]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/geom
// [assets]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/assets
// [catalog]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/catalog
// [store]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/store
// [cache]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/httputil
// [observability]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/observability
// [errors]: https://pkg.go.dev/github.com/forevershiningA/memorial/pkg/errors
package pkg
