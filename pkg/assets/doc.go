// Package assets addresses, fetches and measures the static assets a design
// references: shape outlines, motifs, masks and texture images.
//
// # Sources
//
// A [Source] returns raw bytes for a relative asset path. [DirSource] reads
// a local asset tree, [HTTPSource] reads from an asset host through the
// cached, retrying httputil client, and [MemorySource] serves fixtures.
//
// # Addressing
//
// [Paths] turns catalog names into asset paths. Shapes come from a fixed
// table, with unmapped numeric names derived from a pattern. Textures go
// through three fallbacks: an exact legacy-path match, a stem extracted from
// the file name, and finally the raw file name.
//
// # Intrinsic dimensions
//
// [Resolver] memoizes each vector asset's native viewport. Lookups never
// fail: an asset that cannot be fetched or parsed measures [DefaultSize].
package assets
