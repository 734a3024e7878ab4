// Package personalize turns an uploaded photograph into a masked product
// image.
//
// [Compositor.Compose] runs synchronously once the photo and mask are
// loaded:
//
//  1. crop the source by a percentage rectangle, clamped to the image
//  2. rotate about the center, flip, then scale
//  3. apply the color mode (full color, black and white, sepia)
//  4. re-fit the buffer to the mask's aspect, measured from the mask's
//     visible bounds rather than its viewBox
//  5. intersect alpha with the mask sampled through those bounds, then trim
//  6. size the result in millimeters from the product's catalog variants
//
// A missing mask skips steps 4 and 5. Any failure to obtain a raster buffer
// aborts with a COMPOSITING_FAILED error; no partial asset is returned.
package personalize
