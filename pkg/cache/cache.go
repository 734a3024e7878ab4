// Package cache stores derived rendering artifacts between runs.
//
// Silhouette profiles, intrinsic asset dimensions and mask metrics are pure
// functions of their inputs, so they are safe to persist. Three backends
// implement [Cache]:
//
//   - [FileCache]: one file per entry, for the CLI
//   - [RedisCache]: shared cache for the HTTP server
//   - [NullCache]: caching disabled
//
// Keys come from a [Keyer] so every component derives them the same way.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value and true on a hit, or nil and false on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data. A zero ttl means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default TTLs per artifact family.
const (
	TTLProfile    = 30 * 24 * time.Hour
	TTLDimensions = 30 * 24 * time.Hour
	TTLMask       = 30 * 24 * time.Hour
)

// ProfileKeyOpts identifies a silhouette profile.
type ProfileKeyOpts struct {
	Shape       string  `json:"shape"`
	Texture     string  `json:"texture"`
	FrameWidth  float64 `json:"frame_width"`
	FrameHeight float64 `json:"frame_height"`
	Scene       string  `json:"scene,omitempty"`
}

// Keyer derives cache keys.
type Keyer interface {
	ProfileKey(opts ProfileKeyOpts) string
	DimensionsKey(asset string) string
	MaskKey(mask string) string
}

// DefaultKeyer hashes key components into fixed-length keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// ProfileKey keys a profile by (shape, texture, frame, scene digest).
func (DefaultKeyer) ProfileKey(opts ProfileKeyOpts) string {
	return hashKey("profile", opts)
}

// DimensionsKey keys an asset's intrinsic dimensions.
func (DefaultKeyer) DimensionsKey(asset string) string {
	return hashKey("dims", asset)
}

// MaskKey keys a mask's visible-bounds metrics.
func (DefaultKeyer) MaskKey(mask string) string {
	return hashKey("mask", mask)
}
