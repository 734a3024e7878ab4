package cache

// ScopedKeyer prefixes every key from an inner Keyer. The server uses it to
// keep catalogs with different asset roots apart in a shared Redis:
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "catalog:"+hash+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, defaulting to DefaultKeyer when nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ProfileKey(opts ProfileKeyOpts) string {
	return k.prefix + k.inner.ProfileKey(opts)
}

func (k *ScopedKeyer) DimensionsKey(asset string) string {
	return k.prefix + k.inner.DimensionsKey(asset)
}

func (k *ScopedKeyer) MaskKey(mask string) string {
	return k.prefix + k.inner.MaskKey(mask)
}
