package assets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	merrors "github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/httputil"
)

// ErrNotFound is returned when an asset does not exist.
var ErrNotFound = errors.New("asset not found")

// Source fetches raw asset bytes by relative path.
type Source interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// clean strips a leading slash and validates the result.
func clean(path string) (string, error) {
	path = strings.TrimLeft(path, "/")
	if err := merrors.ValidateAssetPath(path); err != nil {
		return "", err
	}
	return path, nil
}

// =============================================================================
// DirSource
// =============================================================================

// DirSource reads assets below a root directory.
type DirSource struct {
	Root string
}

// NewDirSource returns a DirSource rooted at root.
func NewDirSource(root string) *DirSource { return &DirSource{Root: root} }

// Fetch reads root/path.
func (s *DirSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.FromSlash(p)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return data, err
}

// =============================================================================
// HTTPSource
// =============================================================================

// HTTPSource reads assets from an asset host.
type HTTPSource struct {
	base   *url.URL
	client *httputil.Client
}

// NewHTTPSource returns a source rooted at baseURL. cache may be nil.
func NewHTTPSource(baseURL string, cache *httputil.Cache) (*HTTPSource, error) {
	if err := merrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrCodeInvalidInput, err, "asset url")
	}
	if cache != nil {
		cache = cache.Namespace(u.Host + ":")
	}
	return &HTTPSource{base: u, client: httputil.NewClient(cache, map[string]string{"Accept": "*/*"})}, nil
}

// Fetch GETs base/path.
func (s *HTTPSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	ref, err := url.Parse(p)
	if err != nil {
		return nil, merrors.Wrap(merrors.ErrCodeInvalidPath, err, "asset path %s", p)
	}
	data, err := s.client.GetBytes(ctx, s.base.ResolveReference(ref).String())
	if errors.Is(err, httputil.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return data, err
}

// =============================================================================
// MemorySource
// =============================================================================

// MemorySource serves assets from memory. It is safe for concurrent use.
type MemorySource struct {
	mu    sync.RWMutex
	files map[string][]byte
	calls map[string]int
}

// NewMemorySource returns a source preloaded with files.
func NewMemorySource(files map[string][]byte) *MemorySource {
	m := &MemorySource{files: make(map[string][]byte), calls: make(map[string]int)}
	for k, v := range files {
		m.files[strings.TrimLeft(k, "/")] = v
	}
	return m
}

// Put adds or replaces an asset.
func (m *MemorySource) Put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[strings.TrimLeft(path, "/")] = data
}

// Fetch returns the stored bytes.
func (m *MemorySource) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := clean(path)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[p]++
	data, ok := m.files[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return data, nil
}

// Calls reports how many times path was fetched.
func (m *MemorySource) Calls(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls[strings.TrimLeft(path, "/")]
}

var (
	_ Source = (*DirSource)(nil)
	_ Source = (*HTTPSource)(nil)
	_ Source = (*MemorySource)(nil)
)
