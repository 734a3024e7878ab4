package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
)

type memoryEntry struct {
	raw     []byte
	shot    *design.ScreenshotMeta
	updated time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	designs map[string]memoryEntry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{designs: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Load(ctx context.Context, id string) (*Entry, error) {
	if err := errors.ValidateDesignID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.designs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	return decodeEntry(id, e.raw, e.shot, e.updated)
}

func (s *MemoryStore) Save(ctx context.Context, id string, raw []byte, shot *design.ScreenshotMeta) error {
	if err := checkSave(id, raw); err != nil {
		return err
	}
	e := memoryEntry{raw: append([]byte(nil), raw...), updated: time.Now()}
	if shot != nil {
		cp := *shot
		e.shot = &cp
	}
	s.mu.Lock()
	s.designs[id] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.designs))
	for id := range s.designs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
