package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
)

const (
	recordExt     = ".json"
	screenshotExt = ".screenshot.json"
)

// FileStore keeps designs as JSON files in one directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates baseDir if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "design directory is empty")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create design dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) recordPath(id string) string {
	return filepath.Join(s.baseDir, id+recordExt)
}

func (s *FileStore) screenshotPath(id string) string {
	return filepath.Join(s.baseDir, id+screenshotExt)
}

func (s *FileStore) Load(ctx context.Context, id string) (*Entry, error) {
	if err := errors.ValidateDesignID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.recordPath(id)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("read design file: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat design file: %w", err)
	}

	var shot *design.ScreenshotMeta
	if data, err := os.ReadFile(s.screenshotPath(id)); err == nil {
		var meta design.ScreenshotMeta
		if json.Unmarshal(data, &meta) == nil {
			shot = &meta
		}
	}
	return decodeEntry(id, raw, shot, info.ModTime())
}

func (s *FileStore) Save(ctx context.Context, id string, raw []byte, shot *design.ScreenshotMeta) error {
	if err := checkSave(id, raw); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.recordPath(id), raw, 0o644); err != nil {
		return fmt.Errorf("write design file: %w", err)
	}
	if shot == nil {
		if err := os.Remove(s.screenshotPath(id)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove screenshot file: %w", err)
		}
		return nil
	}
	data, err := json.MarshalIndent(shot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal screenshot: %w", err)
	}
	if err := os.WriteFile(s.screenshotPath(id), data, 0o644); err != nil {
		return fmt.Errorf("write screenshot file: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read design dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, recordExt) || strings.HasSuffix(name, screenshotExt) {
			continue
		}
		id := strings.TrimSuffix(name, recordExt)
		if errors.ValidateDesignID(id) == nil {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory.
func (s *FileStore) Path() string { return s.baseDir }

var _ Store = (*FileStore)(nil)
