// Package store loads persisted design records.
//
// A design is stored as its raw JSON element array plus optional screenshot
// crop metadata. Three backends implement [Store]:
//   - [FileStore]: <id>.json and <id>.screenshot.json in a directory
//   - [MongoStore]: one document per design in a MongoDB collection
//   - [MemoryStore]: in-process map for tests and demos
//
// Usage:
//
//	st, err := store.NewFileStore("designs")
//	entry, err := st.Load(ctx, "1697041234567")
//	rec := entry.Record
package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
)

// ErrNotFound is returned when a design does not exist.
var ErrNotFound = stderrors.New("design not found")

// Entry is a loaded design.
type Entry struct {
	ID         string
	Raw        []byte
	Record     *design.Record
	Screenshot *design.ScreenshotMeta
	UpdatedAt  time.Time
}

// Store is the interface for design storage backends.
type Store interface {
	// Load returns a design. A missing design yields an error wrapping
	// ErrNotFound with code DESIGN_NOT_FOUND.
	Load(ctx context.Context, id string) (*Entry, error)

	// Save stores the raw record and optional screenshot metadata. The
	// record must decode.
	Save(ctx context.Context, id string, raw []byte, shot *design.ScreenshotMeta) error

	// List returns stored design ids in ascending order.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// decodeEntry validates id and decodes raw into an Entry.
func decodeEntry(id string, raw []byte, shot *design.ScreenshotMeta, updated time.Time) (*Entry, error) {
	rec, err := design.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDesign, err, "design %s", id)
	}
	return &Entry{ID: id, Raw: raw, Record: rec, Screenshot: shot, UpdatedAt: updated}, nil
}

func notFound(id string) error {
	return errors.Wrap(errors.ErrCodeDesignNotFound, fmt.Errorf("%w: %s", ErrNotFound, id), "design %s", id)
}

// checkSave validates a Save call before it touches a backend.
func checkSave(id string, raw []byte) error {
	if err := errors.ValidateDesignID(id); err != nil {
		return err
	}
	if _, err := design.Decode(raw); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDesign, err, "design %s", id)
	}
	return nil
}
