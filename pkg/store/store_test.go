package store

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/geom"
)

const sample = `[
  {"type":"Headstone","init_width":"800","init_height":800,"shape":"Serpentine"},
  {"type":"Inscription","label":"SMITH","x":0,"y":-200,"font":"60px Garamond"}
]`

func backends(t *testing.T) map[string]Store {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Store{"file": fs, "memory": NewMemoryStore()}
}

func TestStoreRoundTrip(t *testing.T) {
	shot := &design.ScreenshotMeta{
		Original:   geom.Size{W: 1000, H: 900},
		Cropped:    geom.Size{W: 700, H: 650},
		WasCropped: true,
	}
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := st.Save(ctx, "design-2", []byte(sample), nil); err != nil {
				t.Fatal(err)
			}
			if err := st.Save(ctx, "design-1", []byte(sample), shot); err != nil {
				t.Fatal(err)
			}

			e, err := st.Load(ctx, "design-1")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(e.Record.Elements) != 2 || string(e.Raw) != sample {
				t.Errorf("entry = %+v", e)
			}
			if !reflect.DeepEqual(e.Screenshot, shot) {
				t.Errorf("screenshot = %+v", e.Screenshot)
			}

			e, err = st.Load(ctx, "design-2")
			if err != nil {
				t.Fatal(err)
			}
			if e.Screenshot != nil {
				t.Error("design-2 has no screenshot metadata")
			}

			ids, err := st.List(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(ids, []string{"design-1", "design-2"}) {
				t.Errorf("List = %v", ids)
			}
		})
	}
}

func TestStoreErrors(t *testing.T) {
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := st.Load(ctx, "missing")
			if !errors.Is(err, errors.ErrCodeDesignNotFound) || !stderrors.Is(err, ErrNotFound) {
				t.Errorf("missing design err = %v", err)
			}
			if _, err := st.Load(ctx, "../etc/passwd"); !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("bad id err = %v", err)
			}
			if err := st.Save(ctx, "broken", []byte(`{"nope":`), nil); !errors.Is(err, errors.ErrCodeInvalidDesign) {
				t.Errorf("bad record err = %v", err)
			}
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	st, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	shot := &design.ScreenshotMeta{Cropped: geom.Size{W: 1, H: 1}, WasCropped: true}
	if err := st.Save(ctx, "abc", []byte(sample), shot); err != nil {
		t.Fatal(err)
	}
	for _, f := range []string{"abc.json", "abc.screenshot.json"} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			t.Errorf("%s not written: %v", f, err)
		}
	}

	// Saving without metadata removes stale screenshot files.
	if err := st.Save(ctx, "abc", []byte(sample), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "abc.screenshot.json")); !os.IsNotExist(err) {
		t.Error("screenshot metadata should be removed")
	}

	// Foreign files are ignored by List.
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("[]"), 0o644)
	ids, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids, []string{"abc"}) {
		t.Errorf("List = %v", ids)
	}
}
