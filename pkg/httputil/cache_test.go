package httputil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_GetSet(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)

	tests := []struct {
		name  string
		key   string
		value []byte
	}{
		{"svg", "shapes/serpentine.svg", []byte(`<svg viewBox="0 0 10 10"/>`)},
		{"binary", "textures/blue.webp", []byte{0, 1, 2, 255}},
		{"empty", "empty", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set() failed: %v", err)
			}
			got, ok, err := c.Get(tt.key)
			if err != nil || !ok {
				t.Fatalf("Get() = %v, %v", ok, err)
			}
			if string(got) != string(tt.value) {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestCache_Miss(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	data, ok, err := c.Get("missing")
	if err != nil || ok || data != nil {
		t.Errorf("Get() = %v, %v, %v; want nil, false, nil", data, ok, err)
	}
}

func TestCache_Expiration(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 10*time.Millisecond)

	if err := c.Set("key", []byte("value")); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if _, ok, err := c.Get("key"); err != nil || !ok {
		t.Fatalf("Get() = %v, %v; want true, nil", ok, err)
	}

	time.Sleep(20 * time.Millisecond)

	data, ok, err := c.Get("key")
	if !errors.Is(err, ErrExpired) {
		t.Errorf("got error %v, want ErrExpired", err)
	}
	if ok {
		t.Error("Get() returned true for expired key")
	}
	if string(data) != "value" {
		t.Errorf("stale data = %q, want %q", data, "value")
	}
}

func TestCache_KeyStability(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	if c.keyPath("test") != c.keyPath("test") {
		t.Error("path should be deterministic")
	}
	if c.keyPath("test") == c.keyPath("other") {
		t.Error("different keys should produce different paths")
	}
}

func TestNewCache_DefaultDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home directory")
	}

	c, err := NewCache("", time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	want := filepath.Join(home, ".cache", "memorial", "http")
	if c.Dir() != want {
		t.Errorf("got Dir = %s, want %s", c.Dir(), want)
	}
}

func TestCache_Namespace(t *testing.T) {
	c, _ := NewCache(t.TempDir(), time.Hour)
	a := c.Namespace("cdn-a:")
	b := c.Namespace("cdn-b:")

	_ = a.Set("heart.svg", []byte("a"))
	_ = b.Set("heart.svg", []byte("b"))

	got, _, _ := a.Get("heart.svg")
	if string(got) != "a" {
		t.Errorf("namespace a = %q", got)
	}
	got, _, _ = b.Get("heart.svg")
	if string(got) != "b" {
		t.Errorf("namespace b = %q", got)
	}
	if _, ok, _ := c.Get("heart.svg"); ok {
		t.Error("value accessible without namespace")
	}
	if _, ok, _ := a.Namespace("x:").Get("heart.svg"); ok {
		t.Error("chained namespace should not see parent entries")
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := NewCache(t.TempDir(), 0)
	_ = c.Set("k", []byte("v"))
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if _, ok, _ := c.Get("k"); ok {
		t.Error("entry survived Clear")
	}
}
