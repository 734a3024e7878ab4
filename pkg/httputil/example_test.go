package httputil_test

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forevershiningA/memorial/pkg/httputil"
)

func ExampleCache() {
	dir := filepath.Join(os.TempDir(), "memorial-example")
	defer os.RemoveAll(dir)

	cache, err := httputil.NewCache(dir, 24*time.Hour)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	shapes := cache.Namespace("shapes:")
	if err := shapes.Set("heart.svg", []byte(`<svg viewBox="0 0 640 600"/>`)); err != nil {
		fmt.Println("Error:", err)
		return
	}

	data, ok, err := shapes.Get("heart.svg")
	fmt.Println("Found:", ok, err)
	fmt.Println(string(data))
	// Output:
	// Found: true <nil>
	// <svg viewBox="0 0 640 600"/>
}

func ExampleCache_miss() {
	dir := filepath.Join(os.TempDir(), "memorial-example-miss")
	cache, _ := httputil.NewCache(dir, time.Hour)
	defer os.RemoveAll(dir)

	_, ok, err := cache.Get("nonexistent")
	fmt.Println("Found:", ok)
	fmt.Println("Error:", err)
	// Output:
	// Found: false
	// Error: <nil>
}
