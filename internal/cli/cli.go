// Package cli implements the memorial command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/forevershiningA/memorial/pkg/assets"
	"github.com/forevershiningA/memorial/pkg/buildinfo"
	"github.com/forevershiningA/memorial/pkg/cache"
	"github.com/forevershiningA/memorial/pkg/catalog"
	"github.com/forevershiningA/memorial/pkg/design"
	"github.com/forevershiningA/memorial/pkg/errors"
	"github.com/forevershiningA/memorial/pkg/pipeline"
	"github.com/forevershiningA/memorial/pkg/store"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "memorial"

	// envCatalog overrides the embedded catalog when --catalog is not set.
	envCatalog = "MEMORIAL_CATALOG"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	catalogPath string
	assetDir    string
	designDir   string
	noCache     bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Memorial renders saved headstone designs",
		Long:         `Memorial composes headstone scenes from saved designs, places inscriptions and motifs on the shape, and prepares personalized photo assets.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVar(&c.catalogPath, "catalog", "", "catalog TOML file (default: embedded, or $"+envCatalog+")")
	pf.StringVar(&c.assetDir, "assets", "./assets", "asset directory holding shapes, textures, motifs and masks")
	pf.StringVar(&c.designDir, "designs", "./designs", "design directory for ID lookups")
	pf.BoolVar(&c.noCache, "no-cache", false, "disable the on-disk profile cache")

	root.AddCommand(c.renderCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.profileCommand())
	root.AddCommand(c.personalizeCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over the local asset directory.
func (c *CLI) newRunner() (*pipeline.Runner, error) {
	cat, err := c.loadCatalog()
	if err != nil {
		return nil, err
	}
	ch, err := newCache(c.noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cat, assets.NewDirSource(c.assetDir), ch, nil, c.Logger), nil
}

func (c *CLI) loadCatalog() (*catalog.Catalog, error) {
	path := c.catalogPath
	if path == "" {
		path = os.Getenv(envCatalog)
	}
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Designs
// =============================================================================

// loadDesign resolves arg as a design file, or failing that as an ID in the
// design directory. A file's screenshot metadata is read from the sibling
// <name>.screenshot.json when present.
func (c *CLI) loadDesign(ctx context.Context, arg string) (*store.Entry, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return readDesignFile(arg)
	}
	st, err := store.NewFileStore(c.designDir)
	if err != nil {
		return nil, err
	}
	return st.Load(ctx, arg)
}

func readDesignFile(path string) (*store.Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read design %s", path)
	}
	rec, err := design.Decode(raw)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDesign, err, "decode design %s", path)
	}
	entry := &store.Entry{
		ID:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Raw:    raw,
		Record: rec,
	}
	shotPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".screenshot.json"
	if data, err := os.ReadFile(shotPath); err == nil {
		var shot design.ScreenshotMeta
		if err := json.Unmarshal(data, &shot); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidDesign, err, "decode screenshot %s", shotPath)
		}
		entry.Screenshot = &shot
	}
	return entry, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/memorial/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// writeOutput writes data to path, or to stdout when path is empty or "-".
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
