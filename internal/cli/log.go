// Package cli implements the memorial command-line interface.
//
// Commands load designs from files or from a design directory, render them
// through the pipeline against a local asset directory, and print results
// with lipgloss styling. The browse command is a bubbletea picker over the
// design directory; serve starts the HTTP API.
//
// # Commands
//
//   - render: write the composed scene SVG
//   - layout: print or export element placements
//   - profile: export the top-edge silhouette profile
//   - personalize: crop, mask and encode a photo asset
//   - browse: pick a design interactively
//   - serve: run the HTTP server
//   - cache: manage the profile cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger is
// attached to the command context by the root command.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger returns a charm logger with short timestamps ("15:04:05.00").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// designLogger scopes the context logger to one design.
func designLogger(ctx context.Context, id string) *log.Logger {
	return loggerFromContext(ctx).With("design", id)
}

// progress times one render or personalization.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg with the elapsed time and any structured fields, e.g.
// "Rendered 1712345678901  elapsed=412ms elements=3 snapped=1".
func (p *progress) done(msg string, keyvals ...any) {
	kv := append([]any{"elapsed", time.Since(p.start).Round(time.Millisecond)}, keyvals...)
	p.logger.Info(msg, kv...)
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the command logger, or log.Default() outside a
// command.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
