package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks forwards every event to a logger at debug level; failures are
// logged at warn.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks logging to logger (log.Default() when nil).
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger}
}

func (h *LogHooks) OnComposeComplete(_ context.Context, designID string, shaped bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("compose failed", "design", designID, "err", err)
		return
	}
	h.logger.Debug("composed scene", "design", designID, "shaped", shaped, "duration", d)
}

func (h *LogHooks) OnProfileComplete(_ context.Context, shape string, cached bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("profile unavailable", "shape", shape, "err", err)
		return
	}
	h.logger.Debug("built profile", "shape", shape, "cached", cached, "duration", d)
}

func (h *LogHooks) OnPlaceComplete(_ context.Context, designID string, elements, snapped int, d time.Duration) {
	h.logger.Debug("placed elements", "design", designID, "elements", elements, "snapped", snapped, "duration", d)
}

func (h *LogHooks) OnStale(_ context.Context, designID string) {
	h.logger.Debug("discarded stale derivation", "design", designID)
}

func (h *LogHooks) OnPersonalizeComplete(_ context.Context, product string, d time.Duration, err error) {
	if err != nil {
		h.logger.Warn("personalization failed", "product", product, "err", err)
		return
	}
	h.logger.Debug("personalized photo", "product", product, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Warn("request failed", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
