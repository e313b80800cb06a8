package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/adjoint/pkg/observability"
)

// logHooks reports pipeline and cache events as debug log lines.
type logHooks struct {
	logger *log.Logger
}

func newLogHooks(l *log.Logger) *logHooks { return &logHooks{logger: l} }

func (h *logHooks) OnLoad(_ context.Context, path string, nodes int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("load failed", "path", path, "error", err)
		return
	}
	h.logger.Debug("load", "path", path, "nodes", nodes, "duration", d)
}

func (h *logHooks) OnCompile(_ context.Context, hash string, instructions int, d time.Duration) {
	h.logger.Debug("compile", "hash", shortHash(hash), "instructions", instructions, "duration", d)
}

func (h *logHooks) OnEval(_ context.Context, hash string, inputs int, cached bool, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("eval failed", "hash", shortHash(hash), "error", err)
		return
	}
	h.logger.Debug("eval", "hash", shortHash(hash), "inputs", inputs, "cached", cached, "duration", d)
}

func (h *logHooks) OnRender(_ context.Context, format string, size int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("render failed", "format", format, "error", err)
		return
	}
	h.logger.Debug("render", "format", format, "bytes", size, "duration", d)
}

func (h *logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "kind", keyType)
}

func (h *logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "kind", keyType)
}

func (h *logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "kind", keyType, "bytes", size)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

var (
	_ observability.PipelineHooks = (*logHooks)(nil)
	_ observability.CacheHooks    = (*logHooks)(nil)
)
