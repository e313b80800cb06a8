// Package observability lets a program observe graph loading, evaluation,
// cache traffic and HTTP requests without the libraries depending on any
// metrics or tracing backend.
//
// Each event category has an interface, a no-op implementation and a
// process-wide slot. main (or a test) installs implementations once at
// startup; libraries fetch the current one at the call site:
//
//	observability.SetCacheHooks(myCacheMetrics{})
//
//	start := time.Now()
//	g, err := runner.Load(ctx, path)
//	observability.Pipeline().OnLoad(ctx, path, g.X.Len(), time.Since(start), err)
package observability

import (
	"context"
	"sync"
	"time"
)

// PipelineHooks receives events from the load, compile and evaluate steps.
type PipelineHooks interface {
	// OnLoad fires after a graph file was read and validated.
	OnLoad(ctx context.Context, path string, nodeCount int, duration time.Duration, err error)

	// OnCompile fires when an evaluator is built. Memoized evaluators do not
	// fire it again.
	OnCompile(ctx context.Context, graphHash string, instructions int, duration time.Duration)

	// OnEval fires after one evaluation, cached or not.
	OnEval(ctx context.Context, graphHash string, inputs int, cached bool, duration time.Duration, err error)

	// OnRender fires after a diagram was produced.
	OnRender(ctx context.Context, format string, size int, duration time.Duration, err error)
}

// CacheHooks receives cache lookups and writes. keyType is the key kind,
// "eval" or "render".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from the HTTP server.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
	// OnError fires for requests that failed with a server-side error.
	OnError(ctx context.Context, method, path string, err error)
}

// NoopPipelineHooks ignores every event.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnLoad(context.Context, string, int, time.Duration, error)       {}
func (NoopPipelineHooks) OnCompile(context.Context, string, int, time.Duration)           {}
func (NoopPipelineHooks) OnEval(context.Context, string, int, bool, time.Duration, error) {}
func (NoopPipelineHooks) OnRender(context.Context, string, int, time.Duration, error)     {}

// NoopCacheHooks ignores every event.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks ignores every event.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// slot holds the installed implementation of one hook interface.
type slot[H any] struct {
	mu   sync.RWMutex
	cur  H
	noop H
}

func newSlot[H any](noop H) *slot[H] {
	return &slot[H]{cur: noop, noop: noop}
}

func (s *slot[H]) load() H {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// store installs h. A nil h leaves the slot unchanged.
func (s *slot[H]) store(h H) {
	if any(h) == nil {
		return
	}
	s.mu.Lock()
	s.cur = h
	s.mu.Unlock()
}

func (s *slot[H]) reset() {
	s.mu.Lock()
	s.cur = s.noop
	s.mu.Unlock()
}

var (
	pipelineSlot = newSlot[PipelineHooks](NoopPipelineHooks{})
	cacheSlot    = newSlot[CacheHooks](NoopCacheHooks{})
	httpSlot     = newSlot[HTTPHooks](NoopHTTPHooks{})
)

// SetPipelineHooks installs h for all later [Pipeline] calls. nil is ignored.
func SetPipelineHooks(h PipelineHooks) { pipelineSlot.store(h) }

// SetCacheHooks installs h for all later [Cache] calls. nil is ignored.
func SetCacheHooks(h CacheHooks) { cacheSlot.store(h) }

// SetHTTPHooks installs h for all later [HTTP] calls. nil is ignored.
func SetHTTPHooks(h HTTPHooks) { httpSlot.store(h) }

// Pipeline returns the installed pipeline hooks.
func Pipeline() PipelineHooks { return pipelineSlot.load() }

// Cache returns the installed cache hooks.
func Cache() CacheHooks { return cacheSlot.load() }

// HTTP returns the installed HTTP hooks.
func HTTP() HTTPHooks { return httpSlot.load() }

// Reset puts the no-op hooks back in every slot.
func Reset() {
	pipelineSlot.reset()
	cacheSlot.reset()
	httpSlot.reset()
}
