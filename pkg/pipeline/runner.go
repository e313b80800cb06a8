package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/adjoint/pkg/cache"
	"github.com/matzehuels/adjoint/pkg/codegen"
	"github.com/matzehuels/adjoint/pkg/errors"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/observability"
	"github.com/matzehuels/adjoint/pkg/render"
	"github.com/matzehuels/adjoint/pkg/render/nodelink"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// Besides the cache and logger, the Runner only keeps compiled evaluators,
// which are immutable. Multiple goroutines can safely use the same Runner.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides the per-kind cache expiry when positive.
	TTL time.Duration

	mu         sync.Mutex
	evaluators map[string]*codegen.Evaluator
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		evaluators: make(map[string]*codegen.Evaluator),
	}
}

// Load reads and validates an interchange file.
func (r *Runner) Load(ctx context.Context, path string) (*Graph, error) {
	start := time.Now()
	x, err := pkgio.ImportJSON(path)
	if err != nil {
		observability.Pipeline().OnLoad(ctx, path, 0, time.Since(start), err)
		return nil, err
	}
	g, err := NewGraph(x)
	if err != nil {
		observability.Pipeline().OnLoad(ctx, path, x.Len(), time.Since(start), err)
		return nil, err
	}
	g.Path = path
	dur := time.Since(start)
	observability.Pipeline().OnLoad(ctx, path, x.Len(), dur, nil)

	r.Logger.Info("loaded graph",
		"path", path,
		"nodes", x.Len(),
		"inputs", x.NumInputs(),
		"duration", dur)
	return g, nil
}

// Compile returns the evaluator for g, compiling it on first use.
func (r *Runner) Compile(ctx context.Context, g *Graph) *codegen.Evaluator {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := r.evaluators[g.Hash]; ok {
		return ev
	}

	start := time.Now()
	ev := codegen.Compile(g.X)
	dur := time.Since(start)
	r.evaluators[g.Hash] = ev
	observability.Pipeline().OnCompile(ctx, g.Hash, ev.Len(), dur)

	r.Logger.Debug("compiled graph",
		"hash", short(g.Hash),
		"instructions", ev.Len(),
		"duration", dur)
	return ev
}

// EvalWithCacheInfo evaluates g at inputs and reports whether the result
// came from the cache. Cache failures are logged and otherwise ignored.
func (r *Runner) EvalWithCacheInfo(ctx context.Context, g *Graph, inputs []float64) (codegen.Result, bool, error) {
	start := time.Now()
	if err := errors.ValidateInputs(inputs); err != nil {
		observability.Pipeline().OnEval(ctx, g.Hash, len(inputs), false, time.Since(start), err)
		return codegen.Result{}, false, err
	}

	key := r.Keyer.EvalKey(g.Hash, inputs)
	if data, hit, err := r.Cache.Get(ctx, key); err != nil {
		r.Logger.Warn("cache read failed", "error", err)
	} else if hit {
		if res, err := pkgio.DecodeResult(data); err == nil {
			observability.Cache().OnCacheHit(ctx, "eval")
			observability.Pipeline().OnEval(ctx, g.Hash, len(inputs), true, time.Since(start), nil)
			return res, true, nil
		}
		// Undecodable entries are recomputed and overwritten.
	}
	observability.Cache().OnCacheMiss(ctx, "eval")

	res := r.Compile(ctx, g).Eval(inputs)

	if data, err := pkgio.EncodeResult(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLEval)); err != nil {
			r.Logger.Warn("cache write failed", "error", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "eval", len(data))
		}
	}
	observability.Pipeline().OnEval(ctx, g.Hash, len(inputs), false, time.Since(start), nil)
	return res, false, nil
}

// Eval is a convenience wrapper that calls EvalWithCacheInfo and discards the cache hit info.
func (r *Runner) Eval(ctx context.Context, g *Graph, inputs []float64) (codegen.Result, error) {
	res, _, err := r.EvalWithCacheInfo(ctx, g, inputs)
	return res, err
}

// EvalBatch evaluates g at every input vector with at most workers
// evaluations in flight. Results are in batch order. The first error
// cancels the remaining work.
func (r *Runner) EvalBatch(ctx context.Context, g *Graph, batch [][]float64, workers int) ([]codegen.Result, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	results := make([]codegen.Result, len(batch))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, inputs := range batch {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := r.Eval(ctx, g, inputs)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RenderWithCacheInfo draws g in the requested format and reports whether
// the bytes came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, g *Graph, opts RenderOptions) ([]byte, bool, error) {
	if err := opts.SetDefaults(); err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInvalidFormat, err, "render")
	}
	start := time.Now()

	key := r.Keyer.RenderKey(g.Hash, opts.KeyOpts())
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "render")
		observability.Pipeline().OnRender(ctx, opts.Format, len(data), time.Since(start), nil)
		return data, true, nil
	}
	observability.Cache().OnCacheMiss(ctx, "render")

	data, err := r.render(ctx, g, opts)
	observability.Pipeline().OnRender(ctx, opts.Format, len(data), time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLRender)); err == nil {
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}

	r.Logger.Info("rendered graph",
		"format", opts.Format,
		"bytes", len(data),
		"duration", time.Since(start))
	return data, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, g *Graph, opts RenderOptions) ([]byte, error) {
	data, _, err := r.RenderWithCacheInfo(ctx, g, opts)
	return data, err
}

func (r *Runner) render(ctx context.Context, g *Graph, opts RenderOptions) ([]byte, error) {
	nopts := nodelink.Options{Detailed: opts.Detailed}
	if opts.Detailed && opts.Inputs != nil {
		if err := errors.ValidateInputs(opts.Inputs); err != nil {
			return nil, err
		}
		nopts.Values = r.Compile(ctx, g).Values(opts.Inputs)
	}
	dot := nodelink.ToDOT(g.X, nopts)

	switch opts.Format {
	case render.FormatDOT:
		return []byte(dot), nil
	case render.FormatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case render.FormatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case render.FormatPNG:
		return nodelink.RenderPNG(ctx, dot, opts.Scale)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "format %q", opts.Format)
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// short abbreviates a hash for log output.
func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
