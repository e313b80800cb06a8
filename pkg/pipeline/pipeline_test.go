package pipeline

import (
	"context"
	stderrors "errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/adjoint/pkg/ad"
	"github.com/matzehuels/adjoint/pkg/cache"
	"github.com/matzehuels/adjoint/pkg/errors"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/observability"
)

// memCache is an in-memory cache.Cache that counts hits.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	if ok {
		c.hits++
	}
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func quiet() *log.Logger { return log.New(io.Discard) }

// product builds x*y + sin(x) with a secondary output max(x, y).
func product() *ad.Extracted {
	g := ad.NewGraph()
	x := g.Input(0, 1)
	y := g.Input(1, 2)
	return ad.MakeGraph(g, ad.Outputs{
		Primary:   g.Add(g.Mul(x, y), g.Sin(x)),
		Secondary: []ad.ID{g.Max(x, y)},
	})
}

func mustGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := NewGraph(product())
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	return g
}

func TestRenderOptionsSetDefaults(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "svg", false},
		{"dot", "dot", false},
		{"PNG", "png", false},
		{" pdf ", "pdf", false},
		{"json", "", true},
	}

	for _, tt := range tests {
		o := RenderOptions{Format: tt.in}
		err := o.SetDefaults()
		if (err != nil) != tt.wantErr {
			t.Errorf("SetDefaults(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && o.Format != tt.want {
			t.Errorf("SetDefaults(%q) format = %q, want %q", tt.in, o.Format, tt.want)
		}
		if !tt.wantErr && o.Scale != DefaultScale {
			t.Errorf("SetDefaults(%q) scale = %v, want %v", tt.in, o.Scale, DefaultScale)
		}
	}
}

func TestSetDefaultsScale(t *testing.T) {
	tests := []struct {
		scale   float64
		want    float64
		wantErr bool
	}{
		{0, DefaultScale, false},
		{1.5, 1.5, false},
		{-1, 0, true},
		{math.NaN(), 0, true},
		{math.Inf(1), 0, true},
	}
	for _, tt := range tests {
		o := RenderOptions{Format: "png", Scale: tt.scale}
		err := o.SetDefaults()
		if tt.wantErr {
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("SetDefaults(scale %v) error = %v, want INVALID_INPUT", tt.scale, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("SetDefaults(scale %v) error = %v", tt.scale, err)
			continue
		}
		if o.Scale != tt.want {
			t.Errorf("SetDefaults(scale %v) scale = %v, want %v", tt.scale, o.Scale, tt.want)
		}
		o.KeyOpts()
	}
}

func TestKeyOptsScaleOnlyForPNG(t *testing.T) {
	svg := RenderOptions{Format: "svg", Scale: 3}
	if svg.KeyOpts().Scale != 0 {
		t.Error("svg key should ignore scale")
	}
	png := RenderOptions{Format: "png", Scale: 3}
	if png.KeyOpts().Scale != 3 {
		t.Error("png key should include scale")
	}
}

func TestNewGraphHashStable(t *testing.T) {
	a := mustGraph(t)
	b := mustGraph(t)
	if a.Hash != b.Hash {
		t.Errorf("same graph hashed differently: %s vs %s", a.Hash, b.Hash)
	}
	if len(a.Hash) != 64 {
		t.Errorf("hash length = %d, want 64", len(a.Hash))
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	if err := pkgio.ExportJSON(product(), path); err != nil {
		t.Fatal(err)
	}

	r := NewRunner(nil, nil, quiet())
	g, err := r.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Path != path {
		t.Errorf("Path = %q, want %q", g.Path, path)
	}
	if want := mustGraph(t).Hash; g.Hash != want {
		t.Errorf("loaded hash %s, want %s", g.Hash, want)
	}

	_, err = r.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	if errors.GetCode(err) != errors.ErrCodeFileNotFound {
		t.Errorf("missing file code = %q", errors.GetCode(err))
	}
}

func TestCompileMemoized(t *testing.T) {
	r := NewRunner(nil, nil, quiet())
	g := mustGraph(t)
	if r.Compile(context.Background(), g) != r.Compile(context.Background(), g) {
		t.Error("Compile should return the memoized evaluator")
	}
}

func TestEvalCaches(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, quiet())
	g := mustGraph(t)
	ctx := context.Background()

	first, hit, err := r.EvalWithCacheInfo(ctx, g, []float64{2, 3})
	if err != nil || hit {
		t.Fatalf("first eval: hit=%v err=%v", hit, err)
	}
	second, hit, err := r.EvalWithCacheInfo(ctx, g, []float64{2, 3})
	if err != nil || !hit {
		t.Fatalf("second eval: hit=%v err=%v", hit, err)
	}

	want := 6 + math.Sin(2)
	if first.Primary != want || second.Primary != want {
		t.Errorf("primary = %v / %v, want %v", first.Primary, second.Primary, want)
	}
	if second.Gradient[0] != 3+math.Cos(2) || second.Gradient[1] != 2 {
		t.Errorf("gradient = %v", second.Gradient)
	}
	if second.Secondary[0] != 3 {
		t.Errorf("secondary = %v", second.Secondary)
	}

	// A different input vector is a different entry.
	if _, hit, _ := r.EvalWithCacheInfo(ctx, g, []float64{2, 4}); hit {
		t.Error("different inputs should miss")
	}
}

func TestEvalNaNInputsCached(t *testing.T) {
	r := NewRunner(newMemCache(), nil, quiet())
	g := mustGraph(t)
	ctx := context.Background()

	if _, err := r.Eval(ctx, g, []float64{math.NaN(), 1}); err != nil {
		t.Fatal(err)
	}
	res, hit, err := r.EvalWithCacheInfo(ctx, g, []float64{math.NaN(), 1})
	if err != nil || !hit {
		t.Fatalf("hit=%v err=%v", hit, err)
	}
	if !math.IsNaN(res.Primary) {
		t.Errorf("primary = %v, want NaN", res.Primary)
	}
}

func TestEvalBatch(t *testing.T) {
	r := NewRunner(nil, nil, quiet())
	g := mustGraph(t)
	ctx := context.Background()

	batch := make([][]float64, 50)
	for i := range batch {
		batch[i] = []float64{float64(i), float64(i) / 2}
	}
	results, err := r.EvalBatch(ctx, g, batch, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i, in := range batch {
		want, _ := r.Eval(ctx, g, in)
		if results[i].Primary != want.Primary {
			t.Errorf("batch[%d] = %v, want %v", i, results[i].Primary, want.Primary)
		}
	}
}

func TestEvalBatchCanceled(t *testing.T) {
	r := NewRunner(nil, nil, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.EvalBatch(ctx, mustGraph(t), [][]float64{{1, 2}, {3, 4}}, 1)
	if !stderrors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRenderDOTCached(t *testing.T) {
	r := NewRunner(newMemCache(), nil, quiet())
	g := mustGraph(t)
	ctx := context.Background()

	dot, hit, err := r.RenderWithCacheInfo(ctx, g, RenderOptions{Format: "dot"})
	if err != nil || hit {
		t.Fatalf("first render: hit=%v err=%v", hit, err)
	}
	if !strings.HasPrefix(string(dot), "digraph G {") {
		t.Errorf("unexpected DOT: %s", dot)
	}

	again, hit, err := r.RenderWithCacheInfo(ctx, g, RenderOptions{Format: "dot"})
	if err != nil || !hit || string(again) != string(dot) {
		t.Errorf("second render: hit=%v err=%v", hit, err)
	}

	detailed, err := r.Render(ctx, g, RenderOptions{Format: "dot", Detailed: true, Inputs: []float64{2, 3}})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(detailed), "= 6") {
		t.Errorf("detailed render lacks values: %s", detailed)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	r := NewRunner(nil, nil, quiet())
	_, err := r.Render(context.Background(), mustGraph(t), RenderOptions{Format: "gif"})
	if errors.GetCode(err) != errors.ErrCodeInvalidFormat {
		t.Errorf("code = %q, want %q", errors.GetCode(err), errors.ErrCodeInvalidFormat)
	}
}

func TestRenderNonFiniteScale(t *testing.T) {
	r := NewRunner(nil, nil, quiet())
	_, err := r.Render(context.Background(), mustGraph(t), RenderOptions{Format: "png", Scale: math.NaN()})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

type countingHooks struct {
	observability.NoopPipelineHooks
	mu       sync.Mutex
	compiles int
	cached   int
}

func (h *countingHooks) OnCompile(context.Context, string, int, time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.compiles++
}

func (h *countingHooks) OnEval(_ context.Context, _ string, _ int, cached bool, _ time.Duration, _ error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cached {
		h.cached++
	}
}

func TestPipelineHooks(t *testing.T) {
	h := &countingHooks{}
	observability.SetPipelineHooks(h)
	t.Cleanup(observability.Reset)

	r := NewRunner(newMemCache(), cache.NewDefaultKeyer(), quiet())
	g := mustGraph(t)
	for range 3 {
		if _, err := r.Eval(context.Background(), g, []float64{1, 1}); err != nil {
			t.Fatal(err)
		}
	}
	if h.compiles != 1 {
		t.Errorf("compiles = %d, want 1", h.compiles)
	}
	if h.cached != 2 {
		t.Errorf("cached evals = %d, want 2", h.cached)
	}
}
