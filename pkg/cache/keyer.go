package cache

import "math"

// Keyer derives cache keys. Implementations must be deterministic.
type Keyer interface {
	// EvalKey is the key of an evaluation result of the graph with the given
	// hash at the given input vector.
	EvalKey(graphHash string, inputs []float64) string

	// RenderKey is the key of a rendered diagram of the graph.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// RenderKeyOpts are the render settings that change the output bytes.
type RenderKeyOpts struct {
	Format   string    `json:"format"`
	Detailed bool      `json:"detailed"`
	Scale    float64   `json:"scale,omitempty"`
	Inputs   []float64 `json:"-"`
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// EvalKey implements Keyer.
func (DefaultKeyer) EvalKey(graphHash string, inputs []float64) string {
	return hashKey("eval", graphHash, floatBits(inputs))
}

// RenderKey implements Keyer. Inputs only matter for detailed renders, which
// print forward values. Nil inputs (no values shown) and an empty vector
// (sample values shown) key differently.
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	var bits []uint64
	if opts.Detailed && opts.Inputs != nil {
		bits = floatBits(opts.Inputs)
	}
	return hashKey("render", graphHash, opts, bits)
}

// floatBits maps values to their IEEE-754 bit patterns. JSON cannot encode
// NaN or infinities, and -0 would collapse onto 0.
func floatBits(vs []float64) []uint64 {
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = math.Float64bits(v)
	}
	return out
}

// ScopedKeyer prefixes every key of an inner Keyer, so that several tools
// (the HTTP server, the CLI) can share one backend without colliding.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns inner with prefix prepended to every key. A nil
// inner means [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) EvalKey(graphHash string, inputs []float64) string {
	return k.prefix + k.inner.EvalKey(graphHash, inputs)
}

func (k *ScopedKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(graphHash, opts)
}

var (
	_ Keyer = DefaultKeyer{}
	_ Keyer = (*ScopedKeyer)(nil)
)
