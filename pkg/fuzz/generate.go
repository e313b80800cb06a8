// Package fuzz generates random expression graphs, records reference
// outputs for them and checks analytic gradients against finite
// differences.
//
// Fixtures written by [WriteFixture] are a graph.json interchange document
// next to an outputs.json holding the primary value, the gradient and the
// value of every node. Other engines can load the graph and compare.
package fuzz

import (
	"math/rand"

	"github.com/matzehuels/adjoint/pkg/ad"
)

// Options controls the shape of generated graphs.
type Options struct {
	Inputs    int  // number of inputs, indices 0..Inputs-1
	Ops       int  // number of operator applications
	Secondary int  // number of secondary outputs picked from the operators
	Smooth    bool // restrict to operators with well-behaved derivatives everywhere
}

// DefaultOptions is what the CLI uses when nothing is configured.
var DefaultOptions = Options{Inputs: 4, Ops: 24, Secondary: 2}

// Problem is a generated graph together with the outputs to extract and a
// point to evaluate at.
type Problem struct {
	Graph     *ad.Graph
	Primary   ad.ID
	Secondary []ad.ID
	Inputs    []float64
}

// Extract returns the extracted graph of p.
func (p Problem) Extract() *ad.Extracted {
	return ad.MakeGraph(p.Graph, ad.Outputs{Primary: p.Primary, Secondary: p.Secondary})
}

var (
	smoothUnary  = []ad.Op{ad.OpNeg, ad.OpSquared, ad.OpSin, ad.OpCos, ad.OpAtan, ad.OpTanh}
	smoothBinary = []ad.Op{ad.OpAdd, ad.OpSub, ad.OpMul}

	// The operators the reference fixtures were built from.
	fullUnary  = []ad.Op{ad.OpNeg, ad.OpSquared, ad.OpSin, ad.OpCos, ad.OpSqrt, ad.OpAbs}
	fullBinary = []ad.Op{ad.OpAdd, ad.OpSub, ad.OpMul, ad.OpDiv, ad.OpMax, ad.OpMin, ad.OpLt}
	fullNary   = []ad.Op{ad.OpAddN, ad.OpMaxN, ad.OpMinN}
)

// Generate builds a random graph. The same rng state and options always
// produce the same graph and inputs. Every operator node is reachable from
// the primary output, which sums the nodes no other operator consumed.
func Generate(rng *rand.Rand, opts Options) Problem {
	opts.Inputs = max(opts.Inputs, 1)
	g := ad.NewGraph()

	p := Problem{Graph: g, Inputs: make([]float64, opts.Inputs)}
	pool := make([]ad.ID, 0, opts.Inputs+opts.Ops+2)
	for i := range opts.Inputs {
		v := rng.Float64()*2 - 1
		p.Inputs[i] = v
		pool = append(pool, g.Input(i, v))
	}
	pool = append(pool, g.Const(0.5), g.Const(2))

	pick := func() ad.ID { return pool[rng.Intn(len(pool))] }
	unary, binary := fullUnary, fullBinary
	if opts.Smooth {
		unary, binary = smoothUnary, smoothBinary
	}

	used := make(map[ad.ID]bool)
	seen := make(map[ad.ID]bool)
	var ops []ad.ID
	for range opts.Ops {
		var id ad.ID
		switch r := rng.Intn(10); {
		case r < 4:
			id = g.Unary(unary[rng.Intn(len(unary))], pick())
		case r < 8:
			id = g.Binary(binary[rng.Intn(len(binary))], pick(), pick())
		case opts.Smooth:
			id = g.AddN(pick(), pick(), pick())
		case r == 8:
			id = g.Nary(fullNary[rng.Intn(len(fullNary))], pick(), pick(), pick())
		default:
			id = g.IfCond(g.Lt(pick(), pick()), pick(), pick())
		}
		for _, a := range g.Node(id).Args {
			used[a] = true
		}
		if !g.Node(id).IsConst() && !seen[id] {
			seen[id] = true
			ops = append(ops, id)
		}
		pool = append(pool, id)
	}

	var sinks []ad.ID
	for _, id := range ops {
		if !used[id] {
			sinks = append(sinks, id)
		}
	}
	switch len(sinks) {
	case 0:
		p.Primary = g.AddN(pool[:opts.Inputs]...)
	case 1:
		p.Primary = sinks[0]
	default:
		p.Primary = g.AddN(sinks...)
	}

	for range min(opts.Secondary, len(ops)) {
		p.Secondary = append(p.Secondary, ops[rng.Intn(len(ops))])
	}
	return p
}
