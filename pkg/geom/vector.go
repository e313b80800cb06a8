// Package geom builds common 2D geometry expressions on an [ad.Graph].
//
// Vectors are slices of node IDs. Every helper adds nodes to the graph it is
// given and returns their IDs, so the results can be differentiated like any
// other expression. Mismatched vector lengths are a programming error and
// panic.
package geom

import (
	"fmt"

	"github.com/matzehuels/adjoint/pkg/ad"
)

// Vec is a vector of scalar expressions.
type Vec []ad.ID

// Consts returns a vector of constants.
func Consts(g *ad.Graph, vs ...float64) Vec {
	out := make(Vec, len(vs))
	for i, v := range vs {
		out[i] = g.Const(v)
	}
	return out
}

func sameLen(op string, a, b Vec) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("geom: %s of vectors with lengths %d and %d", op, len(a), len(b)))
	}
}

// VAdd returns a + b.
func VAdd(g *ad.Graph, a, b Vec) Vec {
	sameLen("add", a, b)
	out := make(Vec, len(a))
	for i := range a {
		out[i] = g.Add(a[i], b[i])
	}
	return out
}

// VSub returns a - b.
func VSub(g *ad.Graph, a, b Vec) Vec {
	sameLen("sub", a, b)
	out := make(Vec, len(a))
	for i := range a {
		out[i] = g.Sub(a[i], b[i])
	}
	return out
}

// VScale returns s * v.
func VScale(g *ad.Graph, s ad.ID, v Vec) Vec {
	out := make(Vec, len(v))
	for i := range v {
		out[i] = g.Mul(s, v[i])
	}
	return out
}

// VDot returns the dot product of a and b.
func VDot(g *ad.Graph, a, b Vec) ad.ID {
	sameLen("dot", a, b)
	terms := make([]ad.ID, len(a))
	for i := range a {
		terms[i] = g.Mul(a[i], b[i])
	}
	return g.AddN(terms...)
}

// VNormSq returns |v|^2.
func VNormSq(g *ad.Graph, v Vec) ad.ID {
	terms := make([]ad.ID, len(v))
	for i := range v {
		terms[i] = g.Squared(v[i])
	}
	return g.AddN(terms...)
}

// VNorm returns |v|.
func VNorm(g *ad.Graph, v Vec) ad.ID { return g.Sqrt(VNormSq(g, v)) }

// VDist returns |a - b|.
func VDist(g *ad.Graph, a, b Vec) ad.ID { return VNorm(g, VSub(g, a, b)) }

// VNormalize returns v / |v|. The zero vector maps to the zero vector
// because division is epsilon-guarded.
func VNormalize(g *ad.Graph, v Vec) Vec {
	n := VNorm(g, v)
	out := make(Vec, len(v))
	for i := range v {
		out[i] = g.Div(v[i], n)
	}
	return out
}

// Rot90 rotates a 2D vector a quarter turn counterclockwise.
func Rot90(g *ad.Graph, v Vec) Vec {
	if len(v) != 2 {
		panic(fmt.Sprintf("geom: rot90 of a %d-vector", len(v)))
	}
	return Vec{g.Neg(v[1]), v[0]}
}
