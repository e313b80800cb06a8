package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/adjoint/pkg/ad"
	"github.com/matzehuels/adjoint/pkg/codegen"
)

// values evaluates ids as secondary outputs at the inputs' sample values.
func values(g *ad.Graph, ids ...ad.ID) []float64 {
	return codegen.Compile(ad.SecondaryGraph(g, ids)).Eval(nil).Secondary
}

func TestClosestPointCircle(t *testing.T) {
	tests := []struct {
		name   string
		center [2]float64
		radius float64
		pt     [2]float64
		want   [2]float64
	}{
		{"on boundary", [2]float64{0, 0}, 3, [2]float64{3, 0}, [2]float64{3, 0}},
		{"outside", [2]float64{0, 0}, 3, [2]float64{4, 0}, [2]float64{3, 0}},
		{"outside negative", [2]float64{0, 0}, 3, [2]float64{-5, 0}, [2]float64{-3, 0}},
		{"inside offset", [2]float64{1, 1}, 2, [2]float64{1, 2}, [2]float64{1, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ad.NewGraph()
			p := ClosestPointCircle(g, Consts(g, tt.center[:]...), g.Const(tt.radius), Consts(g, tt.pt[:]...))
			got := values(g, p...)
			require.Len(t, got, 2)
			assert.InDelta(t, tt.want[0], got[0], 1e-6)
			assert.InDelta(t, tt.want[1], got[1], 1e-6)
		})
	}
}

func TestClosestPointGradient(t *testing.T) {
	// Moving the center along the axis through pt moves the closest point
	// with it; moving the radius moves it along the same axis.
	g := ad.NewGraph()
	center := Vec{g.Input(0, 0), g.Input(1, 0)}
	r := g.Input(2, 3)
	p := ClosestPointCircle(g, center, r, Consts(g, 5, 0))

	res := codegen.Compile(ad.PrimaryGraph(g, p[0])).Eval(nil)
	assert.InDelta(t, 3, res.Primary, 1e-6)
	require.Len(t, res.Gradient, 3)
	assert.InDelta(t, 1, res.Gradient[0], 1e-6)
	assert.InDelta(t, 1, res.Gradient[2], 1e-6)
}

func TestVectorOps(t *testing.T) {
	g := ad.NewGraph()
	a := Vec{g.Input(0, 3), g.Input(1, 4)}
	b := Consts(g, 1, 2)

	got := values(g,
		VDot(g, a, b),
		VNorm(g, a),
		VNormSq(g, a),
		VDist(g, a, b),
		VAdd(g, a, b)[1],
		VSub(g, a, b)[0],
		Rot90(g, a)[0],
		VNormalize(g, a)[0],
	)
	want := []float64{11, 5, 25, math.Sqrt(8), 6, 2, -4, 0.6}
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "value %d", i)
	}
}

func TestVectorLengthMismatch(t *testing.T) {
	g := ad.NewGraph()
	assert.Panics(t, func() { VAdd(g, Consts(g, 1), Consts(g, 1, 2)) })
	assert.Panics(t, func() { Rot90(g, Consts(g, 1, 2, 3)) })
}

func TestHalfPlane(t *testing.T) {
	g := ad.NewGraph()
	seg := [2]Vec{Consts(g, 0, 0), Consts(g, 1, 0)}
	inside := Consts(g, 0, 1)

	n := OutwardUnitNormal(g, seg, inside)
	h := HalfPlaneToImplicit(g, seg, inside, g.Const(0))
	in := ImplicitHalfPlaneFunc(g, h, g.Const(0), g.Const(1))
	out := ImplicitHalfPlaneFunc(g, h, g.Const(0), g.Const(-2))

	got := values(g, n[0], n[1], in, out)
	assert.InDelta(t, 0, got[0], 1e-9)
	assert.InDelta(t, -1, got[1], 1e-9, "normal points away from the inside point")
	assert.Less(t, got[2], 0.0)
	assert.Greater(t, got[3], 0.0)
}

func TestImplicitEllipse(t *testing.T) {
	g := ad.NewGraph()
	center := Consts(g, 1, 2)
	circle := CircleToImplicitEllipse(g, center, g.Const(2), g.Const(0))
	ellipse := EllipseToImplicit(g, center, g.Const(4), g.Const(1), g.Const(0))

	got := values(g,
		ImplicitEllipseFunc(g, circle, g.Const(1), g.Const(2)),
		ImplicitEllipseFunc(g, circle, g.Const(3), g.Const(2)),
		ImplicitEllipseFunc(g, circle, g.Const(5), g.Const(2)),
		ImplicitEllipseFunc(g, ellipse, g.Const(5), g.Const(2)),
		ImplicitEllipseFunc(g, ellipse, g.Const(1), g.Const(3)),
	)
	assert.InDelta(t, -4, got[0], 1e-9)
	assert.InDelta(t, 0, got[1], 1e-9)
	assert.Greater(t, got[2], 0.0)
	assert.InDelta(t, 0, got[3], 1e-6, "end of the major axis")
	assert.InDelta(t, 0, got[4], 1e-6, "end of the minor axis")
}
