package ad

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// positions maps each ID to its index in order.
func positions(order []ID) map[ID]int {
	m := make(map[ID]int, len(order))
	for i, id := range order {
		m[id] = i
	}
	return m
}

func TestMakeGraphReachableOnly(t *testing.T) {
	g := NewGraph()
	x := g.Input(0, 1)
	y := g.Input(1, 2)
	unused := g.Input(2, 3)
	_ = g.Sin(unused)

	out := g.Mul(g.Add(x, y), x)
	ex := PrimaryGraph(g, out)

	assert.Equal(t, 4, ex.Len(), "mul, add, x, y")
	assert.Equal(t, ID(0), ex.Primary())
	assert.Empty(t, ex.Secondary())
	assert.Equal(t, 2, ex.NumInputs())
	for _, n := range ex.Nodes() {
		assert.NotEqual(t, KindUnary, n.Kind)
	}
}

func TestMakeGraphSharedNodeOnce(t *testing.T) {
	g := NewGraph()
	x := g.Input(0, 1)
	s := g.Sin(x)
	a := g.Add(s, s)
	b := g.Mul(s, x)

	ex := MakeGraph(g, Outputs{Primary: a, Secondary: []ID{b, s}})

	// a, b, s, x
	require.Equal(t, 4, ex.Len())
	assert.Equal(t, []ID{1, 2}, ex.Secondary())
	sins := 0
	for _, n := range ex.Nodes() {
		if n.Op == OpSin {
			sins++
		}
	}
	assert.Equal(t, 1, sins)
}

func TestMakeGraphTopologicalOrder(t *testing.T) {
	g := NewGraph()
	x := g.Input(0, 1)
	y := g.Input(1, 2)
	p := g.AddN(g.Mul(x, y), g.Sin(g.Mul(x, y)), g.IfCond(g.Gt(x, y), x, y))
	ex := PrimaryGraph(g, p)

	order := ex.Order()
	require.Len(t, order, ex.Len())
	pos := positions(order)
	for _, e := range ex.Edges() {
		assert.Less(t, pos[e.From], pos[e.To], "operand %d must precede %d", e.From, e.To)
	}
	assert.Equal(t, ex.Primary(), order[len(order)-1])
}

func TestMakeGraphDeterministic(t *testing.T) {
	build := func() *Extracted {
		g := NewGraph()
		x := g.Input(0, 1)
		y := g.Input(1, 2)
		s := g.Squared(g.Sub(x, y))
		return MakeGraph(g, Outputs{Primary: g.AddN(s, g.Abs(x)), Secondary: []ID{s, y}})
	}
	a, b := build(), build()

	assert.Empty(t, cmp.Diff(a.Nodes(), b.Nodes()))
	assert.Equal(t, a.Order(), b.Order())
	assert.Equal(t, a.Edges(), b.Edges())
	assert.Equal(t, a.Secondary(), b.Secondary())
}

func TestSecondaryGraph(t *testing.T) {
	g := NewGraph()
	x := g.Input(0, 4)
	ex := SecondaryGraph(g, []ID{g.Sqrt(x), x})

	p := ex.Node(ex.Primary())
	assert.True(t, p.IsConst())
	assert.Equal(t, 0.0, p.Value)
	assert.Len(t, ex.Secondary(), 2)
}

func TestEdgesRoles(t *testing.T) {
	g := NewGraph()
	c := g.Input(0, 1)
	a := g.Input(1, 2)
	ex := PrimaryGraph(g, g.IfCond(c, a, g.Neg(a)))

	var roles []Role
	for _, e := range ex.Edges() {
		if e.To == ex.Primary() {
			roles = append(roles, e.Role)
		}
	}
	assert.Equal(t, []Role{RoleCond, RoleThen, RoleEls}, roles)
}

func TestFreezeErrors(t *testing.T) {
	in := func(i int) Node { return Node{Kind: KindInput, Index: i} }
	tests := []struct {
		name    string
		nodes   []Node
		primary ID
		want    error
	}{
		{"primary out of range", []Node{in(0)}, 3, ErrUnknownNode},
		{"operand out of range", []Node{{Kind: KindUnary, Op: OpSin, Args: []ID{7}}}, 0, ErrUnknownNode},
		{"arity", []Node{{Kind: KindBinary, Op: OpAdd, Args: []ID{1}}, in(0)}, 0, ErrArity},
		{"const with operand", []Node{{Kind: KindConst, Args: []ID{0}}}, 0, ErrArity},
		{"kind op mismatch", []Node{{Kind: KindUnary, Op: OpAdd, Args: []ID{1}}, in(0)}, 0, ErrInvalidNode},
		{"ternary with op", []Node{{Kind: KindTernary, Op: OpAdd, Args: []ID{1, 1, 1}}, in(0)}, 0, ErrInvalidNode},
		{"negative input index", []Node{in(-1)}, 0, ErrInvalidNode},
		{"input index too large", []Node{{Kind: KindUnary, Op: OpSquared, Args: []ID{1}}, in(MaxInputIndex + 1)}, 0, ErrInvalidNode},
		{"input index overflows", []Node{in(math.MaxInt)}, 0, ErrInvalidNode},
		{"duplicate input", []Node{{Kind: KindBinary, Op: OpAdd, Args: []ID{1, 2}}, in(0), in(0)}, 0, ErrDuplicateInput},
		{"cycle", []Node{
			{Kind: KindUnary, Op: OpSin, Args: []ID{1}},
			{Kind: KindUnary, Op: OpCos, Args: []ID{0}},
		}, 0, ErrCycle},
		{"self loop", []Node{{Kind: KindNary, Op: OpAddN, Args: []ID{0}}}, 0, ErrCycle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Freeze(tt.nodes, tt.primary, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v, want %v", err, tt.want)
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	g := NewGraph()
	x := g.Input(0, 1)
	y := g.Input(1, -2)
	s := g.Debug(g.Div(x, y), "ratio")
	p := g.MaxN(s, g.Pow(x, g.Const(3)), g.Atan2(y, x))
	ex := MakeGraph(g, Outputs{Primary: p, Secondary: []ID{s}})

	g2, p2, sec2 := Load(ex)
	ex2 := MakeGraph(g2, Outputs{Primary: p2, Secondary: sec2})

	assert.Empty(t, cmp.Diff(ex.Nodes(), ex2.Nodes()))
	assert.Equal(t, ex.Edges(), ex2.Edges())
	assert.Equal(t, ex.Secondary(), ex2.Secondary())
}

func TestExtractedIsImmutable(t *testing.T) {
	g := NewGraph()
	x := g.Input(0, 1)
	ex := PrimaryGraph(g, g.Add(x, g.Const(1)))

	nodes := ex.Nodes()
	nodes[0].Args[0] = 99
	order := ex.Order()
	order[0] = 99

	assert.NotEqual(t, ID(99), ex.Node(0).Args[0])
	assert.NotEqual(t, ID(99), ex.Order()[0])
}
