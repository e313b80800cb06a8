package ad

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
)

// opKey identifies an operator node for hash-consing. Unused operand slots
// are -1; n-ary operand lists are encoded into rest.
type opKey struct {
	kind    Kind
	op      Op
	a, b, c ID
	rest    string
	info    string
}

// Graph is an append-only arena of nodes. Every constructor either folds its
// operands into a constant or returns a shared operator node, so structurally
// identical requests resolve to the same ID and the arena is always a DAG.
//
// The zero value is not usable - use NewGraph. A Graph is not safe for
// concurrent use; build it from one goroutine, then extract.
type Graph struct {
	nodes  []Node
	consts map[uint64]ID
	ops    map[opKey]ID
	inputs map[int]ID
	// numInputs is one more than the largest key of inputs.
	numInputs int
}

// MaxInputIndex is the largest input index a graph may use. Evaluation
// allocates a gradient entry per index up to the largest one.
const MaxInputIndex = 1<<24 - 1

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		consts: make(map[uint64]ID),
		ops:    make(map[opKey]ID),
		inputs: make(map[int]ID),
	}
}

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given ID. The Args slice must not be
// modified. Node panics if id is not in the arena.
func (g *Graph) Node(id ID) Node {
	g.mustHave(id)
	return g.nodes[id]
}

// Inputs returns the IDs of all input nodes ordered by input index.
func (g *Graph) Inputs() []ID {
	indices := slices.Sorted(maps.Keys(g.inputs))
	ids := make([]ID, len(indices))
	for i, idx := range indices {
		ids[i] = g.inputs[idx]
	}
	return ids
}

// NumInputs returns one more than the largest registered input index, or 0
// if the graph has no inputs.
func (g *Graph) NumInputs() int { return g.numInputs }

// Const returns the constant node holding v. Constants are deduplicated by
// their IEEE bit pattern, so +0 and -0 are distinct nodes.
func (g *Graph) Const(v float64) ID {
	bits := math.Float64bits(v)
	if id, ok := g.consts[bits]; ok {
		return id
	}
	id := g.push(Node{Kind: KindConst, Value: v})
	g.consts[bits] = id
	return id
}

// Input returns the input node for index, creating it with sample value val
// on first use. Registering the same index again with a different value is a
// programming error and panics.
func (g *Graph) Input(index int, val float64) ID {
	if index < 0 || index > MaxInputIndex {
		panic(fmt.Sprintf("ad: input index %d outside [0, %d]", index, MaxInputIndex))
	}
	if id, ok := g.inputs[index]; ok {
		if prev := g.nodes[id].Value; !sameFloat(prev, val) {
			panic(fmt.Sprintf("ad: input %d already registered with value %v, got %v", index, prev, val))
		}
		return id
	}
	id := g.push(Node{Kind: KindInput, Index: index, Value: val})
	g.inputs[index] = id
	g.numInputs = max(g.numInputs, index+1)
	return id
}

// NextInput creates an input at the next free index.
func (g *Graph) NextInput(val float64) ID {
	return g.Input(g.NumInputs(), val)
}

func sameFloat(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b) || (math.IsNaN(a) && math.IsNaN(b))
}

func (g *Graph) push(n Node) ID {
	id := ID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	return id
}

func (g *Graph) mustHave(id ID) {
	if id < 0 || int(id) >= len(g.nodes) {
		panic(fmt.Sprintf("ad: node %d is not in the graph (len %d)", id, len(g.nodes)))
	}
}

// build is the single entry point for operator nodes: it validates arity,
// folds all-constant operands and hash-conses everything else.
func (g *Graph) build(kind Kind, op Op, info string, args []ID) ID {
	if want := Arity(kind); want >= 0 && len(args) != want {
		panic(fmt.Sprintf("ad: %s node %q takes %d operands, got %d", kind, op, want, len(args)))
	}
	switch kind {
	case KindTernary, KindDebug:
		if op != OpNone {
			panic(fmt.Sprintf("ad: %s node takes no operator, got %q", kind, op))
		}
	case KindUnary, KindBinary, KindNary:
		if op.Kind() != kind {
			panic(fmt.Sprintf("ad: %q is not a %s operator", op, kind))
		}
	default:
		panic(fmt.Sprintf("ad: %s is not an operator kind", kind))
	}
	allConst := true
	for _, a := range args {
		g.mustHave(a)
		if !g.nodes[a].IsConst() {
			allConst = false
		}
	}
	if allConst {
		return g.Const(g.fold(kind, op, args))
	}

	key := makeKey(kind, op, info, args)
	if id, ok := g.ops[key]; ok {
		return id
	}
	id := g.push(Node{Kind: kind, Op: op, Info: info, Args: slices.Clone(args)})
	g.ops[key] = id
	return id
}

func (g *Graph) fold(kind Kind, op Op, args []ID) float64 {
	v := func(i int) float64 { return g.nodes[args[i]].Value }
	switch kind {
	case KindUnary:
		return EvalUnary(op, v(0))
	case KindBinary:
		return EvalBinary(op, v(0), v(1))
	case KindTernary:
		return EvalTernary(v(0), v(1), v(2))
	case KindNary:
		xs := make([]float64, len(args))
		for i := range args {
			xs[i] = v(i)
		}
		return EvalNary(op, xs)
	case KindDebug:
		return v(0)
	}
	panic(fmt.Sprintf("ad: cannot fold %s node", kind))
}

func makeKey(kind Kind, op Op, info string, args []ID) opKey {
	k := opKey{kind: kind, op: op, a: -1, b: -1, c: -1, info: info}
	if kind == KindNary {
		var sb strings.Builder
		for i, a := range args {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.Itoa(int(a)))
		}
		k.rest = sb.String()
		return k
	}
	slots := [3]*ID{&k.a, &k.b, &k.c}
	for i, a := range args {
		*slots[i] = a
	}
	return k
}
