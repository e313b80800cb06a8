package ad

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

var (
	// ErrUnknownNode is returned by [Freeze] when an operand, the primary or a
	// secondary output references a node outside the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrArity is returned by [Freeze] when a node has the wrong number of
	// operands for its kind.
	ErrArity = errors.New("wrong operand count")

	// ErrInvalidNode is returned by [Freeze] when a node's kind and operator
	// do not agree.
	ErrInvalidNode = errors.New("invalid node")

	// ErrDuplicateInput is returned by [Freeze] when two input nodes share an
	// index.
	ErrDuplicateInput = errors.New("duplicate input index")

	// ErrCycle is returned by [Freeze] when the nodes admit no topological
	// order.
	ErrCycle = errors.New("graph contains a cycle")
)

// Outputs selects the nodes to extract: one differentiated primary output
// and any number of secondary observation values.
type Outputs struct {
	Primary   ID
	Secondary []ID
}

// Extracted is an immutable, topologically ordered subgraph with a
// designated primary output and an ordered list of secondary outputs. Node
// IDs inside an Extracted graph are local: 0..Len()-1.
//
// An Extracted graph never changes after creation and is safe for
// concurrent use.
type Extracted struct {
	nodes     []Node
	primary   ID
	secondary []ID
	order     []ID
	inputs    []ID
}

// PrimaryGraph extracts the subgraph reachable from out, with no secondary
// outputs.
func PrimaryGraph(g *Graph, out ID) *Extracted {
	return MakeGraph(g, Outputs{Primary: out})
}

// SecondaryGraph extracts the subgraph reachable from outs. The primary
// output is the constant 0, so the gradient is always zero.
func SecondaryGraph(g *Graph, outs []ID) *Extracted {
	return MakeGraph(g, Outputs{Primary: g.Const(0), Secondary: outs})
}

// MakeGraph extracts the subgraph reachable from the primary and secondary
// outputs of o. Nodes are numbered in breadth-first encounter order starting
// from the primary, then each secondary in turn, so identical output sets
// always extract to identical graphs.
//
// MakeGraph panics if an output is not in g; the builder guarantees the rest
// of the invariants Freeze checks.
func MakeGraph(g *Graph, o Outputs) *Extracted {
	local := make(map[ID]ID)
	var visited []ID

	visit := func(id ID) {
		g.mustHave(id)
		if _, ok := local[id]; !ok {
			local[id] = ID(len(visited))
			visited = append(visited, id)
		}
	}

	visit(o.Primary)
	for _, s := range o.Secondary {
		visit(s)
	}
	for i := 0; i < len(visited); i++ {
		for _, a := range g.nodes[visited[i]].Args {
			visit(a)
		}
	}

	nodes := make([]Node, len(visited))
	for i, id := range visited {
		n := g.nodes[id]
		if len(n.Args) > 0 {
			args := make([]ID, len(n.Args))
			for j, a := range n.Args {
				args[j] = local[a]
			}
			n.Args = args
		}
		nodes[i] = n
	}

	secondary := make([]ID, len(o.Secondary))
	for i, s := range o.Secondary {
		secondary[i] = local[s]
	}

	x, err := Freeze(nodes, local[o.Primary], secondary)
	if err != nil {
		panic(fmt.Sprintf("ad: extract: %v", err))
	}
	return x
}

// Freeze validates a list of nodes whose Args reference positions in the
// same list and packages them as an Extracted graph. It is the entry point
// for graphs that did not come from a [Graph] builder, such as decoded
// interchange documents.
//
// Freeze takes ownership of nodes and secondary.
func Freeze(nodes []Node, primary ID, secondary []ID) (*Extracted, error) {
	n := len(nodes)
	inRange := func(id ID) bool { return id >= 0 && int(id) < n }

	if !inRange(primary) {
		return nil, fmt.Errorf("primary %d: %w", primary, ErrUnknownNode)
	}
	for _, s := range secondary {
		if !inRange(s) {
			return nil, fmt.Errorf("secondary %d: %w", s, ErrUnknownNode)
		}
	}

	seenIndex := make(map[int]bool)
	for i, nd := range nodes {
		if err := checkNode(nd); err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		for _, a := range nd.Args {
			if !inRange(a) {
				return nil, fmt.Errorf("node %d operand %d: %w", i, a, ErrUnknownNode)
			}
		}
		if nd.IsInput() {
			if seenIndex[nd.Index] {
				return nil, fmt.Errorf("node %d index %d: %w", i, nd.Index, ErrDuplicateInput)
			}
			seenIndex[nd.Index] = true
		}
	}

	order, err := topoSort(nodes)
	if err != nil {
		return nil, err
	}

	var inputs []ID
	for i, nd := range nodes {
		if nd.IsInput() {
			inputs = append(inputs, ID(i))
		}
	}
	sort.Slice(inputs, func(a, b int) bool {
		return nodes[inputs[a]].Index < nodes[inputs[b]].Index
	})

	return &Extracted{
		nodes:     nodes,
		primary:   primary,
		secondary: secondary,
		order:     order,
		inputs:    inputs,
	}, nil
}

func checkNode(nd Node) error {
	switch nd.Kind {
	case KindConst, KindInput, KindTernary, KindDebug:
		if nd.Op != OpNone {
			return fmt.Errorf("%s node with operator %q: %w", nd.Kind, nd.Op, ErrInvalidNode)
		}
	case KindUnary, KindBinary, KindNary:
		if nd.Op.Kind() != nd.Kind {
			return fmt.Errorf("%s node with operator %q: %w", nd.Kind, nd.Op, ErrInvalidNode)
		}
	default:
		return fmt.Errorf("kind %d: %w", nd.Kind, ErrInvalidNode)
	}
	if nd.IsInput() && (nd.Index < 0 || nd.Index > MaxInputIndex) {
		return fmt.Errorf("input index %d outside [0, %d]: %w", nd.Index, MaxInputIndex, ErrInvalidNode)
	}
	if want := Arity(nd.Kind); want >= 0 && len(nd.Args) != want {
		return fmt.Errorf("%s node has %d operands, want %d: %w", nd.Kind, len(nd.Args), want, ErrArity)
	}
	return nil
}

// topoSort orders nodes operands-first using Kahn's algorithm. The queue is
// seeded in ascending ID order and consumers are released in the order they
// reference their operands, which makes the result deterministic.
func topoSort(nodes []Node) ([]ID, error) {
	inDegree := make([]int, len(nodes))
	users := make([][]ID, len(nodes))
	queue := make([]ID, 0, len(nodes))

	for i, nd := range nodes {
		inDegree[i] = len(nd.Args)
		for _, a := range nd.Args {
			users[a] = append(users[a], ID(i))
		}
		if len(nd.Args) == 0 {
			queue = append(queue, ID(i))
		}
	}

	order := make([]ID, 0, len(nodes))
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		order = append(order, curr)

		for _, u := range users[curr] {
			inDegree[u]--
			if inDegree[u] == 0 {
				queue = append(queue, u)
			}
		}
	}

	if len(order) != len(nodes) {
		return nil, ErrCycle
	}
	return order, nil
}

// Len returns the number of nodes.
func (x *Extracted) Len() int { return len(x.nodes) }

// Node returns node i. The Args slice must not be modified.
func (x *Extracted) Node(i ID) Node { return x.nodes[i] }

// Nodes returns a copy of the node list, indexed by local ID.
func (x *Extracted) Nodes() []Node {
	out := make([]Node, len(x.nodes))
	for i, n := range x.nodes {
		n.Args = slices.Clone(n.Args)
		out[i] = n
	}
	return out
}

// Primary returns the local ID of the primary output.
func (x *Extracted) Primary() ID { return x.primary }

// Secondary returns the local IDs of the secondary outputs in extraction
// order.
func (x *Extracted) Secondary() []ID { return slices.Clone(x.secondary) }

// Order returns a topological order of all nodes, operands before the nodes
// that use them.
func (x *Extracted) Order() []ID { return slices.Clone(x.order) }

// Inputs returns the local IDs of the input nodes ordered by input index.
func (x *Extracted) Inputs() []ID { return slices.Clone(x.inputs) }

// NumInputs returns one more than the largest input index, or 0 when the
// graph has no inputs.
func (x *Extracted) NumInputs() int {
	if len(x.inputs) == 0 {
		return 0
	}
	return x.nodes[x.inputs[len(x.inputs)-1]].Index + 1
}

// Edges lists every operand edge, grouped by consuming node in ID order and
// within a node in role order.
func (x *Extracted) Edges() []Edge {
	var edges []Edge
	for i, n := range x.nodes {
		for j, a := range n.Args {
			edges = append(edges, Edge{From: a, To: ID(i), Role: RoleOf(n.Kind, j)})
		}
	}
	return edges
}

// Load rebuilds x in a fresh Graph through the public constructors and
// returns the graph with the IDs of the primary and secondary outputs.
func Load(x *Extracted) (*Graph, ID, []ID) {
	g := NewGraph()
	ids := make([]ID, len(x.nodes))
	for _, i := range x.order {
		n := x.nodes[i]
		if len(n.Args) > 0 {
			args := make([]ID, len(n.Args))
			for j, a := range n.Args {
				args[j] = ids[a]
			}
			n.Args = args
		}
		ids[i] = g.Rebuild(n)
	}
	secondary := make([]ID, len(x.secondary))
	for i, s := range x.secondary {
		secondary[i] = ids[s]
	}
	return g, ids[x.primary], secondary
}
