// Package ad builds scalar expression graphs for reverse-mode automatic
// differentiation.
//
// # Overview
//
// An energy function is assembled node by node through a [Graph]. Every
// constructor either folds its operands into a constant (when all of them are
// constants) or returns a shared operator node: asking twice for the same
// operation over the same operands yields the same [ID]. The arena is
// therefore a DAG in which a shared subexpression appears exactly once, which
// is what lets the backward pass in package codegen sum gradient
// contributions from every parent without double counting.
//
//	g := ad.NewGraph()
//	x := g.Input(0, 3)
//	y := g.Mul(x, x)            // one node with x in both operand slots
//	c := g.Add(g.Const(2), g.Const(3)) // folded to Const(5)
//
// # Node Model
//
// A [Node] is a closed variant over Const, Input, Unary, Binary, Ternary,
// Nary and Debug. Operands are stored as IDs in role order; [RoleOf] and
// [ArgIndex] translate positions to the edge roles used by the interchange
// format ("left", "right", "cond", "then", "els", or a decimal index).
//
// # Numerical Policy
//
// Division and inverse add [Epsilon] to the denominator. Comparisons and
// logical operators evaluate to 1 or 0; conditionals treat any non-zero,
// non-NaN value as true. Domain errors (sqrt of a negative number, ln of
// zero) are not errors: they produce NaN or Inf like any IEEE operation.
//
// # Extraction
//
// [MakeGraph], [PrimaryGraph] and [SecondaryGraph] copy the nodes reachable
// from the requested outputs into an immutable [Extracted] graph with local
// IDs assigned in breadth-first encounter order and a topological order
// computed with Kahn's algorithm. [Freeze] builds the same structure from raw
// nodes and reports malformed input as errors; [Load] goes the other way and
// replays an extracted graph into a fresh builder.
//
// # Errors
//
// Misusing the builder (unknown IDs, wrong arity, reusing an input index
// with a different value) is a programming error and panics. Only [Freeze]
// returns errors, because its input may come from a file.
//
// # Concurrency
//
// A [Graph] must be built from a single goroutine. [Extracted] values are
// immutable and safe to share.
package ad
