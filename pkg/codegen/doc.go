// Package codegen compiles extracted expression graphs into evaluators that
// compute a value, its gradient and a set of auxiliary values in one call.
//
// # Overview
//
// [Compile] lays the nodes of an [ad.Extracted] graph out as a flat program
// in topological order. [Evaluator.Eval] then runs two sweeps over that
// program:
//
//  1. Forward: every node's value from its already computed operands, with the
//     same numeric semantics the builder uses for constant folding.
//  2. Backward: reverse-mode accumulation. The primary output's adjoint is
//     seeded with 1 and each node pushes adjoint * local partial into its
//     operands. Shared nodes collect the sum over all their consumers.
//
// Secondary outputs are read off the forward values and never differentiated.
//
// # Non-smooth Operators
//
// max, min, maxN and minN send the whole adjoint to the operand that attained
// the result; ties go to the first (left) operand. abs uses sign(x) with 0 at
// 0. Comparisons, logical operators and the rounding family have zero
// derivative. A conditional routes its adjoint to the branch that was taken
// and none to the condition.
//
// # Example
//
//	g := ad.NewGraph()
//	x := g.Input(0, 0)
//	ev := codegen.Compile(ad.PrimaryGraph(g, g.Mul(x, x)))
//	res := ev.Eval([]float64{3}) // res.Primary == 9, res.Gradient == [6]
//
// # Concurrency
//
// Evaluators are immutable; Eval allocates all per-call state, so one
// Evaluator can serve many goroutines.
package codegen
