package ad

import "fmt"

// Unary builds op(x). It panics if op is not a unary operator.
func (g *Graph) Unary(op Op, x ID) ID { return g.build(KindUnary, op, "", []ID{x}) }

// Binary builds op(a, b). It panics if op is not a binary operator.
func (g *Graph) Binary(op Op, a, b ID) ID { return g.build(KindBinary, op, "", []ID{a, b}) }

// Nary builds op(xs...). It panics if op is not an n-ary operator.
func (g *Graph) Nary(op Op, xs ...ID) ID { return g.build(KindNary, op, "", xs) }

// IfCond builds a conditional that selects then when cond is truthy and els
// otherwise.
func (g *Graph) IfCond(cond, then, els ID) ID {
	return g.build(KindTernary, OpNone, "", []ID{cond, then, els})
}

// Debug wraps x with a diagnostic label. It evaluates to x unchanged.
func (g *Graph) Debug(x ID, info string) ID {
	return g.build(KindDebug, OpNone, info, []ID{x})
}

func (g *Graph) Neg(x ID) ID     { return g.Unary(OpNeg, x) }
func (g *Graph) Squared(x ID) ID { return g.Unary(OpSquared, x) }
func (g *Graph) Sqrt(x ID) ID    { return g.Unary(OpSqrt, x) }

// Inverse builds 1/(x+Epsilon).
func (g *Graph) Inverse(x ID) ID { return g.Unary(OpInverse, x) }

func (g *Graph) Abs(x ID) ID   { return g.Unary(OpAbs, x) }
func (g *Graph) Acos(x ID) ID  { return g.Unary(OpAcos, x) }
func (g *Graph) Acosh(x ID) ID { return g.Unary(OpAcosh, x) }
func (g *Graph) Asin(x ID) ID  { return g.Unary(OpAsin, x) }
func (g *Graph) Asinh(x ID) ID { return g.Unary(OpAsinh, x) }
func (g *Graph) Atan(x ID) ID  { return g.Unary(OpAtan, x) }
func (g *Graph) Atanh(x ID) ID { return g.Unary(OpAtanh, x) }
func (g *Graph) Cbrt(x ID) ID  { return g.Unary(OpCbrt, x) }
func (g *Graph) Ceil(x ID) ID  { return g.Unary(OpCeil, x) }
func (g *Graph) Cos(x ID) ID   { return g.Unary(OpCos, x) }
func (g *Graph) Cosh(x ID) ID  { return g.Unary(OpCosh, x) }
func (g *Graph) Exp(x ID) ID   { return g.Unary(OpExp, x) }
func (g *Graph) Expm1(x ID) ID { return g.Unary(OpExpm1, x) }
func (g *Graph) Floor(x ID) ID { return g.Unary(OpFloor, x) }
func (g *Graph) Ln(x ID) ID    { return g.Unary(OpLn, x) }
func (g *Graph) Log2(x ID) ID  { return g.Unary(OpLog2, x) }
func (g *Graph) Log10(x ID) ID { return g.Unary(OpLog10, x) }
func (g *Graph) Log1p(x ID) ID { return g.Unary(OpLog1p, x) }
func (g *Graph) Round(x ID) ID { return g.Unary(OpRound, x) }
func (g *Graph) Sign(x ID) ID  { return g.Unary(OpSign, x) }
func (g *Graph) Sin(x ID) ID   { return g.Unary(OpSin, x) }
func (g *Graph) Sinh(x ID) ID  { return g.Unary(OpSinh, x) }
func (g *Graph) Tan(x ID) ID   { return g.Unary(OpTan, x) }
func (g *Graph) Tanh(x ID) ID  { return g.Unary(OpTanh, x) }
func (g *Graph) Trunc(x ID) ID { return g.Unary(OpTrunc, x) }

func (g *Graph) Add(a, b ID) ID { return g.Binary(OpAdd, a, b) }
func (g *Graph) Sub(a, b ID) ID { return g.Binary(OpSub, a, b) }
func (g *Graph) Mul(a, b ID) ID { return g.Binary(OpMul, a, b) }

// Div builds a/(b+Epsilon).
func (g *Graph) Div(a, b ID) ID { return g.Binary(OpDiv, a, b) }

// Max builds max(a, b). Its gradient flows to a when a >= b.
func (g *Graph) Max(a, b ID) ID { return g.Binary(OpMax, a, b) }

// Min builds min(a, b). Its gradient flows to a when a <= b.
func (g *Graph) Min(a, b ID) ID { return g.Binary(OpMin, a, b) }

// Atan2 builds atan2(y, x).
func (g *Graph) Atan2(y, x ID) ID { return g.Binary(OpAtan2, y, x) }
func (g *Graph) Pow(a, b ID) ID   { return g.Binary(OpPow, a, b) }
func (g *Graph) Gt(a, b ID) ID    { return g.Binary(OpGt, a, b) }
func (g *Graph) Lt(a, b ID) ID    { return g.Binary(OpLt, a, b) }
func (g *Graph) Eq(a, b ID) ID    { return g.Binary(OpEq, a, b) }
func (g *Graph) And(a, b ID) ID   { return g.Binary(OpAnd, a, b) }
func (g *Graph) Or(a, b ID) ID    { return g.Binary(OpOr, a, b) }

// AddN sums xs in one node instead of a chain of binary additions.
func (g *Graph) AddN(xs ...ID) ID { return g.Nary(OpAddN, xs...) }
func (g *Graph) MaxN(xs ...ID) ID { return g.Nary(OpMaxN, xs...) }
func (g *Graph) MinN(xs ...ID) ID { return g.Nary(OpMinN, xs...) }

// Rebuild adds n to g through the public constructors, with n.Args already
// translated to IDs of g. It is used to load frozen graphs back into an
// arena, so folding and sharing apply as usual.
func (g *Graph) Rebuild(n Node) ID {
	switch n.Kind {
	case KindConst:
		return g.Const(n.Value)
	case KindInput:
		return g.Input(n.Index, n.Value)
	case KindDebug:
		return g.build(KindDebug, OpNone, n.Info, n.Args)
	default:
		if n.Kind > KindDebug {
			panic(fmt.Sprintf("ad: unknown node kind %d", n.Kind))
		}
		return g.build(n.Kind, n.Op, "", n.Args)
	}
}
