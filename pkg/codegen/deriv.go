package codegen

import (
	"fmt"
	"math"

	"github.com/matzehuels/adjoint/pkg/ad"
)

// unaryPartial returns d op(x)/dx given the operand x and the forward value
// v = op(x).
func unaryPartial(op ad.Op, x, v float64) float64 {
	switch op {
	case ad.OpNeg:
		return -1
	case ad.OpSquared:
		return 2 * x
	case ad.OpSqrt:
		return 1 / (2 * v)
	case ad.OpInverse:
		// v = 1/(x+eps), so dv/dx = -1/(x+eps)^2 = -v^2.
		return -v * v
	case ad.OpAbs:
		switch {
		case x > 0:
			return 1
		case x < 0:
			return -1
		default:
			return 0
		}
	case ad.OpAcos:
		return -1 / math.Sqrt(1-x*x)
	case ad.OpAcosh:
		return 1 / math.Sqrt(x*x-1)
	case ad.OpAsin:
		return 1 / math.Sqrt(1-x*x)
	case ad.OpAsinh:
		return 1 / math.Sqrt(x*x+1)
	case ad.OpAtan:
		return 1 / (1 + x*x)
	case ad.OpAtanh:
		return 1 / (1 - x*x)
	case ad.OpCbrt:
		return 1 / (3 * v * v)
	case ad.OpCeil, ad.OpFloor, ad.OpRound, ad.OpSign, ad.OpTrunc:
		return 0
	case ad.OpCos:
		return -math.Sin(x)
	case ad.OpCosh:
		return math.Sinh(x)
	case ad.OpExp:
		return v
	case ad.OpExpm1:
		return v + 1
	case ad.OpLn:
		return 1 / x
	case ad.OpLog2:
		return 1 / (x * math.Ln2)
	case ad.OpLog10:
		return 1 / (x * math.Ln10)
	case ad.OpLog1p:
		return 1 / (1 + x)
	case ad.OpSin:
		return math.Cos(x)
	case ad.OpSinh:
		return math.Cosh(x)
	case ad.OpTan:
		return 1 + v*v
	case ad.OpTanh:
		return 1 - v*v
	}
	panic(fmt.Sprintf("codegen: no derivative for unary %q", op))
}

// binaryPartials returns (d/da, d/db) of op(a, b) given the forward value v.
// max and min route the whole gradient to the operand that attained the
// result, the left one on ties.
func binaryPartials(op ad.Op, a, b, v float64) (float64, float64) {
	switch op {
	case ad.OpAdd:
		return 1, 1
	case ad.OpSub:
		return 1, -1
	case ad.OpMul:
		return b, a
	case ad.OpDiv:
		d := b + ad.Epsilon
		return 1 / d, -a / (d * d)
	case ad.OpMax:
		if a >= b {
			return 1, 0
		}
		return 0, 1
	case ad.OpMin:
		if a <= b {
			return 1, 0
		}
		return 0, 1
	case ad.OpAtan2:
		r := a*a + b*b
		return b / r, -a / r
	case ad.OpPow:
		var da, db float64
		if b != 0 {
			da = b * math.Pow(a, b-1)
		}
		if a > 0 {
			db = v * math.Log(a)
		}
		return da, db
	case ad.OpGt, ad.OpLt, ad.OpEq, ad.OpAnd, ad.OpOr:
		return 0, 0
	}
	panic(fmt.Sprintf("codegen: no derivative for binary %q", op))
}
