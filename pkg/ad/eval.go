package ad

import (
	"fmt"
	"math"
)

// Epsilon is added to every denominator of inverse and division so that a
// zero denominator yields a large finite value instead of Inf or NaN. The
// gradient is taken of the adjusted expression.
const Epsilon = 1e-10

// Truthy reports whether v counts as true for conditionals and logical
// operators: non-zero and not NaN.
func Truthy(v float64) bool { return v != 0 && !math.IsNaN(v) }

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Sign returns 1 or -1 for non-zero x and passes ±0 and NaN through unchanged.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return x
	}
}

// EvalUnary applies a unary operator to x.
func EvalUnary(op Op, x float64) float64 {
	switch op {
	case OpNeg:
		return -x
	case OpSquared:
		return x * x
	case OpSqrt:
		return math.Sqrt(x)
	case OpInverse:
		return 1 / (x + Epsilon)
	case OpAbs:
		return math.Abs(x)
	case OpAcos:
		return math.Acos(x)
	case OpAcosh:
		return math.Acosh(x)
	case OpAsin:
		return math.Asin(x)
	case OpAsinh:
		return math.Asinh(x)
	case OpAtan:
		return math.Atan(x)
	case OpAtanh:
		return math.Atanh(x)
	case OpCbrt:
		return math.Cbrt(x)
	case OpCeil:
		return math.Ceil(x)
	case OpCos:
		return math.Cos(x)
	case OpCosh:
		return math.Cosh(x)
	case OpExp:
		return math.Exp(x)
	case OpExpm1:
		return math.Expm1(x)
	case OpFloor:
		return math.Floor(x)
	case OpLn:
		return math.Log(x)
	case OpLog2:
		return math.Log2(x)
	case OpLog10:
		return math.Log10(x)
	case OpLog1p:
		return math.Log1p(x)
	case OpRound:
		return math.Floor(x + 0.5)
	case OpSign:
		return Sign(x)
	case OpSin:
		return math.Sin(x)
	case OpSinh:
		return math.Sinh(x)
	case OpTan:
		return math.Tan(x)
	case OpTanh:
		return math.Tanh(x)
	case OpTrunc:
		return math.Trunc(x)
	}
	panic(fmt.Sprintf("ad: %v is not a unary operator", op))
}

// EvalBinary applies a binary operator to a (left) and b (right).
func EvalBinary(op Op, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / (b + Epsilon)
	case OpMax:
		return math.Max(a, b)
	case OpMin:
		return math.Min(a, b)
	case OpAtan2:
		return math.Atan2(a, b)
	case OpPow:
		return math.Pow(a, b)
	case OpGt:
		return boolValue(a > b)
	case OpLt:
		return boolValue(a < b)
	case OpEq:
		return boolValue(a == b)
	case OpAnd:
		return boolValue(Truthy(a) && Truthy(b))
	case OpOr:
		return boolValue(Truthy(a) || Truthy(b))
	}
	panic(fmt.Sprintf("ad: %v is not a binary operator", op))
}

// EvalTernary selects then when cond is truthy and els otherwise.
func EvalTernary(cond, then, els float64) float64 {
	if Truthy(cond) {
		return then
	}
	return els
}

// EvalNary reduces xs with an n-ary operator. Empty reductions yield the
// identity: 0 for addN, -Inf for maxN and +Inf for minN.
func EvalNary(op Op, xs []float64) float64 {
	switch op {
	case OpAddN:
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum
	case OpMaxN:
		m := math.Inf(-1)
		for _, x := range xs {
			m = math.Max(m, x)
		}
		return m
	case OpMinN:
		m := math.Inf(1)
		for _, x := range xs {
			m = math.Min(m, x)
		}
		return m
	}
	panic(fmt.Sprintf("ad: %v is not an n-ary operator", op))
}

// ArgMax returns the index of the first element attaining the maximum, or -1
// for an empty slice.
func ArgMax(xs []float64) int {
	best := -1
	for i, x := range xs {
		if best < 0 || x > xs[best] {
			best = i
		}
	}
	return best
}

// ArgMin returns the index of the first element attaining the minimum, or -1
// for an empty slice.
func ArgMin(xs []float64) int {
	best := -1
	for i, x := range xs {
		if best < 0 || x < xs[best] {
			best = i
		}
	}
	return best
}
