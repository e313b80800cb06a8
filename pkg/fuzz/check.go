package fuzz

import (
	"math"

	"github.com/matzehuels/adjoint/pkg/codegen"
)

// DefaultStep is the finite-difference step used when CheckGradient is given
// a non-positive h.
const DefaultStep = 1e-6

// CheckGradient compares ev's analytic gradient at inputs with central
// finite differences (f(x+h) - f(x-h)) / 2h along every input. It returns
// the largest error, scaled by max(1, |numeric|) so large derivatives are
// judged relatively.
//
// The comparison is only meaningful for graphs built from smooth operators;
// at kinks of max, min or abs the two legitimately disagree.
func CheckGradient(ev *codegen.Evaluator, inputs []float64, h float64) float64 {
	if h <= 0 {
		h = DefaultStep
	}
	analytic := ev.Eval(inputs).Gradient

	x := append([]float64(nil), inputs...)
	var worst float64
	for i := range inputs {
		orig := x[i]
		x[i] = orig + h
		plus := ev.Eval(x).Primary
		x[i] = orig - h
		minus := ev.Eval(x).Primary
		x[i] = orig

		numeric := (plus - minus) / (2 * h)
		err := math.Abs(analytic[i]-numeric) / math.Max(1, math.Abs(numeric))
		if math.IsNaN(err) {
			return math.Inf(1)
		}
		worst = max(worst, err)
	}
	return worst
}
