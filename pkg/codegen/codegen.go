package codegen

import (
	"fmt"
	"strings"

	"github.com/matzehuels/adjoint/pkg/ad"
)

// instr is one step of a compiled program. dst is the local node ID whose
// value the step produces; args are the local IDs of its operands.
type instr struct {
	kind  ad.Kind
	op    ad.Op
	dst   ad.ID
	args  []ad.ID
	value float64 // Const value or Input sample value
	index int     // Input index
	info  string  // Debug label
}

// Result is the output of one evaluation.
type Result struct {
	// Primary is the value of the differentiated output.
	Primary float64 `json:"primary"`
	// Gradient holds d(Primary)/d(input i) at position i. Inputs with no path
	// to the primary output have a zero entry.
	Gradient []float64 `json:"gradient"`
	// Secondary holds the values of the secondary outputs in extraction order.
	Secondary []float64 `json:"secondary"`
}

// Evaluator is a compiled extracted graph. It is immutable: every call to
// Eval allocates its own value and adjoint arrays, so one Evaluator can be
// used from many goroutines at once.
type Evaluator struct {
	prog      []instr
	size      int
	primary   ad.ID
	secondary []ad.ID
	numInputs int
}

// Compile turns an extracted graph into an Evaluator. The program is laid
// out in the graph's topological order, so the forward pass is a single
// sweep and the backward pass the same sweep reversed.
func Compile(x *ad.Extracted) *Evaluator {
	order := x.Order()
	prog := make([]instr, len(order))
	for i, id := range order {
		n := x.Node(id)
		prog[i] = instr{
			kind:  n.Kind,
			op:    n.Op,
			dst:   id,
			args:  n.Args,
			value: n.Value,
			index: n.Index,
			info:  n.Info,
		}
	}
	return &Evaluator{
		prog:      prog,
		size:      x.Len(),
		primary:   x.Primary(),
		secondary: x.Secondary(),
		numInputs: x.NumInputs(),
	}
}

// Len returns the number of instructions in the program.
func (e *Evaluator) Len() int { return len(e.prog) }

// NumInputs returns the length of the gradient for an empty input vector.
func (e *Evaluator) NumInputs() int { return e.numInputs }

// Eval runs the forward and backward passes at the given input vector.
// inputs[i] is the value of the input with index i; inputs missing from the
// vector fall back to their sample value. The gradient has
// max(len(inputs), NumInputs()) entries.
func (e *Evaluator) Eval(inputs []float64) Result {
	vals := make([]float64, e.size)
	e.forward(vals, inputs)

	grad := make([]float64, max(len(inputs), e.numInputs))
	e.backward(vals, grad)

	sec := make([]float64, len(e.secondary))
	for i, s := range e.secondary {
		sec[i] = vals[s]
	}
	return Result{Primary: vals[e.primary], Gradient: grad, Secondary: sec}
}

// Values runs only the forward pass and returns every node's value indexed
// by local ID.
func (e *Evaluator) Values(inputs []float64) []float64 {
	vals := make([]float64, e.size)
	e.forward(vals, inputs)
	return vals
}

func (e *Evaluator) forward(vals, inputs []float64) {
	var buf []float64
	for i := range e.prog {
		in := &e.prog[i]
		var v float64
		switch in.kind {
		case ad.KindConst:
			v = in.value
		case ad.KindInput:
			v = in.value
			if in.index < len(inputs) {
				v = inputs[in.index]
			}
		case ad.KindUnary:
			v = ad.EvalUnary(in.op, vals[in.args[0]])
		case ad.KindBinary:
			v = ad.EvalBinary(in.op, vals[in.args[0]], vals[in.args[1]])
		case ad.KindTernary:
			v = ad.EvalTernary(vals[in.args[0]], vals[in.args[1]], vals[in.args[2]])
		case ad.KindNary:
			buf = gather(buf, vals, in.args)
			v = ad.EvalNary(in.op, buf)
		case ad.KindDebug:
			v = vals[in.args[0]]
		}
		vals[in.dst] = v
	}
}

// backward accumulates adjoints in reverse topological order. A node's
// adjoint is final once every consumer has been visited, which the reverse
// order guarantees; shared nodes receive the sum over all their consumers.
func (e *Evaluator) backward(vals, grad []float64) {
	adj := make([]float64, e.size)
	adj[e.primary] = 1

	var buf []float64
	for i := len(e.prog) - 1; i >= 0; i-- {
		in := &e.prog[i]
		g := adj[in.dst]
		if g == 0 {
			continue
		}
		switch in.kind {
		case ad.KindInput:
			grad[in.index] += g
		case ad.KindUnary:
			a := in.args[0]
			accumulate(adj, a, g, unaryPartial(in.op, vals[a], vals[in.dst]))
		case ad.KindBinary:
			a, b := in.args[0], in.args[1]
			da, db := binaryPartials(in.op, vals[a], vals[b], vals[in.dst])
			accumulate(adj, a, g, da)
			accumulate(adj, b, g, db)
		case ad.KindTernary:
			if ad.Truthy(vals[in.args[0]]) {
				adj[in.args[1]] += g
			} else {
				adj[in.args[2]] += g
			}
		case ad.KindNary:
			switch in.op {
			case ad.OpAddN:
				for _, a := range in.args {
					adj[a] += g
				}
			case ad.OpMaxN:
				buf = gather(buf, vals, in.args)
				if k := ad.ArgMax(buf); k >= 0 {
					adj[in.args[k]] += g
				}
			case ad.OpMinN:
				buf = gather(buf, vals, in.args)
				if k := ad.ArgMin(buf); k >= 0 {
					adj[in.args[k]] += g
				}
			}
		case ad.KindDebug:
			adj[in.args[0]] += g
		}
	}
}

// accumulate adds g*d to the adjoint of id. A zero local partial contributes
// nothing, so an infinite adjoint never turns into NaN through 0*Inf on a
// branch that was not taken.
func accumulate(adj []float64, id ad.ID, g, d float64) {
	if d != 0 {
		adj[id] += g * d
	}
}

func gather(buf, vals []float64, args []ad.ID) []float64 {
	buf = buf[:0]
	for _, a := range args {
		buf = append(buf, vals[a])
	}
	return buf
}

// Program returns a human-readable listing of the compiled program, one
// instruction per line in execution order.
func (e *Evaluator) Program() string {
	var sb strings.Builder
	for _, in := range e.prog {
		fmt.Fprintf(&sb, "t%d = %s", in.dst, mnemonic(in))
		for j, a := range in.args {
			if j == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "t%d", a)
		}
		switch in.dst {
		case e.primary:
			sb.WriteString("  ; primary")
		default:
			for k, s := range e.secondary {
				if s == in.dst {
					fmt.Fprintf(&sb, "  ; secondary[%d]", k)
					break
				}
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func mnemonic(in instr) string {
	switch in.kind {
	case ad.KindConst:
		return fmt.Sprintf("const %v", in.value)
	case ad.KindInput:
		return fmt.Sprintf("input %d (%v)", in.index, in.value)
	case ad.KindTernary:
		return "select"
	case ad.KindDebug:
		return fmt.Sprintf("debug %q", in.info)
	default:
		return in.op.String()
	}
}
