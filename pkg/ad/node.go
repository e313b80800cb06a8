package ad

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// ID addresses a node in a [Graph] arena or, after extraction, a node local to
// an [Extracted] graph. IDs are dense and start at 0.
type ID int

// Kind is the variant tag of a [Node].
type Kind uint8

const (
	KindConst Kind = iota
	KindInput
	KindUnary
	KindBinary
	KindTernary
	KindNary
	KindDebug
)

var kindNames = [...]string{
	KindConst:   "Const",
	KindInput:   "Input",
	KindUnary:   "Unary",
	KindBinary:  "Binary",
	KindTernary: "Ternary",
	KindNary:    "Nary",
	KindDebug:   "Debug",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Op identifies the operator of a Unary, Binary or Nary node. Const, Input,
// Ternary and Debug nodes carry OpNone.
type Op uint8

const (
	OpNone Op = iota

	// Unary operators.
	OpNeg
	OpSquared
	OpSqrt
	OpInverse
	OpAbs
	OpAcos
	OpAcosh
	OpAsin
	OpAsinh
	OpAtan
	OpAtanh
	OpCbrt
	OpCeil
	OpCos
	OpCosh
	OpExp
	OpExpm1
	OpFloor
	OpLn
	OpLog2
	OpLog10
	OpLog1p
	OpRound
	OpSign
	OpSin
	OpSinh
	OpTan
	OpTanh
	OpTrunc

	// Binary operators.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMax
	OpMin
	OpAtan2
	OpPow
	OpGt
	OpLt
	OpEq
	OpAnd
	OpOr

	// N-ary operators.
	OpAddN
	OpMaxN
	OpMinN

	opCount
)

var opNames = [opCount]string{
	OpNone:    "",
	OpNeg:     "neg",
	OpSquared: "squared",
	OpSqrt:    "sqrt",
	OpInverse: "inverse",
	OpAbs:     "abs",
	OpAcos:    "acos",
	OpAcosh:   "acosh",
	OpAsin:    "asin",
	OpAsinh:   "asinh",
	OpAtan:    "atan",
	OpAtanh:   "atanh",
	OpCbrt:    "cbrt",
	OpCeil:    "ceil",
	OpCos:     "cos",
	OpCosh:    "cosh",
	OpExp:     "exp",
	OpExpm1:   "expm1",
	OpFloor:   "floor",
	OpLn:      "ln",
	OpLog2:    "log2",
	OpLog10:   "log10",
	OpLog1p:   "log1p",
	OpRound:   "round",
	OpSign:    "sign",
	OpSin:     "sin",
	OpSinh:    "sinh",
	OpTan:     "tan",
	OpTanh:    "tanh",
	OpTrunc:   "trunc",
	OpAdd:     "+",
	OpSub:     "-",
	OpMul:     "*",
	OpDiv:     "/",
	OpMax:     "max",
	OpMin:     "min",
	OpAtan2:   "atan2",
	OpPow:     "pow",
	OpGt:      ">",
	OpLt:      "<",
	OpEq:      "==",
	OpAnd:     "and",
	OpOr:      "or",
	OpAddN:    "addN",
	OpMaxN:    "maxN",
	OpMinN:    "minN",
}

// opAliases maps names used by older graph dumps onto current operators.
var opAliases = map[string]Op{
	"log": OpLn,
	"===": OpEq,
	"&&":  OpAnd,
	"||":  OpOr,
}

func (o Op) String() string {
	if o < opCount {
		return opNames[o]
	}
	return "Op(" + strconv.Itoa(int(o)) + ")"
}

// Kind returns the node kind an operator belongs to, or KindConst for OpNone.
func (o Op) Kind() Kind {
	switch {
	case o >= OpNeg && o <= OpTrunc:
		return KindUnary
	case o >= OpAdd && o <= OpOr:
		return KindBinary
	case o >= OpAddN && o <= OpMinN:
		return KindNary
	default:
		return KindConst
	}
}

// Smooth reports whether the operator is differentiable almost everywhere
// with a non-trivial derivative. Comparisons, logical operators and the
// rounding family are piecewise constant; min/max/abs are piecewise smooth
// and reported as not smooth.
func (o Op) Smooth() bool {
	switch o {
	case OpAbs, OpCeil, OpFloor, OpRound, OpSign, OpTrunc,
		OpMax, OpMin, OpGt, OpLt, OpEq, OpAnd, OpOr, OpMaxN, OpMinN:
		return false
	}
	return o != OpNone
}

// ParseOp resolves an operator name for the given kind. Legacy aliases
// ("log", "===", "&&", "||") are accepted.
func ParseOp(kind Kind, name string) (Op, error) {
	for o := OpNeg; o < opCount; o++ {
		if opNames[o] == name && o.Kind() == kind {
			return o, nil
		}
	}
	if o, ok := opAliases[name]; ok && o.Kind() == kind {
		return o, nil
	}
	return OpNone, fmt.Errorf("unknown %s operator %q", kind, name)
}

// Node is one scalar operation or terminal value. Args hold operand IDs in
// role order: [left right] for binary, [cond then els] for ternary and the
// list order for n-ary nodes.
type Node struct {
	Kind  Kind
	Op    Op
	Value float64 // Const value or Input sample value
	Index int     // Input index
	Info  string  // Debug label
	Args  []ID
}

// IsConst reports whether the node is a constant.
func (n Node) IsConst() bool { return n.Kind == KindConst }

// IsInput reports whether the node is an input.
func (n Node) IsInput() bool { return n.Kind == KindInput }

// Label returns a short description of the node for listings and diagrams.
func (n Node) Label() string {
	switch n.Kind {
	case KindConst:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case KindInput:
		return "x[" + strconv.Itoa(n.Index) + "]"
	case KindTernary:
		return "?:"
	case KindDebug:
		return "debug(" + strconv.Quote(shortLabel(n.Info)) + ")"
	default:
		return n.Op.String()
	}
}

// maxLabelRunes bounds how much of a debug label Label shows.
const maxLabelRunes = 40

func shortLabel(s string) string {
	if utf8.RuneCountInString(s) <= maxLabelRunes {
		return s
	}
	r := []rune(s)
	return string(r[:maxLabelRunes-1]) + "…"
}

// Arity returns the number of operands a node of kind k must have, or -1
// when any count is allowed (n-ary).
func Arity(k Kind) int {
	switch k {
	case KindConst, KindInput:
		return 0
	case KindUnary, KindDebug:
		return 1
	case KindBinary:
		return 2
	case KindTernary:
		return 3
	default:
		return -1
	}
}

// Role names the operand slot a child fills in its parent.
type Role string

const (
	RoleNone  Role = ""
	RoleLeft  Role = "left"
	RoleRight Role = "right"
	RoleCond  Role = "cond"
	RoleThen  Role = "then"
	RoleEls   Role = "els"
)

var (
	binaryRoles  = [2]Role{RoleLeft, RoleRight}
	ternaryRoles = [3]Role{RoleCond, RoleThen, RoleEls}
)

// RoleOf returns the role of operand i of a node of kind k.
func RoleOf(k Kind, i int) Role {
	switch k {
	case KindBinary:
		return binaryRoles[i]
	case KindTernary:
		return ternaryRoles[i]
	case KindNary:
		return Role(strconv.Itoa(i))
	default:
		return RoleNone
	}
}

// ArgIndex is the inverse of RoleOf. It reports false when the role is not
// valid for the kind.
func ArgIndex(k Kind, r Role) (int, bool) {
	switch k {
	case KindUnary, KindDebug:
		return 0, r == RoleNone
	case KindBinary:
		for i, br := range binaryRoles {
			if br == r {
				return i, true
			}
		}
	case KindTernary:
		for i, tr := range ternaryRoles {
			if tr == r {
				return i, true
			}
		}
	case KindNary:
		i, err := strconv.Atoi(string(r))
		if err != nil || i < 0 || strconv.Itoa(i) != string(r) {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// Edge connects an operand (From) to the node that consumes it (To).
type Edge struct {
	From ID
	To   ID
	Role Role
}
