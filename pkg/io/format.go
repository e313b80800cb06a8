package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Literal tags.
const (
	tagInput   = "Input"
	tagUnary   = "Unary"
	tagBinary  = "Binary"
	tagTernary = "Ternary"
	tagNary    = "Nary"
	tagDebug   = "Debug"
)

// Non-finite numbers are written as these strings; JSON has no literal for
// them.
const (
	nanString    = "NaN"
	posInfString = "Infinity"
	negInfString = "-Infinity"
)

type document struct {
	Primary   string                     `json:"primary"`
	Secondary []string                   `json:"secondary,omitempty"`
	Nodes     map[string]json.RawMessage `json:"nodes"`
	Edges     []edge                     `json:"edges"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Role string `json:"role,omitempty"`
}

// literal is the object form of a non-constant node.
type literal struct {
	Tag   string  `json:"tag"`
	Index *int    `json:"index,omitempty"`
	Val   *Number `json:"val,omitempty"`
	Unop  string  `json:"unop,omitempty"`
	Binop string  `json:"binop,omitempty"`
	Op    string  `json:"op,omitempty"`
	Info  *string `json:"info,omitempty"`
}

// Number is a float64 that survives JSON with NaN and infinities intact.
// Non-finite values are encoded as the strings "NaN", "Infinity" and
// "-Infinity".
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"` + nanString + `"`), nil
	case math.IsInf(f, 1):
		return []byte(`"` + posInfString + `"`), nil
	case math.IsInf(f, -1):
		return []byte(`"` + negInfString + `"`), nil
	}
	return json.Marshal(f)
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch s {
		case nanString:
			*n = Number(math.NaN())
		case posInfString:
			*n = Number(math.Inf(1))
		case negInfString:
			*n = Number(math.Inf(-1))
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// isObject reports whether raw holds a JSON object rather than a bare
// constant.
func isObject(raw json.RawMessage) bool {
	t := bytes.TrimLeft(raw, " \t\r\n")
	return len(t) > 0 && t[0] == '{'
}

// NodeName returns the interchange ID of local node i.
func NodeName(i int) string { return "_" + strconv.Itoa(i) }

// nameIndex parses an "_N" identifier. It reports false for any other form.
func nameIndex(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "_")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || strconv.Itoa(n) != digits {
		return 0, false
	}
	return n, true
}

// compareNames orders "_N" identifiers numerically, ahead of any other
// identifiers, which are ordered lexically.
func compareNames(a, b string) int {
	ia, oka := nameIndex(a)
	ib, okb := nameIndex(b)
	switch {
	case oka && okb:
		return ia - ib
	case oka:
		return -1
	case okb:
		return 1
	}
	return strings.Compare(a, b)
}
