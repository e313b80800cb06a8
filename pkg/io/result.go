package io

import (
	"encoding/json"

	"github.com/matzehuels/adjoint/pkg/codegen"
	"github.com/matzehuels/adjoint/pkg/errors"
)

// result is the wire form of codegen.Result. Non-finite values use the same
// string spellings as graph constants.
type result struct {
	Primary   Number   `json:"primary"`
	Gradient  []Number `json:"gradient"`
	Secondary []Number `json:"secondary"`
}

// EncodeResult serializes an evaluation result. Unlike encoding/json on
// codegen.Result directly, it accepts NaN and infinities.
func EncodeResult(r codegen.Result) ([]byte, error) {
	w := result{
		Primary:   Number(r.Primary),
		Gradient:  toNumbers(r.Gradient),
		Secondary: toNumbers(r.Secondary),
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode result")
	}
	return data, nil
}

// DecodeResult parses data written by EncodeResult.
func DecodeResult(data []byte) (codegen.Result, error) {
	var w result
	if err := json.Unmarshal(data, &w); err != nil {
		return codegen.Result{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode result")
	}
	return codegen.Result{
		Primary:   float64(w.Primary),
		Gradient:  fromNumbers(w.Gradient),
		Secondary: fromNumbers(w.Secondary),
	}, nil
}

func toNumbers(vs []float64) []Number {
	out := make([]Number, len(vs))
	for i, v := range vs {
		out[i] = Number(v)
	}
	return out
}

func fromNumbers(ns []Number) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = float64(n)
	}
	return out
}
