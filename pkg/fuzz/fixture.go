package fuzz

import (
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/adjoint/pkg/ad"
	"github.com/matzehuels/adjoint/pkg/codegen"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
)

// Fixture file names inside a fixture directory.
const (
	GraphFile   = "graph.json"
	OutputsFile = "outputs.json"
)

// Outputs mirrors outputs.json. Secondary holds the value of every node of
// the graph keyed by its interchange ID, not only the secondary outputs, so
// a consumer can locate the first node where two engines disagree.
type Outputs struct {
	Gradient  []pkgio.Number          `json:"gradient"`
	Primary   pkgio.Number            `json:"primary"`
	Secondary map[string]pkgio.Number `json:"secondary"`
}

// Record evaluates ev at inputs and packages the results as Outputs.
// ev must have been compiled from x.
func Record(x *ad.Extracted, ev *codegen.Evaluator, inputs []float64) Outputs {
	res := ev.Eval(inputs)
	vals := ev.Values(inputs)

	out := Outputs{
		Gradient:  make([]pkgio.Number, len(res.Gradient)),
		Primary:   pkgio.Number(res.Primary),
		Secondary: make(map[string]pkgio.Number, x.Len()),
	}
	for i, d := range res.Gradient {
		out.Gradient[i] = pkgio.Number(d)
	}
	for i, v := range vals {
		out.Secondary[pkgio.NodeName(i)] = pkgio.Number(v)
	}
	return out
}

// WriteFixture writes x and its outputs into dir, creating it if needed.
func WriteFixture(dir string, x *ad.Extracted, outputs Outputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := pkgio.ExportJSON(x, filepath.Join(dir, GraphFile)); err != nil {
		return err
	}

	data, err := json.MarshalIndent(outputs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	path := filepath.Join(dir, OutputsFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadOutputs loads an outputs.json file.
func ReadOutputs(path string) (Outputs, error) {
	var out Outputs
	data, err := os.ReadFile(path)
	if err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// Compare reports the first mismatch between two recordings, or nil. Values
// match when they are equal, both NaN, or within tol relative to their
// magnitude.
func Compare(want, got Outputs, tol float64) error {
	if !near(float64(want.Primary), float64(got.Primary), tol) {
		return fmt.Errorf("primary: want %v, got %v", want.Primary, got.Primary)
	}
	if len(want.Gradient) != len(got.Gradient) {
		return fmt.Errorf("gradient length: want %d, got %d", len(want.Gradient), len(got.Gradient))
	}
	for i := range want.Gradient {
		if !near(float64(want.Gradient[i]), float64(got.Gradient[i]), tol) {
			return fmt.Errorf("gradient[%d]: want %v, got %v", i, want.Gradient[i], got.Gradient[i])
		}
	}
	for _, id := range slices.Sorted(maps.Keys(want.Secondary)) {
		w := want.Secondary[id]
		g, ok := got.Secondary[id]
		if !ok {
			return fmt.Errorf("node %s: missing", id)
		}
		if !near(float64(w), float64(g), tol) {
			return fmt.Errorf("node %s: want %v, got %v", id, w, g)
		}
	}
	return nil
}

func near(a, b, tol float64) bool {
	if a == b || (math.IsNaN(a) && math.IsNaN(b)) {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
