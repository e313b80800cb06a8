// Package pipeline provides the load → compile → evaluate → render pipeline
// shared by the CLI and the HTTP server.
//
// By centralizing this logic, both entry points hash, cache and log graphs
// the same way.
//
// # Architecture
//
// The pipeline consists of four stages:
//
//  1. Load: Read an interchange file and compute its content hash
//  2. Compile: Turn the extracted graph into a reverse-mode evaluator
//     (memoized per hash)
//  3. Eval: Run the evaluator on an input vector (cached per hash and inputs)
//  4. Render: Draw the graph as DOT, SVG, PDF or PNG (cached per hash and options)
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	g, err := runner.Load(ctx, "graph.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := runner.Eval(ctx, g, []float64{1, 2})
//	svg, err := runner.Render(ctx, g, pipeline.RenderOptions{Format: "svg"})
package pipeline

import (
	"math"

	"github.com/matzehuels/adjoint/pkg/ad"
	"github.com/matzehuels/adjoint/pkg/cache"
	"github.com/matzehuels/adjoint/pkg/errors"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultFormat is the default render format.
	DefaultFormat = render.FormatSVG

	// DefaultScale is the PNG scale factor.
	DefaultScale = 2.0

	// DefaultWorkers bounds concurrent evaluations in EvalBatch.
	DefaultWorkers = 8
)

// Graph is a loaded extracted graph with its content hash.
type Graph struct {
	X *ad.Extracted

	// Hash is the SHA-256 of the canonical interchange encoding. Two files
	// that describe the same graph share a hash.
	Hash string

	// Path is the file the graph was read from, if any.
	Path string
}

// NewGraph wraps an in-memory extracted graph.
func NewGraph(x *ad.Extracted) (*Graph, error) {
	data, err := pkgio.Marshal(x)
	if err != nil {
		return nil, err
	}
	return &Graph{X: x, Hash: cache.Hash(data)}, nil
}

// RenderOptions configures Render.
type RenderOptions struct {
	Format   string    `json:"format,omitempty"`
	Detailed bool      `json:"detailed,omitempty"`
	Inputs   []float64 `json:"-"` // forward values shown in detailed renders
	Scale    float64   `json:"scale,omitempty"`
}

// SetDefaults fills zero fields, normalizes the format name and rejects a
// negative or non-finite scale.
func (o *RenderOptions) SetDefaults() error {
	if o.Format == "" {
		o.Format = DefaultFormat
	}
	f, err := render.ParseFormat(o.Format)
	if err != nil {
		return err
	}
	o.Format = f
	switch {
	case o.Scale == 0:
		o.Scale = DefaultScale
	case o.Scale < 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0):
		return errors.New(errors.ErrCodeInvalidInput, "scale must be a positive finite number, got %v", o.Scale)
	}
	return nil
}

// KeyOpts returns cache key options for this render.
func (o RenderOptions) KeyOpts() cache.RenderKeyOpts {
	k := cache.RenderKeyOpts{
		Format:   o.Format,
		Detailed: o.Detailed,
		Inputs:   o.Inputs,
	}
	if o.Format == render.FormatPNG {
		k.Scale = o.Scale
	}
	return k
}
