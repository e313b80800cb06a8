package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/adjoint/pkg/ad"
	pkgio "github.com/matzehuels/adjoint/pkg/io"
	"github.com/matzehuels/adjoint/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the interchange ID and, when Values is set, the forward
	// value to every node label.
	Detailed bool

	// Values holds one forward value per node, indexed by local ID, as
	// returned by codegen.Evaluator.Values. Ignored unless Detailed is set.
	Values []float64
}

// ToDOT converts an extracted graph to Graphviz DOT for node-link
// visualization. Edges point from an operand to its consumer and carry the
// operand's role. The primary output is drawn bold, secondary outputs
// dashed.
func ToDOT(x *ad.Extracted, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=BT;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.15,0.05\"];\n")
	buf.WriteString("  edge [fontsize=10, fontcolor=grey40];\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	secondary := x.Secondary()
	for i, n := range x.Nodes() {
		id := ad.ID(i)
		label := fmtLabel(id, n, opts)
		attrs := fmtAttrs(n, label, id == x.Primary(), slices.Contains(secondary, id))
		fmt.Fprintf(&buf, "  %q [%s];\n", pkgio.NodeName(i), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range x.Edges() {
		from, to := pkgio.NodeName(int(e.From)), pkgio.NodeName(int(e.To))
		if e.Role == ad.RoleNone {
			fmt.Fprintf(&buf, "  %q -> %q;\n", from, to)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", from, to, string(e.Role))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(id ad.ID, n ad.Node, opts Options) string {
	if !opts.Detailed {
		return n.Label()
	}
	parts := []string{n.Label(), pkgio.NodeName(int(id))}
	if int(id) < len(opts.Values) {
		parts = append(parts, "= "+strconv.FormatFloat(opts.Values[id], 'g', 6, 64))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(n ad.Node, label string, primary, secondary bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Kind {
	case ad.KindInput:
		attrs = append(attrs, "shape=ellipse", "fillcolor=lightblue")
	case ad.KindConst:
		attrs = append(attrs, "shape=plaintext", "fillcolor=transparent")
	case ad.KindDebug:
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	switch {
	case primary:
		attrs = append(attrs, "penwidth=3")
	case secondary:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root tag so the diagram scales from the
// origin regardless of Graphviz's padding offsets.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion. A scale of 2.0
// produces a 2x resolution image.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
