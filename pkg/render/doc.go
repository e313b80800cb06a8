// Package render turns extracted expression graphs into diagrams.
//
// # Formats
//
//   - dot: Graphviz source, see [nodelink.ToDOT]
//   - svg: rendered in-process by Graphviz
//   - pdf, png: converted from SVG by the external rsvg-convert tool
//
// The [ToPDF] and [ToPNG] functions convert any SVG:
//
//	dot := nodelink.ToDOT(x, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//	png, err := render.ToPNG(ctx, svg, 2.0)  // 2x scale
//
// [nodelink.ToDOT]: github.com/matzehuels/adjoint/pkg/render/nodelink.ToDOT
package render

import (
	"fmt"
	"slices"
	"strings"
)

// Output formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPDF = "pdf"
	FormatPNG = "png"
)

// Formats lists every supported output format.
var Formats = []string{FormatDOT, FormatSVG, FormatPDF, FormatPNG}

// ParseFormat normalizes a format name. It accepts any case.
func ParseFormat(s string) (string, error) {
	f := strings.ToLower(strings.TrimSpace(s))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown format %q (must be one of: %s)", s, strings.Join(Formats, ", "))
	}
	return f, nil
}
