// Package nodelink renders expression graphs as node-link diagrams.
//
// # Overview
//
// Every node becomes a box labeled with its operator; inputs are ellipses
// and constants plain text. Edges run from an operand up to the node that
// consumes it and are labeled with the operand's role (left, right, cond,
// then, els or the n-ary position). The primary output is drawn bold and
// secondary outputs dashed.
//
// # Usage
//
// Convert an extracted graph to DOT, then render to SVG:
//
//	dot := nodelink.ToDOT(x, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// With Detailed set, labels also show the interchange ID and, given the
// forward values of an evaluation, each node's value:
//
//	ev := codegen.Compile(x)
//	dot := nodelink.ToDOT(x, nodelink.Options{Detailed: true, Values: ev.Values(inputs)})
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
