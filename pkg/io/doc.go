// Package io provides JSON import and export for extracted expression graphs.
//
// # Overview
//
// The interchange format lets graphs leave the process: fixtures for other
// engines, inputs to the adjoint CLI and the payload behind the HTTP server.
// Export followed by import reproduces the graph exactly, and re-exporting
// the imported graph yields identical bytes.
//
// # JSON Format
//
//	{
//	  "primary": "_0",
//	  "secondary": ["_2"],
//	  "nodes": {
//	    "_0": {"tag": "Binary", "binop": "*"},
//	    "_1": {"tag": "Input", "index": 0, "val": 3},
//	    "_2": {"tag": "Unary", "unop": "sin"},
//	    "_3": 2.5
//	  },
//	  "edges": [
//	    {"from": "_1", "to": "_0", "role": "left"},
//	    {"from": "_3", "to": "_0", "role": "right"},
//	    {"from": "_1", "to": "_2"}
//	  ]
//	}
//
// "secondary" is omitted when there are no secondary outputs.
//
// # Node Literals
//
//   - Constant: a bare JSON number, or "NaN", "Infinity", "-Infinity"
//   - Input: {"tag":"Input","index":i,"val":v}
//   - Unary: {"tag":"Unary","unop":name}
//   - Binary: {"tag":"Binary","binop":name}
//   - Ternary: {"tag":"Ternary"}
//   - Nary: {"tag":"Nary","op":"addN"|"maxN"|"minN"}
//   - Debug: {"tag":"Debug","info":label}
//
// # Edges
//
// An edge points from an operand to the node that consumes it. "role" names
// the operand slot: "left"/"right" for binary nodes, "cond"/"then"/"els" for
// the ternary and "0", "1", ... for n-ary nodes. Unary and debug edges carry
// no role.
//
// # Import
//
// Use [ImportJSON] to read a graph from a file path, [ReadJSON] to read from
// any io.Reader or [Unmarshal] for bytes in memory:
//
//	x, err := io.ImportJSON("graph.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Malformed documents are reported as [errors.Error] values with code
// INVALID_GRAPH naming the offending node or edge.
//
// # Export
//
// Use [ExportJSON] to write a graph to a file, [WriteJSON] to write to any
// io.Writer or [Marshal] to get the bytes.
//
// # Concurrency
//
// All functions are safe for concurrent use; extracted graphs are immutable.
//
// [errors.Error]: github.com/matzehuels/adjoint/pkg/errors.Error
package io
