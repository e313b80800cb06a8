package io

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"

	"github.com/matzehuels/adjoint/pkg/ad"
	"github.com/matzehuels/adjoint/pkg/errors"
)

// ReadJSON decodes an interchange document from r into an extracted graph.
//
// The input must be a JSON object of the form:
//
//	{
//	  "primary": "_0",
//	  "secondary": ["_1"],
//	  "nodes": {"_0": {"tag": "Binary", "binop": "*"}, "_1": {"tag": "Input", "index": 0, "val": 3}},
//	  "edges": [{"from": "_1", "to": "_0", "role": "left"}, {"from": "_1", "to": "_0", "role": "right"}]
//	}
//
// Node IDs are ordered by their numeric "_N" suffix (other IDs sort after,
// lexically) and renumbered densely in that order. Operands are attached
// from the edges by role. Legacy operator names ("log", "===", "&&", "||")
// are accepted.
//
// ReadJSON returns an error with code [errors.ErrCodeInvalidGraph] if:
//   - The JSON is malformed or a node literal cannot be decoded
//   - A tag or operator name is unknown
//   - An edge or output references an undefined node
//   - An operand role is invalid for its parent, duplicated or missing
//   - Two inputs share an index, or the edges form a cycle
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*ad.Extracted, error) {
	var doc document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "decode")
	}
	return decode(doc)
}

// Unmarshal decodes an interchange document held in memory.
func Unmarshal(data []byte) (*ad.Extracted, error) {
	return ReadJSON(bytes.NewReader(data))
}

// ImportJSON reads an interchange document from the file at path.
//
// A missing file is reported with [errors.ErrCodeFileNotFound]; everything
// else fails as in [ReadJSON].
func ImportJSON(path string) (*ad.Extracted, error) {
	f, err := os.Open(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	x, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return x, nil
}

// pending is a node whose operand slots are still being filled from edges.
type pending struct {
	node   ad.Node
	filled []bool
	nary   map[int]ad.ID
}

func decode(doc document) (*ad.Extracted, error) {
	if doc.Nodes == nil {
		return nil, errors.New(errors.ErrCodeInvalidGraph, "missing nodes")
	}

	names := make([]string, 0, len(doc.Nodes))
	for name := range doc.Nodes {
		if err := errors.ValidateNodeID(name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	slices.SortFunc(names, compareNames)

	ids := make(map[string]ad.ID, len(names))
	for i, name := range names {
		ids[name] = ad.ID(i)
	}
	lookup := func(what, name string) (ad.ID, error) {
		id, ok := ids[name]
		if !ok {
			return 0, errors.New(errors.ErrCodeInvalidGraph, "%s references undefined node %q", what, name)
		}
		return id, nil
	}

	nodes := make([]pending, len(names))
	for i, name := range names {
		n, err := decodeNode(doc.Nodes[name])
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "node %s", name)
		}
		p := pending{node: n}
		if arity := ad.Arity(n.Kind); arity > 0 {
			p.node.Args = make([]ad.ID, arity)
			p.filled = make([]bool, arity)
		} else if arity < 0 {
			p.nary = make(map[int]ad.ID)
		}
		nodes[i] = p
	}

	for _, e := range doc.Edges {
		from, err := lookup("edge", e.From)
		if err != nil {
			return nil, err
		}
		to, err := lookup("edge", e.To)
		if err != nil {
			return nil, err
		}
		p := &nodes[to]
		slot, ok := ad.ArgIndex(p.node.Kind, ad.Role(e.Role))
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidGraph,
				"edge %s->%s: role %q is not valid for a %s node", e.From, e.To, e.Role, p.node.Kind)
		}
		if p.nary != nil {
			if _, dup := p.nary[slot]; dup {
				return nil, errors.New(errors.ErrCodeInvalidGraph, "node %s: duplicate role %q", e.To, e.Role)
			}
			p.nary[slot] = from
			continue
		}
		if p.filled[slot] {
			return nil, errors.New(errors.ErrCodeInvalidGraph, "node %s: duplicate role %q", e.To, e.Role)
		}
		p.node.Args[slot] = from
		p.filled[slot] = true
	}

	out := make([]ad.Node, len(nodes))
	for i, p := range nodes {
		for slot, ok := range p.filled {
			if !ok {
				return nil, errors.New(errors.ErrCodeInvalidGraph,
					"node %s: missing operand %q", names[i], ad.RoleOf(p.node.Kind, slot))
			}
		}
		if p.nary != nil {
			p.node.Args = make([]ad.ID, len(p.nary))
			for slot, id := range p.nary {
				if slot >= len(p.nary) {
					return nil, errors.New(errors.ErrCodeInvalidGraph,
						"node %s: operand roles must be 0..%d", names[i], len(p.nary)-1)
				}
				p.node.Args[slot] = id
			}
		}
		out[i] = p.node
	}

	primary, err := lookup("primary", doc.Primary)
	if err != nil {
		return nil, err
	}
	secondary := make([]ad.ID, 0, len(doc.Secondary))
	for _, s := range doc.Secondary {
		id, err := lookup("secondary", s)
		if err != nil {
			return nil, err
		}
		secondary = append(secondary, id)
	}

	x, err := ad.Freeze(out, primary, secondary)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "invalid graph")
	}
	return x, nil
}

func decodeNode(raw json.RawMessage) (ad.Node, error) {
	if !isObject(raw) {
		var v Number
		if err := json.Unmarshal(raw, &v); err != nil {
			return ad.Node{}, fmt.Errorf("constant: %w", err)
		}
		return ad.Node{Kind: ad.KindConst, Value: float64(v)}, nil
	}

	var lit literal
	if err := json.Unmarshal(raw, &lit); err != nil {
		return ad.Node{}, err
	}
	switch lit.Tag {
	case tagInput:
		if lit.Index == nil || lit.Val == nil {
			return ad.Node{}, fmt.Errorf("input needs index and val")
		}
		if *lit.Index < 0 {
			return ad.Node{}, fmt.Errorf("negative input index %d", *lit.Index)
		}
		return ad.Node{Kind: ad.KindInput, Index: *lit.Index, Value: float64(*lit.Val)}, nil
	case tagUnary:
		return withOp(ad.KindUnary, lit.Unop)
	case tagBinary:
		return withOp(ad.KindBinary, lit.Binop)
	case tagNary:
		return withOp(ad.KindNary, lit.Op)
	case tagTernary:
		return ad.Node{Kind: ad.KindTernary}, nil
	case tagDebug:
		var info string
		if lit.Info != nil {
			info = *lit.Info
		}
		return ad.Node{Kind: ad.KindDebug, Info: info}, nil
	}
	return ad.Node{}, fmt.Errorf("unknown tag %q", lit.Tag)
}

func withOp(kind ad.Kind, name string) (ad.Node, error) {
	op, err := ad.ParseOp(kind, name)
	if err != nil {
		return ad.Node{}, err
	}
	return ad.Node{Kind: kind, Op: op}, nil
}
