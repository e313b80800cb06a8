package io

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/matzehuels/adjoint/pkg/ad"
)

type outDocument struct {
	Primary   string       `json:"primary"`
	Secondary []string     `json:"secondary,omitempty"`
	Nodes     orderedNodes `json:"nodes"`
	Edges     []edge       `json:"edges"`
}

// orderedNodes encodes as a JSON object keyed "_0", "_1", ... in index
// order. A plain map would sort "_10" before "_2".
type orderedNodes []json.RawMessage

func (o orderedNodes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, raw := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(NodeName(i)))
		buf.WriteByte(':')
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func encodeNode(n ad.Node) (json.RawMessage, error) {
	if n.Kind == ad.KindConst {
		return Number(n.Value).MarshalJSON()
	}
	lit := literal{}
	switch n.Kind {
	case ad.KindInput:
		idx, val := n.Index, Number(n.Value)
		lit.Tag, lit.Index, lit.Val = tagInput, &idx, &val
	case ad.KindUnary:
		lit.Tag, lit.Unop = tagUnary, n.Op.String()
	case ad.KindBinary:
		lit.Tag, lit.Binop = tagBinary, n.Op.String()
	case ad.KindTernary:
		lit.Tag = tagTernary
	case ad.KindNary:
		lit.Tag, lit.Op = tagNary, n.Op.String()
	case ad.KindDebug:
		info := n.Info
		lit.Tag, lit.Info = tagDebug, &info
	default:
		return nil, fmt.Errorf("node kind %s", n.Kind)
	}
	return marshalPlain(lit)
}

// marshalPlain encodes v without HTML escaping, so operators such as "<"
// stay readable.
func marshalPlain(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// WriteJSON encodes an extracted graph as an interchange document and writes
// it to w. Node IDs are "_<local index>" and appear in index order; edges
// are listed per consuming node in role order. The output can be read back
// with [ReadJSON] and re-encodes to identical bytes.
func WriteJSON(x *ad.Extracted, w io.Writer) error {
	out := outDocument{
		Primary: NodeName(int(x.Primary())),
		Nodes:   make(orderedNodes, x.Len()),
		Edges:   make([]edge, 0, x.Len()),
	}
	for _, s := range x.Secondary() {
		out.Secondary = append(out.Secondary, NodeName(int(s)))
	}
	for i := range x.Len() {
		raw, err := encodeNode(x.Node(ad.ID(i)))
		if err != nil {
			return fmt.Errorf("encode node %s: %w", NodeName(i), err)
		}
		out.Nodes[i] = raw
	}
	for _, e := range x.Edges() {
		out.Edges = append(out.Edges, edge{
			From: NodeName(int(e.From)),
			To:   NodeName(int(e.To)),
			Role: string(e.Role),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// Marshal returns the interchange encoding of x, exactly as [WriteJSON]
// writes it.
func Marshal(x *ad.Extracted) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(x, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportJSON writes an extracted graph to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(x *ad.Extracted, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(x, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
