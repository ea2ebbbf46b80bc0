package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ErrNotGraphDocument is returned when the JSON is neither a node array nor an
// object with a nodes array
var ErrNotGraphDocument = errors.New("not a graph document")

type node = orderedmap.OrderedMap[string, json.RawMessage]

// GraphDocument is a document made of nodes, some carrying embedded text.
// Both a bare node array and an Obsidian canvas object ({"nodes": [...]}) are
// accepted. Field order and unknown fields are kept as read.
type GraphDocument struct {
	root  *node // nil for a bare node array
	Nodes []*node
}

// GraphMatch identifies a node carrying a matching block
type GraphMatch struct {
	Index  int
	NodeID string
}

// ParseGraphDocument decodes a graph document
func ParseGraphDocument(data []byte) (*GraphDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNotGraphDocument
	}

	doc := &GraphDocument{}
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &doc.Nodes); err != nil {
			return nil, fmt.Errorf("decode nodes: %w", err)
		}
	case '{':
		root := orderedmap.New[string, json.RawMessage]()
		if err := json.Unmarshal(trimmed, root); err != nil {
			return nil, fmt.Errorf("decode graph document: %w", err)
		}
		raw, ok := root.Get("nodes")
		if !ok {
			return nil, ErrNotGraphDocument
		}
		if err := json.Unmarshal(raw, &doc.Nodes); err != nil {
			return nil, fmt.Errorf("decode nodes: %w", err)
		}
		doc.root = root
	default:
		return nil, ErrNotGraphDocument
	}
	return doc, nil
}

// Marshal encodes the document with tab indentation. Field values are written
// back as read, without HTML escaping.
func (g *GraphDocument) Marshal() ([]byte, error) {
	var compact bytes.Buffer
	if g.root == nil {
		if err := writeNodes(&compact, g.Nodes); err != nil {
			return nil, fmt.Errorf("encode nodes: %w", err)
		}
	} else {
		var nodes bytes.Buffer
		if err := writeNodes(&nodes, g.Nodes); err != nil {
			return nil, fmt.Errorf("encode nodes: %w", err)
		}
		g.root.Set("nodes", json.RawMessage(nodes.Bytes()))
		if err := writeNode(&compact, g.root); err != nil {
			return nil, fmt.Errorf("encode graph document: %w", err)
		}
	}

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "\t"); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func writeNodes(buf *bytes.Buffer, nodes []*node) error {
	buf.WriteByte('[')
	for i, n := range nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeNode(buf, n); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// writeNode writes an object key by key. orderedmap's own MarshalJSON
// re-encodes raw values through json.Marshal, which escapes &, < and >.
func writeNode(buf *bytes.Buffer, n *node) error {
	buf.WriteByte('{')
	for pair, first := n.Oldest(), true; pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeString(buf, pair.Key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if len(pair.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(pair.Value)
	}
	buf.WriteByte('}')
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	// Encode appends a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// NodeText returns the embedded text field of a node
func (g *GraphDocument) NodeText(i int) (string, bool) {
	raw, ok := g.Nodes[i].Get("text")
	if !ok {
		return "", false
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false
	}
	return text, true
}

// SetNodeText replaces the embedded text field of a node
func (g *GraphDocument) SetNodeText(i int, text string) error {
	var buf bytes.Buffer
	if err := writeString(&buf, text); err != nil {
		return err
	}
	g.Nodes[i].Set("text", json.RawMessage(buf.Bytes()))
	return nil
}

// NodeID returns the node's own id field, if any
func (g *GraphDocument) NodeID(i int) string {
	raw, ok := g.Nodes[i].Get("id")
	if !ok {
		return ""
	}
	var id string
	_ = json.Unmarshal(raw, &id)
	return id
}

// LocateBlocks returns every node whose text carries a block of the kind with the id
func (g *GraphDocument) LocateBlocks(kind, id string) []GraphMatch {
	var matches []GraphMatch
	for i := range g.Nodes {
		text, ok := g.NodeText(i)
		if !ok || len(LocateBlocks(text, kind, id)) == 0 {
			continue
		}
		matches = append(matches, GraphMatch{Index: i, NodeID: g.NodeID(i)})
	}
	return matches
}

// Blocks lists every block found in any node text
func (g *GraphDocument) Blocks() []BlockRef {
	var refs []BlockRef
	for i := range g.Nodes {
		if text, ok := g.NodeText(i); ok {
			refs = append(refs, FindBlocks(text)...)
		}
	}
	return refs
}

// PatchProperty patches key in every node carrying the block and returns the
// number of nodes touched
func (g *GraphDocument) PatchProperty(kind, id, key string, values []string) (int, error) {
	touched := 0
	for _, m := range g.LocateBlocks(kind, id) {
		text, _ := g.NodeText(m.Index)
		patched, n := PatchProperty(text, kind, id, key, values)
		if n == 0 {
			continue
		}
		if err := g.SetNodeText(m.Index, patched); err != nil {
			return touched, fmt.Errorf("node %d: %w", m.Index, err)
		}
		touched++
	}
	return touched, nil
}

// PatchGraphProperty decodes, patches and re-encodes a graph document. The input is
// returned unchanged when no node matched.
func PatchGraphProperty(data []byte, kind, id, key string, values []string) ([]byte, int, error) {
	doc, err := ParseGraphDocument(data)
	if err != nil {
		return data, 0, err
	}
	n, err := doc.PatchProperty(kind, id, key, values)
	if err != nil || n == 0 {
		return data, n, err
	}
	out, err := doc.Marshal()
	if err != nil {
		return data, 0, fmt.Errorf("encode graph document: %w", err)
	}
	return out, n, nil
}
