// Package graphjson converts item reference boxes to and from the JSON
// documents read and printed by the iref tools.
package graphjson

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/zeebo/blake3"

	"github.com/logicossoftware/go-iref"
)

// Reference is one reference box.
type Reference struct {
	Type string   `json:"type"`
	From uint32   `json:"from"`
	To   []uint32 `json:"to"`
}

// Graph describes an iref box. Size and BLAKE3 are filled in when the box
// came from encoded bytes.
type Graph struct {
	Version    uint8       `json:"version"`
	Width      string      `json:"width"`
	Size       uint64      `json:"size,omitempty"`
	BLAKE3     string      `json:"blake3,omitempty"`
	References []Reference `json:"references"`
}

// FromBox describes box. A decoded box reports its parsed version unless
// later additions need a wider one.
func FromBox(box *iref.ItemReferenceBox) Graph {
	g := Graph{
		Version:    box.Version(),
		References: make([]Reference, 0, box.Len()),
	}
	if v, ok := box.ParsedVersion(); ok {
		g.Version = max(v, g.Version)
	}
	g.Width = iref.WidthForVersion(g.Version).String()
	for _, r := range box.References() {
		g.References = append(g.References, Reference{
			Type: r.Type().String(),
			From: r.FromItemID(),
			To:   r.ToItemIDs(),
		})
	}
	return g
}

// Describe decodes the box at the start of data and describes it with its
// encoded size and digest. Bytes after the box are ignored; callers compare
// Size with len(data) to detect them.
func Describe(data []byte, opts ...iref.ReadOption) (Graph, *iref.ItemReferenceBox, error) {
	box := iref.NewItemReferenceBox()
	br := iref.NewReader(data)
	if err := box.ParseBox(br, opts...); err != nil {
		return Graph{}, nil, err
	}
	n := br.Offset()
	g := FromBox(box)
	g.Size = uint64(n)
	g.BLAKE3 = Digest(data[:n])
	return g, box, nil
}

// Box builds an ItemReferenceBox from g. References sharing a type and
// from-item are merged.
func (g Graph) Box() (*iref.ItemReferenceBox, error) {
	box := iref.NewItemReferenceBox()
	for i, r := range g.References {
		typ, err := iref.ParseFourCC(r.Type)
		if err != nil {
			return nil, fmt.Errorf("reference %d: %w", i, err)
		}
		box.AddReference(iref.NewReference(typ, r.From, r.To...))
	}
	return box, nil
}

// Read parses a Graph from JSON.
func Read(r io.Reader) (Graph, error) {
	var g Graph
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// Write prints g as indented JSON.
func Write(w io.Writer, g Graph) error {
	b, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// Digest returns the hex BLAKE3-256 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
