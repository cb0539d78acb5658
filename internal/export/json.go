package export

import (
	"encoding/json"
	"fmt"

	"github.com/san-kum/tenseg/internal/structure"
)

type nodeJSON struct {
	Name     string    `json:"name"`
	Position []float64 `json:"position"`
	Pinned   []bool    `json:"pinned,omitempty"`
}

type memberJSON struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Nodes      []string `json:"nodes"`
	Stiffness  float64  `json:"stiffness"`
	RestLength float64  `json:"rest_length"`
	Length     float64  `json:"length"`
	Force      float64  `json:"force"`
}

type structureJSON struct {
	Dim     string       `json:"dim"`
	Nodes   []nodeJSON   `json:"nodes"`
	Members []memberJSON `json:"members"`
	Surface *surfaceJSON `json:"surface,omitempty"`
}

type surfaceJSON struct {
	Type       string             `json:"type"`
	Properties map[string]float64 `json:"properties"`
	Linked     [][]string         `json:"linked_nodes"`
}

// StructureJSON serializes the current configuration, including
// derived member lengths and forces, as indented JSON.
func StructureJSON(t *structure.Tensegrity) ([]byte, error) {
	doc := structureJSON{Dim: t.Dim().String()}

	for _, n := range t.Nodes() {
		doc.Nodes = append(doc.Nodes, nodeJSON{
			Name:     n.Name,
			Position: n.Position,
			Pinned:   t.Pins[n.Name],
		})
	}

	for i, c := range t.Connections {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", c.Kind, i)
		}
		names := make([]string, len(c.Nodes))
		for j, n := range c.Nodes {
			names[j] = n.Name
		}
		doc.Members = append(doc.Members, memberJSON{
			Name:       name,
			Kind:       c.Kind.String(),
			Nodes:      names,
			Stiffness:  c.Stiffness,
			RestLength: c.RestLength,
			Length:     c.CurrentLength(t.Surface),
			Force:      c.Force,
		})
	}

	if s := t.Surface; s != nil {
		sj := &surfaceJSON{Type: s.Type, Properties: s.Properties}
		for _, p := range s.LinkedPairs() {
			sj.Linked = append(sj.Linked, []string{p.A, p.B})
		}
		doc.Surface = sj
	}

	return json.MarshalIndent(doc, "", "  ")
}
