package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/san-kum/tenseg/internal/structure"
)

func fixture(t *testing.T) *structure.Tensegrity {
	t.Helper()
	a, _ := structure.NewNode("A", []float64{0, 0})
	b, _ := structure.NewNode("B", []float64{2, 0})
	c, _ := structure.NewNode("C", []float64{1, 1})

	s1, _ := structure.NewConnection([]*structure.Node{a, c}, structure.KindString, 10)
	s1.Name = "left"
	s1.RestLength = 0.5
	s2, _ := structure.NewConnection([]*structure.Node{a, b}, structure.KindBar, 100)

	ten, err := structure.New([]*structure.Node{a, b, c},
		[]*structure.Connection{s1, s2},
		map[string][]bool{"A": {true, true}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	return ten
}

func TestStructureToSVG(t *testing.T) {
	svg := StructureToSVG(fixture(t), 640, 480)
	if !strings.HasPrefix(svg, `<?xml`) || !strings.Contains(svg, "</svg>") {
		t.Fatal("not a complete SVG document")
	}
	if strings.Count(svg, "<line") != 2 {
		t.Errorf("expected 2 member lines, got %d", strings.Count(svg, "<line"))
	}
	if strings.Count(svg, "<circle") != 3 {
		t.Errorf("expected 3 node circles, got %d", strings.Count(svg, "<circle"))
	}
	// Strings dash, bars do not.
	if !strings.Contains(svg, "stroke-dasharray") {
		t.Error("string member not dashed")
	}
	// Pinned node gets a cross marker.
	if !strings.Contains(svg, "<path") {
		t.Error("pin marker missing")
	}
}

func TestStructureJSON(t *testing.T) {
	data, err := StructureJSON(fixture(t))
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc["dim"] != "2" {
		t.Errorf("dim = %v", doc["dim"])
	}
	members := doc["members"].([]any)
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	first := members[0].(map[string]any)
	if first["name"] != "left" || first["kind"] != "string" {
		t.Errorf("member = %v", first)
	}
	// Tension is live in the serialized state: length sqrt(2), rest 0.5.
	if first["force"].(float64) <= 0 {
		t.Errorf("force = %v, want > 0", first["force"])
	}
	if _, hasSurface := doc["surface"]; hasSurface {
		t.Error("surface serialized for planar structure")
	}
}
