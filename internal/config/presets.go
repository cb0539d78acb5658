package config

import (
	"fmt"
	"sort"
)

// Built-in structure definitions, usable without a YAML file on disk.
var presets = map[string]string{
	// box: a pretensioned square with crossing bars. The perimeter
	// strings are built 20% short, so the structure settles inward
	// until string tension balances bar compression. The "pull"
	// control shortens the bottom edge.
	"box": `
nodes:
  A: [0.0, 0.0]
  B: [1.0, 0.0]
  C: [1.0, 1.0]
  D: [0.0, 1.0]
builders:
  edge:
    type: string
    stiffness: 50.0
    initial_length_ratio: 0.8
  brace:
    type: bar
    stiffness: 200.0
connections:
  edge:
    - pull: [A, B]
    - [B, C]
    - [C, D]
    - [D, A]
  brace:
    - [A, C]
    - [B, D]
pin:
  A: [true, true]
  B: [false, true]
control:
  - pull
`,

	// snake: a hanging chain routed through intermediate nodes like a
	// string over pulleys, anchored at both ends, with a bar spine.
	"snake": `
nodes:
  head: [0.0, 0.0]
  j1: [1.0, -0.3]
  j2: [2.0, -0.4]
  j3: [3.0, -0.3]
  tail: [4.0, 0.0]
builders:
  tendon:
    type: string
    stiffness: 80.0
    initial_length_ratio: 0.9
  spine:
    type: bar
    stiffness: 300.0
connections:
  tendon:
    - draw: [head, j1, j2, j3, tail]
  spine:
    - [head, j2]
    - [j2, tail]
pin:
  head: [true, true]
  tail: [true, true]
control:
  - draw
`,

	// drum: a sheet wrapped onto a cylinder of radius 0.5. The s/e
	// node columns are the two edges of the sheet; the seam pairs
	// identify them, so the unrolled x span equals the circumference.
	"drum": `
nodes:
  s0: [0.0, 0.0]
  s1: [0.0, 1.0]
  e0: [3.14159265, 0.0]
  e1: [3.14159265, 1.0]
  m0: [1.5707963, 0.0]
  m1: [1.5707963, 1.0]
builders:
  hoop:
    type: string
    stiffness: 60.0
    initial_length_ratio: 0.95
  rib:
    type: bar
    stiffness: 250.0
connections:
  hoop:
    - belt: [s0, m0, e0]
    - [s1, m1, e1]
  rib:
    - [s0, s1]
    - [m0, m1]
    - [e0, e1]
surface:
  linked_nodes:
    - [s0, e0]
    - [s1, e1]
  cylinder:
    radius: 0.5
pin:
  s0: [true, true]
control:
  - belt
`,
}

// Preset parses one of the built-in definitions by name.
func Preset(name string) (*Definition, error) {
	doc, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q (have: %v)", name, PresetNames())
	}
	return Parse([]byte(doc))
}

// PresetNames lists the built-in definitions in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
