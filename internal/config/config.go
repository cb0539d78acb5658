// Package config loads tensegrity structure definitions from YAML and
// assembles them into runtime structures.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tenseg/internal/structure"
)

// Builder names a connection family: its kind, stiffness and the
// ratio applied to the assembled length to produce the rest length.
type Builder struct {
	Type               string  `yaml:"type"`
	Stiffness          float64 `yaml:"stiffness"`
	InitialLengthRatio float64 `yaml:"initial_length_ratio"`
}

func (b *Builder) UnmarshalYAML(value *yaml.Node) error {
	type plain Builder
	p := plain{InitialLengthRatio: 1.0}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*b = Builder(p)
	return nil
}

// Chain is one connection entry: a node sequence, optionally named.
// In YAML it is either a plain list of node names or a single-key
// mapping from the connection name to that list.
type Chain struct {
	Name  string
	Nodes []string
}

func (c *Chain) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		return value.Decode(&c.Nodes)
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: named connection must have exactly one key", value.Line)
		}
		if err := value.Content[0].Decode(&c.Name); err != nil {
			return err
		}
		return value.Content[1].Decode(&c.Nodes)
	default:
		return fmt.Errorf("line %d: connection must be a list or a named mapping", value.Line)
	}
}

// SurfaceSpec describes the surface section: the seam-linked node
// pairs plus exactly one shape key whose mapping carries the numeric
// properties.
type SurfaceSpec struct {
	LinkedNodes [][]string
	Type        string
	Properties  map[string]float64
}

func (s *SurfaceSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: surface must be a mapping", value.Line)
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		val := value.Content[i+1]
		if key == "linked_nodes" {
			if err := val.Decode(&s.LinkedNodes); err != nil {
				return err
			}
			continue
		}
		if s.Type != "" {
			return fmt.Errorf("line %d: surface declares both %q and %q", value.Line, s.Type, key)
		}
		s.Type = key
		if err := val.Decode(&s.Properties); err != nil {
			return err
		}
	}
	if s.Type == "" {
		return fmt.Errorf("surface declares no shape")
	}
	for _, pair := range s.LinkedNodes {
		if len(pair) != 2 {
			return fmt.Errorf("linked_nodes entry %v: want exactly two names", pair)
		}
	}
	return nil
}

// Definition mirrors the YAML document layout.
type Definition struct {
	Nodes       map[string][]float64 `yaml:"nodes"`
	Builders    map[string]Builder   `yaml:"builders"`
	Connections map[string][]Chain   `yaml:"connections"`
	Surface     *SurfaceSpec         `yaml:"surface"`
	Pin         map[string][]bool    `yaml:"pin"`
	Control     []string             `yaml:"control"`
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load definition: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML definition document.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("definition has no nodes")
	}
	return &def, nil
}

// Build assembles the runtime structure. Node and builder names are
// processed in sorted order so the resulting indexing is deterministic.
func (def *Definition) Build() (*structure.Tensegrity, error) {
	nodeNames := make([]string, 0, len(def.Nodes))
	for name := range def.Nodes {
		nodeNames = append(nodeNames, name)
	}
	sort.Strings(nodeNames)

	nodes := make([]*structure.Node, 0, len(nodeNames))
	byName := make(map[string]*structure.Node, len(nodeNames))
	for _, name := range nodeNames {
		n, err := structure.NewNode(name, def.Nodes[name])
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", name, err)
		}
		nodes = append(nodes, n)
		byName[name] = n
	}

	var surf *structure.Surface
	if def.Surface != nil {
		pairs := make([]structure.Pair, 0, len(def.Surface.LinkedNodes))
		for _, p := range def.Surface.LinkedNodes {
			for _, name := range p {
				if _, ok := byName[name]; !ok {
					return nil, fmt.Errorf("surface links unknown node %q: %w",
						name, structure.ErrUnknownNode)
				}
			}
			pairs = append(pairs, structure.NewPair(p[0], p[1]))
		}
		surf = structure.NewSurface(def.Surface.Type, def.Surface.Properties, pairs)
	}

	builderNames := make([]string, 0, len(def.Builders))
	for name := range def.Builders {
		builderNames = append(builderNames, name)
	}
	sort.Strings(builderNames)

	var conns []*structure.Connection
	named := make(map[string]*structure.Connection)
	for _, bname := range builderNames {
		builder := def.Builders[bname]
		chains, ok := def.Connections[bname]
		if !ok {
			continue
		}
		kind, err := structure.ParseKind(builder.Type)
		if err != nil {
			return nil, fmt.Errorf("builder %q: %w", bname, err)
		}
		for i, chain := range chains {
			members := make([]*structure.Node, 0, len(chain.Nodes))
			for _, name := range chain.Nodes {
				n, ok := byName[name]
				if !ok {
					return nil, fmt.Errorf("connection %q[%d] references unknown node %q: %w",
						bname, i, name, structure.ErrUnknownNode)
				}
				members = append(members, n)
			}
			conn, err := structure.NewConnection(members, kind, builder.Stiffness)
			if err != nil {
				return nil, fmt.Errorf("connection %q[%d]: %w", bname, i, err)
			}
			conn.Name = chain.Name
			conn.RestLength = builder.InitialLengthRatio * conn.CurrentLength(surf)
			conns = append(conns, conn)

			if chain.Name != "" {
				if _, dup := named[chain.Name]; dup {
					return nil, fmt.Errorf("duplicate connection name %q", chain.Name)
				}
				named[chain.Name] = conn
			}
		}
	}
	for bname := range def.Connections {
		if _, ok := def.Builders[bname]; !ok {
			return nil, fmt.Errorf("builder type %q does not have a builder", bname)
		}
	}

	for name, axes := range def.Pin {
		n, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("pin references unknown node %q: %w",
				name, structure.ErrUnknownNode)
		}
		if len(axes) != len(n.Position) {
			return nil, fmt.Errorf("pin %q: got %d axes, node has %d coordinates",
				name, len(axes), len(n.Position))
		}
	}

	var controls []*structure.Connection
	for _, name := range def.Control {
		conn, ok := named[name]
		if !ok {
			return nil, fmt.Errorf("control references unknown connection %q", name)
		}
		controls = append(controls, conn)
	}

	return structure.New(nodes, conns, def.Pin, controls, surf)
}
