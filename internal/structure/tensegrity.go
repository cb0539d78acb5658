package structure

import (
	"fmt"
	"strings"
)

// Dim is the dimensionality of a structure. Dim25 means a 2D
// parameterization embedded in 3D through a surface wrap.
type Dim int

const (
	Dim2 Dim = iota
	Dim25
	Dim3
)

// Coords is the number of coordinates per node the solver works with.
func (d Dim) Coords() int {
	if d == Dim3 {
		return 3
	}
	return 2
}

func (d Dim) String() string {
	switch d {
	case Dim2:
		return "2"
	case Dim25:
		return "2.5"
	case Dim3:
		return "3"
	}
	return fmt.Sprintf("Dim(%d)", int(d))
}

// Tensegrity aggregates nodes, connections, boundary conditions and
// actuator bookkeeping. It exclusively owns its nodes and connections.
type Tensegrity struct {
	nodes       []*Node
	index       map[string]int
	Connections []*Connection
	Pins        map[string][]bool
	Controls    []*Connection
	Surface     *Surface

	dim          Dim
	controlStart []float64
}

// New builds the aggregate. Dimensionality is inferred once: 2.5 if a
// surface is present, 2 if any node has a 2-component position, else 3.
// Control starting rest lengths are snapshotted for ResetControlLengths,
// and connection forces are computed for the initial geometry.
func New(nodes []*Node, connections []*Connection, pins map[string][]bool, controls []*Connection, surface *Surface) (*Tensegrity, error) {
	if pins == nil {
		pins = map[string][]bool{}
	}
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n.Name)
		}
		index[n.Name] = i
	}
	for name := range pins {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: pinned node %q", ErrUnknownNode, name)
		}
	}

	t := &Tensegrity{
		nodes:       nodes,
		index:       index,
		Connections: connections,
		Pins:        pins,
		Controls:    controls,
		Surface:     surface,
	}

	t.controlStart = make([]float64, len(controls))
	for i, c := range controls {
		t.controlStart[i] = c.RestLength
	}

	switch {
	case surface != nil:
		t.dim = Dim25
	case anyTwoComponent(nodes):
		t.dim = Dim2
	default:
		t.dim = Dim3
	}

	t.UpdateForces()
	return t, nil
}

func anyTwoComponent(nodes []*Node) bool {
	for _, n := range nodes {
		if len(n.Position) == 2 {
			return true
		}
	}
	return false
}

// Nodes returns the nodes in declaration order. The slice is shared;
// callers must not reorder it.
func (t *Tensegrity) Nodes() []*Node { return t.nodes }

// Node looks a node up by name.
func (t *Tensegrity) Node(name string) (*Node, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.nodes[i], true
}

// Index returns the declaration-order index of a named node.
func (t *Tensegrity) Index(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Dim returns the dimensionality fixed at construction.
func (t *Tensegrity) Dim() Dim { return t.dim }

// Pinned reports whether the named node's given axis is fixed.
func (t *Tensegrity) Pinned(name string, axis int) bool {
	bools := t.Pins[name]
	return axis < len(bools) && bools[axis]
}

// UpdateForces recomputes every connection's force from the current
// node positions. It is the sole mutator of derived force state and
// must run after any position change.
func (t *Tensegrity) UpdateForces() {
	for _, c := range t.Connections {
		c.UpdateForce(c.CurrentLength(t.Surface))
	}
}

// SetPositions writes solver results back into the nodes: one slice of
// coords components per node, in declaration order. The caller follows
// up with UpdateForces.
func (t *Tensegrity) SetPositions(positions [][]float64) error {
	if len(positions) != len(t.nodes) {
		return fmt.Errorf("structure: got %d positions for %d nodes", len(positions), len(t.nodes))
	}
	for i, p := range positions {
		t.nodes[i].Position = append([]float64(nil), p...)
	}
	return nil
}

// ControlOrder returns the control connection names, comma separated,
// in the order ChangeControlLengths expects its deltas.
func (t *Tensegrity) ControlOrder() string {
	names := make([]string, len(t.Controls))
	for i, c := range t.Controls {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// ChangeControlLengths adds one delta to each control's rest length.
// It does not re-solve; re-equilibration is the caller's job.
func (t *Tensegrity) ChangeControlLengths(deltas ...float64) error {
	if len(deltas) != len(t.Controls) {
		return fmt.Errorf("%w: got %d, want %d", ErrControlCount, len(deltas), len(t.Controls))
	}
	for i, d := range deltas {
		t.Controls[i].RestLength += d
	}
	return nil
}

// ResetControlLengths restores every control's rest length to the value
// captured at construction.
func (t *Tensegrity) ResetControlLengths() {
	for i, c := range t.Controls {
		c.RestLength = t.controlStart[i]
	}
}

// Clone returns a fully independent copy of the structure for use by
// another solver. Nodes and connections never share memory with the
// original.
func (t *Tensegrity) Clone() *Tensegrity {
	nodes := make([]*Node, len(t.nodes))
	byName := make(map[string]*Node, len(t.nodes))
	for i, n := range t.nodes {
		nodes[i] = n.Clone()
		byName[n.Name] = nodes[i]
	}

	conns := make([]*Connection, len(t.Connections))
	remap := make(map[*Connection]*Connection, len(t.Connections))
	for i, c := range t.Connections {
		chain := make([]*Node, len(c.Nodes))
		for j, n := range c.Nodes {
			chain[j] = byName[n.Name]
		}
		cc := &Connection{
			Nodes:      chain,
			Kind:       c.Kind,
			Stiffness:  c.Stiffness,
			RestLength: c.RestLength,
			Force:      c.Force,
			Name:       c.Name,
			original:   append([]Node(nil), c.original...),
		}
		conns[i] = cc
		remap[c] = cc
	}

	pins := make(map[string][]bool, len(t.Pins))
	for name, bools := range t.Pins {
		pins[name] = append([]bool(nil), bools...)
	}

	controls := make([]*Connection, len(t.Controls))
	for i, c := range t.Controls {
		controls[i] = remap[c]
	}

	var surface *Surface
	if t.Surface != nil {
		surface = t.Surface.clone()
	}

	clone := &Tensegrity{
		nodes:        nodes,
		index:        make(map[string]int, len(t.index)),
		Connections:  conns,
		Pins:         pins,
		Controls:     controls,
		Surface:      surface,
		dim:          t.dim,
		controlStart: append([]float64(nil), t.controlStart...),
	}
	for name, i := range t.index {
		clone.index[name] = i
	}
	return clone
}
