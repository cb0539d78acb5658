package structure

import "fmt"

// Kind selects the force law of a connection.
type Kind int

const (
	// KindString carries tension only: force = max(0, k*(L-L0)).
	KindString Kind = iota
	// KindBar is rigid and signed: force = k*(L-L0).
	KindBar
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBar:
		return "bar"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps the declarative format's type tags onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "string":
		return KindString, nil
	case "bar":
		return KindBar, nil
	}
	return 0, fmt.Errorf("structure: connection type %q not recognized", s)
}

// Connection is an ordered chain of two or more nodes acting as one
// elastic member. Chains with intermediate nodes model strings routed
// through pulleys. Force is derived state; call UpdateForce (normally
// via Tensegrity.UpdateForces) after node positions change.
type Connection struct {
	Nodes      []*Node
	Kind       Kind
	Stiffness  float64
	RestLength float64
	Force      float64
	Name       string

	original []Node
}

// NewConnection builds a connection whose rest length defaults to the
// chain length at construction time (no seam skipping; the loader passes
// an explicit rest length when a surface is involved).
func NewConnection(nodes []*Node, kind Kind, stiffness float64) (*Connection, error) {
	if len(nodes) < 2 {
		return nil, ErrTooFewNodes
	}
	if stiffness < 0 {
		return nil, ErrNegativeStiffness
	}
	c := &Connection{
		Nodes:     nodes,
		Kind:      kind,
		Stiffness: stiffness,
		original:  make([]Node, len(nodes)),
	}
	for i, n := range nodes {
		c.original[i] = *n.Clone()
	}
	c.RestLength = c.CurrentLength(nil)
	return c, nil
}

// Original returns the node snapshot captured at construction. The
// snapshot is never mutated; it exists for reference and debugging.
func (c *Connection) Original() []Node {
	out := make([]Node, len(c.original))
	copy(out, c.original)
	return out
}

// CurrentLength sums the Euclidean segment lengths along the chain.
// A segment whose endpoints form a linked pair on the surface counts
// zero: the string continues seamlessly across the wrap seam.
func (c *Connection) CurrentLength(s *Surface) float64 {
	length := 0.0
	for i := 0; i < len(c.Nodes)-1; i++ {
		a, b := c.Nodes[i], c.Nodes[i+1]
		if s != nil && s.Linked(a.Name, b.Name) {
			continue
		}
		length += Distance(a, b)
	}
	return length
}

// UpdateForce recomputes the scalar force from the given current length.
func (c *Connection) UpdateForce(currentLength float64) {
	f := c.Stiffness * (currentLength - c.RestLength)
	if c.Kind == KindString && f < 0 {
		f = 0
	}
	c.Force = f
}
