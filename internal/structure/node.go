package structure

import "math"

// Node is a named point of the structure. Position has 2 or 3 components,
// fixed at construction. Only the solver's write-back path mutates it.
type Node struct {
	Name     string
	Position []float64
}

func NewNode(name string, position []float64) (*Node, error) {
	if len(position) != 2 && len(position) != 3 {
		return nil, ErrPositionDim
	}
	p := make([]float64, len(position))
	copy(p, position)
	return &Node{Name: name, Position: p}, nil
}

// Clone returns an independent copy of the node.
func (n *Node) Clone() *Node {
	c, _ := NewNode(n.Name, n.Position)
	return c
}

// Distance is the Euclidean distance between two node positions.
// Nodes of mixed dimensionality compare over the shorter prefix.
func Distance(a, b *Node) float64 {
	k := len(a.Position)
	if len(b.Position) < k {
		k = len(b.Position)
	}
	sum := 0.0
	for i := 0; i < k; i++ {
		d := a.Position[i] - b.Position[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
