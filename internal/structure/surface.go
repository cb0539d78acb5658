package structure

// SurfaceCylinder is the only surface family currently modeled.
const SurfaceCylinder = "cylinder"

// Pair is an unordered pair of node names geometrically identified as
// the same point on a wrapped surface (the seam).
type Pair struct {
	A, B string
}

// NewPair normalizes the pair so membership tests are order-independent.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Surface is a geometric wrap constraint: a shape tag with properties
// plus the seam pairs where the wrapped sheet's edges meet.
type Surface struct {
	Type       string
	Properties map[string]float64
	pairs      []Pair
	member     map[Pair]bool
}

func NewSurface(surfaceType string, properties map[string]float64, linked []Pair) *Surface {
	s := &Surface{
		Type:       surfaceType,
		Properties: properties,
		member:     make(map[Pair]bool, len(linked)),
	}
	for _, p := range linked {
		p = NewPair(p.A, p.B)
		if !s.member[p] {
			s.member[p] = true
			s.pairs = append(s.pairs, p)
		}
	}
	return s
}

// Linked reports whether the two node names form a seam pair.
func (s *Surface) Linked(a, b string) bool {
	return s.member[NewPair(a, b)]
}

// LinkedPairs returns the seam pairs in declaration order.
func (s *Surface) LinkedPairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Radius returns the cylinder radius, zero for other surface types.
func (s *Surface) Radius() float64 {
	return s.Properties["radius"]
}

func (s *Surface) clone() *Surface {
	props := make(map[string]float64, len(s.Properties))
	for k, v := range s.Properties {
		props[k] = v
	}
	return NewSurface(s.Type, props, s.pairs)
}
