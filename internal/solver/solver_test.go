package solver

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/tenseg/internal/config"
	"github.com/san-kum/tenseg/internal/structure"
)

func node(name string, coords ...float64) *structure.Node {
	n, err := structure.NewNode(name, coords)
	Expect(err).NotTo(HaveOccurred())
	return n
}

func connect(kind structure.Kind, stiffness, rest float64, name string, nodes ...*structure.Node) *structure.Connection {
	c, err := structure.NewConnection(nodes, kind, stiffness)
	Expect(err).NotTo(HaveOccurred())
	c.RestLength = rest
	c.Name = name
	return c
}

// unitSquare builds four nodes on a unit square with a string chain
// A-B-C, a string D-A and bar diagonals.
func unitSquare() (*structure.Tensegrity, map[string]*structure.Node) {
	a := node("A", 0, 0, 0)
	b := node("B", 1, 0, 0)
	c := node("C", 1, 1, 0)
	d := node("D", 0, 1, 0)

	conns := []*structure.Connection{
		connect(structure.KindString, 10, 0.5, "chain", a, b, c),
		connect(structure.KindString, 10, 0.5, "side", c, d),
		connect(structure.KindString, 10, 1.0, "back", d, a),
		connect(structure.KindBar, 10, 1.0, "diag1", a, c),
		connect(structure.KindBar, 10, 1.0, "diag2", b, d),
	}
	ten, err := structure.New([]*structure.Node{a, b, c, d}, conns, nil, nil, nil)
	Expect(err).NotTo(HaveOccurred())
	return ten, map[string]*structure.Node{"A": a, "B": b, "C": c, "D": d}
}

// pretensionedLine builds A--B--C along the x axis with both ends
// pinned and two over-tight strings. Equilibrium holds B at (1, 0).
func pretensionedLine(by float64) (*structure.Tensegrity, *Solver) {
	a := node("A", 0, 0)
	b := node("B", 1, by)
	c := node("C", 2, 0)

	conns := []*structure.Connection{
		connect(structure.KindString, 100, 0.5, "left", a, b),
		connect(structure.KindString, 100, 0.5, "right", b, c),
	}
	pins := map[string][]bool{
		"A": {true, true},
		"C": {true, true},
	}
	ten, err := structure.New([]*structure.Node{a, b, c}, conns, pins, nil, nil)
	Expect(err).NotTo(HaveOccurred())
	return ten, New(ten, Options{MaxIterations: 300, Tolerance: 1e-8, PerturbSigma: 0.1, Seed: 42})
}

var _ = Describe("residual construction", func() {
	It("uses three coordinates for unadorned structures", func() {
		ten, _ := unitSquare()
		s := New(ten, DefaultOptions())
		Expect(s.Dim()).To(Equal(3))
	})

	It("totals chain lengths over all segments", func() {
		ten, _ := unitSquare()
		s := New(ten, DefaultOptions())
		pos := s.currentPositions()

		byName := map[string]*structure.Connection{}
		for _, c := range ten.Connections {
			byName[c.Name] = c
		}
		Expect(s.chainLength(pos, byName["chain"])).To(BeNumerically("~", 2.0, 1e-12))
		Expect(s.chainLength(pos, byName["side"])).To(BeNumerically("~", 1.0, 1e-12))
		Expect(s.chainLength(pos, byName["diag1"])).To(BeNumerically("~", math.Sqrt2, 1e-12))
	})

	It("stores no energy in compressed strings", func() {
		ten, _ := unitSquare()
		byName := map[string]*structure.Connection{}
		for _, c := range ten.Connections {
			byName[c.Name] = c
		}

		// back: length 1, rest 1, no stretch.
		Expect(connectionEnergy(byName["back"], nil)).To(BeZero())
		// chain: length 2, rest 0.5, stretch 1.5.
		Expect(connectionEnergy(byName["chain"], nil)).To(BeNumerically("~", 0.5*10*1.5*1.5, 1e-9))

		// A bar in compression still stores energy.
		short := connect(structure.KindBar, 10, 2.0, "short", node("P", 0, 0, 0), node("Q", 1, 0, 0))
		Expect(connectionEnergy(short, nil)).To(BeNumerically("~", 0.5*10*1.0, 1e-9))

		// A string in compression does not.
		slack := connect(structure.KindString, 10, 2.0, "slack", node("P", 0, 0, 0), node("Q", 1, 0, 0))
		Expect(connectionEnergy(slack, nil)).To(BeZero())
	})

	It("round-trips the guess through expand", func() {
		ten, _ := unitSquare()
		s := New(ten, DefaultOptions())
		guess := s.initialGuess()
		Expect(s.expand(guess)).To(Equal(s.currentPositions()))
	})

	It("panics when the reduced vector misses coordinates", func() {
		ten, _ := unitSquare()
		s := New(ten, DefaultOptions())
		short := s.initialGuess()[:3]
		Expect(func() { s.expand(short) }).To(Panic())
	})

	It("produces one residual per free coordinate", func() {
		ten, _ := unitSquare()
		s := New(ten, DefaultOptions())
		guess := s.initialGuess()
		Expect(s.objective(guess)).To(HaveLen(3 * 4))
	})

	It("removes pinned coordinates from the system", func() {
		a := node("A", 0, 0)
		b := node("B", 1, 0)
		c := node("C", 2, 0)
		conns := []*structure.Connection{
			connect(structure.KindString, 10, 1, "s1", a, b),
			connect(structure.KindString, 10, 1, "s2", b, c),
		}
		pins := map[string][]bool{
			"A": {true, true},
			"C": {true, false},
		}
		ten, err := structure.New([]*structure.Node{a, b, c}, conns, pins, nil, nil)
		Expect(err).NotTo(HaveOccurred())

		s := New(ten, DefaultOptions())
		guess := s.initialGuess()
		Expect(guess).To(HaveLen(2*3 - 3))
		Expect(s.objective(guess)).To(HaveLen(2*3 - 3))
	})
})

var _ = Describe("surface coupling", func() {
	// A cylinder of circumference 1, so the seam pair A at x=0 and A2
	// at x=1 describe the same material point.
	radius := 1 / (2 * math.Pi)

	build := func(pinSeam bool) (*structure.Tensegrity, *Solver) {
		a := node("A", 0, 0)
		a2 := node("A2", 1, 0)
		b := node("B", 0.5, 1)

		surf := structure.NewSurface(structure.SurfaceCylinder,
			map[string]float64{"radius": radius},
			[]structure.Pair{structure.NewPair("A", "A2")})

		conns := []*structure.Connection{
			connect(structure.KindString, 10, 0, "seam", a, a2),
			connect(structure.KindString, 10, 1.0, "up1", a, b),
			connect(structure.KindString, 10, 1.0, "up2", b, a2),
		}
		var pins map[string][]bool
		if pinSeam {
			pins = map[string][]bool{"A": {true, true}}
		}
		ten, err := structure.New([]*structure.Node{a, a2, b}, conns, pins, nil, surf)
		Expect(err).NotTo(HaveOccurred())
		return ten, New(ten, Options{MaxIterations: 300, Tolerance: 1e-8, PerturbSigma: 0.1, Seed: 7})
	}

	It("treats seam-linked segments as zero length", func() {
		ten, s := build(false)
		pos := s.currentPositions()
		for _, c := range ten.Connections {
			if c.Name == "seam" {
				Expect(s.chainLength(pos, c)).To(BeZero())
			}
		}
	})

	It("keeps the system square with wrap constraints", func() {
		_, s := build(false)
		guess := s.initialGuess()
		// 3 nodes x 2 coords, 2 rows merged into the seam partner,
		// 2 constraint rows appended.
		Expect(guess).To(HaveLen(6))
		Expect(s.objective(guess)).To(HaveLen(6))
	})

	It("propagates pins across the seam", func() {
		_, s := build(true)
		guess := s.initialGuess()
		Expect(guess).To(HaveLen(4))
		Expect(s.objective(guess)).To(HaveLen(4))
	})

	It("satisfies the wrap constraints at an exact wrap", func() {
		_, s := build(false)
		pos := s.currentPositions()
		cons := s.surfaceConstraints(pos)
		Expect(cons).To(HaveLen(2))
		Expect(cons[0]).To(BeNumerically("~", 0, 1e-12))
		Expect(cons[1]).To(BeNumerically("~", 0, 1e-12))
	})

	It("recognizes a wrapped structure already in equilibrium", func() {
		ten, s := build(true)
		rep, err := s.Solve()
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Iterations).To(BeNumerically(">=", 0))
		// The seam nodes must still sit one circumference apart.
		a, _ := ten.Node("A")
		a2, _ := ten.Node("A2")
		Expect(math.Abs(a2.Position[0]-a.Position[0])).To(BeNumerically("~", 1.0, 1e-6))
		Expect(a2.Position[1]).To(BeNumerically("~", a.Position[1], 1e-6))
	})
})

var _ = Describe("Solve", func() {
	It("leaves an equilibrium configuration alone", func() {
		ten, s := pretensionedLine(0)
		rep, err := s.Solve()
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.Attempts).To(Equal(1))
		Expect(rep.Iterations).To(Equal(0))

		b, _ := ten.Node("B")
		Expect(b.Position[0]).To(BeNumerically("~", 1.0, 1e-9))
		Expect(b.Position[1]).To(BeNumerically("~", 0.0, 1e-9))
	})

	It("pulls a displaced node back to equilibrium", func() {
		ten, s := pretensionedLine(0.4)
		_, err := s.Solve()
		Expect(err).NotTo(HaveOccurred())

		b, _ := ten.Node("B")
		Expect(b.Position[0]).To(BeNumerically("~", 1.0, 1e-4))
		Expect(b.Position[1]).To(BeNumerically("~", 0.0, 1e-4))
	})

	It("refreshes connection forces after solving", func() {
		ten, s := pretensionedLine(0)
		_, err := s.Solve()
		Expect(err).NotTo(HaveOccurred())

		for _, c := range ten.Connections {
			if c.Name == "left" {
				// length 1, rest 0.5, k = 100.
				Expect(c.Force).To(BeNumerically("~", 50, 1e-6))
			}
		}
	})

	It("deflects under an external load", func() {
		ten, s := pretensionedLine(0)
		Expect(s.SetForces(map[string][]float64{"B": {0, -10}})).To(Succeed())

		rep, err := s.Solve()
		Expect(err).NotTo(HaveOccurred())
		Expect(rep.ResidualNorm).To(BeNumerically("<", 1e-6))

		b, _ := ten.Node("B")
		Expect(b.Position[1]).To(BeNumerically("<", 0))
	})

	It("finds the new equilibrium after a control change", func() {
		a := node("A", 0, 0)
		b := node("B", 2, 0)
		c := node("C", 4, 0)
		conns := []*structure.Connection{
			connect(structure.KindString, 10, 1.5, "left", a, b),
			connect(structure.KindString, 10, 1.5, "right", b, c),
		}
		pins := map[string][]bool{
			"A": {true, true},
			"C": {true, true},
		}
		ten, err := structure.New([]*structure.Node{a, b, c}, conns, pins,
			[]*structure.Connection{conns[0]}, nil)
		Expect(err).NotTo(HaveOccurred())
		s := New(ten, Options{MaxIterations: 300, Tolerance: 1e-10, PerturbSigma: 0.1, Seed: 42})

		Expect(ten.ChangeControlLengths(-0.5)).To(Succeed())
		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())

		// k(L_l - 1.0) = k(L_r - 1.5), L_l + L_r = 4 => L_l = 1.75.
		bn, _ := ten.Node("B")
		Expect(bn.Position[0]).To(BeNumerically("~", 1.75, 1e-6))

		ten.ResetControlLengths()
		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())
		Expect(bn.Position[0]).To(BeNumerically("~", 2.0, 1e-6))
	})

	It("reports failure without moving the nodes", func() {
		a := node("A", 0, 0)
		b := node("B", 2, 0)
		f := node("F", 5, 5)
		conns := []*structure.Connection{
			connect(structure.KindString, 10, 1, "ab", a, b),
		}
		pins := map[string][]bool{
			"A": {true, true},
			"B": {true, true},
		}
		ten, err := structure.New([]*structure.Node{a, b, f}, conns, pins, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		s := New(ten, Options{MaxIterations: 50, Tolerance: 1e-10, PerturbSigma: 0.1, Seed: 42})

		// A constant force on an unconnected node can never balance.
		Expect(s.SetForces(map[string][]float64{"F": {0, -1}})).To(Succeed())

		rep, err := s.Solve()
		Expect(err).To(MatchError(ErrNoConvergence))
		Expect(rep.Attempts).To(Equal(2))

		fn, _ := ten.Node("F")
		Expect(fn.Position).To(Equal([]float64{5, 5}))
	})
})

var _ = Describe("SetForces", func() {
	It("rejects a force with the wrong number of components", func() {
		_, s := pretensionedLine(0)
		err := s.SetForces(map[string][]float64{"B": {0, -10, 0}})
		Expect(err).To(MatchError(ErrForceDim))
	})

	It("rejects forces on unknown nodes", func() {
		_, s := pretensionedLine(0)
		err := s.SetForces(map[string][]float64{"Z": {0, -1}})
		Expect(err).To(MatchError(structure.ErrUnknownNode))
	})

	It("replaces rather than accumulates loads", func() {
		ten, s := pretensionedLine(0)
		Expect(s.SetForces(map[string][]float64{"B": {0, -10}})).To(Succeed())
		_, err := s.Solve()
		Expect(err).NotTo(HaveOccurred())

		Expect(s.SetForces(nil)).To(Succeed())
		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())

		b, _ := ten.Node("B")
		Expect(b.Position[1]).To(BeNumerically("~", 0, 1e-6))
	})
})

var _ = Describe("TotalEnergy", func() {
	It("sums the stored elastic energy", func() {
		_, s := pretensionedLine(0)
		// Two strings, each stretch 0.5 at k = 100.
		Expect(s.TotalEnergy()).To(BeNumerically("~", 25.0, 1e-9))
	})
})

var _ = Describe("preset structures", func() {
	It("solves, actuates and resets the drum end to end", func() {
		def, err := config.Preset("drum")
		Expect(err).NotTo(HaveOccurred())
		ten, err := def.Build()
		Expect(err).NotTo(HaveOccurred())

		s := New(ten, Options{MaxIterations: 300, Tolerance: 1e-8, PerturbSigma: 0.1, Seed: 42})

		seamApart := func() {
			circ := 2 * math.Pi * ten.Surface.Radius()
			s0, _ := ten.Node("s0")
			e0, _ := ten.Node("e0")
			Expect(math.Abs(e0.Position[0]-s0.Position[0])).To(BeNumerically("~", circ, 1e-6))
			Expect(e0.Position[1]).To(BeNumerically("~", s0.Position[1], 1e-6))
			s1, _ := ten.Node("s1")
			e1, _ := ten.Node("e1")
			Expect(math.Abs(e1.Position[0]-s1.Position[0])).To(BeNumerically("~", circ, 1e-6))
			Expect(e1.Position[1]).To(BeNumerically("~", s1.Position[1], 1e-6))
		}

		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())
		seamApart()

		Expect(ten.ChangeControlLengths(-0.1)).To(Succeed())
		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())
		seamApart()

		ten.ResetControlLengths()
		_, err = s.Solve()
		Expect(err).NotTo(HaveOccurred())
		seamApart()
	})
})
