// Package solver finds static equilibrium configurations of a
// tensegrity structure. It assembles the virtual-work residual over the
// free coordinates, eliminates pinned and seam-coupled rows, appends
// the surface wrap constraints, and hands the resulting square system
// to the Levenberg-Marquardt root finder.
package solver

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/san-kum/tenseg/internal/rootfind"
	"github.com/san-kum/tenseg/internal/structure"
)

var (
	ErrNoConvergence = errors.New("solver did not converge")
	ErrForceDim      = errors.New("force vector dimension mismatch")
)

type Options struct {
	MaxIterations int
	Tolerance     float64
	// PerturbSigma is the standard deviation of the Gaussian jitter
	// applied to the initial guess on the retry attempt.
	PerturbSigma float64
	// Seed for the perturbation RNG. Zero means time-seeded.
	Seed int64
}

func DefaultOptions() Options {
	return Options{
		MaxIterations: 300,
		Tolerance:     1e-8,
		PerturbSigma:  0.1,
	}
}

// Result summarizes a solve attempt.
type Result struct {
	Attempts     int
	Iterations   int
	ResidualNorm float64
	Trace        []float64
}

type Solver struct {
	ten    *structure.Tensegrity
	dim    int
	nn     int
	forces []float64
	rng    *rand.Rand
	opts   Options
}

func New(ten *structure.Tensegrity, opts Options) *Solver {
	if opts.MaxIterations <= 0 {
		opts = DefaultOptions()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	dim := ten.Dim().Coords()
	return &Solver{
		ten:    ten,
		dim:    dim,
		nn:     len(ten.Nodes()),
		forces: make([]float64, dim*len(ten.Nodes())),
		rng:    rand.New(rand.NewSource(seed)),
		opts:   opts,
	}
}

// Dim reports the number of coordinates per node.
func (s *Solver) Dim() int { return s.dim }

// SetForces replaces the external load vector. Each entry maps a node
// name to a per-coordinate force; nodes not named carry zero load.
func (s *Solver) SetForces(loads map[string][]float64) error {
	forces := make([]float64, s.dim*s.nn)
	for name, f := range loads {
		idx, ok := s.ten.Index(name)
		if !ok {
			return fmt.Errorf("set forces: %w: %q", structure.ErrUnknownNode, name)
		}
		if len(f) != s.dim {
			return fmt.Errorf("node %q: got %d components, want %d: %w",
				name, len(f), s.dim, ErrForceDim)
		}
		copy(forces[idx*s.dim:], f)
	}
	s.forces = forces
	return nil
}

// Solve searches for equilibrium. The first attempt starts from the
// current node positions; on failure a second attempt starts from a
// Gaussian-perturbed copy of that guess. When both fail the structure's
// positions are left untouched.
func (s *Solver) Solve() (Result, error) {
	opt := rootfind.DefaultOptions()
	opt.MaxIterations = s.opts.MaxIterations
	opt.Tolerance = s.opts.Tolerance

	x0 := s.initialGuess()
	res := rootfind.Solve(s.objective, x0, opt)
	attempts := 1

	if !res.Converged {
		fmt.Fprintf(os.Stderr,
			"solver: attempt 1 failed (residual %.3e), retrying with perturbed guess\n",
			res.ResidualNorm)
		perturbed := make([]float64, len(x0))
		for i := range x0 {
			perturbed[i] = x0[i] + s.rng.NormFloat64()*s.opts.PerturbSigma
		}
		res = rootfind.Solve(s.objective, perturbed, opt)
		attempts = 2
	}

	if !res.Converged {
		return Result{Attempts: attempts, ResidualNorm: res.ResidualNorm, Trace: res.Trace},
			fmt.Errorf("%w after %d attempts (residual %.3e)",
				ErrNoConvergence, attempts, res.ResidualNorm)
	}

	s.commit(res.X)
	return Result{
		Attempts:     attempts,
		Iterations:   res.Iterations,
		ResidualNorm: res.ResidualNorm,
		Trace:        res.Trace,
	}, nil
}

// TotalEnergy sums the elastic energy stored in all connections at the
// current positions.
func (s *Solver) TotalEnergy() float64 {
	total := 0.0
	for _, c := range s.ten.Connections {
		total += connectionEnergy(c, s.ten.Surface)
	}
	return total
}

// objective is the residual handed to the root finder: the negated
// virtual-work gradient plus external forces, with pinned rows removed,
// seam-coupled rows merged, and the surface constraints appended.
func (s *Solver) objective(x []float64) []float64 {
	pos := s.expand(x)

	vw := make([]float64, s.dim*s.nn)
	for _, c := range s.ten.Connections {
		s.addEnergyGradient(vw, pos, c)
	}
	for i := range vw {
		vw[i] += s.forces[i]
	}

	deleted := s.pinnedIndexSet()

	if surf := s.ten.Surface; surf != nil {
		for _, p := range surf.LinkedPairs() {
			i1, _ := s.ten.Index(p.A)
			i2, _ := s.ten.Index(p.B)
			r1 := i1 * s.dim
			r2 := i2 * s.dim
			for axis := 0; axis < 2; axis++ {
				switch {
				case deleted[r1+axis]:
					deleted[r2+axis] = true
				case deleted[r2+axis]:
					deleted[r1+axis] = true
				default:
					vw[r1+axis] += vw[r2+axis]
					deleted[r2+axis] = true
				}
			}
		}
	}

	out := deleteIndices(vw, deleted)
	out = append(out, s.surfaceConstraints(pos)...)
	return out
}

// addEnergyGradient accumulates -dV/dq for one connection. Compressed
// strings store no energy and contribute nothing.
func (s *Solver) addEnergyGradient(vw, pos []float64, c *structure.Connection) {
	total := s.chainLength(pos, c)
	stretch := total - c.RestLength
	if c.Kind == structure.KindString && stretch <= 0 {
		return
	}
	coeff := -c.Stiffness * stretch

	surf := s.ten.Surface
	for i := 0; i < len(c.Nodes)-1; i++ {
		a, b := c.Nodes[i], c.Nodes[i+1]
		if surf != nil && surf.Linked(a.Name, b.Name) {
			continue
		}
		ia, _ := s.ten.Index(a.Name)
		ib, _ := s.ten.Index(b.Name)

		segLen := 0.0
		for k := 0; k < s.dim; k++ {
			d := pos[ia*s.dim+k] - pos[ib*s.dim+k]
			segLen += d * d
		}
		segLen = math.Sqrt(segLen)
		if segLen == 0 {
			continue
		}
		for k := 0; k < s.dim; k++ {
			d := pos[ia*s.dim+k] - pos[ib*s.dim+k]
			vw[ia*s.dim+k] += d * coeff / segLen
			vw[ib*s.dim+k] -= d * coeff / segLen
		}
	}
}

func connectionEnergy(c *structure.Connection, surf *structure.Surface) float64 {
	stretch := c.CurrentLength(surf) - c.RestLength
	if c.Kind == structure.KindString && stretch <= 0 {
		return 0
	}
	return 0.5 * c.Stiffness * stretch * stretch
}

// chainLength totals the segment lengths of a connection at the given
// flat position vector. Seam-linked segments have zero length.
func (s *Solver) chainLength(pos []float64, c *structure.Connection) float64 {
	total := 0.0
	for i := 0; i < len(c.Nodes)-1; i++ {
		total += s.segmentLength(pos, c.Nodes[i], c.Nodes[i+1])
	}
	return total
}

func (s *Solver) segmentLength(pos []float64, a, b *structure.Node) float64 {
	if surf := s.ten.Surface; surf != nil && surf.Linked(a.Name, b.Name) {
		return 0
	}
	ia, _ := s.ten.Index(a.Name)
	ib, _ := s.ten.Index(b.Name)
	sum := 0.0
	for k := 0; k < s.dim; k++ {
		d := pos[ia*s.dim+k] - pos[ib*s.dim+k]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// surfaceConstraints keeps the eliminated system square: each linked
// pair must share a height and sit one circumference apart along the
// unrolled axis.
func (s *Solver) surfaceConstraints(pos []float64) []float64 {
	surf := s.ten.Surface
	if surf == nil || surf.Type != structure.SurfaceCylinder {
		return nil
	}
	circ := 2 * math.Pi * surf.Radius()

	var out []float64
	for _, p := range surf.LinkedPairs() {
		i1, _ := s.ten.Index(p.A)
		i2, _ := s.ten.Index(p.B)
		x1, y1 := pos[i1*s.dim], pos[i1*s.dim+1]
		x2, y2 := pos[i2*s.dim], pos[i2*s.dim+1]
		out = append(out, y1-y2, math.Abs(x1-x2)-circ)
	}
	return out
}

// initialGuess flattens the current positions, skipping pinned rows.
func (s *Solver) initialGuess() []float64 {
	pos := s.currentPositions()
	deleted := s.pinnedIndexSet()
	return deleteIndices(pos, deleted)
}

// expand rebuilds the full coordinate vector from the reduced unknowns,
// re-inserting pinned coordinates from the stored positions. The input
// must carry exactly one value per free coordinate; a mismatch is an
// indexing bug and panics rather than producing a silently wrong state.
func (s *Solver) expand(x []float64) []float64 {
	pos := s.currentPositions()
	deleted := s.pinnedIndexSet()
	if len(x) != len(pos)-len(deleted) {
		panic(fmt.Sprintf("solver: reduced vector has %d values for %d free coordinates",
			len(x), len(pos)-len(deleted)))
	}

	j := 0
	for i := range pos {
		if deleted[i] {
			continue
		}
		pos[i] = x[j]
		j++
	}
	return pos
}

func (s *Solver) currentPositions() []float64 {
	pos := make([]float64, s.dim*s.nn)
	for i, n := range s.ten.Nodes() {
		for k := 0; k < s.dim; k++ {
			pos[i*s.dim+k] = n.Position[k]
		}
	}
	return pos
}

func (s *Solver) pinnedIndexSet() map[int]bool {
	deleted := make(map[int]bool)
	for name, axes := range s.ten.Pins {
		idx, ok := s.ten.Index(name)
		if !ok {
			continue
		}
		for k, pinned := range axes {
			if pinned && k < s.dim {
				deleted[idx*s.dim+k] = true
			}
		}
	}
	return deleted
}

func (s *Solver) commit(x []float64) {
	pos := s.expand(x)
	coords := make([][]float64, s.nn)
	for i := range coords {
		c := make([]float64, s.dim)
		copy(c, pos[i*s.dim:(i+1)*s.dim])
		coords[i] = c
	}
	// Lengths match by construction.
	_ = s.ten.SetPositions(coords)
	s.ten.UpdateForces()
}

func deleteIndices(v []float64, deleted map[int]bool) []float64 {
	out := make([]float64, 0, len(v)-len(deleted))
	for i, x := range v {
		if !deleted[i] {
			out = append(out, x)
		}
	}
	return out
}
