// Package rootfind solves square or overdetermined nonlinear systems
// F(x) = 0 with a damped Levenberg-Marquardt iteration. The Jacobian is
// approximated by forward differences; the damped normal equations are
// solved with gonum, Cholesky first and QR as fallback.
package rootfind

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Func evaluates the residual vector at x. The returned slice length
// must not vary between calls.
type Func func(x []float64) []float64

type Options struct {
	// MaxIterations bounds the outer LM iterations.
	MaxIterations int
	// Tolerance on the residual 2-norm for declaring convergence.
	Tolerance float64
	// InitialDamping is the starting lambda.
	InitialDamping float64
	// JacobianStep scales the forward-difference step.
	JacobianStep float64
}

func DefaultOptions() Options {
	return Options{
		MaxIterations:  300,
		Tolerance:      1e-10,
		InitialDamping: 1e-3,
		JacobianStep:   1e-8,
	}
}

// Result reports the outcome of a solve. Trace holds the residual
// 2-norm at the start of every iteration, for diagnostics and plotting.
type Result struct {
	X            []float64
	Converged    bool
	Iterations   int
	ResidualNorm float64
	Trace        []float64
}

// Solve runs Levenberg-Marquardt from x0. Non-convergence is reported
// through Result.Converged, not an error: the caller decides whether a
// failed search is fatal.
func Solve(f Func, x0 []float64, opt Options) Result {
	if opt.MaxIterations <= 0 {
		opt = DefaultOptions()
	}

	x := append([]float64(nil), x0...)
	fx := f(x)
	n := len(x)
	m := len(fx)

	res := Result{X: x}
	if n == 0 || m == 0 {
		res.ResidualNorm = norm2(fx)
		res.Converged = res.ResidualNorm <= opt.Tolerance
		return res
	}

	lambda := opt.InitialDamping

	for iter := 0; iter < opt.MaxIterations; iter++ {
		normF := norm2(fx)
		res.Trace = append(res.Trace, normF)
		res.Iterations = iter
		res.ResidualNorm = normF
		res.X = x

		if normF <= opt.Tolerance {
			res.Converged = true
			return res
		}

		jac := jacobian(f, x, fx, opt.JacobianStep)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)

		g := make([]float64, n)
		for j := 0; j < n; j++ {
			sum := 0.0
			for i := 0; i < m; i++ {
				sum += jac.At(i, j) * fx[i]
			}
			g[j] = -sum
		}
		gVec := mat.NewVecDense(n, g)

		accepted := false
		for try := 0; try < 30; try++ {
			step, ok := solveDamped(&jtj, gVec, lambda)
			if !ok {
				lambda *= 10
				continue
			}

			trial := make([]float64, n)
			for i := range trial {
				trial[i] = x[i] + step.AtVec(i)
			}
			ft := f(trial)

			if norm2(ft) < normF {
				x = trial
				fx = ft
				lambda = math.Max(lambda/10, 1e-12)
				accepted = true
				break
			}
			lambda *= 10
			if lambda > 1e12 {
				break
			}
		}

		if !accepted {
			// Stuck: damping exhausted without descent.
			res.X = x
			res.ResidualNorm = norm2(fx)
			return res
		}
	}

	res.X = x
	res.ResidualNorm = norm2(fx)
	res.Converged = res.ResidualNorm <= opt.Tolerance
	return res
}

// solveDamped solves (JtJ + lambda*I) step = g.
func solveDamped(jtj *mat.Dense, g *mat.VecDense, lambda float64) (*mat.VecDense, bool) {
	n, _ := jtj.Dims()

	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := jtj.At(i, j)
			if i == j {
				v += lambda
			}
			sym.SetSym(i, j, v)
		}
	}

	step := mat.NewVecDense(n, nil)

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		if err := chol.SolveVecTo(step, g); err == nil {
			return step, true
		}
	}

	// Indefinite or ill-conditioned: fall back to a dense solve.
	a := mat.NewDense(n, n, nil)
	a.Copy(jtj)
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+lambda)
	}
	if err := step.SolveVec(a, g); err != nil {
		return nil, false
	}
	return step, true
}

// jacobian builds the m-by-n forward-difference Jacobian at x, reusing
// the already computed fx = f(x).
func jacobian(f Func, x, fx []float64, step float64) *mat.Dense {
	n := len(x)
	m := len(fx)
	jac := mat.NewDense(m, n, nil)

	xp := append([]float64(nil), x...)
	for j := 0; j < n; j++ {
		h := step * math.Max(1, math.Abs(x[j]))
		if h == 0 {
			h = step
		}
		xp[j] = x[j] + h
		fp := f(xp)
		xp[j] = x[j]

		inv := 1.0 / h
		for i := 0; i < m; i++ {
			jac.Set(i, j, (fp[i]-fx[i])*inv)
		}
	}
	return jac
}

func norm2(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
