// Package lsq solves box-bounded nonlinear least-squares problems.
//
// The underlying Levenberg-Marquardt solver is unconstrained, so box
// bounds are enforced through smooth one-to-one parameter transforms:
// the solver iterates in an unconstrained internal space whose image is
// exactly the feasible box. The covariance of the fitted parameters is
// computed in the original (external) space from a finite-difference
// Jacobian at the solution, so bound handling does not distort the
// reported uncertainties.
package lsq

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"github.com/maorshutman/lm"
	"gonum.org/v1/gonum/mat"
)

// Errors returned by Solve.
var (
	ErrEmptyProblem  = errors.New("lsq: empty parameter vector")
	ErrDimension     = errors.New("lsq: parameter and bound vectors must have equal length")
	ErrOutOfBounds   = errors.New("lsq: initial guess outside bounds")
	ErrInvalidBounds = errors.New("lsq: lower bound exceeds upper bound")
	ErrNoConverge    = errors.New("lsq: fit did not converge")
)

// Residual fills dst with the problem's residuals at parameter vector p.
// len(dst) is the problem size. Implementations must be pure.
type Residual func(dst, p []float64)

// Problem describes a box-bounded least-squares minimization.
type Problem struct {
	// Residual computes Size residuals from len(X0) parameters.
	Residual Residual
	// Size is the residual count.
	Size int
	// X0 is the initial parameter guess.
	X0 []float64
	// Lower and Upper are per-parameter closed bounds. Use +/-Inf for
	// unconstrained parameters.
	Lower []float64
	Upper []float64
	// MaxIterations caps the solver iterations. Zero selects a
	// generous default.
	MaxIterations int
	// Tolerance is the objective value below which the solve stops
	// early. Zero selects a default near machine precision.
	Tolerance float64
}

// Result holds the solution of a bounded least-squares problem.
type Result struct {
	// Params is the best-fit parameter vector in external units.
	Params []float64
	// Covariance is the parameter covariance matrix, scaled by the
	// residual variance. Entries are +Inf when the problem has no
	// degrees of freedom or the Jacobian is fully degenerate.
	Covariance *mat.SymDense
	// Sigma is the square root of the covariance diagonal.
	Sigma []float64
}

const (
	defaultMaxIterations = 100000
	defaultTolerance     = 1e-15

	// Central-difference step scale, sqrt of float64 machine epsilon.
	diffStep = 1.4901161193847656e-08
)

// boundKind classifies the constraint on one parameter.
type boundKind int

const (
	boundFree boundKind = iota
	boundLower
	boundUpper
	boundBoth
)

// transform maps one parameter between the unconstrained internal space
// and the bounded external space. The transforms are the standard
// MINUIT-style substitutions: a shifted hyperbola for one-sided bounds
// and a sinusoid for two-sided bounds.
type transform struct {
	kind boundKind
	lo   float64
	hi   float64
}

func newTransform(lo, hi float64) transform {
	loFree := math.IsInf(lo, -1)
	hiFree := math.IsInf(hi, 1)

	switch {
	case loFree && hiFree:
		return transform{kind: boundFree}
	case hiFree:
		return transform{kind: boundLower, lo: lo}
	case loFree:
		return transform{kind: boundUpper, hi: hi}
	default:
		return transform{kind: boundBoth, lo: lo, hi: hi}
	}
}

// external maps an internal coordinate into the feasible interval.
func (t transform) external(q float64) float64 {
	switch t.kind {
	case boundLower:
		return t.lo - 1 + math.Sqrt(q*q+1)
	case boundUpper:
		return t.hi + 1 - math.Sqrt(q*q+1)
	case boundBoth:
		return t.lo + (t.hi-t.lo)/2*(math.Sin(q)+1)
	default:
		return q
	}
}

// internal inverts external for a feasible value.
func (t transform) internal(p float64) float64 {
	switch t.kind {
	case boundLower:
		d := p - t.lo + 1
		return math.Sqrt(d*d - 1)
	case boundUpper:
		d := t.hi - p + 1
		return math.Sqrt(d*d - 1)
	case boundBoth:
		return math.Asin(2*(p-t.lo)/(t.hi-t.lo) - 1)
	default:
		return p
	}
}

// Solve runs a bounded Levenberg-Marquardt minimization of the problem.
func Solve(p Problem) (*Result, error) {
	n := len(p.X0)
	if n == 0 {
		return nil, ErrEmptyProblem
	}

	if len(p.Lower) != n || len(p.Upper) != n {
		return nil, ErrDimension
	}

	trs := make([]transform, n)
	q0 := make([]float64, n)

	for i := range p.X0 {
		if p.Lower[i] > p.Upper[i] {
			return nil, ErrInvalidBounds
		}

		if p.X0[i] < p.Lower[i] || p.X0[i] > p.Upper[i] {
			return nil, fmt.Errorf("%w: parameter %d", ErrOutOfBounds, i)
		}

		trs[i] = newTransform(p.Lower[i], p.Upper[i])
		q0[i] = trs[i].internal(p.X0[i])
	}

	// Residual over the internal coordinates.
	ext := make([]float64, n)
	wrapped := func(dst, q []float64) {
		for i, tr := range trs {
			ext[i] = tr.external(q[i])
		}
		p.Residual(dst, ext)
	}

	maxIter := p.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	tol := p.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}

	nj := lm.NumJac{Func: wrapped}

	prob := lm.LMProblem{
		Dim:        n,
		Size:       p.Size,
		Func:       wrapped,
		Jac:        nj.Jac,
		InitParams: q0,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}

	res, err := lm.LM(prob, &lm.Settings{Iterations: maxIter, ObjectiveTol: tol})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoConverge, err)
	}

	params := make([]float64, n)
	for i, tr := range trs {
		params[i] = tr.external(res.X[i])

		if math.IsNaN(params[i]) || math.IsInf(params[i], 0) {
			return nil, fmt.Errorf("%w: non-finite parameter %d", ErrNoConverge, i)
		}
	}

	cov, sigma := covariance(p.Residual, params, p.Size)

	return &Result{Params: params, Covariance: cov, Sigma: sigma}, nil
}

// jacobian computes the m x n central-difference Jacobian of f at p.
func jacobian(f Residual, p []float64, m int) *mat.Dense {
	n := len(p)
	jac := mat.NewDense(m, n, nil)

	work := make([]float64, n)
	copy(work, p)

	upper := make([]float64, m)
	lower := make([]float64, m)

	for j := range p {
		h := diffStep * math.Max(math.Abs(p[j]), 1)

		orig := work[j]

		work[j] = orig + h
		f(upper, work)

		work[j] = orig - h
		f(lower, work)

		work[j] = orig

		inv := 1 / (2 * h)
		for i := 0; i < m; i++ {
			jac.Set(i, j, (upper[i]-lower[i])*inv)
		}
	}

	return jac
}

// covariance estimates the parameter covariance at the solution as
//
//	cov = pinv(J^T J) * rss / (m - n)
//
// using an SVD pseudo-inverse with a relative singular value cutoff, the
// same estimate scipy-style curve fitting reports. With no degrees of
// freedom (m <= n) or a fully degenerate Jacobian the entries are +Inf.
func covariance(f Residual, params []float64, m int) (*mat.SymDense, []float64) {
	n := len(params)

	cov := mat.NewSymDense(n, nil)
	sigma := make([]float64, n)

	infinite := func() (*mat.SymDense, []float64) {
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				cov.SetSym(i, j, math.Inf(1))
			}
			sigma[i] = math.Inf(1)
		}
		return cov, sigma
	}

	if m <= n {
		return infinite()
	}

	resid := make([]float64, m)
	f(resid, params)
	rss := vecmath.DotProduct(resid, resid)

	jac := jacobian(f, params, m)

	var svd mat.SVD
	if !svd.Factorize(jac, mat.SVDThin) {
		return infinite()
	}

	s := svd.Values(nil)

	var v mat.Dense
	svd.VTo(&v)

	const eps = 2.220446049250313e-16
	cutoff := eps * float64(max(m, n)) * s[0]

	kept := 0
	for _, sv := range s {
		if sv > cutoff {
			kept++
		}
	}

	if kept == 0 {
		return infinite()
	}

	variance := rss / float64(m-n)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sum := 0.0
			for k := 0; k < kept; k++ {
				sum += v.At(i, k) * v.At(j, k) / (s[k] * s[k])
			}
			cov.SetSym(i, j, sum*variance)
		}
	}

	for i := 0; i < n; i++ {
		sigma[i] = math.Sqrt(cov.At(i, i))
	}

	return cov, sigma
}
