// Package baseline provides background-signal adapters subtracted from a
// spectrum before peak fitting.
//
// A baseline maps an abscissa array to a background value array of the
// same length. Three adapters are provided:
//
//   - [Identity]:        zero background (no correction)
//   - [PiecewiseLinear]: linear interpolation between knots
//   - [CubicSpline]:     natural cubic spline through knots
//
// Outside the knot range both interpolating baselines clamp to the value
// at the nearest edge knot.
package baseline

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/interp"
)

// Errors returned by baseline constructors.
var (
	ErrKnotLength = errors.New("baseline: knot slices must have equal length")
	ErrKnotCount  = errors.New("baseline: need at least two knots")
	ErrKnotOrder  = errors.New("baseline: knot abscissas must be strictly increasing")
)

// Baseline evaluates a background signal at the given abscissas.
// Implementations are pure: the input is not mutated and repeated calls
// with the same input yield the same output.
type Baseline interface {
	Eval(x []float64) []float64
}

// Identity is the zero baseline.
type Identity struct{}

// Eval returns zeros of the same length as x.
func (Identity) Eval(x []float64) []float64 {
	return make([]float64, len(x))
}

func validateKnots(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return ErrKnotLength
	}

	if len(xs) < 2 {
		return ErrKnotCount
	}

	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return ErrKnotOrder
		}
	}

	return nil
}

func evalClamped(p interp.Predictor, lo, hi float64, x []float64) []float64 {
	out := make([]float64, len(x))

	for i, v := range x {
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}

		out[i] = p.Predict(v)
	}

	return out
}

// PiecewiseLinear interpolates linearly between knots.
type PiecewiseLinear struct {
	pred interp.PiecewiseLinear
	lo   float64
	hi   float64
}

// NewPiecewiseLinear creates a piecewise-linear baseline through the
// given knots. The knot abscissas must be strictly increasing.
func NewPiecewiseLinear(xs, ys []float64) (*PiecewiseLinear, error) {
	err := validateKnots(xs, ys)
	if err != nil {
		return nil, err
	}

	b := &PiecewiseLinear{lo: xs[0], hi: xs[len(xs)-1]}
	if err := b.pred.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("baseline: fitting piecewise-linear knots: %w", err)
	}

	return b, nil
}

// Eval returns the baseline value at each abscissa.
func (b *PiecewiseLinear) Eval(x []float64) []float64 {
	return evalClamped(&b.pred, b.lo, b.hi, x)
}

// CubicSpline interpolates knots with a natural cubic spline
// (second derivative zero at the end knots).
type CubicSpline struct {
	pred interp.NaturalCubic
	lo   float64
	hi   float64
}

// NewCubicSpline creates a cubic-spline baseline through the given knots.
// The knot abscissas must be strictly increasing.
func NewCubicSpline(xs, ys []float64) (*CubicSpline, error) {
	err := validateKnots(xs, ys)
	if err != nil {
		return nil, err
	}

	b := &CubicSpline{lo: xs[0], hi: xs[len(xs)-1]}
	if err := b.pred.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("baseline: fitting spline knots: %w", err)
	}

	return b, nil
}

// Eval returns the baseline value at each abscissa.
func (b *CubicSpline) Eval(x []float64) []float64 {
	return evalClamped(&b.pred, b.lo, b.hi, x)
}
