package lsq

import (
	"errors"
	"math"
	"testing"
)

func TestTransformRoundTrip(t *testing.T) {
	inf := math.Inf(1)

	for _, tc := range []struct {
		name string
		lo   float64
		hi   float64
		vals []float64
	}{
		{name: "free", lo: -inf, hi: inf, vals: []float64{-3, 0, 7.5}},
		{name: "lower", lo: 0, hi: inf, vals: []float64{0, 0.1, 42}},
		{name: "upper", lo: -inf, hi: 10, vals: []float64{-5, 0, 10}},
		{name: "both", lo: -1, hi: 1, vals: []float64{-1, -0.25, 0, 0.9, 1}},
	} {
		tr := newTransform(tc.lo, tc.hi)

		for _, v := range tc.vals {
			got := tr.external(tr.internal(v))
			if math.Abs(got-v) > 1e-9 {
				t.Fatalf("%s: round trip of %v gave %v", tc.name, v, got)
			}
		}
	}
}

func TestTransformStaysInBounds(t *testing.T) {
	tr := newTransform(2, 5)

	for _, q := range []float64{-100, -1, 0, 0.5, 3, 1000} {
		p := tr.external(q)
		if p < 2 || p > 5 {
			t.Fatalf("q=%v: external value %v escapes [2, 5]", q, p)
		}
	}
}

func TestSolveRecoversLine(t *testing.T) {
	// Residuals of y = a*x + b sampled noiselessly from a=2, b=-1.
	xs := []float64{0, 1, 2, 3, 4, 5}

	resid := func(dst, p []float64) {
		for i, x := range xs {
			dst[i] = p[0]*x + p[1] - (2*x - 1)
		}
	}

	inf := math.Inf(1)

	res, err := Solve(Problem{
		Residual: resid,
		Size:     len(xs),
		X0:       []float64{0.5, 0.5},
		Lower:    []float64{-inf, -inf},
		Upper:    []float64{inf, inf},
	})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if math.Abs(res.Params[0]-2) > 1e-6 || math.Abs(res.Params[1]+1) > 1e-6 {
		t.Fatalf("params mismatch: got %v want [2 -1]", res.Params)
	}

	for i, s := range res.Sigma {
		if s > 1e-4 {
			t.Fatalf("sigma[%d] not near zero for noiseless data: %v", i, s)
		}
	}
}

func TestSolveRespectsBounds(t *testing.T) {
	// Unconstrained minimum at p=5; the box stops at 2.
	resid := func(dst, p []float64) {
		for i := range dst {
			dst[i] = p[0] - 5
		}
	}

	res, err := Solve(Problem{
		Residual: resid,
		Size:     3,
		X0:       []float64{1},
		Lower:    []float64{0},
		Upper:    []float64{2},
	})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if res.Params[0] < 0 || res.Params[0] > 2 {
		t.Fatalf("solution %v escapes [0, 2]", res.Params[0])
	}

	if math.Abs(res.Params[0]-2) > 1e-5 {
		t.Fatalf("solution mismatch: got %v want 2", res.Params[0])
	}
}

func TestSolveCovarianceConstantModel(t *testing.T) {
	// Fitting a constant to {1, 2, 3}: minimum at 2, rss = 2,
	// J = ones(3x1), so cov = (rss/(m-n)) / 3 = 1/3.
	ys := []float64{1, 2, 3}

	resid := func(dst, p []float64) {
		for i, y := range ys {
			dst[i] = p[0] - y
		}
	}

	inf := math.Inf(1)

	res, err := Solve(Problem{
		Residual: resid,
		Size:     len(ys),
		X0:       []float64{0},
		Lower:    []float64{-inf},
		Upper:    []float64{inf},
	})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if math.Abs(res.Params[0]-2) > 1e-6 {
		t.Fatalf("params mismatch: got %v want 2", res.Params[0])
	}

	if math.Abs(res.Covariance.At(0, 0)-1.0/3.0) > 1e-4 {
		t.Fatalf("covariance mismatch: got %v want %v", res.Covariance.At(0, 0), 1.0/3.0)
	}

	if math.Abs(res.Sigma[0]-math.Sqrt(1.0/3.0)) > 1e-4 {
		t.Fatalf("sigma mismatch: got %v want %v", res.Sigma[0], math.Sqrt(1.0/3.0))
	}
}

func TestSolveNoDegreesOfFreedom(t *testing.T) {
	resid := func(dst, p []float64) {
		dst[0] = p[0] - 1
	}

	inf := math.Inf(1)

	res, err := Solve(Problem{
		Residual: resid,
		Size:     1,
		X0:       []float64{0},
		Lower:    []float64{-inf},
		Upper:    []float64{inf},
	})
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if !math.IsInf(res.Sigma[0], 1) {
		t.Fatalf("sigma with zero degrees of freedom: got %v want +Inf", res.Sigma[0])
	}
}

func TestSolveValidation(t *testing.T) {
	resid := func(dst, p []float64) { dst[0] = p[0] }

	if _, err := Solve(Problem{Residual: resid, Size: 1}); !errors.Is(err, ErrEmptyProblem) {
		t.Fatalf("empty: got %v want ErrEmptyProblem", err)
	}

	p := Problem{Residual: resid, Size: 1, X0: []float64{0}, Lower: []float64{0}}
	if _, err := Solve(p); !errors.Is(err, ErrDimension) {
		t.Fatalf("dimension: got %v want ErrDimension", err)
	}

	p = Problem{
		Residual: resid, Size: 1,
		X0:    []float64{-1},
		Lower: []float64{0},
		Upper: []float64{1},
	}
	if _, err := Solve(p); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("bounds: got %v want ErrOutOfBounds", err)
	}

	p = Problem{
		Residual: resid, Size: 1,
		X0:    []float64{0},
		Lower: []float64{1},
		Upper: []float64{-1},
	}
	if _, err := Solve(p); !errors.Is(err, ErrInvalidBounds) {
		t.Fatalf("inverted: got %v want ErrInvalidBounds", err)
	}
}
