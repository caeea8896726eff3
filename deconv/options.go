package deconv

import (
	"io"

	"github.com/cwbudde/algo-peakfit/baseline"
)

// Option configures a Deconvolution.
type Option func(*Deconvolution)

// WithBaseline sets the baseline subtracted before fitting.
// The default is the zero baseline. The baseline is held by reference
// and never mutated, so one instance may be shared across sessions.
func WithBaseline(b baseline.Baseline) Option {
	return func(d *Deconvolution) {
		if b != nil {
			d.base = b
		}
	}
}

// WithMaxIterations caps the solver iterations per Fit call.
// The default cap is generous (100000); exhausting it surfaces as
// [ErrNoConverge].
func WithMaxIterations(n int) Option {
	return func(d *Deconvolution) {
		if n > 0 {
			d.maxIter = n
		}
	}
}

// WithTolerance sets the objective value below which the solver stops
// early.
func WithTolerance(tol float64) Option {
	return func(d *Deconvolution) {
		if tol > 0 {
			d.tol = tol
		}
	}
}

// WithSummary sets the writer receiving the tabular fit summary after
// each successful Fit. Pass nil to silence it. The default is
// os.Stdout.
func WithSummary(w io.Writer) Option {
	return func(d *Deconvolution) {
		d.summary = w
	}
}
