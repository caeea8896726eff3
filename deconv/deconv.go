package deconv

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/algo-peakfit/baseline"
	"github.com/cwbudde/algo-peakfit/internal/lsq"
	"github.com/cwbudde/algo-peakfit/peak"
)

// Errors returned by deconvolution functions.
var (
	ErrNilPeak            = errors.New("deconv: nil peak")
	ErrLengthMismatch     = errors.New("deconv: x and y must have equal length")
	ErrNonFinite          = errors.New("deconv: data contains non-finite values")
	ErrTooFewSamples      = errors.New("deconv: need at least three samples per peak")
	ErrDegenerateRange    = errors.New("deconv: abscissa range must be nonzero")
	ErrZeroWidth          = errors.New("deconv: initial peak width must be nonzero")
	ErrInitialOutOfBounds = errors.New("deconv: initial parameter outside its bounds")
	ErrNoConverge         = errors.New("deconv: fit did not converge")
	ErrNotFitted          = errors.New("deconv: no fit performed")
)

// paramsPerPeak is the flattened layout stride: width, amplitude,
// position per peak, in peak order.
const paramsPerPeak = 3

// Deconvolution is a fit session: an ordered set of peaks plus one
// baseline. Fit may be called repeatedly; each successful call replaces
// the prior fit results.
type Deconvolution struct {
	peaks   []*peak.Peak
	base    baseline.Baseline
	summary io.Writer
	maxIter int
	tol     float64

	fitted    bool
	fitParams []float64
	cov       *mat.SymDense
	perr      []float64
}

// New creates a fit session over deep copies of the given peaks, so
// later mutation of the caller's peaks does not affect the session and
// two sessions built from the same templates fit independently.
func New(peaks []*peak.Peak, opts ...Option) (*Deconvolution, error) {
	d := &Deconvolution{
		peaks:   make([]*peak.Peak, len(peaks)),
		base:    baseline.Identity{},
		summary: os.Stdout,
	}

	for i, p := range peaks {
		if p == nil {
			return nil, fmt.Errorf("%w: index %d", ErrNilPeak, i)
		}

		d.peaks[i] = p.Clone()
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

// Peaks returns the session's working peaks in fit order. The returned
// peaks are the live fit targets: a completed Fit mutates them.
func (d *Deconvolution) Peaks() []*peak.Peak {
	out := make([]*peak.Peak, len(d.peaks))
	copy(out, d.peaks)

	return out
}

// Baseline returns the session's baseline.
func (d *Deconvolution) Baseline() baseline.Baseline {
	return d.base
}

// Fitted reports whether a fit has completed successfully.
func (d *Deconvolution) Fitted() bool {
	return d.fitted
}

// FitParams returns the flattened fitted parameter vector
// [w0, a0, p0, w1, a1, p1, ...] in original (unscaled) units.
// Returns [ErrNotFitted] before the first successful fit.
func (d *Deconvolution) FitParams() ([]float64, error) {
	if !d.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(d.fitParams))
	copy(out, d.fitParams)

	return out, nil
}

// ParamErrors returns the one-sigma standard error per flattened
// parameter, in original (unscaled) units.
func (d *Deconvolution) ParamErrors() ([]float64, error) {
	if !d.fitted {
		return nil, ErrNotFitted
	}

	out := make([]float64, len(d.perr))
	copy(out, d.perr)

	return out, nil
}

// Covariance returns the solver's parameter covariance matrix. It is
// expressed in the scaled fitting domain; widths and positions (and
// their errors) are unscaled by the abscissa span, the covariance is
// reported as the solver produced it. Nil for a zero-peak session.
func (d *Deconvolution) Covariance() (*mat.SymDense, error) {
	if !d.fitted {
		return nil, ErrNotFitted
	}

	return d.cov, nil
}

// Eval sums all peaks at their current (possibly unfitted) parameters.
// The baseline is not included.
func (d *Deconvolution) Eval(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	scratch := make([]float64, len(x))

	for _, p := range d.peaks {
		err := peak.Eval(p.Shape(), scratch, x, p.Width, p.Amplitude, p.Position)
		if err != nil {
			return nil, err
		}

		vecmath.AddBlockInPlace(out, scratch)
	}

	return out, nil
}

// Fit fits the peaks to the spectrum (x, y).
//
// x and y must be equal-length finite arrays with at least three
// samples per peak and a nonzero abscissa span. x is expected to be
// sorted by the caller; it is read but never mutated. Initial parameter
// values must lie within their bounds and initial widths must be
// nonzero; violations fail fast before the solver runs.
//
// On success the fitted widths, amplitudes, positions and their
// one-sigma errors are written back into the session's peaks in order,
// and a tabular summary is emitted to the configured writer.
func (d *Deconvolution) Fit(x, y []float64) error {
	if len(x) != len(y) {
		return ErrLengthMismatch
	}

	for _, s := range [][]float64{x, y} {
		for _, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrNonFinite
			}
		}
	}

	n := len(d.peaks)
	if len(x) < paramsPerPeak*n {
		return ErrTooFewSamples
	}

	// Degenerate case: nothing to fit, the model is the baseline alone.
	if n == 0 {
		d.fitParams = nil
		d.perr = nil
		d.cov = nil
		d.fitted = true

		d.emitSummary()

		return nil
	}

	span := abscissaSpan(x)
	if span == 0 {
		return ErrDegenerateRange
	}

	base := d.base.Eval(x)

	target := make([]float64, len(y))
	for i := range y {
		target[i] = y[i] - base[i]
	}

	// Rescale so widths and positions reach the solver near the
	// amplitude's order of magnitude.
	xs := make([]float64, len(x))
	vecmath.ScaleBlock(xs, x, 1/span)

	x0 := make([]float64, paramsPerPeak*n)
	lower := make([]float64, paramsPerPeak*n)
	upper := make([]float64, paramsPerPeak*n)
	shapes := make([]peak.Shape, n)

	for i, p := range d.peaks {
		if p.Width == 0 {
			return fmt.Errorf("%w: peak %d", ErrZeroWidth, i)
		}

		if !p.WidthBounds.Contains(p.Width) ||
			!p.AmplitudeBounds.Contains(p.Amplitude) ||
			!p.PositionBounds.Contains(p.Position) {
			return fmt.Errorf("%w: peak %d", ErrInitialOutOfBounds, i)
		}

		shapes[i] = p.Shape()

		j := paramsPerPeak * i
		x0[j] = p.Width / span
		x0[j+1] = p.Amplitude
		x0[j+2] = p.Position / span

		lower[j] = p.WidthBounds.Min / span
		upper[j] = p.WidthBounds.Max / span
		lower[j+1] = p.AmplitudeBounds.Min
		upper[j+1] = p.AmplitudeBounds.Max
		lower[j+2] = p.PositionBounds.Min / span
		upper[j+2] = p.PositionBounds.Max / span
	}

	m := len(xs)
	model := make([]float64, m)
	scratch := make([]float64, m)

	// Composite model residual over the scaled domain. Each peak keeps
	// its fixed shape; parameters are consumed in peak order.
	resid := func(dst, params []float64) {
		for i := range model {
			model[i] = 0
		}

		for i, shape := range shapes {
			j := paramsPerPeak * i

			err := peak.Eval(shape, scratch, xs, params[j], params[j+1], params[j+2])
			if err != nil {
				// Zero width can only occur on a degenerate solver
				// step; poison the residuals so the step is rejected.
				for k := range dst {
					dst[k] = math.Inf(1)
				}

				return
			}

			vecmath.AddBlockInPlace(model, scratch)
		}

		for k := range dst {
			dst[k] = model[k] - target[k]
		}
	}

	res, err := lsq.Solve(lsq.Problem{
		Residual:      resid,
		Size:          m,
		X0:            x0,
		Lower:         lower,
		Upper:         upper,
		MaxIterations: d.maxIter,
		Tolerance:     d.tol,
	})
	if err != nil {
		if errors.Is(err, lsq.ErrNoConverge) {
			return fmt.Errorf("%w: %v", ErrNoConverge, err)
		}

		return fmt.Errorf("deconv: %w", err)
	}

	// Unscale values and errors by the same span factor: the error of
	// a linearly rescaled parameter rescales with it.
	d.fitParams = make([]float64, paramsPerPeak*n)
	d.perr = make([]float64, paramsPerPeak*n)

	for i, p := range d.peaks {
		j := paramsPerPeak * i

		p.Width = res.Params[j] * span
		p.Amplitude = res.Params[j+1]
		p.Position = res.Params[j+2] * span
		p.SetErrors(res.Sigma[j]*span, res.Sigma[j+1], res.Sigma[j+2]*span)

		d.fitParams[j] = p.Width
		d.fitParams[j+1] = p.Amplitude
		d.fitParams[j+2] = p.Position

		d.perr[j] = p.WidthErr
		d.perr[j+1] = p.AmplitudeErr
		d.perr[j+2] = p.PositionErr
	}

	d.cov = res.Covariance
	d.fitted = true

	d.emitSummary()

	return nil
}

// String returns a tabular summary of the peaks' current parameters.
func (d *Deconvolution) String() string {
	var sb strings.Builder

	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Peak Type\tWidth\tAmplitude\tPosition")

	for _, p := range d.peaks {
		fmt.Fprintf(tw, "%v\t%g\t%g\t%g\n", p.Shape(), p.Width, p.Amplitude, p.Position)
	}

	tw.Flush()

	return sb.String()
}

func (d *Deconvolution) emitSummary() {
	if d.summary != nil {
		fmt.Fprint(d.summary, d.String())
	}
}

func abscissaSpan(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}

	lo, hi := x[0], x[0]
	for _, v := range x[1:] {
		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	return hi - lo
}
