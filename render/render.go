// Package render draws peaks and deconvolution results with gnuplot.
//
// Rendering is an observational layer on top of the fitting contract:
// failures here come from gnuplot or the filesystem and are propagated
// unchanged, wrapped with context.
package render

import (
	"errors"
	"fmt"

	"github.com/Arafatk/glot"

	"github.com/cwbudde/algo-peakfit/deconv"
	"github.com/cwbudde/algo-peakfit/peak"
)

// Errors returned by the renderers.
var (
	ErrNilPeak    = errors.New("render: nil peak")
	ErrNilSession = errors.New("render: nil deconvolution")
	ErrNoWindow   = errors.New("render: empty plot window")
)

const defaultSamples = 1000

type config struct {
	title      string
	samples    int
	window     [2]float64
	hasWindow  bool
	errorBands bool
	peakCurves bool
	baseline   bool
	truthX     []float64
	truthY     []float64
}

// Option configures rendering.
type Option func(*config)

// WithTitle sets the plot title.
func WithTitle(title string) Option {
	return func(c *config) {
		c.title = title
	}
}

// WithSamples sets the number of curve samples for synthetic windows.
func WithSamples(n int) Option {
	return func(c *config) {
		if n > 1 {
			c.samples = n
		}
	}
}

// WithWindow sets an explicit abscissa window for [Peak], overriding
// the default position +/- 4*FWHM.
func WithWindow(lo, hi float64) Option {
	return func(c *config) {
		c.window = [2]float64{lo, hi}
		c.hasWindow = true
	}
}

// WithErrorBands draws the one-sigma error envelopes. Requires a
// completed fit.
func WithErrorBands() Option {
	return func(c *config) {
		c.errorBands = true
	}
}

// WithPeakCurves draws each component peak in addition to the
// composite curve of [Deconvolution].
func WithPeakCurves() Option {
	return func(c *config) {
		c.peakCurves = true
	}
}

// WithBaseline adds the session baseline to the drawn curves.
func WithBaseline() Option {
	return func(c *config) {
		c.baseline = true
	}
}

// WithGroundTruth overlays the measured spectrum.
func WithGroundTruth(x, y []float64) Option {
	return func(c *config) {
		c.truthX = x
		c.truthY = y
	}
}

func newConfig(opts []Option) config {
	c := config{samples: defaultSamples}
	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// Peak renders a single peak to the given image file. Without an
// explicit window the curve covers position +/- 4*FWHM.
func Peak(path string, p *peak.Peak, opts ...Option) error {
	if p == nil {
		return ErrNilPeak
	}

	cfg := newConfig(opts)

	x, err := peakWindow(p, cfg)
	if err != nil {
		return err
	}

	plot, err := glot.NewPlot(2, false, false)
	if err != nil {
		return fmt.Errorf("render: creating plot: %w", err)
	}

	if cfg.title != "" {
		if err := plot.SetTitle(cfg.title); err != nil {
			return fmt.Errorf("render: setting title: %w", err)
		}
	}

	if cfg.errorBands {
		if err := addErrorBand(plot, p, x, "peak"); err != nil {
			return err
		}
	}

	y, err := p.Eval(x)
	if err != nil {
		return fmt.Errorf("render: evaluating peak: %w", err)
	}

	if err := plot.AddPointGroup("peak", "lines", [][]float64{x, y}); err != nil {
		return fmt.Errorf("render: adding peak curve: %w", err)
	}

	if err := plot.SavePlot(path); err != nil {
		return fmt.Errorf("render: saving %s: %w", path, err)
	}

	return nil
}

// Deconvolution renders a fit session over the given abscissas:
// the composite predicted curve, optionally each component peak, the
// baseline contribution, error bands and a ground-truth overlay.
func Deconvolution(path string, d *deconv.Deconvolution, x []float64, opts ...Option) error {
	if d == nil {
		return ErrNilSession
	}

	if len(x) == 0 {
		return ErrNoWindow
	}

	cfg := newConfig(opts)

	plot, err := glot.NewPlot(2, false, false)
	if err != nil {
		return fmt.Errorf("render: creating plot: %w", err)
	}

	if cfg.title != "" {
		if err := plot.SetTitle(cfg.title); err != nil {
			return fmt.Errorf("render: setting title: %w", err)
		}
	}

	var base []float64
	if cfg.baseline {
		base = d.Baseline().Eval(x)
	}

	if cfg.peakCurves {
		for i, p := range d.Peaks() {
			name := fmt.Sprintf("peak %d (%v)", i, p.Shape())

			if cfg.errorBands {
				if err := addErrorBand(plot, p, x, name); err != nil {
					return err
				}
			}

			y, err := p.Eval(x)
			if err != nil {
				return fmt.Errorf("render: evaluating peak %d: %w", i, err)
			}

			addTo(y, base)

			if err := plot.AddPointGroup(name, "lines", [][]float64{x, y}); err != nil {
				return fmt.Errorf("render: adding peak %d: %w", i, err)
			}
		}
	}

	pred, err := d.Eval(x)
	if err != nil {
		return fmt.Errorf("render: evaluating model: %w", err)
	}

	addTo(pred, base)

	if err := plot.AddPointGroup("deconvolution", "lines", [][]float64{x, pred}); err != nil {
		return fmt.Errorf("render: adding composite curve: %w", err)
	}

	if len(cfg.truthX) > 0 {
		if err := plot.AddPointGroup("ground truth", "points", [][]float64{cfg.truthX, cfg.truthY}); err != nil {
			return fmt.Errorf("render: adding ground truth: %w", err)
		}
	}

	if err := plot.SavePlot(path); err != nil {
		return fmt.Errorf("render: saving %s: %w", path, err)
	}

	return nil
}

func addErrorBand(plot *glot.Plot, p *peak.Peak, x []float64, name string) error {
	upper, lower, err := p.ErrorBand(x)
	if err != nil {
		return fmt.Errorf("render: error band for %s: %w", name, err)
	}

	if err := plot.AddPointGroup(name+" +1 sigma", "lines", [][]float64{x, upper}); err != nil {
		return fmt.Errorf("render: adding upper band: %w", err)
	}

	if err := plot.AddPointGroup(name+" -1 sigma", "lines", [][]float64{x, lower}); err != nil {
		return fmt.Errorf("render: adding lower band: %w", err)
	}

	return nil
}

func addTo(dst, src []float64) {
	if src == nil {
		return
	}

	for i := range dst {
		dst[i] += src[i]
	}
}

// peakWindow builds the abscissa grid for a single-peak plot.
func peakWindow(p *peak.Peak, cfg config) ([]float64, error) {
	lo, hi := cfg.window[0], cfg.window[1]

	if !cfg.hasWindow {
		fwhm, err := p.FWHM()
		if err != nil {
			return nil, fmt.Errorf("render: peak window: %w", err)
		}

		lo = p.Position - 4*fwhm
		hi = p.Position + 4*fwhm
	}

	if hi <= lo {
		return nil, ErrNoWindow
	}

	x := make([]float64, cfg.samples)
	step := (hi - lo) / float64(cfg.samples-1)

	for i := range x {
		x[i] = lo + float64(i)*step
	}

	return x, nil
}
