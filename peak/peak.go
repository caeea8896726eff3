package peak

import (
	"errors"
	"math"
)

// Errors returned by peak functions.
var (
	ErrUnknownShape  = errors.New("peak: unknown peak shape")
	ErrZeroWidth     = errors.New("peak: width must be nonzero")
	ErrInvalidBounds = errors.New("peak: bounds must satisfy min <= max")
	ErrNotFitted     = errors.New("peak: no fit performed")
)

// GaussianFWHMFactor is 2*sqrt(2*ln 2), the ratio of a Gaussian's full
// width at half maximum to its width parameter.
const GaussianFWHMFactor = 2.35482005

// Shape identifies the analytic form of a peak.
type Shape int

const (
	Gaussian Shape = iota
	Lorentzian
)

// shapeInfo binds a shape to its closed-form kernels.
type shapeInfo struct {
	name string
	eval func(x, width, amplitude, position float64) float64
	fwhm func(width float64) float64
}

var shapes = [...]shapeInfo{
	Gaussian: {
		name: "gaussian",
		eval: evalGaussian,
		fwhm: func(w float64) float64 { return GaussianFWHMFactor * w },
	},
	Lorentzian: {
		name: "lorentzian",
		eval: evalLorentzian,
		fwhm: func(w float64) float64 { return 2 * w },
	},
}

func (s Shape) valid() bool {
	return s >= 0 && int(s) < len(shapes)
}

// String returns the shape name.
func (s Shape) String() string {
	if !s.valid() {
		return "unknown"
	}
	return shapes[s].name
}

func evalGaussian(x, width, amplitude, position float64) float64 {
	t := (x - position) / width
	return amplitude * math.Exp(-0.5*t*t)
}

func evalLorentzian(x, width, amplitude, position float64) float64 {
	t := (x - position) / width
	return amplitude / (1 + t*t)
}

// Eval evaluates shape s into dst for each abscissa in x.
// dst and x must have equal length. Panics if lengths differ.
func Eval(s Shape, dst, x []float64, width, amplitude, position float64) error {
	if len(dst) != len(x) {
		panic("peak: slice length mismatch")
	}

	if !s.valid() {
		return ErrUnknownShape
	}

	if width == 0 {
		return ErrZeroWidth
	}

	f := shapes[s].eval
	for i, v := range x {
		dst[i] = f(v, width, amplitude, position)
	}

	return nil
}

// Bounds is a closed interval constraining one fit parameter.
type Bounds struct {
	Min float64
	Max float64
}

// Contains reports whether v lies in the interval.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Peak holds the state of a single spectral peak: its fixed shape, the
// current (initial or fitted) parameter values, the box constraints used
// during fitting, and the one-sigma parameter errors of the last fit.
//
// Width, Amplitude and Position may be set freely before a fit; a
// completed fit overwrites them. The shape is fixed at construction.
type Peak struct {
	shape Shape

	Width     float64
	Amplitude float64
	Position  float64

	WidthBounds     Bounds
	AmplitudeBounds Bounds
	PositionBounds  Bounds

	WidthErr     float64
	AmplitudeErr float64
	PositionErr  float64

	fitted bool
}

// Option configures peak construction.
type Option func(*Peak)

// WithWidthBounds constrains the width during fitting.
func WithWidthBounds(min, max float64) Option {
	return func(p *Peak) {
		p.WidthBounds = Bounds{Min: min, Max: max}
	}
}

// WithAmplitudeBounds constrains the amplitude during fitting.
func WithAmplitudeBounds(min, max float64) Option {
	return func(p *Peak) {
		p.AmplitudeBounds = Bounds{Min: min, Max: max}
	}
}

// WithPositionBounds constrains the position during fitting.
func WithPositionBounds(min, max float64) Option {
	return func(p *Peak) {
		p.PositionBounds = Bounds{Min: min, Max: max}
	}
}

// New creates a peak with the given shape and initial parameters.
//
// Default bounds are [0, +Inf) for width and amplitude and unconstrained
// for position. Returns [ErrUnknownShape] for an unsupported shape and
// [ErrInvalidBounds] if any supplied interval is inverted.
func New(shape Shape, width, amplitude, position float64, opts ...Option) (*Peak, error) {
	if !shape.valid() {
		return nil, ErrUnknownShape
	}

	p := &Peak{
		shape:           shape,
		Width:           width,
		Amplitude:       amplitude,
		Position:        position,
		WidthBounds:     Bounds{Min: 0, Max: math.Inf(1)},
		AmplitudeBounds: Bounds{Min: 0, Max: math.Inf(1)},
		PositionBounds:  Bounds{Min: math.Inf(-1), Max: math.Inf(1)},
	}

	for _, opt := range opts {
		opt(p)
	}

	for _, b := range []Bounds{p.WidthBounds, p.AmplitudeBounds, p.PositionBounds} {
		if b.Min > b.Max {
			return nil, ErrInvalidBounds
		}
	}

	return p, nil
}

// Shape returns the fixed analytic form of the peak.
func (p *Peak) Shape() Shape {
	return p.shape
}

// Clone returns an independent copy of the peak.
func (p *Peak) Clone() *Peak {
	c := *p
	return &c
}

// Fitted reports whether a successful fit has populated the parameter
// errors.
func (p *Peak) Fitted() bool {
	return p.fitted
}

// SetErrors records one-sigma parameter errors from a completed fit and
// marks the peak as fitted.
func (p *Peak) SetErrors(widthErr, amplitudeErr, positionErr float64) {
	p.WidthErr = widthErr
	p.AmplitudeErr = amplitudeErr
	p.PositionErr = positionErr
	p.fitted = true
}

// Eval evaluates the peak at the given abscissas using its current
// parameters.
func (p *Peak) Eval(x []float64) ([]float64, error) {
	out := make([]float64, len(x))

	err := Eval(p.shape, out, x, p.Width, p.Amplitude, p.Position)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// FWHM returns the full width at half maximum of the peak.
func (p *Peak) FWHM() (float64, error) {
	if !p.shape.valid() {
		return 0, ErrUnknownShape
	}

	return shapes[p.shape].fwhm(p.Width), nil
}

// ErrorBand evaluates the peak at params+err and params-err, giving an
// upper and lower envelope from the independent one-sigma perturbation of
// each parameter. Returns [ErrNotFitted] before a successful fit.
func (p *Peak) ErrorBand(x []float64) (upper, lower []float64, err error) {
	if !p.fitted {
		return nil, nil, ErrNotFitted
	}

	upper = make([]float64, len(x))

	err = Eval(p.shape, upper, x, p.Width+p.WidthErr, p.Amplitude+p.AmplitudeErr, p.Position+p.PositionErr)
	if err != nil {
		return nil, nil, err
	}

	lower = make([]float64, len(x))

	err = Eval(p.shape, lower, x, p.Width-p.WidthErr, p.Amplitude-p.AmplitudeErr, p.Position-p.PositionErr)
	if err != nil {
		return nil, nil, err
	}

	return upper, lower, nil
}
