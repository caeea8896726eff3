package spectrum

import (
	"errors"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Errors returned by the preprocessing helpers.
var (
	ErrLengthMismatch = errors.New("spectrum: x and y must have equal length")
	ErrEmpty          = errors.New("spectrum: empty data")
	ErrFlat           = errors.New("spectrum: ordinate range is zero")
	ErrEmptyWindow    = errors.New("spectrum: crop window contains no samples")
)

// Nearest returns the index of the sample whose abscissa is closest
// to x0.
func Nearest(x []float64, x0 float64) (int, error) {
	if len(x) == 0 {
		return 0, ErrEmpty
	}

	best := 0
	bestDiff := math.Abs(x[0] - x0)

	for i, v := range x[1:] {
		if d := math.Abs(v - x0); d < bestDiff {
			best = i + 1
			bestDiff = d
		}
	}

	return best, nil
}

// NearestValues returns, for each query abscissa, the ordinate of the
// nearest sample. Useful for picking baseline knots that lie on the
// spectrum.
func NearestValues(x, y []float64, queries []float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	out := make([]float64, len(queries))

	for i, q := range queries {
		idx, err := Nearest(x, q)
		if err != nil {
			return nil, err
		}

		out[i] = y[idx]
	}

	return out, nil
}

// Crop restricts the samples to the abscissa window [lo, hi), snapped
// to the nearest samples. The returned slices are copies.
func Crop(x, y []float64, lo, hi float64) ([]float64, []float64, error) {
	if len(x) != len(y) {
		return nil, nil, ErrLengthMismatch
	}

	i1, err := Nearest(x, lo)
	if err != nil {
		return nil, nil, err
	}

	i2, err := Nearest(x, hi)
	if err != nil {
		return nil, nil, err
	}

	if i2 <= i1 {
		return nil, nil, ErrEmptyWindow
	}

	cx := make([]float64, i2-i1)
	cy := make([]float64, i2-i1)
	copy(cx, x[i1:i2])
	copy(cy, y[i1:i2])

	return cx, cy, nil
}

// Normalize scales the ordinates affinely to [0, 1].
func Normalize(y []float64) ([]float64, error) {
	return normalizeAgainst(y, y)
}

// NormalizeRange scales the ordinates so that the samples inside the
// abscissa window [lo, hi) span [0, 1]; samples outside the window may
// land outside that interval.
func NormalizeRange(x, y []float64, lo, hi float64) ([]float64, error) {
	if len(x) != len(y) {
		return nil, ErrLengthMismatch
	}

	i1, err := Nearest(x, lo)
	if err != nil {
		return nil, err
	}

	i2, err := Nearest(x, hi)
	if err != nil {
		return nil, err
	}

	if i2 <= i1 {
		return nil, ErrEmptyWindow
	}

	return normalizeAgainst(y, y[i1:i2])
}

// normalizeAgainst rescales y so that window's extrema map to 0 and 1.
func normalizeAgainst(y, window []float64) ([]float64, error) {
	if len(window) == 0 {
		return nil, ErrEmpty
	}

	lo, hi := window[0], window[0]
	for _, v := range window[1:] {
		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	if hi == lo {
		return nil, ErrFlat
	}

	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = v - lo
	}

	vecmath.ScaleBlockInPlace(out, 1/(hi-lo))

	return out, nil
}
