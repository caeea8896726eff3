package spectrum

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// ErrCutoff is returned for a smoothing cutoff outside (0, 1].
var ErrCutoff = errors.New("spectrum: cutoff must be in (0, 1]")

// Smooth denoises ordinate data with an FFT low-pass: frequency bins
// above cutoff (as a fraction of the Nyquist bin) are zeroed and the
// signal is transformed back. A cutoff of 1 returns the data unchanged
// up to round-off.
//
// This is a preprocessing convenience for noisy spectra; it trades a
// little peak sharpness for a cleaner fit target.
func Smooth(y []float64, cutoff float64) ([]float64, error) {
	if cutoff <= 0 || cutoff > 1 {
		return nil, ErrCutoff
	}

	if len(y) == 0 {
		return nil, ErrEmpty
	}

	n := len(y)
	fftSize := nextPowerOf2(n)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: failed to create FFT plan: %w", err)
	}

	// Mirror-pad up to the FFT size to soften the wrap-around
	// discontinuity. Power-of-two inputs need no padding.
	padded := make([]complex128, fftSize)
	for i := 0; i < n; i++ {
		padded[i] = complex(y[i], 0)
	}

	for i := n; i < fftSize; i++ {
		padded[i] = complex(y[2*n-1-i], 0)
	}

	freq := make([]complex128, fftSize)
	if err := plan.Forward(freq, padded); err != nil {
		return nil, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	// Zero all bins above the cutoff, keeping conjugate symmetry:
	// positive frequencies [0, keep] and their mirror survive.
	keep := int(cutoff * float64(fftSize/2))
	for i := keep + 1; i < fftSize-keep; i++ {
		freq[i] = 0
	}

	smoothed := make([]complex128, fftSize)
	if err := plan.Inverse(smoothed, freq); err != nil {
		return nil, fmt.Errorf("spectrum: inverse FFT failed: %w", err)
	}

	out := make([]float64, len(y))
	for i := range out {
		out[i] = real(smoothed[i])
	}

	return out, nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
