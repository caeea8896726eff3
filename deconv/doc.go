// Package deconv fits a spectrum as a sum of parametric peaks over an
// additive baseline.
//
// A [Deconvolution] owns an ordered list of peaks (deep-copied at
// construction) and one baseline. [Deconvolution.Fit] subtracts the
// baseline from the ordinate data, rescales abscissa-like parameters by
// the data span so that widths, positions and amplitudes reach the
// solver at comparable magnitudes, runs a box-bounded
// Levenberg-Marquardt minimization of the composite model, and writes
// the unscaled fitted parameters and their one-sigma errors back into
// each peak.
//
// # Usage
//
//	g, _ := peak.New(peak.Gaussian, 1.5, 4.0, 9.0)
//	d, _ := deconv.New([]*peak.Peak{g})
//	if err := d.Fit(x, y); err != nil {
//	    // handle precondition or convergence failure
//	}
//	fitted := d.Peaks()[0]
//
// The rescaling step is not cosmetic: solver step sizes and tolerances
// assume comparably-scaled parameters, and mixing sub-unit widths with
// large positions conditions the problem badly enough to cause spurious
// non-convergence.
//
// A Deconvolution is not internally synchronized. Concurrent Fit calls
// on distinct instances are safe; concurrent calls on the same instance
// are not.
package deconv
