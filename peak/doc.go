// Package peak models single spectral peaks with symmetric analytic shapes.
//
// Two shapes are supported:
//
//   - [Gaussian]:   a * exp(-0.5 * ((x-p)/w)^2)
//   - [Lorentzian]: a / (1 + ((x-p)/w)^2)
//
// where w is the width, a the amplitude and p the position of the peak.
// A [Peak] carries initial guesses and box constraints for the three
// parameters; the deconv package fits a set of peaks against a spectrum
// and writes the fitted values and their one-sigma errors back into each
// peak.
//
// # Usage
//
// Construct a peak, fit it (see deconv), then evaluate it:
//
//	p, _ := peak.New(peak.Gaussian, 1.0, 5.0, 10.0)
//	// ... fit ...
//	y, _ := p.Eval(x)
//	upper, lower, _ := p.ErrorBand(x)
//
// The error band perturbs each parameter independently by its one-sigma
// error. It is a quick visual envelope, not a joint confidence region.
package peak
