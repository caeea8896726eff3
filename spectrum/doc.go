// Package spectrum loads and preprocesses two-column spectral data.
//
// Readers accept ASCII data where each line holds one (x, y) sample
// pair. The column delimiter is sniffed from the data unless set
// explicitly, and samples are sorted by abscissa on import.
//
// The preprocessing helpers mirror common spectroscopy chores before
// peak fitting:
//
//   - [Crop]:        restrict to an abscissa window
//   - [Normalize]:   scale ordinates to [0, 1]
//   - [Nearest]:     nearest-sample lookup, e.g. for picking baseline knots
//   - [Smooth]:      FFT low-pass denoising
package spectrum
