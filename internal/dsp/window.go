// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the FFT window function. The set is closed and chosen
// at configuration time; the hot path only ever multiplies by pre-computed
// coefficients.
type WindowFunc int

const (
	Rectangular WindowFunc = iota
	Hann
	Hamming
	Blackman
	Nuttall
)

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc.
// Returns Rectangular and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "rectangular", "none", "":
		return Rectangular, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Rectangular, fmt.Errorf("unknown FFT window function name: %q", name)
	}
}

// makeWindow fills coeffs with the window function and pre-normalizes it by
// 2/sum(w). With that factor folded in, a full-scale bin-centered sine comes
// out at 0 dBFS regardless of window choice or FFT length, so no further
// scaling is needed when converting coefficients to magnitudes.
func makeWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case Rectangular:
		// Coefficients stay at 1.
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	}

	var sum float64
	for _, c := range coeffs {
		sum += c
	}
	norm := 2.0 / sum
	for i := range coeffs {
		coeffs[i] *= norm
	}
}
