// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"

	"spectra/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// removeDC controls whether the DC offset is subtracted before windowing.
// A constant offset otherwise leaks into the lowest bins and dominates the
// log-scale display.
const removeDC = true

// FourierTransform wraps one real-input FFT with its pre-computed window and
// pre-allocated buffers. All storage is fixed at construction; Compute never
// allocates.
type FourierTransform struct {
	fft     *fourier.FFT
	n       int
	input   []float64
	coeffs  []complex128
	window  []float64
	mag     []float64
	floorDB float64
}

// FFTLenForResolution returns the power-of-two FFT length needed to achieve
// the requested frequency resolution (bin spacing, Hz) at the given sample
// rate: the smallest 2^k with sampleRate/2^k <= resolution.
func FFTLenForResolution(resolution, sampleRate float64) int {
	return bitint.NextPowerOfTwo(int(math.Ceil(sampleRate / resolution)))
}

// NewFourierTransform prepares an n-point transform. Magnitudes below
// floorDB are clamped to floorDB so that log of near-zero power stays
// finite and renders as the noise floor.
func NewFourierTransform(n int, windowType WindowFunc, floorDB float64) (*FourierTransform, error) {
	if !bitint.IsPowerOfTwo(n) {
		return nil, fmt.Errorf("fft length must be a power of 2, got %d", n)
	}

	windowCoeffs := make([]float64, n)
	makeWindow(windowCoeffs, windowType)

	outputLen := n/2 + 1

	return &FourierTransform{
		fft:     fourier.NewFFT(n),
		n:       n,
		input:   make([]float64, n),
		coeffs:  make([]complex128, outputLen),
		window:  windowCoeffs,
		mag:     make([]float64, outputLen),
		floorDB: floorDB,
	}, nil
}

// Input exposes the time-series input buffer the caller fills before
// Compute. Its contents are garbled by Compute (in-place windowing).
func (t *FourierTransform) Input() []float64 {
	return t.input
}

// Len returns the FFT length in samples.
func (t *FourierTransform) Len() int {
	return t.n
}

// OutputLen returns the number of frequency bins (n/2 + 1).
func (t *FourierTransform) OutputLen() int {
	return len(t.coeffs)
}

// prepareInput removes the DC offset from the input buffer.
func (t *FourierTransform) prepareInput() {
	if !removeDC {
		return
	}
	var sum float64
	for _, x := range t.input {
		sum += x
	}
	avg := sum / float64(t.n)
	for i := range t.input {
		t.input[i] -= avg
	}
}

// windowAndTransform applies the pre-normalized window in place and runs the
// real FFT.
func (t *FourierTransform) windowAndTransform() {
	for i := range t.input {
		t.input[i] *= t.window[i]
	}
	t.fft.Coefficients(t.coeffs, t.input)
}

// magnitudes converts the complex coefficients to dBFS. The dBFS formula is
// 20*log10(|c|), but 10*log10 of the squared norm is the same value without
// the square root. The window pre-normalization already folded in the
// 2/sum(w) scale.
func (t *FourierTransform) magnitudes() []float64 {
	for i, c := range t.coeffs {
		p := real(c)*real(c) + imag(c)*imag(c)
		db := t.floorDB
		if p > 0 {
			db = 10 * math.Log10(p)
			if db < t.floorDB {
				db = t.floorDB
			}
		}
		t.mag[i] = db
	}
	return t.mag
}

// Compute runs the full chain on the current input buffer and returns the
// per-bin magnitudes in dBFS. The returned slice is reused across calls.
func (t *FourierTransform) Compute() []float64 {
	t.prepareInput()
	t.windowAndTransform()
	return t.magnitudes()
}
