// SPDX-License-Identifier: MIT
package display

import (
	"fmt"
	"math"
)

// FreqScaler maps a spectral row onto a fixed number of output columns along
// the frequency axis. Each output column represents a frequency range (on a
// linear or logarithmic scale) and its value is the average of the linear
// interpolant of the row across that range, so narrow peaks are neither
// dropped nor duplicated when the display is narrower or wider than the bin
// count.
type FreqScaler struct {
	binBorders []float64 // fractional source-bin coordinate per column border
	binWeights []float64 // reciprocal column widths
	out        []float64
}

// NewFreqScaler plans a remap of rows with binCount bins spaced binWidth Hz
// onto numOut columns covering [minHz, maxHz].
func NewFreqScaler(binCount int, binWidth float64, numOut int, minHz, maxHz float64, logScale bool) (*FreqScaler, error) {
	if binCount < 2 {
		return nil, fmt.Errorf("need at least 2 bins, got %d", binCount)
	}
	if numOut < 1 {
		return nil, fmt.Errorf("need at least 1 output column, got %d", numOut)
	}
	if minHz < 0 || maxHz <= minHz {
		return nil, fmt.Errorf("bad frequency range [%.1f, %.1f]", minHz, maxHz)
	}
	maxBin := float64(binCount - 1)
	if maxHz/binWidth > maxBin {
		return nil, fmt.Errorf("max frequency %.1f Hz exceeds the row's %.1f Hz reach", maxHz, maxBin*binWidth)
	}
	minBin := minHz / binWidth
	if logScale && minBin <= 0 {
		// Log spacing needs a non-zero lower border; start at the first bin.
		minBin = 1
	}

	borders := make([]float64, numOut+1)
	for i := range borders {
		frac := float64(i) / float64(numOut)
		if logScale {
			borders[i] = minBin * math.Pow(maxHz/binWidth/minBin, frac)
		} else {
			borders[i] = minBin + frac*(maxHz/binWidth-minBin)
		}
	}

	weights := make([]float64, numOut)
	for i := range weights {
		weights[i] = 1.0 / (borders[i+1] - borders[i])
	}

	return &FreqScaler{
		binBorders: borders,
		binWeights: weights,
		out:        make([]float64, numOut),
	}, nil
}

// OutputLen returns the number of planned output columns.
func (s *FreqScaler) OutputLen() int {
	return len(s.out)
}

// Resample maps one row onto the planned columns. The returned slice is
// reused across calls.
func (s *FreqScaler) Resample(row []float64) []float64 {
	for i := range s.out {
		s.out[i] = integrate(row, s.binBorders[i], s.binBorders[i+1]) * s.binWeights[i]
	}
	return s.out
}

// integrate computes the integral of the linear interpolant of f between two
// fractional bin coordinates, start <= end, both within [0, len(f)-1].
func integrate(f []float64, start, end float64) float64 {
	afterStart := int(math.Ceil(start))
	beforeEnd := int(math.Floor(end))

	startFract := start - math.Floor(start)
	leftVal := f[afterStart]
	if startFract != 0 {
		leftVal = (1-startFract)*f[afterStart-1] + startFract*f[afterStart]
	}
	endFract := end - math.Floor(end)
	rightVal := f[beforeEnd]
	if endFract != 0 {
		rightVal = (1-endFract)*f[beforeEnd] + endFract*f[beforeEnd+1]
	}

	if beforeEnd < afterStart {
		// Entirely inside one source cell.
		return 0.5 * (leftVal + rightVal) * (end - start)
	}

	// Partial cell before the first border, then whole cells (trapezoid
	// rule), then the partial cell after the last border.
	leftContrib := 0.5 * (leftVal + f[afterStart]) * (float64(afterStart) - start)
	rightContrib := 0.5 * (f[beforeEnd] + rightVal) * (end - float64(beforeEnd))
	middleContrib := 0.0
	if beforeEnd > afterStart {
		middleContrib = 0.5 * (f[afterStart] + f[beforeEnd])
		for i := afterStart + 1; i < beforeEnd; i++ {
			middleContrib += f[i]
		}
	}
	return leftContrib + rightContrib + middleContrib
}
