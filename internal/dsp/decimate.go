// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"math"
	"strings"

	applog "spectra/internal/log"
)

// Audible range bounds used when planning decimation levels and trimming the
// retained bin range.
const (
	minAudibleHz = 20.0
	maxAudibleHz = 20000.0
)

// BlendRamp selects the monotonic cross-fade weighting used in the boundary
// region between adjacent decimation levels.
type BlendRamp int

const (
	RampLinear BlendRamp = iota
	RampSmoothStep
)

// ParseBlendRamp converts a string name (case-insensitive) to a BlendRamp.
func ParseBlendRamp(name string) (BlendRamp, error) {
	switch strings.ToLower(name) {
	case "linear", "":
		return RampLinear, nil
	case "smoothstep":
		return RampSmoothStep, nil
	default:
		return RampLinear, fmt.Errorf("unknown blend ramp name: %q", name)
	}
}

// weight maps transition progress x in [0, 1] to a blend weight in [0, 1].
// Both ramps are monotonic with w(0)=0 and w(1)=1, which is what keeps the
// merged spectrum free of discontinuities at level boundaries.
func (r BlendRamp) weight(x float64) float64 {
	if x <= 0 {
		return 0
	}
	if x >= 1 {
		return 1
	}
	if r == RampSmoothStep {
		return x * x * (3 - 2*x)
	}
	return x
}

// DecimationLevel is one FFT resolution in the multi-resolution analysis: an
// FFT length, the merged-bin sub-range it is responsible for, and the point
// on the merged bin axis where it is considered the optimal approximation.
// The level list is immutable for the life of the analyzer.
type DecimationLevel struct {
	FFTLen     int
	LoBin      int     // First merged bin this level contributes to
	HiBin      int     // One past the last merged bin this level contributes to
	optimalBin float64 // Merged-bin position of this level's optimal frequency
	tf         *FourierTransform
}

// Analyzer computes one multi-resolution spectral row per DSP cycle: a long
// FFT provides frequency resolution at the low end, progressively shorter
// FFTs over the most recent samples provide time resolution at the high end,
// and the boundary regions are cross-faded so transients do not produce
// visible seams between resolutions.
type Analyzer struct {
	// Levels ordered shortest to longest window. levels[len-1] is the base
	// transform whose input buffer covers the whole working window.
	levels []DecimationLevel
	ramp   BlendRamp

	sampleRate float64
	binWidth   float64
	binCount   int
	merged     []float64
}

// NewAnalyzer plans the decimation chain. The base FFT length is derived
// from the requested frequency resolution; each of the `decimations` extra
// levels halves the window, with its optimal frequency doubling from
// minAudibleHz upward. The merged row keeps only bins up to maxAudibleHz.
func NewAnalyzer(resolution, sampleRate float64, decimations int, windowType WindowFunc, ramp BlendRamp, floorDB float64) (*Analyzer, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("frequency resolution must be positive, got %f", resolution)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	baseLen := FFTLenForResolution(resolution, sampleRate)
	binWidth := sampleRate / float64(baseLen)
	applog.Infof("DSP: At %.0f Hz, a resolution of %g Hz requires a %d-point base FFT (bin width %.3f Hz)",
		sampleRate, resolution, baseLen, binWidth)

	binCount := baseLen/2 + 1
	if audible := int(math.Ceil(maxAudibleHz/binWidth)) + 1; audible < binCount {
		binCount = audible
	}

	// Shortest window first; the base (longest) transform goes last so its
	// input can be prepared before the tails are copied out of it.
	levels := make([]DecimationLevel, 0, decimations+1)
	for k := decimations; k >= 0; k-- {
		fftLen := baseLen >> k
		if fftLen < 2 {
			return nil, fmt.Errorf("%d decimations of a %d-point FFT leave no window", decimations, baseLen)
		}
		tf, err := NewFourierTransform(fftLen, windowType, floorDB)
		if err != nil {
			return nil, err
		}
		// Level k (0 = base) is the optimal approximation at minAudibleHz*2^k:
		// longer windows resolve lower frequencies, shorter windows track
		// faster transients higher up.
		optimalBin := minAudibleHz * math.Pow(2, float64(k)) / binWidth
		levels = append(levels, DecimationLevel{
			FFTLen:     fftLen,
			optimalBin: optimalBin,
			tf:         tf,
		})
	}

	// Fill in the merged-bin sub-ranges. Walking from the base (last entry)
	// toward shorter windows, level j hands over to level j-1 at j-1's
	// optimal bin.
	for i := range levels {
		lvl := &levels[i]
		if i == len(levels)-1 {
			lvl.LoBin = 0 // base level reaches down to DC
		} else {
			lvl.LoBin = clampBin(levels[i+1].optimalBin, binCount)
		}
		if i == 0 {
			lvl.HiBin = binCount // shortest level reaches the top
		} else {
			lvl.HiBin = clampBin(levels[i-1].optimalBin, binCount)
		}
	}

	return &Analyzer{
		levels:     levels,
		ramp:       ramp,
		sampleRate: sampleRate,
		binWidth:   binWidth,
		binCount:   binCount,
		merged:     make([]float64, binCount),
	}, nil
}

func clampBin(pos float64, binCount int) int {
	b := int(math.Ceil(pos))
	if b > binCount {
		b = binCount
	}
	if b < 0 {
		b = 0
	}
	return b
}

// Input exposes the working input buffer (the base transform's input). The
// engine fills it with the most recent WindowLen() samples each cycle.
func (a *Analyzer) Input() []float64 {
	return a.base().input
}

// WindowLen returns the base FFT length, the number of samples the working
// buffer must hold.
func (a *Analyzer) WindowLen() int {
	return a.base().n
}

// BinCount returns the number of retained merged bins per row.
func (a *Analyzer) BinCount() int {
	return a.binCount
}

// BinWidth returns the merged-bin spacing in Hz.
func (a *Analyzer) BinWidth() float64 {
	return a.binWidth
}

// Levels returns the planned decimation chain, shortest window first.
func (a *Analyzer) Levels() []DecimationLevel {
	return a.levels
}

func (a *Analyzer) base() *FourierTransform {
	return a.levels[len(a.levels)-1].tf
}

// Analyze computes all level transforms over the current input and merges
// them into one row of dB magnitudes. The returned slice is reused across
// calls.
func (a *Analyzer) Analyze() []float64 {
	base := a.base()
	base.prepareInput()

	// Shorter levels analyze the tail (most recent samples) of the base
	// input. Copy before the base transform garbles it.
	for i := range a.levels[:len(a.levels)-1] {
		tf := a.levels[i].tf
		copy(tf.input, base.input[len(base.input)-tf.n:])
		tf.windowAndTransform()
		tf.magnitudes()
	}
	base.windowAndTransform()
	base.magnitudes()

	if len(a.levels) == 1 {
		copy(a.merged, base.mag[:a.binCount])
		return a.merged
	}

	// Base level alone below the first hand-over point.
	lo := a.levels[len(a.levels)-2].LoBin
	if lo > a.binCount {
		lo = a.binCount
	}
	copy(a.merged[:lo], base.mag[:lo])

	// Cross-fade each consecutive pair across its boundary region, from the
	// base upward.
	for j := len(a.levels) - 1; j > 0; j-- {
		longer := &a.levels[j]
		shorter := &a.levels[j-1]
		start := shorter.LoBin
		end := shorter.HiBin
		if j == 1 && end < a.binCount {
			end = a.binCount
		}
		span := shorter.optimalBin - longer.optimalBin
		for b := start; b < end; b++ {
			w := 1.0
			if span > 0 && float64(b) < shorter.optimalBin {
				w = a.ramp.weight((float64(b) - longer.optimalBin) / span)
			}
			a.merged[b] = (1-w)*a.levelMagAt(longer, b) + w*a.levelMagAt(shorter, b)
		}
	}

	return a.merged
}

// levelMagAt linearly interpolates a level's magnitudes onto the merged bin
// axis. A level of length L has bins spaced baseLen/L times wider than the
// merged axis.
func (a *Analyzer) levelMagAt(lvl *DecimationLevel, b int) float64 {
	stride := a.base().n / lvl.FFTLen
	pos := float64(b) / float64(stride)
	i := int(pos)
	if i >= len(lvl.tf.mag)-1 {
		return lvl.tf.mag[len(lvl.tf.mag)-1]
	}
	frac := pos - float64(i)
	return (1-frac)*lvl.tf.mag[i] + frac*lvl.tf.mag[i+1]
}
