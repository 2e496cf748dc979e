// SPDX-License-Identifier: MIT
package dsp

import (
	"fmt"
	"sort"
	"strings"
)

// NoiseFilter maps an ordered sequence of recent per-bin magnitudes (oldest
// first) to one smoothed magnitude. Implementations must not allocate or
// retain the input slice; it is scratch storage reused between calls.
type NoiseFilter interface {
	Smooth(recent []float64) float64
}

// NoneFilter passes the newest value through.
type NoneFilter struct{}

func (NoneFilter) Smooth(recent []float64) float64 {
	return recent[len(recent)-1]
}

// MeanFilter averages the recent values per bin.
type MeanFilter struct{}

func (MeanFilter) Smooth(recent []float64) float64 {
	var sum float64
	for _, v := range recent {
		sum += v
	}
	return sum / float64(len(recent))
}

// MedianFilter takes the per-bin sliding median, which suppresses impulsive
// noise without smearing sustained tones.
type MedianFilter struct {
	scratch []float64
}

// NewMedianFilter pre-allocates for windows up to maxDepth values.
func NewMedianFilter(maxDepth int) *MedianFilter {
	return &MedianFilter{scratch: make([]float64, maxDepth)}
}

func (f *MedianFilter) Smooth(recent []float64) float64 {
	s := f.scratch[:len(recent)]
	copy(s, recent)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return 0.5 * (s[mid-1] + s[mid])
}

// ParseNoiseFilter converts a configured filter name into an implementation
// sized for the given depth.
func ParseNoiseFilter(name string, depth int) (NoiseFilter, error) {
	switch strings.ToLower(name) {
	case "none", "":
		return NoneFilter{}, nil
	case "mean":
		return MeanFilter{}, nil
	case "median":
		return NewMedianFilter(depth), nil
	default:
		return nil, fmt.Errorf("unknown noise filter name: %q", name)
	}
}

// Smoother applies a NoiseFilter per bin across a short history of rows.
// The spectrum and spectrogram hand-offs each own one, so their smoothing
// depths are independent.
type Smoother struct {
	filter NoiseFilter
	ring   [][]float64 // depth rows of binCount magnitudes
	column []float64   // per-bin gather scratch
	count  int         // rows pushed so far, saturates at depth
	next   int         // ring write position
}

// NewSmoother builds a smoother over the last depth rows of binCount bins.
func NewSmoother(filter NoiseFilter, depth, binCount int) *Smoother {
	ring := make([][]float64, depth)
	for i := range ring {
		ring[i] = make([]float64, binCount)
	}
	return &Smoother{
		filter: filter,
		ring:   ring,
		column: make([]float64, depth),
	}
}

// Push copies one raw row into the history.
func (s *Smoother) Push(row []float64) {
	copy(s.ring[s.next], row)
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
}

// SmoothInto writes the filtered row into dst, gathering each bin's column
// across the pushed history (oldest first). Before the history fills up the
// filter simply sees fewer values.
func (s *Smoother) SmoothInto(dst []float64) {
	depth := len(s.ring)
	oldest := s.next - s.count
	if oldest < 0 {
		oldest += depth
	}
	for b := range dst {
		for i := 0; i < s.count; i++ {
			s.column[i] = s.ring[(oldest+i)%depth][b]
		}
		dst[b] = s.filter.Smooth(s.column[:s.count])
	}
}
