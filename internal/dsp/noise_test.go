// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"
)

func TestNoiseFilters(t *testing.T) {
	recent := []float64{-80, -20, -50}

	if got := (NoneFilter{}).Smooth(recent); got != -50 {
		t.Errorf("NoneFilter = %g, want the newest value -50", got)
	}
	if got := (MeanFilter{}).Smooth(recent); got != -50 {
		t.Errorf("MeanFilter = %g, want -50", got)
	}

	median := NewMedianFilter(4)
	if got := median.Smooth(recent); got != -50 {
		t.Errorf("MedianFilter (odd) = %g, want -50", got)
	}
	if got := median.Smooth([]float64{-80, -20, -60, -40}); got != -50 {
		t.Errorf("MedianFilter (even) = %g, want -50", got)
	}
}

func TestMedianSuppressesImpulse(t *testing.T) {
	// One impulsive outlier among steady values must not leak through.
	median := NewMedianFilter(5)
	if got := median.Smooth([]float64{-90, -90, 0, -90, -90}); got != -90 {
		t.Errorf("median with one impulse = %g, want -90", got)
	}
	mean := (MeanFilter{}).Smooth([]float64{-90, -90, 0, -90, -90})
	if mean <= -90 {
		t.Errorf("mean with one impulse = %g, expected it pulled above -90", mean)
	}
}

func TestSmootherWindowsLastDepthRows(t *testing.T) {
	s := NewSmoother(MeanFilter{}, 3, 2)
	dst := make([]float64, 2)

	// Before the history fills, the filter sees only what was pushed.
	s.Push([]float64{2, 20})
	s.SmoothInto(dst)
	if dst[0] != 2 || dst[1] != 20 {
		t.Fatalf("after one push got %v, want [2 20]", dst)
	}

	s.Push([]float64{4, 40})
	s.SmoothInto(dst)
	if dst[0] != 3 || dst[1] != 30 {
		t.Fatalf("after two pushes got %v, want [3 30]", dst)
	}

	// Once full, only the newest depth rows count.
	s.Push([]float64{6, 60})
	s.Push([]float64{8, 80})
	s.SmoothInto(dst)
	if dst[0] != 6 || dst[1] != 60 {
		t.Fatalf("after four pushes got %v, want the mean of the last three [6 60]", dst)
	}
}

func TestSmootherDepthOnePassesThrough(t *testing.T) {
	s := NewSmoother(NoneFilter{}, 1, 3)
	dst := make([]float64, 3)

	s.Push([]float64{1, 2, 3})
	s.Push([]float64{-10, math.Inf(-1), 0})
	s.SmoothInto(dst)

	want := []float64{-10, math.Inf(-1), 0}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("got %v, want %v", dst, want)
		}
	}
}
