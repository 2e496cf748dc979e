// SPDX-License-Identifier: MIT
package display

import (
	"math"
	"testing"
)

func TestNewFreqScalerValidation(t *testing.T) {
	tests := []struct {
		name     string
		binCount int
		binWidth float64
		numOut   int
		minHz    float64
		maxHz    float64
	}{
		{"Too few bins", 1, 10, 8, 20, 100},
		{"No output columns", 64, 10, 0, 20, 100},
		{"Inverted range", 64, 10, 8, 200, 100},
		{"Range beyond the row", 64, 10, 8, 20, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFreqScaler(tt.binCount, tt.binWidth, tt.numOut, tt.minHz, tt.maxHz, false); err == nil {
				t.Fatalf("expected error for %s", tt.name)
			}
		})
	}
}

func TestFreqScalerPreservesConstant(t *testing.T) {
	// The averaged linear interpolant of a constant row is that constant on
	// every column, for both axis spacings.
	const level = -42.0
	row := make([]float64, 128)
	for i := range row {
		row[i] = level
	}

	for _, logScale := range []bool{false, true} {
		s, err := NewFreqScaler(len(row), 20, 17, 40, 2400, logScale)
		if err != nil {
			t.Fatal(err)
		}
		if s.OutputLen() != 17 {
			t.Fatalf("OutputLen() = %d, want 17", s.OutputLen())
		}
		for i, v := range s.Resample(row) {
			if math.Abs(v-level) > 1e-9 {
				t.Fatalf("logScale=%v: column %d = %g, want %g", logScale, i, v, level)
			}
		}
	}
}

func TestFreqScalerAveragesLinearRamp(t *testing.T) {
	// For f[i] = i the average of the interpolant over [a, b] is (a+b)/2,
	// which pins down the partial-cell handling at both borders.
	row := make([]float64, 64)
	for i := range row {
		row[i] = float64(i)
	}

	s, err := NewFreqScaler(len(row), 10, 7, 15, 600, false)
	if err != nil {
		t.Fatal(err)
	}

	out := s.Resample(row)
	for i := range out {
		a := s.binBorders[i]
		b := s.binBorders[i+1]
		want := (a + b) / 2
		if math.Abs(out[i]-want) > 1e-9 {
			t.Errorf("column %d = %g, want midpoint %g of borders [%g, %g]", i, out[i], want, a, b)
		}
	}
}

func TestFreqScalerNarrowPeakSurvives(t *testing.T) {
	// A single hot bin must raise exactly the column whose range covers it,
	// never vanish between columns.
	row := make([]float64, 256)
	for i := range row {
		row[i] = -90
	}
	row[100] = 0

	s, err := NewFreqScaler(len(row), 10, 16, 20, 2500, true)
	if err != nil {
		t.Fatal(err)
	}

	out := s.Resample(row)
	peak := 0
	for i := range out {
		if out[i] > out[peak] {
			peak = i
		}
	}
	if out[peak] <= -90 {
		t.Fatal("hot bin vanished during frequency-axis resampling")
	}
	// Bin 100 sits at 1000 Hz; the covering column has borders around it.
	if lo, hi := s.binBorders[peak], s.binBorders[peak+1]; 100 < lo-1 || 100 > hi+1 {
		t.Errorf("peak column %d covers bins [%g, %g], want it around bin 100", peak, lo, hi)
	}
}
