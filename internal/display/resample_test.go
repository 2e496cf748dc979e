// SPDX-License-Identifier: MIT
package display

import (
	"math"
	"testing"

	"spectra/internal/dsp"
)

func makeHistory(values []float64, binCount int) []dsp.SpectralRow {
	rows := dsp.MakeRows(len(values), binCount)
	for i := range rows {
		for b := range rows[i].Bins {
			rows[i].Bins[b] = values[i]
		}
		rows[i].Index = uint64(i)
		rows[i].Valid = true
	}
	return rows
}

func TestResampleEqualLengthIsExactCopy(t *testing.T) {
	src := makeHistory([]float64{-10, -20, -30, -40}, 3)
	dst := dsp.MakeRows(4, 3)

	ResampleHistory(src, dst)

	for i := range src {
		if dst[i].Index != src[i].Index || dst[i].Valid != src[i].Valid {
			t.Fatalf("row %d metadata not preserved: %+v vs %+v", i, dst[i], src[i])
		}
		for b := range src[i].Bins {
			if dst[i].Bins[b] != src[i].Bins[b] {
				t.Fatalf("row %d bin %d = %g, want bit-exact %g", i, b, dst[i].Bins[b], src[i].Bins[b])
			}
		}
	}
}

func TestResampleDownscaleConservesLevel(t *testing.T) {
	// Constant-level history must stay at that level through any downscale:
	// the fractional-overlap weights reaching each output row sum to one.
	const level = -37.5
	src := makeHistory([]float64{level, level, level, level, level, level, level}, 2)

	for _, dstLen := range []int{1, 2, 3, 5} {
		dst := dsp.MakeRows(dstLen, 2)
		ResampleHistory(src, dst)
		for j := range dst {
			if !dst[j].Valid {
				t.Fatalf("dstLen %d: row %d invalid for an all-valid source", dstLen, j)
			}
			for b := range dst[j].Bins {
				if math.Abs(dst[j].Bins[b]-level) > 1e-9 {
					t.Fatalf("dstLen %d: row %d bin %d = %g, want %g", dstLen, j, b, dst[j].Bins[b], level)
				}
			}
		}
	}
}

func TestResampleDownscaleWeighsOverlap(t *testing.T) {
	// Four rows onto two: each output is the even mean of its two inputs.
	src := makeHistory([]float64{-10, -20, -30, -40}, 1)
	dst := dsp.MakeRows(2, 1)

	ResampleHistory(src, dst)

	want := []float64{-15, -35}
	for j := range dst {
		if math.Abs(dst[j].Bins[0]-want[j]) > 1e-9 {
			t.Errorf("row %d = %g, want %g", j, dst[j].Bins[0], want[j])
		}
	}
}

func TestResampleGapStaysVisible(t *testing.T) {
	src := makeHistory([]float64{-10, -20, -30, -40}, 2)
	src[1].Valid = false

	dst := dsp.MakeRows(2, 2)
	ResampleHistory(src, dst)

	if dst[0].Valid {
		t.Error("output overlapping the gap row still marked valid")
	}
	for b := range dst[0].Bins {
		if !math.IsInf(dst[0].Bins[b], -1) {
			t.Errorf("gap output bin %d = %g, want -Inf", b, dst[0].Bins[b])
		}
	}
	if !dst[1].Valid {
		t.Error("output clear of the gap row lost its validity")
	}
}

func TestResampleUpscaleDuplicates(t *testing.T) {
	src := makeHistory([]float64{-10, -20}, 1)
	dst := dsp.MakeRows(4, 1)

	ResampleHistory(src, dst)

	want := []float64{-10, -10, -20, -20}
	for j := range dst {
		if !dst[j].Valid {
			t.Fatalf("row %d invalid after upscale", j)
		}
		if dst[j].Bins[0] != want[j] {
			t.Errorf("row %d = %g, want %g", j, dst[j].Bins[0], want[j])
		}
	}
}

func TestResampleEmptySourceBlanksDestination(t *testing.T) {
	dst := dsp.MakeRows(3, 2)
	for i := range dst {
		dst[i].Valid = true
	}

	ResampleHistory(nil, dst)

	for j := range dst {
		if dst[j].Valid {
			t.Fatalf("row %d still valid with no source history", j)
		}
	}
}
