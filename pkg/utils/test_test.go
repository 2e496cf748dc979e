// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

func TestGenerateSineWave(t *testing.T) {
	const (
		size       = 1024
		sampleRate = 44100.0
		frequency  = 441.0
	)
	wave := GenerateSineWave(size, sampleRate, frequency)

	if len(wave) != size {
		t.Fatalf("len = %d, want %d", len(wave), size)
	}
	if wave[0] != 0 {
		t.Errorf("first sample = %g, want 0 phase", wave[0])
	}
	// One full period is sampleRate/frequency = 100 samples.
	if got := float64(wave[100]); math.Abs(got) > 1e-4 {
		t.Errorf("sample at one period = %g, want ~0", got)
	}
	// Peak amplitude stays at the 0.9 headroom.
	var peak float32
	for _, s := range wave {
		if s > peak {
			peak = s
		}
	}
	if math.Abs(float64(peak)-0.9) > 0.01 {
		t.Errorf("peak = %g, want ~0.9", peak)
	}
}

func TestGenerateComplexWaveStaysInRange(t *testing.T) {
	for i, s := range GenerateComplexWave(2048, 44100) {
		if s > 1 || s < -1 {
			t.Fatalf("sample %d = %g, out of [-1, 1]", i, s)
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	mags := make([]float64, 128)
	for i := range mags {
		mags[i] = math.Exp(-0.01 * math.Pow(float64(i-32), 2))
	}

	tests := []struct {
		name     string
		startBin int
		endBin   int
		want     int
	}{
		{"Full range", 0, 127, 32},
		{"Clamped negative start", -10, 127, 32},
		{"Clamped oversized end", 0, 500, 32},
		{"Window excluding the peak", 64, 127, 64},
		{"Single bin", 10, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(mags, tt.startBin, tt.endBin); got != tt.want {
				t.Errorf("FindPeakBin(%d, %d) = %d, want %d", tt.startBin, tt.endBin, got, tt.want)
			}
		})
	}
}

func TestFindPeakBinEmpty(t *testing.T) {
	if got := FindPeakBin(nil, 0, 10); got != 0 {
		t.Errorf("FindPeakBin(nil) = %d, want 0", got)
	}
}
