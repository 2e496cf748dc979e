// SPDX-License-Identifier: MIT
package display

import (
	"math"
	"testing"

	"spectra/pkg/history"
)

func TestSparkChar(t *testing.T) {
	const floorDB = -144.0
	tests := []struct {
		name string
		db   float64
		want rune
	}{
		{"Gap", math.Inf(-1), ' '},
		{"At the floor", floorDB, ' '},
		{"Below the floor", -200, ' '},
		{"Full scale", 0, '█'},
		{"Above full scale", 6, '█'},
		{"Midway", -72, '▄'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sparkChar(tt.db, floorDB); got != tt.want {
				t.Errorf("sparkChar(%g) = %q, want %q", tt.db, got, tt.want)
			}
		})
	}
}

func TestSparkCharMonotonic(t *testing.T) {
	const floorDB = -144.0
	prev := sparkChar(floorDB, floorDB)
	for db := floorDB; db <= 0; db += 1 {
		got := sparkChar(db, floorDB)
		if got < prev {
			t.Fatalf("sparkline not monotonic at %g dB", db)
		}
		prev = got
	}
}

func TestNewConsoleTracksNearestBin(t *testing.T) {
	ring := newTestRing(8)
	c := NewConsumer(ring, testBinCount, 4, 16, &history.OverrunCounter{}, nil)

	// binWidth 250 Hz, tracking 1000 Hz → bin 4 clamps to the top bin 3.
	console := NewConsole(c, 0, 1000, 250, -144, 0)
	if console.bin != testBinCount-1 {
		t.Errorf("tracked bin = %d, want clamped to %d", console.bin, testBinCount-1)
	}

	// 620 Hz rounds to bin 2 at 250 Hz spacing.
	console = NewConsole(c, 0, 620, 250, -144, 0)
	if console.bin != 2 {
		t.Errorf("tracked bin = %d, want 2", console.bin)
	}
	if console.trackedHz != 500 {
		t.Errorf("reported frequency = %g, want the bin center 500", console.trackedHz)
	}
}
