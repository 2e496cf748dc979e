// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"spectra/pkg/history"
)

func TestIngestWritesMonoBlocks(t *testing.T) {
	hist := history.New[float32](64)
	ingest := NewIngest(hist, 8, &history.OverrunCounter{}, nil)

	block := []float32{0.1, 0.2, 0.3, 0.4}
	ingest.OnBlock(SampleBlock{Samples: block, Channels: 1, SampleRate: 44100})

	dst := make([]float32, 8)
	n, missed, _ := hist.ReadSince(0, dst, nil)
	if n != 4 || missed != 0 {
		t.Fatalf("ReadSince = (%d, %d), want (4, 0)", n, missed)
	}
	for i, want := range block {
		if dst[i] != want {
			t.Errorf("sample %d = %g, want %g", i, dst[i], want)
		}
	}
}

func TestIngestMixesDownToChannelZero(t *testing.T) {
	hist := history.New[float32](64)
	ingest := NewIngest(hist, 8, &history.OverrunCounter{}, nil)

	// Interleaved stereo: channel 0 carries the signal, channel 1 junk.
	interleaved := []float32{0.1, -1, 0.2, -1, 0.3, -1}
	ingest.OnBlock(SampleBlock{Samples: interleaved, Channels: 2, SampleRate: 44100})

	dst := make([]float32, 8)
	n, _, _ := hist.ReadSince(0, dst, nil)
	if n != 3 {
		t.Fatalf("got %d samples, want 3 frames of channel 0", n)
	}
	for i, want := range []float32{0.1, 0.2, 0.3} {
		if dst[i] != want {
			t.Errorf("frame %d = %g, want %g", i, dst[i], want)
		}
	}
}

func TestIngestDetectsOverrun(t *testing.T) {
	hist := history.New[float32](16)
	overruns := &history.OverrunCounter{}
	pokes := 0
	ingest := NewIngest(hist, 8, overruns, func() { pokes++ })

	block := make([]float32, 8)
	// Fill to capacity without the consumer acknowledging anything.
	ingest.OnBlock(SampleBlock{Samples: block, Channels: 1, SampleRate: 44100})
	ingest.OnBlock(SampleBlock{Samples: block, Channels: 1, SampleRate: 44100})
	if overruns.Load() != 0 {
		t.Fatalf("overruns = %d before the ring wrapped, want 0", overruns.Load())
	}

	// The next block overwrites unread samples.
	ingest.OnBlock(SampleBlock{Samples: block, Channels: 1, SampleRate: 44100})
	if overruns.Load() != 8 {
		t.Fatalf("overruns = %d, want 8", overruns.Load())
	}
	if pokes == 0 {
		t.Fatal("overrun did not poke the monitor")
	}

	// Once the consumer catches up the lag clears and writes are clean again.
	ingest.MarkRead(hist.WriteCount())
	ingest.OnBlock(SampleBlock{Samples: block, Channels: 1, SampleRate: 44100})
	if overruns.Load() != 8 {
		t.Fatalf("overruns = %d after the consumer caught up, want still 8", overruns.Load())
	}
}
