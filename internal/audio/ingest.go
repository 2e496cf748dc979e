// SPDX-License-Identifier: MIT
/*
Package audio implements the ingest stage of the pipeline:
- Lock-free capture from a PortAudio input stream or a WAV replay source
- Fixed-size sample blocks forwarded into the audio history ring
- Producer-side overrun accounting when the DSP stage falls behind

Thread Safety:
- The block handler runs on the audio callback thread and must stay
  allocation-free and non-blocking
- All cross-thread state is atomic; no locks on the delivery path
*/
package audio

import (
	"sync/atomic"

	"spectra/pkg/history"
)

// SampleBlock is one audio-boundary delivery: a fixed-length run of samples
// plus the channel count and sample rate. Blocks are never mutated after
// creation; consumers copy out of them.
type SampleBlock struct {
	Samples    []float32 // Interleaved when Channels > 1
	Channels   int
	SampleRate float64
}

// BlockHandler receives one SampleBlock per audio-boundary callback. It must
// complete in bounded time.
type BlockHandler func(SampleBlock)

// Source is a producer of SampleBlocks at a fixed cadence. Start begins
// delivery to the handler given at construction; Stop halts it. Both are
// cold-path operations.
type Source interface {
	Start() error
	Stop() error
	SampleRate() float64
	BlockSize() int
}

// Ingest appends incoming sample blocks to the audio history ring. It tracks
// the DSP drain cursor so that overwriting unread samples is detected on the
// producer side and recorded, without ever stalling the audio boundary.
// A momentary loss under sustained DSP starvation is tolerated, not fatal.
type Ingest struct {
	hist       *history.RingHistory[float32]
	overruns   *history.OverrunCounter
	poke       func() // non-blocking wake of the error monitor, may be nil
	mono       []float32
	readCursor atomic.Uint64 // write count last acknowledged by the DSP drain
}

// NewIngest creates an ingest stage feeding hist. blockSize is the largest
// number of frames a single callback will deliver; the mono scratch buffer is
// sized once here so the hot path never allocates.
func NewIngest(hist *history.RingHistory[float32], blockSize int, overruns *history.OverrunCounter, poke func()) *Ingest {
	return &Ingest{
		hist:     hist,
		overruns: overruns,
		poke:     poke,
		mono:     make([]float32, blockSize),
	}
}

// OnBlock is the BlockHandler for this ingest stage. Multi-channel blocks are
// reduced to channel 0. Runs on the audio callback thread: bounded time, no
// blocking, no allocation.
func (g *Ingest) OnBlock(b SampleBlock) {
	samples := b.Samples
	if b.Channels > 1 {
		frames := len(b.Samples) / b.Channels
		if frames > len(g.mono) {
			frames = len(g.mono)
		}
		for i := 0; i < frames; i++ {
			g.mono[i] = b.Samples[i*b.Channels]
		}
		samples = g.mono[:frames]
	}
	g.push(samples)
}

func (g *Ingest) push(samples []float32) {
	// Producer-side overrun detection: if this write advances past samples
	// the DSP has not drained yet, the excess is lost.
	newCount := g.hist.WriteCount() + uint64(len(samples))
	if lag := newCount - g.readCursor.Load(); lag > uint64(g.hist.Capacity()) {
		over := lag - uint64(g.hist.Capacity())
		if over > uint64(len(samples)) {
			over = uint64(len(samples))
		}
		g.overruns.Add(over)
		if g.poke != nil {
			g.poke()
		}
	}
	g.hist.WriteSlice(samples)
}

// MarkRead records the newest write count the DSP drain has observed. Called
// from the DSP goroutine after each drain.
func (g *Ingest) MarkRead(newest uint64) {
	g.readCursor.Store(newest)
}

// History exposes the ring the DSP stage drains from.
func (g *Ingest) History() *history.RingHistory[float32] {
	return g.hist
}
