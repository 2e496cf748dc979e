// SPDX-License-Identifier: MIT
/*
Package dsp implements the analysis stage of the pipeline: a single
goroutine on a periodic timer that drains the audio history, runs windowed
multi-resolution FFT analysis, cross-fades the resolutions, applies temporal
noise reduction, and publishes one SpectralRow per cycle into the
presentation hand-off rings.

Thread Safety:
- All buffers are allocated at construction; the cycle path never allocates
- Cross-thread traffic goes through history.RingHistory and atomic counters
- Misconfiguration is rejected at construction; steady-state overruns are
  counted and reported asynchronously, never fatal
*/
package dsp

import (
	"context"
	"fmt"
	"time"

	"spectra/internal/audio"
	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/pkg/history"
)

// Engine is the DSP stage. One instance, one goroutine, one row published
// per cycle on each hand-off ring.
type Engine struct {
	period time.Duration
	ingest *audio.Ingest

	analyzer *Analyzer
	working  []float64 // sliding window of the most recent samples
	drain    []float32 // scratch for ReadSince, sized to the audio ring

	rowSmooth  *Smoother // spectrogram hand-off smoothing
	liveSmooth *Smoother // instantaneous-spectrum hand-off smoothing
	smoothed   []float64

	rows *history.RingHistory[SpectralRow]
	live *history.RingHistory[SpectralRow]

	lastSeen uint64
	poke     func()
}

// NewEngine validates the configured rates against each other and builds the
// full analysis chain. A DSP period the audio boundary cannot sustain is a
// configuration inconsistency: the constructor refuses, naming both rates,
// and no goroutine is spawned.
func NewEngine(cfg *config.Config, ingest *audio.Ingest, poke func()) (*Engine, error) {
	blockDur := cfg.Audio.BlockDuration()
	if cfg.DSP.Period < blockDur {
		return nil, fmt.Errorf(
			"dsp period %s is shorter than the audio block duration %s (%d frames at %.0f Hz): the audio boundary cannot deliver samples that fast",
			cfg.DSP.Period, blockDur, cfg.Audio.FramesPerBuffer, cfg.Audio.SampleRate)
	}

	windowType, err := ParseWindowFunc(cfg.DSP.Window)
	if err != nil {
		return nil, err
	}
	ramp, err := ParseBlendRamp(cfg.DSP.BlendRamp)
	if err != nil {
		return nil, err
	}

	floorDB := cfg.Display.NoiseFloorDB()
	analyzer, err := NewAnalyzer(cfg.DSP.Resolution, cfg.Audio.SampleRate, cfg.DSP.Decimations, windowType, ramp, floorDB)
	if err != nil {
		return nil, err
	}

	if cfg.Audio.FramesPerBuffer > analyzer.WindowLen()/2 {
		return nil, fmt.Errorf(
			"audio blocks of %d frames overrun half the %d-sample analysis window; lower frames_per_buffer or the frequency resolution",
			cfg.Audio.FramesPerBuffer, analyzer.WindowLen())
	}

	samplesPerCycle := int(cfg.DSP.Period.Seconds() * cfg.Audio.SampleRate)
	if minCap := analyzer.WindowLen() + 2*samplesPerCycle; ingest.History().Capacity() < minCap {
		return nil, fmt.Errorf(
			"audio history of %d samples cannot absorb one %d-sample analysis window plus two %s cycles (%d samples needed)",
			ingest.History().Capacity(), analyzer.WindowLen(), cfg.DSP.Period, minCap)
	}

	rowFilter, err := ParseNoiseFilter(cfg.DSP.NoiseFilter, cfg.DSP.SpectrogramDepth)
	if err != nil {
		return nil, err
	}
	liveFilter, err := ParseNoiseFilter(cfg.DSP.NoiseFilter, cfg.DSP.SpectrumDepth)
	if err != nil {
		return nil, err
	}

	binCount := analyzer.BinCount()
	initRow := func(r *SpectralRow) {
		r.Bins = make([]float64, binCount)
	}
	rows := history.New[SpectralRow](cfg.DSP.RowCapacity)
	rows.InitSlots(initRow)
	live := history.New[SpectralRow](8)
	live.InitSlots(initRow)

	applog.Infof("DSP: Engine ready (period %s, %d level(s), %d bins, floor %.1f dB)",
		cfg.DSP.Period, len(analyzer.Levels()), binCount, floorDB)

	return &Engine{
		period:     cfg.DSP.Period,
		ingest:     ingest,
		analyzer:   analyzer,
		working:    make([]float64, analyzer.WindowLen()),
		drain:      make([]float32, ingest.History().Capacity()),
		rowSmooth:  NewSmoother(rowFilter, cfg.DSP.SpectrogramDepth, binCount),
		liveSmooth: NewSmoother(liveFilter, cfg.DSP.SpectrumDepth, binCount),
		smoothed:   make([]float64, binCount),
		rows:       rows,
		live:       live,
		poke:       poke,
	}, nil
}

// Rows returns the DSP->presentation hand-off ring (spectrogram rows).
func (e *Engine) Rows() *history.RingHistory[SpectralRow] {
	return e.rows
}

// Live returns the instantaneous-spectrum hand-off ring, smoothed at its own
// configured depth.
func (e *Engine) Live() *history.RingHistory[SpectralRow] {
	return e.live
}

// BinCount returns the number of magnitude bins per published row.
func (e *Engine) BinCount() int {
	return e.analyzer.BinCount()
}

// BinWidth returns the row bin spacing in Hz.
func (e *Engine) BinWidth() float64 {
	return e.analyzer.BinWidth()
}

// Run executes DSP cycles on the configured period until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.runCycle()
		}
	}
}

// runCycle is one pass of the state machine: Drain, Window & Transform,
// Decimation blend, Noise reduction, Publish.
func (e *Engine) runCycle() {
	// Drain newly available samples into the sliding working window.
	n, missed, newest := e.ingest.History().ReadSince(e.lastSeen, e.drain, nil)
	e.lastSeen = newest
	e.ingest.MarkRead(newest)
	if missed > 0 {
		// The ingest stage already counted the loss; just wake the monitor
		// in case its producer-side check raced the drain.
		if e.poke != nil {
			e.poke()
		}
	}

	switch {
	case n >= len(e.working):
		off := n - len(e.working)
		for i := range e.working {
			e.working[i] = float64(e.drain[off+i])
		}
	case n > 0:
		copy(e.working, e.working[n:])
		base := len(e.working) - n
		for i := 0; i < n; i++ {
			e.working[base+i] = float64(e.drain[i])
		}
	}

	// Window & Transform + Decimation blend.
	copy(e.analyzer.Input(), e.working)
	raw := e.analyzer.Analyze()

	// Noise reduction and publish, once per hand-off.
	e.rowSmooth.Push(raw)
	e.liveSmooth.Push(raw)

	e.rowSmooth.SmoothInto(e.smoothed)
	e.rows.WriteWith(func(r *SpectralRow) {
		copy(r.Bins, e.smoothed)
		r.Index = e.rows.WriteCount()
		r.Valid = true
	})

	e.liveSmooth.SmoothInto(e.smoothed)
	e.live.WriteWith(func(r *SpectralRow) {
		copy(r.Bins, e.smoothed)
		r.Index = e.live.WriteCount()
		r.Valid = true
	})
}
