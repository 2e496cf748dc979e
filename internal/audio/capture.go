// SPDX-License-Identifier: MIT
package audio

import (
	"runtime"
	"time"

	"spectra/internal/config"

	"github.com/gordonklaus/portaudio"
)

// CaptureSource delivers SampleBlocks from a live PortAudio input stream.
type CaptureSource struct {
	cfg          *config.AudioConfig
	handler      BlockHandler
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	block        SampleBlock
}

// NewCaptureSource resolves the configured input device and prepares a
// capture stream. The stream is not started yet.
func NewCaptureSource(cfg *config.AudioConfig, handler BlockHandler) (*CaptureSource, error) {
	inputDevice, err := InputDevice(cfg.InputDevice)
	if err != nil {
		return nil, err
	}

	s := &CaptureSource{
		cfg:         cfg,
		handler:     handler,
		inputDevice: inputDevice,
		block: SampleBlock{
			Channels:   cfg.InputChannels,
			SampleRate: cfg.SampleRate,
		},
	}

	if cfg.LowLatency {
		s.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		s.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return s, nil
}

// Start opens the PortAudio stream and begins callback delivery. The first
// callback marks the start of the hot path.
func (s *CaptureSource) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: s.cfg.InputChannels,
			Device:   s.inputDevice,
			Latency:  s.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // Capture only
			Device:   nil,
		},
		FramesPerBuffer: s.cfg.FramesPerBuffer,
		SampleRate:      s.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.processInputStream)
	if err != nil {
		return err
	}
	s.inputStream = stream

	if err := s.inputStream.Start(); err != nil {
		s.inputStream.Close()
		return err
	}

	return nil
}

// Stop halts and closes the stream. Safe to call when never started.
func (s *CaptureSource) Stop() error {
	if s.inputStream != nil {
		if err := s.inputStream.Stop(); err != nil {
			return err
		}
		if err := s.inputStream.Close(); err != nil {
			return err
		}
		s.inputStream = nil
	}
	return nil
}

// SampleRate returns the configured capture rate in Hz.
func (s *CaptureSource) SampleRate() float64 { return s.cfg.SampleRate }

// BlockSize returns the number of frames per callback.
func (s *CaptureSource) BlockSize() int { return s.cfg.FramesPerBuffer }

// processInputStream is the audio-boundary callback.
// Performance Critical:
// - Runs on a dedicated OS thread (LockOSThread)
// - Reuses the pre-built SampleBlock header
// - No dynamic allocations in the hot path
func (s *CaptureSource) processInputStream(in []float32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	s.block.Samples = in
	s.handler(s.block)
}
