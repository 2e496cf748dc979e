// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync"
	"time"

	applog "spectra/internal/log"

	"github.com/go-audio/wav"
)

// FileSource replays a WAV file as if it were a live device: fixed-size
// blocks delivered on a real-time ticker at the file's sample rate. Used for
// headless runs and end-to-end testing. Decoding happens entirely at
// construction time, off the delivery path.
type FileSource struct {
	handler    BlockHandler
	samples    []float32
	channels   int
	sampleRate float64
	blockSize  int

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFileSource decodes the WAV file at path and prepares block delivery
// with blockSize frames per block.
func NewFileSource(path string, blockSize int, handler BlockHandler) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%s: missing or invalid WAV format chunk", path)
	}

	bitDepth := int(decoder.BitDepth)
	if buf.SourceBitDepth > 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, bitDepth)
	}

	// Scale integer PCM to [-1, 1) explicitly.
	scale := 1.0 / float32(uint64(1)<<(bitDepth-1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) * scale
	}

	applog.Infof("FileSource: Loaded %s (%d frames, %d ch, %d Hz, %d bit)",
		path, buf.NumFrames(), buf.Format.NumChannels, buf.Format.SampleRate, bitDepth)

	return &FileSource{
		handler:    handler,
		samples:    samples,
		channels:   buf.Format.NumChannels,
		sampleRate: float64(buf.Format.SampleRate),
		blockSize:  blockSize,
	}, nil
}

// NewSilentSource returns a FileSource-shaped producer of all-zero blocks,
// handy when no device and no file are available.
func NewSilentSource(sampleRate float64, channels, blockSize, blocks int, handler BlockHandler) *FileSource {
	return &FileSource{
		handler:    handler,
		samples:    make([]float32, blocks*blockSize*channels),
		channels:   channels,
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

// Start begins block delivery on a ticker matching the block duration.
// Delivery stops at end of file.
func (s *FileSource) Start() error {
	period := time.Duration(float64(s.blockSize) / s.sampleRate * float64(time.Second))
	s.ticker = time.NewTicker(period)
	s.doneChan = make(chan struct{})
	s.stopOnce = sync.Once{}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		offset := 0
		stride := s.blockSize * s.channels
		for {
			select {
			case <-s.doneChan:
				return
			case <-s.ticker.C:
				if offset+stride > len(s.samples) {
					applog.Infof("FileSource: Replay finished (%d samples delivered)", offset)
					return
				}
				s.handler(SampleBlock{
					Samples:    s.samples[offset : offset+stride],
					Channels:   s.channels,
					SampleRate: s.sampleRate,
				})
				offset += stride
			}
		}
	}()

	return nil
}

// Stop halts delivery and waits for the replay goroutine to exit.
func (s *FileSource) Stop() error {
	if s.ticker == nil {
		return nil
	}
	s.stopOnce.Do(func() {
		s.ticker.Stop()
		close(s.doneChan)
	})
	s.wg.Wait()
	return nil
}

// SampleRate returns the file's sample rate in Hz.
func (s *FileSource) SampleRate() float64 { return s.sampleRate }

// BlockSize returns the number of frames per delivered block.
func (s *FileSource) BlockSize() int { return s.blockSize }
