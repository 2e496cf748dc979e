// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"time"
)

// Core configuration constants that define the boundaries and defaults
// for the analysis pipeline.
const (
	// Default values
	DefaultInputDevice     = MinDeviceID // System default input device
	DefaultSampleRate      = 44100       // CD-quality audio
	DefaultFramesPerBuffer = 512         // Granularity of the audio callback
	DefaultInputChannels   = 1           // Mono analysis
	DefaultLowLatency      = false       // Standard latency mode
	DefaultHistoryPeriods  = 4           // Audio history, in DSP periods of headroom

	DefaultDSPPeriod       = 20 * time.Millisecond // Nominal DSP cycle
	DefaultWindow          = "rectangular"         // Minimal configuration window
	DefaultResolution      = 20.0                  // Frequency resolution at the low end (Hz)
	DefaultDecimations     = 0                     // Single-FFT analysis unless asked otherwise
	DefaultBlendRamp       = "linear"              // Cross-fade between decimation levels
	DefaultNoiseFilter     = "none"                // Temporal smoothing off
	DefaultSpectrumDepth   = 1                     // Rows of smoothing for the live line
	DefaultSpectrogramDep  = 1                     // Rows of smoothing for the scrolling view
	DefaultDisplayMode     = "console"             // console | tui | none
	DefaultRefreshInterval = 16 * time.Millisecond // ~60 Hz presentation tick
	DefaultHistoryRows     = 256                   // Visible span of the row history
	DefaultRowCapacity     = 128                   // DSP->presentation ring capacity
	DefaultBitDepth        = 24                    // Sets the displayed noise floor
	DefaultTrackedHz       = 1000.0                // Bin dumped by the console view

	// Hardware and processing limits
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxBufferFrames = 8192   // Maximum frames per buffer
	MaxDecimations  = 8      // Each decimation halves the FFT, 8 is plenty
	MaxHistoryRows  = 8192   // Upper bound for presentation history resize
)

// Config holds all runtime configuration, loaded from YAML and/or flags.
type Config struct {
	Debug    bool   `yaml:"debug"`             // Verbose logging and debug features
	LogLevel string `yaml:"log_level"`         // "debug", "info", "warn", "error"
	Command  string `yaml:"command,omitempty"` // One-off command (e.g. "list") instead of running

	Audio     AudioConfig     `yaml:"audio"`
	DSP       DSPConfig       `yaml:"dsp"`
	Display   DisplayConfig   `yaml:"display"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings for the ingest stage.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default)
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Samples delivered per audio callback
	InputChannels   int     `yaml:"input_channels"`    // Channels captured; analysis uses channel 0
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from PortAudio
	InputFile       string  `yaml:"input_file"`        // WAV file to replay instead of a live device
	HistoryPeriods  int     `yaml:"history_periods"`   // Audio ring headroom in DSP periods
}

// DSPConfig holds settings for the analysis stage.
type DSPConfig struct {
	Period           time.Duration `yaml:"period"`            // DSP cycle length
	Window           string        `yaml:"window"`            // rectangular | hann | hamming | blackman | nuttall
	Resolution       float64       `yaml:"resolution"`        // Frequency resolution at the low end (Hz)
	Decimations      int           `yaml:"decimations"`       // Extra half-length FFT levels (0 = single FFT)
	BlendRamp        string        `yaml:"blend_ramp"`        // linear | smoothstep
	NoiseFilter      string        `yaml:"noise_filter"`      // none | mean | median
	SpectrumDepth    int           `yaml:"spectrum_depth"`    // Smoothing depth for the live spectrum
	SpectrogramDepth int           `yaml:"spectrogram_depth"` // Smoothing depth for the spectrogram
	RowCapacity      int           `yaml:"row_capacity"`      // DSP->presentation ring capacity (rows)
}

// DisplayConfig holds settings for the presentation stage.
type DisplayConfig struct {
	Mode            string        `yaml:"mode"`             // console | tui | none
	RefreshInterval time.Duration `yaml:"refresh_interval"` // Presentation tick period
	HistoryRows     int           `yaml:"history_rows"`     // Visible time-span of the row history
	BitDepth        int           `yaml:"bit_depth"`        // Source bit depth, sets the dB noise floor
	TrackedHz       float64       `yaml:"tracked_hz"`       // Frequency the console view dumps
}

// TransportConfig holds settings for streaming rows off the box.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve rows over websocket
	WSAddr           string        `yaml:"ws_addr"`            // Websocket/metrics listen address
	MetricsEnabled   bool          `yaml:"metrics_enabled"`    // Expose overrun counters at /metrics
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send binary row packets over UDP
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets
}

// NewConfig returns a Config populated with defaults, the base for YAML,
// environment and flag overrides.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultInputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			InputChannels:   DefaultInputChannels,
			LowLatency:      DefaultLowLatency,
			HistoryPeriods:  DefaultHistoryPeriods,
		},
		DSP: DSPConfig{
			Period:           DefaultDSPPeriod,
			Window:           DefaultWindow,
			Resolution:       DefaultResolution,
			Decimations:      DefaultDecimations,
			BlendRamp:        DefaultBlendRamp,
			NoiseFilter:      DefaultNoiseFilter,
			SpectrumDepth:    DefaultSpectrumDepth,
			SpectrogramDepth: DefaultSpectrogramDep,
			RowCapacity:      DefaultRowCapacity,
		},
		Display: DisplayConfig{
			Mode:            DefaultDisplayMode,
			RefreshInterval: DefaultRefreshInterval,
			HistoryRows:     DefaultHistoryRows,
			BitDepth:        DefaultBitDepth,
			TrackedHz:       DefaultTrackedHz,
		},
		Transport: TransportConfig{
			WSEnabled:        false,
			WSAddr:           "127.0.0.1:8080",
			MetricsEnabled:   true,
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond,
		},
	}
}

// BlockDuration returns the wall-clock time covered by one audio callback.
func (a *AudioConfig) BlockDuration() time.Duration {
	return time.Duration(float64(a.FramesPerBuffer) / a.SampleRate * float64(time.Second))
}

// NoiseFloorDB returns the dBFS value of the quantization noise floor for the
// configured bit depth: -20 * bitDepth * log10(2), so ~-144 dB at 24 bit.
func (d *DisplayConfig) NoiseFloorDB() float64 {
	return -20 * float64(d.BitDepth) * math.Log10(2)
}

// Validate checks ranges and cross-field consistency. The one fatal
// cross-stage condition (DSP period vs audio delivery rate) is re-checked by
// the DSP engine constructor so it cannot be bypassed.
func (c *Config) Validate() error {
	a := &c.Audio
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f Hz out of range [%d, %d]", a.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if a.FramesPerBuffer <= 0 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d out of range (0, %d]", a.FramesPerBuffer, MaxBufferFrames)
	}
	if a.InputChannels < 1 {
		return fmt.Errorf("audio.input_channels must be at least 1, got %d", a.InputChannels)
	}
	if a.HistoryPeriods < 2 {
		return fmt.Errorf("audio.history_periods must be at least 2, got %d", a.HistoryPeriods)
	}

	d := &c.DSP
	if d.Period <= 0 {
		return fmt.Errorf("dsp.period must be positive, got %s", d.Period)
	}
	if d.Resolution <= 0 {
		return fmt.Errorf("dsp.resolution must be positive, got %f", d.Resolution)
	}
	if d.Decimations < 0 || d.Decimations > MaxDecimations {
		return fmt.Errorf("dsp.decimations %d out of range [0, %d]", d.Decimations, MaxDecimations)
	}
	if d.SpectrumDepth < 1 || d.SpectrogramDepth < 1 {
		return fmt.Errorf("dsp noise filter depths must be at least 1, got %d/%d", d.SpectrumDepth, d.SpectrogramDepth)
	}
	if d.RowCapacity < 2 {
		return fmt.Errorf("dsp.row_capacity must be at least 2, got %d", d.RowCapacity)
	}

	disp := &c.Display
	switch disp.Mode {
	case "console", "tui", "none":
	default:
		return fmt.Errorf("display.mode must be console, tui or none, got %q", disp.Mode)
	}
	if disp.RefreshInterval <= 0 {
		return fmt.Errorf("display.refresh_interval must be positive, got %s", disp.RefreshInterval)
	}
	if disp.HistoryRows < 2 || disp.HistoryRows > MaxHistoryRows {
		return fmt.Errorf("display.history_rows %d out of range [2, %d]", disp.HistoryRows, MaxHistoryRows)
	}
	if disp.BitDepth < 8 || disp.BitDepth > 32 {
		return fmt.Errorf("display.bit_depth %d out of range [8, 32]", disp.BitDepth)
	}

	t := &c.Transport
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if t.WSEnabled && t.WSAddr == "" {
		return fmt.Errorf("transport.ws_addr must be set when the websocket feed is enabled")
	}

	return nil
}
