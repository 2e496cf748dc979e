// SPDX-License-Identifier: MIT
package cmd

import (
	"os"

	"spectra/internal/config"
	"spectra/pkg/build"

	"github.com/spf13/cobra"
)

// ParseArgs builds the runtime configuration from (lowest to highest
// precedence) defaults, the YAML config file, SPECTRA_* environment
// variables, and command line flags.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	flagCfg := config.NewConfig()

	var configPath string
	var result *config.Config

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Real-time audio spectral analysis",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg, flagCfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			result = cfg
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.NewConfig()
			cfg.Command = "list"
			result = cfg
		},
	}
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file")

	// Audio ingest
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.InputDevice, "device", "d", config.DefaultInputDevice,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().Float64VarP(&flagCfg.Audio.SampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&flagCfg.Audio.FramesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per audio buffer (affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Audio.LowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")
	rootCmd.PersistentFlags().StringVarP(&flagCfg.Audio.InputFile, "input", "i", "",
		"Replay a WAV file instead of capturing from a device")

	// Analysis
	rootCmd.PersistentFlags().DurationVar(&flagCfg.DSP.Period, "period", config.DefaultDSPPeriod,
		"Analysis cycle period")
	rootCmd.PersistentFlags().StringVarP(&flagCfg.DSP.Window, "window", "w", config.DefaultWindow,
		"Window function: rectangular, hann, hamming, blackman, nuttall")
	rootCmd.PersistentFlags().Float64VarP(&flagCfg.DSP.Resolution, "resolution", "r", config.DefaultResolution,
		"Frequency resolution at the low end (Hz)")
	rootCmd.PersistentFlags().IntVar(&flagCfg.DSP.Decimations, "decimations", config.DefaultDecimations,
		"Extra half-length FFT levels for better time resolution up high")
	rootCmd.PersistentFlags().StringVar(&flagCfg.DSP.NoiseFilter, "noise-filter", config.DefaultNoiseFilter,
		"Temporal noise filter: none, mean, median")

	// Presentation
	rootCmd.PersistentFlags().StringVarP(&flagCfg.Display.Mode, "mode", "m", config.DefaultDisplayMode,
		"Display mode: console, tui, none")
	rootCmd.PersistentFlags().DurationVar(&flagCfg.Display.RefreshInterval, "refresh", config.DefaultRefreshInterval,
		"Presentation refresh interval")
	rootCmd.PersistentFlags().Float64Var(&flagCfg.Display.TrackedHz, "tracked-hz", config.DefaultTrackedHz,
		"Frequency the console view tracks")

	// Transport
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Transport.WSEnabled, "ws", false,
		"Serve rows over websocket")
	rootCmd.PersistentFlags().StringVar(&flagCfg.Transport.WSAddr, "ws-addr", "127.0.0.1:8080",
		"Websocket/metrics listen address")
	rootCmd.PersistentFlags().BoolVar(&flagCfg.Transport.UDPEnabled, "udp", false,
		"Send binary row packets over UDP")
	rootCmd.PersistentFlags().StringVar(&flagCfg.Transport.UDPTargetAddress, "udp-addr", "127.0.0.1:9090",
		"Target address for UDP row packets")

	// Debug
	rootCmd.PersistentFlags().BoolVarP(&flagCfg.Debug, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return result, nil
}

// applyFlagOverrides copies explicitly set flag values over the file/env
// configuration. Flags the user did not touch keep whatever the file said.
func applyFlagOverrides(cmd *cobra.Command, cfg, flagCfg *config.Config) {
	overrides := map[string]func(){
		"device":            func() { cfg.Audio.InputDevice = flagCfg.Audio.InputDevice },
		"sample-rate":       func() { cfg.Audio.SampleRate = flagCfg.Audio.SampleRate },
		"frames-per-buffer": func() { cfg.Audio.FramesPerBuffer = flagCfg.Audio.FramesPerBuffer },
		"low-latency":       func() { cfg.Audio.LowLatency = flagCfg.Audio.LowLatency },
		"input":             func() { cfg.Audio.InputFile = flagCfg.Audio.InputFile },
		"period":            func() { cfg.DSP.Period = flagCfg.DSP.Period },
		"window":            func() { cfg.DSP.Window = flagCfg.DSP.Window },
		"resolution":        func() { cfg.DSP.Resolution = flagCfg.DSP.Resolution },
		"decimations":       func() { cfg.DSP.Decimations = flagCfg.DSP.Decimations },
		"noise-filter":      func() { cfg.DSP.NoiseFilter = flagCfg.DSP.NoiseFilter },
		"mode":              func() { cfg.Display.Mode = flagCfg.Display.Mode },
		"refresh":           func() { cfg.Display.RefreshInterval = flagCfg.Display.RefreshInterval },
		"tracked-hz":        func() { cfg.Display.TrackedHz = flagCfg.Display.TrackedHz },
		"ws":                func() { cfg.Transport.WSEnabled = flagCfg.Transport.WSEnabled },
		"ws-addr":           func() { cfg.Transport.WSAddr = flagCfg.Transport.WSAddr },
		"udp":               func() { cfg.Transport.UDPEnabled = flagCfg.Transport.UDPEnabled },
		"udp-addr":          func() { cfg.Transport.UDPTargetAddress = flagCfg.Transport.UDPTargetAddress },
		"verbose":           func() { cfg.Debug = flagCfg.Debug },
	}
	for name, apply := range overrides {
		if cmd.Flags().Changed(name) {
			apply()
		}
	}
}
