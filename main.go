// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"spectra/cmd"
	"spectra/internal/audio"
	"spectra/internal/config"
	"spectra/internal/display"
	"spectra/internal/dsp"
	applog "spectra/internal/log"
	"spectra/internal/monitor"
	"spectra/internal/transport"
	"spectra/internal/transport/udp"
	"spectra/internal/tui"
	"spectra/pkg/build"
	"spectra/pkg/history"
)

// main is the entry point for the spectral analysis pipeline.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Initialize PortAudio when a live device is involved
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the audio source feeding the ingest ring
//   - Start the DSP engine and the error monitor
//   - Start the configured presentation and transport consumers
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the source, drain the consumers, clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	build.Initialize()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// Help or version output already handled.
		return
	}

	if cfg.Debug {
		applog.SetLevel(applog.LevelDebug)
	} else if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	// PortAudio is only needed for live capture and device listing; WAV
	// replay runs without it.
	needPortAudio := cfg.Command == "list" || cfg.Audio.InputFile == ""
	if needPortAudio {
		if err := audio.Initialize(); err != nil {
			applog.Fatalf("%v", err)
		}
		defer audio.Terminate()
	}

	if cfg.Command == "list" {
		if cfg.Display.Mode == "tui" {
			err = tui.StartDeviceListUI()
		} else {
			err = audio.ListDevices()
		}
		if err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

// run wires the pipeline together and blocks until shutdown.
func run(cfg *config.Config) error {
	mon := monitor.New()

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	// Source first: WAV replay fixes the sample rate before any
	// rate-derived sizing happens.
	var ingest *audio.Ingest
	handler := func(b audio.SampleBlock) { ingest.OnBlock(b) }

	var source audio.Source
	if cfg.Audio.InputFile != "" {
		fileSource, err := audio.NewFileSource(cfg.Audio.InputFile, cfg.Audio.FramesPerBuffer, handler)
		if err != nil {
			return err
		}
		cfg.Audio.SampleRate = fileSource.SampleRate()
		source = fileSource
	} else {
		captureSource, err := audio.NewCaptureSource(&cfg.Audio, handler)
		if err != nil {
			return err
		}
		source = captureSource
	}

	// Size the audio history to one analysis window plus the configured
	// number of DSP periods of headroom.
	windowLen := dsp.FFTLenForResolution(cfg.DSP.Resolution, cfg.Audio.SampleRate)
	samplesPerCycle := int(cfg.DSP.Period.Seconds() * cfg.Audio.SampleRate)
	hist := history.New[float32](windowLen + cfg.Audio.HistoryPeriods*samplesPerCycle)

	audioOverruns := &history.OverrunCounter{}
	mon.Register("audio->dsp", audioOverruns)
	ingest = audio.NewIngest(hist, cfg.Audio.FramesPerBuffer, audioOverruns, mon.Poke)

	engine, err := dsp.NewEngine(cfg, ingest, mon.Poke)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go mon.Run(ctx)
	go engine.Run(ctx)

	if err := source.Start(); err != nil {
		return err
	}
	defer source.Stop()

	// Transport consumers, each with its own read position and counter.
	newConsumer := func(name string, ring *history.RingHistory[dsp.SpectralRow], span int) *display.Consumer {
		counter := &history.OverrunCounter{}
		mon.Register(name, counter)
		return display.NewConsumer(ring, engine.BinCount(), span, config.MaxHistoryRows, counter, mon.Poke)
	}

	if cfg.Transport.WSEnabled {
		var registry = mon.Registry()
		if !cfg.Transport.MetricsEnabled {
			registry = nil
		}
		wst := transport.NewWebSocketTransport(cfg.Transport.WSAddr, registry)
		defer wst.Close()

		publisher, err := transport.NewRowPublisher(cfg.Display.RefreshInterval,
			newConsumer("dsp->websocket", engine.Rows(), cfg.DSP.RowCapacity), wst)
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Stop()
	} else if cfg.Transport.MetricsEnabled {
		ms := transport.NewMetricsServer(cfg.Transport.WSAddr, mon.Registry())
		defer ms.Close()
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		defer sender.Close()

		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender,
			newConsumer("dsp->udp", engine.Rows(), cfg.DSP.RowCapacity))
		if err != nil {
			return err
		}
		publisher.Start()
		defer publisher.Stop()
	}

	floorDB := cfg.Display.NoiseFloorDB()

	switch cfg.Display.Mode {
	case "console":
		console := display.NewConsole(
			newConsumer("dsp->console", engine.Rows(), cfg.Display.HistoryRows),
			cfg.Display.RefreshInterval, cfg.Display.TrackedHz, engine.BinWidth(), floorDB, 0)
		go console.Run(ctx)
		fmt.Printf("Analyzing. '%s --help' for usage information.\n", build.GetBuildFlags().Name)
		<-ctx.Done()

	case "tui":
		live := newConsumer("dsp->spectrum", engine.Live(), 4)
		gram := newConsumer("dsp->spectrogram", engine.Rows(), cfg.Display.HistoryRows)
		if err := tui.StartSpectrumUI(live, gram, engine.BinWidth(), floorDB, cfg.Display.RefreshInterval); err != nil {
			return err
		}

	default:
		fmt.Printf("Analyzing headless. '%s --help' for usage information.\n", build.GetBuildFlags().Name)
		<-ctx.Done()
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	applog.Infof("Shutting down")
	return nil
}
