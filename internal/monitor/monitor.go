// SPDX-License-Identifier: MIT
/*
Package monitor implements the error monitor: a best-effort goroutine that
sleeps until some overrun counter may have changed, then diffs every counter
against its last snapshot and reports the deltas. It never runs on a
real-time path and never holds a lock a producer depends on; producers only
ever touch an atomic counter and a non-blocking channel send.
*/
package monitor

import (
	"context"

	applog "spectra/internal/log"
	"spectra/pkg/history"

	"github.com/prometheus/client_golang/prometheus"
)

type tap struct {
	name    string
	counter *history.OverrunCounter
	seen    uint64
}

// Monitor watches overrun counters from all hand-off points.
type Monitor struct {
	taps     []tap
	wake     chan struct{}
	registry *prometheus.Registry
	overruns *prometheus.CounterVec
}

// New creates a monitor with its own metrics registry.
func New() *Monitor {
	registry := prometheus.NewRegistry()
	overruns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spectra_overruns_total",
		Help: "Items lost at a pipeline hand-off point because the producer outran a consumer.",
	}, []string{"handoff"})
	registry.MustRegister(overruns)
	return &Monitor{
		wake:     make(chan struct{}, 1),
		registry: registry,
		overruns: overruns,
	}
}

// Register adds a named hand-off counter. Call before Run; the tap list is
// immutable while the monitor is running.
func (m *Monitor) Register(name string, c *history.OverrunCounter) {
	m.taps = append(m.taps, tap{name: name, counter: c})
	m.overruns.WithLabelValues(name) // pre-create so the series exists at zero
}

// Poke signals that some counter may have changed. Safe from any context,
// including the audio callback: a single non-blocking channel send.
func (m *Monitor) Poke() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Registry exposes the metrics registry for the /metrics endpoint.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Run blocks until poked, reports counter deltas, and goes back to waiting,
// until ctx is cancelled. A final scan on shutdown flushes anything pending.
func (m *Monitor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.scan()
			return
		case <-m.wake:
			m.scan()
		}
	}
}

// scan emits one log line per counter that increased since the last scan.
func (m *Monitor) scan() {
	for i := range m.taps {
		t := &m.taps[i]
		v := t.counter.Load()
		if v > t.seen {
			delta := v - t.seen
			applog.Warnf("Monitor: overrun at %s: %d items lost (total %d)", t.name, delta, v)
			m.overruns.WithLabelValues(t.name).Add(float64(delta))
			t.seen = v
		}
	}
}
