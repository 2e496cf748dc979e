// SPDX-License-Identifier: MIT
package display

import (
	"context"
	"math"
	"strings"
	"time"

	applog "spectra/internal/log"
)

// sparkline covers the dB range from the noise floor to full scale in eight
// visible steps.
var sparkline = []rune(" ▁▂▃▄▅▆▇█")

// gapMarker renders a row that was lost at a hand-off point. It must be
// visually distinct from every amplitude level.
const gapMarker = '·'

// Console is the headless presentation: on a fixed tick it drains its
// consumer and logs one line with the recent history of a single tracked
// frequency bin. Lost rows appear as gap markers, never as stale values.
type Console struct {
	consumer  *Consumer
	interval  time.Duration
	bin       int
	trackedHz float64
	floorDB   float64
	width     int
	line      strings.Builder
}

// NewConsole tracks the bin nearest trackedHz. width is the number of
// history columns per dumped line.
func NewConsole(consumer *Consumer, interval time.Duration, trackedHz, binWidth, floorDB float64, width int) *Console {
	bin := int(trackedHz/binWidth + 0.5)
	if bin >= consumer.BinCount() {
		bin = consumer.BinCount() - 1
	}
	if width < 1 {
		width = 60
	}
	return &Console{
		consumer:  consumer,
		interval:  interval,
		bin:       bin,
		trackedHz: float64(bin) * binWidth,
		floorDB:   floorDB,
		width:     width,
	}
}

// Run dumps one line per tick until ctx is cancelled.
func (c *Console) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Console) tick() {
	fresh, missed := c.consumer.Refresh()
	if fresh == 0 && missed == 0 {
		// Underrun: the DSP stage produced nothing since the last tick.
		applog.Debugf("Console: no new rows since last refresh")
		return
	}

	n := c.consumer.Len()
	start := n - c.width
	if start < 0 {
		start = 0
	}

	c.line.Reset()
	for i := start; i < n; i++ {
		row := c.consumer.At(i)
		if !row.Valid {
			c.line.WriteRune(gapMarker)
			continue
		}
		c.line.WriteRune(sparkChar(row.Bins[c.bin], c.floorDB))
	}

	latest := c.consumer.Latest()
	applog.Infof("Console: %7.1f Hz |%s| %7.1f dB", c.trackedHz, c.line.String(), latest.Bins[c.bin])
}

// sparkChar maps a dB magnitude onto the sparkline, with the noise floor at
// the bottom step and 0 dBFS at the top.
func sparkChar(db, floorDB float64) rune {
	if math.IsInf(db, -1) || db <= floorDB {
		return sparkline[0]
	}
	if db >= 0 {
		return sparkline[len(sparkline)-1]
	}
	normalized := (db - floorDB) / -floorDB
	idx := int(normalized*float64(len(sparkline)-2)) + 1
	if idx >= len(sparkline) {
		idx = len(sparkline) - 1
	}
	return sparkline[idx]
}
