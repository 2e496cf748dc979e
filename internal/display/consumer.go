// SPDX-License-Identifier: MIT
/*
Package display implements the presentation side of the pipeline: consumers
that drain the DSP row history on an externally driven cadence, substitute
explicit gap markers for lost rows, and resample the row history into
whatever fixed-size representation a concrete view needs.

Thread Safety:
- Each Consumer belongs to exactly one presentation goroutine
- Resizing builds the replacement history off that goroutine's hot path and
  publishes it with a single atomic pointer swap
*/
package display

import (
	"fmt"
	"math"
	"sync/atomic"

	"spectra/internal/dsp"
	"spectra/pkg/history"
)

// rowBuffer is the consumer's internal circular history, sized to the
// visible time-span. It is replaced wholesale on resize, never mutated by
// two goroutines at once.
type rowBuffer struct {
	rows  []dsp.SpectralRow
	next  int
	count int
}

func newRowBuffer(span, binCount int) *rowBuffer {
	return &rowBuffer{rows: dsp.MakeRows(span, binCount)}
}

func (b *rowBuffer) push(r *dsp.SpectralRow) {
	dsp.CopyRow(&b.rows[b.next], r)
	b.next = (b.next + 1) % len(b.rows)
	if b.count < len(b.rows) {
		b.count++
	}
}

// at returns the i-th retained row, oldest first, i in [0, count).
func (b *rowBuffer) at(i int) *dsp.SpectralRow {
	oldest := b.next - b.count
	if oldest < 0 {
		oldest += len(b.rows)
	}
	return &b.rows[(oldest+i)%len(b.rows)]
}

// Consumer drains a DSP row ring on each presentation tick and maintains the
// visible row history. Lost rows become synthetic invalid rows whose bins are
// -Inf dB, so data loss always renders as a clearly distinguishable gap and
// never as plausible-looking output.
type Consumer struct {
	ring     *history.RingHistory[dsp.SpectralRow]
	binCount int
	maxSpan  int
	lastSeen uint64
	scratch  []dsp.SpectralRow
	gap      dsp.SpectralRow // reusable -Inf row pushed in place of losses
	overruns *history.OverrunCounter
	poke     func()
	buf      atomic.Pointer[rowBuffer]
}

// NewConsumer prepares a consumer over ring with a visible span of span
// rows. overruns records DSP->presentation loss observed by this consumer;
// poke (optional) wakes the error monitor when loss occurs.
func NewConsumer(ring *history.RingHistory[dsp.SpectralRow], binCount, span, maxSpan int, overruns *history.OverrunCounter, poke func()) *Consumer {
	c := &Consumer{
		ring:     ring,
		binCount: binCount,
		maxSpan:  maxSpan,
		scratch:  dsp.MakeRows(ring.Capacity(), binCount),
		gap:      dsp.SpectralRow{Bins: make([]float64, binCount)},
		overruns: overruns,
		poke:     poke,
	}
	for i := range c.gap.Bins {
		c.gap.Bins[i] = math.Inf(-1)
	}
	c.buf.Store(newRowBuffer(span, binCount))
	return c
}

// Refresh drains everything published since the last call. Returns the
// number of valid rows appended and the number of gap rows inserted.
// Called once per presentation tick, on the owning goroutine.
func (c *Consumer) Refresh() (fresh int, missed uint64) {
	n, lost, newest := c.ring.ReadSince(c.lastSeen, c.scratch, dsp.CopyRow)
	c.lastSeen = newest
	if n == 0 && lost == 0 {
		return 0, 0
	}

	buf := c.buf.Load()

	if lost > 0 {
		c.overruns.Add(lost)
		if c.poke != nil {
			c.poke()
		}
		// Insert one synthetic row per lost row, capped at the visible span:
		// anything older would scroll straight out anyway.
		gaps := lost
		if gaps > uint64(len(buf.rows)) {
			gaps = uint64(len(buf.rows))
		}
		firstLost := newest - uint64(n) - lost
		for i := uint64(0); i < gaps; i++ {
			c.gap.Index = firstLost + (lost - gaps) + i
			buf.push(&c.gap)
		}
	}

	for i := 0; i < n; i++ {
		buf.push(&c.scratch[i])
	}
	return n, lost
}

// Span returns the current visible row span.
func (c *Consumer) Span() int {
	return len(c.buf.Load().rows)
}

// Len returns the number of rows currently retained, <= Span().
func (c *Consumer) Len() int {
	return c.buf.Load().count
}

// At returns the i-th retained row, oldest first. The pointer stays valid
// until the next Refresh or Resize on the owning goroutine.
func (c *Consumer) At(i int) *dsp.SpectralRow {
	return c.buf.Load().at(i)
}

// Latest returns the most recent retained row, or nil before the first one.
func (c *Consumer) Latest() *dsp.SpectralRow {
	buf := c.buf.Load()
	if buf.count == 0 {
		return nil
	}
	return buf.at(buf.count - 1)
}

// BinCount returns the number of bins per row.
func (c *Consumer) BinCount() int {
	return c.binCount
}

// Resize changes the visible span, e.g. when the rendering surface changes
// height. The replacement history is built and filled here, off the
// real-time stages, then published with one atomic swap; on allocation or
// bounds failure the previous history stays in service.
func (c *Consumer) Resize(span int) error {
	if span < 2 || span > c.maxSpan {
		return fmt.Errorf("history span %d out of range [2, %d]", span, c.maxSpan)
	}
	old := c.buf.Load()
	if span == len(old.rows) {
		return nil
	}

	next := newRowBuffer(span, c.binCount)
	if old.count > 0 {
		src := make([]dsp.SpectralRow, old.count)
		for i := range src {
			src[i] = *old.at(i) // shallow view is fine, ResampleHistory copies bins
		}
		dstLen := span
		if old.count < span {
			dstLen = old.count
		}
		dst := dsp.MakeRows(dstLen, c.binCount)
		ResampleHistory(src, dst)
		for i := range dst {
			next.push(&dst[i])
		}
	}
	c.buf.Store(next)
	return nil
}
