// SPDX-License-Identifier: MIT
package history

import "sync/atomic"

// OverrunCounter records data loss at one hand-off point. It only ever
// increases. The stage that detects the loss adds to it; the error monitor
// reads it asynchronously. Safe for concurrent use, never blocks.
type OverrunCounter struct {
	n atomic.Uint64
}

// Add records delta lost items.
func (c *OverrunCounter) Add(delta uint64) {
	if delta > 0 {
		c.n.Add(delta)
	}
}

// Load returns the total number of items lost so far.
func (c *OverrunCounter) Load() uint64 {
	return c.n.Load()
}
