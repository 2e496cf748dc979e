// SPDX-License-Identifier: MIT
/*
Package history implements the lock-free hand-off structure connecting the
pipeline stages: a fixed-capacity ring that retains the last C written items
and lets readers detect exactly how many items they missed.

Thread Safety:
- Exactly one writer, any number of independent readers
- The writer reserves slots before filling them and publishes them with a
  single atomic store of the write counter afterwards; readers re-load the
  reservation counter after copying to detect slots the writer started
  reclaiming mid-read, published or not
- No locks, no allocation after construction
*/
package history

import (
	"spectra/pkg/bitint"
	"sync/atomic"
)

// readRetries bounds how often a reader restarts after being lapped by the
// writer mid-copy. Past this the reader gives up and reports total loss,
// keeping readout latency bounded.
const readRetries = 4

// RingHistory is a single-writer, multi-reader circular buffer over a
// pre-allocated arena of slots. The write counter is absolute and
// process-lifetime monotonic: it never wraps with the physical slot index.
type RingHistory[T any] struct {
	slots  []T
	mask   uint64
	writes atomic.Uint64

	// reserve is one past the highest index any write has started filling.
	// It runs ahead of writes while a write is in flight and equals it when
	// the writer is quiescent. Readers validate against reserve, not writes:
	// a slot is unsafe as soon as its overwrite has begun, not when it is
	// published.
	reserve atomic.Uint64
}

// New creates a RingHistory with at least the requested capacity, rounded up
// to the next power of two for cheap slot indexing. Capacity is fixed for the
// lifetime of the instance; resizing means building a new ring off the
// real-time path and swapping it in at a safe point.
func New[T any](capacity int) *RingHistory[T] {
	c := bitint.NextPowerOfTwo(capacity)
	if c < 2 {
		c = 2
	}
	return &RingHistory[T]{
		slots: make([]T, c),
		mask:  uint64(c - 1),
	}
}

// InitSlots runs init on every slot of the arena. Called once at construction
// time to pre-allocate slot payloads (e.g. per-row bin slices) so that
// WriteWith never allocates on the hot path.
func (h *RingHistory[T]) InitSlots(init func(*T)) {
	for i := range h.slots {
		init(&h.slots[i])
	}
}

// Capacity returns the number of slots in the arena.
func (h *RingHistory[T]) Capacity() int {
	return len(h.slots)
}

// WriteCount returns the absolute number of items ever written. The absolute
// index of the most recent item is WriteCount()-1.
func (h *RingHistory[T]) WriteCount() uint64 {
	return h.writes.Load()
}

// Write stores one item, overwriting the oldest slot, and returns the
// absolute index assigned to it. O(1), never blocks, never allocates.
func (h *RingHistory[T]) Write(v T) uint64 {
	w := h.writes.Load()
	h.reserve.Store(w + 1)
	h.slots[w&h.mask] = v
	h.writes.Store(w + 1)
	return w
}

// WriteSlice stores a batch of items with a single counter advance at the
// end, so readers observe the whole batch or none of it. Returns the write
// count after the batch.
func (h *RingHistory[T]) WriteSlice(vs []T) uint64 {
	w := h.writes.Load()
	h.reserve.Store(w + uint64(len(vs)))
	for i := range vs {
		h.slots[(w+uint64(i))&h.mask] = vs[i]
	}
	w += uint64(len(vs))
	h.writes.Store(w)
	return w
}

// WriteWith fills the next slot in place through fill and publishes it.
// Intended for slot types carrying pre-allocated slices, where assignment
// would alias or allocate. Returns the absolute index assigned to the item.
func (h *RingHistory[T]) WriteWith(fill func(*T)) uint64 {
	w := h.writes.Load()
	h.reserve.Store(w + 1)
	fill(&h.slots[w&h.mask])
	h.writes.Store(w + 1)
	return w
}

// ReadSince copies every item newer than the lastSeen write count that is
// still present into dst, oldest first. It returns the number of items
// copied, how many newer items were already overwritten (or did not fit in
// dst, oldest dropped first), and the write count observed, which becomes the
// caller's next lastSeen.
//
// deepCopy, when non-nil, is used instead of plain assignment so that items
// carrying slices land in reader-owned storage. After copying, the
// reservation counter is re-checked: items whose slot the writer started
// reclaiming mid-copy, even for a write not yet published, are discarded and
// the read is retried against the newer window.
//
// A caller that polls at least once every Capacity() writes always observes
// missed == 0.
func (h *RingHistory[T]) ReadSince(lastSeen uint64, dst []T, deepCopy func(dst, src *T)) (n int, missed uint64, newest uint64) {
	for attempt := 0; attempt < readRetries; attempt++ {
		w := h.writes.Load()
		if w <= lastSeen {
			return 0, 0, w
		}
		start := lastSeen
		if w-start > uint64(len(h.slots)) {
			start = w - uint64(len(h.slots))
		}
		if w-start > uint64(len(dst)) {
			start = w - uint64(len(dst))
		}
		count := int(w - start)
		for i := 0; i < count; i++ {
			src := &h.slots[(start+uint64(i))&h.mask]
			if deepCopy != nil {
				deepCopy(&dst[i], src)
			} else {
				dst[i] = *src
			}
		}
		// Safe only if no write, published or still in flight, has reached
		// the slot holding the oldest item we copied. A write of index i
		// reclaims the slot of index i-C, so the window [start, w) is intact
		// exactly when every started write index is below start+C.
		if r := h.reserve.Load(); r <= start+uint64(len(h.slots)) {
			return count, start - lastSeen, w
		}
	}
	// Persistently lapped; report everything since lastSeen as lost.
	w := h.writes.Load()
	return 0, w - lastSeen, w
}
