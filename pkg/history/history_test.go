// SPDX-License-Identifier: MIT
package history

import "testing"

func TestCapacityRounding(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{1, 2},
		{2, 2},
		{6, 8},
		{8, 8},
		{1000, 1024},
	}

	for _, tt := range tests {
		h := New[int](tt.requested)
		if h.Capacity() != tt.want {
			t.Errorf("New(%d).Capacity() = %d, want %d", tt.requested, h.Capacity(), tt.want)
		}
	}
}

func TestWriteCounterMonotonic(t *testing.T) {
	h := New[int](8)

	// Far more writes than capacity so the physical slot index wraps many
	// times while the absolute counter keeps increasing.
	for i := 0; i < 1000; i++ {
		idx := h.Write(i)
		if idx != uint64(i) {
			t.Fatalf("Write #%d assigned index %d", i, idx)
		}
		if h.WriteCount() != uint64(i+1) {
			t.Fatalf("WriteCount after write #%d = %d", i, h.WriteCount())
		}
	}
}

func TestReadSinceWithinCapacity(t *testing.T) {
	h := New[int](8)
	dst := make([]int, 8)

	for i := 0; i < 5; i++ {
		h.Write(i * 10)
	}

	n, missed, newest := h.ReadSince(0, dst, nil)
	if n != 5 || missed != 0 || newest != 5 {
		t.Fatalf("ReadSince(0) = (%d, %d, %d), want (5, 0, 5)", n, missed, newest)
	}
	for i := 0; i < 5; i++ {
		if dst[i] != i*10 {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], i*10)
		}
	}

	// Nothing new since the observed counter.
	n, missed, newest = h.ReadSince(newest, dst, nil)
	if n != 0 || missed != 0 || newest != 5 {
		t.Fatalf("second ReadSince = (%d, %d, %d), want (0, 0, 5)", n, missed, newest)
	}
}

func TestReadSinceOverrun(t *testing.T) {
	// A reader that skips more than C writes must observe
	// missed == writes_since_last_read - C, across wraparound.
	h := New[int](8)
	dst := make([]int, 8)

	for i := 0; i < 20; i++ {
		h.Write(i)
	}

	n, missed, newest := h.ReadSince(0, dst, nil)
	if n != 8 {
		t.Errorf("surviving rows = %d, want 8", n)
	}
	if missed != 12 {
		t.Errorf("missed = %d, want 20 - 8 = 12", missed)
	}
	if newest != 20 {
		t.Errorf("newest = %d, want 20", newest)
	}
	// The surviving rows are the most recent ones, oldest first.
	for i := 0; i < n; i++ {
		if dst[i] != 12+i {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], 12+i)
		}
	}
}

func TestReadSincePollingNeverMisses(t *testing.T) {
	// A reader that reads at least once every C writes observes missed == 0
	// for any interleaving.
	h := New[int](16)
	dst := make([]int, 16)

	var cursor uint64
	next := 0
	for batch := 0; batch < 100; batch++ {
		writes := 1 + batch%h.Capacity()
		for w0 := 0; w0 < writes; w0++ {
			h.Write(next)
			next++
		}
		n, missed, newest := h.ReadSince(cursor, dst, nil)
		if missed != 0 {
			t.Fatalf("batch %d: missed = %d with %d writes per poll", batch, missed, writes)
		}
		if n != writes {
			t.Fatalf("batch %d: read %d rows, want %d", batch, n, writes)
		}
		cursor = newest
	}
}

func TestWriteSliceBatch(t *testing.T) {
	h := New[float32](64)
	dst := make([]float32, 64)

	block := []float32{0.1, 0.2, 0.3, 0.4}
	if got := h.WriteSlice(block); got != 4 {
		t.Fatalf("WriteSlice returned count %d, want 4", got)
	}

	n, missed, _ := h.ReadSince(0, dst, nil)
	if n != 4 || missed != 0 {
		t.Fatalf("ReadSince = (%d, %d), want (4, 0)", n, missed)
	}
	for i, want := range block {
		if dst[i] != want {
			t.Errorf("dst[%d] = %f, want %f", i, dst[i], want)
		}
	}
}

func TestReadSinceShortDst(t *testing.T) {
	// When dst is smaller than the backlog, the oldest rows are dropped and
	// counted as missed rather than silently truncated.
	h := New[int](16)
	dst := make([]int, 4)

	for i := 0; i < 10; i++ {
		h.Write(i)
	}

	n, missed, _ := h.ReadSince(0, dst, nil)
	if n != 4 || missed != 6 {
		t.Fatalf("ReadSince = (%d, %d), want (4, 6)", n, missed)
	}
	if dst[0] != 6 || dst[3] != 9 {
		t.Errorf("dst = %v, want the 4 most recent rows [6 7 8 9]", dst)
	}
}

type sliceRow struct {
	vals []float64
	idx  uint64
}

func TestWriteWithDeepCopy(t *testing.T) {
	h := New[sliceRow](4)
	h.InitSlots(func(r *sliceRow) {
		r.vals = make([]float64, 3)
	})

	idx := h.WriteWith(func(r *sliceRow) {
		copy(r.vals, []float64{1, 2, 3})
		r.idx = 0
	})
	if idx != 0 {
		t.Fatalf("WriteWith assigned index %d, want 0", idx)
	}

	dst := make([]sliceRow, 4)
	for i := range dst {
		dst[i].vals = make([]float64, 3)
	}
	deep := func(d, s *sliceRow) {
		copy(d.vals, s.vals)
		d.idx = s.idx
	}

	n, _, _ := h.ReadSince(0, dst, deep)
	if n != 1 {
		t.Fatalf("read %d rows, want 1", n)
	}

	// Overwrite every slot; the reader's copy must be unaffected.
	for i := 0; i < 4; i++ {
		h.WriteWith(func(r *sliceRow) {
			for j := range r.vals {
				r.vals[j] = -1
			}
			r.idx = uint64(i + 1)
		})
	}
	if dst[0].vals[0] != 1 || dst[0].vals[2] != 3 {
		t.Errorf("reader copy aliased ring storage: %v", dst[0].vals)
	}
}

// pairRow carries the same value twice; a reader that ever sees the two
// halves disagree has copied a slot mid-overwrite.
type pairRow struct {
	a, b uint64
}

func TestReadSinceRejectsInFlightOverwrite(t *testing.T) {
	// A reader lapped down to the oldest retained slot races a writer that
	// has reserved that slot but not yet published. Every accepted row must
	// be internally consistent; torn copies must come back as missed, never
	// as data.
	h := New[pairRow](2)
	dst := make([]pairRow, h.Capacity())

	const writes = 200000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(1); i <= writes; i++ {
			h.WriteWith(func(r *pairRow) {
				r.a = i
				r.b = i
			})
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		// lastSeen 0 keeps the read window pinned at the oldest slot, the
		// one the writer is always about to reclaim.
		n, _, newest := h.ReadSince(0, dst, nil)
		for i := 0; i < n; i++ {
			if row := dst[i]; row.a != row.b {
				t.Fatalf("accepted torn row #%d at newest %d: a=%d b=%d", i, newest, row.a, row.b)
			}
		}
	}
}

func TestReadSinceRejectsInFlightBatch(t *testing.T) {
	// Same race against WriteSlice: the whole batch is reserved before any
	// slot is filled, so a reader overlapping a half-written batch retries
	// instead of returning a mix of old and new items.
	h := New[uint64](4)
	dst := make([]uint64, h.Capacity())
	batch := make([]uint64, 3)

	const batches = 100000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := uint64(0); i < batches; i++ {
			for j := range batch {
				batch[j] = i
			}
			h.WriteSlice(batch)
		}
	}()

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
		}
		n, _, newest := h.ReadSince(0, dst, nil)
		// Items within one batch are identical, and consecutive batches
		// differ by one, so accepted values may never decrease.
		for i := 1; i < n; i++ {
			if dst[i] < dst[i-1] {
				t.Fatalf("accepted torn batch at newest %d: %v", newest, dst[:n])
			}
		}
	}
}

func TestOverrunCounter(t *testing.T) {
	var c OverrunCounter
	if c.Load() != 0 {
		t.Fatal("fresh counter should be zero")
	}
	c.Add(0)
	if c.Load() != 0 {
		t.Error("Add(0) should not change the counter")
	}
	c.Add(3)
	c.Add(2)
	if c.Load() != 5 {
		t.Errorf("counter = %d, want 5", c.Load())
	}
}
