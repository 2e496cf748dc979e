// SPDX-License-Identifier: MIT
package dsp

// SpectralRow is one analysis output: per-bin magnitudes in dB, the absolute
// write index the row ring assigned to it, and a validity flag. Valid is
// false only for synthetic rows a consumer inserts in place of lost data.
// Rows are immutable once published; the ring slot owns the storage until it
// is overwritten.
type SpectralRow struct {
	Bins  []float64
	Index uint64
	Valid bool
}

// CopyRow deep-copies src into dst, assuming dst.Bins was pre-allocated with
// the same length. Used as the ReadSince copy function so readers never
// alias ring storage.
func CopyRow(dst, src *SpectralRow) {
	copy(dst.Bins, src.Bins)
	dst.Index = src.Index
	dst.Valid = src.Valid
}

// MakeRows allocates n reader-owned rows of binCount bins, the destination
// buffers consumers hand to ReadSince.
func MakeRows(n, binCount int) []SpectralRow {
	rows := make([]SpectralRow, n)
	for i := range rows {
		rows[i].Bins = make([]float64, binCount)
	}
	return rows
}
