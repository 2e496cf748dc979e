// SPDX-License-Identifier: MIT
package display

import (
	"math"

	"spectra/internal/dsp"
)

// ResampleHistory remaps a row history of one length onto a destination of
// another length along the time axis. Rows are ordered oldest first in both
// slices; destination rows must carry pre-allocated bin storage of the same
// width as the source rows.
//
// Downscale (len(dst) < len(src)): each source row maps to a fractional
// destination interval of length len(dst)/len(src); a source row whose
// interval straddles a destination boundary contributes to both sides with
// weights proportional to the overlap. The weights reaching any destination
// row sum to 1, so no energy is invented or lost and no banding appears when
// the retained-history length changes.
//
// Upscale (len(dst) > len(src)): destination rows sample the source on its
// circular row index; destination positions beyond the valid source range
// come out blank, never as an out-of-bounds read.
//
// Equal lengths degenerate to an exact copy. A gap (invalid) source row
// taints every destination row it touches: loss must stay visible after
// resampling.
func ResampleHistory(src, dst []dsp.SpectralRow) {
	if len(dst) == 0 {
		return
	}
	if len(src) == 0 {
		for j := range dst {
			blankRow(&dst[j])
		}
		return
	}

	if len(dst) <= len(src) {
		downscale(src, dst)
		return
	}
	upscale(src, dst)
}

func blankRow(r *dsp.SpectralRow) {
	for b := range r.Bins {
		r.Bins[b] = math.Inf(-1)
	}
	r.Valid = false
	r.Index = 0
}

func downscale(src, dst []dsp.SpectralRow) {
	ratio := float64(len(dst)) / float64(len(src))

	for j := range dst {
		for b := range dst[j].Bins {
			dst[j].Bins[b] = 0
		}
		dst[j].Valid = true
		dst[j].Index = src[min(int((float64(j)+0.5)/ratio), len(src)-1)].Index
	}
	weightSum := make([]float64, len(dst))

	for i := range src {
		start := float64(i) * ratio
		end := start + ratio
		for j := int(start); j < len(dst) && float64(j) < end; j++ {
			lo := math.Max(start, float64(j))
			hi := math.Min(end, float64(j+1))
			w := hi - lo
			if w <= 0 {
				continue
			}
			if !src[i].Valid {
				dst[j].Valid = false
				continue
			}
			for b := range dst[j].Bins {
				dst[j].Bins[b] += w * src[i].Bins[b]
			}
			weightSum[j] += w
		}
	}

	for j := range dst {
		switch {
		case !dst[j].Valid || weightSum[j] == 0:
			idx := dst[j].Index
			blankRow(&dst[j])
			dst[j].Index = idx
		case math.Abs(weightSum[j]-1) > 1e-9:
			// Renormalize the residual float error so equal-length input
			// passes through bit-faithfully in the common case.
			for b := range dst[j].Bins {
				dst[j].Bins[b] /= weightSum[j]
			}
		}
	}
}

func upscale(src, dst []dsp.SpectralRow) {
	for j := range dst {
		pos := j * len(src) / len(dst) // circular row index into the source
		if pos >= len(src) {
			blankRow(&dst[j])
			continue
		}
		dsp.CopyRow(&dst[j], &src[pos%len(src)])
	}
}
