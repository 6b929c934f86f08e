// Package syntax decodes the CABAC-coded coding-tree and transform-tree
// syntax elements of HEVC §7.3.8: split flags, residual coefficients,
// and motion data (merge/MVP candidate lists, mvd_coding). It consumes
// bins from a *cabac.Decoder and never reasons about bit-level framing
// itself; that belongs to bitstream and cabac.
package syntax

// Pos is a coefficient or sub-block coordinate within a transform
// block, (x, y) with the origin at the top-left corner.
type Pos struct{ X, Y int }

// ScanIdx selects one of the three coefficient scan orders used by
// residual_coding, chosen by the caller from the intra prediction mode
// (out of scope here; an intra-prediction/dsp concern) or fixed to
// diagonal for inter blocks and chroma.
type ScanIdx int

const (
	ScanDiag ScanIdx = iota
	ScanHoriz
	ScanVert
)

// Scan returns the up-right diagonal, horizontal, or vertical scan
// order for a size x size block, per HEVC §6.5.3/6.5.4. Index i of the
// result is the position visited i-th in forward (low-to-high
// frequency) order; residual_coding walks it in reverse.
func Scan(size int, idx ScanIdx) []Pos {
	switch idx {
	case ScanHoriz:
		return scanHoriz(size)
	case ScanVert:
		return scanVert(size)
	default:
		return scanDiag(size)
	}
}

// scanDiag builds the up-right diagonal scan: diagonals d = x+y in
// increasing order, each diagonal visited bottom-left to top-right
// (decreasing y, increasing x), per HEVC §6.5.3.
func scanDiag(size int) []Pos {
	out := make([]Pos, 0, size*size)
	for d := 0; d < 2*size-1; d++ {
		for y := size - 1; y >= 0; y-- {
			x := d - y
			if x >= 0 && x < size {
				out = append(out, Pos{x, y})
			}
		}
	}
	return out
}

func scanHoriz(size int) []Pos {
	out := make([]Pos, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			out = append(out, Pos{x, y})
		}
	}
	return out
}

func scanVert(size int) []Pos {
	out := make([]Pos, 0, size*size)
	for x := 0; x < size; x++ {
		for y := 0; y < size; y++ {
			out = append(out, Pos{x, y})
		}
	}
	return out
}
