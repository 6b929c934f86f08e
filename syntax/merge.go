package syntax

import "github.com/zsiec/hevccore/cabac"

// PredFlags indicates which reference lists a prediction unit uses.
type PredFlags struct{ L0, L1 bool }

// MotionCandidate is one entry of a merge or MVP candidate list: up to
// two (ref list, ref index, MV) tuples, per HEVC §8.5.3.2.
type MotionCandidate struct {
	Pred   PredFlags
	RefIdx [2]int8
	MVs    [2]MV
}

// Neighbor is a PU's motion state as seen by merge/MVP candidate
// derivation: whether it exists (in-picture, already decoded, not
// excluded by slice/tile/MER boundaries) and its motion data if so.
type Neighbor struct {
	Available bool
	Intra     bool // intra-coded PUs never contribute a candidate
	MotionCandidate
}

// SpatialNeighbors is the five spatial merge candidate positions of
// HEVC Figure 8-4, in derivation order: A1, B1, B0, A0, B2.
type SpatialNeighbors struct {
	A1, B1, B0, A0, B2 Neighbor
}

// equalMotion reports whether two candidates have identical motion
// (used for the A1/B1, B0/B1, A0/A1, B2/A1, B2/B1 pruning comparisons
// of HEVC §8.5.3.2.2).
func equalMotion(a, b MotionCandidate) bool {
	return a.Pred == b.Pred && a.RefIdx == b.RefIdx && a.MVs == b.MVs
}

// DeriveSpatialMergeCandidates returns the available, de-duplicated
// spatial merge candidates in derivation order, per HEVC §8.5.3.2.2.
// Pairwise pruning is applied exactly as the standard specifies: B1 is
// dropped if it equals A1; B0 if it equals B1; A0 if it equals A1; B2
// is considered only if fewer than 4 candidates were found so far, and
// is itself dropped if it equals A1 or B1.
func DeriveSpatialMergeCandidates(n SpatialNeighbors) []MotionCandidate {
	var cands []MotionCandidate

	haveA1 := n.A1.Available && !n.A1.Intra
	if haveA1 {
		cands = append(cands, n.A1.MotionCandidate)
	}

	if n.B1.Available && !n.B1.Intra && !(haveA1 && equalMotion(n.B1.MotionCandidate, n.A1.MotionCandidate)) {
		cands = append(cands, n.B1.MotionCandidate)
	}

	if n.B0.Available && !n.B0.Intra && !(n.B1.Available && !n.B1.Intra && equalMotion(n.B0.MotionCandidate, n.B1.MotionCandidate)) {
		cands = append(cands, n.B0.MotionCandidate)
	}

	if n.A0.Available && !n.A0.Intra && !(haveA1 && equalMotion(n.A0.MotionCandidate, n.A1.MotionCandidate)) {
		cands = append(cands, n.A0.MotionCandidate)
	}

	if len(cands) < 4 && n.B2.Available && !n.B2.Intra {
		dupA1 := haveA1 && equalMotion(n.B2.MotionCandidate, n.A1.MotionCandidate)
		dupB1 := n.B1.Available && !n.B1.Intra && equalMotion(n.B2.MotionCandidate, n.B1.MotionCandidate)
		if !dupA1 && !dupB1 {
			cands = append(cands, n.B2.MotionCandidate)
		}
	}

	if len(cands) > 4 {
		cands = cands[:4]
	}
	return cands
}

// TemporalCandidate derives the collocated-picture merge/MVP candidate
// (HEVC §8.5.3.2.8/9): the collocated PU's motion vector, scaled from
// the collocated picture's reference distance to the current one. Long
// -term references are never scaled (scale factor fixed at 1).
func TemporalCandidate(colMV MV, colRefIsLongTerm bool, currPocDiff, colPocDiff int32) (MV, bool) {
	if colPocDiff == 0 {
		return MV{}, false
	}
	if colRefIsLongTerm || currPocDiff == colPocDiff {
		return colMV, true
	}
	return MV{
		X: scaleMVComponent(colMV.X, currPocDiff, colPocDiff),
		Y: scaleMVComponent(colMV.Y, currPocDiff, colPocDiff),
	}, true
}

// scaleMVComponent implements HEVC §8.5.3.2.8's scaling formula:
// distScaleFactor = clip3(-4096, 4095, (tb*((0x4000+|td/2|)/td)+32)>>6),
// then mv' = clip3(-32768, 32767, sign(distScaleFactor*mv) *
// ((|distScaleFactor*mv|+127)>>8)).
func scaleMVComponent(mv int16, tb, td int32) int16 {
	if td == 0 {
		return mv
	}
	tdAbsHalf := td / 2
	if tdAbsHalf < 0 {
		tdAbsHalf = -tdAbsHalf
	}
	tx := (0x4000 + tdAbsHalf) / td
	distScaleFactor := (tb*tx + 32) >> 6
	distScaleFactor = clip32(distScaleFactor, -4096, 4095)

	product := distScaleFactor * int32(mv)
	sign := int32(1)
	if product < 0 {
		sign = -1
		product = -product
	}
	scaled := sign * ((product + 127) >> 8)
	return int16(clip32(scaled, -32768, 32767))
}

func clip32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// BuildMergeList assembles the final merge candidate list (HEVC
// §8.5.3.2.1): spatial candidates, then the temporal candidate (if
// present and list not full), then for B slices combined
// bi-predictive candidates, then zero-motion padding up to
// maxNumMergeCand.
func BuildMergeList(spatial []MotionCandidate, temporal *MotionCandidate, isB bool, numRefIdxL0Active, numRefIdxL1Active, maxNumMergeCand int) []MotionCandidate {
	list := make([]MotionCandidate, 0, maxNumMergeCand)
	list = append(list, spatial...)
	if temporal != nil && len(list) < maxNumMergeCand {
		list = append(list, *temporal)
	}

	if isB {
		list = append(list, combinedBiPredCandidates(list, maxNumMergeCand)...)
	}

	zeroRefIdx := int8(0)
	for len(list) < maxNumMergeCand {
		cand := MotionCandidate{
			Pred:   PredFlags{L0: true, L1: isB},
			RefIdx: [2]int8{zeroRefIdx, 0},
		}
		if isB {
			cand.RefIdx[1] = zeroRefIdx
		}
		list = append(list, cand)
		if int(zeroRefIdx)+1 < numRefIdxL0Active && (!isB || int(zeroRefIdx)+1 < numRefIdxL1Active) {
			zeroRefIdx++
		}
	}
	if len(list) > maxNumMergeCand {
		list = list[:maxNumMergeCand]
	}
	return list
}

// combCandOrder is HEVC Table 8-3's (l0CandIdx, l1CandIdx) combination
// order for combined bi-predictive merge candidates.
var combCandOrder = [12][2]int{
	{0, 1}, {1, 0}, {0, 2}, {2, 0}, {1, 2}, {2, 1},
	{0, 3}, {3, 0}, {1, 3}, {3, 1}, {2, 3}, {3, 2},
}

func combinedBiPredCandidates(list []MotionCandidate, maxNumMergeCand int) []MotionCandidate {
	n := len(list)
	if n < 2 {
		return nil
	}
	numCombinations := n * (n - 1)
	if numCombinations > len(combCandOrder) {
		numCombinations = len(combCandOrder)
	}
	var out []MotionCandidate
	for i := 0; i < numCombinations && len(list)+len(out) < maxNumMergeCand; i++ {
		l0Idx, l1Idx := combCandOrder[i][0], combCandOrder[i][1]
		if l0Idx >= n || l1Idx >= n {
			continue
		}
		l0 := list[l0Idx]
		l1 := list[l1Idx]
		if !l0.Pred.L0 || !l1.Pred.L1 {
			continue
		}
		if l0.RefIdx[0] == l1.RefIdx[1] && l0.MVs[0] == l1.MVs[1] {
			continue
		}
		out = append(out, MotionCandidate{
			Pred:   PredFlags{L0: true, L1: true},
			RefIdx: [2]int8{l0.RefIdx[0], l1.RefIdx[1]},
			MVs:    [2]MV{l0.MVs[0], l1.MVs[1]},
		})
	}
	return out
}

// DecodeMergeIdx decodes merge_idx (HEVC §9.3.3.5): a truncated-unary
// code, bin 0 context-coded and the rest bypass, capped at
// maxNumMergeCand-1.
func DecodeMergeIdx(d *cabac.Decoder, maxNumMergeCand int) (int, error) {
	if maxNumMergeCand <= 1 {
		return 0, nil
	}
	bin, err := d.DecodeBin(cabac.CtxMergeIdx)
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 0, nil
	}
	idx := 1
	for idx < maxNumMergeCand-1 {
		bin, err := d.DecodeBypass()
		if err != nil {
			return 0, err
		}
		if bin == 0 {
			break
		}
		idx++
	}
	return idx, nil
}

// DecodeMergeFlag decodes merge_flag, a single-context bin.
func DecodeMergeFlag(d *cabac.Decoder) (bool, error) {
	bin, err := d.DecodeBin(cabac.CtxMergeFlag)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeMVPFlag decodes mvp_l0_flag/mvp_l1_flag, a single-context bin
// selecting between the two MVP candidates of HEVC §8.5.3.2.6/7.
func DecodeMVPFlag(d *cabac.Decoder) (int, error) {
	bin, err := d.DecodeBin(cabac.CtxMvpLxFlag)
	if err != nil {
		return 0, err
	}
	return bin, nil
}
