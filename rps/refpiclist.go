package rps

import "github.com/zsiec/hevccore/paramset"

const maxRefs = 16

// ListIdx selects RefPicList0 or RefPicList1.
type ListIdx int

const (
	L0 ListIdx = 0
	L1 ListIdx = 1
)

// RefPicList is one slice's resolved RefPicListX (H.265 8.3.4): POCs in
// final order, parallel IsLongTerm flags.
type RefPicList struct {
	POC        []int32
	IsLongTerm []bool
}

// candidateOrder returns the three source categories concatenated in
// the order H.265 8.3.4 specifies for listIdx, before any explicit
// reordering: {CurrBefore, CurrAfter, LtCurr} for L0,
// {CurrAfter, CurrBefore, LtCurr} for L1.
func candidateOrder(s Set, idx ListIdx) [][]RefEntry {
	if idx == L0 {
		return [][]RefEntry{s.CurrBefore, s.CurrAfter, s.LtCurr}
	}
	return [][]RefEntry{s.CurrAfter, s.CurrBefore, s.LtCurr}
}

// BuildRefPicList constructs RefPicListX per H.265 8.3.4: the
// candidate categories are concatenated and, if numRefs exceeds the
// available candidates, cyclically repeated (8-8/8-10) until numRefs
// entries exist; entryLx, when non-nil (ref_pic_list_modification_flag
// set), replaces that construction with an explicit index permutation
// into the concatenated candidate list.
func BuildRefPicList(s Set, idx ListIdx, numRefs int, entryLx []uint32) RefPicList {
	var cand []RefEntry
	for _, group := range candidateOrder(s, idx) {
		cand = append(cand, group...)
	}
	if len(cand) == 0 || numRefs == 0 {
		return RefPicList{}
	}

	rpl := RefPicList{POC: make([]int32, numRefs), IsLongTerm: make([]bool, numRefs)}
	if entryLx != nil {
		for i := 0; i < numRefs && i < len(entryLx); i++ {
			ci := int(entryLx[i])
			if ci >= len(cand) {
				ci = len(cand) - 1
			}
			rpl.POC[i] = cand[ci].POC
			rpl.IsLongTerm[i] = cand[ci].LongTerm
		}
		return rpl
	}

	for i := 0; i < numRefs; i++ {
		e := cand[i%len(cand)]
		rpl.POC[i] = e.POC
		rpl.IsLongTerm[i] = e.LongTerm
	}
	return rpl
}

// NumRefIdxActive returns num_ref_idx_lX_active_minus1+1 from a parsed
// slice header, per H.265 7.4.7.1's default-from-PPS / override rule.
func NumRefIdxActive(sh *paramset.SliceHeader, pps *paramset.PPS, idx ListIdx) int {
	if idx == L1 && sh.SliceType != paramset.SliceTypeB {
		return 0
	}
	if sh.NumRefIdxActiveOverrideFlag {
		if idx == L0 {
			return int(sh.NumRefIdxL0ActiveMinus1) + 1
		}
		return int(sh.NumRefIdxL1ActiveMinus1) + 1
	}
	if idx == L0 {
		return int(pps.NumRefIdxL0DefaultActiveMinus1) + 1
	}
	return int(pps.NumRefIdxL1DefaultActiveMinus1) + 1
}
