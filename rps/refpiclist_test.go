package rps

import (
	"testing"

	"github.com/zsiec/hevccore/paramset"
)

func sampleSet() Set {
	return Set{
		CurrBefore: []RefEntry{{POC: 9}, {POC: 8}},
		CurrAfter:  []RefEntry{{POC: 11}},
		LtCurr:     []RefEntry{{POC: 1, LongTerm: true}},
	}
}

func TestBuildRefPicListL0Order(t *testing.T) {
	t.Parallel()
	rpl := BuildRefPicList(sampleSet(), L0, 3, nil)
	want := []int32{9, 8, 11}
	for i, p := range want {
		if rpl.POC[i] != p {
			t.Errorf("POC[%d] = %d, want %d", i, rpl.POC[i], p)
		}
	}
}

func TestBuildRefPicListL1Order(t *testing.T) {
	t.Parallel()
	rpl := BuildRefPicList(sampleSet(), L1, 2, nil)
	want := []int32{11, 9}
	for i, p := range want {
		if rpl.POC[i] != p {
			t.Errorf("POC[%d] = %d, want %d", i, rpl.POC[i], p)
		}
	}
}

func TestBuildRefPicListCyclicRepeat(t *testing.T) {
	t.Parallel()
	s := Set{CurrBefore: []RefEntry{{POC: 5}}}
	rpl := BuildRefPicList(s, L0, 3, nil)
	for i, p := range rpl.POC {
		if p != 5 {
			t.Errorf("POC[%d] = %d, want 5 (only candidate repeated)", i, p)
		}
	}
}

func TestBuildRefPicListExplicitModification(t *testing.T) {
	t.Parallel()
	entries := []uint32{2, 0}
	rpl := BuildRefPicList(sampleSet(), L0, 2, entries)
	if rpl.POC[0] != 11 || rpl.POC[1] != 9 {
		t.Errorf("modified RefPicList = %v, want [11 9]", rpl.POC)
	}
	if rpl.IsLongTerm[0] || rpl.IsLongTerm[1] {
		t.Errorf("IsLongTerm = %v, want both false", rpl.IsLongTerm)
	}
}

func TestBuildRefPicListEmptyCandidates(t *testing.T) {
	t.Parallel()
	rpl := BuildRefPicList(Set{}, L0, 2, nil)
	if rpl.POC != nil {
		t.Errorf("RefPicList = %+v, want empty", rpl)
	}
}

func TestNumRefIdxActiveDefaultsFromPPS(t *testing.T) {
	t.Parallel()
	sh := &paramset.SliceHeader{SliceType: paramset.SliceTypeB}
	pps := &paramset.PPS{NumRefIdxL0DefaultActiveMinus1: 1, NumRefIdxL1DefaultActiveMinus1: 2}
	if got := NumRefIdxActive(sh, pps, L0); got != 2 {
		t.Errorf("NumRefIdxActive(L0) = %d, want 2", got)
	}
	if got := NumRefIdxActive(sh, pps, L1); got != 3 {
		t.Errorf("NumRefIdxActive(L1) = %d, want 3", got)
	}
}

func TestNumRefIdxActiveOverride(t *testing.T) {
	t.Parallel()
	sh := &paramset.SliceHeader{
		SliceType:                   paramset.SliceTypeB,
		NumRefIdxActiveOverrideFlag: true,
		NumRefIdxL0ActiveMinus1:     0,
	}
	pps := &paramset.PPS{NumRefIdxL0DefaultActiveMinus1: 3}
	if got := NumRefIdxActive(sh, pps, L0); got != 1 {
		t.Errorf("NumRefIdxActive(override) = %d, want 1", got)
	}
}

func TestNumRefIdxActiveL1ZeroForPSlice(t *testing.T) {
	t.Parallel()
	sh := &paramset.SliceHeader{SliceType: paramset.SliceTypeP}
	pps := &paramset.PPS{}
	if got := NumRefIdxActive(sh, pps, L1); got != 0 {
		t.Errorf("NumRefIdxActive(L1, P-slice) = %d, want 0", got)
	}
}
