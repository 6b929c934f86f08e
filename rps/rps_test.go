package rps

import (
	"reflect"
	"testing"

	"github.com/zsiec/hevccore/paramset"
)

func TestBuildShortTermPartitionsByUsedFlag(t *testing.T) {
	t.Parallel()
	st := &paramset.ShortTermRPS{
		DeltaPocS0: []int32{-1, -3},
		UsedS0:     []bool{true, false},
		DeltaPocS1: []int32{2, 5},
		UsedS1:     []bool{false, true},
	}
	before, after, foll := BuildShortTerm(100, st)
	if len(before) != 1 || before[0].POC != 99 {
		t.Errorf("CurrBefore = %+v, want [99]", before)
	}
	if len(after) != 1 || after[0].POC != 105 {
		t.Errorf("CurrAfter = %+v, want [105]", after)
	}
	wantFoll := []int32{97, 102}
	gotFoll := []int32{foll[0].POC, foll[1].POC}
	if !reflect.DeepEqual(gotFoll, wantFoll) {
		t.Errorf("Foll = %v, want %v", gotFoll, wantFoll)
	}
}

func TestBuildShortTermNilRPS(t *testing.T) {
	t.Parallel()
	before, after, foll := BuildShortTerm(10, nil)
	if before != nil || after != nil || foll != nil {
		t.Error("nil ShortTermRPS should produce empty categories")
	}
}

func TestBuildLongTermLsbOnly(t *testing.T) {
	t.Parallel()
	specs := []LongTermSpec{{PocLSB: 10, UsedByCurr: true}}
	curr, foll := BuildLongTerm(100, 32, specs)
	if len(curr) != 1 || curr[0].POC != 10 || !curr[0].LongTerm {
		t.Errorf("LtCurr = %+v, want POC=10 LongTerm=true", curr)
	}
	if len(foll) != 0 {
		t.Errorf("LtFoll = %+v, want empty", foll)
	}
}

func TestBuildLongTermWithMSBCycle(t *testing.T) {
	t.Parallel()
	// currPoc=100, maxPocLsb=32 -> currPocLsb=4. A long-term ref one
	// MSB cycle back with the same LSB resolves to POC 100-32=68.
	specs := []LongTermSpec{{PocLSB: 4, MSBPresent: true, DeltaPocMSBCycle: 1, UsedByCurr: false}}
	curr, foll := BuildLongTerm(100, 32, specs)
	if len(curr) != 0 {
		t.Errorf("LtCurr = %+v, want empty", curr)
	}
	if len(foll) != 1 || foll[0].POC != 68 {
		t.Errorf("LtFoll = %+v, want POC=68", foll)
	}
}

func TestResolveCombinesShortAndLongTerm(t *testing.T) {
	t.Parallel()
	st := &paramset.ShortTermRPS{
		DeltaPocS0: []int32{-1},
		UsedS0:     []bool{true},
	}
	specs := []LongTermSpec{{PocLSB: 5, UsedByCurr: true}}
	s := Resolve(50, 32, st, specs)
	if len(s.CurrBefore) != 1 || len(s.LtCurr) != 1 {
		t.Errorf("Resolve = %+v, want one CurrBefore and one LtCurr entry", s)
	}
}

func TestMissingRefsDetectsAbsent(t *testing.T) {
	t.Parallel()
	s := Set{
		CurrBefore: []RefEntry{{POC: 10}},
		CurrAfter:  []RefEntry{{POC: 20}},
		LtCurr:     []RefEntry{{POC: 10}}, // also in have, so not reported
	}
	have := map[int32]bool{10: true}
	missing := MissingRefs(s, have)
	if len(missing) != 1 || missing[0] != 20 {
		t.Errorf("MissingRefs = %v, want [20]", missing)
	}
}

func TestMissingRefsNoneMissing(t *testing.T) {
	t.Parallel()
	s := Set{CurrBefore: []RefEntry{{POC: 1}}}
	have := map[int32]bool{1: true}
	if got := MissingRefs(s, have); got != nil {
		t.Errorf("MissingRefs = %v, want nil", got)
	}
}
