package syntax

import (
	"testing"

	"github.com/zsiec/hevccore/cabac"
)

func TestLastCtxOffsetShiftLuma(t *testing.T) {
	t.Parallel()
	cases := []struct {
		log2TrafoSize int
		wantOffset    int
		wantShift     int
	}{
		{2, 0, 0},
		{3, 3, 1},
		{4, 6, 1},
		{5, 10, 1},
	}
	for _, c := range cases {
		offset, shift := lastCtxOffsetShift(c.log2TrafoSize, 0)
		if offset != c.wantOffset || shift != c.wantShift {
			t.Errorf("log2=%d: got (%d,%d), want (%d,%d)", c.log2TrafoSize, offset, shift, c.wantOffset, c.wantShift)
		}
	}
}

func TestLastCtxOffsetShiftChroma(t *testing.T) {
	t.Parallel()
	offset, shift := lastCtxOffsetShift(4, 1)
	if offset != 15 || shift != 2 {
		t.Errorf("got (%d,%d), want (15,2)", offset, shift)
	}
}

func TestScanIndexOf(t *testing.T) {
	t.Parallel()
	order := Scan(4, ScanDiag)
	idx := scanIndexOf(order, Pos{3, 3})
	if idx != len(order)-1 {
		t.Errorf("scanIndexOf(last pos) = %d, want %d", idx, len(order)-1)
	}
	if scanIndexOf(order, Pos{9, 9}) != -1 {
		t.Error("scanIndexOf(out-of-range) should be -1")
	}
}

func TestSigCoeffCtxIncDCIsZero(t *testing.T) {
	t.Parallel()
	if got := sigCoeffCtxInc(4, 0, 0, 0, 0, 0, false, false); got != 0 {
		t.Errorf("luma DC ctxInc = %d, want 0", got)
	}
	if got := sigCoeffCtxInc(4, 1, 0, 0, 0, 0, false, false); got != 27 {
		t.Errorf("chroma DC ctxInc = %d, want 27", got)
	}
}

func TestSigCoeffCtxInc4x4UsesPositionMap(t *testing.T) {
	t.Parallel()
	// log2TrafoSize==2 (4x4 transform) bypasses the sub-block logic
	// entirely and indexes sigCtxIdxMap directly, even at (0,0).
	got := sigCoeffCtxInc(2, 0, 0, 0, 0, 0, false, false)
	if got != sigCtxIdxMap[0] {
		t.Errorf("4x4 ctxInc(0,0) = %d, want %d", got, sigCtxIdxMap[0])
	}
}

func TestRiceStatIdxCategories(t *testing.T) {
	t.Parallel()
	cases := []struct {
		cIdx          int
		transformSkip bool
		want          int
	}{
		{0, false, 0},
		{0, true, 1},
		{1, false, 2},
		{2, true, 3},
	}
	for _, c := range cases {
		if got := riceStatIdx(c.cIdx, c.transformSkip); got != c.want {
			t.Errorf("riceStatIdx(%d,%v) = %d, want %d", c.cIdx, c.transformSkip, got, c.want)
		}
	}
}

func TestUpdateRiceParamNonPersistent(t *testing.T) {
	t.Parallel()
	var st cabac.State
	got := updateRiceParam(0, 4, &st, 0, false) // 4 > 3<<0
	if got != 1 {
		t.Errorf("updateRiceParam = %d, want 1", got)
	}
	got = updateRiceParam(0, 2, &st, 0, false) // 2 <= 3
	if got != 0 {
		t.Errorf("updateRiceParam = %d, want 0", got)
	}
}

func TestUpdateRiceParamPersistentAdapts(t *testing.T) {
	t.Parallel()
	var st cabac.State
	for i := 0; i < 8; i++ {
		updateRiceParam(0, 100, &st, 0, true)
	}
	if st.StatCoeff[0] == 0 {
		t.Error("StatCoeff never incremented under sustained large levels")
	}
}

func TestInitialRiceParamWidensForTransformSkip(t *testing.T) {
	t.Parallel()
	var st cabac.State
	if got := initialRiceParam(&st, 0, false, true); got != 1 {
		t.Errorf("initialRiceParam(widen) = %d, want 1", got)
	}
	if got := initialRiceParam(&st, 0, false, false); got != 0 {
		t.Errorf("initialRiceParam = %d, want 0", got)
	}
}

func TestResetResidualCodingState(t *testing.T) {
	t.Parallel()
	var st cabac.State
	st.Greater1Found[0] = false
	ResetResidualCodingState(&st)
	if !st.Greater1Found[0] || !st.Greater1Found[1] {
		t.Error("ResetResidualCodingState did not reset to true")
	}
}

func TestResetResidualCodingStateIndependentPerRow(t *testing.T) {
	t.Parallel()
	var row0, row1 cabac.State
	row0.Greater1Found = [2]bool{false, false}
	row1.Greater1Found = [2]bool{false, false}

	ResetResidualCodingState(&row0)

	if row0.Greater1Found != ([2]bool{true, true}) {
		t.Error("row0 was not reset")
	}
	if row1.Greater1Found != ([2]bool{false, false}) {
		t.Error("resetting row0 must not affect row1's independent state")
	}
}
