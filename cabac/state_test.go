package cabac

import "testing"

func TestInitTypeSelection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		sliceType     SliceType
		cabacInitFlag bool
		want          int
	}{
		{"I ignores cabac_init_flag=false", SliceTypeI, false, 0},
		{"I ignores cabac_init_flag=true", SliceTypeI, true, 0},
		{"P default", SliceTypeP, false, 1},
		{"P swapped", SliceTypeP, true, 2},
		{"B default", SliceTypeB, false, 2},
		{"B swapped", SliceTypeB, true, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			if got := initType(c.sliceType, c.cabacInitFlag); got != c.want {
				t.Errorf("initType(%v,%v) = %d, want %d", c.sliceType, c.cabacInitFlag, got, c.want)
			}
		})
	}
}

func TestStateInitKnownContext(t *testing.T) {
	t.Parallel()

	var st State
	st.Init(SliceTypeI, false, 26)

	// init_value 153 at QP 26: slopeIdx=9, offsetIdx=9, m=0, n=56,
	// preCtxState=56 -> pStateIdx=7, valMps=0.
	if st.PStateIdx[CtxSaoMergeFlag] != 7 {
		t.Errorf("PStateIdx[SaoMergeFlag] = %d, want 7", st.PStateIdx[CtxSaoMergeFlag])
	}
	if st.ValMps[CtxSaoMergeFlag] != 0 {
		t.Errorf("ValMps[SaoMergeFlag] = %d, want 0", st.ValMps[CtxSaoMergeFlag])
	}
}

func TestStateInitAllContextsInRange(t *testing.T) {
	t.Parallel()

	for _, st := range []SliceType{SliceTypeI, SliceTypeP, SliceTypeB} {
		for _, flag := range []bool{false, true} {
			var s State
			s.Init(st, flag, 40)
			for i := 0; i < NumContexts; i++ {
				if s.PStateIdx[i] > 62 {
					t.Errorf("sliceType=%v flag=%v ctx=%d: pStateIdx=%d out of range", st, flag, i, s.PStateIdx[i])
				}
				if s.ValMps[i] > 1 {
					t.Errorf("sliceType=%v flag=%v ctx=%d: valMps=%d out of range", st, flag, i, s.ValMps[i])
				}
			}
		}
	}
}

func TestStateInitClearsStatCoeff(t *testing.T) {
	t.Parallel()

	var st State
	st.StatCoeff = [4]uint8{3, 1, 2, 1}
	st.Init(SliceTypeP, false, 20)
	if st.StatCoeff != ([4]uint8{}) {
		t.Errorf("StatCoeff = %v, want zeroed", st.StatCoeff)
	}
}

func TestStateInitResetsGreater1Found(t *testing.T) {
	t.Parallel()

	var st State
	st.Greater1Found = [2]bool{false, false}
	st.Init(SliceTypeI, false, 10)
	if st.Greater1Found != ([2]bool{true, true}) {
		t.Errorf("Greater1Found after Init = %v, want [true true]", st.Greater1Found)
	}
}

func TestStateClone(t *testing.T) {
	t.Parallel()

	var st State
	st.Init(SliceTypeB, true, 22)
	clone := st.Clone()

	clone.PStateIdx[0] = 99
	if st.PStateIdx[0] == 99 {
		t.Fatal("Clone shares storage with the original")
	}
}
