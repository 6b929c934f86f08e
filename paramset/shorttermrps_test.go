package paramset

import "testing"

func TestParseShortTermRPSDirect(t *testing.T) {
	t.Parallel()

	w := &bitWriter{}
	w.WriteUE(2) // num_negative_pics
	w.WriteUE(1) // num_positive_pics
	// negative pics, ascending distance: delta -1, -3
	w.WriteUE(0) // delta_poc_s0_minus1[0] => -1
	w.WriteFlag(true)
	w.WriteUE(1) // delta_poc_s0_minus1[1] => cumulative -3
	w.WriteFlag(true)
	// positive pics
	w.WriteUE(0) // delta_poc_s1_minus1[0] => +1
	w.WriteFlag(false)

	r := newTestReader(w.Bytes())
	rps, err := parseShortTermRPS(r, 0, 1, nil)
	if err != nil {
		t.Fatalf("parseShortTermRPS: %v", err)
	}
	if got := rps.DeltaPocS0; len(got) != 2 || got[0] != -1 || got[1] != -3 {
		t.Fatalf("DeltaPocS0: got %v, want [-1 -3]", got)
	}
	if !rps.UsedS0[0] || !rps.UsedS0[1] {
		t.Error("expected both negative entries used_by_curr_pic")
	}
	if got := rps.DeltaPocS1; len(got) != 1 || got[0] != 1 {
		t.Fatalf("DeltaPocS1: got %v, want [1]", got)
	}
	if rps.UsedS1[0] {
		t.Error("expected positive entry not used_by_curr_pic")
	}
	if rps.NumDeltaPocs() != 3 {
		t.Errorf("NumDeltaPocs: got %d, want 3", rps.NumDeltaPocs())
	}
}

func TestParseShortTermRPSInterPredicted(t *testing.T) {
	t.Parallel()

	// Reference set: one negative pic at -1, used.
	ref := &ShortTermRPS{
		DeltaPocS0: []int32{-1},
		UsedS0:     []bool{true},
	}

	w := &bitWriter{}
	w.WriteFlag(true) // inter_ref_pic_set_prediction_flag (stRpsIdx != 0)
	w.WriteFlag(false) // delta_rps_sign (positive)
	w.WriteUE(0)        // abs_delta_rps_minus1 => deltaRps = +1
	// numDeltaPocs(ref)=1, loop j=0..1 (2 entries)
	w.WriteFlag(true) // used_by_curr_pic_flag[0]
	w.WriteFlag(true) // used_by_curr_pic_flag[1]

	r := newTestReader(w.Bytes())
	rps, err := parseShortTermRPS(r, 1, 2, []*ShortTermRPS{ref})
	if err != nil {
		t.Fatalf("parseShortTermRPS: %v", err)
	}
	if rps.NumDeltaPocs() == 0 {
		t.Fatal("expected inter-predicted set to derive at least one delta POC")
	}
}
