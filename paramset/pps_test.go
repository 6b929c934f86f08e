package paramset

import "testing"

func buildMinimalPPS(id, spsID uint32) []byte {
	w := &bitWriter{}
	w.WriteUE(id)
	w.WriteUE(spsID)
	w.WriteFlag(false) // dependent_slice_segments_enabled_flag
	w.WriteFlag(false) // output_flag_present_flag
	w.WriteBits(3, 0)  // num_extra_slice_header_bits
	w.WriteFlag(false) // sign_data_hiding_enabled_flag
	w.WriteFlag(false) // cabac_init_present_flag
	w.WriteUE(0)       // num_ref_idx_l0_default_active_minus1
	w.WriteUE(0)       // num_ref_idx_l1_default_active_minus1
	w.WriteSE(0)       // init_qp_minus26
	w.WriteFlag(false) // constrained_intra_pred_flag
	w.WriteFlag(false) // transform_skip_enabled_flag
	w.WriteFlag(false) // cu_qp_delta_enabled_flag
	w.WriteSE(0)       // pps_cb_qp_offset
	w.WriteSE(0)       // pps_cr_qp_offset
	w.WriteFlag(false) // pps_slice_chroma_qp_offsets_present_flag
	w.WriteFlag(false) // weighted_pred_flag
	w.WriteFlag(false) // weighted_bipred_flag
	w.WriteFlag(false) // transquant_bypass_enabled_flag
	w.WriteFlag(false) // tiles_enabled_flag
	w.WriteFlag(false) // entropy_coding_sync_enabled_flag
	w.WriteFlag(true)  // pps_loop_filter_across_slices_enabled_flag
	w.WriteFlag(false) // deblocking_filter_control_present_flag
	w.WriteFlag(false) // pps_scaling_list_data_present_flag
	w.WriteFlag(false) // lists_modification_present_flag
	w.WriteUE(0)       // log2_parallel_merge_level_minus2
	w.WriteFlag(false) // slice_segment_header_extension_present_flag

	return w.Bytes()
}

func TestParsePPSMinimal(t *testing.T) {
	t.Parallel()

	rbsp := buildMinimalPPS(2, 1)
	p, err := ParsePPS(rbsp, func(uint32) bool { return true }, false)
	if err != nil {
		t.Fatalf("ParsePPS: %v", err)
	}
	if p.ID != 2 || p.SPSID != 1 {
		t.Errorf("ID/SPSID: got %d/%d, want 2/1", p.ID, p.SPSID)
	}
	if !p.LoopFilterAcrossTilesEnabledFlag {
		t.Error("expected LoopFilterAcrossTilesEnabledFlag default true when tiles disabled")
	}
	if !p.LoopFilterAcrossSlicesEnabledFlag {
		t.Error("expected LoopFilterAcrossSlicesEnabledFlag true")
	}
}

func TestParsePPSMissingSPS(t *testing.T) {
	t.Parallel()

	rbsp := buildMinimalPPS(0, 9)
	if _, err := ParsePPS(rbsp, func(uint32) bool { return false }, false); err == nil {
		t.Error("expected error when the referenced SPS is absent and bestEffort is false")
	}
}

func TestPPSEffectiveScalingList(t *testing.T) {
	t.Parallel()

	spsList := &ScalingList{Present: true}
	sps := &SPS{ScalingList: spsList}
	pps := &PPS{}

	if got := pps.EffectiveScalingList(sps); got != spsList {
		t.Error("expected PPS to fall back to the SPS scaling list when it codes none")
	}

	ppsList := &ScalingList{Present: true}
	pps.ScalingListDataPresentFlag = true
	pps.ScalingList = ppsList
	if got := pps.EffectiveScalingList(sps); got != ppsList {
		t.Error("expected PPS's own scaling list to take precedence")
	}
}
