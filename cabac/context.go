// Package cabac implements the context-adaptive binary arithmetic
// decoding engine used by every slice_segment_data() syntax element:
// the regular/bypass/terminate bin decoders of ITU-T H.265 9.3.4, the
// per-context probability state table, its slice-type-dependent
// initialization, and the wavefront row-to-row state handoff.
package cabac

// NumContexts is the total count of context-coded bins across every
// HEVC syntax element, grouped below by element. Elements that are
// always bypass- or fixed-probability-coded (sao_eo_class,
// end_of_slice_flag, coeff_sign_flag, and the various exp-Golomb
// suffixes) need no context slot and so contribute no offset.
const NumContexts = 179

// Context group base offsets, one per syntax element that carries its
// own context state. The integer following each name in a comment is
// the number of contexts the group occupies.
const (
	CtxSaoMergeFlag              = 0  // 1
	CtxSaoTypeIdx                = 1  // 1
	CtxSplitCodingUnitFlag       = 2  // 3
	CtxCuTransquantBypassFlag    = 5  // 1
	CtxSkipFlag                  = 6  // 3
	CtxCuQpDelta                 = 9  // 3
	CtxPredModeFlag              = 12 // 1
	CtxPartMode                  = 13 // 4
	CtxPrevIntraLumaPredFlag     = 17 // 1
	CtxIntraChromaPredMode       = 18 // 2
	CtxMergeFlag                 = 20 // 1
	CtxMergeIdx                  = 21 // 1
	CtxInterPredIdc              = 22 // 5
	CtxRefIdxL0                  = 27 // 2
	CtxRefIdxL1                  = 29 // 2
	CtxAbsMvdGreater0Flag        = 31 // 2
	CtxAbsMvdGreater1Flag        = 33 // 2
	CtxMvpLxFlag                 = 35 // 1
	CtxNoResidualDataFlag        = 36 // 1
	CtxSplitTransformFlag        = 37 // 3
	CtxCbfLuma                   = 40 // 2
	CtxCbfCbCr                   = 42 // 5
	CtxTransformSkipFlag         = 47 // 2
	CtxExplicitRdpcmFlag         = 49 // 2
	CtxExplicitRdpcmDirFlag      = 51 // 2
	CtxLastSigCoeffXPrefix       = 53 // 18
	CtxLastSigCoeffYPrefix       = 71 // 18
	CtxSigCoeffGroupFlag         = 89 // 4
	CtxSigCoeffFlag              = 93 // 44
	CtxCoeffAbsLevelGreater1Flag = 137 // 24
	CtxCoeffAbsLevelGreater2Flag = 161 // 6
	CtxLog2ResScaleAbs           = 167 // 8
	CtxResScaleSignFlag          = 175 // 2
	CtxCuChromaQpOffsetFlag      = 177 // 1
	CtxCuChromaQpOffsetIdx       = 178 // 1
)
