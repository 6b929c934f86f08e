package syntax

import "github.com/zsiec/hevccore/cabac"

// DecodeRefIdx decodes ref_idx_l0/ref_idx_l1 (HEVC §9.3.3.4): truncated
// unary over at most 2 context-coded bins, remaining bins bypass,
// capped at numRefIdxActive-1.
func DecodeRefIdx(d *cabac.Decoder, base int, numRefIdxActive int) (int, error) {
	if numRefIdxActive <= 1 {
		return 0, nil
	}
	bin, err := d.DecodeBin(base)
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 0, nil
	}
	if numRefIdxActive == 2 {
		return 1, nil
	}
	bin, err = d.DecodeBin(base + 1)
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 1, nil
	}
	idx := 2
	for idx < numRefIdxActive-1 {
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

// InterPredIdc selects which reference list(s) a PU predicts from.
type InterPredIdc int

const (
	InterPredL0 InterPredIdc = iota
	InterPredL1
	InterPredBi
)

// DecodeInterPredIdc decodes inter_pred_idc (HEVC §9.3.3.6 / Table
// 9-44), whose binarization depends on whether the current PU is 8x4
// or 4x8, i.e. nPbW+nPbH == 12 (PRED_BI then disallowed).
func DecodeInterPredIdc(d *cabac.Decoder, ctDepth int, nPbW, nPbH int) (InterPredIdc, error) {
	ctxInc := ctDepth
	if nPbW+nPbH != 12 {
		bin, err := d.DecodeBin(cabac.CtxInterPredIdc + ctxInc)
		if err != nil {
			return 0, err
		}
		if bin == 1 {
			return InterPredBi, nil
		}
	}
	bin, err := d.DecodeBin(cabac.CtxInterPredIdc + 4)
	if err != nil {
		return 0, err
	}
	if bin == 1 {
		return InterPredL1, nil
	}
	return InterPredL0, nil
}

// DecodePrevIntraLumaPredFlag decodes prev_intra_luma_pred_flag, a
// single-context bin selecting MPM-list vs explicit-mode signalling.
func DecodePrevIntraLumaPredFlag(d *cabac.Decoder) (bool, error) {
	bin, err := d.DecodeBin(cabac.CtxPrevIntraLumaPredFlag)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeMpmIdx decodes mpm_idx: a bypass-coded truncated unary code
// over the 3-entry most-probable-mode list.
func DecodeMpmIdx(d *cabac.Decoder) (int, error) {
	bin, err := d.DecodeBypass()
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 0, nil
	}
	bin, err = d.DecodeBypass()
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 1, nil
	}
	return 2, nil
}

// DecodeRemIntraLumaPredMode decodes rem_intra_luma_pred_mode: a fixed
// 5-bit bypass field selecting among the 32 non-MPM intra modes.
func DecodeRemIntraLumaPredMode(d *cabac.Decoder) (int, error) {
	v, err := d.DecodeBypassBits(5)
	return int(v), err
}

// DecodeIntraChromaPredMode decodes intra_chroma_pred_mode (HEVC
// §9.3.3.8): one context-coded bin selecting "derived from luma" vs an
// explicit 2-bit bypass index.
func DecodeIntraChromaPredMode(d *cabac.Decoder) (int, error) {
	bin, err := d.DecodeBin(cabac.CtxIntraChromaPredMode)
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 4, nil // DM_CHROMA: derive from the luma mode
	}
	v, err := d.DecodeBypassBits(2)
	return int(v), err
}

// DecodeNoResidualDataFlag decodes rqt_root_cbf's complement as coded
// in the HEVC syntax (merge-skip "no residual" shorthand), a single
// context bin.
func DecodeNoResidualDataFlag(d *cabac.Decoder) (bool, error) {
	bin, err := d.DecodeBin(cabac.CtxNoResidualDataFlag)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeSplitTransformFlag decodes split_transform_flag; its single
// context group is indexed by 5-log2TrafoSize (HEVC §9.3.4.2.2).
func DecodeSplitTransformFlag(d *cabac.Decoder, log2TrafoSize int) (bool, error) {
	bin, err := d.DecodeBin(cabac.CtxSplitTransformFlag + (5 - log2TrafoSize))
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCbfLuma decodes cbf_luma; ctxInc is 1 for the root transform
// unit (trafoDepth==0), 0 otherwise.
func DecodeCbfLuma(d *cabac.Decoder, trafoDepth int) (bool, error) {
	ctxInc := 0
	if trafoDepth == 0 {
		ctxInc = 1
	}
	bin, err := d.DecodeBin(cabac.CtxCbfLuma + ctxInc)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCbfChroma decodes cbf_cb/cbf_cr; ctxInc is trafoDepth, and the
// Cb/Cr group offset (0 or "+2") is folded into base by the caller so
// this single helper serves both.
func DecodeCbfChroma(d *cabac.Decoder, base, trafoDepth int) (bool, error) {
	bin, err := d.DecodeBin(base + trafoDepth)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeTransformSkipFlag decodes transform_skip_flag; ctxInc is 0 for
// luma, 1 for chroma.
func DecodeTransformSkipFlag(d *cabac.Decoder, cIdx int) (bool, error) {
	ctxInc := 0
	if cIdx > 0 {
		ctxInc = 1
	}
	bin, err := d.DecodeBin(cabac.CtxTransformSkipFlag + ctxInc)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCuQpDeltaAbs decodes cu_qp_delta_abs (HEVC §9.3.3.11): a
// context-coded prefix (up to 5 bins, TR-binarized) followed by an
// EGk(0) bypass suffix for values >= 5.
func DecodeCuQpDeltaAbs(d *cabac.Decoder) (int32, error) {
	prefix := 0
	for prefix < 5 {
		ctxInc := 0
		if prefix > 0 {
			ctxInc = 1
		}
		bin, err := d.DecodeBin(cabac.CtxCuQpDelta + ctxInc)
		if err != nil {
			return 0, err
		}
		if bin == 0 {
			break
		}
		prefix++
	}
	if prefix < 5 {
		return int32(prefix), nil
	}
	suffix, err := decodeEGk(d, 0)
	if err != nil {
		return 0, err
	}
	return int32(5) + suffix, nil
}

// DecodeCuQpDeltaSign decodes cu_qp_delta_sign_flag, a single bypass bit.
func DecodeCuQpDeltaSign(d *cabac.Decoder) (bool, error) {
	bin, err := d.DecodeBypass()
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCuChromaQpOffsetFlag decodes cu_chroma_qp_offset_flag, a
// single-context bin.
func DecodeCuChromaQpOffsetFlag(d *cabac.Decoder) (bool, error) {
	bin, err := d.DecodeBin(cabac.CtxCuChromaQpOffsetFlag)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCuChromaQpOffsetIdx decodes cu_chroma_qp_offset_idx: truncated
// unary, single context for the first bin, bypass thereafter, capped at
// chromaQpOffsetListLen-1.
func DecodeCuChromaQpOffsetIdx(d *cabac.Decoder, chromaQpOffsetListLen int) (int, error) {
	if chromaQpOffsetListLen <= 1 {
		return 0, nil
	}
	bin, err := d.DecodeBin(cabac.CtxCuChromaQpOffsetIdx)
	if err != nil {
		return 0, err
	}
	if bin == 0 {
		return 0, nil
	}
	idx := 1
	for idx < chromaQpOffsetListLen-1 {
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

// DecodeExplicitRdpcmFlag/DirFlag decode the residual-DPCM signalling
// used by transform-skip/lossless coding blocks; each is a single
// context bin selected by cIdx (0 luma, 1 chroma).
func DecodeExplicitRdpcmFlag(d *cabac.Decoder, cIdx int) (bool, error) {
	ctxInc := 0
	if cIdx > 0 {
		ctxInc = 1
	}
	bin, err := d.DecodeBin(cabac.CtxExplicitRdpcmFlag + ctxInc)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

func DecodeExplicitRdpcmDirFlag(d *cabac.Decoder, cIdx int) (bool, error) {
	ctxInc := 0
	if cIdx > 0 {
		ctxInc = 1
	}
	bin, err := d.DecodeBin(cabac.CtxExplicitRdpcmDirFlag + ctxInc)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}
