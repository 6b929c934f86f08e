package syntax

import "github.com/zsiec/hevccore/cabac"

// DepthProvider answers split-depth queries for the left and above
// neighbours of a coding quadtree node, the only state
// split_coding_unit_flag's context derivation needs (HEVC §9.3.4.2.2).
// Callers back it with whatever per-CTB depth map the driver keeps;
// syntax itself holds no picture-wide state.
type DepthProvider interface {
	// DepthAt returns the coding quadtree depth of the block containing
	// (x, y) in luma samples, and whether that neighbour exists (inside
	// the picture, same slice and tile, already decoded).
	DepthAt(x, y int) (depth int, available bool)
}

// DecodeSplitCuFlag decodes split_cu_flag for the coding quadtree node
// at (x, y) with depth cqtDepth. ctxInc is 1 for each of the left/above
// neighbours that exists and was split to a deeper level than this
// node, per HEVC Table 9-42's derivation.
func DecodeSplitCuFlag(d *cabac.Decoder, depths DepthProvider, x, y, cqtDepth int) (bool, error) {
	ctxInc := 0
	if depth, ok := depths.DepthAt(x-1, y); ok && depth > cqtDepth {
		ctxInc++
	}
	if depth, ok := depths.DepthAt(x, y-1); ok && depth > cqtDepth {
		ctxInc++
	}
	bin, err := d.DecodeBin(cabac.CtxSplitCodingUnitFlag + ctxInc)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCuTransquantBypassFlag decodes cu_transquant_bypass_flag, a
// single-context flag (HEVC §7.3.8.5).
func DecodeCuTransquantBypassFlag(d *cabac.Decoder) (bool, error) {
	bin, err := d.DecodeBin(cabac.CtxCuTransquantBypassFlag)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// DecodeCuSkipFlag decodes cu_skip_flag for a P/B-slice CU. ctxInc
// counts available left/above neighbours that were themselves skipped,
// mirroring split_cu_flag's neighbour-based derivation (HEVC Table 9-42).
func DecodeCuSkipFlag(d *cabac.Decoder, left, above struct {
	Skip      bool
	Available bool
}) (bool, error) {
	ctxInc := 0
	if left.Available && left.Skip {
		ctxInc++
	}
	if above.Available && above.Skip {
		ctxInc++
	}
	bin, err := d.DecodeBin(cabac.CtxSkipFlag + ctxInc)
	if err != nil {
		return false, err
	}
	return bin == 1, nil
}

// PredMode distinguishes intra- from inter-coded CUs.
type PredMode int

const (
	PredModeInter PredMode = iota
	PredModeIntra
)

// DecodeCuPredModeFlag decodes pred_mode_flag (single context; only
// present for CUs in P/B slices, since I-slice CUs are always intra).
func DecodeCuPredModeFlag(d *cabac.Decoder) (PredMode, error) {
	bin, err := d.DecodeBin(cabac.CtxPredModeFlag)
	if err != nil {
		return 0, err
	}
	if bin == 1 {
		return PredModeIntra, nil
	}
	return PredModeInter, nil
}

// PartMode is the part_mode syntax element's decoded value (Table 7-10).
type PartMode int

const (
	PartMode2Nx2N PartMode = iota
	PartMode2NxN
	PartModeNx2N
	PartModeNxN
	PartMode2NxnU
	PartMode2NxnD
	PartModenLx2N
	PartModenRx2N
)

// DecodePartMode decodes part_mode per HEVC §9.3.3.7 / Table 9-43's
// binarization, given whether the current CU is intra-coded, at the
// smallest allowed CU size, and whether asymmetric motion partitions
// are enabled for inter CUs.
func DecodePartMode(d *cabac.Decoder, predMode PredMode, isMinCbSize bool, ampEnabled bool) (PartMode, error) {
	bin0, err := d.DecodeBin(cabac.CtxPartMode)
	if err != nil {
		return 0, err
	}
	if bin0 == 1 {
		return PartMode2Nx2N, nil
	}

	if predMode == PredModeIntra {
		// Intra CUs at minimum size choose between 2Nx2N (bin0=1,
		// handled above) and NxN; larger intra CUs are always 2Nx2N.
		return PartModeNxN, nil
	}

	bin1, err := d.DecodeBin(cabac.CtxPartMode + 1)
	if err != nil {
		return 0, err
	}

	if isMinCbSize {
		if bin1 == 1 {
			return PartMode2NxN, nil
		}
		bin2, err := d.DecodeBin(cabac.CtxPartMode + 2)
		if err != nil {
			return 0, err
		}
		if bin2 == 1 {
			return PartModeNx2N, nil
		}
		return PartModeNxN, nil
	}

	if !ampEnabled {
		if bin1 == 1 {
			return PartMode2NxN, nil
		}
		return PartModeNx2N, nil
	}

	// AMP-enabled, non-minimum CU size: bin2 chooses symmetric vs
	// asymmetric, bin3 (bypass) chooses which asymmetric split.
	bin2, err := d.DecodeBin(cabac.CtxPartMode + 3)
	if err != nil {
		return 0, err
	}
	if bin2 == 1 {
		if bin1 == 1 {
			return PartMode2NxN, nil
		}
		return PartModeNx2N, nil
	}
	bin3, err := d.DecodeBypass()
	if err != nil {
		return 0, err
	}
	if bin1 == 1 {
		if bin3 == 1 {
			return PartMode2NxnD, nil
		}
		return PartMode2NxnU, nil
	}
	if bin3 == 1 {
		return PartModenRx2N, nil
	}
	return PartModenLx2N, nil
}
