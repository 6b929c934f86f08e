package paramset

import (
	"fmt"

	"github.com/zsiec/hevccore/bitstream"
)

// SliceType mirrors H.265 Table 7-7's slice_type values.
type SliceType byte

const (
	SliceTypeB SliceType = 0
	SliceTypeP SliceType = 1
	SliceTypeI SliceType = 2
)

func (t SliceType) String() string {
	switch t {
	case SliceTypeB:
		return "B"
	case SliceTypeP:
		return "P"
	case SliceTypeI:
		return "I"
	default:
		return "unknown"
	}
}

// PredWeightTable holds the weighted-prediction coefficients for one
// reference list, up to 16 entries per H.265 7.4.7.3's
// num_ref_idx_l0/l1_active_minus1 bound.
type PredWeightTable struct {
	LumaWeightFlag   []bool
	ChromaWeightFlag []bool
	LumaWeight       []int32
	LumaOffset       []int32
	ChromaWeight     [][2]int32
	ChromaOffset     [][2]int32
}

// SliceHeader is the parsed slice_segment_header(), resolved once at
// its start against a fixed PPS/SPS snapshot so later
// parameter-set replacements cannot retroactively change an in-flight
// slice's interpretation.
type SliceHeader struct {
	FirstSliceInPicFlag   bool
	NoOutputOfPriorPicsFlag bool
	PPSID                 uint32
	DependentSliceSegmentFlag bool
	SegmentAddress        uint32

	SliceType SliceType

	PicOutputFlag bool
	ColourPlaneID byte

	PicOrderCntLSB uint32

	ShortTermRefPicSetSPSFlag bool
	ShortTermRefPicSetIdx     uint32
	InlineShortTermRPS        *ShortTermRPS

	NumLongTermSPS   uint32
	NumLongTermPics  uint32
	LTIdxSPS         []uint32
	PocLSBLT         []uint32
	UsedByCurrPicLT  []bool
	DeltaPocMSBPresent []bool
	DeltaPocMSBCycleLT []uint32

	TemporalMVPEnabledFlag bool

	SAOLumaFlag   bool
	SAOChromaFlag bool

	NumRefIdxActiveOverrideFlag bool
	NumRefIdxL0ActiveMinus1     uint32
	NumRefIdxL1ActiveMinus1     uint32

	RefPicListModificationFlagL0 bool
	ListEntryL0                  []uint32
	RefPicListModificationFlagL1 bool
	ListEntryL1                  []uint32

	MvdL1ZeroFlag       bool
	CabacInitFlag       bool
	CollocatedFromL0Flag bool
	CollocatedRefIdx    uint32

	PredWeightL0 *PredWeightTable
	PredWeightL1 *PredWeightTable

	MaxNumMergeCand uint32

	QPDelta          int32
	CbQPOffset       int32
	CrQPOffset       int32
	CuChromaQPOffsetEnabledFlag bool

	DeblockingFilterOverrideFlag bool
	DeblockingFilterDisabledFlag bool
	BetaOffsetDiv2               int32
	TcOffsetDiv2                 int32

	LoopFilterAcrossSlicesEnabledFlag bool

	NumEntryPointOffsets uint32
	EntryPointOffsetMinus1 []uint32

	// SPS/PPS snapshot resolved at parse time.
	SPS *SPS
	PPS *PPS
}

// ParseSliceHeader parses slice_segment_header() per H.265 7.3.6. nalType
// identifies the enclosing NAL unit (IRAP-ness gates several fields),
// pps/sps are the already-resolved parameter sets the slice references,
// and dependentBase is the SliceHeader of the preceding independent
// slice segment in the same picture, required to read dependent slice
// segments (their header is almost entirely inherited).
func ParseSliceHeader(rbsp []byte, nalType byte, isIRAP, isIDR bool, pps *PPS, sps *SPS, dependentBase *SliceHeader) (*SliceHeader, error) {
	if pps == nil || sps == nil {
		return nil, fmt.Errorf("paramset: slice header references unresolved parameter set: %w", bitstream.ErrInvalidBitstream)
	}

	r := bitstream.New(rbsp)
	h := &SliceHeader{SPS: sps, PPS: pps}

	firstSlice, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	h.FirstSliceInPicFlag = firstSlice

	if isIRAP {
		if h.NoOutputOfPriorPicsFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	ppsID, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	h.PPSID = ppsID

	if !h.FirstSliceInPicFlag {
		if pps.DependentSliceSegmentsEnabledFlag {
			if h.DependentSliceSegmentFlag, err = r.ReadFlag(); err != nil {
				return nil, err
			}
		}
		ctbSizeY := uint32(1) << sps.Log2CtbSizeY()
		picWidthInCtbs := (sps.PicWidthInLumaSamples + ctbSizeY - 1) / ctbSizeY
		picHeightInCtbs := (sps.PicHeightInLumaSamples + ctbSizeY - 1) / ctbSizeY
		picSizeInCtbs := picWidthInCtbs * picHeightInCtbs
		bits := ceilLog2(picSizeInCtbs)
		if bits > 0 {
			addr, err := r.ReadBits(bits)
			if err != nil {
				return nil, err
			}
			h.SegmentAddress = addr
		}
	}

	if h.DependentSliceSegmentFlag {
		if dependentBase == nil {
			return nil, fmt.Errorf("paramset: dependent slice segment without a preceding independent segment: %w", bitstream.ErrInvalidBitstream)
		}
		base := *dependentBase
		base.FirstSliceInPicFlag = h.FirstSliceInPicFlag
		base.DependentSliceSegmentFlag = true
		base.SegmentAddress = h.SegmentAddress
		base.PPSID = h.PPSID
		base.NoOutputOfPriorPicsFlag = h.NoOutputOfPriorPicsFlag
		return &base, nil
	}

	for i := byte(0); i < pps.NumExtraSliceHeaderBits; i++ {
		if _, err := r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	sliceTypeVal, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	h.SliceType = SliceType(sliceTypeVal)

	h.PicOutputFlag = true
	if pps.OutputFlagPresentFlag {
		if h.PicOutputFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	if sps.SeparateColourPlaneFlag {
		cp, err := r.ReadBits(2)
		if err != nil {
			return nil, err
		}
		h.ColourPlaneID = byte(cp)
	}

	if !isIDR {
		lsbBits := int(sps.Log2MaxPicOrderCntLsbMinus4 + 4)
		lsb, err := r.ReadBits(lsbBits)
		if err != nil {
			return nil, err
		}
		h.PicOrderCntLSB = lsb

		stRpsSPSFlag, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		h.ShortTermRefPicSetSPSFlag = stRpsSPSFlag
		if !h.ShortTermRefPicSetSPSFlag {
			rps, err := parseShortTermRPS(r, uint32(len(sps.ShortTermRefPicSets)), uint32(len(sps.ShortTermRefPicSets)), sps.ShortTermRefPicSets)
			if err != nil {
				return nil, err
			}
			h.InlineShortTermRPS = rps
		} else if len(sps.ShortTermRefPicSets) > 1 {
			bits := ceilLog2(uint32(len(sps.ShortTermRefPicSets)))
			if bits > 0 {
				idx, err := r.ReadBits(bits)
				if err != nil {
					return nil, err
				}
				h.ShortTermRefPicSetIdx = idx
			}
		}

		if sps.LongTermRefPicsPresentFlag {
			if sps.NumLongTermRefPicsSPS > 0 {
				if h.NumLongTermSPS, err = r.ReadUE(); err != nil {
					return nil, err
				}
			}
			if h.NumLongTermPics, err = r.ReadUE(); err != nil {
				return nil, err
			}
			total := h.NumLongTermSPS + h.NumLongTermPics
			h.LTIdxSPS = make([]uint32, total)
			h.PocLSBLT = make([]uint32, total)
			h.UsedByCurrPicLT = make([]bool, total)
			h.DeltaPocMSBPresent = make([]bool, total)
			h.DeltaPocMSBCycleLT = make([]uint32, total)
			for i := uint32(0); i < total; i++ {
				if i < h.NumLongTermSPS {
					if sps.NumLongTermRefPicsSPS > 1 {
						bits := ceilLog2(sps.NumLongTermRefPicsSPS)
						if bits > 0 {
							idx, err := r.ReadBits(bits)
							if err != nil {
								return nil, err
							}
							h.LTIdxSPS[i] = idx
						}
					}
					h.PocLSBLT[i] = sps.LTRefPicPocLSBSPS[h.LTIdxSPS[i]]
					h.UsedByCurrPicLT[i] = sps.UsedByCurrPicLTSPSFlag[h.LTIdxSPS[i]]
				} else {
					lsbBits := int(sps.Log2MaxPicOrderCntLsbMinus4 + 4)
					v, err := r.ReadBits(lsbBits)
					if err != nil {
						return nil, err
					}
					h.PocLSBLT[i] = v
					used, err := r.ReadFlag()
					if err != nil {
						return nil, err
					}
					h.UsedByCurrPicLT[i] = used
				}
				present, err := r.ReadFlag()
				if err != nil {
					return nil, err
				}
				h.DeltaPocMSBPresent[i] = present
				if present {
					v, err := r.ReadUE()
					if err != nil {
						return nil, err
					}
					h.DeltaPocMSBCycleLT[i] = v
				}
			}
		}

		if sps.TemporalMVPEnabledFlag {
			if h.TemporalMVPEnabledFlag, err = r.ReadFlag(); err != nil {
				return nil, err
			}
		}
	}

	if sps.SampleAdaptiveOffsetEnabledFlag {
		if h.SAOLumaFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		chromaArrayType := sps.ChromaFormatIDC
		if sps.SeparateColourPlaneFlag {
			chromaArrayType = 0
		}
		if chromaArrayType != 0 {
			if h.SAOChromaFlag, err = r.ReadFlag(); err != nil {
				return nil, err
			}
		}
	}

	if h.SliceType == SliceTypeP || h.SliceType == SliceTypeB {
		if h.NumRefIdxActiveOverrideFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		h.NumRefIdxL0ActiveMinus1 = pps.NumRefIdxL0DefaultActiveMinus1
		h.NumRefIdxL1ActiveMinus1 = pps.NumRefIdxL1DefaultActiveMinus1
		if h.NumRefIdxActiveOverrideFlag {
			if h.NumRefIdxL0ActiveMinus1, err = r.ReadUE(); err != nil {
				return nil, err
			}
			if h.SliceType == SliceTypeB {
				if h.NumRefIdxL1ActiveMinus1, err = r.ReadUE(); err != nil {
					return nil, err
				}
			}
		}

		numPicTotalCurr := numPicTotalCurr(h, sps)

		if pps.ListsModificationPresentFlag && numPicTotalCurr > 1 {
			if err := parseRefPicListModification(r, h, numPicTotalCurr); err != nil {
				return nil, err
			}
		}

		if h.SliceType == SliceTypeB {
			if h.MvdL1ZeroFlag, err = r.ReadFlag(); err != nil {
				return nil, err
			}
		}
		if pps.CabacInitPresentFlag {
			if h.CabacInitFlag, err = r.ReadFlag(); err != nil {
				return nil, err
			}
		}
		if h.TemporalMVPEnabledFlag {
			h.CollocatedFromL0Flag = true
			if h.SliceType == SliceTypeB {
				if h.CollocatedFromL0Flag, err = r.ReadFlag(); err != nil {
					return nil, err
				}
			}
			numRefActive := h.NumRefIdxL1ActiveMinus1
			if h.CollocatedFromL0Flag {
				numRefActive = h.NumRefIdxL0ActiveMinus1
			}
			if numRefActive > 0 {
				if h.CollocatedRefIdx, err = r.ReadUE(); err != nil {
					return nil, err
				}
			}
		}

		if (pps.WeightedPredFlag && h.SliceType == SliceTypeP) ||
			(pps.WeightedBipredFlag && h.SliceType == SliceTypeB) {
			wt, err := parsePredWeightTable(r, sps, h, false)
			if err != nil {
				return nil, err
			}
			h.PredWeightL0 = wt
			if h.SliceType == SliceTypeB {
				wt1, err := parsePredWeightTable(r, sps, h, true)
				if err != nil {
					return nil, err
				}
				h.PredWeightL1 = wt1
			}
		}

		maxMerge, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		h.MaxNumMergeCand = 5 - maxMerge
	}

	if h.QPDelta, err = r.ReadSE(); err != nil {
		return nil, err
	}
	if pps.SliceChromaQPOffsetsPresentFlag {
		if h.CbQPOffset, err = r.ReadSE(); err != nil {
			return nil, err
		}
		if h.CrQPOffset, err = r.ReadSE(); err != nil {
			return nil, err
		}
	}

	if pps.DeblockingFilterControlPresentFlag && pps.DeblockingFilterOverrideEnabledFlag {
		if h.DeblockingFilterOverrideFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	}
	h.DeblockingFilterDisabledFlag = pps.PPSDeblockingFilterDisabledFlag
	h.BetaOffsetDiv2 = pps.BetaOffsetDiv2
	h.TcOffsetDiv2 = pps.TcOffsetDiv2
	if h.DeblockingFilterOverrideFlag {
		if h.DeblockingFilterDisabledFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		if !h.DeblockingFilterDisabledFlag {
			if h.BetaOffsetDiv2, err = r.ReadSE(); err != nil {
				return nil, err
			}
			if h.TcOffsetDiv2, err = r.ReadSE(); err != nil {
				return nil, err
			}
		}
	}

	h.LoopFilterAcrossSlicesEnabledFlag = pps.LoopFilterAcrossSlicesEnabledFlag
	if pps.LoopFilterAcrossSlicesEnabledFlag &&
		(h.SAOLumaFlag || h.SAOChromaFlag || !h.DeblockingFilterDisabledFlag) {
		if h.LoopFilterAcrossSlicesEnabledFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	if pps.TilesEnabledFlag || pps.EntropyCodingSyncEnabledFlag {
		numOffsets, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		h.NumEntryPointOffsets = numOffsets
		if numOffsets > 0 {
			lenMinus1, err := r.ReadUE()
			if err != nil {
				return nil, err
			}
			h.EntryPointOffsetMinus1 = make([]uint32, numOffsets)
			for i := uint32(0); i < numOffsets; i++ {
				v, err := r.ReadBits(int(lenMinus1) + 1)
				if err != nil {
					return nil, err
				}
				h.EntryPointOffsetMinus1[i] = v
			}
		}
	}

	if pps.SliceSegmentHeaderExtensionPresentFlag {
		extLen, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		if extLen > 0 {
			if _, err := r.ReadBits(int(extLen) * 8); err != nil {
				return nil, err
			}
		}
	}

	// byte_alignment() and slice_segment_data() follow; the CABAC
	// decoder starts reading from the current bit position.
	return h, nil
}

func ceilLog2(n uint32) int {
	if n <= 1 {
		return 0
	}
	bits := 0
	v := n - 1
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

func numPicTotalCurr(h *SliceHeader, sps *SPS) uint32 {
	rps := h.InlineShortTermRPS
	if rps == nil && int(h.ShortTermRefPicSetIdx) < len(sps.ShortTermRefPicSets) {
		rps = sps.ShortTermRefPicSets[h.ShortTermRefPicSetIdx]
	}
	var n uint32
	if rps != nil {
		for _, used := range rps.UsedS0 {
			if used {
				n++
			}
		}
		for _, used := range rps.UsedS1 {
			if used {
				n++
			}
		}
	}
	for _, used := range h.UsedByCurrPicLT {
		if used {
			n++
		}
	}
	return n
}

func parseRefPicListModification(r *bitstream.Reader, h *SliceHeader, numPicTotalCurr uint32) error {
	bits := ceilLog2(numPicTotalCurr)

	flag0, err := r.ReadFlag()
	if err != nil {
		return err
	}
	h.RefPicListModificationFlagL0 = flag0
	if h.RefPicListModificationFlagL0 {
		h.ListEntryL0 = make([]uint32, h.NumRefIdxL0ActiveMinus1+1)
		for i := range h.ListEntryL0 {
			if bits == 0 {
				continue
			}
			v, err := r.ReadBits(bits)
			if err != nil {
				return err
			}
			h.ListEntryL0[i] = v
		}
	}

	if h.SliceType == SliceTypeB {
		flag1, err := r.ReadFlag()
		if err != nil {
			return err
		}
		h.RefPicListModificationFlagL1 = flag1
		if h.RefPicListModificationFlagL1 {
			h.ListEntryL1 = make([]uint32, h.NumRefIdxL1ActiveMinus1+1)
			for i := range h.ListEntryL1 {
				if bits == 0 {
					continue
				}
				v, err := r.ReadBits(bits)
				if err != nil {
					return err
				}
				h.ListEntryL1[i] = v
			}
		}
	}
	return nil
}

// parsePredWeightTable parses pred_weight_table() per H.265 7.3.6.3.
// isL1 selects which list's active count bounds the loop. The weight
// denominators are read (by the L0 call only) and discarded; weights
// and offsets are stored as read from the bitstream, and entries whose
// flag is false are left at zero. No default weight is filled in.
func parsePredWeightTable(r *bitstream.Reader, sps *SPS, h *SliceHeader, isL1 bool) (*PredWeightTable, error) {
	numRefActive := h.NumRefIdxL0ActiveMinus1 + 1
	if isL1 {
		numRefActive = h.NumRefIdxL1ActiveMinus1 + 1
	}

	if !isL1 {
		if _, err := r.ReadUE(); err != nil { // luma_log2_weight_denom
			return nil, err
		}
	}

	chromaArrayType := sps.ChromaFormatIDC
	if sps.SeparateColourPlaneFlag {
		chromaArrayType = 0
	}
	if !isL1 && chromaArrayType != 0 {
		if _, err := r.ReadSE(); err != nil { // delta_chroma_log2_weight_denom
			return nil, err
		}
	}

	wt := &PredWeightTable{
		LumaWeightFlag:   make([]bool, numRefActive),
		ChromaWeightFlag: make([]bool, numRefActive),
		LumaWeight:       make([]int32, numRefActive),
		LumaOffset:       make([]int32, numRefActive),
		ChromaWeight:     make([][2]int32, numRefActive),
		ChromaOffset:     make([][2]int32, numRefActive),
	}

	for i := uint32(0); i < numRefActive; i++ {
		flag, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		wt.LumaWeightFlag[i] = flag
	}
	if chromaArrayType != 0 {
		for i := uint32(0); i < numRefActive; i++ {
			flag, err := r.ReadFlag()
			if err != nil {
				return nil, err
			}
			wt.ChromaWeightFlag[i] = flag
		}
	}

	for i := uint32(0); i < numRefActive; i++ {
		if wt.LumaWeightFlag[i] {
			w, err := r.ReadSE()
			if err != nil {
				return nil, err
			}
			o, err := r.ReadSE()
			if err != nil {
				return nil, err
			}
			wt.LumaWeight[i] = w
			wt.LumaOffset[i] = o
		}
		if wt.ChromaWeightFlag[i] {
			for c := 0; c < 2; c++ {
				w, err := r.ReadSE()
				if err != nil {
					return nil, err
				}
				o, err := r.ReadSE()
				if err != nil {
					return nil, err
				}
				wt.ChromaWeight[i][c] = w
				wt.ChromaOffset[i][c] = o
			}
		}
	}

	return wt, nil
}
