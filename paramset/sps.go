package paramset

import (
	"fmt"

	"github.com/zsiec/hevccore/bitstream"
)

// ConformanceWindow is the conformance cropping rectangle, in
// chroma-format-scaled luma samples, applied to get the displayed
// picture dimensions from the coded ones.
type ConformanceWindow struct {
	LeftOffset, RightOffset, TopOffset, BottomOffset uint32
}

// SPS is an immutable, parsed Sequence Parameter Set.
type SPS struct {
	ID                 uint32
	VPSID              uint32
	MaxSubLayersMinus1 uint32
	ProfileTierLevel   ProfileTierLevel

	ChromaFormatIDC         uint32
	SeparateColourPlaneFlag bool
	PicWidthInLumaSamples   uint32
	PicHeightInLumaSamples  uint32
	ConformanceWindow       *ConformanceWindow

	BitDepthLumaMinus8   uint32
	BitDepthChromaMinus8 uint32

	Log2MaxPicOrderCntLsbMinus4 uint32
	MaxDecPicBuffering          []uint32 // per sub-layer, [i] = max_dec_pic_buffering_minus1[i]+1
	MaxNumReorderPics           []uint32
	MaxLatencyIncreasePlus1     []uint32

	Log2MinLumaCodingBlockSizeMinus3     uint32
	Log2DiffMaxMinLumaCodingBlockSize    uint32
	Log2MinLumaTransformBlockSizeMinus2  uint32
	Log2DiffMaxMinLumaTransformBlockSize uint32
	MaxTransformHierarchyDepthInter      uint32
	MaxTransformHierarchyDepthIntra      uint32

	ScalingListEnabledFlag bool
	ScalingList            *ScalingList // nil unless scaling_list_data_present_flag

	AMPEnabledFlag                  bool
	SampleAdaptiveOffsetEnabledFlag bool

	PCMEnabledFlag                       bool
	PCMSampleBitDepthLumaMinus1          byte
	PCMSampleBitDepthChromaMinus1        byte
	Log2MinPCMLumaCodingBlockSizeMinus3  uint32
	Log2DiffMaxMinPCMLumaCodingBlockSize uint32
	PCMLoopFilterDisabledFlag            bool

	ShortTermRefPicSets             []*ShortTermRPS
	LongTermRefPicsPresentFlag      bool
	NumLongTermRefPicsSPS           uint32
	LTRefPicPocLSBSPS               []uint32
	UsedByCurrPicLTSPSFlag          []bool
	TemporalMVPEnabledFlag          bool
	StrongIntraSmoothingEnabledFlag bool

	VUI *VUI
}

// Log2CtbSizeY is log2 of the CTB size in luma samples.
func (s *SPS) Log2CtbSizeY() uint32 {
	return s.Log2MinLumaCodingBlockSizeMinus3 + 3 + s.Log2DiffMaxMinLumaCodingBlockSize
}

// MaxPicOrderCntLsb is 2^(log2_max_pic_order_cnt_lsb_minus4+4), the
// modulus POC LSB arithmetic wraps at.
func (s *SPS) MaxPicOrderCntLsb() uint32 {
	return 1 << (s.Log2MaxPicOrderCntLsbMinus4 + 4)
}

// Width/Height return the picture dimensions cropped by the conformance
// window, whenever one is signalled. The VUI default display window is
// not applied here.
func (s *SPS) Width() int {
	w := int(s.PicWidthInLumaSamples)
	if s.ConformanceWindow != nil {
		subW, _ := chromaSubsampling(s.ChromaFormatIDC)
		w -= int((s.ConformanceWindow.LeftOffset + s.ConformanceWindow.RightOffset) * subW)
	}
	return w
}

func (s *SPS) Height() int {
	h := int(s.PicHeightInLumaSamples)
	if s.ConformanceWindow != nil {
		_, subH := chromaSubsampling(s.ChromaFormatIDC)
		h -= int((s.ConformanceWindow.TopOffset + s.ConformanceWindow.BottomOffset) * subH)
	}
	return h
}

func chromaSubsampling(chromaFormatIDC uint32) (uint32, uint32) {
	switch chromaFormatIDC {
	case 1:
		return 2, 2
	case 2:
		return 2, 1
	default:
		return 1, 1
	}
}

// ParseSPS parses an SPS NAL unit's RBSP. vpsPresent resolves whether
// the referenced VPS id is currently installed; with bestEffort false a
// missing VPS is ErrInvalidBitstream, while bestEffort true lets
// parsing proceed regardless, for decoders that tolerate out-of-order
// parameter sets.
func ParseSPS(rbsp []byte, vpsPresent func(id uint32) bool, bestEffort bool) (*SPS, error) {
	r := bitstream.New(rbsp)
	s := &SPS{}

	vpsID, err := r.ReadBits(4)
	if err != nil {
		return nil, err
	}
	s.VPSID = vpsID
	if vpsPresent != nil && !vpsPresent(s.VPSID) && !bestEffort {
		return nil, fmt.Errorf("paramset: sps references absent vps %d: %w", s.VPSID, bitstream.ErrInvalidBitstream)
	}

	maxSubLayersMinus1, err := r.ReadBits(3)
	if err != nil {
		return nil, err
	}
	s.MaxSubLayersMinus1 = maxSubLayersMinus1

	if _, err := r.ReadFlag(); err != nil { // sps_temporal_id_nesting_flag
		return nil, err
	}

	ptl, err := profileTierLevelCommon(r)
	if err != nil {
		return nil, err
	}
	s.ProfileTierLevel = ptl
	if err := skipProfileTierLevelSubLayers(r, s.MaxSubLayersMinus1); err != nil {
		return nil, err
	}

	id, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	s.ID = id
	if s.ID >= MaxSPSCount {
		return nil, fmt.Errorf("paramset: sps_seq_parameter_set_id %d exceeds max %d: %w", s.ID, MaxSPSCount, bitstream.ErrInvalidBitstream)
	}

	chromaFormatIDC, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	s.ChromaFormatIDC = chromaFormatIDC
	if s.ChromaFormatIDC == 3 {
		if s.SeparateColourPlaneFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	if s.PicWidthInLumaSamples, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.PicHeightInLumaSamples, err = r.ReadUE(); err != nil {
		return nil, err
	}

	conformanceWindowFlag, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if conformanceWindowFlag {
		cw := &ConformanceWindow{}
		if cw.LeftOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if cw.RightOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if cw.TopOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if cw.BottomOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		s.ConformanceWindow = cw
	}

	if s.BitDepthLumaMinus8, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.BitDepthChromaMinus8, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.Log2MaxPicOrderCntLsbMinus4, err = r.ReadUE(); err != nil {
		return nil, err
	}

	subLayerOrderingInfoPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	start := s.MaxSubLayersMinus1
	if subLayerOrderingInfoPresent {
		start = 0
	}
	n := s.MaxSubLayersMinus1 - start + 1
	s.MaxDecPicBuffering = make([]uint32, n)
	s.MaxNumReorderPics = make([]uint32, n)
	s.MaxLatencyIncreasePlus1 = make([]uint32, n)
	for i := uint32(0); i < n; i++ {
		v, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		s.MaxDecPicBuffering[i] = v + 1
		if s.MaxNumReorderPics[i], err = r.ReadUE(); err != nil {
			return nil, err
		}
		if s.MaxLatencyIncreasePlus1[i], err = r.ReadUE(); err != nil {
			return nil, err
		}
	}

	if s.Log2MinLumaCodingBlockSizeMinus3, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.Log2DiffMaxMinLumaCodingBlockSize, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.Log2MinLumaTransformBlockSizeMinus2, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.Log2DiffMaxMinLumaTransformBlockSize, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.MaxTransformHierarchyDepthInter, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if s.MaxTransformHierarchyDepthIntra, err = r.ReadUE(); err != nil {
		return nil, err
	}

	if s.ScalingListEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if s.ScalingListEnabledFlag {
		present, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		if present {
			sl, err := parseScalingListData(r)
			if err != nil {
				return nil, err
			}
			s.ScalingList = sl
		}
	}

	if s.AMPEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if s.SampleAdaptiveOffsetEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if s.PCMEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if s.PCMEnabledFlag {
		v, err := r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		s.PCMSampleBitDepthLumaMinus1 = byte(v)
		v, err = r.ReadBits(4)
		if err != nil {
			return nil, err
		}
		s.PCMSampleBitDepthChromaMinus1 = byte(v)
		if s.Log2MinPCMLumaCodingBlockSizeMinus3, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if s.Log2DiffMaxMinPCMLumaCodingBlockSize, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if s.PCMLoopFilterDisabledFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	numShortTermRefPicSets, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	if numShortTermRefPicSets > MaxShortTermRPSCount {
		return nil, fmt.Errorf("paramset: num_short_term_ref_pic_sets %d exceeds max %d: %w", numShortTermRefPicSets, MaxShortTermRPSCount, bitstream.ErrInvalidBitstream)
	}
	s.ShortTermRefPicSets = make([]*ShortTermRPS, 0, numShortTermRefPicSets)
	for i := uint32(0); i < numShortTermRefPicSets; i++ {
		rps, err := parseShortTermRPS(r, i, numShortTermRefPicSets, s.ShortTermRefPicSets)
		if err != nil {
			return nil, err
		}
		s.ShortTermRefPicSets = append(s.ShortTermRefPicSets, rps)
	}

	if s.LongTermRefPicsPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if s.LongTermRefPicsPresentFlag {
		numLT, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		if numLT > MaxLongTermRefCount {
			return nil, fmt.Errorf("paramset: num_long_term_ref_pics_sps %d exceeds max %d: %w", numLT, MaxLongTermRefCount, bitstream.ErrInvalidBitstream)
		}
		s.NumLongTermRefPicsSPS = numLT
		s.LTRefPicPocLSBSPS = make([]uint32, numLT)
		s.UsedByCurrPicLTSPSFlag = make([]bool, numLT)
		for i := uint32(0); i < numLT; i++ {
			v, err := r.ReadBits(int(s.Log2MaxPicOrderCntLsbMinus4 + 4))
			if err != nil {
				return nil, err
			}
			s.LTRefPicPocLSBSPS[i] = v
			if s.UsedByCurrPicLTSPSFlag[i], err = r.ReadFlag(); err != nil {
				return nil, err
			}
		}
	}

	if s.TemporalMVPEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if s.StrongIntraSmoothingEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}

	vuiPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if vuiPresent {
		vui, err := parseVUI(r, s.MaxSubLayersMinus1)
		if err != nil {
			return nil, err
		}
		s.VUI = vui
	}

	// sps_extension_present_flag and beyond (range/SCC/multi-layer
	// extensions) are out of scope and intentionally not parsed; any
	// trailing extension payload is simply left unread, not an error.

	return s, nil
}

