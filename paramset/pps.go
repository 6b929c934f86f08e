package paramset

import (
	"fmt"

	"github.com/zsiec/hevccore/bitstream"
)

// PPS is an immutable, parsed Picture Parameter Set. A PPS
// default-inherits some fields from its SPS; that inheritance is
// applied on use (EffectiveScalingList), not here: the raw coded
// pps_scaling_list_data_present_flag/etc. are recorded as-is so a
// later SPS swap is reflected correctly for an as-yet-unresolved PPS.
type PPS struct {
	ID    uint32
	SPSID uint32

	DependentSliceSegmentsEnabledFlag bool
	OutputFlagPresentFlag             bool
	NumExtraSliceHeaderBits           byte
	SignDataHidingEnabledFlag         bool
	CabacInitPresentFlag              bool

	NumRefIdxL0DefaultActiveMinus1 uint32
	NumRefIdxL1DefaultActiveMinus1 uint32
	InitQPMinus26                  int32

	ConstrainedIntraPredFlag bool
	TransformSkipEnabledFlag bool

	CuQPDeltaEnabledFlag bool
	DiffCuQPDeltaDepth   uint32

	CbQPOffset int32
	CrQPOffset int32

	SliceChromaQPOffsetsPresentFlag bool

	WeightedPredFlag   bool
	WeightedBipredFlag bool

	TransquantBypassEnabledFlag bool
	TilesEnabledFlag            bool
	EntropyCodingSyncEnabledFlag bool

	NumTileColumnsMinus1     uint32
	NumTileRowsMinus1        uint32
	UniformSpacingFlag       bool
	ColumnWidthMinus1        []uint32
	RowHeightMinus1          []uint32
	LoopFilterAcrossTilesEnabledFlag bool

	LoopFilterAcrossSlicesEnabledFlag bool

	DeblockingFilterControlPresentFlag bool
	DeblockingFilterOverrideEnabledFlag bool
	PPSDeblockingFilterDisabledFlag    bool
	BetaOffsetDiv2                     int32
	TcOffsetDiv2                       int32

	ScalingListDataPresentFlag bool
	ScalingList                *ScalingList

	ListsModificationPresentFlag bool
	Log2ParallelMergeLevelMinus2 uint32
	SliceSegmentHeaderExtensionPresentFlag bool
}

// ParsePPS parses a PPS NAL unit's RBSP. spsPresent resolves whether
// the referenced SPS id is currently installed; with bestEffort false
// an absent SPS is ErrInvalidBitstream, matching the VPS check in
// ParseSPS.
func ParsePPS(rbsp []byte, spsPresent func(id uint32) bool, bestEffort bool) (*PPS, error) {
	r := bitstream.New(rbsp)
	p := &PPS{}

	id, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	p.ID = id
	if p.ID >= MaxPPSCount {
		return nil, fmt.Errorf("paramset: pps_pic_parameter_set_id %d exceeds max %d: %w", p.ID, MaxPPSCount, bitstream.ErrInvalidBitstream)
	}

	spsID, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	p.SPSID = spsID
	if spsPresent != nil && !spsPresent(p.SPSID) && !bestEffort {
		return nil, fmt.Errorf("paramset: pps references absent sps %d: %w", p.SPSID, bitstream.ErrInvalidBitstream)
	}

	if p.DependentSliceSegmentsEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.OutputFlagPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	bits3, err := r.ReadBits(3)
	if err != nil {
		return nil, err
	}
	p.NumExtraSliceHeaderBits = byte(bits3)
	if p.SignDataHidingEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.CabacInitPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}

	if p.NumRefIdxL0DefaultActiveMinus1, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if p.NumRefIdxL1DefaultActiveMinus1, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if p.InitQPMinus26, err = r.ReadSE(); err != nil {
		return nil, err
	}
	if p.ConstrainedIntraPredFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.TransformSkipEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.CuQPDeltaEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.CuQPDeltaEnabledFlag {
		if p.DiffCuQPDeltaDepth, err = r.ReadUE(); err != nil {
			return nil, err
		}
	}
	if p.CbQPOffset, err = r.ReadSE(); err != nil {
		return nil, err
	}
	if p.CrQPOffset, err = r.ReadSE(); err != nil {
		return nil, err
	}
	if p.SliceChromaQPOffsetsPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.WeightedPredFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.WeightedBipredFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.TransquantBypassEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.TilesEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.EntropyCodingSyncEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}

	if p.TilesEnabledFlag {
		if p.NumTileColumnsMinus1, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if p.NumTileRowsMinus1, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if p.UniformSpacingFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		if !p.UniformSpacingFlag {
			p.ColumnWidthMinus1 = make([]uint32, p.NumTileColumnsMinus1)
			for i := range p.ColumnWidthMinus1 {
				if p.ColumnWidthMinus1[i], err = r.ReadUE(); err != nil {
					return nil, err
				}
			}
			p.RowHeightMinus1 = make([]uint32, p.NumTileRowsMinus1)
			for i := range p.RowHeightMinus1 {
				if p.RowHeightMinus1[i], err = r.ReadUE(); err != nil {
					return nil, err
				}
			}
		}
		if p.LoopFilterAcrossTilesEnabledFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
	} else {
		p.LoopFilterAcrossTilesEnabledFlag = true
	}

	if p.LoopFilterAcrossSlicesEnabledFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}

	if p.DeblockingFilterControlPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.DeblockingFilterControlPresentFlag {
		deblockingFilterOverrideEnabled, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		p.DeblockingFilterOverrideEnabledFlag = deblockingFilterOverrideEnabled
		if p.PPSDeblockingFilterDisabledFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		if !p.PPSDeblockingFilterDisabledFlag {
			if p.BetaOffsetDiv2, err = r.ReadSE(); err != nil {
				return nil, err
			}
			if p.TcOffsetDiv2, err = r.ReadSE(); err != nil {
				return nil, err
			}
		}
	}

	if p.ScalingListDataPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.ScalingListDataPresentFlag {
		sl, err := parseScalingListData(r)
		if err != nil {
			return nil, err
		}
		p.ScalingList = sl
	}

	if p.ListsModificationPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}
	if p.Log2ParallelMergeLevelMinus2, err = r.ReadUE(); err != nil {
		return nil, err
	}
	if p.SliceSegmentHeaderExtensionPresentFlag, err = r.ReadFlag(); err != nil {
		return nil, err
	}

	// pps_extension_present_flag and beyond: not needed by the core.

	return p, nil
}

// EffectiveScalingList returns the PPS's own scaling list if coded,
// otherwise falls back to the SPS's, per the PPS scaling-list
// default-inheritance rule.
func (p *PPS) EffectiveScalingList(s *SPS) *ScalingList {
	if p.ScalingListDataPresentFlag && p.ScalingList != nil {
		return p.ScalingList
	}
	return s.ScalingList
}
