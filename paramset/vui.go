package paramset

import "github.com/zsiec/hevccore/bitstream"

// VUI is the video usability information block. The decoder passes its
// colour metadata and default display window to decoded output; the
// timing fields are parsed but not passed on.
type VUI struct {
	AspectRatioIDC byte
	SarWidth       uint16
	SarHeight      uint16

	VideoFormat        byte
	VideoFullRangeFlag bool

	ColourDescriptionPresentFlag bool
	ColourPrimaries              byte
	TransferCharacteristics      byte
	MatrixCoefficients          byte

	DefaultDisplayWindow *ConformanceWindow

	NumUnitsInTick uint32
	TimeScale      uint32
}

func parseVUI(r *bitstream.Reader, maxSubLayersMinus1 uint32) (*VUI, error) {
	v := &VUI{}

	arPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if arPresent {
		idc, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		v.AspectRatioIDC = byte(idc)
		if v.AspectRatioIDC == 255 {
			w, err := r.ReadBits(16)
			if err != nil {
				return nil, err
			}
			h, err := r.ReadBits(16)
			if err != nil {
				return nil, err
			}
			v.SarWidth, v.SarHeight = uint16(w), uint16(h)
		}
	}

	overscanPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if overscanPresent {
		if _, err := r.ReadFlag(); err != nil {
			return nil, err
		}
	}

	videoSignalPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if videoSignalPresent {
		fmtBits, err := r.ReadBits(3)
		if err != nil {
			return nil, err
		}
		v.VideoFormat = byte(fmtBits)
		if v.VideoFullRangeFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		if v.ColourDescriptionPresentFlag, err = r.ReadFlag(); err != nil {
			return nil, err
		}
		if v.ColourDescriptionPresentFlag {
			cp, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			tc, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			mc, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			v.ColourPrimaries = byte(cp)
			v.TransferCharacteristics = byte(tc)
			v.MatrixCoefficients = byte(mc)
		}
	}

	chromaLocPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if chromaLocPresent {
		if _, err := r.ReadUE(); err != nil {
			return nil, err
		}
		if _, err := r.ReadUE(); err != nil {
			return nil, err
		}
	}

	if _, err := r.ReadFlag(); err != nil { // neutral_chroma_indication_flag
		return nil, err
	}
	if _, err := r.ReadFlag(); err != nil { // field_seq_flag
		return nil, err
	}
	if _, err := r.ReadFlag(); err != nil { // frame_field_info_present_flag
		return nil, err
	}

	defaultDisplayWindowFlag, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if defaultDisplayWindowFlag {
		w := &ConformanceWindow{}
		if w.LeftOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if w.RightOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if w.TopOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		if w.BottomOffset, err = r.ReadUE(); err != nil {
			return nil, err
		}
		v.DefaultDisplayWindow = w
	}

	timingInfoPresent, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	if timingInfoPresent {
		if v.NumUnitsInTick, err = r.ReadBits(32); err != nil {
			return nil, err
		}
		if v.TimeScale, err = r.ReadBits(32); err != nil {
			return nil, err
		}
		pocProportional, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		if pocProportional {
			if _, err := r.ReadUE(); err != nil {
				return nil, err
			}
		}
		hrdPresent, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		if hrdPresent {
			if err := skipHRDParameters(r, maxSubLayersMinus1); err != nil {
				return nil, err
			}
		}
	}

	// bitstream_restriction and beyond: not needed by the core.

	return v, nil
}

func skipHRDParameters(r *bitstream.Reader, maxSubLayersMinus1 uint32) error {
	nalHRD, err := r.ReadFlag()
	if err != nil {
		return err
	}
	vclHRD, err := r.ReadFlag()
	if err != nil {
		return err
	}
	subPicHRD := false
	if nalHRD || vclHRD {
		subPicHRDPresent, err := r.ReadFlag()
		if err != nil {
			return err
		}
		subPicHRD = subPicHRDPresent
		if subPicHRD {
			if _, err := r.ReadBits(19); err != nil {
				return err
			}
		}
		if _, err := r.ReadBits(8); err != nil {
			return err
		}
		if subPicHRD {
			if _, err := r.ReadBits(4); err != nil {
				return err
			}
		}
		if _, err := r.ReadBits(15); err != nil {
			return err
		}
	}

	for i := uint32(0); i <= maxSubLayersMinus1; i++ {
		fixedRate, err := r.ReadFlag()
		if err != nil {
			return err
		}
		fixedRateWithinCVS := fixedRate
		if !fixedRate {
			v, err := r.ReadFlag()
			if err != nil {
				return err
			}
			fixedRateWithinCVS = v
		}
		lowDelay := false
		if fixedRateWithinCVS {
			if _, err := r.ReadUE(); err != nil {
				return err
			}
		} else {
			v, err := r.ReadFlag()
			if err != nil {
				return err
			}
			lowDelay = v
		}
		cpbCntMinus1 := uint32(0)
		if !lowDelay {
			v, err := r.ReadUE()
			if err != nil {
				return err
			}
			cpbCntMinus1 = v
		}
		if nalHRD {
			if err := skipSubLayerHRD(r, cpbCntMinus1, subPicHRD); err != nil {
				return err
			}
		}
		if vclHRD {
			if err := skipSubLayerHRD(r, cpbCntMinus1, subPicHRD); err != nil {
				return err
			}
		}
	}
	return nil
}

func skipSubLayerHRD(r *bitstream.Reader, cpbCntMinus1 uint32, subPicHRD bool) error {
	for i := uint32(0); i <= cpbCntMinus1; i++ {
		if _, err := r.ReadUE(); err != nil {
			return err
		}
		if _, err := r.ReadUE(); err != nil {
			return err
		}
		if subPicHRD {
			if _, err := r.ReadUE(); err != nil {
				return err
			}
			if _, err := r.ReadUE(); err != nil {
				return err
			}
		}
		if _, err := r.ReadFlag(); err != nil {
			return err
		}
	}
	return nil
}
