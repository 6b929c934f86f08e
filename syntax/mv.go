package syntax

import "github.com/zsiec/hevccore/cabac"

// MV is a motion vector in quarter-pel units.
type MV struct{ X, Y int16 }

// DecodeMVD decodes mvd_coding() (HEVC §7.3.8.9): abs_mvd_greater0_flag for
// each component, then abs_mvd_greater1_flag, an Exp-Golomb-order-1
// remainder when greater1, and a sign bit, each bypass-coded except
// the two greater flags.
func DecodeMVD(d *cabac.Decoder) (MV, error) {
	x, err := decodeMVDComponent(d, 0)
	if err != nil {
		return MV{}, err
	}
	y, err := decodeMVDComponent(d, 1)
	if err != nil {
		return MV{}, err
	}
	return MV{X: x, Y: y}, nil
}

func decodeMVDComponent(d *cabac.Decoder, component int) (int16, error) {
	greater0, err := d.DecodeBin(cabac.CtxAbsMvdGreater0Flag + component)
	if err != nil {
		return 0, err
	}
	if greater0 == 0 {
		return 0, nil
	}

	greater1, err := d.DecodeBin(cabac.CtxAbsMvdGreater1Flag + component)
	if err != nil {
		return 0, err
	}

	abs := int32(1)
	if greater1 == 1 {
		remainder, err := decodeEGk(d, 1)
		if err != nil {
			return 0, err
		}
		abs = 2 + remainder
	}

	sign, err := d.DecodeBypass()
	if err != nil {
		return 0, err
	}
	if sign == 1 {
		abs = -abs
	}
	return int16(abs), nil
}

// decodeEGk decodes a bypass-coded Exp-Golomb code of order k (HEVC
// §9.3.3.3), used by mvd_coding's remainder: each bypass '1' widens the
// value by the current power of two and advances the order; the
// terminating '0' is followed by that many raw suffix bits.
func decodeEGk(d *cabac.Decoder, k int) (int32, error) {
	var absV int32
	for {
		bit, err := d.DecodeBypass()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			break
		}
		absV += int32(1) << uint(k)
		k++
		if k > 32 {
			return 0, cabac.ErrInvalidBitstream
		}
	}
	for k > 0 {
		k--
		b, err := d.DecodeBypass()
		if err != nil {
			return 0, err
		}
		absV += int32(b) << uint(k)
	}
	return absV, nil
}
