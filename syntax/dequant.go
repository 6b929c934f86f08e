package syntax

// levelScale is HEVC Table 8-8's per-(qP%6) dequantization scale factor.
var levelScale = [6]int32{40, 45, 51, 57, 64, 72}

// Dequantize applies HEVC §8.6.3's scaling process to one coefficient
// level, given the block's qP, bit depth, log2 transform size, and
// (when scaling_list_enabled_flag is set) the matching scaling-list
// entry scaleM; pass scaleM=16 for flat (disabled) scaling lists.
// The result is clamped to the int16 range TransCoeffLevel must fit.
func Dequantize(level int32, qp int, bitDepth int, log2TrafoSize int, scaleM int32) int32 {
	shift := bitDepth + log2TrafoSize - 5
	add := int32(1) << uint(shift-1)
	scale := levelScale[qp%6] << uint(qp/6)

	v := (level*scale*scaleM + add) >> uint(shift)
	const maxInt16 = 1<<15 - 1
	const minInt16 = -1 << 15
	if v > maxInt16 {
		return maxInt16
	}
	if v < minInt16 {
		return minInt16
	}
	return v
}

// DequantizeBlock dequantizes every coefficient in coeffs in place,
// taking each coefficient's scale factor from scaleM(x, y), or the flat
// value 16 when scaleM is nil.
func DequantizeBlock(coeffs []Coefficient, qp, bitDepth, log2TrafoSize int, scaleM func(x, y int) int32) {
	for i := range coeffs {
		m := int32(16)
		if scaleM != nil {
			m = scaleM(coeffs[i].X, coeffs[i].Y)
		}
		coeffs[i].Level = Dequantize(coeffs[i].Level, qp, bitDepth, log2TrafoSize, m)
	}
}
