package syntax

import (
	"github.com/zsiec/hevccore/cabac"
)

// Coefficient is one non-zero transform coefficient's position and
// decoded (pre-dequant) level.
type Coefficient struct {
	X, Y  int
	Level int32
}

// ResidualParams carries the slice/PPS-level knobs residual_coding
// needs beyond the transform block's own size and component.
type ResidualParams struct {
	Log2TrafoSize            int // 2..5 (4x4..32x32)
	CIdx                     int // 0=luma, 1=Cb, 2=Cr
	ScanIdx                  ScanIdx
	SignDataHidingEnabled    bool
	PersistentRiceAdaptation bool
	TransformSkipOrBDPCM     bool // widens the initial Rice parameter per 9.3.3.10
}

// lastCtxOffsetShift returns (ctxOffset, ctxShift) for
// last_sig_coeff_{x,y}_prefix, per HEVC §9.3.4.2.3.
func lastCtxOffsetShift(log2TrafoSize, cIdx int) (offset, shift int) {
	if cIdx == 0 {
		offset = 3*(log2TrafoSize-2) + ((log2TrafoSize - 1) >> 2)
		shift = (log2TrafoSize + 1) >> 2
		return
	}
	return 15, log2TrafoSize - 2
}

func decodeLastSigCoeffPrefix(d *cabac.Decoder, base, offset, shift, maxPrefix int) (int, error) {
	prefix := 0
	for prefix < maxPrefix {
		ctxInc := (prefix >> shift) + offset
		bin, err := d.DecodeBin(base + ctxInc)
		if err != nil {
			return 0, err
		}
		if bin == 0 {
			break
		}
		prefix++
	}
	return prefix, nil
}

func decodeLastSigCoeffValue(d *cabac.Decoder, prefix int) (int, error) {
	if prefix <= 3 {
		return prefix, nil
	}
	suffixLen := (prefix >> 1) - 1
	suffix, err := d.DecodeBypassBits(suffixLen)
	if err != nil {
		return 0, err
	}
	return (1 << uint(suffixLen)) * (2 + (prefix & 1)) + int(suffix), nil
}

// decodeLastSigCoeff decodes last_sig_coeff_x/y_prefix and their
// suffixes, returning the last significant coefficient's position in
// transform-block (not scan) coordinates.
func decodeLastSigCoeff(d *cabac.Decoder, p ResidualParams) (Pos, error) {
	maxPrefix := p.Log2TrafoSize<<1 - 1

	offset, shift := lastCtxOffsetShift(p.Log2TrafoSize, p.CIdx)
	xPrefix, err := decodeLastSigCoeffPrefix(d, cabac.CtxLastSigCoeffXPrefix, offset, shift, maxPrefix)
	if err != nil {
		return Pos{}, err
	}
	yPrefix, err := decodeLastSigCoeffPrefix(d, cabac.CtxLastSigCoeffYPrefix, offset, shift, maxPrefix)
	if err != nil {
		return Pos{}, err
	}
	x, err := decodeLastSigCoeffValue(d, xPrefix)
	if err != nil {
		return Pos{}, err
	}
	y, err := decodeLastSigCoeffValue(d, yPrefix)
	if err != nil {
		return Pos{}, err
	}
	if p.ScanIdx == ScanVert {
		x, y = y, x
	}
	return Pos{X: x, Y: y}, nil
}

// scanIndexOf returns the forward-scan index of pos within order, or -1.
func scanIndexOf(order []Pos, pos Pos) int {
	for i, p := range order {
		if p == pos {
			return i
		}
	}
	return -1
}

// sigCtxIdxMap is HEVC Table 9-39's 4x4 position-to-context index map,
// used both for whole 4x4 transforms and within each 4x4 sub-block of
// larger transforms.
var sigCtxIdxMap = [16]int{0, 1, 4, 5, 2, 3, 4, 5, 6, 6, 8, 8, 7, 7, 8, 8}

// sigCoeffCtxInc derives significant_coeff_flag's ctxInc per HEVC
// §9.3.4.2.5.
func sigCoeffCtxInc(log2TrafoSize, cIdx, subX, subY, posX, posY int, csbfRight, csbfBelow bool) int {
	if log2TrafoSize == 2 {
		idx := sigCtxIdxMap[(posY<<2)+posX]
		if cIdx == 0 {
			return idx
		}
		return 27 + idx
	}
	if subX == 0 && subY == 0 && posX == 0 && posY == 0 {
		if cIdx == 0 {
			return 0
		}
		return 27
	}

	var sigCtx int
	if subX == 0 && subY == 0 {
		sigCtx = sigCtxIdxMap[(posY<<2)+posX]
	} else {
		prevCsbf := 0
		if csbfRight {
			prevCsbf |= 1
		}
		if csbfBelow {
			prevCsbf |= 2
		}
		switch prevCsbf {
		case 0:
			switch {
			case posX+posY == 0:
				sigCtx = 2
			case posX+posY < 3:
				sigCtx = 1
			default:
				sigCtx = 0
			}
		case 1:
			switch posY {
			case 0:
				sigCtx = 2
			case 1:
				sigCtx = 1
			default:
				sigCtx = 0
			}
		case 2:
			switch posX {
			case 0:
				sigCtx = 2
			case 1:
				sigCtx = 1
			default:
				sigCtx = 0
			}
		default:
			sigCtx = 2
		}
		if cIdx == 0 {
			sigCtx += 3
		}
	}

	if cIdx == 0 {
		if log2TrafoSize == 3 {
			if subX+subY == 0 {
				sigCtx += 9
			} else {
				sigCtx += 15
			}
		} else {
			sigCtx += 21
		}
		return sigCtx
	}
	if log2TrafoSize == 3 {
		sigCtx += 9
	} else {
		sigCtx += 12
	}
	return 27 + sigCtx
}

func greater1Category(cIdx int) int {
	if cIdx == 0 {
		return 0
	}
	return 1
}

// ResetResidualCodingState clears st's greater1-context carryover
// between independent transform blocks: the first sub-block of a new
// block always starts as if the previous one had not found a
// greater1-valued coefficient. st is per-row/per-tile state (see
// [cabac.State]), so concurrent WPP/tile workers each reset and mutate
// their own copy.
func ResetResidualCodingState(st *cabac.State) {
	st.Greater1Found = [2]bool{true, true}
}

func min3(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// riceStatIdx maps (cIdx, transformSkipOrBDPCM) onto one of the four
// persistent Rice-adaptation state slots (HEVC §9.3.3.10).
func riceStatIdx(cIdx int, transformSkip bool) int {
	idx := 0
	if cIdx > 0 {
		idx += 2
	}
	if transformSkip {
		idx++
	}
	return idx
}

func decodeCoeffAbsLevelRemaining(d *cabac.Decoder, riceParam int) (int32, error) {
	prefix := 0
	for prefix < 32 {
		bin, err := d.DecodeBypass()
		if err != nil {
			return 0, err
		}
		if bin == 0 {
			break
		}
		prefix++
	}
	if prefix < 3 {
		suffix, err := d.DecodeBypassBits(riceParam)
		if err != nil {
			return 0, err
		}
		return int32(prefix<<uint(riceParam)) + int32(suffix), nil
	}
	prefixMinus3 := prefix - 3
	suffix, err := d.DecodeBypassBits(prefixMinus3 + riceParam)
	if err != nil {
		return 0, err
	}
	return int32(((1<<uint(prefixMinus3))+3-1)<<uint(riceParam)) + int32(suffix), nil
}

// updateRiceParam advances the Rice parameter after decoding one
// coeff_abs_level_remaining value, per HEVC §9.3.3.9/§9.3.3.10. The
// persistent branch folds the observed level into st.StatCoeff so the
// next transform block in the same category starts from an adapted
// parameter instead of 0.
func updateRiceParam(riceParam int, level int32, st *cabac.State, statIdx int, persistent bool) int {
	if !persistent {
		if level > int32(3<<uint(riceParam)) {
			return min3(riceParam+1, 4)
		}
		return riceParam
	}
	if level >= int32(3<<uint(riceParam)) {
		if st.StatCoeff[statIdx] < 24 {
			st.StatCoeff[statIdx]++
		}
	} else if 2*level < int32(1<<uint(riceParam)) && st.StatCoeff[statIdx] > 0 {
		st.StatCoeff[statIdx]--
	}
	return min3(int(st.StatCoeff[statIdx])>>2, 4)
}

func initialRiceParam(st *cabac.State, statIdx int, persistent, widen bool) int {
	if persistent {
		return min3(int(st.StatCoeff[statIdx])>>2, 4)
	}
	if widen {
		return 1
	}
	return 0
}

// DecodeResidualCoding decodes one transform block's residual_coding()
// syntax (HEVC §7.3.8.11) into a sparse coefficient list, pre-dequant.
func DecodeResidualCoding(d *cabac.Decoder, st *cabac.State, p ResidualParams) ([]Coefficient, error) {
	size := 1 << uint(p.Log2TrafoSize)
	forward := Scan(size, p.ScanIdx)

	last, err := decodeLastSigCoeff(d, p)
	if err != nil {
		return nil, err
	}
	lastScanPos := scanIndexOf(forward, last)
	if lastScanPos < 0 {
		return nil, cabac.ErrInvalidBitstream
	}

	subSize := size >> 2
	subScan := Scan(subSize, p.ScanIdx)
	sub4x4 := Scan(4, p.ScanIdx)
	lastSubBlock := lastScanPos / 16
	lastPosInSub := lastScanPos % 16

	numSubBlocks := subSize * subSize
	codedSubFlags := make([]bool, numSubBlocks)
	codedSubFlags[lastSubBlock] = true
	codedSubFlags[0] = true

	statIdx := riceStatIdx(p.CIdx, p.TransformSkipOrBDPCM)
	category := greater1Category(p.CIdx)

	var coeffs []Coefficient

	for i := lastSubBlock; i >= 0; i-- {
		subPos := subScan[i]
		if i != lastSubBlock && i != 0 {
			right, below := false, false
			for j := i + 1; j < numSubBlocks; j++ {
				if subScan[j].X == subPos.X+1 && subScan[j].Y == subPos.Y {
					right = codedSubFlags[j]
				}
				if subScan[j].X == subPos.X && subScan[j].Y == subPos.Y+1 {
					below = codedSubFlags[j]
				}
			}
			ctxInc := 0
			if right || below {
				ctxInc = 1
			}
			base := cabac.CtxSigCoeffGroupFlag
			if p.CIdx > 0 {
				base += 2
			}
			bin, err := d.DecodeBin(base + ctxInc)
			if err != nil {
				return nil, err
			}
			codedSubFlags[i] = bin == 1
			if !codedSubFlags[i] {
				continue
			}
		}

		right := false
		below := false
		for j := i + 1; j < numSubBlocks; j++ {
			if subScan[j].X == subPos.X+1 && subScan[j].Y == subPos.Y {
				right = codedSubFlags[j]
			}
			if subScan[j].X == subPos.X && subScan[j].Y == subPos.Y+1 {
				below = codedSubFlags[j]
			}
		}

		sigFlags := make([]bool, 16)
		start := 14
		if i == lastSubBlock {
			sigFlags[lastPosInSub] = true
			start = lastPosInSub - 1
		}
		endExclusive := 0
		if i == 0 {
			endExclusive = 1 // DC position's sig flag is inferred below
		}
		for sp := start; sp >= endExclusive; sp-- {
			pos := sub4x4[sp]
			ctxInc := sigCoeffCtxInc(p.Log2TrafoSize, p.CIdx, subPos.X, subPos.Y, pos.X, pos.Y, right, below)
			bin, err := d.DecodeBin(cabac.CtxSigCoeffFlag + ctxInc)
			if err != nil {
				return nil, err
			}
			sigFlags[sp] = bin == 1
		}
		if i == 0 {
			sigFlags[0] = true
		}
		if !anyTrue(sigFlags) {
			continue
		}

		// sigPositions holds scan indices in decreasing order (matching
		// the syntax table's n=15..0 iteration), the order every
		// subsequent per-coefficient decode (greater1/greater2/sign/
		// remaining) must follow.
		var sigPositions []int
		for sp := 15; sp >= 0; sp-- {
			if sigFlags[sp] {
				sigPositions = append(sigPositions, sp)
			}
		}
		numSigned := len(sigPositions)

		greater1Flags := make([]bool, numSigned)
		ctxSet := 0
		if i != 0 && p.CIdx == 0 {
			ctxSet = 2
		}
		if !st.Greater1Found[category] {
			ctxSet++
		}
		if p.CIdx > 0 {
			ctxSet += 4
		}
		greater1Ctx := 1
		lastGreater1Idx := -1
		foundAnyGreater1 := false
		for gi := 0; gi < numSigned && gi < 8; gi++ {
			ctxIdx := ctxSet*4 + min3(greater1Ctx, 3)
			bin, err := d.DecodeBin(cabac.CtxCoeffAbsLevelGreater1Flag + ctxIdx)
			if err != nil {
				return nil, err
			}
			if bin == 1 {
				greater1Flags[gi] = true
				foundAnyGreater1 = true
				if lastGreater1Idx == -1 {
					lastGreater1Idx = gi
				}
				greater1Ctx = 0
			} else if greater1Ctx > 0 && greater1Ctx < 3 {
				greater1Ctx++
			}
		}
		st.Greater1Found[category] = foundAnyGreater1

		greater2 := false
		if lastGreater1Idx >= 0 {
			bin, err := d.DecodeBin(cabac.CtxCoeffAbsLevelGreater2Flag + ctxSet)
			if err != nil {
				return nil, err
			}
			greater2 = bin == 1
		}

		signHidden := p.SignDataHidingEnabled && (sigPositions[0]-sigPositions[numSigned-1]) > 3
		signCount := numSigned
		if signHidden {
			signCount--
		}
		signs := make([]bool, numSigned)
		for si := 0; si < signCount; si++ {
			bin, err := d.DecodeBypass()
			if err != nil {
				return nil, err
			}
			signs[si] = bin == 1
		}

		riceParam := initialRiceParam(st, statIdx, p.PersistentRiceAdaptation, p.TransformSkipOrBDPCM)
		sumAbs := int32(0)
		for gi := 0; gi < numSigned; gi++ {
			baseLevel := int32(1)
			if greater1Flags[gi] {
				baseLevel++
			}
			if gi == lastGreater1Idx && greater2 {
				baseLevel++
			}

			cap := int32(1)
			if gi < 8 {
				if gi == lastGreater1Idx {
					cap = 3
				} else {
					cap = 2
				}
			}

			level := baseLevel
			if baseLevel == cap {
				remaining, err := decodeCoeffAbsLevelRemaining(d, riceParam)
				if err != nil {
					return nil, err
				}
				level += remaining
				riceParam = updateRiceParam(riceParam, level, st, statIdx, p.PersistentRiceAdaptation)
			}
			sumAbs += level

			sign := int32(1)
			if signHidden && gi == numSigned-1 {
				if sumAbs%2 == 1 {
					sign = -1
				}
			} else if signs[gi] {
				sign = -1
			}

			pos4 := sub4x4[sigPositions[gi]]
			coeffs = append(coeffs, Coefficient{
				X:     subPos.X*4 + pos4.X,
				Y:     subPos.Y*4 + pos4.Y,
				Level: sign * level,
			})
		}
	}

	return coeffs, nil
}

func anyTrue(b []bool) bool {
	for _, v := range b {
		if v {
			return true
		}
	}
	return false
}
