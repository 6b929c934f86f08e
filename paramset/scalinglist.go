package paramset

import "github.com/zsiec/hevccore/bitstream"

// ScalingList holds the dequantization scaling matrices, stored in
// raster order (converted from the zig-zag coding order used on the
// wire) for sizeId in {0=4x4, 1=8x8, 2=16x16, 3=32x32} and up to 6
// matrixIds (2 for the 32x32 size, matrixId 0 and 3, since only the
// luma-equivalent planes are coded there).
type ScalingList struct {
	Coef    [4][6][]int32
	DCCoef  [4][6]int32 // sizeId 2,3 only
	Present bool
}

var diagScan8x8 = buildDiagScan(8)
var diagScan4x4 = buildDiagScan(4)

// buildDiagScan builds the up-right diagonal scan order HEVC uses to
// code scaling-list coefficients, returning raster-order indices in
// scan order.
func buildDiagScan(size int) []int {
	order := make([]int, 0, size*size)
	x, y := 0, 0
	for len(order) < size*size {
		for y >= 0 {
			if x < size && y < size {
				order = append(order, y*size+x)
			}
			y--
			x++
		}
		y = x
		x = 0
	}
	return order
}

func scanForSize(numCoef int) []int {
	if numCoef == 16 {
		return diagScan4x4
	}
	return diagScan8x8
}

// defaultScalingList4x4 is the flat (all-16) default used when
// scaling_list_pred_mode_flag selects the default list for sizeId 0.
var defaultScalingList4x4 = func() []int32 {
	l := make([]int32, 16)
	for i := range l {
		l[i] = 16
	}
	return l
}()

// defaultScalingListIntra/Inter are the H.265 Table 7-5/7-6 default 8x8
// (and larger) scaling lists for intra and inter matrices.
var defaultScalingListIntra = []int32{
	16, 16, 16, 16, 17, 18, 21, 24,
	16, 16, 16, 16, 17, 19, 22, 25,
	16, 16, 17, 18, 20, 22, 25, 29,
	16, 16, 18, 21, 24, 27, 31, 36,
	17, 17, 20, 24, 30, 35, 41, 47,
	18, 19, 22, 27, 35, 44, 54, 65,
	21, 22, 25, 31, 41, 54, 70, 88,
	24, 25, 29, 36, 47, 65, 88, 115,
}

var defaultScalingListInter = []int32{
	16, 16, 16, 16, 17, 18, 20, 24,
	16, 16, 16, 17, 18, 20, 24, 25,
	16, 16, 17, 18, 20, 24, 25, 28,
	16, 17, 18, 20, 24, 25, 28, 33,
	17, 18, 20, 24, 25, 28, 33, 41,
	18, 20, 24, 25, 28, 33, 41, 54,
	20, 24, 25, 28, 33, 41, 54, 71,
	24, 25, 28, 33, 41, 54, 71, 91,
}

func defaultScalingList(sizeID, matrixID int) []int32 {
	if sizeID == 0 {
		return defaultScalingList4x4
	}
	if matrixID < 3 {
		return defaultScalingListIntra
	}
	return defaultScalingListInter
}

// parseScalingListData parses scaling_list_data() per H.265 7.3.4,
// applying the default-list fallback when a matrix's
// scaling_list_pred_mode_flag selects prediction from the default
// list (predMatrixId == matrixId case with delta 0) or copies an
// earlier matrix otherwise.
func parseScalingListData(r *bitstream.Reader) (*ScalingList, error) {
	sl := &ScalingList{Present: true}

	for sizeID := 0; sizeID < 4; sizeID++ {
		step := 1
		if sizeID == 3 {
			step = 3
		}
		for matrixID := 0; matrixID < 6; matrixID += step {
			predModeFlag, err := r.ReadFlag()
			if err != nil {
				return nil, err
			}
			numCoef := 64
			if sizeID == 0 {
				numCoef = 16
			}

			if !predModeFlag {
				deltaMinus1, err := r.ReadUE()
				if err != nil {
					return nil, err
				}
				if deltaMinus1 == 0 {
					sl.Coef[sizeID][matrixID] = append([]int32{}, defaultScalingList(sizeID, matrixID)...)
					if sizeID > 1 {
						sl.DCCoef[sizeID][matrixID] = 16
					}
				} else {
					refMatrixID := matrixID - int(deltaMinus1)*step
					sl.Coef[sizeID][matrixID] = append([]int32{}, sl.Coef[sizeID][refMatrixID]...)
					if sizeID > 1 {
						sl.DCCoef[sizeID][matrixID] = sl.DCCoef[sizeID][refMatrixID]
					}
				}
				continue
			}

			nextCoef := int32(8)
			dcCoef := int32(8)
			if sizeID > 1 {
				dcDeltaMinus8, err := r.ReadSE()
				if err != nil {
					return nil, err
				}
				dcCoef = dcDeltaMinus8 + 8
				nextCoef = dcCoef
				sl.DCCoef[sizeID][matrixID] = dcCoef
			}

			coef := make([]int32, numCoef)
			scan := scanForSize(numCoef)
			for i := 0; i < numCoef; i++ {
				delta, err := r.ReadSE()
				if err != nil {
					return nil, err
				}
				nextCoef = (nextCoef + delta + 256) % 256
				coef[scan[i]] = nextCoef
			}
			sl.Coef[sizeID][matrixID] = coef
		}
	}

	return sl, nil
}
