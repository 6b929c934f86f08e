package paramset

import (
	"fmt"

	"github.com/zsiec/hevccore/bitstream"
)

// ShortTermRPS is one short_term_ref_pic_set() entry, either parsed
// directly (NumNegative/NumPositive + per-entry delta POC and used
// flags) or via inter-RPS prediction from an earlier set in the same
// SPS, per H.265 7.3.7 / 7.4.8. DeltaPocS0/S1 are cumulative deltas
// (already resolved from the coded deltaPocSX_minus1 values), negative
// for S0 (pictures before) and positive for S1 (pictures after).
type ShortTermRPS struct {
	DeltaPocS0 []int32
	UsedS0     []bool
	DeltaPocS1 []int32
	UsedS1     []bool
}

// NumDeltaPocs is the total number of reference pictures the set names.
func (s *ShortTermRPS) NumDeltaPocs() int {
	return len(s.DeltaPocS0) + len(s.DeltaPocS1)
}

// parseShortTermRPS parses the stRpsIdx'th short_term_ref_pic_set() in
// an SPS (or the one inline in a slice header, where stRpsIdx equals
// numShortTermRefPicSets and inter-RPS prediction reads an explicit
// delta_idx_minus1). prior holds every previously parsed set in the
// same SPS, needed to resolve inter-RPS prediction.
func parseShortTermRPS(r *bitstream.Reader, stRpsIdx, numShortTermRefPicSets uint32, prior []*ShortTermRPS) (*ShortTermRPS, error) {
	s := &ShortTermRPS{}

	interPred := false
	if stRpsIdx != 0 {
		flag, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		interPred = flag
	}

	if interPred {
		deltaIdxMinus1 := uint32(0)
		if stRpsIdx == numShortTermRefPicSets {
			v, err := r.ReadUE()
			if err != nil {
				return nil, err
			}
			deltaIdxMinus1 = v
		}
		refRpsIdx := stRpsIdx - (deltaIdxMinus1 + 1)
		if int(refRpsIdx) < 0 || int(refRpsIdx) >= len(prior) {
			return nil, fmt.Errorf("paramset: short-term RPS inter-prediction refers to unparsed set %d: %w", refRpsIdx, bitstream.ErrInvalidBitstream)
		}
		ref := prior[refRpsIdx]

		deltaRpsSign, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		absDeltaRpsMinus1, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		deltaRps := int32(absDeltaRpsMinus1 + 1)
		if deltaRpsSign {
			deltaRps = -deltaRps
		}

		numDeltaPocs := ref.NumDeltaPocs()
		usedByCurr := make([]bool, numDeltaPocs+1)
		useDelta := make([]bool, numDeltaPocs+1)
		for j := 0; j <= numDeltaPocs; j++ {
			used, err := r.ReadFlag()
			if err != nil {
				return nil, err
			}
			usedByCurr[j] = used
			if used {
				useDelta[j] = true
			} else {
				flag, err := r.ReadFlag()
				if err != nil {
					return nil, err
				}
				useDelta[j] = flag
			}
		}

		buildDeltaPocs(s, ref, deltaRps, usedByCurr, useDelta)
		return s, nil
	}

	numNeg, err := r.ReadUE()
	if err != nil {
		return nil, err
	}
	numPos, err := r.ReadUE()
	if err != nil {
		return nil, err
	}

	s.DeltaPocS0 = make([]int32, numNeg)
	s.UsedS0 = make([]bool, numNeg)
	acc := int32(0)
	for i := uint32(0); i < numNeg; i++ {
		deltaMinus1, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		acc -= int32(deltaMinus1) + 1
		s.DeltaPocS0[i] = acc
		used, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		s.UsedS0[i] = used
	}

	s.DeltaPocS1 = make([]int32, numPos)
	s.UsedS1 = make([]bool, numPos)
	acc = 0
	for i := uint32(0); i < numPos; i++ {
		deltaMinus1, err := r.ReadUE()
		if err != nil {
			return nil, err
		}
		acc += int32(deltaMinus1) + 1
		s.DeltaPocS1[i] = acc
		used, err := r.ReadFlag()
		if err != nil {
			return nil, err
		}
		s.UsedS1[i] = used
	}

	return s, nil
}

// buildDeltaPocs implements the H.265 7.4.8 derivation of DeltaPocS0/S1
// from a reference set shifted by deltaRps, partitioning the combined
// (reference ∪ {deltaRps}) delta set by sign and sorting each half by
// magnitude, ascending distance from the current picture.
func buildDeltaPocs(s, ref *ShortTermRPS, deltaRps int32, usedByCurr, useDelta []bool) {
	type entry struct {
		poc  int32
		used bool
	}

	var negatives, positives []entry

	for j := len(ref.DeltaPocS1) - 1; j >= 0; j-- {
		idx := j
		dPoc := ref.DeltaPocS1[idx] + deltaRps
		if dPoc < 0 && useDelta[len(ref.DeltaPocS0)+idx] {
			negatives = append(negatives, entry{dPoc, usedByCurr[len(ref.DeltaPocS0)+idx]})
		}
	}
	if deltaRps < 0 && useDelta[len(usedByCurr)-1] {
		negatives = append(negatives, entry{deltaRps, usedByCurr[len(usedByCurr)-1]})
	}
	for j := 0; j < len(ref.DeltaPocS0); j++ {
		dPoc := ref.DeltaPocS0[j] + deltaRps
		if dPoc < 0 && useDelta[j] {
			negatives = append(negatives, entry{dPoc, usedByCurr[j]})
		}
	}

	for j := len(ref.DeltaPocS0) - 1; j >= 0; j-- {
		dPoc := ref.DeltaPocS0[j] + deltaRps
		if dPoc > 0 && useDelta[j] {
			positives = append(positives, entry{dPoc, usedByCurr[j]})
		}
	}
	if deltaRps > 0 && useDelta[len(usedByCurr)-1] {
		positives = append(positives, entry{deltaRps, usedByCurr[len(usedByCurr)-1]})
	}
	for j := 0; j < len(ref.DeltaPocS1); j++ {
		dPoc := ref.DeltaPocS1[j] + deltaRps
		if dPoc > 0 && useDelta[len(ref.DeltaPocS0)+j] {
			positives = append(positives, entry{dPoc, usedByCurr[len(ref.DeltaPocS0)+j]})
		}
	}

	s.DeltaPocS0 = make([]int32, len(negatives))
	s.UsedS0 = make([]bool, len(negatives))
	for i, e := range negatives {
		s.DeltaPocS0[i] = e.poc
		s.UsedS0[i] = e.used
	}
	s.DeltaPocS1 = make([]int32, len(positives))
	s.UsedS1 = make([]bool, len(positives))
	for i, e := range positives {
		s.DeltaPocS1[i] = e.poc
		s.UsedS1[i] = e.used
	}
}
