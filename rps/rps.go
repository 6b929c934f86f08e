package rps

import "github.com/zsiec/hevccore/paramset"

// RefEntry is one reference picture named by an RPS category: its POC
// and whether its MSB was explicitly signalled (long-term refs older
// than one POC-LSB wraparound need this to disambiguate which cycle
// they belong to; short-term entries always carry the full POC).
type RefEntry struct {
	POC      int32
	UseMSB   bool
	LongTerm bool
}

// Set is CurrPicOrderCntVal's resolved reference picture set (H.265
// 8.3.2): the five category lists a slice's RefPicLists are built
// from. CurrBefore/CurrAfter/LtCurr name pictures usable by the
// current picture; Foll/LtFoll name pictures kept in the DPB only for
// later pictures' reference.
type Set struct {
	CurrBefore []RefEntry
	CurrAfter  []RefEntry
	Foll       []RefEntry
	LtCurr     []RefEntry
	LtFoll     []RefEntry
}

// BuildShortTerm partitions a resolved ShortTermRPS's delta POCs into
// StCurrBefore/StCurrAfter/StFoll, per H.265 8.3.2: negative deltas
// (pictures before currPoc) go to CurrBefore if used_by_curr_pic,
// positive deltas to CurrAfter, and any unused delta (either sign) to
// Foll.
func BuildShortTerm(currPoc int32, st *paramset.ShortTermRPS) (currBefore, currAfter, foll []RefEntry) {
	if st == nil {
		return nil, nil, nil
	}
	for i, d := range st.DeltaPocS0 {
		e := RefEntry{POC: currPoc + d}
		if st.UsedS0[i] {
			currBefore = append(currBefore, e)
		} else {
			foll = append(foll, e)
		}
	}
	for i, d := range st.DeltaPocS1 {
		e := RefEntry{POC: currPoc + d}
		if st.UsedS1[i] {
			currAfter = append(currAfter, e)
		} else {
			foll = append(foll, e)
		}
	}
	return currBefore, currAfter, foll
}

// LongTermSpec is one long-term reference entry as carried by a slice
// header (H.265 7.4.7.2): either an SPS-signalled entry (selected by
// LtIdxSps) or one coded inline. DeltaPocMSBCycle is the already
// cumulative delta_poc_msb_cycle_lt value (7.4.7.2 defines it as an
// accumulation across consecutive MSB-present entries; the decoder
// resolves that accumulation when it builds these specs from the
// slice header, so this package only consumes the final per-entry
// cycle count).
type LongTermSpec struct {
	PocLSB           uint32
	UsedByCurr       bool
	MSBPresent       bool
	DeltaPocMSBCycle uint32
}

// BuildLongTerm resolves a slice header's long-term RPS entries into
// LtCurr/LtFoll, per H.265 8.3.2's long-term POC derivation:
// PocLtCurr = pocLsb, with the full POC recovered from
// DeltaPocMsbCycleLt when MSBPresent names a cycle other than the
// current picture's.
func BuildLongTerm(currPoc int32, maxPocLsb int32, specs []LongTermSpec) (ltCurr, ltFoll []RefEntry) {
	currPocLsb := currPoc % maxPocLsb
	if currPocLsb < 0 {
		currPocLsb += maxPocLsb
	}

	for _, s := range specs {
		poc := int32(s.PocLSB)
		if s.MSBPresent {
			poc = currPoc - int32(s.DeltaPocMSBCycle)*maxPocLsb - currPocLsb + int32(s.PocLSB)
		}
		e := RefEntry{POC: poc, UseMSB: s.MSBPresent, LongTerm: true}
		if s.UsedByCurr {
			ltCurr = append(ltCurr, e)
		} else {
			ltFoll = append(ltFoll, e)
		}
	}
	return ltCurr, ltFoll
}

// Resolve builds the complete reference picture set for the current
// picture from its slice header's short-term RPS (already parsed by
// paramset) and long-term specs, per H.265 8.3.2.
func Resolve(currPoc int32, maxPocLsb int32, st *paramset.ShortTermRPS, ltSpecs []LongTermSpec) Set {
	var s Set
	s.CurrBefore, s.CurrAfter, s.Foll = BuildShortTerm(currPoc, st)
	s.LtCurr, s.LtFoll = BuildLongTerm(currPoc, maxPocLsb, ltSpecs)
	return s
}
