package rps

// MissingRefs scans a resolved Set's current-picture categories
// (CurrBefore, CurrAfter, LtCurr) for POCs not present in have, the set
// of POCs currently live in the DPB. The decoder creates an
// UNAVAILABLE placeholder frame for each one returned (H.265 C.5.2.2,
// "no reference picture for curr pic"), so a damaged or truncated
// bitstream never reads dangling reference state.
func MissingRefs(s Set, have map[int32]bool) []int32 {
	var missing []int32
	seen := map[int32]bool{}
	for _, group := range [][]RefEntry{s.CurrBefore, s.CurrAfter, s.LtCurr} {
		for _, e := range group {
			if !have[e.POC] && !seen[e.POC] {
				seen[e.POC] = true
				missing = append(missing, e.POC)
			}
		}
	}
	return missing
}
