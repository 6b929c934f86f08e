package cabac

// State holds the persistent probability model for all contexts: a
// pair of (pStateIdx, valMps) per context index, per ITU-T H.265
// 9.3.2.2. StatCoeff is the persistent Rice-parameter adaptation state
// used by coeff_abs_level_remaining when
// persistent_rice_adaptation_enabled_flag is set (9.3.3.10), one entry
// per of the four sbType categories used there.
type State struct {
	PStateIdx [NumContexts]uint8
	ValMps    [NumContexts]uint8
	StatCoeff [4]uint8

	// Greater1Found tracks, per colour category (0=luma, 1=chroma),
	// whether the previously decoded sub-block found a
	// coeff_abs_level_greater1_flag == 1, feeding the next sub-block's
	// ctxSet derivation (HEVC 9.3.4.2.6). It lives on State rather than
	// as package state so each WPP/tile row owns an independent copy,
	// the same way StatCoeff does.
	Greater1Found [2]bool
}

// SliceType mirrors the paramset package's slice_type values
// (B=0, P=1, I=2) without importing it, so the arithmetic engine has
// no dependency on the parameter-set/slice-header model.
type SliceType byte

const (
	SliceTypeB SliceType = 0
	SliceTypeP SliceType = 1
	SliceTypeI SliceType = 2
)

// initType implements H.265 9.3.2.2's table selection: I slices always
// use table 0; P/B slices pick between 1 and 2 with cabac_init_flag
// swapping which is which.
func initType(sliceType SliceType, cabacInitFlag bool) int {
	t := 2 - int(sliceType)
	if cabacInitFlag && sliceType != SliceTypeI {
		t ^= 3
	}
	return t
}

// Init resets every context's probability state from the initValues
// table selected by sliceType/cabacInitFlag, per H.265 9.3.2.2, and
// clears StatCoeff. qp is SliceQpY, clipped internally to [0,51].
func (s *State) Init(sliceType SliceType, cabacInitFlag bool, qp int) {
	table := initValues[initType(sliceType, cabacInitFlag)]

	switch {
	case qp < 0:
		qp = 0
	case qp > 51:
		qp = 51
	}

	for i := 0; i < NumContexts; i++ {
		iv := int(table[i])
		slopeIdx := iv >> 4
		offsetIdx := iv & 15
		m := slopeIdx*5 - 45
		n := (offsetIdx << 3) - 16
		pre := ((m * qp) >> 4) + n
		switch {
		case pre < 1:
			pre = 1
		case pre > 126:
			pre = 126
		}
		if pre <= 63 {
			s.PStateIdx[i] = uint8(63 - pre)
			s.ValMps[i] = 0
		} else {
			s.PStateIdx[i] = uint8(pre - 64)
			s.ValMps[i] = 1
		}
	}
	s.StatCoeff = [4]uint8{}
	s.Greater1Found = [2]bool{true, true}
}

// Clone returns an independent copy, used to snapshot a row's exit
// state for the next row's wavefront entry-point state (see wpp.go).
func (s *State) Clone() *State {
	c := *s
	return &c
}
