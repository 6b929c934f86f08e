package paramset

import "github.com/zsiec/hevccore/bitstream"

// ProfileTierLevel carries the profile/tier/level fields common to VPS
// and SPS, per H.265 7.3.3. General fields are always present; one
// profile/level per sub-layer follows when present.
type ProfileTierLevel struct {
	GeneralProfileSpace             byte
	GeneralTierFlag                 byte
	GeneralProfileIDC               byte
	GeneralProfileCompatibilityFlag uint32
	GeneralConstraintIndicatorFlags uint64
	GeneralLevelIDC                 byte
}

// profileTierLevelCommon reads the always-present profile_tier_level
// fields and returns them; it does not read the sub-layer section,
// which both callers treat slightly differently (skip vs retain).
func profileTierLevelCommon(r *bitstream.Reader) (ProfileTierLevel, error) {
	var p ProfileTierLevel

	space, err := r.ReadBits(2)
	if err != nil {
		return p, err
	}
	p.GeneralProfileSpace = byte(space)

	tier, err := r.ReadBits(1)
	if err != nil {
		return p, err
	}
	p.GeneralTierFlag = byte(tier)

	idc, err := r.ReadBits(5)
	if err != nil {
		return p, err
	}
	p.GeneralProfileIDC = byte(idc)

	hi, err := r.ReadBits(16)
	if err != nil {
		return p, err
	}
	lo, err := r.ReadBits(16)
	if err != nil {
		return p, err
	}
	p.GeneralProfileCompatibilityFlag = hi<<16 | lo

	var cif uint64
	for i := 0; i < 6; i++ {
		b, err := r.ReadBits(8)
		if err != nil {
			return p, err
		}
		cif = cif<<8 | uint64(b)
	}
	p.GeneralConstraintIndicatorFlags = cif

	level, err := r.ReadBits(8)
	if err != nil {
		return p, err
	}
	p.GeneralLevelIDC = byte(level)

	return p, nil
}

// skipProfileTierLevel reads a full profile_tier_level() structure for
// VPS, where general_profile_present_flag can be false (profile fields
// borrowed from the base layer) unlike SPS where it is always true.
// Sub-layer detail is discarded; see skipProfileTierLevelSubLayers for
// the part shared with ParseSPS.
func skipProfileTierLevel(r *bitstream.Reader, profilePresentFlag bool, maxSubLayersMinus1 uint32) error {
	if profilePresentFlag {
		if _, err := profileTierLevelCommon(r); err != nil {
			return err
		}
	} else {
		if _, err := r.ReadBits(8); err != nil {
			return err
		}
	}
	return skipProfileTierLevelSubLayers(r, maxSubLayersMinus1)
}

// skipProfileTierLevelSubLayers reads the per-sub-layer profile/level
// presence flags, reserved alignment bits, and (for sub-layers with
// the corresponding presence flag set) profile and level fields. Used
// by both VPS and SPS parsing.
func skipProfileTierLevelSubLayers(r *bitstream.Reader, maxSubLayersMinus1 uint32) error {
	if maxSubLayersMinus1 == 0 {
		return nil
	}
	subLayerProfilePresent := make([]bool, maxSubLayersMinus1)
	subLayerLevelPresent := make([]bool, maxSubLayersMinus1)
	for i := uint32(0); i < maxSubLayersMinus1; i++ {
		pp, err := r.ReadFlag()
		if err != nil {
			return err
		}
		subLayerProfilePresent[i] = pp
		lp, err := r.ReadFlag()
		if err != nil {
			return err
		}
		subLayerLevelPresent[i] = lp
	}
	if maxSubLayersMinus1 < 8 {
		for i := maxSubLayersMinus1; i < 8; i++ {
			if _, err := r.ReadBits(2); err != nil {
				return err
			}
		}
	}
	for i := uint32(0); i < maxSubLayersMinus1; i++ {
		if subLayerProfilePresent[i] {
			if _, err := r.ReadBits(32); err != nil {
				return err
			}
			if _, err := r.ReadBits(32); err != nil {
				return err
			}
			if _, err := r.ReadBits(24); err != nil {
				return err
			}
		}
		if subLayerLevelPresent[i] {
			if _, err := r.ReadBits(8); err != nil {
				return err
			}
		}
	}
	return nil
}
