// Package paramset parses HEVC VPS/SPS/PPS/SliceHeader NAL payloads per
// ITU-T H.265 7.3, and models the default-inheritance and cross-set
// reference resolution between them.
package paramset

import (
	"fmt"

	"github.com/zsiec/hevccore/bitstream"
)

// Cardinality limits for installed parameter sets.
const (
	MaxVPSCount         = 16
	MaxSPSCount         = 32
	MaxPPSCount         = 256
	MaxShortTermRPSCount = 64
	MaxLongTermRefCount  = 32
)

// VPS is an immutable, parsed Video Parameter Set. Once installed in a
// Store it is never mutated; a new VPS with the same id replaces the
// slot atomically and in-flight frames keep their own reference.
type VPS struct {
	ID                    uint32
	MaxLayersMinus1       uint32
	MaxSubLayersMinus1    uint32
	TemporalIDNestingFlag bool
}

func parseVPS(r *bitstream.Reader) (*VPS, error) {
	v := &VPS{}
	id, err := r.ReadBits(4)
	if err != nil {
		return nil, err
	}
	v.ID = id
	if v.ID >= MaxVPSCount {
		return nil, fmt.Errorf("paramset: vps_video_parameter_set_id %d exceeds max %d: %w", v.ID, MaxVPSCount, bitstream.ErrInvalidBitstream)
	}

	// vps_base_layer_internal_flag, vps_base_layer_available_flag
	if _, err := r.ReadBits(2); err != nil {
		return nil, err
	}
	maxLayers, err := r.ReadBits(6)
	if err != nil {
		return nil, err
	}
	v.MaxLayersMinus1 = maxLayers
	maxSubLayers, err := r.ReadBits(3)
	if err != nil {
		return nil, err
	}
	v.MaxSubLayersMinus1 = maxSubLayers
	nesting, err := r.ReadFlag()
	if err != nil {
		return nil, err
	}
	v.TemporalIDNestingFlag = nesting

	// profile_tier_level is read past by skipProfileTierLevel; the rest
	// of the VPS (sub-layer ordering info, extensions) is not read. The
	// core keeps only the id and sub-layer fields parsed above.
	if err := skipProfileTierLevel(r, true, v.MaxSubLayersMinus1); err != nil {
		return nil, err
	}

	return v, nil
}

// ParseVPS parses a VPS NAL unit's RBSP (header bytes already removed)
// and returns the populated struct, or ErrInvalidBitstream.
func ParseVPS(rbsp []byte) (*VPS, error) {
	r := bitstream.New(rbsp)
	return parseVPS(r)
}
