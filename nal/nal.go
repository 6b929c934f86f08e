// Package nal splits an HEVC byte stream (Annex B or length-prefixed)
// into NAL units and reverses emulation-prevention byte stuffing,
// producing the [Unit] values that feed paramset and the slice decoder.
package nal

import (
	"errors"
	"fmt"
)

// ErrInvalidBitstream mirrors bitstream.ErrInvalidBitstream for the
// grammar violations this package itself can detect (missing start
// code, reserved forbidden_zero_bit, zero temporal_id_plus1).
var ErrInvalidBitstream = errors.New("nal: invalid bitstream")

// Type is the HEVC nal_unit_type (6 bits, Table 7-1).
type Type byte

// NAL unit type constants used by the core. VCL types are 0-31; the
// remainder are non-VCL.
const (
	TypeTrailN     Type = 0
	TypeTrailR     Type = 1
	TypeTsaN       Type = 2
	TypeTsaR       Type = 3
	TypeStsaN      Type = 4
	TypeStsaR      Type = 5
	TypeRadlN      Type = 6
	TypeRadlR      Type = 7
	TypeRaslN      Type = 8
	TypeRaslR      Type = 9
	TypeBLAWLP     Type = 16
	TypeBLAWRADL   Type = 17
	TypeBLANLP     Type = 18
	TypeIDRWRADL   Type = 19
	TypeIDRNLP     Type = 20
	TypeCRANUT     Type = 21
	TypeVPS        Type = 32
	TypeSPS        Type = 33
	TypePPS        Type = 34
	TypeAUD        Type = 35
	TypeEOS        Type = 36
	TypeEOB        Type = 37
	TypeFillerData Type = 38
	TypeSEIPrefix  Type = 39
	TypeSEISuffix  Type = 40
)

// IsVCL reports whether t is a coded-slice (video coding layer) NAL type.
func (t Type) IsVCL() bool { return t <= 31 }

// IsIRAP reports whether t is an intra random access point (BLA/IDR/CRA).
func (t Type) IsIRAP() bool { return t >= 16 && t <= 23 }

// IsIDR reports whether t is an IDR picture.
func (t Type) IsIDR() bool { return t == TypeIDRWRADL || t == TypeIDRNLP }

// IsBLA reports whether t is a BLA picture.
func (t Type) IsBLA() bool { return t >= TypeBLAWLP && t <= TypeBLANLP }

// IsCRA reports whether t is a CRA picture.
func (t Type) IsCRA() bool { return t == TypeCRANUT }

// IsRASL reports whether t is a RASL picture (RASL_N or RASL_R), per
// H.265 Table 7-1. RASL pictures associated with an IRAP that has
// NoRaslOutputFlag set are not output and not used as reference.
func (t Type) IsRASL() bool { return t == TypeRaslN || t == TypeRaslR }

// IsRADL reports whether t is a RADL picture (RADL_N or RADL_R).
func (t Type) IsRADL() bool { return t == TypeRadlN || t == TypeRadlR }

// IsSubLayerNonRef reports whether t is a sub-layer-non-reference VCL
// type: the "_N"-suffixed types (TRAIL_N, TSA_N, STSA_N, RADL_N,
// RASL_N), which H.265 Table 7-1 marks as never used as reference
// pictures by any picture in the same sub-layer. Even-valued nal_unit_type
// in the 0..14 VCL range denotes this class.
func (t Type) IsSubLayerNonRef() bool {
	return t <= 14 && t%2 == 0
}

// Unit is a parsed NAL unit: the typed header fields plus the RBSP with
// emulation-prevention bytes already removed. Raw references the
// original (still-escaped) bytes including the 2-byte NAL header, for
// callers that need to re-emit or hash the exact wire bytes. Its
// lifetime is bounded by the access unit it was parsed from; callers
// that need to retain a Unit past that point must copy RBSP/Raw.
type Unit struct {
	Type       Type
	LayerID    byte // nuh_layer_id, 6 bits
	TemporalID byte // TemporalId = temporal_id_plus1 - 1, 0..6
	RBSP       []byte
	Raw        []byte
}

// parseHeader reads the 2-byte HEVC NAL header: forbidden_zero_bit(1) |
// nal_unit_type(6) | nuh_layer_id(6) | nuh_temporal_id_plus1(3).
func parseHeader(raw []byte) (Type, byte, byte, error) {
	if len(raw) < 2 {
		return 0, 0, 0, fmt.Errorf("nal: header too short: %w", ErrInvalidBitstream)
	}
	if raw[0]&0x80 != 0 {
		return 0, 0, 0, fmt.Errorf("nal: forbidden_zero_bit set: %w", ErrInvalidBitstream)
	}
	typ := Type((raw[0] >> 1) & 0x3F)
	layerID := ((raw[0] & 1) << 5) | (raw[1] >> 3)
	temporalIDPlus1 := raw[1] & 0x7
	if temporalIDPlus1 == 0 {
		return 0, 0, 0, fmt.Errorf("nal: temporal_id_plus1 == 0: %w", ErrInvalidBitstream)
	}
	return typ, layerID, temporalIDPlus1 - 1, nil
}

// RemoveEmulationPrevention drops the escape byte 0x03 from every
// 0x00 0x00 0x03 sequence, provided the 0x03 is followed by a byte < 4
// (or is the last byte of the buffer). A following byte >= 4 is a
// bitstream violation; the escape is still removed and decoding
// continues rather than aborting the whole NAL unit.
func RemoveEmulationPrevention(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if i+2 < len(data) && data[i] == 0 && data[i+1] == 0 && data[i+2] == 3 {
			out = append(out, 0, 0)
			i += 2
			continue
		}
		out = append(out, data[i])
	}
	return out
}

type startCode struct {
	scStart   int
	dataStart int
}

func findStartCodes(data []byte) []startCode {
	var positions []startCode
	n := len(data)
	i := 0
	for i < n-2 {
		if data[i] == 0 && data[i+1] == 0 {
			if i < n-3 && data[i+2] == 0 && data[i+3] == 1 {
				positions = append(positions, startCode{scStart: i, dataStart: i + 4})
				i += 4
				continue
			}
			if data[i+2] == 1 {
				positions = append(positions, startCode{scStart: i, dataStart: i + 3})
				i += 3
				continue
			}
		}
		i++
	}
	return positions
}

// Split parses an Annex B byte stream (3- or 4-byte start codes) into
// NAL units with emulation prevention removed. It fails with
// ErrInvalidBitstream if no start code is found at all; individual NAL
// units with malformed headers are skipped rather than aborting the
// whole stream, since a single corrupt NAL should not take down
// decoding of its neighbours.
func Split(data []byte) ([]Unit, error) {
	positions := findStartCodes(data)
	if len(positions) == 0 {
		return nil, fmt.Errorf("nal: no start code found: %w", ErrInvalidBitstream)
	}

	units := make([]Unit, 0, len(positions))
	for idx, pos := range positions {
		end := len(data)
		if idx+1 < len(positions) {
			end = positions[idx+1].scStart
		}
		if pos.dataStart >= end {
			continue
		}
		raw := data[pos.dataStart:end]
		if len(raw) < 2 {
			continue
		}
		typ, layerID, temporalID, err := parseHeader(raw)
		if err != nil {
			continue
		}
		units = append(units, Unit{
			Type:       typ,
			LayerID:    layerID,
			TemporalID: temporalID,
			RBSP:       RemoveEmulationPrevention(raw[2:]),
			Raw:        raw,
		})
	}
	return units, nil
}

// SplitLengthPrefixed parses a stream of length-prefixed NAL units (the
// framing used by hvcC/AVC1-style extradata and packetized samples),
// where lengthSize is 1, 2, or 4 bytes per the hvcC box layout.
func SplitLengthPrefixed(data []byte, lengthSize int) ([]Unit, error) {
	if lengthSize != 1 && lengthSize != 2 && lengthSize != 4 {
		return nil, fmt.Errorf("nal: invalid length size %d: %w", lengthSize, ErrInvalidBitstream)
	}
	var units []Unit
	i := 0
	for i+lengthSize <= len(data) {
		length := 0
		for b := 0; b < lengthSize; b++ {
			length = (length << 8) | int(data[i+b])
		}
		i += lengthSize
		if length < 2 || i+length > len(data) {
			return units, fmt.Errorf("nal: length-prefixed NAL overruns buffer: %w", ErrInvalidBitstream)
		}
		raw := data[i : i+length]
		typ, layerID, temporalID, err := parseHeader(raw)
		if err == nil {
			units = append(units, Unit{
				Type:       typ,
				LayerID:    layerID,
				TemporalID: temporalID,
				RBSP:       RemoveEmulationPrevention(raw[2:]),
				Raw:        raw,
			})
		}
		i += length
	}
	return units, nil
}

// IsAnnexB reports whether data begins with an Annex B start code
// (0x000001 or 0x00000001), the heuristic used to auto-detect framing
// when extradata isn't available.
func IsAnnexB(data []byte) bool {
	if len(data) >= 3 && data[0] == 0 && data[1] == 0 && data[2] == 1 {
		return true
	}
	if len(data) >= 4 && data[0] == 0 && data[1] == 0 && data[2] == 0 && data[3] == 1 {
		return true
	}
	return false
}
