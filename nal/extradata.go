package nal

import "fmt"

// Extradata holds the parameter-set NAL units extracted from an hvcC
// box, plus the NAL length size later packets are framed with. Layout:
// a 23-byte header, a count of NAL-unit arrays, each array holding a
// 1-byte type, a 2-byte count, and that many {2-byte length, NAL
// bytes} entries. Header byte 21's low 2 bits encode
// lengthSizeMinusOne, so LengthSize = (byte&3)+1.
type Extradata struct {
	LengthSize int
	Arrays     map[Type][]Unit
}

const hvccHeaderSize = 23

// ParseExtradata parses hvcC-formatted extradata (as found in an MP4
// "hvcC" box) into parameter-set NAL units and the NAL length size used
// to frame subsequent packets. If data looks like an Annex B stream
// (starts with a start code) it is parsed as such instead, with
// LengthSize left at 0 to signal "Annex B framing, no length prefix".
func ParseExtradata(data []byte) (Extradata, error) {
	if IsAnnexB(data) {
		units, err := Split(data)
		if err != nil {
			return Extradata{}, err
		}
		arrays := make(map[Type][]Unit)
		for _, u := range units {
			arrays[u.Type] = append(arrays[u.Type], u)
		}
		return Extradata{LengthSize: 0, Arrays: arrays}, nil
	}

	if len(data) < hvccHeaderSize+1 {
		return Extradata{}, fmt.Errorf("nal: hvcC extradata too short: %w", ErrInvalidBitstream)
	}

	lengthSize := int(data[21]&3) + 1
	numArrays := int(data[22])

	arrays := make(map[Type][]Unit)
	pos := hvccHeaderSize
	for a := 0; a < numArrays; a++ {
		if pos+3 > len(data) {
			return Extradata{}, fmt.Errorf("nal: hvcC array header overruns buffer: %w", ErrInvalidBitstream)
		}
		arrayType := Type(data[pos] & 0x3F)
		numNALs := int(data[pos+1])<<8 | int(data[pos+2])
		pos += 3
		for n := 0; n < numNALs; n++ {
			if pos+2 > len(data) {
				return Extradata{}, fmt.Errorf("nal: hvcC NAL entry overruns buffer: %w", ErrInvalidBitstream)
			}
			length := int(data[pos])<<8 | int(data[pos+1])
			pos += 2
			if pos+length > len(data) {
				return Extradata{}, fmt.Errorf("nal: hvcC NAL payload overruns buffer: %w", ErrInvalidBitstream)
			}
			raw := data[pos : pos+length]
			pos += length

			typ, layerID, temporalID, err := parseHeader(raw)
			if err != nil {
				continue
			}
			arrays[arrayType] = append(arrays[arrayType], Unit{
				Type:       typ,
				LayerID:    layerID,
				TemporalID: temporalID,
				RBSP:       RemoveEmulationPrevention(raw[2:]),
				Raw:        raw,
			})
		}
	}

	return Extradata{LengthSize: lengthSize, Arrays: arrays}, nil
}
