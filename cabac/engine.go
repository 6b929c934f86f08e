package cabac

import (
	"errors"
	"fmt"

	"github.com/zsiec/hevccore/bitstream"
)

// ErrInvalidBitstream marks arithmetic-decoding preconditions that a
// conformant bitstream never violates (running out of bits mid-slice).
var ErrInvalidBitstream = errors.New("cabac: invalid bitstream")

// rangeTabLPS is ITU-T H.265 Table 9-46: the LPS sub-range as a
// function of pStateIdx (rows) and the two high bits of
// ivlCurrRange (columns, qRangeIdx = (ivlCurrRange>>6)&3).
var rangeTabLPS = [64][4]uint8{
	{128, 176, 208, 240}, {128, 167, 197, 227}, {128, 158, 187, 216}, {123, 150, 178, 205},
	{116, 142, 169, 195}, {111, 135, 160, 185}, {105, 128, 152, 175}, {100, 122, 144, 166},
	{95, 116, 137, 158}, {90, 110, 130, 150}, {85, 104, 123, 142}, {81, 99, 117, 135},
	{77, 94, 111, 128}, {73, 89, 105, 122}, {69, 85, 100, 116}, {66, 80, 95, 110},
	{62, 76, 90, 104}, {59, 72, 86, 99}, {56, 69, 81, 94}, {53, 65, 77, 89},
	{51, 62, 73, 85}, {48, 59, 69, 80}, {46, 56, 66, 76}, {43, 53, 63, 72},
	{41, 50, 59, 69}, {39, 48, 56, 65}, {37, 45, 54, 62}, {35, 43, 51, 59},
	{33, 41, 48, 56}, {32, 39, 46, 53}, {30, 37, 43, 50}, {29, 35, 41, 48},
	{27, 33, 39, 45}, {26, 31, 37, 43}, {24, 30, 35, 41}, {23, 28, 33, 39},
	{22, 27, 32, 37}, {21, 26, 30, 35}, {20, 24, 29, 33}, {19, 23, 27, 31},
	{18, 22, 26, 30}, {17, 21, 25, 28}, {16, 20, 23, 27}, {15, 19, 22, 25},
	{14, 18, 21, 24}, {14, 17, 20, 23}, {13, 16, 19, 22}, {12, 15, 18, 21},
	{12, 14, 17, 20}, {11, 14, 16, 19}, {11, 13, 15, 18}, {10, 12, 15, 17},
	{10, 12, 14, 16}, {9, 11, 13, 15}, {9, 11, 12, 14}, {8, 10, 12, 14},
	{8, 9, 11, 13}, {7, 9, 11, 12}, {7, 9, 10, 12}, {7, 8, 10, 11},
	{6, 8, 9, 11}, {6, 7, 9, 10}, {6, 7, 8, 9}, {2, 2, 2, 2},
}

// transIdxLPS is ITU-T H.265 Table 9-45's LPS column: the next
// pStateIdx after decoding an LPS bin.
var transIdxLPS = [64]uint8{
	0, 0, 1, 2, 2, 4, 4, 5, 6, 7, 8, 9, 9, 11, 11, 12,
	13, 13, 15, 15, 16, 16, 18, 18, 19, 19, 21, 21, 22, 22, 23, 24,
	24, 25, 26, 26, 27, 27, 28, 29, 29, 30, 30, 30, 31, 32, 32, 33,
	33, 33, 34, 34, 35, 35, 35, 36, 36, 36, 37, 37, 37, 38, 38, 63,
}

// transIdxMPS is ITU-T H.265 Table 9-45's MPS column: the next
// pStateIdx after decoding an MPS bin.
var transIdxMPS = [64]uint8{
	1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16,
	17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32,
	33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48,
	49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59, 60, 61, 62, 62, 63,
}

// Decoder is the arithmetic decoding engine of ITU-T H.265 9.3.4: the
// ivlCurrRange/ivlOffset state plus a reference to the persistent
// per-context State it reads and updates. One Decoder exists per CTB
// row under wavefront parallelism; see wpp.go.
type Decoder struct {
	r            *bitstream.Reader
	ivlCurrRange uint32
	ivlOffset    uint32
	state        *State
}

// NewDecoder initializes the engine at the start of
// slice_segment_data(), per H.265 9.3.2.5: ivlCurrRange = 510,
// ivlOffset = the next 9 bits read from the stream. r must already be
// byte-aligned on entry (slice headers end with byte_alignment()).
func NewDecoder(r *bitstream.Reader, state *State) (*Decoder, error) {
	off, err := r.ReadBits(9)
	if err != nil {
		return nil, fmt.Errorf("cabac: init_offset: %w", ErrInvalidBitstream)
	}
	return &Decoder{r: r, ivlCurrRange: 510, ivlOffset: off, state: state}, nil
}

// State returns the context table this engine reads/writes.
func (d *Decoder) State() *State { return d.state }

func (d *Decoder) readBit() (uint32, error) {
	b, err := d.r.ReadBits(1)
	if err != nil {
		return 0, fmt.Errorf("cabac: bitstream exhausted: %w", ErrInvalidBitstream)
	}
	return b, nil
}

// DecodeBin decodes one regular (context-coded) bin for context ctxIdx,
// per H.265 9.3.4.3.2.
func (d *Decoder) DecodeBin(ctxIdx int) (int, error) {
	pState := d.state.PStateIdx[ctxIdx]
	valMps := d.state.ValMps[ctxIdx]

	qRangeIdx := (d.ivlCurrRange >> 6) & 3
	ivlLpsRange := uint32(rangeTabLPS[pState][qRangeIdx])
	d.ivlCurrRange -= ivlLpsRange

	var bin int
	if d.ivlOffset >= d.ivlCurrRange {
		// LPS path.
		bin = int(1 - valMps)
		d.ivlOffset -= d.ivlCurrRange
		d.ivlCurrRange = ivlLpsRange
		if pState == 0 {
			valMps = 1 - valMps
		}
		pState = transIdxLPS[pState]
	} else {
		bin = int(valMps)
		pState = transIdxMPS[pState]
	}
	d.state.PStateIdx[ctxIdx] = pState
	d.state.ValMps[ctxIdx] = valMps

	if err := d.renormalize(); err != nil {
		return 0, err
	}
	return bin, nil
}

// renormalize implements H.265 9.3.4.3.3: RenormD, doubling
// ivlCurrRange and shifting in fresh bits until it is >= 256.
func (d *Decoder) renormalize() error {
	for d.ivlCurrRange < 256 {
		d.ivlCurrRange <<= 1
		bit, err := d.readBit()
		if err != nil {
			return err
		}
		d.ivlOffset = (d.ivlOffset << 1) | bit
	}
	return nil
}

// DecodeBypass decodes one bypass (equiprobable) bin, per H.265
// 9.3.4.3.4.
func (d *Decoder) DecodeBypass() (int, error) {
	bit, err := d.readBit()
	if err != nil {
		return 0, err
	}
	d.ivlOffset = (d.ivlOffset << 1) | bit
	if d.ivlOffset >= d.ivlCurrRange {
		d.ivlOffset -= d.ivlCurrRange
		return 1, nil
	}
	return 0, nil
}

// DecodeBypassBits decodes n bypass bins MSB-first into an unsigned
// integer, the form used by exp-Golomb suffixes and coeff_sign_flag
// runs in residual coding.
func (d *Decoder) DecodeBypassBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		b, err := d.DecodeBypass()
		if err != nil {
			return 0, err
		}
		v = (v << 1) | uint32(b)
	}
	return v, nil
}

// DecodeTerminate decodes end_of_slice_segment_flag / end_of_sub_stream_one_bit,
// per H.265 9.3.4.3.5. It does not renormalize on the terminating '1'
// bin, matching the standard's special-cased handling.
func (d *Decoder) DecodeTerminate() (int, error) {
	d.ivlCurrRange -= 2
	if d.ivlOffset >= d.ivlCurrRange {
		return 1, nil
	}
	if err := d.renormalize(); err != nil {
		return 0, err
	}
	return 0, nil
}
