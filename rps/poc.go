// Package rps computes picture order count and resolves a slice's
// reference picture set into POC-keyed reference lists, per H.265
// clauses 8.3.1-8.3.4.
package rps

import "github.com/zsiec/hevccore/nal"

// Tracker carries the decoding-order state POC computation needs
// across pictures: the MSB/LSB of the most recently decoded picture
// that is a non-RASL, non-sub-layer-non-reference picture ("TemporalId
// 0" in the standard's shorthand), per H.265 8.3.1.
type Tracker struct {
	prevPocMsb int32
	prevPocLsb int32
	havePrev   bool
}

// NoRaslOutputFlag reports whether nalType's IRAP picture suppresses
// RASL output, per H.265 clause 8 (true for IDR, BLA, and the first
// CRA in the bitstream or after an end-of-sequence).
func NoRaslOutputFlag(nalType nal.Type, firstPicture bool) bool {
	if nalType.IsIDR() || nalType.IsBLA() {
		return true
	}
	if nalType.IsCRA() {
		return firstPicture
	}
	return false
}

// ComputePOC derives PicOrderCntVal for the current picture, per H.265
// 8.3.1. pocLsb is slice_pic_order_cnt_lsb; maxPocLsb is the SPS's
// MaxPicOrderCntLsb(). For an IRAP picture with NoRaslOutputFlag set,
// both MSB and LSB are taken as given (prevPocMsb/Lsb reset to 0)
// rather than predicted from decoding history.
func (t *Tracker) ComputePOC(nalType nal.Type, pocLsb, maxPocLsb int32, noRaslOutputFlag bool) int32 {
	if nalType.IsIRAP() && noRaslOutputFlag {
		return pocLsb
	}

	prevMsb, prevLsb := t.prevPocMsb, t.prevPocLsb
	if !t.havePrev {
		prevMsb, prevLsb = 0, 0
	}

	var msb int32
	switch {
	case pocLsb < prevLsb && prevLsb-pocLsb >= maxPocLsb/2:
		msb = prevMsb + maxPocLsb
	case pocLsb > prevLsb && pocLsb-prevLsb > maxPocLsb/2:
		msb = prevMsb - maxPocLsb
	default:
		msb = prevMsb
	}
	return msb + pocLsb
}

// Advance records poc as the new TemporalId-0 reference point, called
// after every picture that is neither a RASL picture nor marked
// sub-layer-non-reference, per H.265 8.3.1's "prevTid0Pic" update rule.
func (t *Tracker) Advance(msb, lsb int32) {
	t.prevPocMsb = msb
	t.prevPocLsb = lsb
	t.havePrev = true
}

// Reset clears the tracker's decoding-history state, used when a
// NoRaslOutputFlag IRAP picture restarts POC prediction.
func (t *Tracker) Reset() {
	t.prevPocMsb = 0
	t.prevPocLsb = 0
	t.havePrev = false
}
