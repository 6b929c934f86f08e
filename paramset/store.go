package paramset

import "sync"

// Store holds the currently-installed VPS/SPS/PPS sets, indexed by
// their coded id, in fixed-capacity arrays (16/32/256 slots). Replacing
// a slot swaps the pointer atomically under the lock; a SliceHeader
// resolved before the swap keeps its own *SPS/*PPS and is unaffected,
// since neither type is ever mutated in place after parsing.
type Store struct {
	mu  sync.RWMutex
	vps [MaxVPSCount]*VPS
	sps [MaxSPSCount]*SPS
	pps [MaxPPSCount]*PPS
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// PutVPS installs v at its own id, replacing any prior VPS there.
func (s *Store) PutVPS(v *VPS) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vps[v.ID] = v
}

// PutSPS installs sp at its own id, replacing any prior SPS there.
func (s *Store) PutSPS(sp *SPS) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sps[sp.ID] = sp
}

// PutPPS installs p at its own id, replacing any prior PPS there.
func (s *Store) PutPPS(p *PPS) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pps[p.ID] = p
}

// VPS returns the VPS installed at id, or nil.
func (s *Store) VPS(id uint32) *VPS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= MaxVPSCount {
		return nil
	}
	return s.vps[id]
}

// SPS returns the SPS installed at id, or nil.
func (s *Store) SPS(id uint32) *SPS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= MaxSPSCount {
		return nil
	}
	return s.sps[id]
}

// PPS returns the PPS installed at id, or nil.
func (s *Store) PPS(id uint32) *PPS {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id >= MaxPPSCount {
		return nil
	}
	return s.pps[id]
}

// HasVPS reports whether a VPS is installed at id; used as the
// vpsPresent callback ParseSPS takes.
func (s *Store) HasVPS(id uint32) bool {
	return s.VPS(id) != nil
}

// HasSPS reports whether an SPS is installed at id; used as the
// spsPresent callback ParsePPS takes.
func (s *Store) HasSPS(id uint32) bool {
	return s.SPS(id) != nil
}

// Resolve returns the PPS installed at ppsID and the SPS it
// references, or ok=false if either is missing.
func (s *Store) Resolve(ppsID uint32) (pps *PPS, sps *SPS, ok bool) {
	pps = s.PPS(ppsID)
	if pps == nil {
		return nil, nil, false
	}
	sps = s.SPS(pps.SPSID)
	if sps == nil {
		return pps, nil, false
	}
	return pps, sps, true
}
