package cabac

import "sync"

// WPPSync holds one saved context snapshot per CTB row, used for
// entropy_coding_sync_enabled_flag wavefront parallel processing: row R
// seeds its CABAC state from the snapshot taken after the second CTB of
// row R-1, rather than from the previous CTB in raster order. Grounded
// on the synchronization point used by wavefront decoders generally:
// a snapshot taken once decoding reaches the second CTB column of a
// row, consumed by the next row as its own starting state. Save/Load/
// Reset are safe for concurrent use, since rows are produced and
// consumed by the row-parallel goroutines a driver fans out.
type WPPSync struct {
	mu   sync.Mutex
	rows map[int]*State
}

// NewWPPSync returns an empty snapshot table.
func NewWPPSync() *WPPSync {
	return &WPPSync{rows: make(map[int]*State)}
}

// ShouldSnapshot reports whether the CTB at ctbAddrInRs (raster-scan
// address within the tile, 0-based) is the synchronization point for
// its row, checked before that CTB is decoded: column 2, reached once
// the row's second CTB (column 1) has finished, or column 0 when the
// picture is only two CTBs wide (there is no column 2 to reach).
func ShouldSnapshot(ctbAddrInRs int, ctbWidth int) bool {
	col := ctbAddrInRs % ctbWidth
	return col == 2 || (ctbWidth == 2 && col == 0)
}

// Save stores a copy of state as the entry state for the row below
// ctbRow (ctbRow+1), called when ShouldSnapshot's CTB is reached,
// before that CTB is decoded.
func (w *WPPSync) Save(ctbRow int, state *State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows[ctbRow+1] = state.Clone()
}

// Load returns the saved entry state for ctbRow, or nil if row 0 (which
// starts from the slice/tile's own initialized state) or no snapshot
// was ever saved for it (e.g. the previous row belongs to a different
// tile).
func (w *WPPSync) Load(ctbRow int) *State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rows[ctbRow]
}

// Reset clears all saved rows, done at the start of each new picture.
func (w *WPPSync) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rows = make(map[int]*State)
}
