package decoder

// StrictStdCompliance controls how many standard deviations the
// decoder tolerates before treating them as fatal.
type StrictStdCompliance int

const (
	StrictStdVeryStrict StrictStdCompliance = iota
	StrictStdStrict
	StrictStdNormal
	StrictStdUnofficial
	StrictStdExperimental
)

// Config holds the options a host can set when opening a Decoder.
type Config struct {
	// ApplyDefaultDisplayWindow crops output frames to the default
	// display window signalled in VUI, when present.
	ApplyDefaultDisplayWindow bool
	// AllowProfileMismatch is not read by the decoder: no SPS is
	// rejected for its profile_idc, whatever this field holds.
	AllowProfileMismatch bool
	// StrictStdCompliance controls how many bitstream deviations are
	// tolerated before they become fatal.
	StrictStdCompliance StrictStdCompliance
	// OutputCorrupt emits frames flagged CORRUPT instead of dropping
	// them.
	OutputCorrupt bool
	// ShowAllFrames marks every finished picture for output, including
	// pictures whose slice header clears pic_output_flag. Output is not
	// gated on the first IRAP picture in either setting: pictures
	// decoded before it are output as well.
	ShowAllFrames bool
	// Threads upper-bounds parallel workers; 0 means automatic.
	Threads uint32
	// ApplyFilmGrain applies H.274 film grain synthesis (when SEI
	// carries it) before output. Out of scope for this decoder's DSP
	// seam; recorded here only so a host configuring this decoder
	// alongside others sees a consistent option set.
	ApplyFilmGrain bool
}

// DefaultConfig returns the Config a Decoder uses when Open is called
// with the zero value.
func DefaultConfig() Config {
	return Config{StrictStdCompliance: StrictStdNormal}
}
