package decoder

import "errors"

// Sentinel errors for Decoder operations. These enable callers to
// programmatically distinguish failure modes using errors.Is.
var (
	ErrInvalidBitstream   = errors.New("decoder: invalid bitstream")
	ErrUnsupportedFeature = errors.New("decoder: unsupported feature")
	ErrMissingReference   = errors.New("decoder: missing reference picture")
	ErrOutOfMemory        = errors.New("decoder: out of memory")
	ErrCancelled          = errors.New("decoder: cancelled")
	ErrClosed             = errors.New("decoder: closed")
)
