package vmd

import "github.com/mrjoshuak/go-vmd/internal/format"

// Error kinds reported by the codec. Every error returned from this
// package wraps one of these, so callers can classify failures with
// errors.Is without depending on message text.
var (
	// ErrTruncatedInput means the stream ended before a declared length
	// was satisfied.
	ErrTruncatedInput = format.ErrTruncatedInput

	// ErrInvalidData means a decoded offset, length, or count is
	// inconsistent with the buffers it addresses.
	ErrInvalidData = format.ErrInvalidData

	// ErrUnsupportedMethod means a frame declares a compression method
	// outside the known set.
	ErrUnsupportedMethod = format.ErrUnsupportedMethod

	// ErrPaletteOverflow means more than 256 distinct colors were
	// requested without a palette reset.
	ErrPaletteOverflow = format.ErrPaletteOverflow

	// ErrDimensionMismatch means a change window or frame size
	// disagrees with the container dimensions.
	ErrDimensionMismatch = format.ErrDimensionMismatch
)
