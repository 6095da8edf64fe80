// Package format holds the fixed constants of the Sierra VMD container
// and the error kinds shared by every layer of the codec.
package format

import "errors"

// Container geometry. All multi-byte fields are little-endian.
const (
	// HeaderSize is the fixed size of the VMD file header.
	HeaderSize = 0x330

	// BlockRecordSize is the size of one ToC block record.
	BlockRecordSize = 6

	// FrameRecordSize is the size of one ToC frame record.
	FrameRecordSize = 16

	// PaletteEntries is the number of RGB triplets in a palette.
	PaletteEntries = 256

	// PaletteSize is the byte size of a raw palette (6-bit RGB triplets).
	PaletteSize = PaletteEntries * 3

	// PaletteChunkSize is the size of an embedded palette update in a
	// frame payload: 2 info bytes followed by the raw palette.
	PaletteChunkSize = 2 + PaletteSize
)

// Header field offsets.
const (
	OffBlockCount     = 6
	OffWidth          = 12
	OffHeight         = 14
	OffFramesPerBlock = 18
	OffDataStart      = 20
	OffPalette        = 28
	OffLoadBufSize    = 796
	OffDecodeBufSize  = 800
	OffAudioRate      = 804
	OffTOC            = 812
)

// Frame record types.
const (
	FrameAudio = 1
	FrameVideo = 2
)

// FlagPalette in a frame record's flags byte marks an embedded palette
// chunk preceding the pixel data.
const FlagPalette = 0x02

// Compression method bytes. Bit 7 marks LZ pre-compression.
const (
	MethodRLE      = 1
	MethodRaw      = 2
	MethodRLENest  = 3
	MethodLZPacked = 0x80
)

// LZ dictionary queue geometry.
const (
	QueueSize   = 0x1000
	QueueMask   = 0x0FFF
	QueueFiller = 0x20

	// Queue write origins: default mode and 0x56781234 magic mode.
	QueueOrigin      = 0xFEE
	QueueOriginMagic = 0x111

	// LZMagic selects the alternate escape length encoding.
	LZMagic = 0x56781234
)

// Error kinds. Layers wrap these with fmt.Errorf("...: %w", ...) so
// callers can match with errors.Is.
var (
	// ErrTruncatedInput means fewer bytes were available than a declared
	// length demanded.
	ErrTruncatedInput = errors.New("vmd: truncated input")

	// ErrInvalidData means a decoded offset or length would touch memory
	// outside an owned buffer.
	ErrInvalidData = errors.New("vmd: invalid data")

	// ErrUnsupportedMethod means the compression method byte is not
	// among the known set.
	ErrUnsupportedMethod = errors.New("vmd: unsupported compression method")

	// ErrPaletteOverflow means more than 256 colors were needed without
	// an intervening reset.
	ErrPaletteOverflow = errors.New("vmd: palette overflow")

	// ErrDimensionMismatch means a change window exceeds the frame
	// bounds or supplied frame dimensions disagree with the header.
	ErrDimensionMismatch = errors.New("vmd: dimension mismatch")
)
