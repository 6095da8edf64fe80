// Package container reads and writes the VMD file structure: the fixed
// 0x330-byte header, the block and frame tables of contents, and the
// frame payloads they point at.
package container

import (
	"encoding/binary"
	"fmt"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// Header is the fixed VMD file header. Reserved and audio fields are
// kept verbatim so rewriting a file preserves them.
type Header struct {
	HeaderSize     uint16                   // bytes 0-1, nominally 0x32E
	Handle         uint16                   // bytes 2-3
	Unknown04      uint16                   // bytes 4-5
	BlockCount     uint16                   // bytes 6-7
	Top            uint16                   // bytes 8-9
	Left           uint16                   // bytes 10-11
	Width          uint16                   // bytes 12-13
	Height         uint16                   // bytes 14-15
	Flags          uint16                   // bytes 16-17
	FramesPerBlock uint16                   // bytes 18-19
	DataStart      uint32                   // bytes 20-23
	Unknown24      uint32                   // bytes 24-27
	Palette        [format.PaletteSize]byte // 6-bit RGB triplets
	LoadBufSize    uint32                   // bytes 796-799
	DecodeBufSize  uint32                   // bytes 800-803: LZ scratch buffer size
	AudioRate      uint16                   // bytes 804-805
	AudioFrameLen  uint16                   // bytes 806-807
	AudioBuffers   uint16                   // bytes 808-809
	AudioFlags     uint16                   // bytes 810-811
	TOCOffset      uint32                   // bytes 812-815
}

// ParseHeader decodes a raw 0x330-byte header record.
func ParseHeader(raw []byte) (*Header, error) {
	if len(raw) < format.HeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", format.ErrTruncatedInput, format.HeaderSize, len(raw))
	}
	le := binary.LittleEndian
	h := &Header{
		HeaderSize:     le.Uint16(raw[0:]),
		Handle:         le.Uint16(raw[2:]),
		Unknown04:      le.Uint16(raw[4:]),
		BlockCount:     le.Uint16(raw[format.OffBlockCount:]),
		Top:            le.Uint16(raw[8:]),
		Left:           le.Uint16(raw[10:]),
		Width:          le.Uint16(raw[format.OffWidth:]),
		Height:         le.Uint16(raw[format.OffHeight:]),
		Flags:          le.Uint16(raw[16:]),
		FramesPerBlock: le.Uint16(raw[format.OffFramesPerBlock:]),
		DataStart:      le.Uint32(raw[format.OffDataStart:]),
		Unknown24:      le.Uint32(raw[24:]),
		LoadBufSize:    le.Uint32(raw[format.OffLoadBufSize:]),
		DecodeBufSize:  le.Uint32(raw[format.OffDecodeBufSize:]),
		AudioRate:      le.Uint16(raw[format.OffAudioRate:]),
		AudioFrameLen:  le.Uint16(raw[806:]),
		AudioBuffers:   le.Uint16(raw[808:]),
		AudioFlags:     le.Uint16(raw[810:]),
		TOCOffset:      le.Uint32(raw[format.OffTOC:]),
	}
	copy(h.Palette[:], raw[format.OffPalette:format.OffPalette+format.PaletteSize])
	return h, nil
}

// Marshal encodes the header into its fixed 0x330-byte layout.
func (h *Header) Marshal() []byte {
	raw := make([]byte, format.HeaderSize)
	le := binary.LittleEndian
	le.PutUint16(raw[0:], h.HeaderSize)
	le.PutUint16(raw[2:], h.Handle)
	le.PutUint16(raw[4:], h.Unknown04)
	le.PutUint16(raw[format.OffBlockCount:], h.BlockCount)
	le.PutUint16(raw[8:], h.Top)
	le.PutUint16(raw[10:], h.Left)
	le.PutUint16(raw[format.OffWidth:], h.Width)
	le.PutUint16(raw[format.OffHeight:], h.Height)
	le.PutUint16(raw[16:], h.Flags)
	le.PutUint16(raw[format.OffFramesPerBlock:], h.FramesPerBlock)
	le.PutUint32(raw[format.OffDataStart:], h.DataStart)
	le.PutUint32(raw[24:], h.Unknown24)
	copy(raw[format.OffPalette:], h.Palette[:])
	le.PutUint32(raw[format.OffLoadBufSize:], h.LoadBufSize)
	le.PutUint32(raw[format.OffDecodeBufSize:], h.DecodeBufSize)
	le.PutUint16(raw[format.OffAudioRate:], h.AudioRate)
	le.PutUint16(raw[806:], h.AudioFrameLen)
	le.PutUint16(raw[808:], h.AudioBuffers)
	le.PutUint16(raw[810:], h.AudioFlags)
	le.PutUint32(raw[format.OffTOC:], h.TOCOffset)
	return raw
}

// Validate checks the header for consistency.
func (h *Header) Validate() error {
	if h.Width == 0 || h.Height == 0 {
		return fmt.Errorf("%w: invalid frame dimensions %dx%d", format.ErrInvalidData, h.Width, h.Height)
	}
	if h.FramesPerBlock == 0 {
		return fmt.Errorf("%w: zero frames per block", format.ErrInvalidData)
	}
	return nil
}
