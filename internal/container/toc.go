package container

import (
	"encoding/binary"

	"github.com/mrjoshuak/go-vmd/internal/format"
	"github.com/mrjoshuak/go-vmd/internal/raster"
)

// BlockRecord is one entry of the block table: an opaque field plus the
// absolute byte offset of the block's first frame body.
type BlockRecord struct {
	Unknown uint16
	Offset  uint32
}

func parseBlockRecord(raw []byte) BlockRecord {
	return BlockRecord{
		Unknown: binary.LittleEndian.Uint16(raw[0:]),
		Offset:  binary.LittleEndian.Uint32(raw[2:]),
	}
}

func (b BlockRecord) marshal(raw []byte) {
	binary.LittleEndian.PutUint16(raw[0:], b.Unknown)
	binary.LittleEndian.PutUint32(raw[2:], b.Offset)
}

// FrameRecord is one entry of the frame table. A zero Length means the
// frame changes nothing and carries no payload.
type FrameRecord struct {
	Type      uint8
	Unknown1  uint8
	Length    uint32
	Left      uint16
	Top       uint16
	Right     uint16
	Bottom    uint16
	Unknown14 uint8
	Flags     uint8
}

// HasPalette reports whether a palette chunk precedes the pixel data.
func (f FrameRecord) HasPalette() bool {
	return f.Flags&format.FlagPalette != 0
}

// Window returns the record's change window.
func (f FrameRecord) Window() raster.Rect {
	return raster.Rect{
		Left:   int(f.Left),
		Top:    int(f.Top),
		Right:  int(f.Right),
		Bottom: int(f.Bottom),
	}
}

func parseFrameRecord(raw []byte) FrameRecord {
	le := binary.LittleEndian
	return FrameRecord{
		Type:      raw[0],
		Unknown1:  raw[1],
		Length:    le.Uint32(raw[2:]),
		Left:      le.Uint16(raw[6:]),
		Top:       le.Uint16(raw[8:]),
		Right:     le.Uint16(raw[10:]),
		Bottom:    le.Uint16(raw[12:]),
		Unknown14: raw[14],
		Flags:     raw[15],
	}
}

func (f FrameRecord) marshal(raw []byte) {
	le := binary.LittleEndian
	raw[0] = f.Type
	raw[1] = f.Unknown1
	le.PutUint32(raw[2:], f.Length)
	le.PutUint16(raw[6:], f.Left)
	le.PutUint16(raw[8:], f.Top)
	le.PutUint16(raw[10:], f.Right)
	le.PutUint16(raw[12:], f.Bottom)
	raw[14] = f.Unknown14
	raw[15] = f.Flags
}

// TOC holds both tables of contents. Frames are stored flat: block b,
// slot f lives at index b*framesPerBlock+f.
type TOC struct {
	Blocks []BlockRecord
	Frames []FrameRecord
}

// MaxFrameLength returns the largest payload length in the frame
// table, used to size the shared frame load buffer once.
func (t *TOC) MaxFrameLength() int {
	max := 0
	for _, f := range t.Frames {
		if int(f.Length) > max {
			max = int(f.Length)
		}
	}
	return max
}
