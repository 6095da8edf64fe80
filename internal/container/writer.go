package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// Writer builds a VMD file in two passes over a seekable sink: a
// placeholder header goes out first, frame bodies stream behind it
// while their offsets are recorded, and Close appends both ToC tables
// and patches the block count and table offset back into the header.
type Writer struct {
	w      io.WriteSeeker
	hdr    *Header
	blocks []BlockRecord
	frames []FrameRecord
	pos    int64
	closed bool
}

// NewWriter writes a placeholder header and prepares for streaming
// frame bodies. The header's BlockCount and TOCOffset fields are
// ignored; Close fills them in.
func NewWriter(w io.WriteSeeker, hdr *Header) (*Writer, error) {
	if err := hdr.Validate(); err != nil {
		return nil, fmt.Errorf("container: invalid header: %w", err)
	}
	raw := hdr.Marshal()
	binary.LittleEndian.PutUint16(raw[format.OffBlockCount:], 0)
	binary.LittleEndian.PutUint32(raw[format.OffTOC:], 0)
	if _, err := w.Write(raw); err != nil {
		return nil, fmt.Errorf("container: writing header: %w", err)
	}
	return &Writer{w: w, hdr: hdr, pos: int64(len(raw))}, nil
}

// BeginBlock starts a new block at the current write position. Every
// frame written afterwards belongs to it until the next BeginBlock.
func (w *Writer) BeginBlock(unknown uint16) {
	w.blocks = append(w.blocks, BlockRecord{Unknown: unknown, Offset: uint32(w.pos)})
}

// WriteFrame appends a frame body and records its table entry. The
// record's Length is replaced with the payload size; a nil payload
// produces a zero-length record and writes nothing.
func (w *Writer) WriteFrame(rec FrameRecord, payload []byte) error {
	if len(w.blocks) == 0 {
		return fmt.Errorf("%w: frame written before any block", format.ErrInvalidData)
	}
	rec.Length = uint32(len(payload))
	if len(payload) > 0 {
		if _, err := w.w.Write(payload); err != nil {
			return fmt.Errorf("container: writing frame body: %w", err)
		}
		w.pos += int64(len(payload))
	}
	w.frames = append(w.frames, rec)
	return nil
}

// PatchPalette rewrites the header's initial palette in place. The
// remuxing path learns the first palette only after frames have
// started streaming.
func (w *Writer) PatchPalette(pal [format.PaletteSize]byte) error {
	if _, err := w.w.Seek(int64(format.OffPalette), io.SeekStart); err != nil {
		return fmt.Errorf("container: seeking to header palette: %w", err)
	}
	if _, err := w.w.Write(pal[:]); err != nil {
		return fmt.Errorf("container: patching header palette: %w", err)
	}
	if _, err := w.w.Seek(w.pos, io.SeekStart); err != nil {
		return fmt.Errorf("container: returning to frame stream: %w", err)
	}
	w.hdr.Palette = pal
	return nil
}

// Close appends the block and frame tables, then patches the block
// count, load buffer size, and table offset into the header. The
// frame count must be an exact multiple of the header's frames per
// block.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	fpb := int(w.hdr.FramesPerBlock)
	if len(w.frames) != len(w.blocks)*fpb {
		return fmt.Errorf("%w: %d frames do not fill %d blocks of %d",
			format.ErrInvalidData, len(w.frames), len(w.blocks), fpb)
	}

	tocOffset := w.pos
	buf := make([]byte, format.FrameRecordSize)
	for _, b := range w.blocks {
		b.marshal(buf)
		if _, err := w.w.Write(buf[:format.BlockRecordSize]); err != nil {
			return fmt.Errorf("container: writing block table: %w", err)
		}
	}
	for _, f := range w.frames {
		f.marshal(buf)
		if _, err := w.w.Write(buf); err != nil {
			return fmt.Errorf("container: writing frame table: %w", err)
		}
	}

	loadBuf := w.hdr.LoadBufSize
	toc := TOC{Frames: w.frames}
	if m := uint32(toc.MaxFrameLength()); m > loadBuf {
		loadBuf = m
	}

	patch := func(off int64, p []byte) error {
		if _, err := w.w.Seek(off, io.SeekStart); err != nil {
			return fmt.Errorf("container: seeking to header patch: %w", err)
		}
		if _, err := w.w.Write(p); err != nil {
			return fmt.Errorf("container: patching header: %w", err)
		}
		return nil
	}
	var u16 [2]byte
	var u32 [4]byte
	binary.LittleEndian.PutUint16(u16[:], uint16(len(w.blocks)))
	if err := patch(int64(format.OffBlockCount), u16[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], loadBuf)
	if err := patch(int64(format.OffLoadBufSize), u32[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(u32[:], uint32(tocOffset))
	if err := patch(int64(format.OffTOC), u32[:]); err != nil {
		return err
	}

	w.hdr.BlockCount = uint16(len(w.blocks))
	w.hdr.LoadBufSize = loadBuf
	w.hdr.TOCOffset = uint32(tocOffset)
	w.closed = true
	return nil
}
