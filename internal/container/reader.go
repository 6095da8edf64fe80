package container

import (
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// Reader opens a VMD stream: it loads the header and both ToC tables
// fully into memory before any frame body is touched, then serves
// frame payloads by seeking to their recorded offsets.
type Reader struct {
	r       io.ReadSeeker
	hdr     *Header
	toc     *TOC
	offsets []int64
}

// NewReader reads the header and table of contents from r.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	raw := make([]byte, format.HeaderSize)
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("container: seeking to header: %w", err)
	}
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", format.ErrTruncatedInput, err)
	}
	hdr, err := ParseHeader(raw)
	if err != nil {
		return nil, err
	}
	if err := hdr.Validate(); err != nil {
		return nil, fmt.Errorf("container: invalid header: %w", err)
	}

	toc, err := readTOC(r, hdr)
	if err != nil {
		return nil, err
	}
	return &Reader{r: r, hdr: hdr, toc: toc, offsets: frameOffsets(hdr, toc)}, nil
}

// frameOffsets resolves every frame's absolute offset: bodies within a
// block follow each other in frame-table order starting at the block's
// recorded offset.
func frameOffsets(hdr *Header, toc *TOC) []int64 {
	fpb := int(hdr.FramesPerBlock)
	offs := make([]int64, len(toc.Frames))
	for b := range toc.Blocks {
		pos := int64(toc.Blocks[b].Offset)
		for f := 0; f < fpb; f++ {
			i := b*fpb + f
			if i >= len(toc.Frames) {
				break
			}
			offs[i] = pos
			pos += int64(toc.Frames[i].Length)
		}
	}
	return offs
}

func readTOC(r io.ReadSeeker, hdr *Header) (*TOC, error) {
	if _, err := r.Seek(int64(hdr.TOCOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("container: seeking to table of contents: %w", err)
	}

	nBlocks := int(hdr.BlockCount)
	nFrames := nBlocks * int(hdr.FramesPerBlock)
	toc := &TOC{
		Blocks: make([]BlockRecord, nBlocks),
		Frames: make([]FrameRecord, nFrames),
	}

	buf := make([]byte, format.FrameRecordSize)
	for i := 0; i < nBlocks; i++ {
		if _, err := io.ReadFull(r, buf[:format.BlockRecordSize]); err != nil {
			return nil, fmt.Errorf("%w: block record %d: %v", format.ErrTruncatedInput, i, err)
		}
		toc.Blocks[i] = parseBlockRecord(buf)
	}
	for i := 0; i < nFrames; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("%w: frame record %d: %v", format.ErrTruncatedInput, i, err)
		}
		toc.Frames[i] = parseFrameRecord(buf)
	}
	return toc, nil
}

// Header returns the parsed file header.
func (r *Reader) Header() *Header { return r.hdr }

// TOC returns the parsed tables.
func (r *Reader) TOC() *TOC { return r.toc }

// BlockOffset returns the file offset where block b's frame bodies
// start. Frame bodies within a block are laid out back to back in
// frame-table order.
func (r *Reader) BlockOffset(b int) (int64, error) {
	if b < 0 || b >= len(r.toc.Blocks) {
		return 0, fmt.Errorf("%w: block %d of %d", format.ErrInvalidData, b, len(r.toc.Blocks))
	}
	return int64(r.toc.Blocks[b].Offset), nil
}

// FramePayload reads frame i's body into buf and returns the filled
// prefix. A zero-length frame returns an empty slice without touching
// the stream.
func (r *Reader) FramePayload(i int, buf []byte) ([]byte, error) {
	if i < 0 || i >= len(r.toc.Frames) {
		return nil, fmt.Errorf("%w: frame %d of %d", format.ErrInvalidData, i, len(r.toc.Frames))
	}
	n := int(r.toc.Frames[i].Length)
	if n == 0 {
		return buf[:0], nil
	}
	return r.ReadPayloadAt(r.offsets[i], n, buf)
}

// ReadPayloadAt reads length bytes at the given absolute offset into
// buf, which must be at least length long. Reading past end of file is
// truncated input, never a partial result.
func (r *Reader) ReadPayloadAt(offset int64, length int, buf []byte) ([]byte, error) {
	if length < 0 || length > len(buf) {
		return nil, fmt.Errorf("%w: payload of %d bytes exceeds %d-byte load buffer", format.ErrInvalidData, length, len(buf))
	}
	if _, err := r.r.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("container: seeking to frame body: %w", err)
	}
	if _, err := io.ReadFull(r.r, buf[:length]); err != nil {
		return nil, fmt.Errorf("%w: frame body of %d bytes at offset %d: %v", format.ErrTruncatedInput, length, offset, err)
	}
	return buf[:length], nil
}
