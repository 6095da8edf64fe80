package vmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// intermediateMagic opens a frame store file, NUL terminator
// included.
var intermediateMagic = append([]byte("VMD Intermediate Frames"), 0)

// An intermediate frame store carries decoded frames between a decode
// pass and a remux pass: after the magic and a frame count patched on
// close, each frame holds the palette in effect, its change window,
// and the window's pixels compressed with zstd.

// IntermediateWriter appends decoded frames to a store.
type IntermediateWriter struct {
	w     io.WriteSeeker
	enc   *zstd.Encoder
	count uint32
}

// NewIntermediateWriter writes the magic and a zero frame count.
func NewIntermediateWriter(w io.WriteSeeker) (*IntermediateWriter, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		zstd.WithLowerEncoderMem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("intermediate: %w", err)
	}
	if _, err := w.Write(intermediateMagic); err != nil {
		return nil, fmt.Errorf("intermediate: writing magic: %w", err)
	}
	var zero [4]byte
	if _, err := w.Write(zero[:]); err != nil {
		return nil, fmt.Errorf("intermediate: writing frame count: %w", err)
	}
	return &IntermediateWriter{w: w, enc: enc}, nil
}

// WriteFrame appends one frame. pix holds the window's pixels packed
// row-major, win.Dx()*win.Dy() bytes; an empty window with no pixels
// records an unchanged frame.
func (iw *IntermediateWriter) WriteFrame(palette [format.PaletteSize]byte, win image.Rectangle, pix []byte) error {
	if len(pix) != win.Dx()*win.Dy() {
		return fmt.Errorf("%w: %d pixels for %v window", format.ErrDimensionMismatch, len(pix), win)
	}
	var packed []byte
	if len(pix) > 0 {
		packed = iw.enc.EncodeAll(pix, nil)
	}

	head := make([]byte, 0, format.PaletteSize+12)
	head = append(head, palette[:]...)
	var u16 [2]byte
	for _, v := range []int{win.Min.X, win.Min.Y, win.Max.X, win.Max.Y} {
		binary.LittleEndian.PutUint16(u16[:], uint16(v))
		head = append(head, u16[:]...)
	}
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(len(packed)))
	head = append(head, u32[:]...)

	if _, err := iw.w.Write(head); err != nil {
		return fmt.Errorf("intermediate: writing frame header: %w", err)
	}
	if _, err := iw.w.Write(packed); err != nil {
		return fmt.Errorf("intermediate: writing frame pixels: %w", err)
	}
	iw.count++
	return nil
}

// Close patches the frame count. The underlying writer stays open.
func (iw *IntermediateWriter) Close() error {
	defer iw.enc.Close()
	if _, err := iw.w.Seek(int64(len(intermediateMagic)), io.SeekStart); err != nil {
		return fmt.Errorf("intermediate: seeking to frame count: %w", err)
	}
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], iw.count)
	if _, err := iw.w.Write(u32[:]); err != nil {
		return fmt.Errorf("intermediate: patching frame count: %w", err)
	}
	return nil
}

// IntermediateFrame is one stored frame.
type IntermediateFrame struct {
	Palette [format.PaletteSize]byte
	Window  image.Rectangle
	Pix     []byte
}

// IntermediateReader streams frames back out of a store.
type IntermediateReader struct {
	r     io.Reader
	dec   *zstd.Decoder
	count int
	read  int
}

// NewIntermediateReader checks the magic and reads the frame count.
func NewIntermediateReader(r io.Reader) (*IntermediateReader, error) {
	head := make([]byte, len(intermediateMagic)+4)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("%w: frame store header: %v", format.ErrTruncatedInput, err)
	}
	if !bytes.Equal(head[:len(intermediateMagic)], intermediateMagic) {
		return nil, fmt.Errorf("%w: not a frame store", format.ErrInvalidData)
	}
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(true),
	)
	if err != nil {
		return nil, fmt.Errorf("intermediate: %w", err)
	}
	return &IntermediateReader{
		r:     r,
		dec:   dec,
		count: int(binary.LittleEndian.Uint32(head[len(intermediateMagic):])),
	}, nil
}

// Count returns the number of frames in the store.
func (ir *IntermediateReader) Count() int { return ir.count }

// Next returns the following frame, io.EOF after the last.
func (ir *IntermediateReader) Next() (*IntermediateFrame, error) {
	if ir.read >= ir.count {
		return nil, io.EOF
	}
	head := make([]byte, format.PaletteSize+12)
	if _, err := io.ReadFull(ir.r, head); err != nil {
		return nil, fmt.Errorf("%w: frame %d header: %v", format.ErrTruncatedInput, ir.read, err)
	}
	f := &IntermediateFrame{}
	copy(f.Palette[:], head)
	le := binary.LittleEndian
	f.Window = image.Rect(
		int(le.Uint16(head[format.PaletteSize:])),
		int(le.Uint16(head[format.PaletteSize+2:])),
		int(le.Uint16(head[format.PaletteSize+4:])),
		int(le.Uint16(head[format.PaletteSize+6:])),
	)
	packedLen := int(le.Uint32(head[format.PaletteSize+8:]))

	var pix []byte
	if packedLen > 0 {
		packed := make([]byte, packedLen)
		if _, err := io.ReadFull(ir.r, packed); err != nil {
			return nil, fmt.Errorf("%w: frame %d pixels: %v", format.ErrTruncatedInput, ir.read, err)
		}
		var err error
		pix, err = ir.dec.DecodeAll(packed, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: frame %d pixels: %v", format.ErrInvalidData, ir.read, err)
		}
	}
	if len(pix) != f.Window.Dx()*f.Window.Dy() {
		return nil, fmt.Errorf("%w: frame %d holds %d pixels for %v window",
			format.ErrInvalidData, ir.read, len(pix), f.Window)
	}
	f.Pix = pix
	ir.read++
	return f, nil
}

// Close releases the decompressor.
func (ir *IntermediateReader) Close() {
	ir.dec.Close()
}

// ExtractFrames decodes every video frame of a VMD stream into an
// intermediate store, recording each frame's change window and the
// palette in effect.
func ExtractFrames(in io.ReadSeeker, out io.WriteSeeker) error {
	dec, err := NewDecoder(in)
	if err != nil {
		return err
	}
	iw, err := NewIntermediateWriter(out)
	if err != nil {
		return err
	}
	w := dec.Info().Width
	for {
		img, err := dec.DecodeNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		win := dec.LastWindow()
		pix := make([]byte, win.Dx()*win.Dy())
		for y := 0; y < win.Dy(); y++ {
			row := (win.Min.Y+y)*w + win.Min.X
			copy(pix[y*win.Dx():(y+1)*win.Dx()], img.Pix[row:row+win.Dx()])
		}
		if err := iw.WriteFrame(dec.Palette().Raw(), win, pix); err != nil {
			return err
		}
	}
	return iw.Close()
}
