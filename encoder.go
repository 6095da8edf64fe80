package vmd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/mrjoshuak/go-vmd/internal/container"
	"github.com/mrjoshuak/go-vmd/internal/format"
	"github.com/mrjoshuak/go-vmd/internal/raster"
	"github.com/mrjoshuak/go-vmd/internal/rle"
)

// EncoderOptions configures a stream being built.
type EncoderOptions struct {
	// Width and Height fix the frame size. Every frame must match.
	Width, Height int

	// ForceRaw disables delta compression and stores every change
	// window as raw pixels.
	ForceRaw bool

	// AudioRate is copied into the header for players; the encoder
	// itself writes no audio frames.
	AudioRate int
}

// DefaultEncoderOptions returns options for w x h frames.
func DefaultEncoderOptions(w, h int) *EncoderOptions {
	return &EncoderOptions{Width: w, Height: h}
}

// Encoder builds a VMD stream from images. Frames arrive through
// Encode in presentation order; Close finishes the table of contents.
type Encoder struct {
	cw   *container.Writer
	opts EncoderOptions
	pair *raster.Pair
	pal  *Palette

	frames int
	closed bool
}

// NewEncoder writes the placeholder header and prepares the frame
// buffers.
func NewEncoder(w io.WriteSeeker, opts *EncoderOptions) (*Encoder, error) {
	if opts == nil || opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: encoder needs positive frame dimensions", format.ErrDimensionMismatch)
	}
	hdr := &container.Header{
		HeaderSize:     uint16(format.HeaderSize - 2),
		Width:          uint16(opts.Width),
		Height:         uint16(opts.Height),
		FramesPerBlock: 1,
		DataStart:      uint32(format.HeaderSize),
		DecodeBufSize:  uint32(opts.Width * opts.Height),
		AudioRate:      uint16(opts.AudioRate),
	}
	cw, err := container.NewWriter(w, hdr)
	if err != nil {
		return nil, err
	}
	return &Encoder{
		cw:   cw,
		opts: *opts,
		pair: raster.NewPair(opts.Width, opts.Height),
		pal:  NewPalette(),
	}, nil
}

// Palette returns the encoder's color table. Entries accumulate as
// frames introduce new colors.
func (e *Encoder) Palette() *Palette { return e.pal }

// Encode appends one video frame. The image must be exactly the
// configured size. New colors allocate palette entries; when the
// table would overflow it is reset and the frame quantized again, and
// the frame carries a palette chunk.
func (e *Encoder) Encode(img image.Image) error {
	if e.closed {
		return fmt.Errorf("%w: encode after close", format.ErrInvalidData)
	}
	b := img.Bounds()
	if b.Dx() != e.opts.Width {
		return fmt.Errorf("%w: frame width %d, stream width %d", format.ErrDimensionMismatch, b.Dx(), e.opts.Width)
	}
	if b.Dy() != e.opts.Height {
		return fmt.Errorf("%w: frame height %d, stream height %d", format.ErrDimensionMismatch, b.Dy(), e.opts.Height)
	}

	before := e.pal.Len()
	remapped := false
	if err := e.quantize(img); err != nil {
		if !errors.Is(err, format.ErrPaletteOverflow) {
			return err
		}
		// Start a fresh table and quantize once more. A second
		// overflow means the single frame holds too many colors.
		e.pal.Reset()
		remapped = true
		if err := e.quantize(img); err != nil {
			return err
		}
	}
	palChanged := remapped || e.pal.Len() != before

	return e.writeFrame(palChanged, remapped)
}

// quantize fills the current plane with palette indices for img.
func (e *Encoder) quantize(img image.Image) error {
	dst := e.pair.Cur()
	b := img.Bounds()
	w := e.opts.Width
	for y := 0; y < e.opts.Height; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			c := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: 0xFF}
			idx, err := e.pal.IndexFor(c)
			if err != nil {
				return err
			}
			dst[y*w+x] = idx
		}
	}
	return nil
}

// writeFrame diffs the quantized frame against the previous one and
// streams the smallest encoding of the change window. A remapped
// palette invalidates every prior pixel, so the window is the whole
// frame and delta coding is off for this frame.
func (e *Encoder) writeFrame(palChanged, remapped bool) error {
	w, h := e.opts.Width, e.opts.Height
	cur := e.pair.Cur()

	var win raster.Rect
	changed := true
	if !e.pair.HavePrev() || remapped {
		win = raster.Full(w, h)
	} else {
		win, changed = raster.DiffBounds(cur, e.pair.Prev(), w, h)
	}

	rec := container.FrameRecord{Type: format.FrameVideo}
	var payload []byte
	if palChanged && e.frames > 0 {
		raw := e.pal.Raw()
		chunk := make([]byte, format.PaletteChunkSize)
		copy(chunk[2:], raw[:])
		payload = chunk
		rec.Flags |= format.FlagPalette
	}

	if changed {
		rec.Left = uint16(win.Left)
		rec.Top = uint16(win.Top)
		rec.Right = uint16(win.Right)
		rec.Bottom = uint16(win.Bottom)
		winCur := cur[win.Top*w+win.Left:]
		body := rle.EncodeMethod2(winCur, w, win.Width(), win.Height())
		method := byte(format.MethodRaw)
		if !e.opts.ForceRaw && e.pair.HavePrev() && !remapped {
			winPrev := e.pair.Prev()[win.Top*w+win.Left:]
			delta := rle.EncodeMethod1(winCur, winPrev, w, win.Width(), win.Height())
			if len(delta) < len(body) {
				body = delta
				method = format.MethodRLE
			}
		}
		payload = append(payload, method)
		payload = append(payload, body...)
	}

	e.cw.BeginBlock(0)
	if err := e.cw.WriteFrame(rec, payload); err != nil {
		return err
	}

	if e.frames == 0 {
		// The header palette serves until the first chunk.
		if err := e.cw.PatchPalette(e.pal.Raw()); err != nil {
			return err
		}
	}
	e.frames++
	e.pair.Advance()
	return nil
}

// Close writes the table of contents and patches the header. The
// Encoder cannot be used afterwards.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.cw.Close()
}
