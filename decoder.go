package vmd

import (
	"fmt"
	"image"
	"io"

	"github.com/mrjoshuak/go-vmd/internal/container"
	"github.com/mrjoshuak/go-vmd/internal/format"
	"github.com/mrjoshuak/go-vmd/internal/lz"
	"github.com/mrjoshuak/go-vmd/internal/raster"
	"github.com/mrjoshuak/go-vmd/internal/rle"
)

// Decoder replays a VMD stream frame by frame. Frames decode in
// stream order only; each video frame patches its change window onto
// the previous frame. A Decoder is not safe for concurrent use.
type Decoder struct {
	cr   *container.Reader
	pair *raster.Pair
	pal  *Palette

	load   []byte // frame bodies, sized once from the ToC
	unpack []byte // LZ scratch, sized from the header

	next       int
	xOff, yOff int
	lastWin    image.Rectangle
}

// NewDecoder reads the header and table of contents and prepares the
// frame buffers. The reader must stay open for the Decoder's
// lifetime.
func NewDecoder(r io.ReadSeeker) (*Decoder, error) {
	cr, err := container.NewReader(r)
	if err != nil {
		return nil, err
	}
	hdr := cr.Header()

	pal := NewPalette()
	if err := pal.Replace(hdr.Palette[:]); err != nil {
		return nil, err
	}

	loadSize := int(hdr.LoadBufSize)
	if m := cr.TOC().MaxFrameLength(); m > loadSize {
		loadSize = m
	}
	d := &Decoder{
		cr:   cr,
		pair: raster.NewPair(int(hdr.Width), int(hdr.Height)),
		pal:  pal,
		load: make([]byte, loadSize),
	}
	if hdr.DecodeBufSize > 0 {
		d.unpack = make([]byte, hdr.DecodeBufSize)
	}
	return d, nil
}

// Info describes the open stream.
func (d *Decoder) Info() StreamInfo {
	h := d.cr.Header()
	return StreamInfo{
		Width:          int(h.Width),
		Height:         int(h.Height),
		BlockCount:     int(h.BlockCount),
		FramesPerBlock: int(h.FramesPerBlock),
		AudioRate:      int(h.AudioRate),
	}
}

// Palette returns the stream's live palette. It changes as palette
// chunks are decoded.
func (d *Decoder) Palette() *Palette { return d.pal }

// LastWindow returns the change window of the most recent video
// frame in canvas coordinates, empty for an unchanged frame.
func (d *Decoder) LastWindow() image.Rectangle { return d.lastWin }

// DecodeNext returns the next video frame, skipping audio frames,
// and io.EOF when the stream is exhausted. The returned image owns
// its pixels. The stream should not be continued after an error.
func (d *Decoder) DecodeNext() (*image.Paletted, error) {
	frames := d.cr.TOC().Frames
	for d.next < len(frames) {
		i := d.next
		d.next++
		rec := frames[i]
		if rec.Type != format.FrameVideo {
			continue
		}
		payload, err := d.cr.FramePayload(i, d.load)
		if err != nil {
			return nil, err
		}
		img, err := d.decodeVideo(rec, payload)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		return img, nil
	}
	return nil, io.EOF
}

func (d *Decoder) decodeVideo(rec container.FrameRecord, payload []byte) (*image.Paletted, error) {
	if len(payload) == 0 {
		// Nothing changes this frame.
		d.pair.CarryPrev()
		d.pair.Advance()
		d.lastWin = image.Rectangle{}
		return d.frameImage(), nil
	}
	if rec.HasPalette() {
		if len(payload) < format.PaletteChunkSize {
			return nil, fmt.Errorf("%w: palette chunk in %d-byte frame", format.ErrTruncatedInput, len(payload))
		}
		if err := d.pal.Replace(payload[2:format.PaletteChunkSize]); err != nil {
			return nil, err
		}
		payload = payload[format.PaletteChunkSize:]
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: no method byte after palette chunk", format.ErrInvalidData)
	}

	method := payload[0]
	data := payload[1:]
	if method&format.MethodLZPacked != 0 {
		if d.unpack == nil {
			return nil, fmt.Errorf("%w: compressed frame without a decode buffer", format.ErrInvalidData)
		}
		n, err := lz.Unpack(data, d.unpack)
		if err != nil {
			return nil, err
		}
		data = d.unpack[:n]
		method &^= format.MethodLZPacked
	}

	w := d.pair.Stride()
	h := len(d.pair.Cur()) / w
	win := rec.Window()

	// Some streams record windows relative to a non-zero screen
	// origin. A full-size frame with a shifted origin fixes the
	// reference offset for the rest of the stream.
	if win.Width() == w && win.Height() == h && (win.Left != 0 || win.Top != 0) {
		d.xOff, d.yOff = win.Left, win.Top
	}
	win.Left -= d.xOff
	win.Right -= d.xOff
	win.Top -= d.yOff
	win.Bottom -= d.yOff

	if win.Left != 0 || win.Top != 0 || win.Width() < w || win.Height() < h {
		d.pair.CarryPrev()
	}
	dst, err := d.pair.Window(win)
	if err != nil {
		return nil, err
	}
	// Nil until a frame has been finalized; an interframe copy record
	// before then is rejected by the method decoders.
	prev := d.pair.PrevWindow(win)

	ww, wh := win.Width(), win.Height()
	switch method {
	case format.MethodRLE:
		err = rle.DecodeMethod1(dst, prev, w, ww, wh, data)
	case format.MethodRaw:
		err = rle.DecodeMethod2(dst, w, ww, wh, data)
	case format.MethodRLENest:
		err = rle.DecodeMethod3(dst, prev, w, ww, wh, data)
	default:
		err = fmt.Errorf("%w: method %d", format.ErrUnsupportedMethod, method)
	}
	if err != nil {
		return nil, err
	}

	d.pair.Advance()
	d.lastWin = image.Rect(win.Left, win.Top, win.Right+1, win.Bottom+1)
	return d.frameImage(), nil
}

// frameImage copies the just-finalized plane into a standalone image.
func (d *Decoder) frameImage() *image.Paletted {
	w := d.pair.Stride()
	src := d.pair.Prev()
	img := image.NewPaletted(image.Rect(0, 0, w, len(src)/w), d.pal.Colors())
	copy(img.Pix, src)
	return img
}
