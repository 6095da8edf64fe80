package vmd

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

type overlayFunc func(frame int) []Overlay

func (f overlayFunc) RenderAt(frame int) []Overlay { return f(frame) }

func buildStream(t *testing.T, w, h int, frames []*image.RGBA) []byte {
	t.Helper()
	out := &memFile{}
	enc, err := NewEncoder(out, DefaultEncoderOptions(w, h))
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range frames {
		if err := enc.Encode(f); err != nil {
			t.Fatalf("Encode %d: %v", i, err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	return out.data
}

func TestRemuxBurnsOverlay(t *testing.T) {
	const w, h = 24, 16
	bg := rgb(0x00, 0x00, 0xF0)
	frames := []*image.RGBA{solidFrame(w, h, bg), solidFrame(w, h, bg), solidFrame(w, h, bg)}
	fillRect(frames[1], 2, 2, 5, 5, rgb(0xF0, 0x00, 0x00))
	fillRect(frames[2], 2, 2, 5, 5, rgb(0xF0, 0x00, 0x00))
	stream := buildStream(t, w, h, frames)

	store := &memFile{}
	if err := ExtractFrames(bytes.NewReader(stream), store); err != nil {
		t.Fatalf("ExtractFrames: %v", err)
	}
	ir, err := NewIntermediateReader(bytes.NewReader(store.data))
	if err != nil {
		t.Fatal(err)
	}
	defer ir.Close()

	cov := bytes.Repeat([]byte{0xFF}, 3*3)
	red := rgb(0xF0, 0x00, 0x00)
	src := overlayFunc(func(frame int) []Overlay {
		if frame < 1 {
			return nil
		}
		return []Overlay{{Coverage: cov, Stride: 3, Rect: image.Rect(10, 10, 13, 13), Fill: red}}
	})

	out := &memFile{}
	if err := Remux(bytes.NewReader(stream), ir, src, out); err != nil {
		t.Fatalf("Remux: %v", err)
	}

	dec, err := NewDecoder(bytes.NewReader(out.data))
	if err != nil {
		t.Fatalf("NewDecoder(remuxed): %v", err)
	}
	for i := 0; i < len(frames); i++ {
		img, err := dec.DecodeNext()
		if err != nil {
			t.Fatalf("DecodeNext %d: %v", i, err)
		}
		gotBox := img.At(11, 11)
		r, g, b, _ := gotBox.RGBA()
		isRed := r>>8 > 0xE0 && g>>8 < 0x20 && b>>8 < 0x20
		if i == 0 && isRed {
			t.Error("frame 0 stamped, overlay starts at frame 1")
		}
		if i > 0 && !isRed {
			t.Errorf("frame %d box pixel = %v, want red", i, gotBox)
		}
		// Pixels outside the overlay survive untouched.
		wr, wg, wb, _ := frames[i].At(3, 3).RGBA()
		gr, gg, gb, _ := img.At(3, 3).RGBA()
		wantQ := quantize(rgb(uint8(wr>>8), uint8(wg>>8), uint8(wb>>8)))
		gotQ := rgb(uint8(gr>>8), uint8(gg>>8), uint8(gb>>8))
		if wantQ != gotQ {
			t.Errorf("frame %d pixel (3,3) = %v, want %v", i, gotQ, wantQ)
		}
	}
}

func TestRemuxWithoutOverlaysReproducesStream(t *testing.T) {
	const w, h = 16, 16
	frames := []*image.RGBA{solidFrame(w, h, rgb(0x20, 0x40, 0x80)), solidFrame(w, h, rgb(0x20, 0x40, 0x80))}
	fillRect(frames[1], 0, 0, 7, 7, rgb(0x80, 0x40, 0x20))
	stream := buildStream(t, w, h, frames)

	store := &memFile{}
	if err := ExtractFrames(bytes.NewReader(stream), store); err != nil {
		t.Fatal(err)
	}
	ir, err := NewIntermediateReader(bytes.NewReader(store.data))
	if err != nil {
		t.Fatal(err)
	}
	defer ir.Close()

	out := &memFile{}
	if err := Remux(bytes.NewReader(stream), ir, nil, out); err != nil {
		t.Fatalf("Remux: %v", err)
	}

	dec, err := NewDecoder(bytes.NewReader(out.data))
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range frames {
		got, err := dec.DecodeNext()
		if err != nil {
			t.Fatalf("DecodeNext %d: %v", i, err)
		}
		sameQuantized(t, got, want)
	}
}

func TestRemuxStoreTooShort(t *testing.T) {
	const w, h = 8, 8
	frames := []*image.RGBA{solidFrame(w, h, rgb(0, 0, 0xF0)), solidFrame(w, h, rgb(0xF0, 0, 0))}
	stream := buildStream(t, w, h, frames)

	store := &memFile{}
	iw, err := NewIntermediateWriter(store)
	if err != nil {
		t.Fatal(err)
	}
	var pal [format.PaletteSize]byte
	if err := iw.WriteFrame(pal, image.Rect(0, 0, w, h), make([]byte, w*h)); err != nil {
		t.Fatal(err)
	}
	if err := iw.Close(); err != nil {
		t.Fatal(err)
	}
	ir, err := NewIntermediateReader(bytes.NewReader(store.data))
	if err != nil {
		t.Fatal(err)
	}
	defer ir.Close()

	if err := Remux(bytes.NewReader(stream), ir, nil, &memFile{}); !errors.Is(err, ErrInvalidData) {
		t.Errorf("Remux = %v, want invalid data", err)
	}
}

func TestRemuxWindowOutsideFrame(t *testing.T) {
	const w, h = 8, 8
	stream := buildStream(t, w, h, []*image.RGBA{solidFrame(w, h, rgb(0, 0, 0xF0))})

	store := &memFile{}
	iw, err := NewIntermediateWriter(store)
	if err != nil {
		t.Fatal(err)
	}
	var pal [format.PaletteSize]byte
	// Window wider than the stream.
	if err := iw.WriteFrame(pal, image.Rect(0, 0, w+4, h), make([]byte, (w+4)*h)); err != nil {
		t.Fatal(err)
	}
	if err := iw.Close(); err != nil {
		t.Fatal(err)
	}
	ir, err := NewIntermediateReader(bytes.NewReader(store.data))
	if err != nil {
		t.Fatal(err)
	}
	defer ir.Close()

	if err := Remux(bytes.NewReader(stream), ir, nil, &memFile{}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Remux = %v, want dimension mismatch", err)
	}
}
