package vmd

import (
	"bytes"
	"errors"
	"image"
	"testing"

	"github.com/mrjoshuak/go-vmd/internal/container"
	"github.com/mrjoshuak/go-vmd/internal/format"
)

type rawFrame struct {
	rec     container.FrameRecord
	payload []byte
}

// buildRawStream assembles a stream straight from frame records, one
// frame per block.
func buildRawStream(t *testing.T, w, h, decodeBuf int, frames []rawFrame) []byte {
	t.Helper()
	hdr := &container.Header{
		Width:          uint16(w),
		Height:         uint16(h),
		FramesPerBlock: 1,
		DataStart:      uint32(format.HeaderSize),
		DecodeBufSize:  uint32(decodeBuf),
	}
	out := &memFile{}
	cw, err := container.NewWriter(out, hdr)
	if err != nil {
		t.Fatal(err)
	}
	for i, f := range frames {
		cw.BeginBlock(0)
		if err := cw.WriteFrame(f.rec, f.payload); err != nil {
			t.Fatalf("WriteFrame %d: %v", i, err)
		}
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}
	return out.data
}

func videoRec(l, t, r, b int) container.FrameRecord {
	return container.FrameRecord{
		Type: format.FrameVideo,
		Left: uint16(l), Top: uint16(t), Right: uint16(r), Bottom: uint16(b),
	}
}

func TestDecodeLZPackedFrame(t *testing.T) {
	const w, h = 4, 2
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	// Declared size 8, then the 0xFF tag fast path carries all eight
	// pixels raw.
	lzBody := append([]byte{8, 0, 0, 0, 0xFF}, want...)
	payload := append([]byte{format.MethodRaw | format.MethodLZPacked}, lzBody...)

	data := buildRawStream(t, w, h, 64, []rawFrame{{videoRec(0, 0, w-1, h-1), payload}})
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	img, err := dec.DecodeNext()
	if err != nil {
		t.Fatalf("DecodeNext: %v", err)
	}
	if !bytes.Equal(img.Pix, want) {
		t.Errorf("Pix = %v, want %v", img.Pix, want)
	}
}

func TestDecodeLZWithoutDecodeBuffer(t *testing.T) {
	const w, h = 4, 2
	lzBody := []byte{8, 0, 0, 0, 0xFF, 1, 2, 3, 4, 5, 6, 7, 8}
	payload := append([]byte{format.MethodRaw | format.MethodLZPacked}, lzBody...)

	data := buildRawStream(t, w, h, 0, []rawFrame{{videoRec(0, 0, w-1, h-1), payload}})
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.DecodeNext(); !errors.Is(err, ErrInvalidData) {
		t.Errorf("got %v, want invalid data", err)
	}
}

func TestDecodeOriginOffsetCorrection(t *testing.T) {
	const w, h = 8, 4

	full := append([]byte{format.MethodRaw}, bytes.Repeat([]byte{1}, w*h)...)
	patch := append([]byte{format.MethodRaw}, []byte{2, 2, 2, 2}...)
	frames := []rawFrame{
		// Full-size frame recorded at screen origin (100, 50).
		{videoRec(100, 50, 100+w-1, 50+h-1), full},
		// A 2x2 patch at screen (102, 51), canvas (2, 1).
		{videoRec(102, 51, 103, 52), patch},
	}

	data := buildRawStream(t, w, h, 0, frames)
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.DecodeNext(); err != nil {
		t.Fatalf("frame 0: %v", err)
	}
	img, err := dec.DecodeNext()
	if err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if got := dec.LastWindow(); got != image.Rect(2, 1, 4, 3) {
		t.Errorf("LastWindow = %v, want (2,1)-(4,3)", got)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := byte(1)
			if x >= 2 && x < 4 && y >= 1 && y < 3 {
				want = 2
			}
			if img.Pix[y*w+x] != want {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, img.Pix[y*w+x], want)
			}
		}
	}
}

func TestDecodeFirstFrameInterframeCopy(t *testing.T) {
	// A copy record cannot refer to pixels before any frame has been
	// decoded.
	const w, h = 4, 1
	payloads := map[string][]byte{
		"method 1": {format.MethodRLE, 0x03},
		"method 3": {format.MethodRLENest, 0x03},
	}
	for name, payload := range payloads {
		data := buildRawStream(t, w, h, 0, []rawFrame{{videoRec(0, 0, w-1, h-1), payload}})
		dec, err := NewDecoder(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := dec.DecodeNext(); !errors.Is(err, ErrInvalidData) {
			t.Errorf("%s: got %v, want invalid data", name, err)
		}
	}
}

func TestDecodePaletteChunkWithoutMethodByte(t *testing.T) {
	const w, h = 4, 2
	rec := videoRec(0, 0, w-1, h-1)
	rec.Flags |= format.FlagPalette
	data := buildRawStream(t, w, h, 0, []rawFrame{{rec, make([]byte, format.PaletteChunkSize)}})
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.DecodeNext(); !errors.Is(err, ErrInvalidData) {
		t.Errorf("got %v, want invalid data", err)
	}
}

func TestDecodeUnsupportedMethod(t *testing.T) {
	const w, h = 4, 2
	payload := append([]byte{5}, bytes.Repeat([]byte{0}, w*h)...)
	data := buildRawStream(t, w, h, 0, []rawFrame{{videoRec(0, 0, w-1, h-1), payload}})
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.DecodeNext(); !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("got %v, want unsupported method", err)
	}
}

func TestDecodeTruncatedPaletteChunk(t *testing.T) {
	const w, h = 4, 2
	rec := videoRec(0, 0, w-1, h-1)
	rec.Flags |= format.FlagPalette
	data := buildRawStream(t, w, h, 0, []rawFrame{{rec, make([]byte, 10)}})
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.DecodeNext(); !errors.Is(err, ErrTruncatedInput) {
		t.Errorf("got %v, want truncated input", err)
	}
}

func TestDecodeWindowOutsideCanvas(t *testing.T) {
	const w, h = 4, 2
	payload := append([]byte{format.MethodRaw}, bytes.Repeat([]byte{0}, 6*2)...)
	data := buildRawStream(t, w, h, 0, []rawFrame{{videoRec(0, 0, 5, 1), payload}})
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dec.DecodeNext(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("got %v, want dimension mismatch", err)
	}
}

func TestDecodeAudioFramesSkipped(t *testing.T) {
	const w, h = 4, 2
	audio := rawFrame{container.FrameRecord{Type: format.FrameAudio}, []byte{9, 9, 9, 9}}
	video := rawFrame{videoRec(0, 0, w-1, h-1), append([]byte{format.MethodRaw}, bytes.Repeat([]byte{3}, w*h)...)}
	data := buildRawStream(t, w, h, 0, []rawFrame{audio, video})

	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	img, err := dec.DecodeNext()
	if err != nil {
		t.Fatalf("DecodeNext: %v", err)
	}
	if img.Pix[0] != 3 {
		t.Errorf("pixel 0 = %d, want 3", img.Pix[0])
	}
}
