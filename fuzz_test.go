package vmd

import (
	"bytes"
	"testing"

	"github.com/mrjoshuak/go-vmd/internal/lz"
	"github.com/mrjoshuak/go-vmd/internal/rle"
)

// FuzzDecodeStream tests the full decoder with arbitrary input data.
// Run with: go test -fuzz=FuzzDecodeStream -fuzztime=60s
func FuzzDecodeStream(f *testing.F) {
	// Seed with a tiny valid stream.
	out := &memFile{}
	if enc, err := NewEncoder(out, DefaultEncoderOptions(4, 4)); err == nil {
		_ = enc.Encode(solidFrame(4, 4, rgb(0x40, 0x80, 0xC0)))
		_ = enc.Close()
		f.Add(out.data)
	}
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add(bytes.Repeat([]byte{0xFF}, 0x340))

	f.Fuzz(func(t *testing.T, data []byte) {
		// The decoder must never panic, regardless of input.
		dec, err := NewDecoder(bytes.NewReader(data))
		if err != nil {
			return
		}
		for i := 0; i < 16; i++ {
			if _, err := dec.DecodeNext(); err != nil {
				break
			}
		}
	})
}

// FuzzLZUnpack tests the LZ unpacker with arbitrary input.
func FuzzLZUnpack(f *testing.F) {
	f.Add([]byte{8, 0, 0, 0, 0xFF, 1, 2, 3, 4, 5, 6, 7, 8})
	f.Add([]byte{0x34, 0x12, 0x78, 0x56, 2, 0, 0, 0, 0x03, 'a', 'b'})
	f.Add([]byte{})
	f.Add([]byte{0x00})

	f.Fuzz(func(t *testing.T, data []byte) {
		dst := make([]byte, 4096)
		_, _ = lz.Unpack(data, dst)
	})
}

// FuzzDecodeMethods tests the wire pixel decoders with arbitrary
// input.
func FuzzDecodeMethods(f *testing.F) {
	f.Add([]byte{0x83, 1, 2, 3, 0x84}, 4, 2)
	f.Add([]byte{0xFF, 0x02, 0x03, 0x07, 0x00}, 3, 1)
	f.Add([]byte{}, 1, 1)

	f.Fuzz(func(t *testing.T, data []byte, w, h int) {
		if w < 1 || h < 1 || w > 64 || h > 64 {
			return
		}
		dst := make([]byte, w*h)
		prev := make([]byte, w*h)
		_ = rle.DecodeMethod1(dst, prev, w, w, h, data)
		_ = rle.DecodeMethod2(dst, w, w, h, data)
		_ = rle.DecodeMethod3(dst, prev, w, w, h, data)
		_, _ = rle.DecompressRuns(data, w*h)
	})
}

// FuzzIntermediateReader tests the frame store parser with arbitrary
// input.
func FuzzIntermediateReader(f *testing.F) {
	store := &memFile{}
	if iw, err := NewIntermediateWriter(store); err == nil {
		_ = iw.Close()
		f.Add(store.data)
	}
	f.Add([]byte{})
	f.Add(bytes.Repeat([]byte{0x41}, 40))

	f.Fuzz(func(t *testing.T, data []byte) {
		ir, err := NewIntermediateReader(bytes.NewReader(data))
		if err != nil {
			return
		}
		defer ir.Close()
		for {
			if _, err := ir.Next(); err != nil {
				break
			}
		}
	})
}
