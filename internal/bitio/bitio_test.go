package bitio

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

func TestReader_Read(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		widths []uint
		want   []uint32
	}{
		{
			name:   "single byte bit by bit",
			data:   []byte{0xAA},
			widths: []uint{1, 1, 1, 1, 1, 1, 1, 1},
			want:   []uint32{1, 0, 1, 0, 1, 0, 1, 0},
		},
		{
			name:   "nibbles MSB first",
			data:   []byte{0x12, 0x34},
			widths: []uint{4, 4, 4, 4},
			want:   []uint32{1, 2, 3, 4},
		},
		{
			name:   "unaligned widths",
			data:   []byte{0b11010110, 0b01011100},
			widths: []uint{3, 5, 2, 6},
			want:   []uint32{0b110, 0b10110, 0b01, 0b011100},
		},
		{
			name:   "wide field across bytes",
			data:   []byte{0xFF, 0x00, 0xFF},
			widths: []uint{20},
			want:   []uint32{0xFF00F},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.data)
			for i, n := range tt.widths {
				if got := r.Read(n); got != tt.want[i] {
					t.Errorf("Read(%d) #%d = %#x, want %#x", n, i, got, tt.want[i])
				}
			}
		})
	}
}

func TestReader_PeekDoesNotConsume(t *testing.T) {
	r := NewReader([]byte{0xC3})
	if got := r.Peek(4); got != 0xC {
		t.Fatalf("Peek(4) = %#x, want 0xC", got)
	}
	if got := r.Peek(4); got != 0xC {
		t.Fatalf("second Peek(4) = %#x, want 0xC", got)
	}
	if got := r.Read(8); got != 0xC3 {
		t.Fatalf("Read(8) after Peek = %#x, want 0xC3", got)
	}
}

func TestReader_ZeroFillAtEnd(t *testing.T) {
	// Past the end of input the reader keeps producing zero bits.
	r := NewReader([]byte{0x80})
	if got := r.Read(8); got != 0x80 {
		t.Fatalf("Read(8) = %#x, want 0x80", got)
	}
	for i := 0; i < 5; i++ {
		if got := r.Read(16); got != 0 {
			t.Fatalf("Read(16) beyond input = %#x, want 0", got)
		}
	}
	if !r.Exhausted() {
		t.Error("Exhausted() = false after input consumed")
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	fields := []struct {
		v uint32
		n uint
	}{
		{1, 1}, {0, 1}, {5, 3}, {0x1FF, 9}, {0, 2}, {0x7FFFF, 23}, {3, 2},
	}

	w := NewWriter()
	for _, f := range fields {
		w.Write(f.v, f.n)
	}
	w.Flush()

	r := NewReader(w.Bytes())
	for i, f := range fields {
		if got := r.Read(f.n); got != f.v {
			t.Errorf("field %d: Read(%d) = %#x, want %#x", i, f.n, got, f.v)
		}
	}
}

func TestWriter_FlushPadsLowBits(t *testing.T) {
	w := NewWriter()
	w.Write(0b101, 3)
	w.Flush()
	if !bytes.Equal(w.Bytes(), []byte{0b10100000}) {
		t.Errorf("Bytes() = %08b, want 10100000", w.Bytes())
	}
}

func TestByteCursor(t *testing.T) {
	c := NewByteCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07})

	b, err := c.ReadByte()
	if err != nil || b != 0x01 {
		t.Fatalf("ReadByte() = %#x, %v", b, err)
	}
	v16, err := c.ReadUint16()
	if err != nil || v16 != 0x0302 {
		t.Fatalf("ReadUint16() = %#x, %v, want 0x0302", v16, err)
	}
	v32, err := c.ReadUint32()
	if err != nil || v32 != 0x07060504 {
		t.Fatalf("ReadUint32() = %#x, %v, want 0x07060504", v32, err)
	}
	if c.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", c.Remaining())
	}
}

func TestByteCursor_Truncated(t *testing.T) {
	c := NewByteCursor([]byte{0x01, 0x02})
	if _, err := c.ReadUint32(); !errors.Is(err, format.ErrTruncatedInput) {
		t.Errorf("ReadUint32() error = %v, want ErrTruncatedInput", err)
	}
	// The failed read must not consume anything.
	if c.Remaining() != 2 {
		t.Errorf("Remaining() = %d, want 2", c.Remaining())
	}
	if err := c.Skip(3); !errors.Is(err, format.ErrTruncatedInput) {
		t.Errorf("Skip(3) error = %v, want ErrTruncatedInput", err)
	}
}

func TestByteCursor_PeekUint32(t *testing.T) {
	c := NewByteCursor([]byte{0x34, 0x12, 0x78, 0x56})
	v, err := c.PeekUint32()
	if err != nil || v != 0x56781234 {
		t.Fatalf("PeekUint32() = %#x, %v, want 0x56781234", v, err)
	}
	if c.Pos() != 0 {
		t.Errorf("Pos() = %d after peek, want 0", c.Pos())
	}
}
