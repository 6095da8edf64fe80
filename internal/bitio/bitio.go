// Package bitio provides bit-level and byte-level cursors over VMD
// frame payloads.
package bitio

import (
	"fmt"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// MaxWidth is the widest single read or write the bit cursors support.
// The reader keeps at least 24 valid bits buffered in a 32-bit
// accumulator, so wider requests could lose bits.
const MaxWidth = 23

// Reader reads MSB-first bit fields from a byte slice.
//
// The accumulator is refilled a whole byte at a time; once the input is
// exhausted it refills with zero bits and keeps going. Callers must
// bound total consumption by a known output length, not by sentinel
// values in the stream.
type Reader struct {
	data  []byte
	pos   int    // next byte to load
	acc   uint32 // high-justified valid bits
	avail uint   // number of valid bits in acc
}

// NewReader creates a bit reader over data.
func NewReader(data []byte) *Reader {
	r := &Reader{data: data}
	r.fill()
	return r
}

func (r *Reader) fill() {
	for r.avail <= 24 {
		var b byte
		if r.pos < len(r.data) {
			b = r.data[r.pos]
			r.pos++
		}
		r.acc |= uint32(b) << (24 - r.avail)
		r.avail += 8
	}
}

// Peek returns the next count bits without consuming them.
func (r *Reader) Peek(count uint) uint32 {
	return r.acc >> (32 - count)
}

// Read returns the next count bits (1..23), consuming them.
func (r *Reader) Read(count uint) uint32 {
	v := r.acc >> (32 - count)
	r.acc <<= count
	r.avail -= count
	r.fill()
	return v
}

// Exhausted reports whether every input byte has been loaded into the
// accumulator. Zero-fill bits may still be pending.
func (r *Reader) Exhausted() bool {
	return r.pos >= len(r.data)
}

// Writer accumulates MSB-first bit fields into a byte buffer.
type Writer struct {
	buf   []byte
	acc   uint32
	avail uint // bits accumulated in acc, high-justified
}

// NewWriter creates a bit writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Write appends the low count bits of v (1..23), MSB-first.
func (w *Writer) Write(v uint32, count uint) {
	v &= 1<<count - 1
	w.acc |= (v << (32 - count)) >> w.avail
	w.avail += count
	for w.avail >= 8 {
		w.buf = append(w.buf, byte(w.acc>>24))
		w.acc <<= 8
		w.avail -= 8
	}
}

// Flush pads any partial byte with zero bits in the low positions.
func (w *Writer) Flush() {
	if w.avail > 0 {
		w.buf = append(w.buf, byte(w.acc>>24))
		w.acc = 0
		w.avail = 0
	}
}

// Bytes returns the written stream. Flush first.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// ByteCursor is a bounds-checked byte-level cursor. Every read checks
// the remaining length and fails with format.ErrTruncatedInput instead
// of reading past the payload.
type ByteCursor struct {
	data []byte
	pos  int
}

// NewByteCursor creates a cursor over data.
func NewByteCursor(data []byte) *ByteCursor {
	return &ByteCursor{data: data}
}

// Remaining returns the number of unread bytes.
func (c *ByteCursor) Remaining() int {
	return len(c.data) - c.pos
}

// Pos returns the number of consumed bytes.
func (c *ByteCursor) Pos() int {
	return c.pos
}

// Tail returns the unread portion of the buffer without consuming it.
func (c *ByteCursor) Tail() []byte {
	return c.data[c.pos:]
}

// ReadByte consumes one byte.
func (c *ByteCursor) ReadByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, fmt.Errorf("%w: need 1 byte, have 0", format.ErrTruncatedInput)
	}
	b := c.data[c.pos]
	c.pos++
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (c *ByteCursor) PeekByte() (byte, error) {
	if c.pos >= len(c.data) {
		return 0, fmt.Errorf("%w: need 1 byte, have 0", format.ErrTruncatedInput)
	}
	return c.data[c.pos], nil
}

// ReadBytes consumes n bytes and returns them as a subslice of the
// underlying buffer.
func (c *ByteCursor) ReadBytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", format.ErrTruncatedInput, n, c.Remaining())
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip consumes n bytes.
func (c *ByteCursor) Skip(n int) error {
	_, err := c.ReadBytes(n)
	return err
}

// ReadUint16 consumes a little-endian uint16.
func (c *ByteCursor) ReadUint16() (uint16, error) {
	b, err := c.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// ReadUint32 consumes a little-endian uint32.
func (c *ByteCursor) ReadUint32() (uint32, error) {
	b, err := c.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// PeekUint32 returns the next little-endian uint32 without consuming it.
func (c *ByteCursor) PeekUint32() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", format.ErrTruncatedInput, c.Remaining())
	}
	b := c.data[c.pos:]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}
