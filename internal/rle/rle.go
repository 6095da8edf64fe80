// Package rle implements the VMD frame pixel codecs: the three wire
// decode methods, their byte-level encoders, and the bit-level run
// codec used for packed-run payloads.
//
// All decode entry points take destination and previous-frame slices
// positioned at the change window's origin and advance by the full
// frame stride, so a partial window leaves surrounding pixels alone.
package rle

import (
	"fmt"

	"github.com/mrjoshuak/go-vmd/internal/bitio"
	"github.com/mrjoshuak/go-vmd/internal/format"
)

// DecodeMethod1 decodes the row-interleaved raw/copy method. Each row
// is a sequence of length bytes: high bit set means (b&0x7F)+1 raw
// pixels follow inline, high bit clear means b+1 pixels are copied from
// the same columns of the previous frame. Row offsets must land exactly
// on width.
func DecodeMethod1(dst, prev []byte, stride, width, height int, src []byte) error {
	gb := bitio.NewByteCursor(src)
	dp, pp := 0, 0
	for i := 0; i < height; i++ {
		ofs := 0
		for ofs < width {
			b, err := gb.ReadByte()
			if err != nil {
				return fmt.Errorf("rle: method 1 row %d: %w", i, err)
			}
			if b&0x80 != 0 {
				n := int(b&0x7F) + 1
				raw, err := gb.ReadBytes(n)
				if err != nil {
					return fmt.Errorf("rle: method 1 row %d: %w", i, err)
				}
				if ofs+n > width {
					return fmt.Errorf("%w: method 1 raw run past row end (%d > %d)", format.ErrInvalidData, ofs+n, width)
				}
				copy(dst[dp+ofs:], raw)
				ofs += n
			} else {
				n := int(b) + 1
				if ofs+n > width {
					return fmt.Errorf("%w: method 1 copy run past row end (%d > %d)", format.ErrInvalidData, ofs+n, width)
				}
				if prev == nil {
					return fmt.Errorf("%w: method 1 interframe copy with no previous frame", format.ErrInvalidData)
				}
				copy(dst[dp+ofs:dp+ofs+n], prev[pp+ofs:])
				ofs += n
			}
		}
		dp += stride
		pp += stride
	}
	return nil
}

// DecodeMethod2 decodes the uncompressed method: width raw bytes per
// row, height rows.
func DecodeMethod2(dst []byte, stride, width, height int, src []byte) error {
	gb := bitio.NewByteCursor(src)
	dp := 0
	for i := 0; i < height; i++ {
		row, err := gb.ReadBytes(width)
		if err != nil {
			return fmt.Errorf("rle: method 2 row %d: %w", i, err)
		}
		copy(dst[dp:], row)
		dp += stride
	}
	return nil
}

// DecodeMethod3 decodes method 1 extended with a 0xFF escape after a
// raw-run length byte: the raw run is itself run-length encoded with a
// secondary (count, value) scheme that must produce exactly the outer
// run's pixel count.
func DecodeMethod3(dst, prev []byte, stride, width, height int, src []byte) error {
	gb := bitio.NewByteCursor(src)
	dp, pp := 0, 0
	for i := 0; i < height; i++ {
		ofs := 0
		for ofs < width {
			b, err := gb.ReadByte()
			if err != nil {
				return fmt.Errorf("rle: method 3 row %d: %w", i, err)
			}
			if b&0x80 != 0 {
				n := int(b&0x7F) + 1
				esc, err := gb.PeekByte()
				if err != nil {
					return fmt.Errorf("rle: method 3 row %d: %w", i, err)
				}
				if esc == 0xFF {
					gb.Skip(1)
					if ofs+n > width {
						return fmt.Errorf("%w: method 3 nested run past row end (%d > %d)", format.ErrInvalidData, ofs+n, width)
					}
					if err := decodeNested(gb, dst[dp+ofs:dp+ofs+n], n); err != nil {
						return fmt.Errorf("rle: method 3 row %d: %w", i, err)
					}
					ofs += n
				} else {
					raw, err := gb.ReadBytes(n)
					if err != nil {
						return fmt.Errorf("rle: method 3 row %d: %w", i, err)
					}
					if ofs+n > width {
						return fmt.Errorf("%w: method 3 raw run past row end (%d > %d)", format.ErrInvalidData, ofs+n, width)
					}
					copy(dst[dp+ofs:], raw)
					ofs += n
				}
			} else {
				n := int(b) + 1
				if ofs+n > width {
					return fmt.Errorf("%w: method 3 copy run past row end (%d > %d)", format.ErrInvalidData, ofs+n, width)
				}
				if prev == nil {
					return fmt.Errorf("%w: method 3 interframe copy with no previous frame", format.ErrInvalidData)
				}
				copy(dst[dp+ofs:dp+ofs+n], prev[pp+ofs:])
				ofs += n
			}
		}
		dp += stride
		pp += stride
	}
	return nil
}

// decodeNested expands the secondary RLE scheme into out, producing
// exactly count bytes. Records are a count byte followed by either
// (count&0x7F) literal byte-pairs (high bit set) or one 2-byte value
// repeated count times (high bit clear). An odd count starts with a
// single verbatim byte.
func decodeNested(gb *bitio.ByteCursor, out []byte, count int) error {
	used := 0
	if count&1 != 0 {
		b, err := gb.ReadByte()
		if err != nil {
			return err
		}
		out[used] = b
		used++
	}
	for used < count {
		l, err := gb.ReadByte()
		if err != nil {
			return err
		}
		if l&0x7F == 0 {
			return fmt.Errorf("%w: nested run with zero count", format.ErrInvalidData)
		}
		if l&0x80 != 0 {
			n := int(l&0x7F) * 2
			raw, err := gb.ReadBytes(n)
			if err != nil {
				return err
			}
			if used+n > count {
				return fmt.Errorf("%w: nested literal pairs past run end", format.ErrInvalidData)
			}
			copy(out[used:], raw)
			used += n
		} else {
			pair, err := gb.ReadBytes(2)
			if err != nil {
				return err
			}
			n := int(l) * 2
			if used+n > count {
				return fmt.Errorf("%w: nested value run past run end", format.ErrInvalidData)
			}
			for j := 0; j < int(l); j++ {
				out[used] = pair[0]
				out[used+1] = pair[1]
				used += 2
			}
		}
	}
	return nil
}

// EncodeMethod1 produces a method 1 body for cur against prev. Spans
// equal to the previous frame become interframe copy records, changed
// spans become raw runs, both split at 128 pixels and at row ends. A
// nil prev encodes every pixel as a raw run.
func EncodeMethod1(cur, prev []byte, stride, width, height int) []byte {
	var out []byte
	dp, pp := 0, 0
	for i := 0; i < height; i++ {
		ofs := 0
		for ofs < width {
			n := 0
			if prev != nil {
				for ofs+n < width && cur[dp+ofs+n] == prev[pp+ofs+n] {
					n++
				}
			}
			if n > 0 {
				if n > 128 {
					n = 128
				}
				out = append(out, byte(n-1))
				ofs += n
				continue
			}
			// Changed span: extend until pixels match prev again. A
			// single matching pixel is cheaper inline than a copy
			// record, so require two.
			for ofs+n < width {
				if prev != nil && cur[dp+ofs+n] == prev[pp+ofs+n] {
					if ofs+n+1 >= width || cur[dp+ofs+n+1] == prev[pp+ofs+n+1] {
						break
					}
				}
				n++
			}
			if n > 128 {
				n = 128
			}
			out = append(out, 0x80|byte(n-1))
			out = append(out, cur[dp+ofs:dp+ofs+n]...)
			ofs += n
		}
		dp += stride
		pp += stride
	}
	return out
}

// EncodeMethod2 produces an uncompressed method 2 body.
func EncodeMethod2(cur []byte, stride, width, height int) []byte {
	out := make([]byte, 0, width*height)
	dp := 0
	for i := 0; i < height; i++ {
		out = append(out, cur[dp:dp+width]...)
		dp += stride
	}
	return out
}
