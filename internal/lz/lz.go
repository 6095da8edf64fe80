// Package lz decodes the LZ-style pre-compression layer wrapped around
// some VMD frame payloads.
//
// The stream starts with a 4-byte little-endian count of bytes to
// produce, optionally followed by the magic marker 0x56781234 which
// selects an alternate queue origin and escape length encoding. Data is
// tag-driven: each control byte supplies eight slots, bit 1 a literal
// byte and bit 0 a back-reference of 12-bit offset plus 4-bit length
// into a 4096-byte dictionary queue. Every produced byte is also fed
// back into the queue, so back-references may overlap their own output.
package lz

import (
	"fmt"

	"github.com/mrjoshuak/go-vmd/internal/bitio"
	"github.com/mrjoshuak/go-vmd/internal/format"
)

// speclen values: the magic-mode escape sentinel is 0xF+3; outside
// magic mode no chain length can reach the disabled value.
const (
	speclenMagic    = 0xF + 3
	speclenDisabled = 100
)

// Unpack decodes src into dst and returns the number of bytes produced.
// Decoding stops at the declared output count or when the input runs
// out, whichever comes first. A back-reference that would write past
// len(dst) is invalid data.
func Unpack(src, dst []byte) (int, error) {
	gb := bitio.NewByteCursor(src)

	dataLeft, err := gb.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("lz: reading output count: %w", err)
	}

	queue := make([]byte, format.QueueSize)
	for i := range queue {
		queue[i] = format.QueueFiller
	}

	qpos := uint32(format.QueueOrigin)
	speclen := uint32(speclenDisabled)
	if magic, err := gb.PeekUint32(); err != nil {
		return 0, fmt.Errorf("lz: reading magic: %w", err)
	} else if magic == format.LZMagic {
		gb.Skip(4)
		qpos = format.QueueOriginMagic
		speclen = speclenMagic
	}

	d := 0
	for dataLeft > 0 && gb.Remaining() > 0 {
		tag, _ := gb.ReadByte()
		if tag == 0xFF && dataLeft > 8 {
			// Literal-run fast path: eight raw bytes, no tag bits.
			raw, err := gb.ReadBytes(8)
			if err != nil {
				return d, fmt.Errorf("lz: literal run: %w", err)
			}
			if len(dst)-d < 8 {
				return d, fmt.Errorf("%w: lz literal run past output end", format.ErrInvalidData)
			}
			for _, b := range raw {
				dst[d] = b
				d++
				queue[qpos] = b
				qpos = (qpos + 1) & format.QueueMask
			}
			dataLeft -= 8
			continue
		}

		for i := 0; i < 8; i++ {
			if dataLeft == 0 {
				break
			}
			if tag&0x01 != 0 {
				b, err := gb.ReadByte()
				if err != nil {
					return d, nil
				}
				if d >= len(dst) {
					return d, fmt.Errorf("%w: lz literal past output end", format.ErrInvalidData)
				}
				dst[d] = b
				d++
				queue[qpos] = b
				qpos = (qpos + 1) & format.QueueMask
				dataLeft--
			} else {
				if gb.Remaining() < 2 {
					return d, nil
				}
				lo, _ := gb.ReadByte()
				hi, _ := gb.PeekByte()
				chainOfs := uint32(lo) | uint32(hi&0xF0)<<4
				lenByte, _ := gb.ReadByte()
				chainLen := uint32(lenByte&0x0F) + 3
				if chainLen == speclen {
					ext, err := gb.ReadByte()
					if err != nil {
						return d, nil
					}
					chainLen = uint32(ext) + 0xF + 3
				}
				if uint32(len(dst)-d) < chainLen {
					return d, fmt.Errorf("%w: lz chain of %d past output end", format.ErrInvalidData, chainLen)
				}
				// Byte at a time: the chain may overlap the queue
				// write position (self-referential runs).
				for j := uint32(0); j < chainLen; j++ {
					b := queue[chainOfs&format.QueueMask]
					chainOfs++
					dst[d] = b
					d++
					queue[qpos] = b
					qpos = (qpos + 1) & format.QueueMask
				}
				dataLeft -= chainLen
			}
			tag >>= 1
		}
	}
	return d, nil
}

// DeclaredSize returns the output byte count an LZ stream claims to
// produce, without decoding it.
func DeclaredSize(src []byte) (int, error) {
	gb := bitio.NewByteCursor(src)
	n, err := gb.ReadUint32()
	if err != nil {
		return 0, fmt.Errorf("lz: reading output count: %w", err)
	}
	return int(n), nil
}
