package rle

import (
	"fmt"

	"github.com/mrjoshuak/go-vmd/internal/bitio"
	"github.com/mrjoshuak/go-vmd/internal/format"
)

// Packed-run bitstream. Each element is one control bit: 1 introduces
// an 8-bit literal, 0 a back-reference of 12-bit backward distance plus
// a variable-length length code. Lengths 2..4 use 2 bits, 5..7 use a
// 4-bit value biased by +7, and 8 and up escape through a 4-bit 0xF
// followed by chained nibbles, a nibble of 15 continuing the chain.

// writeRunLength emits the variable-length code for n >= 2.
func writeRunLength(bw *bitio.Writer, n int) {
	switch {
	case n <= 4:
		bw.Write(uint32(n-2), 2)
	case n <= 7:
		bw.Write(uint32(n+7), 4)
	default:
		bw.Write(0xF, 4)
		rem := n - 8
		for rem >= 15 {
			bw.Write(0xF, 4)
			rem -= 15
		}
		bw.Write(uint32(rem), 4)
	}
}

// readRunLength decodes the variable-length code.
func readRunLength(br *bitio.Reader) int {
	v := br.Read(2)
	if v < 3 {
		return int(v) + 2
	}
	v = br.Read(2) | 0xC
	if v < 0xF {
		return int(v) - 7
	}
	n := 8
	for {
		g := br.Read(4)
		n += int(g)
		if g != 0xF {
			return n
		}
	}
}

// CompressRuns packs pix (width x height at stride) into the bit-level
// run stream. Runs of identical pixels become a literal followed by a
// distance-1 back-reference covering the rest of the run; runs never
// cross row boundaries.
func CompressRuns(pix []byte, stride, width, height int) []byte {
	bw := bitio.NewWriter()
	dp := 0
	for i := 0; i < height; i++ {
		x := 0
		for x < width {
			v := pix[dp+x]
			n := 1
			for x+n < width && pix[dp+x+n] == v {
				n++
			}
			bw.Write(1, 1)
			bw.Write(uint32(v), 8)
			switch {
			case n >= 3:
				// Back-reference of the run minus its leading literal.
				bw.Write(0, 1)
				bw.Write(1, 12)
				writeRunLength(bw, n-1)
			case n == 2:
				// A length-1 reference is not representable; emit the
				// second pixel as another literal.
				bw.Write(1, 1)
				bw.Write(uint32(v), 8)
			}
			x += n
		}
		dp += stride
	}
	bw.Flush()
	return bw.Bytes()
}

// DecompressRuns expands a packed-run stream into exactly outLen bytes.
// Total consumption is bounded by outLen, never by in-stream sentinels.
func DecompressRuns(src []byte, outLen int) ([]byte, error) {
	br := bitio.NewReader(src)
	out := make([]byte, outLen)
	pos := 0
	for pos < outLen {
		if br.Read(1) == 1 {
			out[pos] = byte(br.Read(8))
			pos++
			continue
		}
		dist := int(br.Read(12))
		if dist == 0 || dist > pos {
			return nil, fmt.Errorf("%w: run reference distance %d at offset %d", format.ErrInvalidData, dist, pos)
		}
		n := readRunLength(br)
		if pos+n > outLen {
			return nil, fmt.Errorf("%w: run of %d past output end", format.ErrInvalidData, n)
		}
		// Byte at a time: distance-1 references read their own output.
		for j := 0; j < n; j++ {
			out[pos] = out[pos-dist]
			pos++
		}
	}
	return out, nil
}
