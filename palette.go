package vmd

import (
	"fmt"
	"image/color"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// Palette manages the 256-entry color table shared by a VMD stream.
// Entries are stored both as the 6-bit wire triplets and as 8-bit
// display colors. The decode path replaces entries wholesale from
// palette chunks; the encode path allocates entries on first
// encounter through IndexFor.
type Palette struct {
	raw    [format.PaletteSize]byte
	colors [format.PaletteEntries]color.RGBA
	count  int
	lookup map[color.RGBA]uint8
}

// NewPalette returns a reset palette.
func NewPalette() *Palette {
	p := &Palette{}
	p.Reset()
	return p
}

// scale6 expands a 6-bit channel to 8 bits, replicating the top bits
// into the bottom so 0x3F maps to 0xFF.
func scale6(v byte) uint8 {
	v &= 0x3F
	return v<<2 | v>>4
}

// Reset clears the table to black with a single allocated entry, so
// index 0 always means black after a reset.
func (p *Palette) Reset() {
	p.raw = [format.PaletteSize]byte{}
	for i := range p.colors {
		p.colors[i] = color.RGBA{A: 0xFF}
	}
	p.count = 1
	p.lookup = map[color.RGBA]uint8{{A: 0xFF}: 0}
}

// Len returns the number of allocated entries.
func (p *Palette) Len() int { return p.count }

func (p *Palette) set(i int, r6, g6, b6 byte) {
	p.raw[i*3+0] = r6 & 0x3F
	p.raw[i*3+1] = g6 & 0x3F
	p.raw[i*3+2] = b6 & 0x3F
	p.colors[i] = color.RGBA{R: scale6(r6), G: scale6(g6), B: scale6(b6), A: 0xFF}
}

// Replace loads all 256 entries from raw 6-bit triplets, as a palette
// chunk in the stream does. The first-encounter allocation map is
// rebuilt from the new table, lowest index winning duplicates.
func (p *Palette) Replace(raw []byte) error {
	if len(raw) < format.PaletteSize {
		return fmt.Errorf("%w: palette of %d bytes, need %d", format.ErrTruncatedInput, len(raw), format.PaletteSize)
	}
	for i := 0; i < format.PaletteEntries; i++ {
		p.set(i, raw[i*3], raw[i*3+1], raw[i*3+2])
	}
	p.count = format.PaletteEntries
	p.lookup = make(map[color.RGBA]uint8, format.PaletteEntries)
	for i := format.PaletteEntries - 1; i >= 0; i-- {
		p.lookup[p.colors[i]] = uint8(i)
	}
	return nil
}

// SetRange overwrites entries [start, start+n) from raw 6-bit
// triplets without disturbing allocations below start.
func (p *Palette) SetRange(start int, raw []byte) error {
	n := len(raw) / 3
	if start < 0 || start+n > format.PaletteEntries {
		return fmt.Errorf("%w: palette range %d..%d", format.ErrPaletteOverflow, start, start+n)
	}
	for i := 0; i < n; i++ {
		p.set(start+i, raw[i*3], raw[i*3+1], raw[i*3+2])
		if _, ok := p.lookup[p.colors[start+i]]; !ok {
			p.lookup[p.colors[start+i]] = uint8(start + i)
		}
	}
	if start+n > p.count {
		p.count = start + n
	}
	return nil
}

// Append allocates entries for raw 6-bit triplets after the last
// allocated entry.
func (p *Palette) Append(raw []byte) error {
	n := len(raw) / 3
	if p.count+n > format.PaletteEntries {
		return fmt.Errorf("%w: %d entries over the %d-entry table", format.ErrPaletteOverflow, p.count+n, format.PaletteEntries)
	}
	return p.SetRange(p.count, raw)
}

// Raw returns the 6-bit wire form of the table.
func (p *Palette) Raw() [format.PaletteSize]byte { return p.raw }

// quantize maps an 8-bit color onto the 6-bit grid the wire format
// can represent.
func quantize(c color.RGBA) color.RGBA {
	return color.RGBA{R: scale6(c.R >> 2), G: scale6(c.G >> 2), B: scale6(c.B >> 2), A: 0xFF}
}

// IndexFor returns the entry holding c, allocating the next free
// entry on first encounter. A full table is ErrPaletteOverflow; the
// caller resets and requantizes.
func (p *Palette) IndexFor(c color.RGBA) (uint8, error) {
	q := quantize(c)
	if i, ok := p.lookup[q]; ok {
		return i, nil
	}
	if p.count >= format.PaletteEntries {
		return 0, fmt.Errorf("%w: no free entry for %v", format.ErrPaletteOverflow, q)
	}
	i := uint8(p.count)
	p.set(p.count, c.R>>2, c.G>>2, c.B>>2)
	p.lookup[q] = i
	p.count++
	return i, nil
}

// NearestIndex returns the allocated entry closest to c by squared
// RGB distance, lowest index winning ties. An exact hit returns
// immediately.
func (p *Palette) NearestIndex(c color.RGBA) uint8 {
	q := quantize(c)
	if i, ok := p.lookup[q]; ok {
		return i
	}
	best, bestDist := 0, int(^uint(0)>>1)
	n := p.count
	if n == 0 {
		return 0
	}
	for i := 0; i < n; i++ {
		e := p.colors[i]
		dr := int(e.R) - int(q.R)
		dg := int(e.G) - int(q.G)
		db := int(e.B) - int(q.B)
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	return uint8(best)
}

// Colors returns the table as a color.Palette of all 256 entries.
func (p *Palette) Colors() color.Palette {
	out := make(color.Palette, format.PaletteEntries)
	for i := range p.colors {
		out[i] = p.colors[i]
	}
	return out
}
