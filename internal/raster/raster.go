// Package raster manages the full-frame pixel planes and change-window
// arithmetic shared by the decode and encode paths.
package raster

import (
	"fmt"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// Rect is a change window with inclusive pixel bounds.
type Rect struct {
	Left, Top, Right, Bottom int
}

// Width returns the window width in pixels.
func (r Rect) Width() int { return r.Right - r.Left + 1 }

// Height returns the window height in pixels.
func (r Rect) Height() int { return r.Bottom - r.Top + 1 }

// Within reports whether the window lies inside a w x h frame.
func (r Rect) Within(w, h int) bool {
	return r.Left >= 0 && r.Top >= 0 &&
		r.Left <= r.Right && r.Top <= r.Bottom &&
		r.Right < w && r.Bottom < h
}

// Full returns the window covering an entire w x h frame.
func Full(w, h int) Rect {
	return Rect{Left: 0, Top: 0, Right: w - 1, Bottom: h - 1}
}

// Pair is the double-buffered current/previous frame arena. The two
// planes are allocated once and exchanged by toggling an index, so a
// previous-frame reader can never observe writes to the current frame.
type Pair struct {
	planes [2][]byte
	cur    int
	w, h   int
	primed bool
}

// NewPair allocates both planes for w x h frames.
func NewPair(w, h int) *Pair {
	p := &Pair{w: w, h: h}
	p.planes[0] = make([]byte, w*h)
	p.planes[1] = make([]byte, w*h)
	return p
}

// Cur returns the plane being built.
func (p *Pair) Cur() []byte { return p.planes[p.cur] }

// Prev returns the finalized previous plane.
func (p *Pair) Prev() []byte { return p.planes[1-p.cur] }

// HavePrev reports whether at least one frame has been finalized.
// Pixels in Prev are only meaningful for areas covered by prior
// change windows.
func (p *Pair) HavePrev() bool { return p.primed }

// Stride returns the row stride of both planes.
func (p *Pair) Stride() int { return p.w }

// Advance finalizes the current frame: the planes swap roles.
func (p *Pair) Advance() {
	p.cur = 1 - p.cur
	p.primed = true
}

// CarryPrev copies the whole previous frame into the current plane.
// Decoders call this before applying a partial change window so pixels
// outside the window keep their prior values.
func (p *Pair) CarryPrev() {
	if p.primed {
		copy(p.Cur(), p.Prev())
	}
}

// Window bounds-checks r against the pair's frame size and returns the
// current plane sliced at the window origin, still at frame stride.
func (p *Pair) Window(r Rect) ([]byte, error) {
	if !r.Within(p.w, p.h) {
		return nil, fmt.Errorf("%w: change window (%d,%d)-(%d,%d) outside %dx%d frame",
			format.ErrDimensionMismatch, r.Left, r.Top, r.Right, r.Bottom, p.w, p.h)
	}
	return p.Cur()[r.Top*p.w+r.Left:], nil
}

// PrevWindow is Window for the previous plane, or nil when no frame
// has been finalized yet.
func (p *Pair) PrevWindow(r Rect) []byte {
	if !p.primed {
		return nil
	}
	return p.Prev()[r.Top*p.w+r.Left:]
}

// ApplyPatch writes a packed width x height patch into dst at the
// window position, advancing by the frame stride per row.
func ApplyPatch(dst []byte, stride int, r Rect, patch []byte) error {
	w, h := r.Width(), r.Height()
	if len(patch) < w*h {
		return fmt.Errorf("%w: patch of %d bytes for %dx%d window", format.ErrInvalidData, len(patch), w, h)
	}
	dp := r.Top*stride + r.Left
	sp := 0
	for y := 0; y < h; y++ {
		if dp+w > len(dst) {
			return fmt.Errorf("%w: patch row %d past frame end", format.ErrInvalidData, y)
		}
		copy(dst[dp:dp+w], patch[sp:sp+w])
		dp += stride
		sp += w
	}
	return nil
}

// DiffBounds returns the minimal window containing every pixel that
// differs between cur and prev, and whether any pixel differs.
func DiffBounds(cur, prev []byte, w, h int) (Rect, bool) {
	r := Rect{Left: w, Top: h, Right: -1, Bottom: -1}
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			if cur[row+x] == prev[row+x] {
				continue
			}
			if x < r.Left {
				r.Left = x
			}
			if x > r.Right {
				r.Right = x
			}
			if y < r.Top {
				r.Top = y
			}
			r.Bottom = y
		}
	}
	if r.Right < 0 {
		return Rect{}, false
	}
	return r, true
}
