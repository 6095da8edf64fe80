package vmd

import (
	"fmt"
	"image"
	"image/color"

	"github.com/mrjoshuak/go-vmd/internal/format"
)

// overlayThreshold is the coverage level at which an overlay pixel
// replaces the frame pixel underneath it.
const overlayThreshold = 0x70

// Overlay is a coverage mask stamped onto a frame. Coverage holds one
// byte per mask pixel, row-major at Stride; values at or above the
// threshold paint Fill, lower values leave the frame alone.
type Overlay struct {
	Coverage []byte
	Stride   int
	Rect     image.Rectangle // destination in frame coordinates
	Fill     color.RGBA
}

// OverlaySource supplies the overlays for each video frame of a
// stream. Implementations return nil when a frame has none.
type OverlaySource interface {
	RenderAt(frame int) []Overlay
}

// stampOverlay burns ov into a w x h indexed frame, mapping Fill onto
// the nearest palette entry. Mask pixels falling outside the frame
// are clipped; a coverage bitmap smaller than the declared rectangle
// is a dimension mismatch.
func stampOverlay(dst []byte, w, h int, ov Overlay, pal *Palette) error {
	if ov.Rect.Empty() {
		return nil
	}
	mw, mh := ov.Rect.Dx(), ov.Rect.Dy()
	if ov.Stride < mw {
		return fmt.Errorf("%w: overlay stride %d under %d-wide rect", format.ErrDimensionMismatch, ov.Stride, mw)
	}
	if need := (mh-1)*ov.Stride + mw; len(ov.Coverage) < need {
		return fmt.Errorf("%w: overlay coverage of %d bytes for %v at stride %d",
			format.ErrDimensionMismatch, len(ov.Coverage), ov.Rect, ov.Stride)
	}
	idx := pal.NearestIndex(ov.Fill)
	clipped := ov.Rect.Intersect(image.Rect(0, 0, w, h))
	for y := clipped.Min.Y; y < clipped.Max.Y; y++ {
		srcRow := (y - ov.Rect.Min.Y) * ov.Stride
		dstRow := y * w
		for x := clipped.Min.X; x < clipped.Max.X; x++ {
			if ov.Coverage[srcRow+x-ov.Rect.Min.X] >= overlayThreshold {
				dst[dstRow+x] = idx
			}
		}
	}
	return nil
}
