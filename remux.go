package vmd

import (
	"fmt"
	"io"

	"github.com/mrjoshuak/go-vmd/internal/container"
	"github.com/mrjoshuak/go-vmd/internal/format"
	"github.com/mrjoshuak/go-vmd/internal/raster"
	"github.com/mrjoshuak/go-vmd/internal/rle"
)

// Remux rewrites a VMD stream with overlays burned into the video.
// Audio frames and the block layout copy through untouched; video
// frames are rebuilt from the intermediate store, stamped, diffed
// against the previous output frame, and re-encoded. overlays may be
// nil to rewrite without stamping.
func Remux(in io.ReadSeeker, store *IntermediateReader, overlays OverlaySource, out io.WriteSeeker) error {
	cr, err := container.NewReader(in)
	if err != nil {
		return err
	}
	hdr := *cr.Header()
	w, h := int(hdr.Width), int(hdr.Height)

	cw, err := container.NewWriter(out, &hdr)
	if err != nil {
		return err
	}
	pal := NewPalette()
	if err := pal.Replace(hdr.Palette[:]); err != nil {
		return err
	}
	pair := raster.NewPair(w, h)
	load := make([]byte, cr.TOC().MaxFrameLength())

	fpb := int(hdr.FramesPerBlock)
	videoIdx := 0
	for i, rec := range cr.TOC().Frames {
		if i%fpb == 0 {
			cw.BeginBlock(cr.TOC().Blocks[i/fpb].Unknown)
		}
		if rec.Type != format.FrameVideo {
			payload, err := cr.FramePayload(i, load)
			if err != nil {
				return err
			}
			if err := cw.WriteFrame(rec, payload); err != nil {
				return err
			}
			continue
		}

		f, err := store.Next()
		if err == io.EOF {
			return fmt.Errorf("%w: frame store ends at video frame %d", format.ErrInvalidData, videoIdx)
		}
		if err != nil {
			return err
		}
		if f.Window.Max.X > w {
			return fmt.Errorf("%w: stored frame width %d, stream width %d", format.ErrDimensionMismatch, f.Window.Max.X, w)
		}
		if f.Window.Max.Y > h {
			return fmt.Errorf("%w: stored frame height %d, stream height %d", format.ErrDimensionMismatch, f.Window.Max.Y, h)
		}

		raw := pal.Raw()
		palChanged := f.Palette != raw
		if palChanged {
			if err := pal.Replace(f.Palette[:]); err != nil {
				return err
			}
		}

		pair.CarryPrev()
		if !f.Window.Empty() {
			win := raster.Rect{
				Left: f.Window.Min.X, Top: f.Window.Min.Y,
				Right: f.Window.Max.X - 1, Bottom: f.Window.Max.Y - 1,
			}
			if err := raster.ApplyPatch(pair.Cur(), w, win, f.Pix); err != nil {
				return err
			}
		}
		if overlays != nil {
			for _, ov := range overlays.RenderAt(videoIdx) {
				if err := stampOverlay(pair.Cur(), w, h, ov, pal); err != nil {
					return fmt.Errorf("video frame %d: %w", videoIdx, err)
				}
			}
		}

		if err := writeComposedFrame(cw, pair, pal, rec, w, h, palChanged, videoIdx == 0); err != nil {
			return err
		}
		pair.Advance()
		videoIdx++
	}
	return cw.Close()
}

// writeComposedFrame diffs the composed canvas against the previous
// output frame and writes the smallest encoding. A replaced palette
// invalidates prior indices, so those frames re-send the whole
// canvas raw.
func writeComposedFrame(cw *container.Writer, pair *raster.Pair, pal *Palette, src container.FrameRecord, w, h int, palChanged, first bool) error {
	cur := pair.Cur()

	var win raster.Rect
	changed := true
	if !pair.HavePrev() || palChanged {
		win = raster.Full(w, h)
	} else {
		win, changed = raster.DiffBounds(cur, pair.Prev(), w, h)
	}

	rec := container.FrameRecord{
		Type:      format.FrameVideo,
		Unknown1:  src.Unknown1,
		Unknown14: src.Unknown14,
	}
	var payload []byte
	if palChanged && !first {
		raw := pal.Raw()
		chunk := make([]byte, format.PaletteChunkSize)
		copy(chunk[2:], raw[:])
		payload = chunk
		rec.Flags |= format.FlagPalette
	}

	if changed {
		rec.Left = uint16(win.Left)
		rec.Top = uint16(win.Top)
		rec.Right = uint16(win.Right)
		rec.Bottom = uint16(win.Bottom)
		winCur := cur[win.Top*w+win.Left:]
		body := rle.EncodeMethod2(winCur, w, win.Width(), win.Height())
		method := byte(format.MethodRaw)
		if pair.HavePrev() && !palChanged {
			winPrev := pair.Prev()[win.Top*w+win.Left:]
			delta := rle.EncodeMethod1(winCur, winPrev, w, win.Width(), win.Height())
			if len(delta) < len(body) {
				body = delta
				method = format.MethodRLE
			}
		}
		payload = append(payload, method)
		payload = append(payload, body...)
	}

	if err := cw.WriteFrame(rec, payload); err != nil {
		return err
	}
	if first {
		return cw.PatchPalette(pal.Raw())
	}
	return nil
}
