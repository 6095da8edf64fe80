// Package vmd decodes and encodes Sierra VMD video files.
//
// VMD stores 8-bit paletted frames as delta-compressed change windows
// behind a fixed 0x330-byte header and a trailing table of contents.
// Decoder replays a stream into *image.Paletted frames; Encoder builds
// a new stream from images, diffing consecutive frames into minimal
// change windows. Remux rewrites an existing stream with overlays
// burned into the pixels, and the intermediate store carries decoded
// frames between the two steps.
package vmd

import "image"

// StreamInfo describes an open VMD stream.
type StreamInfo struct {
	Width, Height  int
	BlockCount     int
	FramesPerBlock int
	AudioRate      int
}

// FrameCount returns the total number of frame records, audio and
// video together.
func (s StreamInfo) FrameCount() int { return s.BlockCount * s.FramesPerBlock }

// Bounds returns the frame rectangle.
func (s StreamInfo) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.Width, s.Height)
}
