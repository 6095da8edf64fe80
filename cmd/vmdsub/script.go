package main

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	vmd "github.com/mrjoshuak/go-vmd"
)

// scriptEvent is one subtitle in the overlay script. Mask rows use
// spaces for transparent pixels; any other character paints the fill
// color.
type scriptEvent struct {
	Start int      `yaml:"start"`
	End   int      `yaml:"end"`
	X     int      `yaml:"x"`
	Y     int      `yaml:"y"`
	Fill  rgbValue `yaml:"fill"`
	Mask  []string `yaml:"mask"`
}

type rgbValue struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

type scriptFile struct {
	Events []scriptEvent `yaml:"events"`
}

// script holds the loaded events with their coverage masks rendered.
type script struct {
	events   []scriptEvent
	overlays []vmd.Overlay
}

// loadScript parses a YAML overlay script and renders every event's
// mask into a coverage bitmap.
func loadScript(path string) (*script, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var sf scriptFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}

	s := &script{events: sf.Events}
	for i, ev := range sf.Events {
		if ev.End < ev.Start {
			return nil, fmt.Errorf("event %d: end frame %d before start frame %d", i, ev.End, ev.Start)
		}
		ov, err := renderMask(ev)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		s.overlays = append(s.overlays, ov)
	}
	return s, nil
}

func renderMask(ev scriptEvent) (vmd.Overlay, error) {
	h := len(ev.Mask)
	if h == 0 {
		return vmd.Overlay{}, fmt.Errorf("empty mask")
	}
	w := 0
	for _, row := range ev.Mask {
		if len(row) > w {
			w = len(row)
		}
	}
	if w == 0 {
		return vmd.Overlay{}, fmt.Errorf("empty mask rows")
	}
	cov := make([]byte, w*h)
	for y, row := range ev.Mask {
		for x := 0; x < len(row); x++ {
			if row[x] != ' ' {
				cov[y*w+x] = 0xFF
			}
		}
	}
	return vmd.Overlay{
		Coverage: cov,
		Stride:   w,
		Rect:     image.Rect(ev.X, ev.Y, ev.X+w, ev.Y+h),
		Fill:     color.RGBA{R: ev.Fill.R, G: ev.Fill.G, B: ev.Fill.B, A: 0xFF},
	}, nil
}

// RenderAt returns the overlays active on a video frame, start and
// end inclusive.
func (s *script) RenderAt(frame int) []vmd.Overlay {
	var out []vmd.Overlay
	for i, ev := range s.events {
		if frame >= ev.Start && frame <= ev.End {
			out = append(out, s.overlays[i])
		}
	}
	return out
}
