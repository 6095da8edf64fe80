// Command vmdsub burns subtitles from a YAML overlay script into a
// Sierra VMD video.
//
// Usage:
//
//	vmdsub <script.yaml> <in.vmd> <frames.vif> <out.vmd>
//
// frames.vif is the intermediate frame store for in.vmd; it is
// created from the input video when the file does not exist yet.
package main

import (
	"fmt"
	"os"

	vmd "github.com/mrjoshuak/go-vmd"
)

func main() {
	if len(os.Args) != 5 {
		fmt.Fprintf(os.Stderr, "usage: %s <script.yaml> <in.vmd> <frames.vif> <out.vmd>\n", os.Args[0])
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2], os.Args[3], os.Args[4]); err != nil {
		fmt.Fprintln(os.Stderr, "vmdsub:", err)
		os.Exit(1)
	}
}

func run(scriptPath, inPath, vifPath, outPath string) error {
	overlays, err := loadScript(scriptPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(vifPath); os.IsNotExist(err) {
		if err := extract(inPath, vifPath); err != nil {
			return err
		}
		fmt.Printf("extracted frames from %s to %s\n", inPath, vifPath)
	} else if err != nil {
		return err
	}

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	vif, err := os.Open(vifPath)
	if err != nil {
		return err
	}
	defer vif.Close()
	store, err := vmd.NewIntermediateReader(vif)
	if err != nil {
		return err
	}
	defer store.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := vmd.Remux(in, store, overlays, out); err != nil {
		out.Close()
		os.Remove(outPath)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func extract(inPath, vifPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	vif, err := os.Create(vifPath)
	if err != nil {
		return err
	}
	if err := vmd.ExtractFrames(in, vif); err != nil {
		vif.Close()
		os.Remove(vifPath)
		return err
	}
	return vif.Close()
}
