package cmd

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"github.com/helios-rt/helios/renderer"
)

// Write the renderer's current tone-mapped frame to an image file. The
// encoder is selected by the file extension.
func exportFrame(path string, frameW, frameH uint32, r renderer.Renderer) error {
	frame := image.NewRGBA(image.Rect(0, 0, int(frameW), int(frameH)))
	if err := r.Present(frame.Pix); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return png.Encode(f, frame)
	case ".webp":
		return nativewebp.Encode(f, frame, nil)
	case ".tga":
		return tga.Encode(f, frame)
	}

	return fmt.Errorf("unsupported image format %q", filepath.Ext(path))
}
