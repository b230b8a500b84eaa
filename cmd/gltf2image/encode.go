package main

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// toImage views engine pixels, which are straight-alpha RGBA8, as an image
// without copying.
func toImage(px []byte, width, height uint32) *image.NRGBA {
	return &image.NRGBA{
		Pix:    px,
		Stride: 4 * int(width),
		Rect:   image.Rect(0, 0, int(width), int(height)),
	}
}

func encode(w io.Writer, format string, img image.Image) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	case "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func writeImage(path, format string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return encode(f, format, img)
}

// outputPath returns the file name of render i out of n. A single render
// uses base as is; repeats get a zero-padded index before the extension.
// A base without extension gets one from format.
func outputPath(base, format string, i, n int) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		ext = "." + format
	}
	if n <= 1 {
		return stem + ext
	}
	width := len(fmt.Sprint(n - 1))
	return fmt.Sprintf("%s-%0*d%s", stem, width, i, ext)
}
