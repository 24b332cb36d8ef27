// Package imagecodec is the library's external image encoder boundary:
// given an RGBA raster and a format tag, it writes an encoded image to
// an io.Writer. This is the one place the screenshot service reaches
// for a third-party codec (golang.org/x/image/bmp), since the standard
// library has no BMP encoder.
package imagecodec

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
)

// Format selects the output image encoding.
type Format int

const (
	FormatPNG Format = iota
	FormatJPEG
	FormatBMP
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpeg"
	case FormatBMP:
		return "bmp"
	default:
		return "unknown"
	}
}

// Encode writes rgba (width*height*4 bytes, row-major RGBA) as an image
// in the given format. JPEG has no alpha channel, so the raster is
// first composited over opaque white.
func Encode(w io.Writer, format Format, rgba []byte, width, height int) error {
	if len(rgba) != width*height*4 {
		return fmt.Errorf("imagecodec: rgba has %d bytes, want %d for %dx%d", len(rgba), width*height*4, width, height)
	}

	img := &image.RGBA{
		Pix:    rgba,
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}

	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, flattenOverWhite(img), &jpeg.Options{Quality: jpeg.DefaultQuality})
	case FormatBMP:
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("imagecodec: unknown format %v", format)
	}
}

// flattenOverWhite composites an RGBA image over an opaque white
// background, producing an RGB-only image suitable for JPEG (which has
// no alpha channel).
func flattenOverWhite(src *image.RGBA) image.Image {
	dst := image.NewRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)
	return dst
}
