// Package colorutil provides shared color utilities for image feature extraction.
package colorutil

import (
	"image"
	"image/color"
	"math"
)

// Luma returns the BT.601 luma of an RGB triple (0-255).
func Luma(r, g, b float64) float64 {
	return 0.299*r + 0.587*g + 0.114*b
}

// RGBA8 returns the 8-bit RGB components of c.
func RGBA8(c color.Color) (r, g, b float64) {
	r16, g16, b16, _ := c.RGBA()
	return float64(r16 >> 8), float64(g16 >> 8), float64(b16 >> 8)
}

// ToGray converts img to an 8-bit grayscale image with the same bounds.
// Gray images are returned as-is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := RGBA8(img.At(x, y))
			gray.SetGray(x, y, color.Gray{Y: uint8(math.Round(Luma(r, g, b)))})
		}
	}
	return gray
}

// CompactGray returns g with a zero origin and Stride == Dx, copying rows
// when g is a sub-image or otherwise not densely packed. Consumers that read
// Pix as a dense Dy x Dx buffer need this form.
func CompactGray(g *image.Gray) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if b.Min == (image.Point{}) && g.Stride == w {
		return g
	}
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(out.Pix[y*w:(y+1)*w], g.Pix[src:src+w])
	}
	return out
}
