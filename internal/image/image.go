// Package image provides corpus image loading, format filtering and resizing.
package image

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Picture is a decoded corpus image.
type Picture struct {
	Path   string      // Original file path
	Image  image.Image // Decoded pixels, possibly downscaled
	Format string      // Format name reported by the decoder
}

// Load decodes the image at path.
func Load(path string) (*Picture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return &Picture{Path: path, Image: img, Format: format}, nil
}

// LoadWithin decodes the image at path and downscales it so neither side
// exceeds maxSide. maxSide <= 0 disables resizing.
func LoadWithin(path string, maxSide int) (*Picture, error) {
	pic, err := Load(path)
	if err != nil {
		return nil, err
	}
	pic.Image = FitWithin(pic.Image, maxSide)
	return pic, nil
}

// Width returns the image width in pixels.
func (p *Picture) Width() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (p *Picture) Height() int {
	if p.Image == nil {
		return 0
	}
	return p.Image.Bounds().Dy()
}

// FitWithin returns img scaled down, preserving aspect ratio, so that its
// longer side is at most maxSide. Smaller images and maxSide <= 0 return img.
func FitWithin(img image.Image, maxSide int) image.Image {
	if maxSide <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}

	var nw, nh int
	if w >= h {
		nw = maxSide
		nh = max(1, h*maxSide/w)
	} else {
		nh = maxSide
		nw = max(1, w*maxSide/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// DefaultFormats returns the extensions recognised as corpus images when no
// explicit list is configured.
func DefaultFormats() []string {
	return []string{".jpg", ".png"}
}

// SupportedFormats returns every extension the decoder can read.
func SupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}
}

// Matcher reports whether a file name has one of a fixed set of extensions.
type Matcher struct {
	exts map[string]bool
}

// NewMatcher builds a Matcher for the given extensions. Extensions are
// compared case-insensitively; a missing leading dot is added.
func NewMatcher(exts []string) Matcher {
	m := Matcher{exts: make(map[string]bool, len(exts))}
	for _, e := range exts {
		if e = NormalizeExt(e); e != "" {
			m.exts[e] = true
		}
	}
	return m
}

// NormalizeExt lowercases and trims an extension and adds a missing leading
// dot. A blank extension stays empty.
func NormalizeExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e == "" || strings.HasPrefix(e, ".") {
		return e
	}
	return "." + e
}

// Match checks if the given path has a recognised image extension.
func (m Matcher) Match(path string) bool {
	return m.exts[strings.ToLower(filepath.Ext(path))]
}

// IsSupportedFormat checks if the decoder can read the given path's extension.
func IsSupportedFormat(path string) bool {
	return NewMatcher(SupportedFormats()).Match(path)
}
