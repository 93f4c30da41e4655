package features

import (
	"fmt"
	"image"
	"math"

	"visual-bow/pkg/colorutil"

	"gonum.org/v1/gonum/floats"
)

// Patch extracts dense luma-patch descriptors: the image is scanned with a
// Size x Size window every Step pixels, each window is resampled to Cells x
// Cells mean-luma cells, mean-centred and L2-normalised. Flat windows carry
// no texture and are dropped.
type Patch struct {
	Size  int
	Step  int
	Cells int
}

// NewPatch returns a Patch extractor with 16px windows, 8px stride and a
// 4x4 cell layout (16-dimensional descriptors).
func NewPatch() *Patch {
	return &Patch{Size: 16, Step: 8, Cells: 4}
}

// Name implements Extractor.
func (p *Patch) Name() string { return "patch" }

// Dim implements Extractor.
func (p *Patch) Dim() int { return p.Cells * p.Cells }

// Extract implements Extractor.
func (p *Patch) Extract(img image.Image) ([]Descriptor, error) {
	if p.Size <= 0 || p.Step <= 0 || p.Cells <= 0 || p.Cells > p.Size {
		return nil, fmt.Errorf("invalid patch geometry: size=%d step=%d cells=%d", p.Size, p.Step, p.Cells)
	}
	gray := colorutil.ToGray(img)
	b := gray.Bounds()

	var out []Descriptor
	for y := b.Min.Y; y+p.Size <= b.Max.Y; y += p.Step {
		for x := b.Min.X; x+p.Size <= b.Max.X; x += p.Step {
			d := p.describe(gray, x, y)
			if d != nil {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (p *Patch) describe(gray *image.Gray, x0, y0 int) Descriptor {
	d := make(Descriptor, p.Dim())
	for cy := 0; cy < p.Cells; cy++ {
		for cx := 0; cx < p.Cells; cx++ {
			ys, ye := y0+cy*p.Size/p.Cells, y0+(cy+1)*p.Size/p.Cells
			xs, xe := x0+cx*p.Size/p.Cells, x0+(cx+1)*p.Size/p.Cells
			sum, n := 0.0, 0
			for y := ys; y < ye; y++ {
				for x := xs; x < xe; x++ {
					sum += float64(gray.GrayAt(x, y).Y)
					n++
				}
			}
			d[cy*p.Cells+cx] = sum / float64(n)
		}
	}

	floats.AddConst(-floats.Sum(d)/float64(len(d)), d)
	norm := floats.Norm(d, 2)
	if norm < 1e-9 || math.IsNaN(norm) {
		return nil
	}
	floats.Scale(1/norm, d)
	return d
}
