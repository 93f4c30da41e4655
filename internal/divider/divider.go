// Package divider splits images into a fixed number of spatial sectors.
package divider

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"visual-bow/pkg/geometry"
)

var (
	// ErrInvalidDivision is returned when an image is too small to be split
	// into the requested grid.
	ErrInvalidDivision = errors.New("image too small for sector grid")

	// ErrSectorIndex is returned for a sector index outside 1..N.
	ErrSectorIndex = errors.New("sector index out of range")

	// ErrInvalidCount is returned when the sector count is not positive.
	ErrInvalidCount = errors.New("sector count must be positive")
)

// Even tiles images into an even rows x cols grid of N sectors.
// Sectors are numbered 1..N in row-major order. Tile edges fall at
// floor(i*extent/count), so every pixel belongs to exactly one sector.
type Even struct {
	n    int
	grid geometry.Grid
}

// NewEven creates a divider producing n sectors on the most square grid.
func NewEven(n int) (*Even, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, n)
	}
	return &Even{n: n, grid: geometry.SquarestGrid(n)}, nil
}

// N returns the number of sectors.
func (d *Even) N() int {
	return d.n
}

// Grid returns the underlying tiling.
func (d *Even) Grid() geometry.Grid {
	return d.grid
}

// Bounds returns the rectangles of all N sectors of an image with the
// given bounds, in sector order.
func (d *Even) Bounds(bounds image.Rectangle) ([]image.Rectangle, error) {
	if !d.grid.Fits(bounds) {
		return nil, fmt.Errorf("%w: %dx%d image, %dx%d grid",
			ErrInvalidDivision, bounds.Dx(), bounds.Dy(), d.grid.Cols, d.grid.Rows)
	}
	return d.grid.Tiles(bounds), nil
}

// Sector returns sector i (1-based) of img.
func (d *Even) Sector(img image.Image, i int) (image.Image, error) {
	if i < 1 || i > d.n {
		return nil, fmt.Errorf("%w: %d not in 1..%d", ErrSectorIndex, i, d.n)
	}
	bounds := img.Bounds()
	if !d.grid.Fits(bounds) {
		return nil, fmt.Errorf("%w: %dx%d image, %dx%d grid",
			ErrInvalidDivision, bounds.Dx(), bounds.Dy(), d.grid.Cols, d.grid.Rows)
	}
	row, col := (i-1)/d.grid.Cols, (i-1)%d.grid.Cols
	return crop(img, d.grid.Cell(bounds, row, col)), nil
}

// Sectors returns all N sectors of img in order.
func (d *Even) Sectors(img image.Image) ([]image.Image, error) {
	rects, err := d.Bounds(img.Bounds())
	if err != nil {
		return nil, err
	}
	out := make([]image.Image, len(rects))
	for i, r := range rects {
		out[i] = crop(img, r)
	}
	return out, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// crop shares pixels with img when the concrete type supports SubImage and
// copies otherwise.
func crop(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(r)
	draw.Draw(dst, r, img, r.Min, draw.Src)
	return dst
}
