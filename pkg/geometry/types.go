// Package geometry provides basic geometric types used throughout the application.
package geometry

import (
	"image"
	"math"
)

// Grid describes a rows x cols tiling.
type Grid struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// SquarestGrid returns the factorisation rows x cols = n closest to a square,
// with rows <= cols. n must be positive.
func SquarestGrid(n int) Grid {
	if n <= 0 {
		return Grid{}
	}
	rows := int(math.Sqrt(float64(n)))
	for rows > 1 && n%rows != 0 {
		rows--
	}
	return Grid{Rows: rows, Cols: n / rows}
}

// Cells returns the number of tiles in the grid.
func (g Grid) Cells() int {
	return g.Rows * g.Cols
}

// Fits reports whether every tile of the grid gets at least one pixel row and column.
func (g Grid) Fits(bounds image.Rectangle) bool {
	return g.Rows > 0 && g.Cols > 0 && bounds.Dy() >= g.Rows && bounds.Dx() >= g.Cols
}

// Cell returns tile (row, col) of bounds. Edges fall at floor(i*extent/count),
// so adjacent tiles share no pixels and the last tile ends at bounds.Max.
func (g Grid) Cell(bounds image.Rectangle, row, col int) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	x0 := bounds.Min.X + col*w/g.Cols
	x1 := bounds.Min.X + (col+1)*w/g.Cols
	y0 := bounds.Min.Y + row*h/g.Rows
	y1 := bounds.Min.Y + (row+1)*h/g.Rows
	return image.Rect(x0, y0, x1, y1)
}

// Tiles returns all tiles of bounds in row-major order.
func (g Grid) Tiles(bounds image.Rectangle) []image.Rectangle {
	tiles := make([]image.Rectangle, 0, g.Cells())
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			tiles = append(tiles, g.Cell(bounds, row, col))
		}
	}
	return tiles
}
