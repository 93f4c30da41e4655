package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquarestGrid(t *testing.T) {
	tests := []struct {
		n    int
		want Grid
	}{
		{1, Grid{1, 1}},
		{2, Grid{1, 2}},
		{4, Grid{2, 2}},
		{5, Grid{1, 5}},
		{6, Grid{2, 3}},
		{9, Grid{3, 3}},
		{12, Grid{3, 4}},
		{16, Grid{4, 4}},
	}

	for _, tt := range tests {
		got := SquarestGrid(tt.n)
		assert.Equal(t, tt.want, got, "n=%d", tt.n)
		assert.Equal(t, tt.n, got.Cells())
	}
	assert.Equal(t, Grid{}, SquarestGrid(0))
}

func TestGridTilesCoverBoundsExactlyOnce(t *testing.T) {
	bounds := []image.Rectangle{
		image.Rect(0, 0, 7, 5),
		image.Rect(3, 2, 20, 11),
		image.Rect(0, 0, 4, 4),
		image.Rect(-5, -5, 6, 8),
	}

	for _, b := range bounds {
		for n := 1; n <= 12; n++ {
			g := SquarestGrid(n)
			if !g.Fits(b) {
				continue
			}
			tiles := g.Tiles(b)
			require.Len(t, tiles, n)

			counts := make(map[image.Point]int)
			total := 0
			for _, tile := range tiles {
				require.False(t, tile.Empty(), "bounds=%v n=%d tile=%v", b, n, tile)
				require.True(t, tile.In(b))
				for y := tile.Min.Y; y < tile.Max.Y; y++ {
					for x := tile.Min.X; x < tile.Max.X; x++ {
						counts[image.Pt(x, y)]++
						total++
					}
				}
			}
			assert.Equal(t, b.Dx()*b.Dy(), total, "bounds=%v n=%d", b, n)
			assert.Len(t, counts, b.Dx()*b.Dy())
		}
	}
}

func TestGridFits(t *testing.T) {
	g := Grid{Rows: 2, Cols: 3}
	assert.True(t, g.Fits(image.Rect(0, 0, 3, 2)))
	assert.False(t, g.Fits(image.Rect(0, 0, 2, 2)))
	assert.False(t, g.Fits(image.Rect(0, 0, 3, 1)))
	assert.False(t, Grid{}.Fits(image.Rect(0, 0, 10, 10)))
}
