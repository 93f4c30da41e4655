package divider

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// plainImage hides SubImage so the copy path is exercised.
type plainImage struct{ image.Image }

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func TestNewEven(t *testing.T) {
	_, err := NewEven(0)
	require.ErrorIs(t, err, ErrInvalidCount)

	d, err := NewEven(4)
	require.NoError(t, err)
	assert.Equal(t, 4, d.N())
	assert.Equal(t, 2, d.Grid().Rows)
	assert.Equal(t, 2, d.Grid().Cols)
}

func TestSectorsUnionToFullImage(t *testing.T) {
	sizes := [][2]int{{1, 1}, {5, 3}, {16, 9}, {31, 17}}
	for _, sz := range sizes {
		img := gradient(sz[0], sz[1])
		for n := 1; n <= 9; n++ {
			d, err := NewEven(n)
			require.NoError(t, err)

			sectors, err := d.Sectors(img)
			if err != nil {
				require.ErrorIs(t, err, ErrInvalidDivision)
				continue
			}
			require.Len(t, sectors, n)

			seen := make(map[image.Point]int)
			for _, s := range sectors {
				b := s.Bounds()
				for y := b.Min.Y; y < b.Max.Y; y++ {
					for x := b.Min.X; x < b.Max.X; x++ {
						seen[image.Pt(x, y)]++
						assert.Equal(t, img.At(x, y), s.At(x, y))
					}
				}
			}
			assert.Len(t, seen, sz[0]*sz[1], "size=%v n=%d", sz, n)
			for p, c := range seen {
				assert.Equal(t, 1, c, "pixel %v covered %d times", p, c)
			}
		}
	}
}

func TestSectorMatchesSectors(t *testing.T) {
	img := gradient(10, 8)
	d, err := NewEven(6)
	require.NoError(t, err)

	all, err := d.Sectors(img)
	require.NoError(t, err)
	for i := 1; i <= d.N(); i++ {
		s, err := d.Sector(img, i)
		require.NoError(t, err)
		assert.Equal(t, all[i-1].Bounds(), s.Bounds())

		again, err := d.Sector(img, i)
		require.NoError(t, err)
		assert.Equal(t, s.Bounds(), again.Bounds())
	}

	first, _ := d.Sector(img, 1)
	assert.Equal(t, image.Rect(0, 0, 3, 4), first.Bounds())
	last, _ := d.Sector(img, 6)
	assert.Equal(t, image.Rect(6, 4, 10, 8), last.Bounds())
}

func TestSectorIndexOutOfRange(t *testing.T) {
	d, err := NewEven(4)
	require.NoError(t, err)
	img := gradient(4, 4)

	_, err = d.Sector(img, 0)
	assert.ErrorIs(t, err, ErrSectorIndex)
	_, err = d.Sector(img, 5)
	assert.ErrorIs(t, err, ErrSectorIndex)
}

func TestUndersizedImage(t *testing.T) {
	d, err := NewEven(4)
	require.NoError(t, err)

	_, err = d.Sectors(gradient(1, 10))
	assert.ErrorIs(t, err, ErrInvalidDivision)
	_, err = d.Sector(gradient(10, 1), 1)
	assert.ErrorIs(t, err, ErrInvalidDivision)
}

func TestCopyPathWithoutSubImage(t *testing.T) {
	img := gradient(6, 6)
	d, err := NewEven(4)
	require.NoError(t, err)

	s, err := d.Sector(plainImage{img}, 4)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(3, 3, 6, 6), s.Bounds())
	assert.Equal(t, img.At(4, 5), s.At(4, 5))
}
