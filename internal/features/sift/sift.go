// Package sift extracts SIFT descriptors with OpenCV.
package sift

import (
	"fmt"
	"image"

	"visual-bow/internal/features"
	"visual-bow/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Dim is the length of a SIFT descriptor.
const Dim = 128

// Extractor computes SIFT keypoint descriptors on the grayscale image.
// A detector is created per call, so one Extractor can serve many goroutines.
type Extractor struct{}

// New creates a SIFT extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name implements features.Extractor.
func (e *Extractor) Name() string { return "sift" }

// Dim implements features.Extractor.
func (e *Extractor) Dim() int { return Dim }

// Extract implements features.Extractor.
func (e *Extractor) Extract(img image.Image) ([]features.Descriptor, error) {
	// ImageGrayToMatGray reads Pix as a dense buffer, which a sector's
	// sub-image is not.
	gray, err := gocv.ImageGrayToMatGray(colorutil.CompactGray(colorutil.ToGray(img)))
	if err != nil {
		return nil, fmt.Errorf("convert to mat: %w", err)
	}
	defer gray.Close()
	if gray.Empty() {
		return nil, nil
	}

	sift := gocv.NewSIFT()
	defer sift.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	_, desc := sift.DetectAndCompute(gray, mask)
	defer desc.Close()

	return fromMat(desc)
}

// fromMat copies the rows of a CV32F descriptor matrix.
func fromMat(desc gocv.Mat) ([]features.Descriptor, error) {
	if desc.Empty() {
		return nil, nil
	}
	if desc.Cols() != Dim {
		return nil, features.CheckDim("sift descriptor", Dim, desc.Cols())
	}

	rows := desc.Rows()
	out := make([]features.Descriptor, rows)
	for r := 0; r < rows; r++ {
		d := make(features.Descriptor, Dim)
		for c := 0; c < Dim; c++ {
			d[c] = float64(desc.GetFloatAt(r, c))
		}
		out[r] = d
	}
	return out, nil
}
