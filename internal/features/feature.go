// Package features defines local image descriptors and the extractors that
// produce them.
package features

import (
	"errors"
	"fmt"
	"image"
)

// ErrDimensionMismatch is wrapped by DimensionMismatchError.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Descriptor is a fixed-length numeric vector describing one local region.
type Descriptor []float64

// Extractor turns an image into an ordered sequence of descriptors.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Name identifies the extractor in logs and artifacts.
	Name() string
	// Dim is the dimension of every descriptor produced.
	Dim() int
	// Extract returns the descriptors found in img. An image with no
	// detectable features yields an empty slice and no error.
	Extract(img image.Image) ([]Descriptor, error)
}

// DimensionMismatchError reports a vector whose length differs from the
// length fixed by a vocabulary, histogram or classifier.
type DimensionMismatchError struct {
	What     string
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s dimension mismatch: expected %d, got %d", e.What, e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// CheckDim returns a DimensionMismatchError when actual != expected.
func CheckDim(what string, expected, actual int) error {
	if expected != actual {
		return &DimensionMismatchError{What: what, Expected: expected, Actual: actual}
	}
	return nil
}
