// Package bow builds spatial bag-of-words vectors and the training matrix
// they feed.
package bow

import (
	"errors"
	"fmt"

	"visual-bow/internal/features"
	"visual-bow/internal/histogram"
)

var (
	// ErrSectorOverflow is returned when more than N sector histograms are
	// merged into one image's vector.
	ErrSectorOverflow = errors.New("more sectors merged than configured")

	// ErrIncompleteVector is returned when committing a vector that has
	// fewer than N sectors.
	ErrIncompleteVector = errors.New("spatial vector is incomplete")
)

// Vector is the concatenation of N sector histograms, length N*K.
type Vector []float64

// Concat builds the spatial vector of one image from exactly n histograms
// of length k, in sector order. The result never aliases its inputs.
func Concat(n, k int, hists ...histogram.Histogram) (Vector, error) {
	if len(hists) > n {
		return nil, fmt.Errorf("%w: %d > %d", ErrSectorOverflow, len(hists), n)
	}
	if len(hists) < n {
		return nil, fmt.Errorf("%w: %d of %d sectors", ErrIncompleteVector, len(hists), n)
	}
	v := make(Vector, 0, n*k)
	for i, h := range hists {
		if err := features.CheckDim("sector histogram", k, len(h)); err != nil {
			return nil, fmt.Errorf("sector %d: %w", i+1, err)
		}
		v = append(v, h...)
	}
	return v, nil
}

// Aggregator accumulates sector histograms for the image currently being
// processed. It is never reset implicitly: ClearCurrent must be called
// between images.
type Aggregator struct {
	n, k    int
	merged  int
	current Vector
}

// NewAggregator creates an aggregator for n sectors of k words.
func NewAggregator(n, k int) *Aggregator {
	return &Aggregator{n: n, k: k, current: make(Vector, 0, n*k)}
}

// MergeSector appends the next sector histogram.
func (a *Aggregator) MergeSector(h histogram.Histogram) error {
	if a.merged >= a.n {
		return fmt.Errorf("%w: sector %d of %d", ErrSectorOverflow, a.merged+1, a.n)
	}
	if err := features.CheckDim("sector histogram", a.k, len(h)); err != nil {
		return err
	}
	a.current = append(a.current, h...)
	a.merged++
	return nil
}

// ClearCurrent discards the in-progress vector.
func (a *Aggregator) ClearCurrent() {
	a.current = a.current[:0]
	a.merged = 0
}

// Merged returns the number of sectors merged since the last clear.
func (a *Aggregator) Merged() int { return a.merged }

// Complete reports whether all N sectors have been merged.
func (a *Aggregator) Complete() bool { return a.merged == a.n }

// Current returns a copy of the in-progress vector.
func (a *Aggregator) Current() Vector {
	return append(Vector(nil), a.current...)
}

// Commit adds the completed vector to m as the row for key with label.
func (a *Aggregator) Commit(m *Matrix, key, label int) error {
	if !a.Complete() {
		return fmt.Errorf("%w: %d of %d sectors", ErrIncompleteVector, a.merged, a.n)
	}
	return m.Add(key, a.Current(), label)
}
