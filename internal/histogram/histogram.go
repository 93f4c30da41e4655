// Package histogram assigns descriptors to their nearest visual words.
package histogram

import (
	"fmt"
	"math"

	"visual-bow/internal/features"
	"visual-bow/internal/vocabulary"

	"gonum.org/v1/gonum/floats"
)

// Histogram is a length-K count of descriptors per visual word.
type Histogram []float64

// Sum returns the total count.
func (h Histogram) Sum() float64 {
	return floats.Sum(h)
}

// Assigner maps descriptors onto a read-only vocabulary. It holds no mutable
// state and may be shared between goroutines.
type Assigner struct {
	vocab *vocabulary.Vocabulary
}

// NewAssigner creates an assigner for vocab.
func NewAssigner(vocab *vocabulary.Vocabulary) *Assigner {
	return &Assigner{vocab: vocab}
}

// K returns the histogram length.
func (a *Assigner) K() int {
	return a.vocab.K()
}

// Nearest returns the id of the visual word closest to d in Euclidean
// distance. Ties resolve to the lowest id.
func (a *Assigner) Nearest(d features.Descriptor) (int, error) {
	if err := features.CheckDim("descriptor", a.vocab.Dim(), len(d)); err != nil {
		return -1, err
	}
	best, bestDist := 0, math.Inf(1)
	for w := 0; w < a.vocab.K(); w++ {
		if dist := floats.Distance(d, a.vocab.Word(w), 2); dist < bestDist {
			best, bestDist = w, dist
		}
	}
	return best, nil
}

// Histogram counts descriptors per nearest word. No descriptors yields the
// all-zero histogram.
func (a *Assigner) Histogram(descs []features.Descriptor) (Histogram, error) {
	h := make(Histogram, a.vocab.K())
	for i, d := range descs {
		w, err := a.Nearest(d)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		h[w]++
	}
	return h, nil
}
