// Package evaluation turns classifier confidence scores into ranking-based
// precision metrics.
package evaluation

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrNoPositives is returned when AP is requested for a ranking without
	// any positive example. AP is undefined there, not zero.
	ErrNoPositives = errors.New("no positive examples")

	// ErrLengthMismatch is returned when labels and scores differ in length.
	ErrLengthMismatch = errors.New("labels and scores differ in length")
)

// AveragePrecision ranks the examples by descending score (ties keep input
// order) and averages precision@k over the ranks k that hold a positive.
// A label is positive when it is non-zero.
func AveragePrecision(trueLabels []int, scores []float64) (float64, error) {
	if len(trueLabels) != len(scores) {
		return 0, fmt.Errorf("%w: %d labels, %d scores", ErrLengthMismatch, len(trueLabels), len(scores))
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	var hits int
	var sum float64
	for rank, idx := range order {
		if trueLabels[idx] == 0 {
			continue
		}
		hits++
		sum += float64(hits) / float64(rank+1)
	}
	if hits == 0 {
		return 0, ErrNoPositives
	}
	return sum / float64(hits), nil
}
