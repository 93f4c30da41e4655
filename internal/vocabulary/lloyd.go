package vocabulary

import (
	"fmt"
	"math"
	"math/rand"

	"visual-bow/internal/features"

	"gonum.org/v1/gonum/floats"
)

// Lloyd is a pure-Go k-means clusterer with k-means++ seeding. It is
// deterministic for a fixed Seed.
type Lloyd struct {
	MaxIter int     // Upper bound on refinement passes
	Epsilon float64 // Stop when no centroid moves further than this
	Seed    int64
}

// NewLloyd returns a Lloyd clusterer with the same termination criteria as
// the OpenCV backend (100 iterations, 0.2 epsilon).
func NewLloyd(seed int64) *Lloyd {
	return &Lloyd{MaxIter: 100, Epsilon: 0.2, Seed: seed}
}

// Cluster implements Clusterer.
func (l *Lloyd) Cluster(points []features.Descriptor, k int) ([]features.Descriptor, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	if len(points) < k {
		return nil, fmt.Errorf("%w: %d points, k=%d", ErrTooFewDescriptors, len(points), k)
	}
	dim := len(points[0])

	rng := rand.New(rand.NewSource(l.Seed))
	centroids := seedPlusPlus(points, k, rng)
	assign := make([]int, len(points))
	counts := make([]int, k)
	sums := make([]features.Descriptor, k)
	for j := range sums {
		sums[j] = make(features.Descriptor, dim)
	}

	for iter := 0; iter < max(1, l.MaxIter); iter++ {
		for i, p := range points {
			assign[i], _ = nearest(p, centroids)
		}

		for j := range sums {
			for d := range sums[j] {
				sums[j][d] = 0
			}
			counts[j] = 0
		}
		for i, p := range points {
			floats.Add(sums[assign[i]], p)
			counts[assign[i]]++
		}

		shift := 0.0
		for j := 0; j < k; j++ {
			var next features.Descriptor
			if counts[j] == 0 {
				next = append(features.Descriptor(nil), points[farthest(points, centroids, assign)]...)
			} else {
				next = make(features.Descriptor, dim)
				floats.ScaleTo(next, 1/float64(counts[j]), sums[j])
			}
			shift = math.Max(shift, floats.Distance(next, centroids[j], 2))
			centroids[j] = next
		}
		if shift <= l.Epsilon {
			break
		}
	}
	return centroids, nil
}

// seedPlusPlus picks k initial centroids with probability proportional to
// squared distance from the nearest centroid already chosen.
func seedPlusPlus(points []features.Descriptor, k int, rng *rand.Rand) []features.Descriptor {
	centroids := make([]features.Descriptor, 0, k)
	centroids = append(centroids, append(features.Descriptor(nil), points[rng.Intn(len(points))]...))

	dist := make([]float64, len(points))
	for len(centroids) < k {
		total := 0.0
		for i, p := range points {
			_, d := nearest(p, centroids)
			dist[i] = d * d
			total += dist[i]
		}

		pick := 0
		if total == 0 {
			pick = rng.Intn(len(points))
		} else {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					pick = i
					break
				}
			}
		}
		centroids = append(centroids, append(features.Descriptor(nil), points[pick]...))
	}
	return centroids
}

// nearest returns the index of the closest centroid and its distance.
// Ties go to the lowest index.
func nearest(p features.Descriptor, centroids []features.Descriptor) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for j, c := range centroids {
		if d := floats.Distance(p, c, 2); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best, bestDist
}

// farthest returns the point furthest from its assigned centroid.
func farthest(points, centroids []features.Descriptor, assign []int) int {
	idx, far := 0, -1.0
	for i, p := range points {
		if d := floats.Distance(p, centroids[assign[i]], 2); d > far {
			idx, far = i, d
		}
	}
	return idx
}
