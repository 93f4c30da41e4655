// Package opencv clusters descriptors with OpenCV's k-means.
package opencv

import (
	"fmt"

	"visual-bow/internal/features"

	"gocv.io/x/gocv"
)

// Clusterer runs gocv.KMeans with k-means++ seeding.
type Clusterer struct {
	MaxIter  int
	Epsilon  float64
	Attempts int
}

// New returns a clusterer with 100 iterations, 0.2 epsilon and 3 attempts.
func New() *Clusterer {
	return &Clusterer{MaxIter: 100, Epsilon: 0.2, Attempts: 3}
}

// Cluster implements vocabulary.Clusterer.
func (c *Clusterer) Cluster(points []features.Descriptor, k int) ([]features.Descriptor, error) {
	if k <= 0 || len(points) < k {
		return nil, fmt.Errorf("cannot cluster %d points into %d words", len(points), k)
	}
	dim := len(points[0])

	// Reshape for k-means: n x dim float32
	data := gocv.NewMatWithSize(len(points), dim, gocv.MatTypeCV32F)
	defer data.Close()
	for i, p := range points {
		if err := features.CheckDim("descriptor", dim, len(p)); err != nil {
			return nil, err
		}
		for d, v := range p {
			data.SetFloatAt(i, d, float32(v))
		}
	}

	labels := gocv.NewMat()
	defer labels.Close()
	centers := gocv.NewMat()
	defer centers.Close()

	criteria := gocv.NewTermCriteria(gocv.EPS+gocv.MaxIter, c.MaxIter, c.Epsilon)
	gocv.KMeans(data, k, &labels, criteria, max(1, c.Attempts), gocv.KMeansPPCenters, &centers)

	if centers.Rows() != k || centers.Cols() != dim {
		return nil, fmt.Errorf("k-means returned %dx%d centers, want %dx%d", centers.Rows(), centers.Cols(), k, dim)
	}

	out := make([]features.Descriptor, k)
	for i := 0; i < k; i++ {
		w := make(features.Descriptor, dim)
		for d := 0; d < dim; d++ {
			w[d] = float64(centers.GetFloatAt(i, d))
		}
		out[i] = w
	}
	return out, nil
}
