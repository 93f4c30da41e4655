package classifier

import (
	"fmt"
	"math"

	"visual-bow/internal/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// KindCentroid names the nearest class-mean classifier.
const KindCentroid = "centroid"

// Centroid scores a vector by its negated Euclidean distance to each class
// mean. A class without training rows scores -Inf.
type Centroid struct {
	meta      Meta
	centroids [][]float64
	trained   bool
}

// NewCentroid creates an untrained nearest-centroid classifier.
func NewCentroid(meta Meta) (*Centroid, error) {
	return &Centroid{meta: copyMeta(meta)}, nil
}

func (c *Centroid) Kind() string { return KindCentroid }
func (c *Centroid) Meta() Meta   { return copyMeta(c.meta) }

// Train computes the per-class mean of the rows of x.
func (c *Centroid) Train(x *mat.Dense, labels []int) error {
	if err := checkTrainingSet(c.meta, x, labels); err != nil {
		return err
	}
	n, d := x.Dims()
	classes := len(c.meta.Classes)

	weights := make([][]float64, classes)
	for k := range weights {
		weights[k] = make([]float64, n)
	}
	for i, l := range labels {
		weights[l][i] = 1
	}

	c.centroids = make([][]float64, classes)
	for k, w := range weights {
		if floats.Sum(w) > 0 {
			c.centroids[k] = make([]float64, d)
		}
	}
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, x)
		for k, m := range c.centroids {
			if m != nil {
				m[j] = stat.Mean(col, weights[k])
			}
		}
	}
	c.trained = true
	return nil
}

// Score returns the negated distance from v to every class mean.
func (c *Centroid) Score(v []float64) ([]float64, error) {
	if !c.trained {
		return nil, ErrNotTrained
	}
	if err := features.CheckDim("classifier input", c.meta.InputDim, len(v)); err != nil {
		return nil, err
	}
	out := make([]float64, len(c.centroids))
	for k, m := range c.centroids {
		if m == nil {
			out[k] = math.Inf(-1)
			continue
		}
		out[k] = -floats.Distance(v, m, 2)
	}
	return out, nil
}

// Predict returns the class with the nearest mean.
func (c *Centroid) Predict(v []float64) (int, error) {
	s, err := c.Score(v)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(s), nil
}

func (c *Centroid) artifact() (*Artifact, error) {
	if !c.trained {
		return nil, ErrNotTrained
	}
	return &Artifact{Kind: KindCentroid, Meta: c.Meta(), Centroids: c.centroids}, nil
}

func deserializeCentroid(a *Artifact) (Classifier, error) {
	if len(a.Centroids) != len(a.Classes) {
		return nil, fmt.Errorf("centroid artifact: %d centroids for %d classes", len(a.Centroids), len(a.Classes))
	}
	for k, m := range a.Centroids {
		if m == nil {
			continue
		}
		if err := features.CheckDim(fmt.Sprintf("centroid %d", k), a.InputDim, len(m)); err != nil {
			return nil, err
		}
	}
	return &Centroid{meta: copyMeta(a.Meta), centroids: a.Centroids, trained: true}, nil
}
