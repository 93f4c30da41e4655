package classifier

import (
	"errors"
	"fmt"

	"visual-bow/internal/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// KindRidge names the one-vs-rest ridge regression classifier.
const KindRidge = "ridge"

// DefaultLambda is the ridge penalty used when none is configured.
const DefaultLambda = 1.0

var errSingular = errors.New("normal equations not positive definite")

// Ridge fits one linear scorer per class against one-hot targets by
// regularised least squares. Each weight row holds InputDim coefficients
// followed by an unpenalised bias.
type Ridge struct {
	meta    Meta
	lambda  float64
	weights [][]float64
}

// NewRidge creates an untrained ridge classifier. lambda must be positive.
func NewRidge(meta Meta, lambda float64) (*Ridge, error) {
	if lambda <= 0 {
		return nil, fmt.Errorf("ridge lambda must be positive, got %g", lambda)
	}
	return &Ridge{meta: copyMeta(meta), lambda: lambda}, nil
}

func (r *Ridge) Kind() string { return KindRidge }
func (r *Ridge) Meta() Meta   { return copyMeta(r.meta) }

// Train solves (XᵀX + λD) W = XᵀY with X augmented by a bias column and D
// the identity with a zero in the bias slot.
func (r *Ridge) Train(x *mat.Dense, labels []int) error {
	if err := checkTrainingSet(r.meta, x, labels); err != nil {
		return err
	}
	n, d := x.Dims()
	classes := len(r.meta.Classes)

	xa := mat.NewDense(n, d+1, nil)
	xa.Slice(0, n, 0, d).(*mat.Dense).Copy(x)
	for i := 0; i < n; i++ {
		xa.Set(i, d, 1)
	}

	y := mat.NewDense(n, classes, nil)
	for i, l := range labels {
		y.Set(i, l, 1)
	}

	a := mat.NewSymDense(d+1, nil)
	a.SymOuterK(1, xa.T())
	for i := 0; i < d; i++ {
		a.SetSym(i, i, a.At(i, i)+r.lambda)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return errSingular
	}

	var b, w mat.Dense
	b.Mul(xa.T(), y)
	if err := chol.SolveTo(&w, &b); err != nil {
		return fmt.Errorf("solve ridge system: %w", err)
	}

	r.weights = make([][]float64, classes)
	for c := range r.weights {
		r.weights[c] = mat.Col(nil, c, &w)
	}
	return nil
}

// Score returns the linear response of every class.
func (r *Ridge) Score(v []float64) ([]float64, error) {
	if r.weights == nil {
		return nil, ErrNotTrained
	}
	if err := features.CheckDim("classifier input", r.meta.InputDim, len(v)); err != nil {
		return nil, err
	}
	d := r.meta.InputDim
	out := make([]float64, len(r.weights))
	for c, w := range r.weights {
		out[c] = floats.Dot(w[:d], v) + w[d]
	}
	return out, nil
}

// Predict returns the class with the highest response.
func (r *Ridge) Predict(v []float64) (int, error) {
	s, err := r.Score(v)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(s), nil
}

func (r *Ridge) artifact() (*Artifact, error) {
	if r.weights == nil {
		return nil, ErrNotTrained
	}
	return &Artifact{Kind: KindRidge, Meta: r.Meta(), Weights: r.weights}, nil
}

func deserializeRidge(a *Artifact) (Classifier, error) {
	if len(a.Weights) != len(a.Classes) {
		return nil, fmt.Errorf("ridge artifact: %d weight rows for %d classes", len(a.Weights), len(a.Classes))
	}
	for c, w := range a.Weights {
		if err := features.CheckDim(fmt.Sprintf("ridge weights for class %d", c), a.InputDim+1, len(w)); err != nil {
			return nil, err
		}
	}
	return &Ridge{meta: copyMeta(a.Meta), lambda: DefaultLambda, weights: a.Weights}, nil
}
