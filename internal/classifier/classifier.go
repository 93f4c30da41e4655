// Package classifier trains and applies multi-class models over spatial
// bag-of-words vectors.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"visual-bow/internal/features"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrUnknownKind is returned for a classifier kind with no maker or
	// deserializer.
	ErrUnknownKind = errors.New("unknown classifier kind")

	// ErrNotTrained is returned when predicting with an untrained model.
	ErrNotTrained = errors.New("classifier not trained")

	// ErrBadTrainingSet is returned when the matrix and labels disagree.
	ErrBadTrainingSet = errors.New("invalid training set")
)

// Meta describes the vectors a classifier was trained on.
type Meta struct {
	InputDim       int      `json:"input_dim"`
	Classes        []string `json:"classes"`
	Sectors        int      `json:"sectors"`
	VocabularySize int      `json:"vocabulary_size"`
}

// Options tunes the trainable models.
type Options struct {
	Lambda float64
}

// Classifier scores and predicts class ids for one vector.
type Classifier interface {
	Kind() string
	Meta() Meta
	// Predict returns the class id with the highest score. Ties resolve to
	// the lowest id.
	Predict(v []float64) (int, error)
	// Score returns one confidence per class, higher meaning more likely.
	Score(v []float64) ([]float64, error)
}

// Trainable is a Classifier that can be fit to a training matrix.
type Trainable interface {
	Classifier
	Train(x *mat.Dense, labels []int) error
}

// Maker builds an untrained model.
type Maker func(meta Meta, opts Options) (Trainable, error)

// Deserializer rebuilds a trained model from its artifact.
type Deserializer func(a *Artifact) (Classifier, error)

var makers = map[string]Maker{
	KindRidge: func(meta Meta, opts Options) (Trainable, error) {
		return NewRidge(meta, opts.Lambda)
	},
	KindCentroid: func(meta Meta, _ Options) (Trainable, error) {
		return NewCentroid(meta)
	},
}

var deserializers = map[string]Deserializer{
	KindRidge:    deserializeRidge,
	KindCentroid: deserializeCentroid,
}

// Kinds lists the registered classifier kinds.
func Kinds() []string {
	out := make([]string, 0, len(makers))
	for k := range makers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New creates an untrained classifier of the given kind.
func New(kind string, meta Meta, opts Options) (Trainable, error) {
	mk, ok := makers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if meta.InputDim <= 0 || len(meta.Classes) == 0 {
		return nil, fmt.Errorf("classifier needs input_dim > 0 and at least one class, got %d and %d",
			meta.InputDim, len(meta.Classes))
	}
	return mk(meta, opts)
}

// Artifact is the persisted form of a classifier.
type Artifact struct {
	Kind string `json:"kind"`
	Meta
	Weights   [][]float64 `json:"weights,omitempty"`
	Centroids [][]float64 `json:"centroids,omitempty"`
}

type artifactSource interface {
	artifact() (*Artifact, error)
}

// Save writes a trained classifier to a JSON file.
func Save(c Classifier, path string) error {
	src, ok := c.(artifactSource)
	if !ok {
		return fmt.Errorf("%w: %q cannot be saved", ErrUnknownKind, c.Kind())
	}
	a, err := src.artifact()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal classifier: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create classifier dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads a classifier written by Save.
func Load(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal classifier: %w", err)
	}
	de, ok := deserializers[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	if a.InputDim <= 0 || len(a.Classes) == 0 {
		return nil, fmt.Errorf("classifier artifact has input_dim %d and %d classes", a.InputDim, len(a.Classes))
	}
	return de(&a)
}

func checkTrainingSet(meta Meta, x *mat.Dense, labels []int) error {
	if x == nil {
		return fmt.Errorf("%w: empty matrix", ErrBadTrainingSet)
	}
	rows, cols := x.Dims()
	if err := features.CheckDim("training matrix width", meta.InputDim, cols); err != nil {
		return err
	}
	if rows != len(labels) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrBadTrainingSet, rows, len(labels))
	}
	for i, l := range labels {
		if l < 0 || l >= len(meta.Classes) {
			return fmt.Errorf("%w: row %d has label %d outside [0,%d)", ErrBadTrainingSet, i, l, len(meta.Classes))
		}
	}
	return nil
}

func copyMeta(m Meta) Meta {
	m.Classes = append([]string(nil), m.Classes...)
	return m
}
