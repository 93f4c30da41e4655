package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks problems detected before any image is
	// processed: missing inputs or invalid parameters.
	ErrConfiguration = errors.New("configuration error")

	// ErrDataConsistency marks artifacts that do not fit together, such as
	// a vector length that differs from the classifier's input dimension.
	ErrDataConsistency = errors.New("data consistency error")

	// ErrNoTrainingData is returned when no image produced a vector.
	ErrNoTrainingData = errors.New("no training vectors")

	// ErrNoImages is returned when a vocabulary directory holds no file
	// with a configured extension. Nothing is clustered and no artifact is
	// written, which callers may treat as a no-op. Images that yield no
	// descriptors end in vocabulary.ErrEmptyCorpus instead.
	ErrNoImages = errors.New("no images")
)

// Processing stages reported by ImageError.
const (
	StageLoad      = "load"
	StageDivide    = "divide"
	StageExtract   = "extract"
	StageHistogram = "histogram"
	StageConcat    = "concat"
	StagePredict   = "predict"
)

// ImageError is a failure confined to one image. The image is skipped and
// the run continues.
type ImageError struct {
	Key   int
	Path  string
	Stage string
	Err   error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("image %d (%s): %s: %v", e.Key, e.Path, e.Stage, e.Err)
}

func (e *ImageError) Unwrap() error { return e.Err }

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
